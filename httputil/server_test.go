// Copyright (c) 2025 BVK Chaitanya

package httputil

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"testing"
)

type echoRequest struct {
	Text string
}

type echoResponse struct {
	Text string
}

func TestServerJSON(t *testing.T) {
	ctx := context.Background()

	s, err := New(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	addr := &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)}
	if err := s.StartTCP(ctx, addr); err != nil {
		t.Fatal(err)
	}
	if addr.Port == 0 {
		t.Fatalf("want a kernel assigned port")
	}

	echo := func(ctx context.Context, req *echoRequest) (*echoResponse, error) {
		if req.Text == "" {
			return nil, fmt.Errorf("empty text: %w", os.ErrInvalid)
		}
		return &echoResponse{Text: req.Text}, nil
	}
	s.AddHandler("/echo", JSONHandler(echo))

	u := &url.URL{Scheme: "http", Host: addr.String(), Path: "/echo"}
	resp, err := PostJSON[echoResponse](ctx, http.DefaultClient, u, &echoRequest{Text: "hello"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Text != "hello" {
		t.Fatalf("want hello, got %q", resp.Text)
	}

	var serr *StatusError
	if _, err := PostJSON[echoResponse](ctx, http.DefaultClient, u, &echoRequest{}); !errors.As(err, &serr) || serr.Code != http.StatusBadRequest {
		t.Fatalf("want bad request status error, got %v", err)
	}

	if !s.RemoveHandler("/echo") {
		t.Fatalf("want handler removed")
	}
	if _, err := PostJSON[echoResponse](ctx, http.DefaultClient, u, &echoRequest{Text: "x"}); !errors.As(err, &serr) || serr.Code != http.StatusNotFound {
		t.Fatalf("want not found status error, got %v", err)
	}
}
