// Copyright (c) 2025 BVK Chaitanya

package cmdutil

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/bvk/tcbot/httputil"
	"github.com/bvk/tcbot/subcmds/defaults"
)

// ClientFlags locate the api endpoint of a running tcbot service.
type ClientFlags struct {
	Server  string
	Timeout time.Duration
}

func (cf *ClientFlags) SetFlags(fset *flag.FlagSet) {
	fset.StringVar(&cf.Server, "server", net.JoinHostPort("127.0.0.1", strconv.Itoa(defaults.ServerPort())), "host:port of the tcbot service")
	fset.DurationVar(&cf.Timeout, "http-timeout", 30*time.Second, "timeout for each api request")
}

// Endpoint returns the url for the path on the service with the given scheme.
func (cf *ClientFlags) Endpoint(scheme, subpath string) (*url.URL, error) {
	if _, _, err := net.SplitHostPort(cf.Server); err != nil {
		return nil, fmt.Errorf("server address %q must be host:port: %w", cf.Server, os.ErrInvalid)
	}
	return &url.URL{Scheme: scheme, Host: cf.Server, Path: subpath}, nil
}

// Post sends an api request to the tcbot server.
func Post[RESP, REQ any](ctx context.Context, cf *ClientFlags, subpath string, req *REQ) (*RESP, error) {
	u, err := cf.Endpoint("http", subpath)
	if err != nil {
		return nil, err
	}
	return httputil.PostJSON[RESP](ctx, &http.Client{Timeout: cf.Timeout}, u, req)
}
