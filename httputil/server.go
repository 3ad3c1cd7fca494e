// Copyright (c) 2025 BVK Chaitanya

package httputil

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"sync"
	"sync/atomic"

	"github.com/bvk/tcbot/ctxutil"
	"github.com/google/uuid"
)

// Server is a http server whose handlers can be added and removed while it is
// serving requests.
type Server struct {
	ctx    context.Context
	cancel context.CancelCauseFunc
	wg     sync.WaitGroup

	opts Options

	mux atomic.Pointer[http.ServeMux]

	mu         sync.Mutex
	handlerMap map[string]http.Handler
	servers    []*http.Server
}

func New(opts *Options) (*Server, error) {
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()
	if err := opts.Check(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancelCause(context.Background())
	s := &Server{
		ctx:        ctx,
		cancel:     cancel,
		opts:       *opts,
		handlerMap: make(map[string]http.Handler),
	}
	s.mux.Store(http.NewServeMux())
	return s, nil
}

func (s *Server) Close() error {
	s.cancel(os.ErrClosed)

	s.mu.Lock()
	servers := s.servers
	s.servers = nil
	s.mu.Unlock()

	for _, svr := range servers {
		svr.Close()
	}
	s.wg.Wait()
	return nil
}

// StartTCP starts serving on the address and waits until the listener
// responds to a readiness probe. When the input port is zero, it is updated
// with the port chosen by the kernel.
func (s *Server) StartTCP(ctx context.Context, addr *net.TCPAddr) (status error) {
	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return err
	}
	defer func() {
		if status != nil {
			l.Close()
		}
	}()
	if addr.Port == 0 {
		addr.Port = l.Addr().(*net.TCPAddr).Port
	}

	probePath := "/" + uuid.NewString()
	s.AddHandler(probePath, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	defer s.RemoveHandler(probePath)

	server := &http.Server{
		Handler: s,
		BaseContext: func(net.Listener) context.Context {
			return s.ctx
		},
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := server.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", "addr", addr, "err", err)
		}
	}()

	if err := s.waitReady(ctx, l.Addr().String(), probePath); err != nil {
		server.Close()
		return err
	}

	s.mu.Lock()
	s.servers = append(s.servers, server)
	s.mu.Unlock()
	return nil
}

func (s *Server) waitReady(ctx context.Context, host, probePath string) error {
	client := http.Client{Timeout: s.opts.ReadyTimeout}
	u := url.URL{Scheme: "http", Host: host, Path: probePath}
	probe := func() error {
		resp, err := client.Get(u.String())
		if err != nil {
			return err
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("readiness probe returned status %d", resp.StatusCode)
		}
		return nil
	}
	if err := ctxutil.RetryTimeout(ctx, s.opts.ReadyRetryInterval, s.opts.ReadyTimeout, probe); err != nil {
		return fmt.Errorf("http server at %s is not ready: %w", host, err)
	}
	return nil
}

func (s *Server) AddHandler(pattern string, handler http.Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.handlerMap[pattern] = handler
	s.updateMux()
}

func (s *Server) RemoveHandler(pattern string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.handlerMap[pattern]; !ok {
		return false
	}
	delete(s.handlerMap, pattern)
	s.updateMux()
	return true
}

func (s *Server) updateMux() {
	m := http.NewServeMux()
	for k, v := range s.handlerMap {
		m.Handle(k, v)
	}
	s.mux.Store(m)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.Load().ServeHTTP(w, r)
}
