// Copyright (c) 2025 BVK Chaitanya

package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/bvk/tcbot/api"
	"github.com/gorilla/websocket"
	"github.com/visvasity/topic"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// serveEvents streams trade events to a websocket client until the client
// goes away or the server is closed.
func (s *Server) serveEvents(w http.ResponseWriter, r *http.Request) {
	receiver, err := s.tlog.Subscribe(false)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer receiver.Close()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("could not upgrade to websocket", "remote", r.RemoteAddr, "err", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(s.cg.Context())
	defer cancel()

	// Client messages are ignored; reads only detect the disconnect.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	eventCh, err := topic.ReceiveCh(receiver)
	if err != nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case e, ok := <-eventCh:
			if !ok {
				return
			}
			msg := &api.Event{Kind: string(e.Kind), Time: e.Time, Trade: e.Trade}
			if err := conn.WriteJSON(msg); err != nil {
				slog.Debug("could not write trade event to websocket", "remote", r.RemoteAddr, "err", err)
				return
			}
		}
	}
}
