// Copyright (c) 2025 BVK Chaitanya

package webex

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/bvk/tcbot/exchange"
	"github.com/bvk/tcbot/tcerr"
	"github.com/google/uuid"
)

// Handler serves an exchange over http so that Client can trade with it.
type Handler struct {
	ex exchange.Exchange

	mux *http.ServeMux

	mu       sync.Mutex
	sessions map[string]bool
}

func NewHandler(ex exchange.Exchange) *Handler {
	h := &Handler{
		ex:       ex,
		mux:      http.NewServeMux(),
		sessions: make(map[string]bool),
	}
	h.mux.HandleFunc("POST "+LoginPath, h.login)
	h.mux.Handle("GET "+MarketPath, h.withSession(h.market))
	h.mux.Handle("POST "+OrdersPath, h.withSession(h.submit))
	h.mux.Handle("POST "+CancelPath, h.withSession(h.cancel))
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// Expire drops all sessions, forcing the clients to login again.
func (h *Handler) Expire() {
	h.mu.Lock()
	defer h.mu.Unlock()
	clear(h.sessions)
}

func (h *Handler) withSession(f http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookie)
		if err == nil {
			h.mu.Lock()
			ok := h.sessions[cookie.Value]
			h.mu.Unlock()
			if ok {
				f(w, r)
				return
			}
		}
		writeError(w, http.StatusUnauthorized, CodeNoSession, "login required")
	})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	req := new(LoginRequest)
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalid, err.Error())
		return
	}
	if err := h.ex.Login(r.Context(), req.Username, req.Password); err != nil {
		h.fail(w, err)
		return
	}

	id := uuid.NewString()
	h.mu.Lock()
	h.sessions[id] = true
	h.mu.Unlock()

	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: id, Path: "/", HttpOnly: true})
	writeJSON(w, &LoginResponse{Exchange: h.ex.ExchangeName()})
}

func (h *Handler) market(w http.ResponseWriter, r *http.Request) {
	snap, err := h.ex.Refresh(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, marketResponse(snap))
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	req := new(OrderRequest)
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalid, err.Error())
		return
	}
	order := &exchange.Order{
		Direction: req.Direction,
		Give:      req.Give,
		Receive:   req.Receive,
		Split:     req.Split,
	}
	if err := h.ex.Submit(r.Context(), order); err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, &OKResponse{OK: true})
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	req := new(CancelRequest)
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalid, err.Error())
		return
	}
	if err := h.ex.Cancel(r.Context(), req.Direction); err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, &OKResponse{OK: true})
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, tcerr.ErrLoginFailed):
		writeError(w, http.StatusUnauthorized, CodeLoginFailed, err.Error())
	case errors.Is(err, tcerr.ErrNoMoney):
		writeError(w, http.StatusConflict, CodeNoMoney, err.Error())
	case errors.Is(err, os.ErrInvalid):
		writeError(w, http.StatusBadRequest, CodeInvalid, err.Error())
	case errors.Is(err, context.Canceled):
		writeError(w, http.StatusServiceUnavailable, CodeInternal, err.Error())
	default:
		slog.Error("exchange operation failed", "exchange", h.ex.ExchangeName(), "err", err)
		writeError(w, http.StatusInternalServerError, CodeInternal, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("could not write json response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(&ErrorResponse{Code: code, Message: message})
}
