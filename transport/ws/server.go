// Package ws carries the request/response protocol over websocket text
// frames: each inbound frame gets exactly one response frame.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pthm-cable/bonsai/protocol"
)

const (
	readTimeout  = 60 * time.Second
	writeTimeout = 5 * time.Second
	maxMessage   = 1 << 20
)

type Server struct {
	handler *protocol.Handler

	upgrader websocket.Upgrader
	nextID   atomic.Uint64
}

func NewServer(h *protocol.Handler) *Server {
	return &Server{
		handler: h,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.SetReadLimit(maxMessage)

		id := s.nextID.Add(1)
		slog.Info("ws_connected", "conn", id, "remote", r.RemoteAddr)
		defer slog.Info("ws_disconnected", "conn", id)

		for {
			_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
			kind, msg, err := conn.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					slog.Debug("ws_read_failed", "conn", id, "error", err)
				}
				return
			}
			if kind != websocket.TextMessage {
				continue
			}

			resp := s.handler.Handle(msg)
			if resp.Error != nil {
				slog.Debug("request_failed", "conn", id, "type", resp.Type, "code", resp.Error.Code, "error", resp.Error.Message)
			}
			if err := writeJSON(conn, resp); err != nil {
				slog.Debug("ws_write_failed", "conn", id, "error", err)
				return
			}
		}
	}
}

// ListenAndServe serves the handler at path on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr, path string) error {
	mux := http.NewServeMux()
	mux.Handle(path, s.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	slog.Info("ws_listening", "addr", addr, "path", path)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, b)
}
