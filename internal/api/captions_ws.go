package api

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"captionsync/internal/captions"
	"captionsync/internal/logging"
)

const (
	captionWriteTimeout = 5 * time.Second
	captionReadLimit    = 4096
)

func (s *Server) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
}

// checkOrigin allows non-browser clients (no Origin header), same-host pages
// and configured origins.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || allowsAnyOrigin(s.opts.AllowedOrigins) {
		return true
	}
	if u, err := url.Parse(origin); err == nil && strings.EqualFold(u.Host, r.Host) {
		return true
	}
	for _, allowed := range s.opts.AllowedOrigins {
		if strings.EqualFold(strings.TrimSuffix(allowed, "/"), origin) {
			return true
		}
	}
	return false
}

// connListener forwards synchronizer transitions to one connection. It is
// only called from the connection's read loop.
type connListener struct {
	conn *websocket.Conn
	err  error
}

func (l *connListener) Show(e captions.Event) {
	l.write(showMessage(e))
}

func (l *connListener) Hide() {
	l.write(StatusMessage{Type: MessageHide})
}

func (l *connListener) write(msg any) {
	if l.err != nil {
		return
	}
	_ = l.conn.SetWriteDeadline(time.Now().Add(captionWriteTimeout))
	l.err = l.conn.WriteJSON(msg)
}

func (s *Server) handleCaptions(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.lookup(w, r)
	if !ok {
		return
	}
	up := s.upgrader()
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("caption stream upgrade failed", logging.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(captionReadLimit)

	logger := s.logger.With(logging.String("fingerprint", entry.Fingerprint))
	logger.Debug("caption stream opened", logging.Int("segment_count", len(entry.Transcript.Segments)))

	listener := &connListener{conn: conn}
	synchronizer := captions.NewSynchronizer(entry.Transcript, listener, nil)
	defer synchronizer.Stop()

	for {
		var msg ClientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && !errors.Is(err, websocket.ErrCloseSent) {
				logger.Debug("caption stream closed", logging.Error(err))
			}
			return
		}
		switch msg.Type {
		case MessageTime:
			if msg.Time < 0 {
				listener.write(StatusMessage{Type: MessageError, Error: "time must be non-negative"})
				break
			}
			synchronizer.OnTimeUpdate(msg.Time)
		case MessageEnded:
			synchronizer.Stop()
		default:
			listener.write(StatusMessage{Type: MessageError, Error: "unknown message type " + msg.Type})
		}
		if listener.err != nil {
			logger.Debug("caption stream write failed", logging.Error(listener.err))
			return
		}
	}
}
