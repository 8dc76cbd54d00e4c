package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

// handleStream pushes every new preview frame to a websocket client as a binary message.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error(err, "Error upgrading websocket connection", "remote", r.RemoteAddr)
		return
	}
	defer conn.Close()
	s.log.Info("Preview stream opened", "remote", r.RemoteAddr)

	// The client never sends anything; reading only detects the close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.options.PreviewInterval)
	defer ticker.Stop()

	var last uint64
	for {
		select {
		case <-closed:
			s.log.Info("Preview stream closed", "remote", r.RemoteAddr)
			return
		case <-s.shutdown:
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(writeWait))
			return
		case <-ticker.C:
		}

		frame, seq := s.frames.Latest()
		if seq == last || len(frame) == 0 {
			continue
		}
		last = seq

		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
			s.log.Debug("Preview stream write failed", "remote", r.RemoteAddr, "err", err)
			return
		}
	}
}
