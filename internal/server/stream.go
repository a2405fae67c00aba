package server

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"uptimeline/internal/models"
)

const (
	streamWriteTimeout = 5 * time.Second
	streamBuffer       = 8
)

var streamUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		host := strings.ToLower(strings.TrimSpace(r.Host))
		originHost := strings.ToLower(strings.TrimSpace(u.Host))
		return host == originHost
	},
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := streamUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.serveStream(conn)
}

func (s *Server) serveStream(conn *websocket.Conn) {
	defer conn.Close()

	// Subscribe before reading the snapshot so a report published in
	// between is not missed; anything the snapshot already delivered is
	// skipped by generation time below.
	id, updates := s.store.Subscribe(streamBuffer)
	defer s.store.Unsubscribe(id)

	lastSent := make(map[string]time.Time)
	for _, report := range s.store.Snapshot() {
		if err := writeStreamPayload(conn, report); err != nil {
			return
		}
		lastSent[report.DeviceID] = report.GeneratedAt
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case report, ok := <-updates:
			if !ok {
				return
			}
			if sent, seen := lastSent[report.DeviceID]; seen && !report.GeneratedAt.After(sent) {
				continue
			}
			lastSent[report.DeviceID] = report.GeneratedAt
			if err := writeStreamPayload(conn, report); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func writeStreamPayload(conn *websocket.Conn, report models.Report) error {
	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
	return conn.WriteJSON(report)
}
