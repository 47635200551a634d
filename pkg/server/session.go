package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/strada-dev/strada/pkg/nav"
	"github.com/strada-dev/strada/pkg/router"
)

// NavigateFrame is the inbound client frame: a navigation request.
type NavigateFrame struct {
	// Navigate is the target URL.
	Navigate string `json:"navigate"`

	// Replace replaces the current history entry instead of pushing.
	Replace bool `json:"replace,omitempty"`

	// Browser marks the navigation as history-triggered (back/forward).
	Browser bool `json:"browser,omitempty"`
}

// EventFrame is the outbound lifecycle event frame.
type EventFrame struct {
	Event        string    `json:"event"`
	NavigationID int64     `json:"navigationId"`
	URL          string    `json:"url"`
	RedirectTo   string    `json:"redirectTo,omitempty"`
	Denied       bool      `json:"denied,omitempty"`
	Reason       string    `json:"reason,omitempty"`
	Error        string    `json:"error,omitempty"`
	At           time.Time `json:"at"`
}

// Session is one connected client: a WebSocket plus its own navigation
// pipeline. Inbound frames request navigations; the pipeline's lifecycle
// events stream back as JSON frames.
type Session struct {
	// ID uniquely identifies the session.
	ID string

	conn     *websocket.Conn
	pipeline *nav.Pipeline
	send     chan EventFrame
	log      *slog.Logger

	closeOnce sync.Once
	closed    chan struct{}
}

func newSession(conn *websocket.Conn, pipeline *nav.Pipeline, sendBuffer int, log *slog.Logger) *Session {
	s := &Session{
		ID:       uuid.NewString(),
		conn:     conn,
		pipeline: pipeline,
		send:     make(chan EventFrame, sendBuffer),
		closed:   make(chan struct{}),
	}
	s.log = log.With("session", s.ID)

	pipeline.Events().Observe(s.enqueue)
	return s
}

// Pipeline returns the session's navigation pipeline.
func (s *Session) Pipeline() *nav.Pipeline { return s.pipeline }

// enqueue forwards a lifecycle event to the writer without blocking the
// navigating goroutine. A full buffer drops the event for this session.
func (s *Session) enqueue(ev nav.Event) {
	frame := EventFrame{
		Event:        ev.Kind.String(),
		NavigationID: ev.NavigationID,
		URL:          ev.URL,
		RedirectTo:   ev.RedirectTo,
		Denied:       ev.Denied,
		Reason:       string(ev.Reason),
		At:           ev.At,
	}
	if ev.Err != nil {
		frame.Error = ev.Err.Error()
	}
	select {
	case s.send <- frame:
	case <-s.closed:
	default:
		s.log.Warn("event buffer full, dropping frame", "event", frame.Event, "navigation", frame.NavigationID)
	}
}

// run pumps the connection until it closes, then tears the session down.
func (s *Session) run(ctx context.Context) {
	go s.writeLoop()
	s.readLoop(ctx)
	s.Close()
}

// readLoop decodes navigation frames and feeds the pipeline.
func (s *Session) readLoop(ctx context.Context) {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Warn("websocket read failed", "err", err)
			}
			return
		}

		var frame NavigateFrame
		if err := json.Unmarshal(data, &frame); err != nil || frame.Navigate == "" {
			s.log.Warn("malformed navigate frame", "err", err)
			continue
		}

		var opts []nav.Option
		if frame.Replace {
			opts = append(opts, nav.WithReplaceHistory())
		}
		if frame.Browser {
			opts = append(opts, nav.WithTrigger(router.TriggerBrowser))
		}
		if _, err := s.pipeline.NavigateByURL(ctx, frame.Navigate, opts...); err != nil {
			if errors.Is(err, nav.ErrPipelineClosed) {
				return
			}
			s.log.Warn("navigate rejected", "url", frame.Navigate, "err", err)
		}
	}
}

// writeLoop serializes outbound frames onto the connection.
func (s *Session) writeLoop() {
	for {
		select {
		case frame := <-s.send:
			if err := s.conn.WriteJSON(frame); err != nil {
				s.log.Warn("websocket write failed", "err", err)
				s.Close()
				return
			}
		case <-s.closed:
			return
		}
	}
}

// Close tears the session down: pipeline first so in-flight navigations
// settle, then the connection.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.pipeline.Close()
		s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		s.conn.Close()
		s.log.Debug("session closed")
	})
}

// Done returns a channel closed when the session ends.
func (s *Session) Done() <-chan struct{} { return s.closed }
