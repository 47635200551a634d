package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/strada-dev/strada/pkg/router"
)

func testServer(t *testing.T, config *ServerConfig) (*Server, *httptest.Server) {
	t.Helper()
	table := router.MustTable([]*router.Route{
		{Path: "home", Component: "Home"},
		{Path: "old", RedirectTo: "/home", PathMatch: router.PathMatchFull},
	})
	s := New(table, config)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/_strada/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil reads frames until one matches the event name.
func readUntil(t *testing.T, conn *websocket.Conn, event string) EventFrame {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	conn.SetReadDeadline(deadline)
	for {
		var frame EventFrame
		if err := conn.ReadJSON(&frame); err != nil {
			t.Fatalf("waiting for %q: %v", event, err)
		}
		if frame.Event == event {
			return frame
		}
	}
}

func TestHealthz(t *testing.T) {
	_, ts := testServer(t, nil)
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	_, ts := testServer(t, nil)
	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestWebSocketNavigation(t *testing.T) {
	srv, ts := testServer(t, nil)
	conn := dialWS(t, ts)

	if err := conn.WriteJSON(NavigateFrame{Navigate: "/home"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	start := readUntil(t, conn, "start")
	if start.URL != "/home" {
		t.Errorf("start url = %q, want /home", start.URL)
	}
	end := readUntil(t, conn, "end")
	if end.URL != "/home" {
		t.Errorf("end url = %q, want /home", end.URL)
	}

	if srv.Sessions().Len() != 1 {
		t.Errorf("sessions = %d, want 1", srv.Sessions().Len())
	}
}

func TestWebSocketRedirectFramesInOrder(t *testing.T) {
	_, ts := testServer(t, nil)
	conn := dialWS(t, ts)

	if err := conn.WriteJSON(NavigateFrame{Navigate: "/old"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	redirect := readUntil(t, conn, "redirect")
	if redirect.RedirectTo != "/home" {
		t.Errorf("redirectTo = %q, want /home", redirect.RedirectTo)
	}
	end := readUntil(t, conn, "end")
	if end.URL != "/home" {
		t.Errorf("end url = %q, want /home", end.URL)
	}
}

func TestSessionCap(t *testing.T) {
	srv, ts := testServer(t, &ServerConfig{MaxSessions: 1})

	first := dialWS(t, ts)
	if err := first.WriteJSON(NavigateFrame{Navigate: "/home"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	readUntil(t, first, "end")

	// The second connection is upgraded, then closed by the cap.
	second := dialWS(t, ts)
	second.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var frame EventFrame
		if err := second.ReadJSON(&frame); err != nil {
			break
		}
	}
	if srv.Sessions().Len() != 1 {
		t.Errorf("sessions = %d, want 1", srv.Sessions().Len())
	}
}

func TestMalformedFrameIgnored(t *testing.T) {
	_, ts := testServer(t, nil)
	conn := dialWS(t, ts)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	// The session survives and handles the next valid frame.
	if err := conn.WriteJSON(NavigateFrame{Navigate: "/home"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	readUntil(t, conn, "end")
}
