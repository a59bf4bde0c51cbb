package live

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cellgraph-dev/cellgraph/pkg/cell"
	"github.com/cellgraph-dev/cellgraph/pkg/store"
)

func newTestServer(t *testing.T) (*Server, *cell.Source[int], *store.Store) {
	t.Helper()

	st := store.New()
	count := cell.NewSource(8)
	doubled := cell.Map[int, int](count, func(n int) int { return n * 2 })

	if err := store.RegisterSource(st, "count", count); err != nil {
		t.Fatal(err)
	}
	if err := store.Register[int](st, "doubled", doubled); err != nil {
		t.Fatal(err)
	}

	return New(st, nil), count, st
}

func TestHandleSnapshot(t *testing.T) {
	s, _, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/cells", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var snap map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap["count"].(float64) != 8 {
		t.Errorf("expected count 8, got %v", snap["count"])
	}
	if snap["doubled"].(float64) != 16 {
		t.Errorf("expected doubled 16, got %v", snap["doubled"])
	}
}

func TestHandleGetCell(t *testing.T) {
	s, _, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/cells/doubled", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var frame changeFrame
	if err := json.Unmarshal(rec.Body.Bytes(), &frame); err != nil {
		t.Fatal(err)
	}
	if frame.Name != "doubled" || frame.Value.(float64) != 16 {
		t.Errorf("unexpected frame: %+v", frame)
	}
}

func TestHandleGetCellNotFound(t *testing.T) {
	s, _, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/cells/missing", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rec.Code)
	}
}

func TestHandleSetCell(t *testing.T) {
	s, count, _ := newTestServer(t)

	req := httptest.NewRequest("POST", "/cells/count", strings.NewReader("12"))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if count.Get() != 12 {
		t.Errorf("expected source updated to 12, got %d", count.Get())
	}

	var frame changeFrame
	if err := json.Unmarshal(rec.Body.Bytes(), &frame); err != nil {
		t.Fatal(err)
	}
	if frame.Value.(float64) != 12 {
		t.Errorf("expected echoed value 12, got %v", frame.Value)
	}
}

func TestHandleSetCellErrors(t *testing.T) {
	s, _, _ := newTestServer(t)

	cases := []struct {
		name   string
		target string
		body   string
		status int
	}{
		{"invalid JSON", "/cells/count", "{not json", http.StatusBadRequest},
		{"wrong type", "/cells/count", `"nope"`, http.StatusBadRequest},
		{"read-only", "/cells/doubled", "5", http.StatusConflict},
		{"unknown", "/cells/missing", "5", http.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", tc.target, strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, req)

			if rec.Code != tc.status {
				t.Errorf("expected status %d, got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestHandleHealth(t *testing.T) {
	s, _, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
}

func TestLiveWebSocket(t *testing.T) {
	s, count, _ := newTestServer(t)

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/live"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	readFrame := func() changeFrame {
		t.Helper()
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, payload, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var frame changeFrame
		if err := json.Unmarshal(payload, &frame); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return frame
	}

	// Initial snapshot: one frame per cell, in name order
	initial := map[string]any{}
	for i := 0; i < 2; i++ {
		frame := readFrame()
		initial[frame.Name] = frame.Value
	}
	if initial["count"].(float64) != 8 || initial["doubled"].(float64) != 16 {
		t.Errorf("unexpected initial frames: %v", initial)
	}

	// A change streams one frame per affected cell
	count.Set(10)

	got := map[string]any{}
	for i := 0; i < 2; i++ {
		frame := readFrame()
		got[frame.Name] = frame.Value
	}
	if got["count"].(float64) != 10 {
		t.Errorf("expected count frame with 10, got %v", got)
	}
	if got["doubled"].(float64) != 20 {
		t.Errorf("expected doubled frame with 20, got %v", got)
	}
}
