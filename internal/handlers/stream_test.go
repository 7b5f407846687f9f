package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/wanyonyi-dev/risk-analysis-app/internal/datatypes"
	"github.com/wanyonyi-dev/risk-analysis-app/internal/probe"
	"github.com/wanyonyi-dev/risk-analysis-app/internal/scan"
	"github.com/wanyonyi-dev/risk-analysis-app/internal/store/badgerstore"
)

func newStreamServer(t *testing.T) (*httptest.Server, *badgerstore.Store, *scan.Orchestrator) {
	t.Helper()
	st, err := badgerstore.OpenInMemory()
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	orch := scan.New(st, probe.DefaultStaticProbe(), nil, nil, scan.Config{
		TickInterval: time.Hour,
		TickCount:    5,
	})
	t.Cleanup(orch.Stop)

	r := gin.New()
	r.GET("/v1/stream", HandleStream(st, orch))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, st, orch
}

func dialStream(t *testing.T, srv *httptest.Server, collection string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/stream?collection=" + collection
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

func readMessage(t *testing.T, ws *websocket.Conn) StreamMessage {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg StreamMessage
	if err := ws.ReadJSON(&msg); err != nil {
		t.Fatalf("read stream message: %v", err)
	}
	return msg
}

func TestStreamPushesCollectionEvents(t *testing.T) {
	srv, st, _ := newStreamServer(t)
	ws := dialStream(t, srv, datatypes.CollectionActivity)

	// Give the server a beat to register the subscription before writing.
	time.Sleep(50 * time.Millisecond)

	if _, err := st.Add(context.Background(), datatypes.CollectionActivity,
		map[string]any{"title": "Security scan"}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	msg := readMessage(t, ws)
	if msg.Collection != datatypes.CollectionActivity {
		t.Errorf("collection = %q, want activity", msg.Collection)
	}
	if msg.Fields["title"] != "Security scan" {
		t.Errorf("fields = %v, want title Security scan", msg.Fields)
	}
}

func TestStreamScanLifecycle(t *testing.T) {
	srv, _, orch := newStreamServer(t)
	ws := dialStream(t, srv, "scan")

	time.Sleep(50 * time.Millisecond)

	runID, err := orch.Start(context.Background())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	msg := readMessage(t, ws)
	if msg.Collection != "scan" || msg.Type != string(scan.EventStarted) {
		t.Errorf("message = %+v, want a scan started frame", msg)
	}
	if msg.Scan == nil || msg.Scan.RunID != runID {
		t.Errorf("scan payload = %+v, want run_id %s", msg.Scan, runID)
	}
}

func TestStreamRejectsUnknownCollection(t *testing.T) {
	srv, _, _ := newStreamServer(t)

	resp, err := http.Get(srv.URL + "/v1/stream?collection=bogus")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestStreamDefaultsToActivity(t *testing.T) {
	srv, st, _ := newStreamServer(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/stream"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial without collection: %v", err)
	}
	defer ws.Close()

	time.Sleep(50 * time.Millisecond)
	if _, err := st.Add(context.Background(), datatypes.CollectionActivity,
		map[string]any{"title": "default stream"}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	msg := readMessage(t, ws)
	if msg.Collection != datatypes.CollectionActivity {
		t.Errorf("collection = %q, want activity", msg.Collection)
	}
}
