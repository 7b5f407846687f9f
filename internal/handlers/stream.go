package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/wanyonyi-dev/risk-analysis-app/internal/datatypes"
	"github.com/wanyonyi-dev/risk-analysis-app/internal/observability"
	"github.com/wanyonyi-dev/risk-analysis-app/internal/scan"
	"github.com/wanyonyi-dev/risk-analysis-app/internal/store"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// streamBuffer sizes the per-client event buffer. A full scan run is
// tickCount+1 writes per collection, so this absorbs several runs.
const streamBuffer = 64

// streamableCollections are the collections a client may subscribe to,
// plus the "scan" pseudo-collection carrying orchestrator lifecycle events.
var streamableCollections = map[string]bool{
	datatypes.CollectionMetrics:         true,
	datatypes.CollectionThreats:         true,
	datatypes.CollectionScans:           true,
	datatypes.CollectionActivity:        true,
	datatypes.CollectionRecommendations: true,
	"scan":                              true,
}

// StreamMessage is one push frame sent to a WebSocket client.
type StreamMessage struct {
	Collection string         `json:"collection"`
	Type       string         `json:"type"`
	Path       string         `json:"path,omitempty"`
	Fields     map[string]any `json:"fields,omitempty"`
	Scan       *scan.Event    `json:"scan,omitempty"`
}

func sendJSON(ws *websocket.Conn, v any) error {
	err := ws.WriteJSON(v)
	if err != nil {
		slog.Warn("failed to write WebSocket JSON", "error", err)
	}
	return err
}

// HandleStream upgrades the connection and pushes change events for one
// collection (?collection=...) until the client disconnects. The UI opens
// one stream per dashboard panel, which is why ordering is only guaranteed
// within a collection: panels may observe related writes out of sync.
func HandleStream(st store.Store, orch *scan.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		collection := c.DefaultQuery("collection", datatypes.CollectionActivity)
		if !streamableCollections[collection] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown collection"})
			return
		}

		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Error("failed to upgrade the websocket", "error", err)
			return
		}
		defer ws.Close()
		slog.Info("stream client connected", "collection", collection)

		if m := observability.DefaultMetrics; m != nil {
			m.StreamClients.Inc()
			defer m.StreamClients.Dec()
		}

		// Read loop only watches for client close.
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := ws.ReadMessage(); err != nil {
					return
				}
			}
		}()

		if collection == "scan" {
			events, cancel := orch.Events()
			defer cancel()
			for {
				select {
				case <-done:
					slog.Info("stream client disconnected", "collection", collection)
					return
				case ev, ok := <-events:
					if !ok {
						return
					}
					if sendJSON(ws, StreamMessage{Collection: "scan", Type: string(ev.Type), Scan: &ev}) != nil {
						return
					}
				}
			}
		}

		events, cancel := st.Subscribe(collection, streamBuffer)
		defer cancel()
		for {
			select {
			case <-done:
				slog.Info("stream client disconnected", "collection", collection)
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				msg := StreamMessage{
					Collection: ev.Collection,
					Type:       string(ev.Type),
					Path:       ev.Path,
					Fields:     ev.Fields,
				}
				if sendJSON(ws, msg) != nil {
					return
				}
			}
		}
	}
}
