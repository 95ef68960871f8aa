package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/lobby-server/internal/config"
	"github.com/vovakirdan/lobby-server/internal/core"
	"github.com/vovakirdan/lobby-server/internal/proto"
	"github.com/vovakirdan/lobby-server/internal/store/sqlite"
)

type testEnv struct {
	server *httptest.Server
	hub    *core.Hub
	store  *sqlite.SQLiteStore
}

// startTestServer runs the full router over an in-memory SQLite store.
func startTestServer(t *testing.T, tweak func(*config.Config)) *testEnv {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	cfg := config.Default()
	cfg.Addr = ":0"
	if tweak != nil {
		tweak(&cfg)
	}

	logger := zerolog.Nop()
	hub := core.NewHub(st, st, core.Options{
		JoinAttempts:      cfg.JoinAttempts,
		MaxUsernameLength: cfg.MaxUsernameLength,
		MaxContentLength:  cfg.MaxContentLength,
		StoreTimeout:      time.Second,
	}, &logger)

	ts := httptest.NewServer(NewRouter(hub, st, cfg, &logger))
	t.Cleanup(ts.Close)

	return &testEnv{server: ts, hub: hub, store: st}
}

func (e *testEnv) dial(t *testing.T, ctx context.Context) *websocket.Conn {
	t.Helper()

	wsURL := strings.Replace(e.server.URL, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

type testOutbound struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func send(t *testing.T, ctx context.Context, conn *websocket.Conn, typ string, data any) {
	t.Helper()

	payload, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal %s payload: %v", typ, err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload}); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

// readEvent reads until an event with the given name arrives.
func readEvent(t *testing.T, ctx context.Context, conn *websocket.Conn, name string, into any) {
	t.Helper()

	for {
		var out testOutbound
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			t.Fatalf("waiting for %s: %v", name, err)
		}
		if out.Type != proto.OutboundTypeEvent || out.Event != name {
			continue
		}
		if into != nil {
			if err := json.Unmarshal(out.Data, into); err != nil {
				t.Fatalf("unmarshal %s: %v", name, err)
			}
		}
		return
	}
}

// readError reads until an error envelope arrives.
func readError(t *testing.T, ctx context.Context, conn *websocket.Conn) *proto.Error {
	t.Helper()

	for {
		var out testOutbound
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			t.Fatalf("waiting for error: %v", err)
		}
		if out.Type == proto.OutboundTypeError && out.Error != nil {
			return out.Error
		}
	}
}
