package dispatch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"
)

// fakeDebugger accepts one DevTools websocket connection and answers
// Page.reload, optionally with an error payload.
func fakeDebugger(t *testing.T, fail bool) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.CloseNow()

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		var req cdpRequest
		if err := json.Unmarshal(data, &req); err != nil || req.Method != "Page.reload" {
			t.Errorf("unexpected request: %s", data)
			return
		}

		// Browsers interleave events with command results.
		conn.Write(ctx, websocket.MessageText, []byte(`{"method":"Page.frameStartedLoading","params":{}}`))

		resp := `{"id":1,"result":{}}`
		if fail {
			resp = `{"id":1,"error":{"code":-32000,"message":"target crashed"}}`
		}
		conn.Write(ctx, websocket.MessageText, []byte(resp))

		// Hold the connection until the client is done.
		conn.Read(ctx)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestPageReload(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := PageReload(ctx, fakeDebugger(t, false)); err != nil {
		t.Fatalf("PageReload: %v", err)
	}
}

func TestPageReloadSurfacesProtocolError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := PageReload(ctx, fakeDebugger(t, true))
	if err == nil || !strings.Contains(err.Error(), "target crashed") {
		t.Fatalf("want protocol error, got %v", err)
	}
}

func TestPageReloadDialFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := PageReload(ctx, "ws://127.0.0.1:1/devtools/page/X"); err == nil {
		t.Fatal("expected dial error")
	}
}
