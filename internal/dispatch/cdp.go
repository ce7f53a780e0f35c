package dispatch

import (
	"context"
	"encoding/json"
	"fmt"

	"nhooyr.io/websocket"
)

// cdpTier reloads a tab over the DevTools protocol: resolve the target's
// current debugger websocket, send Page.reload, wait for the ack.
func (d *Dispatcher) cdpTier() Tier {
	return Tier{
		Name: "devtools-reload",
		Run: func(ctx context.Context, t Target) error {
			target, ok := d.cdp.Resolve(t.ID)
			if !ok {
				return fmt.Errorf("devtools target for %s not found", t.ID)
			}
			if target.WebSocketDebuggerURL == "" {
				return fmt.Errorf("target %s has no debugger URL (already attached?)", target.ID)
			}
			return PageReload(ctx, target.WebSocketDebuggerURL)
		},
	}
}

type cdpRequest struct {
	ID     int    `json:"id"`
	Method string `json:"method"`
}

type cdpResponse struct {
	ID    int             `json:"id"`
	Error json.RawMessage `json:"error,omitempty"`
}

// PageReload dials a page's debugger websocket and issues Page.reload.
func PageReload(ctx context.Context, wsURL string) error {
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("devtools dial: %w", err)
	}
	defer conn.CloseNow()

	req, err := json.Marshal(cdpRequest{ID: 1, Method: "Page.reload"})
	if err != nil {
		return err
	}
	if err := conn.Write(ctx, websocket.MessageText, req); err != nil {
		return fmt.Errorf("devtools send: %w", err)
	}

	// Events may arrive before the command result; wait for our id.
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return fmt.Errorf("devtools read: %w", err)
		}
		var resp cdpResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			continue
		}
		if resp.ID != 1 {
			continue
		}
		if len(resp.Error) > 0 {
			return fmt.Errorf("devtools reload: %s", resp.Error)
		}
		conn.Close(websocket.StatusNormalClosure, "")
		return nil
	}
}
