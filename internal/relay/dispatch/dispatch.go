// Package dispatch pushes mutation events from the API process to the
// relay's HTTP ingress. Delivery is best effort: the relay being down must
// never fail a committed mutation, so every error ends at a log line.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/boardstream/project/internal/contracts"
)

type Dispatcher struct {
	URL    string
	Client *http.Client
	Log    *zap.Logger
}

func New(relayURL string, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		URL:    relayURL,
		Client: &http.Client{Timeout: 2 * time.Second},
		Log:    log,
	}
}

// Send posts one event to the relay. Failures are logged and swallowed.
func (d *Dispatcher) Send(ctx context.Context, event, boardID string, data any) {
	payload, err := json.Marshal(contracts.BroadcastRequest{
		Event:   event,
		BoardID: boardID,
		Data:    data,
	})
	if err != nil {
		d.Log.Warn("relay dispatch: marshal failed", zap.String("event", event), zap.Error(err))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.URL+"/broadcast", bytes.NewReader(payload))
	if err != nil {
		d.Log.Warn("relay dispatch: bad request", zap.String("event", event), zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.Client.Do(req)
	if err != nil {
		d.Log.Warn("relay unreachable", zap.String("event", event), zap.String("boardId", boardID), zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		d.Log.Warn("relay rejected event",
			zap.String("event", event),
			zap.String("boardId", boardID),
			zap.Int("status", resp.StatusCode))
	}
}
