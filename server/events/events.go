package events

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/lazharichir/elevens/events"
	"github.com/lazharichir/elevens/server/connection"
)

// EventEnvelope wraps an event with its name for client consumption
type EventEnvelope struct {
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload"`
}

// Encode builds the envelope bytes for any JSON payload.
func Encode(name string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(EventEnvelope{Name: name, Payload: raw})
}

// Dispatcher handles routing events to clients
type Dispatcher struct {
	connMgr *connection.Manager
	log     *zap.SugaredLogger
}

// NewDispatcher creates a new event dispatcher
func NewDispatcher(connMgr *connection.Manager, log *zap.SugaredLogger) *Dispatcher {
	return &Dispatcher{
		connMgr: connMgr,
		log:     log,
	}
}

// HandleEvent sends a game event to every client watching that game
func (d *Dispatcher) HandleEvent(event events.Event) {
	gameID := events.GetGameID(event)
	if gameID == "" {
		d.log.Warnw("event without game ID", "event", event.EventName())
		return
	}

	data, err := Encode(event.EventName(), event)
	if err != nil {
		d.log.Errorw("failed to marshal event", "event", event.EventName(), "error", err)
		return
	}

	sent := d.connMgr.SendToGame(gameID, data)
	d.log.Debugw("dispatched event", "event", event.EventName(), "gameID", gameID, "clients", sent)
}
