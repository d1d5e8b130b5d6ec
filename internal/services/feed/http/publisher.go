package http

import (
	"encoding/json"

	"feedweave/internal/platform/logger"
	"feedweave/internal/services/feed/domain"
	"feedweave/internal/services/feed/stream"
)

// Publisher renders snapshots to JSON and fans them out through a hub
type Publisher struct {
	hub *stream.Hub
	log *logger.Logger
}

var _ domain.Publisher = (*Publisher)(nil)

// NewPublisher returns a publisher over hub
func NewPublisher(hub *stream.Hub, log *logger.Logger) *Publisher {
	if log == nil {
		log = logger.Nop()
	}
	return &Publisher{hub: hub, log: log}
}

// Publish broadcasts the rendered snapshot to the session's subscribers
func (p *Publisher) Publish(snap domain.Snapshot) {
	b, err := json.Marshal(Render(snap))
	if err != nil {
		p.log.Error().Err(err).Str("session_id", snap.SessionID).Msg("encode snapshot")
		return
	}
	p.hub.Broadcast(snap.SessionID, b)
}

// Close disconnects every subscriber of the session
func (p *Publisher) Close(sessionID string) { p.hub.CloseSession(sessionID) }
