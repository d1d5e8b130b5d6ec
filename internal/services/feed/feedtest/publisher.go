package feedtest

import (
	"sync"

	"feedweave/internal/services/feed/domain"
)

// Publisher records published snapshots
type Publisher struct {
	mu     sync.Mutex
	snaps  []domain.Snapshot
	closed []string
}

var _ domain.Publisher = (*Publisher)(nil)

// Publish records snap
func (p *Publisher) Publish(snap domain.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snaps = append(p.snaps, snap)
}

// Close records the session id
func (p *Publisher) Close(sessionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = append(p.closed, sessionID)
}

// Count returns how many snapshots were published
func (p *Publisher) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.snaps)
}

// Last returns the latest snapshot
func (p *Publisher) Last() (domain.Snapshot, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.snaps) == 0 {
		return domain.Snapshot{}, false
	}
	return p.snaps[len(p.snaps)-1], true
}

// Closed lists the closed session ids
func (p *Publisher) Closed() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.closed...)
}
