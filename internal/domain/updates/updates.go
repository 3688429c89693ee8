// Package updates delivers background run outcomes per project. Each project has a bounded queue of
// pending updates and any number of live subscribers; entries expire after a TTL, checked whenever
// the broker is accessed.
package updates

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"brainstorm-api/internal/domain/capability"
	"brainstorm-api/internal/domain/project"
	"brainstorm-api/internal/domain/reconcile"
)

// Event names the kind of update.
type Event string

const (
	EventRunCompleted Event = "run.completed"
	EventRunFailed    Event = "run.failed"
)

// Update is the published outcome of one background run.
type Update struct {
	ID        string                `json:"id"`
	ProjectID string                `json:"projectId"`
	RunID     string                `json:"runId"`
	Event     Event                 `json:"event"`
	Intent    string                `json:"intent,omitempty"`
	Accepted  []project.Item        `json:"accepted,omitempty"`
	Rejected  []reconcile.Rejection `json:"rejected,omitempty"`
	Results   []capability.Result   `json:"results,omitempty"`
	Error     string                `json:"error,omitempty"`
	CreatedAt time.Time             `json:"createdAt"`
}

// Publisher publishes updates.
type Publisher interface {
	Publish(ctx context.Context, u Update)
}

const (
	DefaultBufferSize = 32
	DefaultTTL        = 10 * time.Minute
)

type projectQueue struct {
	pending     []Update
	subscribers map[uint64]chan Update
}

// Broker is an in-process Publisher with per-project queues.
type Broker struct {
	mu         sync.Mutex
	projects   map[string]*projectQueue
	nextSubID  uint64
	bufferSize int
	ttl        time.Duration
	now        func() time.Time
	log        zerolog.Logger
}

// NewBroker creates a broker. Non-positive values use the defaults.
func NewBroker(bufferSize int, ttl time.Duration, log zerolog.Logger) *Broker {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Broker{
		projects:   make(map[string]*projectQueue),
		bufferSize: bufferSize,
		ttl:        ttl,
		now:        time.Now,
		log:        log.With().Str("component", "updates-broker").Logger(),
	}
}

// SetClock overrides the time source. Tests only.
func (b *Broker) SetClock(now func() time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = now
}

// Publish delivers u to live subscribers, or queues it for polling when none took it. The oldest
// pending update is dropped when the queue is full; a subscriber that is not keeping up misses the
// update.
func (b *Broker) Publish(_ context.Context, u Update) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if u.ID == "" {
		u.ID = "upd_" + uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = b.now()
	}
	b.expireLocked()

	q := b.queueLocked(u.ProjectID)
	delivered := false
	for id, ch := range q.subscribers {
		select {
		case ch <- u:
			delivered = true
		default:
			b.log.Warn().Str("project_id", u.ProjectID).Uint64("subscriber", id).Msg("subscriber buffer full, update dropped")
		}
	}
	if delivered {
		return
	}

	q.pending = append(q.pending, u)
	if over := len(q.pending) - b.bufferSize; over > 0 {
		q.pending = append([]Update(nil), q.pending[over:]...)
	}
}

// Drain returns and removes the pending updates of a project.
func (b *Broker) Drain(projectID string) []Update {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.expireLocked()
	q, ok := b.projects[projectID]
	if !ok || len(q.pending) == 0 {
		return []Update{}
	}
	out := q.pending
	q.pending = nil
	b.dropIfIdleLocked(projectID, q)
	return out
}

// Subscription is a live feed of a project's updates.
type Subscription struct {
	C     <-chan Update
	close func()
	once  sync.Once
}

// Close stops delivery and closes C.
func (s *Subscription) Close() {
	s.once.Do(s.close)
}

// Subscribe opens a live feed. Pending updates are moved into the feed first.
func (b *Broker) Subscribe(projectID string) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.expireLocked()
	q := b.queueLocked(projectID)
	ch := make(chan Update, b.bufferSize)
	for _, u := range q.pending {
		ch <- u
	}
	q.pending = nil

	b.nextSubID++
	id := b.nextSubID
	q.subscribers[id] = ch

	return &Subscription{
		C: ch,
		close: func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if q, ok := b.projects[projectID]; ok {
				if _, ok := q.subscribers[id]; ok {
					delete(q.subscribers, id)
					close(ch)
				}
				b.dropIfIdleLocked(projectID, q)
			}
		},
	}
}

// Projects returns how many projects currently hold pending updates or subscribers.
func (b *Broker) Projects() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.expireLocked()
	return len(b.projects)
}

func (b *Broker) queueLocked(projectID string) *projectQueue {
	q, ok := b.projects[projectID]
	if !ok {
		q = &projectQueue{subscribers: make(map[uint64]chan Update)}
		b.projects[projectID] = q
	}
	return q
}

func (b *Broker) expireLocked() {
	cutoff := b.now().Add(-b.ttl)
	for id, q := range b.projects {
		kept := q.pending[:0]
		for _, u := range q.pending {
			if u.CreatedAt.After(cutoff) {
				kept = append(kept, u)
			}
		}
		q.pending = kept
		b.dropIfIdleLocked(id, q)
	}
}

func (b *Broker) dropIfIdleLocked(projectID string, q *projectQueue) {
	if len(q.pending) == 0 && len(q.subscribers) == 0 {
		delete(b.projects, projectID)
	}
}
