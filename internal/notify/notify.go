// Package notify turns realtime events into short-lived notifications.
package notify

import (
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/Semkufu95/confessions/internal/model"
	"github.com/Semkufu95/confessions/internal/realtime"
)

const (
	DefaultMax = 4
	DefaultTTL = 6 * time.Second

	maxMessageLength = 120
)

// Build describes ev for display. ok is false for channels that have no
// notification.
func Build(ev realtime.Event) (n model.Notification, ok bool) {
	snippet := Shorten(ev.Content(), maxMessageLength)
	pick := func(fallback string) string {
		if snippet != "" {
			return snippet
		}
		return fallback
	}

	switch ev.Channel {
	case realtime.ConfessionCreated:
		n = model.Notification{Title: "New confession", Message: pick("A new confession was posted."), Variant: model.VariantSuccess}
	case realtime.ConfessionUpdated:
		n = model.Notification{Title: "Confession updated", Message: pick("A confession was edited."), Variant: model.VariantInfo}
	case realtime.ConfessionDeleted:
		n = model.Notification{Title: "Confession removed", Message: "A confession was deleted.", Variant: model.VariantWarning}
	case realtime.CommentCreated:
		n = model.Notification{Title: "New comment", Message: pick("Someone commented on a confession."), Variant: model.VariantSuccess}
	case realtime.CommentUpdated:
		n = model.Notification{Title: "Comment updated", Message: pick("A comment was edited."), Variant: model.VariantInfo}
	case realtime.CommentDeleted:
		n = model.Notification{Title: "Comment removed", Message: "A comment was deleted.", Variant: model.VariantWarning}
	case realtime.ConfessionStarred:
		n = model.Notification{Title: "Confession starred", Message: "A confession just received a star.", Variant: model.VariantInfo}
	case realtime.ReactionUpdated:
		n = model.Notification{Title: "New reaction", Message: "Someone reacted to a confession or comment.", Variant: model.VariantInfo}
	case realtime.ReactionRemoved:
		n = model.Notification{Title: "Reaction removed", Message: "A reaction was removed.", Variant: model.VariantInfo}
	default:
		return model.Notification{}, false
	}
	return n, true
}

// Shorten collapses runs of whitespace and cuts s to limit-1 runes plus
// "..." when it is longer than limit.
func Shorten(s string, limit int) string {
	compact := strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(compact) <= limit {
		return compact
	}
	runes := []rune(compact)
	return string(runes[:limit-1]) + "..."
}

// Queue is a bounded, newest-first list of notifications that expire on
// their own.
type Queue struct {
	limit int
	ttl   time.Duration

	mu       sync.Mutex
	items    []model.Notification
	timers   map[string]*time.Timer
	closed   bool
	onChange func([]model.Notification)
}

type QueueOption func(*Queue)

// OnChange is called with a snapshot after every push, dismissal or expiry.
// It runs outside the queue lock.
func OnChange(fn func([]model.Notification)) QueueOption {
	return func(q *Queue) { q.onChange = fn }
}

// NewQueue returns a queue holding at most limit entries, each removed
// after ttl. Non-positive values select the defaults.
func NewQueue(limit int, ttl time.Duration, opts ...QueueOption) *Queue {
	if limit <= 0 {
		limit = DefaultMax
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	q := &Queue{limit: limit, ttl: ttl, timers: make(map[string]*time.Timer)}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Push prepends n with a fresh id and returns it. Entries past the cap are
// evicted oldest first.
func (q *Queue) Push(n model.Notification) model.Notification {
	n.ID = uuid.NewString()

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return n
	}
	q.items = append([]model.Notification{n}, q.items...)
	for len(q.items) > q.limit {
		evicted := q.items[len(q.items)-1]
		q.items = q.items[:len(q.items)-1]
		q.stopLocked(evicted.ID)
	}
	id := n.ID
	q.timers[id] = time.AfterFunc(q.ttl, func() { q.Dismiss(id) })
	snap := q.snapshotLocked()
	q.mu.Unlock()

	q.notify(snap)
	return n
}

// Dismiss removes the notification and cancels its timer. Unknown ids are
// ignored.
func (q *Queue) Dismiss(id string) {
	q.mu.Lock()
	q.stopLocked(id)
	idx := -1
	for i, item := range q.items {
		if item.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		q.mu.Unlock()
		return
	}
	q.items = append(q.items[:idx], q.items[idx+1:]...)
	snap := q.snapshotLocked()
	q.mu.Unlock()

	q.notify(snap)
}

// Items returns the current notifications, newest first.
func (q *Queue) Items() []model.Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.snapshotLocked()
}

// Close cancels every pending timer. Later pushes are ignored.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	for id := range q.timers {
		q.stopLocked(id)
	}
}

func (q *Queue) stopLocked(id string) {
	if t, ok := q.timers[id]; ok {
		t.Stop()
		delete(q.timers, id)
	}
}

func (q *Queue) snapshotLocked() []model.Notification {
	return append([]model.Notification(nil), q.items...)
}

func (q *Queue) notify(snap []model.Notification) {
	if q.onChange != nil {
		q.onChange(snap)
	}
}

// Policy decides which events become notifications.
type Policy struct {
	queue   *Queue
	allowed map[string]bool
}

func NewPolicy(q *Queue, channels []string) *Policy {
	p := &Policy{queue: q, allowed: make(map[string]bool, len(channels))}
	for _, c := range channels {
		p.allowed[c] = true
	}
	return p
}

func (p *Policy) Allowed(channel string) bool {
	return p.allowed[channel]
}

// Handle pushes a notification for ev when its channel is allow-listed and
// reports whether it did.
func (p *Policy) Handle(ev realtime.Event) bool {
	if !p.allowed[ev.Channel] {
		return false
	}
	n, ok := Build(ev)
	if !ok {
		return false
	}
	p.queue.Push(n)
	return true
}
