package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ruteri/reputation-registry/interfaces"
)

// Envelope is a sequenced event as stored in the log and delivered to subscribers.
type Envelope struct {
	Seq   uint64           `json:"seq"`
	Type  string           `json:"type"`
	Event interfaces.Event `json:"event"`
}

// Subscriber receives envelopes after they have been appended to the log.
type Subscriber interface {
	Deliver(ctx context.Context, env Envelope) error
}

// Log is an append-only event queue. It implements interfaces.EventSink:
// every emitted event gets the next sequence number, starting at 1 unless
// WithStartSeq says otherwise, and is then handed to each subscriber in
// registration order.
type Log struct {
	mu          sync.RWMutex
	entries     []Envelope
	lastSeq     uint64
	retain      int
	subscribers []Subscriber
}

// LogOption configures a Log.
type LogOption func(*Log)

// WithRetention keeps only the most recent n envelopes in memory. Sequence
// numbers keep growing regardless of retention.
func WithRetention(n int) LogOption {
	return func(l *Log) {
		l.retain = n
	}
}

// WithStartSeq resumes numbering after seq, so the first emitted event
// gets seq+1. Used after a restart to continue where the archives stopped.
func WithStartSeq(seq uint64) LogOption {
	return func(l *Log) {
		l.lastSeq = seq
	}
}

// WithSubscribers registers subscribers that receive every envelope.
func WithSubscribers(subs ...Subscriber) LogOption {
	return func(l *Log) {
		l.subscribers = append(l.subscribers, subs...)
	}
}

// NewLog creates an empty event log.
func NewLog(opts ...LogOption) *Log {
	l := &Log{}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Emit appends event and delivers it to every subscriber. The event is in
// the log even when a subscriber fails; subscriber errors are joined.
func (l *Log) Emit(ctx context.Context, event interfaces.Event) error {
	if event == nil {
		return errors.New("nil event")
	}

	l.mu.Lock()
	l.lastSeq++
	env := Envelope{Seq: l.lastSeq, Type: event.EventType(), Event: event}
	l.entries = append(l.entries, env)
	if l.retain > 0 && len(l.entries) > l.retain {
		l.entries = append([]Envelope(nil), l.entries[len(l.entries)-l.retain:]...)
	}
	subs := l.subscribers
	l.mu.Unlock()

	var errs []error
	for _, sub := range subs {
		if err := sub.Deliver(ctx, env); err != nil {
			errs = append(errs, fmt.Errorf("deliver seq %d: %w", env.Seq, err))
		}
	}
	return errors.Join(errs...)
}

// Since returns up to limit envelopes with a sequence number greater than
// seq, oldest first. A limit of zero or less returns all of them.
func (l *Log) Since(seq uint64, limit int) []Envelope {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var result []Envelope
	for _, env := range l.entries {
		if env.Seq <= seq {
			continue
		}
		result = append(result, env)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result
}

// LastSeq returns the sequence number of the most recent event, zero if none.
func (l *Log) LastSeq() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lastSeq
}

// Len returns the number of retained envelopes.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

var _ interfaces.EventSink = (*Log)(nil)
