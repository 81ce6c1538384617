// Package topic fans server events out to sessions grouped by topic name.
//
// Every attached session is implicitly subscribed to a topic named after its own id,
// so a direct send and a room broadcast take the same path.
package topic

import (
	"context"
	"sync"

	"github.com/park285/chess-relay/pkg/relaydto"
)

// Sink receives events for one attached session. Deliver must not block.
type Sink interface {
	Deliver(ev relaydto.Event)
}

type Bus interface {
	Attach(id string, sink Sink)
	Detach(id string)
	Subscribe(topic, id string)
	Unsubscribe(topic, id string)
	// Publish delivers ev to every subscriber of topic except the id in except.
	Publish(ctx context.Context, topic string, ev relaydto.Event, except string)
}

// LocalBus is an in-process Bus.
type LocalBus struct {
	mu      sync.RWMutex
	sinks   map[string]Sink
	members map[string]map[string]struct{} // topic -> ids
	topics  map[string]map[string]struct{} // id -> topics
}

func NewLocalBus() *LocalBus {
	return &LocalBus{
		sinks:   make(map[string]Sink),
		members: make(map[string]map[string]struct{}),
		topics:  make(map[string]map[string]struct{}),
	}
}

func (b *LocalBus) Attach(id string, sink Sink) {
	b.mu.Lock()
	b.sinks[id] = sink
	b.subscribeLocked(id, id)
	b.mu.Unlock()
}

// Detach drops the sink and every subscription held by id.
func (b *LocalBus) Detach(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.sinks, id)
	for t := range b.topics[id] {
		b.removeMemberLocked(t, id)
	}
	delete(b.topics, id)
}

func (b *LocalBus) Subscribe(topic, id string) {
	b.mu.Lock()
	b.subscribeLocked(topic, id)
	b.mu.Unlock()
}

func (b *LocalBus) Unsubscribe(topic, id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removeMemberLocked(topic, id)
	if ts, ok := b.topics[id]; ok {
		delete(ts, topic)
		if len(ts) == 0 {
			delete(b.topics, id)
		}
	}
}

func (b *LocalBus) Publish(_ context.Context, topic string, ev relaydto.Event, except string) {
	b.mu.RLock()
	targets := make([]Sink, 0, len(b.members[topic]))
	for id := range b.members[topic] {
		if id == except {
			continue
		}
		if s, ok := b.sinks[id]; ok && s != nil {
			targets = append(targets, s)
		}
	}
	b.mu.RUnlock()
	for _, s := range targets {
		s.Deliver(ev)
	}
}

// Members returns the number of subscribers of topic.
func (b *LocalBus) Members(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.members[topic])
}

func (b *LocalBus) subscribeLocked(topic, id string) {
	m, ok := b.members[topic]
	if !ok {
		m = make(map[string]struct{})
		b.members[topic] = m
	}
	m[id] = struct{}{}
	ts, ok := b.topics[id]
	if !ok {
		ts = make(map[string]struct{})
		b.topics[id] = ts
	}
	ts[topic] = struct{}{}
}

func (b *LocalBus) removeMemberLocked(topic, id string) {
	m, ok := b.members[topic]
	if !ok {
		return
	}
	delete(m, id)
	if len(m) == 0 {
		delete(b.members, topic)
	}
}
