package broker

import (
	"errors"
	"sync"
	"time"

	"github.com/dxlfabric/brokerd/pkg/log"
)

// ErrUnknownBroker names the condition of an operation naming a broker
// id the registry has never seen (or has already expired). The
// registry's own methods report that case through a nil or false result
// and do not return this error.
var ErrUnknownBroker = errors.New("broker: unknown broker id")

// Registry is the process-wide mapping of broker id to broker state: the
// system-of-record for fabric topology and per-peer subscriptions. It is
// safe for concurrent use; every exported method is guarded by an
// internal lock, realizing the single-threaded-owner model described for
// the underlying protocol as a mutex-serialized one instead, since an
// idiomatic Go service calls into the registry from more than one
// goroutine (the sync-protocol dispatch path, the TTL-sweep ticker, and
// admin-query handlers).
type Registry struct {
	mu       sync.RWMutex
	localID  string
	states   map[string]*State
	observers []Observer
}

// NewRegistry creates a registry already seeded with the local broker's
// own state, built from localDescriptor. The local broker's state is
// never removed by SweepExpired and its descriptor never comes from an
// incoming event.
func NewRegistry(localDescriptor Descriptor) *Registry {
	r := &Registry{
		localID: localDescriptor.ID,
		states:  make(map[string]*State),
	}
	r.states[localDescriptor.ID] = newState(localDescriptor)
	return r
}

// Observe registers fn to be invoked synchronously after every future
// mutation. Observers run in the order registered.
func (r *Registry) Observe(fn Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, fn)
}

// notify must be called with r.mu held for writing, and the lock stays
// held while observers run, so each observer sees the mutation inside
// the same critical section. An observer that calls back into the
// registry, even for a read, deadlocks.
func (r *Registry) notify(change Change) {
	observers := make([]Observer, len(r.observers))
	copy(observers, r.observers)
	for _, obs := range observers {
		obs(change)
	}
}

// LocalID returns the local broker's id.
func (r *Registry) LocalID() string {
	return r.localID
}

// Get returns the state for brokerID, or nil if unknown.
func (r *Registry) Get(brokerID string) *State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.states[brokerID]
}

// Remove deletes brokerID's state, notifying observers if it existed.
// The local broker's own state can never be removed this way.
func (r *Registry) Remove(brokerID string) {
	if brokerID == r.localID {
		return
	}
	r.mu.Lock()
	_, existed := r.states[brokerID]
	delete(r.states, brokerID)
	if existed {
		r.notify(Change{Kind: Removed, BrokerID: brokerID})
	}
	r.mu.Unlock()
}

// ForEach invokes fn for every known broker state. fn must not mutate
// the registry.
func (r *Registry) ForEach(fn func(brokerID string, s *State)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for id, s := range r.states {
		fn(id, s)
	}
}

// SnapshotAll returns the ids of every currently known broker.
func (r *Registry) SnapshotAll() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.states))
	for id := range r.states {
		ids = append(ids, id)
	}
	return ids
}

// Count returns the number of known brokers, local broker included.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.states)
}

// ApplyState upserts a peer's descriptor and connection sets from a
// received BrokerStateEvent. It reports whether the peer's subscriptions
// must now be considered stale and awaiting a fresh bulk transfer: true
// when the peer was previously unknown, or when its advertised
// start-time changed (a restart).
func (r *Registry) ApplyState(d Descriptor, connections, children map[string]struct{}) (needsResync bool) {
	if d.ID == r.localID {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	s, existed := r.states[d.ID]
	if !existed {
		s = newState(d)
		r.states[d.ID] = s
		s.setConnections(connections, children)
		s.updateRegistrationTime()
		r.notify(Change{Kind: Added, BrokerID: d.ID})
		return true
	}

	restarted := s.descriptor.StartTime != d.StartTime
	s.setDescriptor(d)
	s.setConnections(connections, children)
	s.updateRegistrationTime()

	if restarted {
		s.subscriptions.clear()
		s.pendingSubscriptions.clear()
		s.changeCount = 0
	}

	r.notify(Change{Kind: Updated, BrokerID: d.ID})
	return restarted
}

// BeginTopicsTransfer clears brokerID's pending-topics staging area, for
// the START of a bulk BrokerStateTopicsEvent transfer. Unknown brokers
// are logged and ignored.
func (r *Registry) BeginTopicsTransfer(brokerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.states[brokerID]
	if !ok {
		log.WithComponent("registry").Debug().Str("broker_id", brokerID).Msg("topics transfer start for unknown broker, ignoring")
		return
	}
	s.clearPendingTopics()
}

// AppendTopicsBatch stages topics into brokerID's pending set.
func (r *Registry) AppendTopicsBatch(brokerID string, topics []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.states[brokerID]
	if !ok {
		return
	}
	s.addPendingTopics(topics)
}

// EndTopicsTransfer atomically swaps brokerID's pending set into the
// active set, for the END of a bulk transfer, and notifies observers.
func (r *Registry) EndTopicsTransfer(brokerID string) {
	r.mu.Lock()
	s, ok := r.states[brokerID]
	if !ok {
		r.mu.Unlock()
		return
	}
	s.swapPendingTopics()
	r.notify(Change{Kind: TopicsChanged, BrokerID: brokerID})
	r.mu.Unlock()
}

// ApplyTopicDelta applies a single topic add/remove for brokerID,
// sourced from a TopicAdded/TopicRemoved event. The event is dropped as
// stale if startTime does not match the peer's currently known
// start-time, or if changeCount does not exceed the peer's current
// change-count. Reports whether the delta was applied.
func (r *Registry) ApplyTopicDelta(brokerID, topic string, add bool, startTime int64, changeCount uint64) bool {
	if brokerID == r.localID {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.states[brokerID]
	if !ok {
		return false
	}
	if s.descriptor.StartTime != startTime {
		return false
	}
	if changeCount <= s.changeCount {
		return false
	}

	var applied bool
	if add {
		applied = s.subscriptions.add(topic)
	} else {
		applied = s.subscriptions.remove(topic)
	}
	s.setChangeCount(changeCount)

	if applied {
		r.notify(Change{Kind: TopicsChanged, BrokerID: brokerID})
	}
	return applied
}

// MutateLocal runs fn against the local broker's own state under the
// registry lock and, if fn reports a change, notifies observers. This is
// the only way local-state mutations (connection changes, topic
// subscribe/unsubscribe) are applied, keeping every write path behind
// the same lock and notification point.
func (r *Registry) MutateLocal(fn func(s *State) (changed bool, kind ChangeKind)) {
	r.mu.Lock()
	s := r.states[r.localID]
	changed, kind := fn(s)
	if changed {
		r.notify(Change{Kind: kind, BrokerID: r.localID})
	}
	r.mu.Unlock()
}

// SubscribeLocal adds topic to the local broker's own subscription set,
// notifying observers if it was not already present.
func (r *Registry) SubscribeLocal(topic string) (added bool) {
	r.MutateLocal(func(s *State) (bool, ChangeKind) {
		added = s.addTopic(topic)
		return added, TopicsChanged
	})
	return added
}

// UnsubscribeLocal removes topic from the local broker's own subscription
// set, notifying observers if it was present.
func (r *Registry) UnsubscribeLocal(topic string) (removed bool) {
	r.MutateLocal(func(s *State) (bool, ChangeKind) {
		removed = s.removeTopic(topic)
		return removed, TopicsChanged
	})
	return removed
}

// AddLocalConnection records id as connected to the local broker,
// notifying observers. isChild marks it as a downstream bridge child.
func (r *Registry) AddLocalConnection(id string, isChild bool) {
	r.MutateLocal(func(s *State) (bool, ChangeKind) {
		s.addConnection(id, isChild)
		return true, Updated
	})
}

// RemoveLocalConnection decrements id's connection count on the local
// broker. It reports true, and notifies observers, only when the count
// reaches zero and id leaves the visible connection set.
func (r *Registry) RemoveLocalConnection(id string) (removed bool) {
	r.MutateLocal(func(s *State) (bool, ChangeKind) {
		removed = s.removeConnection(id)
		return removed, Updated
	})
	return removed
}

// SweepExpired removes every non-local state whose TTL has lapsed as of
// now, notifying observers for each one removed, and returns their ids.
func (r *Registry) SweepExpired(now time.Time) []string {
	r.mu.Lock()
	var expired []string
	for id, s := range r.states {
		if id == r.localID {
			continue
		}
		if s.IsExpired(now) {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		delete(r.states, id)
	}
	for _, id := range expired {
		r.notify(Change{Kind: Removed, BrokerID: id})
	}
	r.mu.Unlock()
	return expired
}
