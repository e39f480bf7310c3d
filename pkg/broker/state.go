package broker

import "time"

// TopicBatch is one chunk of a bulk topic transfer, as handed to a
// State.BatchTopics callback.
type TopicBatch struct {
	Index   int
	Topics  []string
	IsFirst bool
	IsLast  bool
}

// State is one broker's known descriptor, connections and subscriptions.
// Only the owning Registry may install a new descriptor or drive the
// pending-topics swap; mutation methods below are unexported so that
// visibility is enforced at the package boundary the way the original
// registry's friend-class access was enforced at compile time.
type State struct {
	descriptor Descriptor

	// countedConnections counts announcements per peer id so a duplicate
	// bridge-up announcement and an out-of-order bridge-down teardown
	// never drop a connection that is still live from another path.
	countedConnections map[string]uint32
	childConnections   map[string]struct{}

	subscriptions        *subscriptionSet
	pendingSubscriptions *subscriptionSet

	changeCount      uint64
	registrationTime int64
}

// newState constructs an empty state for descriptor.
func newState(descriptor Descriptor) *State {
	return &State{
		descriptor:           descriptor,
		countedConnections:   make(map[string]uint32),
		childConnections:     make(map[string]struct{}),
		subscriptions:        newSubscriptionSet(),
		pendingSubscriptions: newSubscriptionSet(),
		registrationTime:     time.Now().Unix(),
	}
}

// Descriptor returns the state's current descriptor.
func (s *State) Descriptor() Descriptor {
	return s.descriptor
}

// ChangeCount returns the subscription change-count, the protocol's
// logical clock for this peer.
func (s *State) ChangeCount() uint64 {
	return s.changeCount
}

// RegistrationTime returns the last time this state was refreshed, as a
// Unix timestamp in seconds.
func (s *State) RegistrationTime() int64 {
	return s.registrationTime
}

// IsExpired reports whether the state has not been refreshed within its
// descriptor's advertised TTL. A descriptor advertising TTLMinutes=0
// expires on the next sweep once registrationTime is in the past,
// matching the formula literally rather than treating 0 as "never
// expires" — a peer that wants to disable expiry must advertise a very
// large TTL, not zero.
func (s *State) IsExpired(now time.Time) bool {
	ttl := int64(s.descriptor.TTLMinutes) * 60
	return now.Unix()-s.registrationTime > ttl
}

// setDescriptor installs a new descriptor, reporting whether any field
// changed.
func (s *State) setDescriptor(d Descriptor) bool {
	changed := !s.descriptor.Equal(d)
	s.descriptor = d
	return changed
}

// updateRegistrationTime refreshes the liveness timestamp to now.
func (s *State) updateRegistrationTime() {
	s.registrationTime = time.Now().Unix()
}

// HasConnection reports whether id is currently a bridged peer.
func (s *State) HasConnection(id string) bool {
	return s.countedConnections[id] > 0
}

// HasChildConnection reports whether id is a bridged child.
func (s *State) HasChildConnection(id string) bool {
	_, ok := s.childConnections[id]
	return ok
}

// Connections returns a snapshot of the visible (counted > 0) connection
// set.
func (s *State) Connections() map[string]struct{} {
	out := make(map[string]struct{}, len(s.countedConnections))
	for id, count := range s.countedConnections {
		if count > 0 {
			out[id] = struct{}{}
		}
	}
	return out
}

// ChildConnections returns a snapshot of the child-connection set.
func (s *State) ChildConnections() map[string]struct{} {
	out := make(map[string]struct{}, len(s.childConnections))
	for id := range s.childConnections {
		out[id] = struct{}{}
	}
	return out
}

func (s *State) forEachConnection(fn func(id string)) {
	for id, count := range s.countedConnections {
		if count > 0 {
			fn(id)
		}
	}
}

// addConnection increments the counted-connection for id, returning
// whether the visible connection set changed (i.e. id was not already
// visibly connected).
func (s *State) addConnection(id string, isChild bool) bool {
	_, wasVisible := s.countedConnections[id]
	changed := !wasVisible || s.countedConnections[id] == 0
	s.countedConnections[id]++
	if isChild {
		s.childConnections[id] = struct{}{}
	}
	return changed
}

// removeConnection decrements the counted-connection for id; when the
// count reaches zero the entry is removed from both the counted and
// child sets.
func (s *State) removeConnection(id string) bool {
	count, ok := s.countedConnections[id]
	if !ok || count == 0 {
		return false
	}
	count--
	if count == 0 {
		delete(s.countedConnections, id)
		delete(s.childConnections, id)
		return true
	}
	s.countedConnections[id] = count
	return false
}

// setConnections bulk-replaces the connection and child-connection sets,
// resetting each new entry's count to 1. Returns whether the effective
// visible sets changed.
func (s *State) setConnections(connections, children map[string]struct{}) bool {
	changed := !sameKeys(s.Connections(), connections) || !sameKeys(s.childConnections, children)

	s.countedConnections = make(map[string]uint32, len(connections))
	for id := range connections {
		s.countedConnections[id] = 1
	}

	s.childConnections = make(map[string]struct{}, len(children))
	for id := range children {
		s.childConnections[id] = struct{}{}
	}
	return changed
}

func sameKeys(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

// HasTopic reports whether topic is actively subscribed.
func (s *State) HasTopic(topic string) bool {
	return s.subscriptions.contains(topic)
}

// HasTopics reports whether every topic in topics is actively subscribed.
func (s *State) HasTopics(topics []string) bool {
	for _, t := range topics {
		if !s.subscriptions.contains(t) {
			return false
		}
	}
	return true
}

// TopicCount returns the number of actively subscribed topics.
func (s *State) TopicCount() int {
	return s.subscriptions.size()
}

// TopicWildcardCount returns how many of the active subscriptions are
// wildcard topics.
func (s *State) TopicWildcardCount() int {
	return s.subscriptions.wildcardCount
}

func (s *State) forEachTopic(fn func(topic string)) {
	s.subscriptions.forEach(fn)
}

// addTopic adds topic to the active set; a successful add advances the
// change-count.
func (s *State) addTopic(topic string) bool {
	added := s.subscriptions.add(topic)
	if added {
		s.changeCount++
	}
	return added
}

// removeTopic removes topic from the active set; a successful remove
// advances the change-count.
func (s *State) removeTopic(topic string) bool {
	removed := s.subscriptions.remove(topic)
	if removed {
		s.changeCount++
	}
	return removed
}

// setChangeCount forcibly sets the change-count, used when applying a
// delta event that carries the sender's authoritative post-mutation
// count.
func (s *State) setChangeCount(n uint64) {
	s.changeCount = n
}

// clearPendingTopics discards any partially-accumulated pending set,
// called when a bulk transfer begins (on the START flag).
func (s *State) clearPendingTopics() {
	s.pendingSubscriptions.clear()
}

// addPendingTopics accumulates topics into the pending (staging) set
// without touching the active set or the change-count.
func (s *State) addPendingTopics(topics []string) {
	for _, t := range topics {
		s.pendingSubscriptions.add(t)
	}
}

// swapPendingTopics atomically replaces the active subscription set with
// the accumulated pending set, resets pending, and advances the
// change-count once (even if the new set is empty, a completed bulk
// transfer is itself a state change).
func (s *State) swapPendingTopics() {
	pending := s.pendingSubscriptions.snapshot()
	wildcards := s.pendingSubscriptions.wildcardCount
	s.subscriptions.replace(pending, wildcards)
	s.pendingSubscriptions.clear()
	s.changeCount++
}

// BatchTopics partitions the active topic set into batches whose total
// character length does not exceed charBudget (a single topic longer
// than the budget still forms its own batch), invoking fn once per
// batch with ordering flags set. An empty active set still invokes fn
// once, with an empty, first-and-last batch.
func (s *State) BatchTopics(charBudget int, fn func(TopicBatch)) {
	all := make([]string, 0, s.subscriptions.size())
	s.forEachTopic(func(t string) { all = append(all, t) })

	if len(all) == 0 {
		fn(TopicBatch{Index: 0, Topics: nil, IsFirst: true, IsLast: true})
		return
	}

	var batches [][]string
	var current []string
	currentLen := 0
	for _, t := range all {
		if currentLen > 0 && currentLen+len(t) > charBudget {
			batches = append(batches, current)
			current = nil
			currentLen = 0
		}
		current = append(current, t)
		currentLen += len(t)
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}

	for i, b := range batches {
		fn(TopicBatch{
			Index:   i,
			Topics:  b,
			IsFirst: i == 0,
			IsLast:  i == len(batches)-1,
		})
	}
}

// Equal reports broker-state equality as the sync protocol defines it:
// descriptor and connections must match; subscriptions are intentionally
// excluded since they carry their own change-count.
func (s *State) Equal(other *State) bool {
	if other == nil {
		return false
	}
	if !s.descriptor.Equal(other.descriptor) {
		return false
	}
	return sameKeys(s.Connections(), other.Connections())
}
