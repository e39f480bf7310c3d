// Package broker implements the broker registry: the process-wide mapping
// of broker id to broker state that is the system-of-record for fabric
// topology and per-peer subscriptions.
package broker

// Descriptor is the immutable-by-convention identity and advertised
// metadata for one broker in the fabric. The only field-changing helper
// is WithTTL, which returns a copy with a new TTL rather than mutating
// the descriptor in place.
type Descriptor struct {
	ID                  string
	Hostname            string
	Port                int
	WSPort              int
	Version             string
	PolicyHostname      string
	PolicyIP            string
	PolicyPort          int
	TopicRoutingEnabled bool
	TTLMinutes          uint32
	StartTime           int64
}

// Equal reports full-field equality, used for change detection on a
// BrokerStateEvent refresh.
func (d Descriptor) Equal(other Descriptor) bool {
	return d == other
}

// WithTTL returns a copy of d with TTLMinutes replaced.
func (d Descriptor) WithTTL(ttlMinutes uint32) Descriptor {
	d.TTLMinutes = ttlMinutes
	return d
}
