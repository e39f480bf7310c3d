// Package tenant implements per-tenant resource admission control:
// connection, service and subscription counters plus a sent-byte total,
// each checked against a configured limit (0 meaning unlimited), with a
// limit-exceeded notification. The byte, connection and service counters
// notify on the update that reaches or crosses the limit; the
// subscription check notifies on every call that is over the limit.
package tenant

import (
	"sync"

	"github.com/dxlfabric/brokerd/pkg/channels"
	"github.com/dxlfabric/brokerd/pkg/codec"
	"github.com/dxlfabric/brokerd/pkg/dispatch"
	"github.com/dxlfabric/brokerd/pkg/log"
	"github.com/dxlfabric/brokerd/pkg/metrics"
)

// Limits are the configured per-tenant ceilings; 0 means unlimited.
type Limits struct {
	ConnectionLimit   int
	ServiceLimit      int
	SubscriptionLimit int
	ByteLimit         uint32
}

// Metrics tracks per-tenant counters and emits limit-exceeded
// notifications through a dispatch.Publisher. Safe for concurrent use.
type Metrics struct {
	mu sync.Mutex

	limits Limits
	pub    dispatch.Publisher

	connections map[string]int
	services    map[string]int
	bytesSent   map[string]uint32
}

// New creates a Metrics component with the given limits, publishing
// limit-exceeded notifications through pub.
func New(limits Limits, pub dispatch.Publisher) *Metrics {
	return &Metrics{
		limits:      limits,
		pub:         pub,
		connections: make(map[string]int),
		services:    make(map[string]int),
		bytesSent:   make(map[string]uint32),
	}
}

// UpdateSentByteCount adds byteCount to tenantID's running total, but
// only while the stored total is still at or below the limit -- once
// frozen above the limit it never increments again until Reset. Reports
// whether the tenant is (now, or already was) over the limit. The event
// fires exactly once, on the update that first crosses the boundary.
func (m *Metrics) UpdateSentByteCount(tenantID string, byteCount uint32) (exceeded bool) {
	limit := m.limits.ByteLimit
	if limit == 0 {
		return false
	}

	m.mu.Lock()
	oldTotal, existed := m.bytesSent[tenantID]
	total := oldTotal
	if !existed {
		total = byteCount
		m.bytesSent[tenantID] = total
	} else if oldTotal <= limit {
		total = oldTotal + byteCount
		m.bytesSent[tenantID] = total
	}
	m.mu.Unlock()

	exceeded = total > limit
	if oldTotal != total && exceeded {
		m.sendLimitExceeded(tenantID, codec.TenantLimitByte)
	}
	return exceeded
}

// checkWithinLimit reports count < limit, treating limit == 0 as
// unlimited and an absent tenant as within limit.
func checkWithinLimit(counts map[string]int, tenantID string, limit int) bool {
	if limit == 0 {
		return true
	}
	count, ok := counts[tenantID]
	if !ok {
		return true
	}
	return count < limit
}

// updateLimitCount adjusts counts[tenantID] by adjCount, clamped to
// [0, limit]. It reports false only when this adjustment changed the
// count and left it at the limit; an adjustment clamped away while the
// count already sits at the limit reports true.
func updateLimitCount(counts map[string]int, tenantID string, adjCount, limit int) (allowed bool) {
	if limit == 0 {
		return true
	}

	oldCount := counts[tenantID]
	newCount := oldCount + adjCount
	if newCount < 0 {
		newCount = 0
	} else if newCount > limit {
		newCount = limit
	}
	counts[tenantID] = newCount

	if oldCount != newCount && newCount >= limit {
		return false
	}
	return true
}

// UpdateConnectionCount adjusts tenantID's connection count by adjCount
// and emits a limit-exceeded notification if the adjustment reached the
// configured connection limit.
func (m *Metrics) UpdateConnectionCount(tenantID string, adjCount int) {
	m.mu.Lock()
	allowed := updateLimitCount(m.connections, tenantID, adjCount, m.limits.ConnectionLimit)
	m.mu.Unlock()

	if !allowed {
		m.sendLimitExceeded(tenantID, codec.TenantLimitConnections)
	}
}

// IsConnectionAllowed reports whether tenantID may open another
// connection under the configured limit.
func (m *Metrics) IsConnectionAllowed(tenantID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return checkWithinLimit(m.connections, tenantID, m.limits.ConnectionLimit)
}

// UpdateServiceCount adjusts tenantID's registered-service count by
// adjCount and emits a limit-exceeded notification if the adjustment
// reached the configured service limit.
func (m *Metrics) UpdateServiceCount(tenantID string, adjCount int) {
	m.mu.Lock()
	allowed := updateLimitCount(m.services, tenantID, adjCount, m.limits.ServiceLimit)
	m.mu.Unlock()

	if !allowed {
		m.sendLimitExceeded(tenantID, codec.TenantLimitServices)
	}
}

// IsServiceRegistrationAllowed reports whether tenantID may register
// another service under the configured limit.
func (m *Metrics) IsServiceRegistrationAllowed(tenantID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return checkWithinLimit(m.services, tenantID, m.limits.ServiceLimit)
}

// IsSubscriptionAllowed reports whether subscriptionCount (the tenant's
// total active subscriptions, supplied by the caller rather than tracked
// here) is within the configured subscription limit, emitting a
// limit-exceeded notification if not.
func (m *Metrics) IsSubscriptionAllowed(tenantID string, subscriptionCount int) bool {
	limit := m.limits.SubscriptionLimit
	allowed := limit == 0 || subscriptionCount < limit
	if !allowed {
		m.sendLimitExceeded(tenantID, codec.TenantLimitSubscriptions)
	}
	return allowed
}

// MarkExceedsByteCount forcibly marks tenantID as having exceeded its
// byte limit, used when a peer broker reports the same tenant exceeding
// so the freeze propagates across the fabric without re-summing bytes.
func (m *Metrics) MarkExceedsByteCount(tenantID string) {
	limit := m.limits.ByteLimit
	if limit == 0 {
		return
	}
	m.mu.Lock()
	m.bytesSent[tenantID] = limit + 1
	m.mu.Unlock()
}

// ResetByteCounts clears every tenant's sent-byte total. No event is
// emitted here; scheduling and notifying of a reset is the caller's
// concern.
func (m *Metrics) ResetByteCounts() {
	m.mu.Lock()
	m.bytesSent = make(map[string]uint32)
	m.mu.Unlock()
}

func (m *Metrics) sendLimitExceeded(tenantID, limitType string) {
	logger := log.WithTenantID(tenantID)
	payload := codec.TenantLimitExceededPayload{TenantGUID: tenantID, LimitType: limitType}
	if err := m.pub.Publish(channels.TenantLimitExceededEvent, payload.WriteTo()); err != nil {
		logger.Error().Err(err).Str("limit_type", limitType).Msg("failed to send tenant limit exceeded event")
		return
	}
	metrics.TenantLimitExceededTotal.WithLabelValues(limitType).Inc()
	logger.Info().Str("limit_type", limitType).Msg("tenant limit exceeded")
}
