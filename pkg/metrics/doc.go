/*
Package metrics provides Prometheus metrics collection and exposition for
the broker daemon.

Metrics are registered once at package init against the global Prometheus
registry and exposed via an HTTP handler for scraping.

# Metrics Catalog

brokerd_known_brokers_total:
  - Type: Gauge
  - Description: Number of brokers currently known to the registry,
    including the local broker.

brokerd_peer_subscriptions_total{broker_id}:
  - Type: GaugeVec
  - Description: Topic subscription count per known broker.

brokerd_ttl_sweep_removed_total:
  - Type: Counter
  - Description: Peers removed by the TTL sweep since process start.

brokerd_ttl_sweep_duration_seconds:
  - Type: Histogram
  - Description: Time taken by each TTL sweep pass.

brokerd_sync_events_received_total{kind}:
  - Type: CounterVec
  - Description: State-sync events received, by kind (brokerstate,
    brokerstatetopics, topicadded, topicremoved).

brokerd_sync_events_published_total{kind}:
  - Type: CounterVec
  - Description: State-sync events this broker has published, by kind.

brokerd_sync_events_dropped_total{reason}:
  - Type: CounterVec
  - Description: Incoming sync events dropped, by reason (e.g.
    stale_or_unknown).

brokerd_tenant_limit_exceeded_total{limit_type}:
  - Type: CounterVec
  - Description: Tenant admission limits crossed, by limit type
    (connections, services, subscriptions, byte).

brokerd_subscriber_not_found_total:
  - Type: Counter
  - Description: Fabric-wide subscriber-not-found notifications emitted.

# Usage

	timer := metrics.NewTimer()
	// ... perform operation ...
	timer.ObserveDuration(metrics.TTLSweepDuration)

	http.Handle("/metrics", metrics.Handler())

# Design Patterns

All metrics are package-level variables registered in init(), so every
package can update them without an explicit wiring step. Label sets are
kept small and bounded (kind, reason, limit_type, broker_id) to avoid
cardinality blowups; broker_id is bounded by fabric size, not by client
or message identity.
*/
package metrics
