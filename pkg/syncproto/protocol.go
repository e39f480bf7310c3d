// Package syncproto implements the state-sync protocol: the event-driven
// replication of broker descriptors, connections and subscription sets
// across a fabric, plus the periodic TTL-expiration sweep and the
// coalesced local state-change emission.
package syncproto

import (
	"time"

	"github.com/dxlfabric/brokerd/pkg/broker"
	"github.com/dxlfabric/brokerd/pkg/channels"
	"github.com/dxlfabric/brokerd/pkg/codec"
	"github.com/dxlfabric/brokerd/pkg/dispatch"
	"github.com/dxlfabric/brokerd/pkg/log"
	"github.com/dxlfabric/brokerd/pkg/metrics"
)

// Protocol wires a broker.Registry to a dispatch.Publisher, applying
// incoming sync events to the registry and emitting outgoing ones on
// local mutation.
type Protocol struct {
	registry *broker.Registry
	pub      dispatch.Publisher

	topicsBatchBytes int

	stopCh chan struct{}
	dirty  chan struct{}
}

// New creates a Protocol bound to registry and pub. topicsBatchBytes
// bounds the character length of each BrokerStateTopicsEvent batch
// emitted during a bulk transfer.
func New(registry *broker.Registry, pub dispatch.Publisher, topicsBatchBytes int) *Protocol {
	return &Protocol{
		registry:         registry,
		pub:              pub,
		topicsBatchBytes: topicsBatchBytes,
		stopCh:           make(chan struct{}),
		dirty:            make(chan struct{}, 1),
	}
}

// --- Incoming event handlers -------------------------------------------------

// HandleBrokerState applies a received BrokerStateEvent. If the peer was
// previously unknown, or its start-time changed (a restart), the peer's
// subscription set is cleared and left awaiting a fresh bulk transfer.
func (p *Protocol) HandleBrokerState(payload codec.BrokerStateEventPayload) {
	metrics.SyncEventsReceivedTotal.WithLabelValues("brokerstate").Inc()
	if payload.BrokerGUID == p.registry.LocalID() {
		return
	}

	d := broker.Descriptor{
		ID:                  payload.BrokerGUID,
		Hostname:            payload.Hostname,
		Port:                payload.Port,
		WSPort:              payload.WSPort,
		Version:             payload.Version,
		PolicyHostname:      payload.PolicyHostname,
		PolicyIP:            payload.PolicyIP,
		PolicyPort:          payload.PolicyPort,
		TopicRoutingEnabled: payload.TopicRoutingEnabled,
		TTLMinutes:          payload.TTLMinutes,
		StartTime:           payload.StartTime,
	}

	connections := toSet(payload.Connections)
	children := toSet(payload.ChildConnections)

	needsResync := p.registry.ApplyState(d, connections, children)
	if needsResync {
		log.WithChangeCount(payload.ChangeCount).Debug().
			Str("broker_id", payload.BrokerGUID).
			Msg("peer state requires subscription resync")
	}
}

// HandleBrokerStateTopics applies one batch of a bulk subscription
// transfer for the named peer.
func (p *Protocol) HandleBrokerStateTopics(payload codec.BrokerStateTopicsEventPayload) {
	metrics.SyncEventsReceivedTotal.WithLabelValues("brokerstatetopics").Inc()
	if payload.BrokerGUID == p.registry.LocalID() {
		return
	}
	if payload.IsStart() {
		p.registry.BeginTopicsTransfer(payload.BrokerGUID)
	}
	p.registry.AppendTopicsBatch(payload.BrokerGUID, payload.Topics)
	if payload.IsEnd() {
		p.registry.EndTopicsTransfer(payload.BrokerGUID)
	}
}

// HandleTopicAdded applies a single-topic subscribe delta.
func (p *Protocol) HandleTopicAdded(payload codec.TopicEventPayload) {
	metrics.SyncEventsReceivedTotal.WithLabelValues("topicadded").Inc()
	applied := p.registry.ApplyTopicDelta(payload.BrokerGUID, payload.Topic, true, payload.StartTime, payload.ChangeCount)
	if !applied {
		metrics.SyncEventsDroppedTotal.WithLabelValues("stale_or_unknown").Inc()
		log.WithTopic(payload.Topic).Debug().
			Str("broker_id", payload.BrokerGUID).
			Uint64("change_count", payload.ChangeCount).
			Msg("dropped stale or unknown topic-added delta")
	}
}

// HandleTopicRemoved applies a single-topic unsubscribe delta.
func (p *Protocol) HandleTopicRemoved(payload codec.TopicEventPayload) {
	metrics.SyncEventsReceivedTotal.WithLabelValues("topicremoved").Inc()
	applied := p.registry.ApplyTopicDelta(payload.BrokerGUID, payload.Topic, false, payload.StartTime, payload.ChangeCount)
	if !applied {
		metrics.SyncEventsDroppedTotal.WithLabelValues("stale_or_unknown").Inc()
		log.WithTopic(payload.Topic).Debug().
			Str("broker_id", payload.BrokerGUID).
			Uint64("change_count", payload.ChangeCount).
			Msg("dropped stale or unknown topic-removed delta")
	}
}

// --- Outgoing emission -------------------------------------------------------

// MarkDirty schedules a BrokerStateEvent to be emitted on the next
// coalesced flush. Safe to call repeatedly; redundant marks within one
// window collapse into a single emission.
func (p *Protocol) MarkDirty() {
	select {
	case p.dirty <- struct{}{}:
	default:
	}
}

// EmitLocalState immediately publishes the local broker's current state
// as a BrokerStateEvent, bypassing coalescing. RunCoalescedEmitter calls
// it on each dirty flush; tests call it directly.
func (p *Protocol) EmitLocalState() error {
	local := p.registry.Get(p.registry.LocalID())
	if local == nil {
		return nil
	}
	d := local.Descriptor()
	payload := codec.BrokerStateEventPayload{
		BrokerGUID:          d.ID,
		Hostname:            d.Hostname,
		Port:                d.Port,
		WSPort:              d.WSPort,
		Version:             d.Version,
		PolicyHostname:      d.PolicyHostname,
		PolicyIP:            d.PolicyIP,
		PolicyPort:          d.PolicyPort,
		TopicRoutingEnabled: d.TopicRoutingEnabled,
		TTLMinutes:          d.TTLMinutes,
		StartTime:           d.StartTime,
		ChangeCount:         local.ChangeCount(),
		Connections:         toSlice(local.Connections()),
		ChildConnections:    toSlice(local.ChildConnections()),
	}
	if err := p.pub.Publish(channels.BrokerStateEvent, payload.WriteTo()); err != nil {
		return err
	}
	metrics.SyncEventsPublishedTotal.WithLabelValues("brokerstate").Inc()
	return nil
}

// EmitTopicAdded publishes a TopicAdded delta for the local broker.
func (p *Protocol) EmitTopicAdded(topic string) error {
	return p.emitTopicDelta(channels.TopicAddedEvent, "topicadded", topic)
}

// EmitTopicRemoved publishes a TopicRemoved delta for the local broker.
func (p *Protocol) EmitTopicRemoved(topic string) error {
	return p.emitTopicDelta(channels.TopicRemovedEvent, "topicremoved", topic)
}

func (p *Protocol) emitTopicDelta(channel, kind, topic string) error {
	local := p.registry.Get(p.registry.LocalID())
	if local == nil {
		return nil
	}
	payload := codec.TopicEventPayload{
		BrokerGUID:  local.Descriptor().ID,
		Topic:       topic,
		StartTime:   local.Descriptor().StartTime,
		ChangeCount: local.ChangeCount(),
	}
	if err := p.pub.Publish(channel, payload.WriteTo()); err != nil {
		return err
	}
	metrics.SyncEventsPublishedTotal.WithLabelValues(kind).Inc()
	return nil
}

// StreamLocalTopics publishes the local broker's full subscription set
// as a batched BrokerStateTopicsEvent transfer, used when a new peer
// bridges in. Every batch carries the START/END flags BatchTopics
// computes; a wholly empty set still emits exactly one batch.
func (p *Protocol) StreamLocalTopics() error {
	local := p.registry.Get(p.registry.LocalID())
	if local == nil {
		return nil
	}
	guid := local.Descriptor().ID

	var firstErr error
	local.BatchTopics(p.topicsBatchBytes, func(b broker.TopicBatch) {
		if firstErr != nil {
			return
		}
		state := codec.TopicsStateNone
		if b.IsFirst {
			state |= codec.TopicsStateStart
		}
		if b.IsLast {
			state |= codec.TopicsStateEnd
		}
		payload := codec.BrokerStateTopicsEventPayload{
			BrokerGUID: guid,
			State:      state,
			Index:      b.Index,
			Topics:     b.Topics,
		}
		if err := p.pub.Publish(channels.BrokerStateTopicsEvent, payload.WriteTo()); err != nil {
			firstErr = err
			return
		}
		metrics.SyncEventsPublishedTotal.WithLabelValues("brokerstatetopics").Inc()
	})
	return firstErr
}

// EmitFabricChange broadcasts a FabricChangeEvent, inviting peers to
// resynchronize after a topology change.
func (p *Protocol) EmitFabricChange() error {
	var payload codec.FabricChangeEventPayload
	if err := p.pub.Publish(channels.FabricChangeEvent, payload.WriteTo()); err != nil {
		return err
	}
	metrics.SyncEventsPublishedTotal.WithLabelValues("fabricchange").Inc()
	return nil
}

// --- Periodic tasks -----------------------------------------------------------

// RunCoalescedEmitter flushes at most one BrokerStateEvent per interval
// when MarkDirty has been called since the last flush. It runs until
// Stop is called; intended to be launched with `go`.
func (p *Protocol) RunCoalescedEmitter(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			select {
			case <-p.dirty:
				if err := p.EmitLocalState(); err != nil {
					log.Logger.Error().Err(err).Msg("failed to emit coalesced broker state")
				}
			default:
			}
			metrics.Heartbeat("transport")
		case <-p.stopCh:
			return
		}
	}
}

// RunTTLSweep periodically removes expired peer states. It runs until
// Stop is called; intended to be launched with `go`.
func (p *Protocol) RunTTLSweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			timer := metrics.NewTimer()
			expired := p.registry.SweepExpired(time.Now())
			timer.ObserveDuration(metrics.TTLSweepDuration)
			metrics.TTLSweepRemovedTotal.Add(float64(len(expired)))
			for _, id := range expired {
				log.WithBrokerID(id).Info().Msg("peer broker expired")
			}
			p.RefreshGauges()
		case <-p.stopCh:
			return
		}
	}
}

// Stop signals RunCoalescedEmitter and RunTTLSweep to return.
func (p *Protocol) Stop() {
	close(p.stopCh)
}

// RefreshGauges recomputes the registry-size and per-peer-subscription
// gauges from current registry contents.
func (p *Protocol) RefreshGauges() {
	metrics.KnownBrokersTotal.Set(float64(p.registry.Count()))
	p.registry.ForEach(func(brokerID string, s *broker.State) {
		metrics.PeerSubscriptionsTotal.WithLabelValues(brokerID).Set(float64(s.TopicCount()))
	})
}

func toSet(items []string) map[string]struct{} {
	out := make(map[string]struct{}, len(items))
	for _, it := range items {
		out[it] = struct{}{}
	}
	return out
}

func toSlice(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}
