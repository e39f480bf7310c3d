// Package finalize implements the message-finalize filter: the hook the
// dispatcher runs after selecting a message's destination list, which
// emits a SubscriberNotFoundEvent when a bridged-in event message found
// no local subscriber.
package finalize

import (
	"github.com/dxlfabric/brokerd/pkg/channels"
	"github.com/dxlfabric/brokerd/pkg/codec"
	"github.com/dxlfabric/brokerd/pkg/dispatch"
	"github.com/dxlfabric/brokerd/pkg/log"
	"github.com/dxlfabric/brokerd/pkg/metrics"
)

// Filter holds the dependencies the finalize hook needs to publish its
// notification.
type Filter struct {
	localBrokerID string
	pub           dispatch.Publisher
}

// New creates a Filter for the local broker identified by localBrokerID,
// publishing through pub.
func New(localBrokerID string, pub dispatch.Publisher) *Filter {
	return &Filter{localBrokerID: localBrokerID, pub: pub}
}

// Check runs the finalize filter for an outbound event message: topic is
// the message's destination topic, sourceBrokerID is the broker id the
// message arrived from (bridged in), isEvent reports whether the message
// is a recognized event message, and destinationCount is how many local
// destinations the dispatcher selected. It publishes a
// SubscriberNotFoundEvent when all of the following hold: there were no
// destinations, the message is an event, it crossed a bridge (came from
// a different broker), and topic is not itself a reserved/loop-guarded
// channel.
func (f *Filter) Check(topic, sourceBrokerID string, isEvent bool, destinationCount int) {
	if destinationCount != 0 {
		return
	}
	if !isEvent {
		return
	}
	if sourceBrokerID == f.localBrokerID {
		return
	}
	if channels.IsClientChannel(topic) {
		return
	}
	if channels.IsReservedEventChannel(topic) {
		return
	}

	payload := codec.SubscriberNotFoundEventPayload{Topic: topic}
	if err := f.pub.Publish(channels.EventSubscriberNotFoundEvent, payload.WriteTo()); err != nil {
		log.WithChannel(topic).Error().Err(err).Msg("failed to send subscriber not found event")
		return
	}
	metrics.SubscriberNotFoundTotal.Inc()
}
