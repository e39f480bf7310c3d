// Package channels declares the reserved topic strings and prefixes that
// make up the fabric's wire contract: the well-known channels brokers use
// to exchange state-sync events and the prefixes used to classify topics
// during message finalization.
package channels

import "strings"

// Reserved topic prefixes.
const (
	ClientPrefix       = "/mcafee/client/"
	ClientPrefixBracket = "/mcafee/client/{"
	EventPrefix        = "/mcafee/event/dxl/"
	RequestPrefix      = "/mcafee/service/dxl/"
)

// Broker-registry state-sync event channels.
const (
	BrokerStateEvent       = EventPrefix + "brokerregistry/brokerstate"
	BrokerStateTopicsEvent = EventPrefix + "brokerregistry/brokerstatetopics"
	TopicAddedEvent        = EventPrefix + "brokerregistry/topicadded"
	TopicRemovedEvent      = EventPrefix + "brokerregistry/topicremoved"
	FabricChangeEvent      = EventPrefix + "fabricchange"
)

// Client/service registry and tenant event channels.
const (
	ClientRegistryConnectEvent    = EventPrefix + "clientregistry/connect"
	ClientRegistryDisconnectEvent = EventPrefix + "clientregistry/disconnect"
	EventSubscriberNotFoundEvent  = EventPrefix + "eventsubscribernotfound"
	ServiceRegistryRegisterEvent  = EventPrefix + "svcregistry/register"
	ServiceRegistryUnregisterEvent = EventPrefix + "svcregistry/unregister"
	TenantLimitExceededEvent     = EventPrefix + "tenant/limit/exceeded"
	TenantLimitResetEvent        = EventPrefix + "tenant/limit/reset"
)

// Request channels served by the external service/broker-registry query
// collaborator; listed here for classification by
// IsReservedRequestChannel, not because this module implements them.
// Message finalization does not consult them.
const (
	BrokerHealthRequest            = RequestPrefix + "broker/health"
	BrokerSubsRequest              = RequestPrefix + "broker/subs"
	BrokerRegistryQueryRequest     = RequestPrefix + "brokerregistry/query"
	BrokerRegistryTopicQueryRequest = RequestPrefix + "brokerregistry/topicquery"
	ClientRegistryQueryRequest     = RequestPrefix + "clientregistry/query"
	ServiceRegistryQueryRequest    = RequestPrefix + "svcregistry/query"
	ServiceRegistryRegisterRequest = RequestPrefix + "svcregistry/register"
	ServiceRegistryUnregisterRequest = RequestPrefix + "svcregistry/unregister"
)

// IsClientChannel reports whether topic addresses an individual client's
// reply channel (the bracketed client-guid form).
func IsClientChannel(topic string) bool {
	return strings.HasPrefix(topic, ClientPrefixBracket)
}

// IsReservedEventChannel reports whether topic is one of this fabric's own
// broker-event channels.
func IsReservedEventChannel(topic string) bool {
	return strings.HasPrefix(topic, EventPrefix)
}

// IsReservedRequestChannel reports whether topic is one of this fabric's
// own service-request channels.
func IsReservedRequestChannel(topic string) bool {
	return strings.HasPrefix(topic, RequestPrefix)
}
