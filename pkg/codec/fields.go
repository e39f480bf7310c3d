package codec

// Field names making up the payload vocabulary, named after the
// constants every broker in a fabric must agree on bit-for-bit.
const (
	FieldBrokerGUID         = "brokerGuid"
	FieldBrokers            = "brokers"
	FieldBrokerVersion      = "brokerVersion"
	FieldBrokerHostname     = "hostname"
	FieldBrokerPort         = "port"
	FieldBrokerWSPort       = "wsPort"
	FieldPolicyHostname     = "policyHostname"
	FieldPolicyIP           = "policyIp"
	FieldPolicyPort         = "policyPort"
	FieldTopicRoutingEnabled = "topicRoutingEnabled"
	FieldChangeCount        = "changeCount"
	FieldStartTime          = "startTime"
	FieldTTLMins            = "ttlMins"
	FieldConnections        = "connections"
	FieldChildConnections   = "childConnections"

	FieldTopic   = "topic"
	FieldTopics  = "topics"
	FieldState   = "state"
	FieldIndex   = "index"
	FieldCount   = "count"
	FieldExists  = "exists"
	FieldType    = "type"

	FieldClientGUID       = "clientGuid"
	FieldClientTenantGUID = "clientTenantGuid"
	FieldServiceGUID      = "serviceGuid"
	FieldServiceType      = "serviceType"
	FieldRegistrationTime = "registrationTime"

	FieldTenantGUID = "tenantGuid"
	FieldLimitType  = "limitType"
)

// BrokerStateTopics "state" bitmask values.
const (
	TopicsStateNone  = 0
	TopicsStateStart = 1 << 0
	TopicsStateEnd   = 1 << 1
)

// Tenant limit-type values, named after TENANT_LIMIT_* in the original
// vocabulary.
const (
	TenantLimitConnections  = "connections"
	TenantLimitServices     = "services"
	TenantLimitSubscriptions = "subscriptions"
	TenantLimitByte         = "byte"
)
