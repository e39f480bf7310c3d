package codec

// BrokerStateEventPayload carries one broker's identity, connections and
// sync-protocol headers.
type BrokerStateEventPayload struct {
	BrokerGUID          string
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
	ChangeCount         uint64
	Connections         []string
	ChildConnections    []string
}

func (p BrokerStateEventPayload) WriteTo() Node {
	return Node{
		FieldBrokerGUID:          p.BrokerGUID,
		FieldBrokerHostname:      p.Hostname,
		FieldBrokerPort:          p.Port,
		FieldBrokerWSPort:        p.WSPort,
		FieldBrokerVersion:       p.Version,
		FieldPolicyHostname:      p.PolicyHostname,
		FieldPolicyIP:            p.PolicyIP,
		FieldPolicyPort:          p.PolicyPort,
		FieldTopicRoutingEnabled: p.TopicRoutingEnabled,
		FieldTTLMins:             p.TTLMinutes,
		FieldStartTime:           p.StartTime,
		FieldChangeCount:         p.ChangeCount,
		FieldConnections:         p.Connections,
		FieldChildConnections:    p.ChildConnections,
	}
}

func (p *BrokerStateEventPayload) ReadFrom(n Node) error {
	p.BrokerGUID = n.String(FieldBrokerGUID)
	p.Hostname = n.String(FieldBrokerHostname)
	p.Port = int(n.Uint32(FieldBrokerPort))
	p.WSPort = int(n.Uint32(FieldBrokerWSPort))
	p.Version = n.String(FieldBrokerVersion)
	p.PolicyHostname = n.String(FieldPolicyHostname)
	p.PolicyIP = n.String(FieldPolicyIP)
	p.PolicyPort = int(n.Uint32(FieldPolicyPort))
	p.TopicRoutingEnabled = n.Bool(FieldTopicRoutingEnabled)
	p.TTLMinutes = n.Uint32(FieldTTLMins)
	p.StartTime = n.Int64(FieldStartTime)
	p.ChangeCount = n.Uint64(FieldChangeCount)
	p.Connections = n.StringSlice(FieldConnections)
	p.ChildConnections = n.StringSlice(FieldChildConnections)
	return nil
}

// BrokerStateTopicsEventPayload carries one batch of a bulk subscription
// transfer. WildcardCount is derived on read, never transmitted.
type BrokerStateTopicsEventPayload struct {
	BrokerGUID    string
	State         int
	Index         int
	Topics        []string
	WildcardCount int
}

func (p BrokerStateTopicsEventPayload) WriteTo() Node {
	return Node{
		FieldBrokerGUID: p.BrokerGUID,
		FieldState:      p.State,
		FieldIndex:      p.Index,
		FieldTopics:     p.Topics,
	}
}

func (p *BrokerStateTopicsEventPayload) ReadFrom(n Node) error {
	p.BrokerGUID = n.String(FieldBrokerGUID)
	p.State = int(n.Uint32(FieldState))
	p.Index = int(n.Uint32(FieldIndex))
	p.Topics = n.StringSlice(FieldTopics)
	p.WildcardCount = 0
	for _, t := range p.Topics {
		if isWildcardTopic(t) {
			p.WildcardCount++
		}
	}
	return nil
}

func (p BrokerStateTopicsEventPayload) IsStart() bool {
	return p.State&TopicsStateStart != 0
}

func (p BrokerStateTopicsEventPayload) IsEnd() bool {
	return p.State&TopicsStateEnd != 0
}

func isWildcardTopic(t string) bool {
	for _, c := range t {
		if c == '+' || c == '#' {
			return true
		}
	}
	return false
}

// TopicEventPayload is the shared shape of TopicAdded and TopicRemoved.
type TopicEventPayload struct {
	BrokerGUID  string
	Topic       string
	StartTime   int64
	ChangeCount uint64
}

func (p TopicEventPayload) WriteTo() Node {
	return Node{
		FieldBrokerGUID:  p.BrokerGUID,
		FieldTopic:       p.Topic,
		FieldStartTime:   p.StartTime,
		FieldChangeCount: p.ChangeCount,
	}
}

func (p *TopicEventPayload) ReadFrom(n Node) error {
	p.BrokerGUID = n.String(FieldBrokerGUID)
	p.Topic = n.String(FieldTopic)
	p.StartTime = n.Int64(FieldStartTime)
	p.ChangeCount = n.Uint64(FieldChangeCount)
	return nil
}

// FabricChangeEventPayload is an empty-bodied broadcast inviting peers
// to resynchronize; it carries no fields of its own.
type FabricChangeEventPayload struct{}

func (p FabricChangeEventPayload) WriteTo() Node { return Node{} }

func (p *FabricChangeEventPayload) ReadFrom(n Node) error { return nil }

// TenantLimitExceededPayload reports a tenant crossing a configured
// resource limit.
type TenantLimitExceededPayload struct {
	TenantGUID string
	LimitType  string
}

func (p TenantLimitExceededPayload) WriteTo() Node {
	return Node{
		FieldTenantGUID: p.TenantGUID,
		FieldLimitType:  p.LimitType,
	}
}

func (p *TenantLimitExceededPayload) ReadFrom(n Node) error {
	p.TenantGUID = n.String(FieldTenantGUID)
	p.LimitType = n.String(FieldLimitType)
	return nil
}

// SubscriberNotFoundEventPayload reports that a bridged-in event message
// found zero local destinations.
type SubscriberNotFoundEventPayload struct {
	Topic string
}

func (p SubscriberNotFoundEventPayload) WriteTo() Node {
	return Node{FieldTopic: p.Topic}
}

func (p *SubscriberNotFoundEventPayload) ReadFrom(n Node) error {
	p.Topic = n.String(FieldTopic)
	return nil
}
