package tenant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dxlfabric/brokerd/pkg/channels"
	"github.com/dxlfabric/brokerd/pkg/dispatch"
)

func TestUpdateSentByteCountFiresOnceOnCrossing(t *testing.T) {
	rec := dispatch.NewRecorder()
	m := New(Limits{ByteLimit: 1000}, rec)

	assert.False(t, m.UpdateSentByteCount("t1", 400))
	assert.Equal(t, 0, rec.Count(channels.TenantLimitExceededEvent))

	assert.True(t, m.UpdateSentByteCount("t1", 700))
	assert.Equal(t, 1, rec.Count(channels.TenantLimitExceededEvent))

	// Further increments stay frozen at the first over-limit total and
	// must not fire the event again.
	assert.True(t, m.UpdateSentByteCount("t1", 100))
	assert.Equal(t, 1, rec.Count(channels.TenantLimitExceededEvent))
}

func TestUpdateSentByteCountZeroLimitIsUnlimited(t *testing.T) {
	rec := dispatch.NewRecorder()
	m := New(Limits{ByteLimit: 0}, rec)

	assert.False(t, m.UpdateSentByteCount("t1", 1_000_000))
	assert.Equal(t, 0, rec.Count(channels.TenantLimitExceededEvent))
}

func TestConnectionLimitReached(t *testing.T) {
	rec := dispatch.NewRecorder()
	m := New(Limits{ConnectionLimit: 2}, rec)

	assert.True(t, m.IsConnectionAllowed("t1"))
	m.UpdateConnectionCount("t1", 1)
	assert.True(t, m.IsConnectionAllowed("t1"))

	m.UpdateConnectionCount("t1", 1)
	assert.False(t, m.IsConnectionAllowed("t1"))
	require.Equal(t, 1, rec.Count(channels.TenantLimitExceededEvent))

	last, ok := rec.Last(channels.TenantLimitExceededEvent)
	require.True(t, ok)
	assert.Equal(t, "t1", last.Payload["tenantGuid"])
	assert.Equal(t, "connections", last.Payload["limitType"])
}

func TestConnectionCountClampsToZero(t *testing.T) {
	rec := dispatch.NewRecorder()
	m := New(Limits{ConnectionLimit: 2}, rec)

	m.UpdateConnectionCount("t1", -5)
	assert.True(t, m.IsConnectionAllowed("t1"))
}

func TestServiceLimitReached(t *testing.T) {
	rec := dispatch.NewRecorder()
	m := New(Limits{ServiceLimit: 1}, rec)

	assert.True(t, m.IsServiceRegistrationAllowed("t1"))
	m.UpdateServiceCount("t1", 1)
	assert.False(t, m.IsServiceRegistrationAllowed("t1"))
	assert.Equal(t, 1, rec.Count(channels.TenantLimitExceededEvent))
}

func TestSubscriptionLimit(t *testing.T) {
	rec := dispatch.NewRecorder()
	m := New(Limits{SubscriptionLimit: 5}, rec)

	assert.True(t, m.IsSubscriptionAllowed("t1", 4))
	assert.False(t, m.IsSubscriptionAllowed("t1", 5))
	assert.Equal(t, 1, rec.Count(channels.TenantLimitExceededEvent))
}

func TestMarkExceedsByteCountFreezesAboveLimit(t *testing.T) {
	rec := dispatch.NewRecorder()
	m := New(Limits{ByteLimit: 100}, rec)

	m.MarkExceedsByteCount("t1")
	assert.True(t, m.UpdateSentByteCount("t1", 1))
}

func TestResetByteCountsClearsState(t *testing.T) {
	rec := dispatch.NewRecorder()
	m := New(Limits{ByteLimit: 100}, rec)

	m.UpdateSentByteCount("t1", 200)
	m.ResetByteCounts()

	assert.False(t, m.UpdateSentByteCount("t1", 1))
}

func TestSendLimitExceededSwallowsPublishFailure(t *testing.T) {
	rec := dispatch.NewRecorder()
	rec.FailChannel = channels.TenantLimitExceededEvent
	m := New(Limits{ServiceLimit: 1}, rec)

	assert.NotPanics(t, func() {
		m.UpdateServiceCount("t1", 1)
	})
}
