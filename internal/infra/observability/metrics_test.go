package observability_test

import (
	"testing"

	"github.com/cedisense/cedisense-bfa/internal/domain"
	"github.com/cedisense/cedisense-bfa/internal/infra/observability"
	"github.com/stretchr/testify/assert"
)

func TestSnapshot_CountsOutcomes(t *testing.T) {
	m := observability.NewMetrics()

	m.IncrReconcile(observability.OpAssign, domain.OutcomeCompleted)
	m.IncrReconcile(observability.OpAssign, domain.OutcomeFailed)
	m.IncrReconcile(observability.OpTransfer, domain.OutcomeCompleted)
	m.IncrReconcile(observability.OpTransfer, domain.OutcomePartial)
	m.IncrReconcile(observability.OpTransfer, domain.OutcomePartial)
	m.IncrCacheHit("wallets")
	m.IncrCacheHit("wallets")
	m.IncrCacheHit("wallets")
	m.IncrCacheMiss("wallets")

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.Assignments)
	assert.Equal(t, int64(1), snap.AssignFailures)
	assert.Equal(t, int64(3), snap.Transfers)
	assert.Equal(t, int64(2), snap.PartialTransfers)
	assert.Equal(t, int64(0), snap.TransferFailures)
	assert.InDelta(t, 0.75, snap.CacheHitRate, 1e-9)
}

func TestSnapshot_Empty(t *testing.T) {
	snap := observability.NewMetrics().Snapshot()
	assert.Zero(t, snap.Assignments)
	assert.Zero(t, snap.CacheHitRate)
}

func TestNewMetrics_Independent(t *testing.T) {
	a := observability.NewMetrics()
	b := observability.NewMetrics()
	a.IncrReconcile(observability.OpAssign, domain.OutcomeCompleted)

	assert.Equal(t, int64(1), a.Snapshot().Assignments)
	assert.Equal(t, int64(0), b.Snapshot().Assignments)
}
