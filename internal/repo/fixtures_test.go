package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/shuttle-fleet/internal/domain"
	"github.com/pkordes/shuttle-fleet/internal/repo"
	"github.com/pkordes/shuttle-fleet/testutil"
)

// newTx opens a transaction against the test database that is rolled back
// when the test finishes, giving free per-test isolation.
func newTx(t *testing.T) pgx.Tx {
	t.Helper()
	pool := testutil.NewPool(t)

	tx, err := pool.Begin(context.Background())
	require.NoError(t, err, "begin transaction")

	t.Cleanup(func() {
		_ = tx.Rollback(context.Background())
	})
	return tx
}

// seed is a tenant with one bus and one driver, ready to own services.
type seed struct {
	TenantID uuid.UUID
	BusID    uuid.UUID
	DriverID uuid.UUID
}

func seedTenant(t *testing.T, tx testutil.Execer, tolerance *int) seed {
	t.Helper()
	tenantID := testutil.SeedTenant(t, tx, "Salmones Sur", tolerance)
	return seed{
		TenantID: tenantID,
		BusID:    testutil.SeedBus(t, tx, tenantID, "BUS-07"),
		DriverID: testutil.SeedDriver(t, tx, tenantID, "Rosa Millán"),
	}
}

func serviceFixture(s seed) domain.Service {
	return domain.Service{
		TenantID:       s.TenantID,
		ScheduledStart: time.Date(2025, 6, 2, 6, 30, 0, 0, time.UTC),
		Shift:          "morning",
		Stops:          []string{"Puerto Montt", "Centro de cultivo Chinquihue"},
		BusID:          s.BusID,
		DriverID:       s.DriverID,
		State:          domain.StateScheduled,
	}
}

func createService(t *testing.T, tx pgx.Tx, s seed, state domain.ServiceState) domain.Service {
	t.Helper()
	r := repo.NewServiceRepo(tx)
	svc, err := r.Create(context.Background(), serviceFixture(s))
	require.NoError(t, err)
	if state == domain.StateScheduled {
		return svc
	}
	svc, err = r.UpdateState(context.Background(), s.TenantID, svc.ID, domain.StateScheduled, domain.StateInProgress)
	require.NoError(t, err)
	if state == domain.StateInProgress {
		return svc
	}
	svc, err = r.UpdateState(context.Background(), s.TenantID, svc.ID, domain.StateInProgress, state)
	require.NoError(t, err)
	return svc
}
