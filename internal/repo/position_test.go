package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/shuttle-fleet/internal/domain"
	"github.com/pkordes/shuttle-fleet/internal/repo"
)

func fixAt(s seed, svc domain.Service, lat float64, at time.Time) domain.PositionFix {
	return domain.PositionFix{
		TenantID:   s.TenantID,
		ServiceID:  svc.ID,
		Lat:        lat,
		Lng:        -72.94,
		CapturedAt: at,
	}
}

func TestPositionRepo_LatestFor(t *testing.T) {
	tx := newTx(t)
	s := seedTenant(t, tx, nil)
	svc := createService(t, tx, s, domain.StateInProgress)
	r := repo.NewPositionRepo(tx)
	ctx := context.Background()
	base := time.Date(2025, 6, 2, 7, 0, 0, 0, time.UTC)

	_, err := r.LatestFor(ctx, s.TenantID, svc.ID)
	require.ErrorIs(t, err, domain.ErrNotFound, "no fixes yet")

	_, err = r.Append(ctx, fixAt(s, svc, -41.40, base))
	require.NoError(t, err)
	newest, err := r.Append(ctx, fixAt(s, svc, -41.45, base.Add(time.Minute)))
	require.NoError(t, err)

	got, err := r.LatestFor(ctx, s.TenantID, svc.ID)
	require.NoError(t, err)
	assert.Equal(t, newest.ID, got.ID)
	assert.InDelta(t, -41.45, got.Lat, 1e-9)
}

func TestPositionRepo_LatestForActive(t *testing.T) {
	tx := newTx(t)
	s := seedTenant(t, tx, nil)
	withFix := createService(t, tx, s, domain.StateInProgress)
	createService(t, tx, s, domain.StateInProgress) // never reported
	finished := createService(t, tx, s, domain.StateInProgress)
	r := repo.NewPositionRepo(tx)
	ctx := context.Background()
	base := time.Date(2025, 6, 2, 7, 0, 0, 0, time.UTC)

	for i := range 3 {
		_, err := r.Append(ctx, fixAt(s, withFix, -41.4-float64(i)/100, base.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
	}
	_, err := r.Append(ctx, fixAt(s, finished, -41.0, base))
	require.NoError(t, err)
	_, err = repo.NewServiceRepo(tx).UpdateState(ctx, s.TenantID, finished.ID, domain.StateInProgress, domain.StateFinished)
	require.NoError(t, err)

	got, err := r.LatestForActive(ctx, s.TenantID)

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, -41.42, got[withFix.ID].Lat, 1e-9)
}

func TestPositionRepo_History(t *testing.T) {
	tx := newTx(t)
	s := seedTenant(t, tx, nil)
	svc := createService(t, tx, s, domain.StateInProgress)
	r := repo.NewPositionRepo(tx)
	ctx := context.Background()
	base := time.Date(2025, 6, 2, 7, 0, 0, 0, time.UTC)

	for i := range 5 {
		_, err := r.Append(ctx, fixAt(s, svc, -41.4, base.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
	}

	got, err := r.History(ctx, s.TenantID, svc.ID, 2)

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].CapturedAt.After(got[1].CapturedAt), "newest first")
}

func TestPositionRepo_Append_OnlyWhileInProgress(t *testing.T) {
	tx := newTx(t)
	s := seedTenant(t, tx, nil)
	r := repo.NewPositionRepo(tx)
	services := repo.NewServiceRepo(tx)
	ctx := context.Background()
	base := time.Date(2025, 6, 2, 7, 0, 0, 0, time.UTC)

	for _, state := range []domain.ServiceState{domain.StateScheduled, domain.StateFinished, domain.StateCancelled} {
		svc := createService(t, tx, s, state)
		_, err := r.Append(ctx, fixAt(s, svc, -41.4, base))
		assert.ErrorIs(t, err, domain.ErrServiceNotActive, "state %s", state)
	}

	// A finish committed between the caller's check and the insert still wins.
	svc := createService(t, tx, s, domain.StateInProgress)
	_, err := services.UpdateState(ctx, s.TenantID, svc.ID, domain.StateInProgress, domain.StateFinished)
	require.NoError(t, err)
	_, err = r.Append(ctx, fixAt(s, svc, -41.4, base))
	require.ErrorIs(t, err, domain.ErrServiceNotActive)

	_, err = r.LatestFor(ctx, s.TenantID, svc.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound, "no fix was stored")

	other := seedTenant(t, tx, nil)
	active := createService(t, tx, s, domain.StateInProgress)
	_, err = r.Append(ctx, fixAt(other, active, -41.4, base))
	assert.ErrorIs(t, err, domain.ErrServiceNotActive, "another tenant's service is invisible")
}
