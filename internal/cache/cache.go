// Package cache holds the short-lived read-through cache of fleet snapshots.
// Entries are keyed by tenant and expire after a fixed TTL. The time source is
// injected so expiry is testable; the Redis backend lets several API
// processes share one cache.
package cache

import (
	"context"

	"github.com/google/uuid"

	"github.com/pkordes/shuttle-fleet/internal/domain"
)

// SnapshotCache stores the last built fleet snapshot per tenant.
// Get reports ok=false on a miss or an expired entry. Delete drops the
// tenant's entry so the next Get misses; deleting an absent entry is not an error.
type SnapshotCache interface {
	Get(ctx context.Context, tenantID uuid.UUID) (entries []domain.FleetEntry, ok bool, err error)
	Set(ctx context.Context, tenantID uuid.UUID, entries []domain.FleetEntry) error
	Delete(ctx context.Context, tenantID uuid.UUID) error
}

// Nop never stores anything. Used when the TTL is zero.
type Nop struct{}

func (Nop) Get(context.Context, uuid.UUID) ([]domain.FleetEntry, bool, error) { return nil, false, nil }
func (Nop) Set(context.Context, uuid.UUID, []domain.FleetEntry) error          { return nil }
func (Nop) Delete(context.Context, uuid.UUID) error                            { return nil }
