package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Execer is satisfied by *pgxpool.Pool and pgx.Tx. Seed helpers accept it so
// they work both inside a rolled-back test transaction and against the pool.
type Execer interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// SeedTenant inserts a tenant row and returns its id. A nil tolerance leaves
// delay_tolerance_minutes NULL so the platform default applies.
func SeedTenant(t *testing.T, db Execer, name string, tolerance *int) uuid.UUID {
	t.Helper()
	var id uuid.UUID
	err := db.QueryRow(context.Background(),
		`INSERT INTO tenants (name, delay_tolerance_minutes) VALUES ($1, $2) RETURNING id`,
		name, tolerance,
	).Scan(&id)
	if err != nil {
		t.Fatalf("testutil.SeedTenant: %v", err)
	}
	return id
}

// SeedBus inserts a bus owned by tenantID and returns its id.
func SeedBus(t *testing.T, db Execer, tenantID uuid.UUID, label string) uuid.UUID {
	t.Helper()
	var id uuid.UUID
	err := db.QueryRow(context.Background(),
		`INSERT INTO buses (tenant_id, label) VALUES ($1, $2) RETURNING id`,
		tenantID, label,
	).Scan(&id)
	if err != nil {
		t.Fatalf("testutil.SeedBus: %v", err)
	}
	return id
}

// SeedDriver inserts a driver owned by tenantID and returns its id.
func SeedDriver(t *testing.T, db Execer, tenantID uuid.UUID, name string) uuid.UUID {
	t.Helper()
	var id uuid.UUID
	err := db.QueryRow(context.Background(),
		`INSERT INTO drivers (tenant_id, name) VALUES ($1, $2) RETURNING id`,
		tenantID, name,
	).Scan(&id)
	if err != nil {
		t.Fatalf("testutil.SeedDriver: %v", err)
	}
	return id
}
