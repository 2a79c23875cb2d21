package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/shuttle-fleet/internal/domain"
)

// TenantRepo is the read side of the tenant configuration collaborator.
type TenantRepo interface {
	// GetByID returns the tenant and its configured thresholds.
	// Returns domain.ErrNotFound if the tenant does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Tenant, error)

	// ListIDs returns every tenant id, used by the multi-tenant scan loop.
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
}

type pgTenantRepo struct {
	db db
}

// NewTenantRepo constructs a TenantRepo backed by the provided db connection.
func NewTenantRepo(db db) TenantRepo {
	return &pgTenantRepo{db: db}
}

func (r *pgTenantRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Tenant, error) {
	const q = `SELECT id, name, delay_tolerance_minutes FROM tenants WHERE id = @id`

	var (
		t         domain.Tenant
		tid       pgtype.UUID
		tolerance pgtype.Int4
	)
	err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}).Scan(&tid, &t.Name, &tolerance)
	if err != nil {
		return domain.Tenant{}, fmt.Errorf("repo.TenantRepo.GetByID: %w", translate(err))
	}
	t.ID = toUUID(tid)
	if tolerance.Valid {
		v := int(tolerance.Int32)
		t.DelayToleranceMinutes = &v
	}
	return t, nil
}

func (r *pgTenantRepo) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM tenants ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("repo.TenantRepo.ListIDs: %w", err)
	}
	defer rows.Close()

	ids := []uuid.UUID{}
	for rows.Next() {
		var id pgtype.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("repo.TenantRepo.ListIDs: scan: %w", err)
		}
		ids = append(ids, toUUID(id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.TenantRepo.ListIDs: rows: %w", err)
	}
	return ids, nil
}
