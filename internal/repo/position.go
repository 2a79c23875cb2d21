package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/shuttle-fleet/internal/domain"
)

// PositionRepo defines the persistence operations for PositionFixes.
// The table is append-only: there is no update or delete.
type PositionRepo interface {
	// Append inserts a fix and returns it with its DB-generated id. The insert
	// only happens while the service is in progress, checked in the same
	// statement. Returns domain.ErrServiceNotActive otherwise, including when
	// the service does not exist.
	Append(ctx context.Context, fix domain.PositionFix) (domain.PositionFix, error)

	// LatestFor returns the most recent fix of a service.
	// Returns domain.ErrNotFound if the service has no fixes yet.
	LatestFor(ctx context.Context, tenantID, serviceID uuid.UUID) (domain.PositionFix, error)

	// LatestForActive returns the most recent fix of every in-progress service
	// of the tenant that has at least one. One row per service; it never scans
	// a service's full history.
	LatestForActive(ctx context.Context, tenantID uuid.UUID) (map[uuid.UUID]domain.PositionFix, error)

	// History returns up to limit fixes of a service, newest first.
	History(ctx context.Context, tenantID, serviceID uuid.UUID, limit int) ([]domain.PositionFix, error)
}

type pgPositionRepo struct {
	db db
}

// NewPositionRepo constructs a PositionRepo backed by the provided db connection.
func NewPositionRepo(db db) PositionRepo {
	return &pgPositionRepo{db: db}
}

const fixColumns = `p.id, p.tenant_id, p.service_id, p.lat, p.lng, p.captured_at`

func (r *pgPositionRepo) Append(ctx context.Context, fix domain.PositionFix) (domain.PositionFix, error) {
	const q = `
		INSERT INTO position_fixes AS p (tenant_id, service_id, lat, lng, captured_at)
		SELECT s.tenant_id, s.id, @lat, @lng, @captured_at
		FROM services s
		WHERE s.tenant_id = @tenant_id AND s.id = @service_id AND s.state = 'in_progress'
		RETURNING ` + fixColumns

	args := pgx.NamedArgs{
		"tenant_id":   fix.TenantID,
		"service_id":  fix.ServiceID,
		"lat":         fix.Lat,
		"lng":         fix.Lng,
		"captured_at": fix.CapturedAt,
	}

	result, err := scanFix(r.db.QueryRow(ctx, q, args))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.PositionFix{}, fmt.Errorf("repo.PositionRepo.Append: %w", domain.ErrServiceNotActive)
	}
	if err != nil {
		return domain.PositionFix{}, fmt.Errorf("repo.PositionRepo.Append: %w", translate(err))
	}
	return result, nil
}

func (r *pgPositionRepo) LatestFor(ctx context.Context, tenantID, serviceID uuid.UUID) (domain.PositionFix, error) {
	const q = `
		SELECT ` + fixColumns + `
		FROM position_fixes p
		WHERE p.tenant_id = @tenant_id AND p.service_id = @service_id
		ORDER BY p.captured_at DESC, p.id DESC
		LIMIT 1`

	result, err := scanFix(r.db.QueryRow(ctx, q, pgx.NamedArgs{"tenant_id": tenantID, "service_id": serviceID}))
	if err != nil {
		return domain.PositionFix{}, fmt.Errorf("repo.PositionRepo.LatestFor: %w", translate(err))
	}
	return result, nil
}

// LatestForActive uses a LATERAL top-1 per in-progress service so the cost
// is bounded by the number of active services, each resolved by an index probe.
func (r *pgPositionRepo) LatestForActive(ctx context.Context, tenantID uuid.UUID) (map[uuid.UUID]domain.PositionFix, error) {
	const q = `
		SELECT ` + fixColumns + `
		FROM services s
		CROSS JOIN LATERAL (
			SELECT *
			FROM position_fixes f
			WHERE f.tenant_id = s.tenant_id AND f.service_id = s.id
			ORDER BY f.captured_at DESC, f.id DESC
			LIMIT 1
		) p
		WHERE s.tenant_id = @tenant_id AND s.state = 'in_progress'`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"tenant_id": tenantID})
	if err != nil {
		return nil, fmt.Errorf("repo.PositionRepo.LatestForActive: %w", err)
	}
	defer rows.Close()

	fixes := map[uuid.UUID]domain.PositionFix{}
	for rows.Next() {
		f, err := scanFix(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.PositionRepo.LatestForActive: scan: %w", err)
		}
		fixes[f.ServiceID] = f
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.PositionRepo.LatestForActive: rows: %w", err)
	}
	return fixes, nil
}

func (r *pgPositionRepo) History(ctx context.Context, tenantID, serviceID uuid.UUID, limit int) ([]domain.PositionFix, error) {
	const q = `
		SELECT ` + fixColumns + `
		FROM position_fixes p
		WHERE p.tenant_id = @tenant_id AND p.service_id = @service_id
		ORDER BY p.captured_at DESC, p.id DESC
		LIMIT @limit`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"tenant_id": tenantID, "service_id": serviceID, "limit": limit})
	if err != nil {
		return nil, fmt.Errorf("repo.PositionRepo.History: %w", err)
	}
	defer rows.Close()

	fixes := []domain.PositionFix{}
	for rows.Next() {
		f, err := scanFix(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.PositionRepo.History: scan: %w", err)
		}
		fixes = append(fixes, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.PositionRepo.History: rows: %w", err)
	}
	return fixes, nil
}

func scanFix(s scanner) (domain.PositionFix, error) {
	var (
		f         domain.PositionFix
		id        pgtype.UUID
		tenantID  pgtype.UUID
		serviceID pgtype.UUID
	)
	if err := s.Scan(&id, &tenantID, &serviceID, &f.Lat, &f.Lng, &f.CapturedAt); err != nil {
		return domain.PositionFix{}, err
	}
	f.ID = toUUID(id)
	f.TenantID = toUUID(tenantID)
	f.ServiceID = toUUID(serviceID)
	return f, nil
}
