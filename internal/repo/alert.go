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

// AlertRepo defines the persistence operations for Alerts.
type AlertRepo interface {
	// CreatePendingIfAbsent inserts a pending alert unless one of the same
	// type is already pending for the same service. The check and insert are
	// a single statement against the partial unique index, so overlapping
	// scans cannot both insert. created is false when an alert already existed.
	CreatePendingIfAbsent(ctx context.Context, alert domain.Alert) (result domain.Alert, created bool, err error)

	// ListActive returns one page of the tenant's pending and acknowledged
	// alerts, newest first, and the total count of such alerts.
	ListActive(ctx context.Context, tenantID uuid.UUID, p domain.PaginationParams) ([]domain.Alert, int64, error)
}

type pgAlertRepo struct {
	db db
}

// NewAlertRepo constructs an AlertRepo backed by the provided db connection.
func NewAlertRepo(db db) AlertRepo {
	return &pgAlertRepo{db: db}
}

const alertColumns = `id, tenant_id, service_id, type, severity, message, state, created_at`

// CreatePendingIfAbsent relies on ON CONFLICT DO NOTHING: when the dedup
// index rejects the row, RETURNING yields nothing and pgx reports ErrNoRows.
func (r *pgAlertRepo) CreatePendingIfAbsent(ctx context.Context, alert domain.Alert) (domain.Alert, bool, error) {
	const q = `
		INSERT INTO alerts (tenant_id, service_id, type, severity, message, state)
		VALUES (@tenant_id, @service_id, @type, @severity, @message, 'pending')
		ON CONFLICT (tenant_id, service_id, type) WHERE state = 'pending' DO NOTHING
		RETURNING ` + alertColumns

	args := pgx.NamedArgs{
		"tenant_id":  alert.TenantID,
		"service_id": alert.ServiceID, // nil becomes NULL
		"type":       string(alert.Type),
		"severity":   string(alert.Severity),
		"message":    alert.Message,
	}

	result, err := scanAlert(r.db.QueryRow(ctx, q, args))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Alert{}, false, nil
	}
	if err != nil {
		return domain.Alert{}, false, fmt.Errorf("repo.AlertRepo.CreatePendingIfAbsent: %w", translate(err))
	}
	return result, true, nil
}

func (r *pgAlertRepo) ListActive(ctx context.Context, tenantID uuid.UUID, p domain.PaginationParams) ([]domain.Alert, int64, error) {
	const countQ = `
		SELECT count(*) FROM alerts
		WHERE tenant_id = @tenant_id AND state IN ('pending', 'acknowledged')`

	const q = `
		SELECT ` + alertColumns + `
		FROM alerts
		WHERE tenant_id = @tenant_id AND state IN ('pending', 'acknowledged')
		ORDER BY created_at DESC, id
		LIMIT @limit OFFSET @offset`

	var total int64
	if err := r.db.QueryRow(ctx, countQ, pgx.NamedArgs{"tenant_id": tenantID}).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repo.AlertRepo.ListActive: count: %w", err)
	}

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{
		"tenant_id": tenantID,
		"limit":     p.Limit,
		"offset":    p.Offset(),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("repo.AlertRepo.ListActive: %w", err)
	}
	defer rows.Close()

	alerts := []domain.Alert{}
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("repo.AlertRepo.ListActive: scan: %w", err)
		}
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("repo.AlertRepo.ListActive: rows: %w", err)
	}
	return alerts, total, nil
}

func scanAlert(s scanner) (domain.Alert, error) {
	var (
		a         domain.Alert
		id        pgtype.UUID
		tenantID  pgtype.UUID
		serviceID pgtype.UUID
		typ       string
		severity  string
		state     string
	)
	if err := s.Scan(&id, &tenantID, &serviceID, &typ, &severity, &a.Message, &state, &a.CreatedAt); err != nil {
		return domain.Alert{}, err
	}
	a.ID = toUUID(id)
	a.TenantID = toUUID(tenantID)
	a.ServiceID = toUUIDPtr(serviceID)
	a.Type = domain.AlertType(typ)
	a.Severity = domain.Severity(severity)
	a.State = domain.AlertState(state)
	return a, nil
}
