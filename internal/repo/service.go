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

// ServiceRepo defines the persistence operations for Services.
// The service layer depends on this interface, not the concrete Postgres
// implementation, which allows it to be unit-tested with a mock.
type ServiceRepo interface {
	// Create inserts a new service and returns the persisted record with
	// DB-generated id and timestamps, and the bus/driver labels joined in.
	// Returns domain.ErrValidation if the bus or driver does not exist in the tenant.
	Create(ctx context.Context, svc domain.Service) (domain.Service, error)

	// GetByID retrieves a single service scoped to tenantID.
	// Returns domain.ErrNotFound if no such service exists in that tenant.
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (domain.Service, error)

	// ListByState returns every service of the tenant in the given state,
	// ordered by scheduled_start ascending.
	ListByState(ctx context.Context, tenantID uuid.UUID, state domain.ServiceState) ([]domain.Service, error)

	// UpdateState moves a service from `from` to `to` only if it is still in
	// `from`. Returns domain.ErrConflict if the row exists but its state has
	// already changed, domain.ErrNotFound if it does not exist.
	UpdateState(ctx context.Context, tenantID, id uuid.UUID, from, to domain.ServiceState) (domain.Service, error)
}

// pgServiceRepo is the Postgres implementation of ServiceRepo.
type pgServiceRepo struct {
	db db
}

// NewServiceRepo constructs a ServiceRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewServiceRepo(db db) ServiceRepo {
	return &pgServiceRepo{db: db}
}

// serviceColumns is the select list every service query shares. The joins
// are LEFT so a service stays visible even if its bus row is renamed away.
const serviceColumns = `
	s.id, s.tenant_id, s.scheduled_start, s.shift, s.stops, s.bus_id, s.driver_id,
	s.state, s.created_at, s.updated_at, COALESCE(b.label, ''), COALESCE(d.name, '')`

const serviceJoins = `
	LEFT JOIN buses   b ON b.tenant_id = s.tenant_id AND b.id = s.bus_id
	LEFT JOIN drivers d ON d.tenant_id = s.tenant_id AND d.id = s.driver_id`

// Create inserts a service row and returns it joined with its labels.
func (r *pgServiceRepo) Create(ctx context.Context, svc domain.Service) (domain.Service, error) {
	const q = `
		WITH s AS (
			INSERT INTO services (tenant_id, scheduled_start, shift, stops, bus_id, driver_id, state)
			VALUES (@tenant_id, @scheduled_start, @shift, @stops, @bus_id, @driver_id, @state)
			RETURNING *
		)
		SELECT ` + serviceColumns + ` FROM s` + serviceJoins

	args := pgx.NamedArgs{
		"tenant_id":       svc.TenantID,
		"scheduled_start": svc.ScheduledStart,
		"shift":           svc.Shift,
		"stops":           svc.Stops,
		"bus_id":          svc.BusID,
		"driver_id":       svc.DriverID,
		"state":           string(svc.State),
	}

	result, err := scanService(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Service{}, fmt.Errorf("repo.ServiceRepo.Create: %w", translate(err))
	}
	return result, nil
}

// GetByID retrieves a service by primary key within a tenant.
func (r *pgServiceRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (domain.Service, error) {
	const q = `SELECT ` + serviceColumns + ` FROM services s` + serviceJoins + `
		WHERE s.tenant_id = @tenant_id AND s.id = @id`

	result, err := scanService(r.db.QueryRow(ctx, q, pgx.NamedArgs{"tenant_id": tenantID, "id": id}))
	if err != nil {
		return domain.Service{}, fmt.Errorf("repo.ServiceRepo.GetByID: %w", translate(err))
	}
	return result, nil
}

// ListByState returns the tenant's services in state, earliest start first.
func (r *pgServiceRepo) ListByState(ctx context.Context, tenantID uuid.UUID, state domain.ServiceState) ([]domain.Service, error) {
	const q = `SELECT ` + serviceColumns + ` FROM services s` + serviceJoins + `
		WHERE s.tenant_id = @tenant_id AND s.state = @state
		ORDER BY s.scheduled_start, s.id`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"tenant_id": tenantID, "state": string(state)})
	if err != nil {
		return nil, fmt.Errorf("repo.ServiceRepo.ListByState: %w", err)
	}
	defer rows.Close()

	services := []domain.Service{}
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.ServiceRepo.ListByState: scan: %w", err)
		}
		services = append(services, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.ServiceRepo.ListByState: rows: %w", err)
	}
	return services, nil
}

// UpdateState performs a compare-and-swap on the state column.
func (r *pgServiceRepo) UpdateState(ctx context.Context, tenantID, id uuid.UUID, from, to domain.ServiceState) (domain.Service, error) {
	const q = `
		WITH s AS (
			UPDATE services
			SET state = @to, updated_at = now()
			WHERE tenant_id = @tenant_id AND id = @id AND state = @from
			RETURNING *
		)
		SELECT ` + serviceColumns + ` FROM s` + serviceJoins

	args := pgx.NamedArgs{
		"tenant_id": tenantID,
		"id":        id,
		"from":      string(from),
		"to":        string(to),
	}

	result, err := scanService(r.db.QueryRow(ctx, q, args))
	if err == nil {
		return result, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.Service{}, fmt.Errorf("repo.ServiceRepo.UpdateState: %w", translate(err))
	}

	// No row matched: either the service is gone or someone moved it first.
	if _, getErr := r.GetByID(ctx, tenantID, id); getErr != nil {
		return domain.Service{}, fmt.Errorf("repo.ServiceRepo.UpdateState: %w", getErr)
	}
	return domain.Service{}, fmt.Errorf("repo.ServiceRepo.UpdateState: state is no longer %s: %w", from, domain.ErrConflict)
}

// scanService maps a single row shaped by serviceColumns into a domain.Service.
func scanService(s scanner) (domain.Service, error) {
	var (
		svc      domain.Service
		id       pgtype.UUID
		tenantID pgtype.UUID
		busID    pgtype.UUID
		driverID pgtype.UUID
		state    string
	)

	err := s.Scan(
		&id, &tenantID, &svc.ScheduledStart, &svc.Shift, &svc.Stops, &busID, &driverID,
		&state, &svc.CreatedAt, &svc.UpdatedAt, &svc.BusLabel, &svc.DriverName,
	)
	if err != nil {
		return domain.Service{}, err
	}

	svc.ID = toUUID(id)
	svc.TenantID = toUUID(tenantID)
	svc.BusID = toUUID(busID)
	svc.DriverID = toUUID(driverID)
	svc.State = domain.ServiceState(state)
	return svc, nil
}
