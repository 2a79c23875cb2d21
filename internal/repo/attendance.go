package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/shuttle-fleet/internal/domain"
)

// AttendanceRepo defines the persistence operations for AttendanceRecords.
type AttendanceRepo interface {
	// Upsert writes the record keyed by (tenant, service, worker): inserted on
	// first report, updated in place afterwards. Concurrent upserts of the
	// same key serialise on the unique index and the last one wins.
	Upsert(ctx context.Context, rec domain.AttendanceRecord) (domain.AttendanceRecord, error)

	// ListByService returns every record of a service ordered by worker_id.
	ListByService(ctx context.Context, tenantID, serviceID uuid.UUID) ([]domain.AttendanceRecord, error)

	// PresentByActiveService counts present workers per in-progress service.
	// Services with nobody present are absent from the map.
	PresentByActiveService(ctx context.Context, tenantID uuid.UUID) (map[uuid.UUID]int, error)
}

type pgAttendanceRepo struct {
	db db
}

// NewAttendanceRepo constructs an AttendanceRepo backed by the provided db connection.
func NewAttendanceRepo(db db) AttendanceRepo {
	return &pgAttendanceRepo{db: db}
}

const attendanceColumns = `id, tenant_id, service_id, worker_id, status, check_in_at, updated_at`

// Upsert uses ON CONFLICT DO UPDATE so the lookup and the write are one
// atomic statement; there is no window in which two rows could be inserted.
func (r *pgAttendanceRepo) Upsert(ctx context.Context, rec domain.AttendanceRecord) (domain.AttendanceRecord, error) {
	const q = `
		INSERT INTO attendance_records (tenant_id, service_id, worker_id, status, check_in_at, updated_at)
		VALUES (@tenant_id, @service_id, @worker_id, @status, @check_in_at, now())
		ON CONFLICT (tenant_id, service_id, worker_id) DO UPDATE
		SET status      = EXCLUDED.status,
		    check_in_at = EXCLUDED.check_in_at,
		    updated_at  = now()
		RETURNING ` + attendanceColumns

	args := pgx.NamedArgs{
		"tenant_id":   rec.TenantID,
		"service_id":  rec.ServiceID,
		"worker_id":   rec.WorkerID,
		"status":      string(rec.Status),
		"check_in_at": rec.CheckInAt, // nil becomes NULL
	}

	result, err := scanAttendance(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.AttendanceRecord{}, fmt.Errorf("repo.AttendanceRepo.Upsert: %w", translate(err))
	}
	return result, nil
}

func (r *pgAttendanceRepo) ListByService(ctx context.Context, tenantID, serviceID uuid.UUID) ([]domain.AttendanceRecord, error) {
	const q = `
		SELECT ` + attendanceColumns + `
		FROM attendance_records
		WHERE tenant_id = @tenant_id AND service_id = @service_id
		ORDER BY worker_id`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"tenant_id": tenantID, "service_id": serviceID})
	if err != nil {
		return nil, fmt.Errorf("repo.AttendanceRepo.ListByService: %w", err)
	}
	defer rows.Close()

	records := []domain.AttendanceRecord{}
	for rows.Next() {
		a, err := scanAttendance(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.AttendanceRepo.ListByService: scan: %w", err)
		}
		records = append(records, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.AttendanceRepo.ListByService: rows: %w", err)
	}
	return records, nil
}

func (r *pgAttendanceRepo) PresentByActiveService(ctx context.Context, tenantID uuid.UUID) (map[uuid.UUID]int, error) {
	const q = `
		SELECT a.service_id, count(*)
		FROM attendance_records a
		JOIN services s ON s.tenant_id = a.tenant_id AND s.id = a.service_id
		WHERE a.tenant_id = @tenant_id AND s.state = 'in_progress' AND a.status = 'present'
		GROUP BY a.service_id`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"tenant_id": tenantID})
	if err != nil {
		return nil, fmt.Errorf("repo.AttendanceRepo.PresentByActiveService: %w", err)
	}
	defer rows.Close()

	counts := map[uuid.UUID]int{}
	for rows.Next() {
		var (
			id pgtype.UUID
			n  int
		)
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("repo.AttendanceRepo.PresentByActiveService: scan: %w", err)
		}
		counts[toUUID(id)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.AttendanceRepo.PresentByActiveService: rows: %w", err)
	}
	return counts, nil
}

func scanAttendance(s scanner) (domain.AttendanceRecord, error) {
	var (
		a         domain.AttendanceRecord
		id        pgtype.UUID
		tenantID  pgtype.UUID
		serviceID pgtype.UUID
		workerID  pgtype.UUID
		status    string
		checkIn   pgtype.Timestamptz
	)
	if err := s.Scan(&id, &tenantID, &serviceID, &workerID, &status, &checkIn, &a.UpdatedAt); err != nil {
		return domain.AttendanceRecord{}, err
	}
	a.ID = toUUID(id)
	a.TenantID = toUUID(tenantID)
	a.ServiceID = toUUID(serviceID)
	a.WorkerID = toUUID(workerID)
	a.Status = domain.AttendanceStatus(status)
	if checkIn.Valid {
		t := checkIn.Time
		a.CheckInAt = &t
	}
	return a, nil
}
