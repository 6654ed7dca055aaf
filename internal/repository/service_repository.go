package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/car-service/internal/domain"
)

// ErrStaleStatus is returned when a guarded update finds the request no longer
// in the status the caller validated against.
var ErrStaleStatus = errors.New("service request status changed concurrently")

// ServiceFilter captures staff/admin search parameters.
type ServiceFilter struct {
	ClientID    *string
	VehicleID   *string
	EmployeeID  *string
	Statuses    []domain.ServiceStatus
	Priorities  []domain.ServicePriority
	SearchTerm  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// ServiceRepository encapsulates service request persistence. Mutations go
// through UpdateGuarded so the status check, the field update and the history
// append commit or roll back as one unit.
type ServiceRepository interface {
	CreateWithHistory(ctx context.Context, svc *domain.ServiceRequest, entry *domain.ServiceHistory) error
	GetByID(ctx context.Context, id string) (*domain.ServiceRequest, error)
	ListWithFilter(ctx context.Context, filter ServiceFilter) ([]domain.ServiceRequest, error)
	UpdateGuarded(ctx context.Context, svc *domain.ServiceRequest, expected domain.ServiceStatus, entry *domain.ServiceHistory) error
	Delete(ctx context.Context, id string) error
	CountByStatus(ctx context.Context) (map[domain.ServiceStatus]int64, error)
}

type serviceRepository struct {
	pool *pgxpool.Pool
}

// NewServiceRepository instantiates repository.
func NewServiceRepository(pool *pgxpool.Pool) ServiceRepository {
	return &serviceRepository{pool: pool}
}

const serviceColumns = `id, external_key, client_id, vehicle_id, employee_id, status, priority,
               description, additional_notes, diagnosis, service_plan, parts_needed, notes,
               preferred_date, scheduled_date, estimated_cost, actual_cost, created_at, updated_at`

func (r *serviceRepository) CreateWithHistory(ctx context.Context, svc *domain.ServiceRequest, entry *domain.ServiceHistory) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const insertService = `
        INSERT INTO service_requests (external_key, client_id, vehicle_id, employee_id, status, priority,
            description, additional_notes, preferred_date)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, created_at, updated_at`
	if err := tx.QueryRow(ctx, insertService,
		svc.ExternalKey,
		svc.ClientID,
		svc.VehicleID,
		svc.EmployeeID,
		svc.Status,
		svc.Priority,
		svc.Description,
		svc.AdditionalNotes,
		svc.PreferredDate,
	).Scan(&svc.ID, &svc.CreatedAt, &svc.UpdatedAt); err != nil {
		return err
	}

	entry.ServiceID = svc.ID
	if err := insertHistory(ctx, tx, entry); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *serviceRepository) GetByID(ctx context.Context, id string) (*domain.ServiceRequest, error) {
	var svc domain.ServiceRequest
	if err := r.pool.QueryRow(ctx, `SELECT `+serviceColumns+` FROM service_requests WHERE id=$1`, id).Scan(
		scanTargets(&svc)...,
	); err != nil {
		return nil, err
	}
	return &svc, nil
}

// UpdateGuarded writes all mutable fields and appends the history entry in one
// transaction. The UPDATE is conditioned on the status the caller read; zero
// rows affected means another actor got there first.
func (r *serviceRepository) UpdateGuarded(ctx context.Context, svc *domain.ServiceRequest, expected domain.ServiceStatus, entry *domain.ServiceHistory) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const query = `
        UPDATE service_requests SET employee_id=$1, status=$2, priority=$3, description=$4,
            additional_notes=$5, diagnosis=$6, service_plan=$7, parts_needed=$8, notes=$9,
            preferred_date=$10, scheduled_date=$11, estimated_cost=$12, actual_cost=$13, updated_at=NOW()
        WHERE id=$14 AND status=$15`
	cmd, err := tx.Exec(ctx, query,
		svc.EmployeeID,
		svc.Status,
		svc.Priority,
		svc.Description,
		svc.AdditionalNotes,
		svc.Diagnosis,
		svc.ServicePlan,
		svc.PartsNeeded,
		svc.Notes,
		svc.PreferredDate,
		svc.ScheduledDate,
		svc.EstimatedCost,
		svc.ActualCost,
		svc.ID,
		expected,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM service_requests WHERE id=$1)`, svc.ID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return pgx.ErrNoRows
		}
		return ErrStaleStatus
	}

	entry.ServiceID = svc.ID
	if err := insertHistory(ctx, tx, entry); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Delete removes history entries and the request itself within one transaction.
func (r *serviceRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM service_history WHERE service_id=$1`, id); err != nil {
		return err
	}
	cmd, err := tx.Exec(ctx, `DELETE FROM service_requests WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return tx.Commit(ctx)
}

func (r *serviceRepository) ListWithFilter(ctx context.Context, filter ServiceFilter) ([]domain.ServiceRequest, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.ClientID != nil {
		args = append(args, *filter.ClientID)
		clauses = append(clauses, fmt.Sprintf("client_id=$%d", len(args)))
	}
	if filter.VehicleID != nil {
		args = append(args, *filter.VehicleID)
		clauses = append(clauses, fmt.Sprintf("vehicle_id=$%d", len(args)))
	}
	if filter.EmployeeID != nil {
		args = append(args, *filter.EmployeeID)
		clauses = append(clauses, fmt.Sprintf("employee_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(description) LIKE %s OR LOWER(diagnosis) LIKE %s)", placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM service_requests WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		serviceColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ServiceRequest
	for rows.Next() {
		var svc domain.ServiceRequest
		if err := rows.Scan(scanTargets(&svc)...); err != nil {
			return nil, err
		}
		result = append(result, svc)
	}
	return result, rows.Err()
}

func (r *serviceRepository) CountByStatus(ctx context.Context) (map[domain.ServiceStatus]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM service_requests GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.ServiceStatus]int64)
	for rows.Next() {
		var status domain.ServiceStatus
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func scanTargets(svc *domain.ServiceRequest) []any {
	return []any{
		&svc.ID,
		&svc.ExternalKey,
		&svc.ClientID,
		&svc.VehicleID,
		&svc.EmployeeID,
		&svc.Status,
		&svc.Priority,
		&svc.Description,
		&svc.AdditionalNotes,
		&svc.Diagnosis,
		&svc.ServicePlan,
		&svc.PartsNeeded,
		&svc.Notes,
		&svc.PreferredDate,
		&svc.ScheduledDate,
		&svc.EstimatedCost,
		&svc.ActualCost,
		&svc.CreatedAt,
		&svc.UpdatedAt,
	}
}

func insertHistory(ctx context.Context, tx pgx.Tx, entry *domain.ServiceHistory) error {
	const query = `
        INSERT INTO service_history (service_id, actor_id, category, description, created_at)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id`
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		return tx.QueryRow(ctx, `
        INSERT INTO service_history (service_id, actor_id, category, description)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`,
			entry.ServiceID, entry.ActorID, entry.Category, entry.Description,
		).Scan(&entry.ID, &entry.CreatedAt)
	}
	return tx.QueryRow(ctx, query,
		entry.ServiceID, entry.ActorID, entry.Category, entry.Description, createdAt,
	).Scan(&entry.ID)
}
