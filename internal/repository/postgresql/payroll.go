package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/paylane/payroll-engine-go/internal/domain/payroll"
	"github.com/paylane/payroll-engine-go/internal/pkg/database"
)

type payrollRepository struct {
	db *database.DB
}

func NewPayrollRepository(db *database.DB) payroll.PayrollRepository {
	return &payrollRepository{db: db}
}

// ========== PAYROLLS ==========

func (r *payrollRepository) CreatePayroll(ctx context.Context, p payroll.Payroll) (payroll.Payroll, error) {
	q := GetQuerier(ctx, r.db)

	// uk_payroll_period is a partial unique index on (company_id, month,
	// year) WHERE status <> 'cancelled'.
	query := `
		INSERT INTO payrolls (id, company_id, month, year, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, company_id, month, year, status, created_at, updated_at
	`

	var created payroll.Payroll
	err := q.QueryRow(ctx, query, p.ID, p.CompanyID, p.Month, p.Year, p.Status).Scan(
		&created.ID, &created.CompanyID, &created.Month, &created.Year,
		&created.Status, &created.CreatedAt, &created.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return payroll.Payroll{}, payroll.ErrDuplicateRun
		}
		return payroll.Payroll{}, fmt.Errorf("failed to create payroll: %w", err)
	}

	return created, nil
}

func (r *payrollRepository) GetPayrollByID(ctx context.Context, id string, companyID string) (payroll.Payroll, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, company_id, month, year, status, created_at, updated_at
		FROM payrolls
		WHERE id = $1 AND company_id = $2
	`

	var p payroll.Payroll
	err := q.QueryRow(ctx, query, id, companyID).Scan(
		&p.ID, &p.CompanyID, &p.Month, &p.Year, &p.Status, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return payroll.Payroll{}, payroll.ErrPayrollNotFound
		}
		return payroll.Payroll{}, fmt.Errorf("failed to get payroll: %w", err)
	}

	return p, nil
}

func (r *payrollRepository) GetPayrollByPeriod(ctx context.Context, companyID string, month, year int) (payroll.Payroll, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, company_id, month, year, status, created_at, updated_at
		FROM payrolls
		WHERE company_id = $1 AND month = $2 AND year = $3 AND status != 'cancelled'
	`

	var p payroll.Payroll
	err := q.QueryRow(ctx, query, companyID, month, year).Scan(
		&p.ID, &p.CompanyID, &p.Month, &p.Year, &p.Status, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return payroll.Payroll{}, payroll.ErrPayrollNotFound
		}
		return payroll.Payroll{}, fmt.Errorf("failed to get payroll by period: %w", err)
	}

	return p, nil
}

func (r *payrollRepository) UpdatePayrollStatus(ctx context.Context, id string, from, to payroll.PayrollStatus) (bool, error) {
	q := GetQuerier(ctx, r.db)

	// Compare-and-set: the WHERE clause on the expected status is the
	// serialization point for the payroll state machine.
	query := `
		UPDATE payrolls
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`

	tag, err := q.Exec(ctx, query, to, id, from)
	if err != nil {
		return false, fmt.Errorf("failed to update payroll status: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// ========== ITEMS ==========

func (r *payrollRepository) CreateItems(ctx context.Context, items []payroll.PayrollItem) error {
	if len(items) == 0 {
		return nil
	}

	query := `
		INSERT INTO payroll_items (
			id, payroll_id, employee_id, company_id,
			gross_salary, net_salary, total_deductions, total_contributions,
			details, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (payroll_id, employee_id) DO NOTHING
	`

	return WithTransaction(ctx, r.db, func(ctx context.Context) error {
		q := GetQuerier(ctx, r.db)
		for _, item := range items {
			details, err := json.Marshal(item.Details)
			if err != nil {
				return fmt.Errorf("failed to marshal item details: %w", err)
			}
			if _, err := q.Exec(ctx, query,
				item.ID, item.PayrollID, item.EmployeeID, item.CompanyID,
				item.GrossSalary, item.NetSalary, item.TotalDeductions, item.TotalContributions,
				details, item.Status,
			); err != nil {
				return fmt.Errorf("failed to create payroll item: %w", err)
			}
		}
		return nil
	})
}

const itemColumns = `
	id, payroll_id, employee_id, company_id,
	gross_salary, net_salary, total_deductions, total_contributions,
	details, status, failure_code, permanent, created_at, updated_at
`

func scanItem(row pgx.Row) (payroll.PayrollItem, error) {
	var (
		item    payroll.PayrollItem
		details []byte
	)
	err := row.Scan(
		&item.ID, &item.PayrollID, &item.EmployeeID, &item.CompanyID,
		&item.GrossSalary, &item.NetSalary, &item.TotalDeductions, &item.TotalContributions,
		&details, &item.Status, &item.FailureCode, &item.Permanent,
		&item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return payroll.PayrollItem{}, err
	}
	if len(details) > 0 {
		if err := json.Unmarshal(details, &item.Details); err != nil {
			return payroll.PayrollItem{}, fmt.Errorf("failed to unmarshal item details: %w", err)
		}
	}
	return item, nil
}

func (r *payrollRepository) GetItemByID(ctx context.Context, id string, companyID string) (payroll.PayrollItem, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + itemColumns + ` FROM payroll_items WHERE id = $1 AND company_id = $2`

	item, err := scanItem(q.QueryRow(ctx, query, id, companyID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return payroll.PayrollItem{}, payroll.ErrPayrollItemNotFound
		}
		return payroll.PayrollItem{}, fmt.Errorf("failed to get payroll item: %w", err)
	}

	return item, nil
}

func (r *payrollRepository) ListItems(ctx context.Context, payrollID string) ([]payroll.PayrollItem, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + itemColumns + ` FROM payroll_items WHERE payroll_id = $1 ORDER BY created_at, id`

	rows, err := q.Query(ctx, query, payrollID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payroll items: %w", err)
	}
	defer rows.Close()

	var items []payroll.PayrollItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payroll item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list payroll items: %w", err)
	}

	return items, nil
}

func (r *payrollRepository) CompleteItem(ctx context.Context, item payroll.PayrollItem) (bool, error) {
	q := GetQuerier(ctx, r.db)

	details, err := json.Marshal(item.Details)
	if err != nil {
		return false, fmt.Errorf("failed to marshal item details: %w", err)
	}

	query := `
		UPDATE payroll_items
		SET status = 'completed',
			gross_salary = $1, net_salary = $2,
			total_deductions = $3, total_contributions = $4,
			details = $5, failure_code = '', updated_at = NOW()
		WHERE id = $6 AND status = 'pending'
	`

	tag, err := q.Exec(ctx, query,
		item.GrossSalary, item.NetSalary,
		item.TotalDeductions, item.TotalContributions,
		details, item.ID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to complete payroll item: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

func (r *payrollRepository) FailItem(ctx context.Context, id string, code string, permanent bool, from payroll.ItemStatus) (bool, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE payroll_items
		SET status = 'failed', failure_code = $1, permanent = $2, updated_at = NOW()
		WHERE id = $3 AND status = $4
	`

	tag, err := q.Exec(ctx, query, code, permanent, id, from)
	if err != nil {
		return false, fmt.Errorf("failed to fail payroll item: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

func (r *payrollRepository) ReopenItem(ctx context.Context, id string) (bool, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE payroll_items
		SET status = 'pending', failure_code = '', updated_at = NOW()
		WHERE id = $1 AND status = 'failed' AND permanent = FALSE
	`

	tag, err := q.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to reopen payroll item: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

func (r *payrollRepository) ReviewItem(ctx context.Context, id string) (bool, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE payroll_items
		SET status = 'reviewed', updated_at = NOW()
		WHERE id = $1 AND status = 'completed'
	`

	tag, err := q.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to review payroll item: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

func (r *payrollRepository) CountItemsByStatus(ctx context.Context, payrollID string) (payroll.RunSummary, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT status, COUNT(*)
		FROM payroll_items
		WHERE payroll_id = $1
		GROUP BY status
	`

	rows, err := q.Query(ctx, query, payrollID)
	if err != nil {
		return payroll.RunSummary{}, fmt.Errorf("failed to count payroll items: %w", err)
	}
	defer rows.Close()

	var summary payroll.RunSummary
	for rows.Next() {
		var (
			status payroll.ItemStatus
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return payroll.RunSummary{}, fmt.Errorf("failed to scan item count: %w", err)
		}
		switch status {
		case payroll.ItemStatusPending:
			summary.Pending = count
		case payroll.ItemStatusCompleted:
			summary.Completed = count
		case payroll.ItemStatusReviewed:
			summary.Reviewed = count
		case payroll.ItemStatusFailed:
			summary.Failed = count
		}
	}
	if err := rows.Err(); err != nil {
		return payroll.RunSummary{}, fmt.Errorf("failed to count payroll items: %w", err)
	}

	return summary, nil
}
