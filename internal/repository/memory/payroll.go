package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/paylane/payroll-engine-go/internal/domain/payroll"
)

// PayrollRepository is an in-memory payroll.PayrollRepository with the
// same compare-and-set semantics as the PostgreSQL implementation. It is
// safe for concurrent use; the engine's item workers hit it in parallel.
type PayrollRepository struct {
	mu       sync.RWMutex
	payrolls map[string]payroll.Payroll
	items    map[string]payroll.PayrollItem
	seq      int
	itemSeq  map[string]int
}

func NewPayrollRepository() *PayrollRepository {
	return &PayrollRepository{
		payrolls: make(map[string]payroll.Payroll),
		items:    make(map[string]payroll.PayrollItem),
		itemSeq:  make(map[string]int),
	}
}

func (r *PayrollRepository) CreatePayroll(_ context.Context, p payroll.Payroll) (payroll.Payroll, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.payrolls {
		if existing.CompanyID == p.CompanyID && existing.Month == p.Month && existing.Year == p.Year &&
			existing.Status != payroll.PayrollStatusCancelled {
			return payroll.Payroll{}, payroll.ErrDuplicateRun
		}
	}

	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	r.payrolls[p.ID] = p
	return p, nil
}

func (r *PayrollRepository) GetPayrollByID(_ context.Context, id string, companyID string) (payroll.Payroll, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.payrolls[id]
	if !ok || p.CompanyID != companyID {
		return payroll.Payroll{}, payroll.ErrPayrollNotFound
	}
	return p, nil
}

func (r *PayrollRepository) GetPayrollByPeriod(_ context.Context, companyID string, month, year int) (payroll.Payroll, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.payrolls {
		if p.CompanyID == companyID && p.Month == month && p.Year == year &&
			p.Status != payroll.PayrollStatusCancelled {
			return p, nil
		}
	}
	return payroll.Payroll{}, payroll.ErrPayrollNotFound
}

func (r *PayrollRepository) UpdatePayrollStatus(_ context.Context, id string, from, to payroll.PayrollStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.payrolls[id]
	if !ok {
		return false, payroll.ErrPayrollNotFound
	}
	if p.Status != from {
		return false, nil
	}
	p.Status = to
	p.UpdatedAt = time.Now().UTC()
	r.payrolls[id] = p
	return true, nil
}

func (r *PayrollRepository) CreateItems(_ context.Context, items []payroll.PayrollItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	for _, item := range items {
		if r.hasItemLocked(item.PayrollID, item.EmployeeID) {
			continue
		}
		item.CreatedAt = now
		item.UpdatedAt = now
		r.items[item.ID] = item
		r.seq++
		r.itemSeq[item.ID] = r.seq
	}
	return nil
}

func (r *PayrollRepository) hasItemLocked(payrollID, employeeID string) bool {
	for _, item := range r.items {
		if item.PayrollID == payrollID && item.EmployeeID == employeeID {
			return true
		}
	}
	return false
}

func (r *PayrollRepository) GetItemByID(_ context.Context, id string, companyID string) (payroll.PayrollItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	if !ok || item.CompanyID != companyID {
		return payroll.PayrollItem{}, payroll.ErrPayrollItemNotFound
	}
	return item, nil
}

func (r *PayrollRepository) ListItems(_ context.Context, payrollID string) ([]payroll.PayrollItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var items []payroll.PayrollItem
	for _, item := range r.items {
		if item.PayrollID == payrollID {
			items = append(items, item)
		}
	}
	// Insertion order, matching the PostgreSQL ORDER BY.
	sort.Slice(items, func(i, j int) bool {
		return r.itemSeq[items[i].ID] < r.itemSeq[items[j].ID]
	})
	return items, nil
}

func (r *PayrollRepository) CompleteItem(_ context.Context, item payroll.PayrollItem) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[item.ID]
	if !ok {
		return false, payroll.ErrPayrollItemNotFound
	}
	if current.Status != payroll.ItemStatusPending {
		return false, nil
	}
	current.Status = payroll.ItemStatusCompleted
	current.GrossSalary = item.GrossSalary
	current.NetSalary = item.NetSalary
	current.TotalDeductions = item.TotalDeductions
	current.TotalContributions = item.TotalContributions
	current.Details = item.Details
	current.FailureCode = ""
	current.UpdatedAt = time.Now().UTC()
	r.items[item.ID] = current
	return true, nil
}

func (r *PayrollRepository) FailItem(_ context.Context, id string, code string, permanent bool, from payroll.ItemStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[id]
	if !ok {
		return false, payroll.ErrPayrollItemNotFound
	}
	if current.Status != from {
		return false, nil
	}
	current.Status = payroll.ItemStatusFailed
	current.FailureCode = code
	current.Permanent = permanent
	current.UpdatedAt = time.Now().UTC()
	r.items[id] = current
	return true, nil
}

func (r *PayrollRepository) ReopenItem(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[id]
	if !ok {
		return false, payroll.ErrPayrollItemNotFound
	}
	if current.Status != payroll.ItemStatusFailed || current.Permanent {
		return false, nil
	}
	current.Status = payroll.ItemStatusPending
	current.FailureCode = ""
	current.UpdatedAt = time.Now().UTC()
	r.items[id] = current
	return true, nil
}

func (r *PayrollRepository) ReviewItem(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[id]
	if !ok {
		return false, payroll.ErrPayrollItemNotFound
	}
	if current.Status != payroll.ItemStatusCompleted {
		return false, nil
	}
	current.Status = payroll.ItemStatusReviewed
	current.UpdatedAt = time.Now().UTC()
	r.items[id] = current
	return true, nil
}

func (r *PayrollRepository) CountItemsByStatus(_ context.Context, payrollID string) (payroll.RunSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var summary payroll.RunSummary
	for _, item := range r.items {
		if item.PayrollID != payrollID {
			continue
		}
		switch item.Status {
		case payroll.ItemStatusPending:
			summary.Pending++
		case payroll.ItemStatusCompleted:
			summary.Completed++
		case payroll.ItemStatusReviewed:
			summary.Reviewed++
		case payroll.ItemStatusFailed:
			summary.Failed++
		}
	}
	return summary, nil
}
