package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/paylane/payroll-engine-go/internal/domain/employee"
)

// EmployeeRepository is an in-memory employee.EmployeeRepository.
type EmployeeRepository struct {
	mu        sync.RWMutex
	employees map[string]employee.Employee
	seq       map[string]int
	next      int
}

func NewEmployeeRepository() *EmployeeRepository {
	return &EmployeeRepository{
		employees: make(map[string]employee.Employee),
		seq:       make(map[string]int),
	}
}

// Put inserts or replaces an employee. Test fixtures and embedders seed
// the roster through this.
func (r *EmployeeRepository) Put(e employee.Employee) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.seq[e.ID]; !ok {
		r.next++
		r.seq[e.ID] = r.next
	}
	r.employees[e.ID] = e
}

func (r *EmployeeRepository) GetByID(_ context.Context, id string, companyID string) (employee.Employee, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.employees[id]
	if !ok || e.CompanyID != companyID {
		return employee.Employee{}, employee.ErrEmployeeNotFound
	}
	return e, nil
}

func (r *EmployeeRepository) ListByCompanyID(_ context.Context, companyID string) ([]employee.Employee, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var roster []employee.Employee
	for _, e := range r.employees {
		if e.CompanyID == companyID {
			roster = append(roster, e)
		}
	}
	sort.Slice(roster, func(i, j int) bool {
		return r.seq[roster[i].ID] < r.seq[roster[j].ID]
	})
	return roster, nil
}
