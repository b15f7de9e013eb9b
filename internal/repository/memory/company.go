package memory

import (
	"context"
	"sync"

	"github.com/paylane/payroll-engine-go/internal/domain/company"
)

// CompanyRepository is an in-memory company.CompanyRepository.
type CompanyRepository struct {
	mu        sync.RWMutex
	companies map[string]company.Company
}

func NewCompanyRepository() *CompanyRepository {
	return &CompanyRepository{companies: make(map[string]company.Company)}
}

func (r *CompanyRepository) Put(c company.Company) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.companies[c.ID] = c
}

func (r *CompanyRepository) GetByID(_ context.Context, id string) (company.Company, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.companies[id]
	if !ok {
		return company.Company{}, company.ErrCompanyNotFound
	}
	return c, nil
}
