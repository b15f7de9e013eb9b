package company

import (
	"context"
	"errors"
)

var ErrCompanyNotFound = errors.New("company not found")

type CompanyRepository interface {
	GetByID(ctx context.Context, id string) (Company, error)
}
