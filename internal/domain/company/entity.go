package company

import "time"

type Company struct {
	ID        string
	Name      string
	HQCountry string
	TaxID     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
