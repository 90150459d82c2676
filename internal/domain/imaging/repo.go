package imaging

import (
	"context"
	"errors"
)

// ErrNotFound is returned by repositories when a lookup matches no row.
var ErrNotFound = errors.New("imaging: not found")

type PatientRepository interface {
	List(ctx context.Context) ([]*Patient, error)
	// Search matches term as a case-insensitive substring of the name or id.
	Search(ctx context.Context, term string) ([]*Patient, error)
	GetByID(ctx context.Context, id string) (*Patient, error)
	Upsert(ctx context.Context, p *Patient) error
}

type StudyRepository interface {
	ListByPatient(ctx context.Context, patientID string) ([]*Study, error)
	GetByUID(ctx context.Context, uid string) (*Study, error)
	Upsert(ctx context.Context, s *Study) error
}
