package imaging

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// TxFunc runs fn atomically. db.WithTx bound to a pool satisfies it.
type TxFunc func(ctx context.Context, fn func(ctx context.Context) error) error

type Service struct {
	patients PatientRepository
	studies  StudyRepository
	logger   zerolog.Logger
	tx       TxFunc
}

func NewService(patients PatientRepository, studies StudyRepository, logger zerolog.Logger) *Service {
	return &Service{
		patients: patients,
		studies:  studies,
		logger:   logger.With().Str("component", "imaging").Logger(),
		tx: func(ctx context.Context, fn func(ctx context.Context) error) error {
			return fn(ctx)
		},
	}
}

// WithTx makes Import run inside tx.
func (s *Service) WithTx(tx TxFunc) *Service {
	s.tx = tx
	return s
}

// -- Patients --

func (s *Service) ListPatients(ctx context.Context) ([]*Patient, error) {
	patients, err := s.patients.List(ctx)
	if err != nil {
		return nil, err
	}
	s.warnPatients(patients)
	return patients, nil
}

// SearchPatients lists every patient for an empty term or "all".
func (s *Service) SearchPatients(ctx context.Context, term string) ([]*Patient, error) {
	term = strings.TrimSpace(term)
	if term == "" || strings.EqualFold(term, "all") {
		return s.ListPatients(ctx)
	}
	patients, err := s.patients.Search(ctx, term)
	if err != nil {
		return nil, err
	}
	s.warnPatients(patients)
	return patients, nil
}

// GetPatient returns an empty Patient when id is blank or unknown.
func (s *Service) GetPatient(ctx context.Context, id string) (*Patient, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return &Patient{}, nil
	}
	p, err := s.patients.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		s.logger.Info().Str("patient_id", id).Msg("patient not found")
		return &Patient{}, nil
	}
	if err != nil {
		return nil, err
	}
	s.warnPatients([]*Patient{p})
	return p, nil
}

func (s *Service) warnPatients(patients []*Patient) {
	for _, p := range patients {
		for _, issue := range p.Issues() {
			s.logger.Warn().Str("patient_id", orUnknown(p.ID)).Msg(issue)
		}
	}
}

// -- Studies --

// ListStudies returns nothing for a blank patient id.
func (s *Service) ListStudies(ctx context.Context, patientID string) ([]*Study, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return nil, nil
	}
	studies, err := s.studies.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	for _, st := range studies {
		s.warnStudy(st, patientID)
	}
	return studies, nil
}

// GetStudy returns an empty Study when uid is blank or unknown.
func (s *Service) GetStudy(ctx context.Context, uid string) (*Study, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return &Study{}, nil
	}
	st, err := s.studies.GetByUID(ctx, uid)
	if errors.Is(err, ErrNotFound) {
		s.logger.Info().Str("study_uid", uid).Msg("study not found")
		return &Study{}, nil
	}
	if err != nil {
		return nil, err
	}
	s.warnStudy(st, "")
	return st, nil
}

func (s *Service) warnStudy(st *Study, expectedPatient string) {
	for _, issue := range st.Issues(expectedPatient) {
		s.logger.Warn().Str("study_uid", orUnknown(st.InstanceUID)).Msg(issue)
	}
}

// -- Import --

// Batch is a set of rows loaded together, typically from a site export.
type Batch struct {
	Patients []*Patient `json:"patients" yaml:"patients"`
	Studies  []*Study   `json:"studies" yaml:"studies"`
}

// Import upserts every patient and then every study in one transaction.
func (s *Service) Import(ctx context.Context, b Batch) error {
	for _, p := range b.Patients {
		if p.ID == "" {
			return fmt.Errorf("import: patient without id")
		}
	}
	for _, st := range b.Studies {
		if st.InstanceUID == "" {
			return fmt.Errorf("import: study without instance uid")
		}
	}

	return s.tx(ctx, func(ctx context.Context) error {
		for _, p := range b.Patients {
			if err := s.patients.Upsert(ctx, p); err != nil {
				return err
			}
		}
		for _, st := range b.Studies {
			if err := s.studies.Upsert(ctx, st); err != nil {
				return err
			}
		}
		s.logger.Info().
			Int("patients", len(b.Patients)).
			Int("studies", len(b.Studies)).
			Msg("imaging batch imported")
		return nil
	})
}

func orUnknown(id string) string {
	if id == "" {
		return "UNKNOWN"
	}
	return id
}
