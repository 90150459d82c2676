// Package report turns stored imaging studies into validated CDA documents
// and archives the accepted ones.
package report

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ehr/cdareport/internal/domain/imaging"
	"github.com/ehr/cdareport/internal/platform/cda"
)

// ErrRejected is returned by Produce when persistence was requested for a
// document that failed schema validation.
var ErrRejected = errors.New("report: document failed schema validation")

// Source looks up the inputs of a report. Unknown ids yield empty records.
type Source interface {
	GetPatient(ctx context.Context, id string) (*imaging.Patient, error)
	GetStudy(ctx context.Context, uid string) (*imaging.Study, error)
}

// Archiver persists accepted documents. archive.Store satisfies it.
type Archiver interface {
	Enabled() bool
	Save(doc *cda.GeneratedDocument, patient cda.Patient, study cda.Study) (string, error)
}

type Service struct {
	source  Source
	gen     *cda.Generator
	archive Archiver
	log     ArchiveLog
	logger  zerolog.Logger
}

func NewService(source Source, gen *cda.Generator, archive Archiver, logger zerolog.Logger) *Service {
	return &Service{
		source:  source,
		gen:     gen,
		archive: archive,
		logger:  logger.With().Str("component", "report").Logger(),
	}
}

// WithArchiveLog records every archived document in l.
func (s *Service) WithArchiveLog(l ArchiveLog) *Service {
	s.log = l
	return s
}

// Produce generates and validates the report for patientID and studyUID.
// With persist set, an accepted document is saved to the archive; a rejected
// one is returned together with ErrRejected and never written.
func (s *Service) Produce(ctx context.Context, patientID, studyUID string, persist bool) (*Outcome, error) {
	patient, err := s.source.GetPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("report: load patient: %w", err)
	}
	study, err := s.source.GetStudy(ctx, studyUID)
	if err != nil {
		return nil, fmt.Errorf("report: load study: %w", err)
	}

	pt, st := patient.ToCDA(), study.ToCDA()
	doc, err := s.gen.GenerateAndValidate(pt, st)
	if err != nil {
		return nil, err
	}

	out := &Outcome{PatientID: pt.ID, StudyUID: st.InstanceUID, Document: doc}
	if !persist {
		return out, nil
	}
	if !doc.Accepted() {
		s.logger.Warn().
			Str("document_id", doc.DocumentID).
			Str("study_uid", st.InstanceUID).
			Msg("rejected report not archived")
		return out, ErrRejected
	}
	if s.archive == nil || !s.archive.Enabled() {
		return out, fmt.Errorf("report: archive not configured")
	}

	path, err := s.archive.Save(doc, pt, st)
	if err != nil {
		return out, err
	}
	out.File = path
	s.logger.Info().
		Str("document_id", doc.DocumentID).
		Str("file", path).
		Msg("report archived")

	if s.log != nil {
		entry := &ArchiveEntry{
			DocumentID:    doc.DocumentID,
			PatientID:     pt.ID,
			StudyUID:      st.InstanceUID,
			FilePath:      path,
			EffectiveTime: doc.EffectiveTime,
		}
		if err := s.log.Record(ctx, entry); err != nil {
			return out, err
		}
	}
	return out, nil
}

// History lists the archived reports of a study, newest first. It is empty
// when no archive log is configured.
func (s *Service) History(ctx context.Context, studyUID string) ([]*ArchiveEntry, error) {
	if s.log == nil || studyUID == "" {
		return []*ArchiveEntry{}, nil
	}
	entries, err := s.log.ListByStudy(ctx, studyUID)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []*ArchiveEntry{}
	}
	return entries, nil
}
