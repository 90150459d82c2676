package report

import (
	"context"
	"time"

	"github.com/ehr/cdareport/internal/platform/cda"
)

// Request asks for a report on one study of one patient.
type Request struct {
	PatientID string `json:"patient_id"`
	StudyUID  string `json:"study_uid"`
	Persist   bool   `json:"persist"`
}

// Outcome is the result of producing one report. File is set only when the
// document was written to the archive.
type Outcome struct {
	PatientID string                 `json:"patient_id"`
	StudyUID  string                 `json:"study_uid"`
	Document  *cda.GeneratedDocument `json:"document"`
	File      string                 `json:"file,omitempty"`
}

// Accepted reports whether the document may be delivered.
func (o *Outcome) Accepted() bool {
	return o != nil && o.Document != nil && o.Document.Accepted()
}

// ArchiveEntry records one archived document.
type ArchiveEntry struct {
	DocumentID    string    `json:"document_id"`
	PatientID     string    `json:"patient_id"`
	StudyUID      string    `json:"study_uid"`
	FilePath      string    `json:"file_path"`
	EffectiveTime string    `json:"effective_time"`
	ArchivedAt    time.Time `json:"archived_at"`
}

// ArchiveLog keeps track of the documents written to the archive.
type ArchiveLog interface {
	Record(ctx context.Context, e *ArchiveEntry) error
	ListByStudy(ctx context.Context, studyUID string) ([]*ArchiveEntry, error)
}
