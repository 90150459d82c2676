package imaging

import (
	"strings"

	"github.com/ehr/cdareport/internal/platform/cda"
)

// Patient is a row of the patients table. Dates are kept as the source
// system stores them (YYYYMMDD or YYYY-MM-DD).
type Patient struct {
	ID        string `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	BirthDate string `json:"birth_date" yaml:"birth_date"`
	Sex       string `json:"sex" yaml:"sex"`
	Address   string `json:"address,omitempty" yaml:"address,omitempty"`
	Phone     string `json:"phone,omitempty" yaml:"phone,omitempty"`
}

// IsZero reports whether the patient was not found.
func (p *Patient) IsZero() bool {
	return p == nil || p.ID == ""
}

func (p *Patient) ToCDA() cda.Patient {
	if p == nil {
		return cda.Patient{}
	}
	return cda.Patient{
		ID:        p.ID,
		Name:      p.Name,
		BirthDate: p.BirthDate,
		Sex:       strings.ToUpper(p.Sex),
	}
}

// Issues lists the missing demographics that degrade a report.
func (p *Patient) Issues() []string {
	var issues []string
	if p.ID == "" {
		issues = append(issues, "missing patient id")
	}
	if p.Name == "" {
		issues = append(issues, "missing name")
	}
	if p.BirthDate == "" {
		issues = append(issues, "missing date of birth")
	}
	if p.Sex == "" {
		issues = append(issues, "missing sex")
	}
	return issues
}

// Study is a row of the studies table.
type Study struct {
	InstanceUID         string `json:"study_instance_uid" yaml:"study_instance_uid"`
	PatientID           string `json:"patient_id" yaml:"patient_id"`
	AccessionNumber     string `json:"accession_number" yaml:"accession_number"`
	Date                string `json:"study_date" yaml:"study_date"`
	Time                string `json:"study_time" yaml:"study_time"`
	Modality            string `json:"modality" yaml:"modality"`
	Description         string `json:"description" yaml:"description"`
	ReferringPhysician  string `json:"referring_physician,omitempty" yaml:"referring_physician,omitempty"`
	PerformingPhysician string `json:"performing_physician,omitempty" yaml:"performing_physician,omitempty"`
}

func (s *Study) IsZero() bool {
	return s == nil || s.InstanceUID == ""
}

func (s *Study) ToCDA() cda.Study {
	if s == nil {
		return cda.Study{}
	}
	return cda.Study{
		InstanceUID:        s.InstanceUID,
		PatientID:          s.PatientID,
		AccessionNumber:    s.AccessionNumber,
		Date:               s.Date,
		Time:               s.Time,
		Modality:           s.Modality,
		Description:        s.Description,
		ReferringPhysician: s.ReferringPhysician,
	}
}

// Issues lists missing study attributes. expectedPatient, when set, is
// compared with the study's own patient id.
func (s *Study) Issues(expectedPatient string) []string {
	var issues []string
	if s.InstanceUID == "" {
		issues = append(issues, "missing study instance uid")
	}
	switch {
	case s.PatientID == "":
		issues = append(issues, "missing patient id")
	case expectedPatient != "" && s.PatientID != expectedPatient:
		issues = append(issues, "patient id mismatch (expected "+expectedPatient+", got "+s.PatientID+")")
	}
	if s.AccessionNumber == "" {
		issues = append(issues, "missing accession number")
	}
	if s.Date == "" {
		issues = append(issues, "missing study date")
	}
	if s.Modality == "" {
		issues = append(issues, "missing modality")
	}
	if s.Description == "" {
		issues = append(issues, "missing description")
	}
	return issues
}
