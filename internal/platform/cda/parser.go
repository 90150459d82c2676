package cda

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"
)

// Summary is the data extracted from an imaging report.
type Summary struct {
	DocumentID   ParsedID        `json:"documentId"`
	Title        string          `json:"title"`
	Created      time.Time       `json:"created,omitempty"`
	RealmCode    string          `json:"realmCode,omitempty"`
	LanguageCode string          `json:"languageCode,omitempty"`
	Confidential string          `json:"confidentialityCode,omitempty"`
	TemplateIDs  []ParsedID      `json:"templateIds,omitempty"`
	Patient      ParsedPatient   `json:"patient"`
	Author       ParsedID        `json:"author"`
	Custodian    string          `json:"custodian,omitempty"`
	Encounter    ParsedEncounter `json:"encounter"`
	Sections     []ParsedSection `json:"sections,omitempty"`
}

// ParsedPatient contains the patient demographics from the record target.
type ParsedPatient struct {
	ID     ParsedID `json:"id"`
	Given  string   `json:"given,omitempty"`
	Family string   `json:"family,omitempty"`
	Gender string   `json:"gender,omitempty"`
	DOB    string   `json:"birthDate,omitempty"`
}

// ParsedID is a parsed identifier.
type ParsedID struct {
	Root      string `json:"root,omitempty"`
	Extension string `json:"extension,omitempty"`
}

// ParsedEncounter holds the encompassing encounter.
type ParsedEncounter struct {
	ID       ParsedID `json:"id"`
	Start    string   `json:"start,omitempty"`
	Facility string   `json:"facility,omitempty"`
}

// ParsedSection holds one body section.
type ParsedSection struct {
	Code      string   `json:"code,omitempty"`
	Title     string   `json:"title,omitempty"`
	Narrative []string `json:"narrative,omitempty"`
}

// Parser reads imaging reports back into summaries. It is safe for
// concurrent use because it holds no mutable state.
type Parser struct{}

// NewParser creates a new report parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse reads a CDA XML document and extracts its summary.
func (p *Parser) Parse(xmlData []byte) (*Summary, error) {
	if len(xmlData) == 0 {
		return nil, fmt.Errorf("cda: XML data is empty")
	}

	var doc ClinicalDocument
	if err := xml.Unmarshal(xmlData, &doc); err != nil {
		return nil, fmt.Errorf("cda: failed to parse XML: %w", err)
	}

	s := &Summary{Title: doc.Title}
	s.DocumentID = parsedID(doc.ID)
	if doc.RealmCode != nil {
		s.RealmCode = doc.RealmCode.Code
	}
	if doc.LanguageCode != nil {
		s.LanguageCode = doc.LanguageCode.Code
	}
	if doc.ConfidentialityCode != nil {
		s.Confidential = doc.ConfidentialityCode.Code
	}
	for _, t := range doc.TemplateIDs {
		s.TemplateIDs = append(s.TemplateIDs, ParsedID{Root: t.Root, Extension: t.Extension})
	}

	if doc.EffectiveTime != nil && doc.EffectiveTime.Value != "" {
		if t, err := parseHL7Time(doc.EffectiveTime.Value); err == nil {
			s.Created = t
		}
	}

	s.Patient = parsePatient(&doc)

	if doc.Author != nil && doc.Author.AssignedAuthor != nil {
		s.Author = parsedID(doc.Author.AssignedAuthor.ID)
	}
	if c := doc.Custodian; c != nil && c.AssignedCustodian != nil && c.AssignedCustodian.RepresentedCustodianOrganization != nil {
		s.Custodian = c.AssignedCustodian.RepresentedCustodianOrganization.Name
	}

	s.Encounter = parseEncounter(&doc)

	if doc.Component != nil && doc.Component.StructuredBody != nil {
		for _, comp := range doc.Component.StructuredBody.Components {
			if comp.Section == nil {
				continue
			}
			ps := ParsedSection{Title: comp.Section.Title}
			if comp.Section.Code != nil {
				ps.Code = comp.Section.Code.Code
			}
			if comp.Section.Text != nil {
				for _, para := range comp.Section.Text.Paragraphs {
					ps.Narrative = append(ps.Narrative, strings.TrimSpace(para))
				}
			}
			s.Sections = append(s.Sections, ps)
		}
	}

	return s, nil
}

func parsePatient(doc *ClinicalDocument) ParsedPatient {
	var patient ParsedPatient
	if doc.RecordTarget == nil || doc.RecordTarget.PatientRole == nil {
		return patient
	}

	role := doc.RecordTarget.PatientRole
	patient.ID = parsedID(role.ID)
	if role.Patient == nil {
		return patient
	}

	pat := role.Patient
	if pat.Name != nil {
		patient.Given = pat.Name.Given
		patient.Family = pat.Name.Family
	}
	if pat.AdministrativeGenderCode != nil {
		patient.Gender = pat.AdministrativeGenderCode.Code
	}
	if pat.BirthTime != nil {
		patient.DOB = formatParsedDate(pat.BirthTime.Value)
	}
	return patient
}

func parseEncounter(doc *ClinicalDocument) ParsedEncounter {
	var enc ParsedEncounter
	if doc.ComponentOf == nil || doc.ComponentOf.EncompassingEncounter == nil {
		return enc
	}

	e := doc.ComponentOf.EncompassingEncounter
	enc.ID = parsedID(e.ID)
	if e.EffectiveTime != nil && e.EffectiveTime.Low != nil {
		enc.Start = e.EffectiveTime.Low.Value
	}
	if e.Location != nil && e.Location.HealthCareFacility != nil && e.Location.HealthCareFacility.Location != nil {
		enc.Facility = e.Location.HealthCareFacility.Location.Name
	}
	return enc
}

func parsedID(id *InstanceID) ParsedID {
	if id == nil {
		return ParsedID{}
	}
	return ParsedID{Root: id.Root, Extension: id.Extension}
}

// parseHL7Time parses an HL7 timestamp with or without offset.
func parseHL7Time(s string) (time.Time, error) {
	formats := []string{
		"20060102150405-0700",
		"20060102150405",
		"200601021504",
		"20060102",
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cda: unrecognized HL7 time %q", s)
}

// formatParsedDate turns YYYYMMDD into YYYY-MM-DD and returns anything else
// unchanged.
func formatParsedDate(s string) string {
	if len(s) >= 8 {
		return s[:4] + "-" + s[4:6] + "-" + s[6:8]
	}
	return s
}
