package cda

import "encoding/xml"

// Namespaces and fixed identifiers used by every imaging report.
const (
	Namespace    = "urn:hl7-org:v3"
	XSINamespace = "http://www.w3.org/2001/XMLSchema-instance"

	// TypeIDRoot identifies the CDA R2 hierarchical description. The
	// extension half of typeId is configurable; the root never is.
	TypeIDRoot = "2.16.840.1.113883.1.3"

	OIDConfidentiality = "2.16.840.1.113883.5.25"
	OIDNullFlavor      = "2.16.840.1.113883.5.1008"
	OIDLOINC           = "2.16.840.1.113883.6.1"

	LOINCImagingReport = "18748-4"
)

// ClinicalDocument is the root element of a CDA R2 imaging report.
type ClinicalDocument struct {
	XMLName             xml.Name      `xml:"urn:hl7-org:v3 ClinicalDocument"`
	XSI                 string        `xml:"xmlns:xsi,attr"`
	SchemaLocation      string        `xml:"xsi:schemaLocation,attr,omitempty"`
	RealmCode           *Code         `xml:"realmCode,omitempty"`
	TypeID              *TypeID       `xml:"typeId,omitempty"`
	TemplateIDs         []TemplateID  `xml:"templateId,omitempty"`
	ID                  *InstanceID   `xml:"id,omitempty"`
	Code                *Code         `xml:"code,omitempty"`
	Title               string        `xml:"title,omitempty"`
	EffectiveTime       *TimeValue    `xml:"effectiveTime,omitempty"`
	ConfidentialityCode *Code         `xml:"confidentialityCode,omitempty"`
	LanguageCode        *Code         `xml:"languageCode,omitempty"`
	RecordTarget        *RecordTarget `xml:"recordTarget,omitempty"`
	Author              *Author       `xml:"author,omitempty"`
	Custodian           *Custodian    `xml:"custodian,omitempty"`
	ComponentOf         *ComponentOf  `xml:"componentOf,omitempty"`
	Component           *Component    `xml:"component,omitempty"`
}

// TypeID identifies the CDA R2 schema.
type TypeID struct {
	Root      string `xml:"root,attr"`
	Extension string `xml:"extension,attr"`
}

// TemplateID specifies a template identifier with optional extension.
type TemplateID struct {
	Root      string `xml:"root,attr"`
	Extension string `xml:"extension,attr,omitempty"`
}

// InstanceID is a unique instance identifier.
type InstanceID struct {
	Root      string `xml:"root,attr"`
	Extension string `xml:"extension,attr,omitempty"`
}

// Code represents a coded value with optional code system.
type Code struct {
	Code           string `xml:"code,attr,omitempty"`
	CodeSystem     string `xml:"codeSystem,attr,omitempty"`
	CodeSystemName string `xml:"codeSystemName,attr,omitempty"`
	DisplayName    string `xml:"displayName,attr,omitempty"`
}

// TimeValue holds a time stamp in HL7 format (YYYYMMDD or YYYYMMDDHHmmss[+ZZzz]).
type TimeValue struct {
	Value string `xml:"value,attr,omitempty"`
}

// TimeRange represents an effectiveTime interval. Reports only carry the
// low boundary.
type TimeRange struct {
	Low *TimeValue `xml:"low,omitempty"`
}

// RecordTarget holds the patient information in the CDA header.
type RecordTarget struct {
	PatientRole *PatientRole `xml:"patientRole,omitempty"`
}

// PatientRole contains the patient identifier and demographics.
type PatientRole struct {
	ID      *InstanceID    `xml:"id,omitempty"`
	Patient *PatientPerson `xml:"patient,omitempty"`
}

// PatientPerson is the <patient> element: name, gender and birth time.
type PatientPerson struct {
	Name                     *Name      `xml:"name,omitempty"`
	AdministrativeGenderCode *Code      `xml:"administrativeGenderCode,omitempty"`
	BirthTime                *TimeValue `xml:"birthTime,omitempty"`
}

// Name represents a person's name.
type Name struct {
	Given  string `xml:"given,omitempty"`
	Family string `xml:"family,omitempty"`
}

// Author holds authoring information in the CDA header.
type Author struct {
	Time           *TimeValue      `xml:"time,omitempty"`
	AssignedAuthor *AssignedAuthor `xml:"assignedAuthor,omitempty"`
}

// AssignedAuthor identifies the authoring system.
type AssignedAuthor struct {
	ID                      *InstanceID      `xml:"id,omitempty"`
	AssignedAuthoringDevice *AuthoringDevice `xml:"assignedAuthoringDevice,omitempty"`
}

// AuthoringDevice identifies a device as the author.
type AuthoringDevice struct {
	ManufacturerModelName string `xml:"manufacturerModelName,omitempty"`
	SoftwareName          string `xml:"softwareName,omitempty"`
}

// Custodian holds the custodian organization in the CDA header.
type Custodian struct {
	AssignedCustodian *AssignedCustodian `xml:"assignedCustodian,omitempty"`
}

// AssignedCustodian contains the custodian organization.
type AssignedCustodian struct {
	RepresentedCustodianOrganization *CustodianOrganization `xml:"representedCustodianOrganization,omitempty"`
}

// CustodianOrganization identifies the custodian.
type CustodianOrganization struct {
	ID   *InstanceID `xml:"id,omitempty"`
	Name string      `xml:"name,omitempty"`
}

// ComponentOf links the document to the encounter the study was part of.
type ComponentOf struct {
	EncompassingEncounter *EncompassingEncounter `xml:"encompassingEncounter,omitempty"`
}

// EncompassingEncounter describes the imaging visit.
type EncompassingEncounter struct {
	ID            *InstanceID     `xml:"id,omitempty"`
	Code          *Code           `xml:"code,omitempty"`
	EffectiveTime *TimeRange      `xml:"effectiveTime,omitempty"`
	Location      *EncounterPlace `xml:"location,omitempty"`
}

// EncounterPlace wraps the facility where the encounter happened.
type EncounterPlace struct {
	HealthCareFacility *HealthCareFacility `xml:"healthCareFacility,omitempty"`
}

// HealthCareFacility identifies the performing facility.
type HealthCareFacility struct {
	ID       *InstanceID `xml:"id,omitempty"`
	Location *Place      `xml:"location,omitempty"`
}

// Place is a named physical location.
type Place struct {
	ClassCode      string `xml:"classCode,attr,omitempty"`
	DeterminerCode string `xml:"determinerCode,attr,omitempty"`
	Name           string `xml:"name,omitempty"`
}

// Component wraps the structured body of the CDA document.
type Component struct {
	StructuredBody *StructuredBody `xml:"structuredBody,omitempty"`
}

// StructuredBody holds the document sections.
type StructuredBody struct {
	Components []SectionComponent `xml:"component,omitempty"`
}

// SectionComponent wraps a single section.
type SectionComponent struct {
	Section *Section `xml:"section,omitempty"`
}

// Section represents a CDA section with code, title and narrative.
type Section struct {
	Code  *Code      `xml:"code,omitempty"`
	Title string     `xml:"title,omitempty"`
	Text  *Narrative `xml:"text,omitempty"`
}

// Narrative holds the human-readable block of a section.
type Narrative struct {
	Paragraphs []string `xml:"paragraph,omitempty"`
}
