package cda

// CodeConfig is a configurable coded value.
type CodeConfig struct {
	Code           string `mapstructure:"code" json:"code,omitempty"`
	CodeSystem     string `mapstructure:"code_system" json:"codeSystem,omitempty"`
	CodeSystemName string `mapstructure:"code_system_name" json:"codeSystemName,omitempty"`
	DisplayName    string `mapstructure:"display_name" json:"displayName,omitempty"`
}

// IsZero reports whether no field of the code is set.
func (c CodeConfig) IsZero() bool {
	return c == CodeConfig{}
}

// TemplateIDConfig is one document-level templateId entry.
type TemplateIDConfig struct {
	Root      string `mapstructure:"root" json:"root"`
	Extension string `mapstructure:"extension" json:"extension,omitempty"`
}

// CustomOID maps an assigning authority to the OID it issues identifiers under.
type CustomOID struct {
	AssigningAuthority string `mapstructure:"assigning_authority" json:"assigningAuthority"`
	OID                string `mapstructure:"oid" json:"oid"`
	Description        string `mapstructure:"description" json:"description,omitempty"`
}

// AuthorConfig configures the authoring device block.
type AuthorConfig struct {
	IDRootOID          string `mapstructure:"id_root_oid" json:"idRootOid,omitempty"`
	IDExtension        string `mapstructure:"id_extension" json:"idExtension,omitempty"`
	DeviceManufacturer string `mapstructure:"device_manufacturer" json:"deviceManufacturer,omitempty"`
	DeviceSoftwareName string `mapstructure:"device_software_name" json:"deviceSoftwareName,omitempty"`
}

// CustodianConfig configures the custodian organization.
type CustodianConfig struct {
	IDRootOID   string `mapstructure:"id_root_oid" json:"idRootOid,omitempty"`
	IDExtension string `mapstructure:"id_extension" json:"idExtension,omitempty"`
	Name        string `mapstructure:"name" json:"name,omitempty"`
}

// EncounterConfig configures the encompassing encounter.
type EncounterConfig struct {
	IDRootOID string     `mapstructure:"id_root_oid" json:"idRootOid,omitempty"`
	TypeCode  CodeConfig `mapstructure:"type_code" json:"typeCode"`
}

// LocationConfig configures the encounter facility.
type LocationConfig struct {
	FacilityIDRootOID   string `mapstructure:"facility_id_root_oid" json:"facilityIdRootOid,omitempty"`
	FacilityIDExtension string `mapstructure:"facility_id_extension" json:"facilityIdExtension,omitempty"`
	FacilityName        string `mapstructure:"facility_name" json:"facilityName,omitempty"`
}

// Profile is the site configuration that shapes every generated document.
// Every field is optional; unset values fall back to built-in defaults.
type Profile struct {
	OutputPath          string             `mapstructure:"output_path" json:"outputPath,omitempty"`
	CDAXSDPath          string             `mapstructure:"cda_xsd_path" json:"cdaXsdPath,omitempty"`
	RealmCode           string             `mapstructure:"realm_code" json:"realmCode,omitempty"`
	TypeIDExtension     string             `mapstructure:"type_id_extension" json:"typeIdExtension,omitempty"`
	TemplateIDs         []TemplateIDConfig `mapstructure:"template_ids" json:"templateIds,omitempty"`
	DocumentIDRootOID   string             `mapstructure:"document_id_root_oid" json:"documentIdRootOid,omitempty"`
	DocumentCode        CodeConfig         `mapstructure:"document_code" json:"documentCode"`
	DocumentTitle       string             `mapstructure:"document_title" json:"documentTitle,omitempty"`
	ConfidentialityCode CodeConfig         `mapstructure:"confidentiality_code" json:"confidentialityCode"`
	LanguageCode        string             `mapstructure:"language_code" json:"languageCode,omitempty"`
	OrganizationOID     string             `mapstructure:"organization_oid" json:"organizationOid,omitempty"`
	SendingFacility     string             `mapstructure:"sending_facility" json:"sendingFacility,omitempty"`
	SendingApplication  string             `mapstructure:"sending_application" json:"sendingApplication,omitempty"`
	PatientIDRootOID    string             `mapstructure:"patient_id_root_oid" json:"patientIdRootOid,omitempty"`
	GenderCodeSystem    string             `mapstructure:"gender_code_system" json:"genderCodeSystem,omitempty"`
	CustomOIDs          []CustomOID        `mapstructure:"custom_oids" json:"customOids,omitempty"`
	Author              AuthorConfig       `mapstructure:"author" json:"author"`
	Custodian           CustodianConfig    `mapstructure:"custodian" json:"custodian"`
	Encounter           EncounterConfig    `mapstructure:"encounter" json:"encounter"`
	Location            LocationConfig     `mapstructure:"location" json:"location"`
	ReportSectionCode   CodeConfig         `mapstructure:"report_section_code" json:"reportSectionCode"`
}

// clone returns a copy that shares no slices with p.
func (p Profile) clone() Profile {
	out := p
	if p.TemplateIDs != nil {
		out.TemplateIDs = append([]TemplateIDConfig(nil), p.TemplateIDs...)
	}
	if p.CustomOIDs != nil {
		out.CustomOIDs = append([]CustomOID(nil), p.CustomOIDs...)
	}
	return out
}

// Patient is the demographic input of a report. Any field may be empty.
type Patient struct {
	ID        string
	Name      string
	BirthDate string
	Sex       string
}

// Study is the imaging study input of a report. Any field may be empty.
type Study struct {
	InstanceUID        string
	PatientID          string
	AccessionNumber    string
	Date               string
	Time               string
	Modality           string
	Description        string
	ReferringPhysician string
}
