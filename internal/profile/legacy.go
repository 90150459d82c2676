package profile

import (
	"encoding/xml"
	"fmt"
	"os"
	"strings"

	"github.com/ehr/cdareport/internal/platform/cda"
)

// legacyConfig mirrors the XML layout written by earlier site installations,
// rooted at <HL7Config> or <config>.
type legacyConfig struct {
	XMLName     xml.Name
	General     *legacyGeneral     `xml:"GeneralSettings"`
	GeneralAlt  *legacyGeneral     `xml:"hl7"`
	HL7Defaults legacyHL7Defaults  `xml:"HL7Defaults"`
	KeyOIDs     legacyKeyOIDs      `xml:"KeyOIDs"`
	PatientRoot string             `xml:"patientIdRootOid"`
	GenderCS    string             `xml:"genderCodeSystem"`
	TemplateIDs []legacyTemplateID `xml:"TemplateIds>TemplateId"`
	Author      legacyAuthor       `xml:"Author"`
	Custodian   legacyCustodian    `xml:"Custodian"`
	Encounter   legacyEncounter    `xml:"Encounter"`
	Location    legacyLocation     `xml:"Location"`
	SectionCode legacyCode         `xml:"ReportSection>ReportSectionCode"`
}

type legacyGeneral struct {
	OutputPath                string     `xml:"OutputPath"`
	OutputPathAlt             string     `xml:"outputPath"`
	CdaXsdPath                string     `xml:"CdaXsdPath"`
	CdaXsdPathAlt             string     `xml:"cdaXsdPath"`
	RealmCode                 string     `xml:"RealmCode"`
	TypeIDExtension           string     `xml:"TypeIdExtension"`
	DocumentIDRootOID         string     `xml:"DocumentIdRootOid"`
	DocumentCode              legacyCode `xml:"DocumentCode"`
	DocumentTitle             string     `xml:"DocumentTitle"`
	ConfidentialityCode       legacyCode `xml:"ConfidentialityCode"`
	LanguageCode              string     `xml:"LanguageCode"`
	OrganizationOID           string     `xml:"OrganizationOid"`
	SendingFacility           string     `xml:"SendingFacility"`
	DefaultSendingApplication string     `xml:"DefaultSendingApplication"`
}

type legacyHL7Defaults struct {
	SendingApplication string `xml:"SendingApplication"`
	SendingFacility    string `xml:"SendingFacility"`
}

type legacyKeyOIDs struct {
	PatientIDRoot  string      `xml:"PatientIdRoot"`
	DocumentIDRoot string      `xml:"DocumentIdRoot"`
	CustomOIDs     []legacyOID `xml:"CustomOid"`
}

type legacyOID struct {
	AssigningAuthority string `xml:"assigningAuthority,attr"`
	OID                string `xml:"OID"`
	Description        string `xml:"Description"`
}

type legacyTemplateID struct {
	Root      string `xml:"root"`
	Extension string `xml:"extension"`
}

type legacyCode struct {
	Code           string `xml:"code"`
	CodeSystem     string `xml:"codeSystem"`
	CodeSystemName string `xml:"codeSystemName"`
	DisplayName    string `xml:"displayName"`
}

type legacyAuthor struct {
	IDRootOID          string `xml:"AuthorIdRootOid"`
	IDExtension        string `xml:"AuthorIdExtension"`
	DeviceManufacturer string `xml:"AuthorDeviceManufacturer"`
	DeviceSoftwareName string `xml:"AuthorDeviceSoftwareName"`
}

type legacyCustodian struct {
	IDRootOID   string `xml:"CustodianOrgIdRootOid"`
	IDExtension string `xml:"CustodianOrgIdExtension"`
	Name        string `xml:"CustodianOrgName"`
}

type legacyEncounter struct {
	IDRootOID string     `xml:"EncounterIdRootOid"`
	TypeCode  legacyCode `xml:"EncounterTypeCode"`
}

type legacyLocation struct {
	FacilityIDRootOID   string `xml:"LocationFacilityIdRootOid"`
	FacilityIDExtension string `xml:"LocationFacilityIdExtension"`
	FacilityName        string `xml:"LocationFacilityName"`
}

func loadLegacyXML(path string) (cda.Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return cda.Profile{}, fmt.Errorf("profile: %w", err)
	}
	return parseLegacyXML(data)
}

func parseLegacyXML(data []byte) (cda.Profile, error) {
	var lc legacyConfig
	if err := xml.Unmarshal(data, &lc); err != nil {
		return cda.Profile{}, fmt.Errorf("profile: parse legacy XML: %w", err)
	}
	if root := lc.XMLName.Local; root != "HL7Config" && root != "config" {
		return cda.Profile{}, fmt.Errorf("profile: unexpected root element <%s>, want <HL7Config> or <config>", root)
	}

	var p cda.Profile

	g := lc.General
	if g == nil {
		g = lc.GeneralAlt
	}
	if g != nil {
		p.OutputPath = text(g.OutputPath, g.OutputPathAlt)
		p.CDAXSDPath = text(g.CdaXsdPath, g.CdaXsdPathAlt)
		p.RealmCode = text(g.RealmCode)
		p.TypeIDExtension = text(g.TypeIDExtension)
		p.DocumentIDRootOID = text(g.DocumentIDRootOID)
		p.DocumentCode = g.DocumentCode.toConfig()
		p.DocumentTitle = text(g.DocumentTitle)
		p.ConfidentialityCode = g.ConfidentialityCode.toConfig()
		p.LanguageCode = text(g.LanguageCode)
		p.OrganizationOID = text(g.OrganizationOID)
		p.SendingFacility = text(g.SendingFacility)
		p.SendingApplication = text(g.DefaultSendingApplication)
	}

	// HL7Defaults is read after the general settings and wins for the
	// sending application; the facility only fills a gap.
	if app := text(lc.HL7Defaults.SendingApplication); app != "" {
		p.SendingApplication = app
	}
	if p.SendingFacility == "" {
		p.SendingFacility = text(lc.HL7Defaults.SendingFacility)
	}

	p.PatientIDRootOID = text(lc.KeyOIDs.PatientIDRoot, lc.PatientRoot)
	p.DocumentIDRootOID = text(lc.KeyOIDs.DocumentIDRoot, p.DocumentIDRootOID)
	for _, o := range lc.KeyOIDs.CustomOIDs {
		p.CustomOIDs = append(p.CustomOIDs, cda.CustomOID{
			AssigningAuthority: text(o.AssigningAuthority),
			OID:                text(o.OID),
			Description:        text(o.Description),
		})
	}
	p.GenderCodeSystem = text(lc.GenderCS)

	for _, t := range lc.TemplateIDs {
		p.TemplateIDs = append(p.TemplateIDs, cda.TemplateIDConfig{
			Root:      text(t.Root),
			Extension: text(t.Extension),
		})
	}

	p.Author = cda.AuthorConfig{
		IDRootOID:          text(lc.Author.IDRootOID),
		IDExtension:        text(lc.Author.IDExtension),
		DeviceManufacturer: text(lc.Author.DeviceManufacturer),
		DeviceSoftwareName: text(lc.Author.DeviceSoftwareName),
	}
	p.Custodian = cda.CustodianConfig{
		IDRootOID:   text(lc.Custodian.IDRootOID),
		IDExtension: text(lc.Custodian.IDExtension),
		Name:        text(lc.Custodian.Name),
	}
	p.Encounter = cda.EncounterConfig{
		IDRootOID: text(lc.Encounter.IDRootOID),
		TypeCode:  lc.Encounter.TypeCode.toConfig(),
	}
	p.Location = cda.LocationConfig{
		FacilityIDRootOID:   text(lc.Location.FacilityIDRootOID),
		FacilityIDExtension: text(lc.Location.FacilityIDExtension),
		FacilityName:        text(lc.Location.FacilityName),
	}
	p.ReportSectionCode = lc.SectionCode.toConfig()

	return normalize(p), nil
}

func (c legacyCode) toConfig() cda.CodeConfig {
	return cda.CodeConfig{
		Code:           text(c.Code),
		CodeSystem:     text(c.CodeSystem),
		CodeSystemName: text(c.CodeSystemName),
		DisplayName:    text(c.DisplayName),
	}
}

// text returns the first candidate that is non-empty after trimming.
func text(candidates ...string) string {
	for _, c := range candidates {
		if s := strings.TrimSpace(c); s != "" {
			return s
		}
	}
	return ""
}
