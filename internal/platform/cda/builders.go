package cda

import "fmt"

// header carries the per-document values shared by several builders.
type header struct {
	documentID    string
	effectiveTime string
}

// buildHeader constructs the document root with every header element that
// precedes recordTarget.
func buildHeader(r *Resolver, p Profile, s Study, h header) *ClinicalDocument {
	d := r.Defaults()

	doc := &ClinicalDocument{
		XSI:       XSINamespace,
		RealmCode: &Code{Code: Resolve(d.RealmCode, p.RealmCode)},
		TypeID: &TypeID{
			Root:      TypeIDRoot,
			Extension: Resolve(d.TypeIDExtension, p.TypeIDExtension),
		},
		ID: &InstanceID{
			Root:      r.OID(p.DocumentIDRootOID, p.OrganizationOID),
			Extension: h.documentID,
		},
		Title:               documentTitle(r, p, s),
		EffectiveTime:       &TimeValue{Value: h.effectiveTime},
		ConfidentialityCode: confidentialityCode(d, p.ConfidentialityCode),
		LanguageCode:        &Code{Code: Resolve(d.LanguageCode, p.LanguageCode)},
	}
	if p.CDAXSDPath != "" {
		doc.SchemaLocation = Namespace + " " + p.CDAXSDPath
	}

	for _, t := range p.TemplateIDs {
		doc.TemplateIDs = append(doc.TemplateIDs, TemplateID{
			Root:      r.OID(t.Root),
			Extension: t.Extension,
		})
	}

	code := r.Code(p.DocumentCode)
	doc.Code = &Code{
		Code:           code.Code,
		CodeSystem:     code.CodeSystem,
		CodeSystemName: code.CodeSystemName,
		DisplayName:    code.DisplayName,
	}
	return doc
}

func documentTitle(r *Resolver, p Profile, s Study) string {
	if p.DocumentTitle != "" {
		return p.DocumentTitle
	}
	return r.Defaults().TitlePrefix + r.Text(s.Description)
}

// confidentialityCode resolves the code and system, then derives a display
// name for the standard HL7 codes when none is configured.
func confidentialityCode(d Defaults, cfg CodeConfig) *Code {
	c := &Code{
		Code:        Resolve(d.ConfidentialityCode, cfg.Code),
		CodeSystem:  Resolve(d.ConfidentialitySystem, cfg.CodeSystem),
		DisplayName: cfg.DisplayName,
	}
	if c.DisplayName == "" && c.CodeSystem == OIDConfidentiality {
		switch c.Code {
		case "N":
			c.DisplayName = "Normal"
		case "R":
			c.DisplayName = "Restricted"
		case "V":
			c.DisplayName = "Very Restricted"
		}
	}
	return c
}

// buildRecordTarget constructs the patient block.
func buildRecordTarget(r *Resolver, p Profile, pt Patient) *RecordTarget {
	d := r.Defaults()
	given, family := SplitName(pt.Name, d.Text)

	return &RecordTarget{
		PatientRole: &PatientRole{
			ID: &InstanceID{
				Root:      r.OID(p.PatientIDRootOID),
				Extension: r.Text(pt.ID),
			},
			Patient: &PatientPerson{
				Name: &Name{Given: given, Family: family},
				AdministrativeGenderCode: &Code{
					Code:       Resolve(d.Code, pt.Sex),
					CodeSystem: Resolve(d.NullFlavorSystem, p.GenderCodeSystem),
				},
				BirthTime: &TimeValue{Value: NormalizeDate(pt.BirthDate, d.Date)},
			},
		},
	}
}

// buildAuthor constructs the authoring device block.
func buildAuthor(r *Resolver, p Profile, h header) *Author {
	return &Author{
		Time: &TimeValue{Value: h.effectiveTime},
		AssignedAuthor: &AssignedAuthor{
			ID: &InstanceID{
				Root:      r.OID(p.Author.IDRootOID, p.OrganizationOID),
				Extension: r.Text(p.Author.IDExtension, p.SendingApplication),
			},
			AssignedAuthoringDevice: &AuthoringDevice{
				ManufacturerModelName: r.Text(p.Author.DeviceManufacturer),
				SoftwareName:          r.Text(p.Author.DeviceSoftwareName),
			},
		},
	}
}

// buildCustodian constructs the custodian organization block.
func buildCustodian(r *Resolver, p Profile) *Custodian {
	id := r.OrganizationID(p.Custodian.IDRootOID, p.Custodian.IDExtension, p.OrganizationOID)
	return &Custodian{
		AssignedCustodian: &AssignedCustodian{
			RepresentedCustodianOrganization: &CustodianOrganization{
				ID:   &id,
				Name: r.Text(p.Custodian.Name, p.SendingFacility),
			},
		},
	}
}

// buildComponentOf constructs the encompassing encounter. The encounter code
// is emitted only when the profile configures one.
func buildComponentOf(r *Resolver, p Profile, s Study) *ComponentOf {
	d := r.Defaults()
	facilityID := r.OrganizationID(p.Location.FacilityIDRootOID, p.Location.FacilityIDExtension, p.OrganizationOID)

	enc := &EncompassingEncounter{
		ID: &InstanceID{
			Root:      r.OID(p.Encounter.IDRootOID),
			Extension: r.Text(s.AccessionNumber, s.InstanceUID),
		},
		EffectiveTime: &TimeRange{
			Low: &TimeValue{Value: NormalizeDate(s.Date, d.Date) + NormalizeTime(s.Time)},
		},
		Location: &EncounterPlace{
			HealthCareFacility: &HealthCareFacility{
				ID: &facilityID,
				Location: &Place{
					ClassCode:      "PLC",
					DeterminerCode: "INSTANCE",
					Name:           r.Text(p.Location.FacilityName, p.SendingFacility),
				},
			},
		},
	}

	if tc := p.Encounter.TypeCode; tc.Code != "" {
		enc.Code = &Code{
			Code:           tc.Code,
			CodeSystem:     Resolve(d.NullFlavorSystem, tc.CodeSystem),
			CodeSystemName: tc.CodeSystemName,
			DisplayName:    r.Text(tc.DisplayName),
		}
	}

	return &ComponentOf{EncompassingEncounter: enc}
}

// buildStructuredBody constructs the single report section.
func buildStructuredBody(r *Resolver, p Profile, s Study) *Component {
	code := ResolveCode(p.ReportSectionCode, r.Defaults().ReportSection)
	section := &Section{
		Code: &Code{
			Code:           code.Code,
			CodeSystem:     code.CodeSystem,
			CodeSystemName: code.CodeSystemName,
			DisplayName:    code.DisplayName,
		},
		Title: r.Text(s.Description),
		Text: &Narrative{
			Paragraphs: []string{studyNarrative(r, s)},
		},
	}

	return &Component{
		StructuredBody: &StructuredBody{
			Components: []SectionComponent{{Section: section}},
		},
	}
}

func studyNarrative(r *Resolver, s Study) string {
	return fmt.Sprintf("Study Description: %s. Modality: %s. Study UID: %s.",
		r.Text(s.Description), r.Text(s.Modality), r.Text(s.InstanceUID))
}
