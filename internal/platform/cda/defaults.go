package cda

// Defaults is the built-in tier of every fallback chain. It is passed by
// value so a Resolver can never observe later changes to it.
type Defaults struct {
	Text                  string
	OIDRoot               string
	Code                  string
	NullFlavorSystem      string
	TypeIDExtension       string
	LanguageCode          string
	RealmCode             string
	ConfidentialityCode   string
	ConfidentialitySystem string
	Date                  string
	TitlePrefix           string
	ReportSection         CodeConfig
}

// BuiltinDefaults returns the values used when neither the inputs nor the
// profile provide one.
func BuiltinDefaults() Defaults {
	return Defaults{
		Text:                  "Unknown",
		OIDRoot:               "2.25.0.0.0.0",
		Code:                  "UNK",
		NullFlavorSystem:      OIDNullFlavor,
		TypeIDExtension:       "POCD_HD000040",
		LanguageCode:          "pl-PL",
		RealmCode:             "PL",
		ConfidentialityCode:   "N",
		ConfidentialitySystem: OIDConfidentiality,
		Date:                  DefaultDate,
		TitlePrefix:           "Report - ",
		ReportSection: CodeConfig{
			Code:           LOINCImagingReport,
			CodeSystem:     OIDLOINC,
			CodeSystemName: "LOINC",
			DisplayName:    "Diagnostic Imaging Report Section",
		},
	}
}

// Resolve returns the first non-empty candidate, or builtIn when every
// candidate is empty. Whitespace counts as content.
func Resolve(builtIn string, candidates ...string) string {
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return builtIn
}

// ResolveCode resolves each field of cfg independently against fallback.
func ResolveCode(cfg, fallback CodeConfig) CodeConfig {
	return CodeConfig{
		Code:           Resolve(fallback.Code, cfg.Code),
		CodeSystem:     Resolve(fallback.CodeSystem, cfg.CodeSystem),
		CodeSystemName: Resolve(fallback.CodeSystemName, cfg.CodeSystemName),
		DisplayName:    Resolve(fallback.DisplayName, cfg.DisplayName),
	}
}

// Resolver applies fallback chains that end in a fixed Defaults record.
// It is safe for concurrent use.
type Resolver struct {
	d Defaults
}

// NewResolver creates a resolver over the given built-in tier.
func NewResolver(d Defaults) *Resolver {
	return &Resolver{d: d}
}

// Defaults returns the built-in tier.
func (r *Resolver) Defaults() Defaults {
	return r.d
}

// Text resolves a free-text field, ending in the placeholder text.
func (r *Resolver) Text(candidates ...string) string {
	return Resolve(r.d.Text, candidates...)
}

// OID resolves an identifier root, ending in the placeholder OID.
func (r *Resolver) OID(candidates ...string) string {
	return Resolve(r.d.OIDRoot, candidates...)
}

// Code resolves a coded value whose unset fields become null-flavor
// placeholders.
func (r *Resolver) Code(cfg CodeConfig) CodeConfig {
	return ResolveCode(cfg, CodeConfig{
		Code:           r.d.Code,
		CodeSystem:     r.d.NullFlavorSystem,
		CodeSystemName: r.d.Text,
		DisplayName:    r.d.Text,
	})
}

// OrganizationID resolves an organization-scoped identifier. The root falls
// back from the section OID to the organization OID to the placeholder OID.
// When no extension is configured, the placeholder text is used only if the
// root itself is the placeholder; otherwise the extension is omitted.
func (r *Resolver) OrganizationID(sectionRoot, sectionExt, orgOID string) InstanceID {
	root := r.OID(sectionRoot, orgOID)
	ext := sectionExt
	if ext == "" && root == r.d.OIDRoot {
		ext = r.d.Text
	}
	return InstanceID{Root: root, Extension: ext}
}

// SplitName splits a single free-text patient name into given and family
// parts. The token before the first space is the family name and the rest
// is the given name; any missing half becomes placeholder.
func SplitName(name, placeholder string) (given, family string) {
	if name == "" || name == placeholder {
		return placeholder, placeholder
	}
	for i := 0; i < len(name); i++ {
		if name[i] == ' ' {
			family, given = name[:i], name[i+1:]
			return Resolve(placeholder, given), Resolve(placeholder, family)
		}
	}
	return placeholder, name
}
