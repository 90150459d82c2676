package cda

import (
	"encoding/xml"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// State is a step of document assembly. Steps are strictly sequential.
type State int

const (
	StateEmpty State = iota
	StateHeaderBuilt
	StatePatientAttached
	StateAuthorAttached
	StateCustodianAttached
	StateEncounterAttached
	StateBodyAttached
	StateSerialized
	StateValidated
	StateValidationSkipped
)

var stateNames = [...]string{
	"empty",
	"header_built",
	"patient_attached",
	"author_attached",
	"custodian_attached",
	"encounter_attached",
	"body_attached",
	"serialized",
	"validated",
	"validation_skipped",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// MarshalText renders the state by name in JSON responses.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// GeneratedDocument is a serialized report with the values synthesized for it.
type GeneratedDocument struct {
	XML           []byte            `json:"-"`
	DocumentID    string            `json:"documentId"`
	EffectiveTime string            `json:"effectiveTime"`
	GeneratedAt   time.Time         `json:"generatedAt"`
	State         State             `json:"state"`
	Validation    *ValidationResult `json:"validation,omitempty"`
}

// Accepted reports whether the document passed validation or validation
// was skipped because no schema is configured.
func (d *GeneratedDocument) Accepted() bool {
	switch d.State {
	case StateValidationSkipped:
		return true
	case StateValidated:
		return d.Validation != nil && d.Validation.Valid
	default:
		return false
	}
}

// Option configures a Generator.
type Option func(*Generator)

// WithDefaults replaces the built-in fallback tier.
func WithDefaults(d Defaults) Option {
	return func(g *Generator) { g.resolver = NewResolver(d) }
}

// WithClock sets the clock read once per document.
func WithClock(c Clock) Option {
	return func(g *Generator) { g.clock = c }
}

// WithIDSource sets the document id source.
func WithIDSource(f IDSource) Option {
	return func(g *Generator) { g.ids = f }
}

// WithLogger sets the logger used for data-quality warnings.
func WithLogger(l zerolog.Logger) Option {
	return func(g *Generator) { g.logger = l }
}

// WithValidator sets the schema validator used by GenerateAndValidate.
func WithValidator(v *Validator) Option {
	return func(g *Generator) { g.validator = v }
}

// Generator assembles imaging report documents. It is safe for concurrent
// use because it holds only immutable configuration.
type Generator struct {
	profile   Profile
	resolver  *Resolver
	synth     *Synthesizer
	validator *Validator
	logger    zerolog.Logger

	clock Clock
	ids   IDSource
}

// NewGenerator creates a generator for the given site profile.
func NewGenerator(profile Profile, opts ...Option) *Generator {
	g := &Generator{
		profile:  profile.clone(),
		resolver: NewResolver(BuiltinDefaults()),
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.synth = NewSynthesizer(g.clock, g.ids)
	if g.validator == nil {
		g.validator = NewValidator(g.logger)
	}
	return g
}

// Profile returns a copy of the generator's profile.
func (g *Generator) Profile() Profile {
	return g.profile.clone()
}

// SchemaRef returns the schema documents are validated against, or "" when
// validation is disabled.
func (g *Generator) SchemaRef() string {
	return g.profile.CDAXSDPath
}

// assembly tracks one document through the build steps.
type assembly struct {
	state State
	doc   *ClinicalDocument
}

func (a *assembly) advance(from, to State) {
	if a.state != from {
		panic(fmt.Sprintf("cda: cannot move to %s from %s (expected %s)", to, a.state, from))
	}
	a.state = to
}

// Generate builds and serializes a report for one patient and study. Missing
// input fields are replaced by defaults; the only failure is serialization.
func (g *Generator) Generate(p Patient, s Study) (*GeneratedDocument, error) {
	if p.ID != "" && s.PatientID != "" && p.ID != s.PatientID {
		g.logger.Warn().
			Str("patient_id", p.ID).
			Str("study_patient_id", s.PatientID).
			Str("study_uid", s.InstanceUID).
			Msg("study belongs to a different patient id")
	}

	now := g.synth.Now()
	h := header{
		documentID:    g.synth.GenerateDocumentID(),
		effectiveTime: FormatTimestamp(now, TimestampLayout),
	}

	a := &assembly{state: StateEmpty}

	a.doc = buildHeader(g.resolver, g.profile, s, h)
	a.advance(StateEmpty, StateHeaderBuilt)

	a.doc.RecordTarget = buildRecordTarget(g.resolver, g.profile, p)
	a.advance(StateHeaderBuilt, StatePatientAttached)

	a.doc.Author = buildAuthor(g.resolver, g.profile, h)
	a.advance(StatePatientAttached, StateAuthorAttached)

	a.doc.Custodian = buildCustodian(g.resolver, g.profile)
	a.advance(StateAuthorAttached, StateCustodianAttached)

	a.doc.ComponentOf = buildComponentOf(g.resolver, g.profile, s)
	a.advance(StateCustodianAttached, StateEncounterAttached)

	a.doc.Component = buildStructuredBody(g.resolver, g.profile, s)
	a.advance(StateEncounterAttached, StateBodyAttached)

	out, err := marshalDocument(a.doc)
	if err != nil {
		return nil, err
	}
	a.advance(StateBodyAttached, StateSerialized)

	g.logger.Debug().
		Str("document_id", h.documentID).
		Str("patient_id", p.ID).
		Str("study_uid", s.InstanceUID).
		Int("bytes", len(out)).
		Msg("report generated")

	return &GeneratedDocument{
		XML:           out,
		DocumentID:    h.documentID,
		EffectiveTime: h.effectiveTime,
		GeneratedAt:   now,
		State:         a.state,
	}, nil
}

// Validate checks a serialized document against the profile's schema and
// moves it to its terminal state. It panics if doc is not serialized.
func (g *Generator) Validate(doc *GeneratedDocument) {
	if doc.State != StateSerialized {
		panic(fmt.Sprintf("cda: cannot validate document in state %s", doc.State))
	}

	res := g.validator.Validate(doc.XML, g.profile.CDAXSDPath)
	doc.Validation = &res
	if res.Skipped {
		doc.State = StateValidationSkipped
		g.logger.Info().Str("document_id", doc.DocumentID).Msg("no schema configured, validation skipped")
		return
	}
	doc.State = StateValidated

	if res.Valid {
		g.logger.Info().Str("document_id", doc.DocumentID).Msg("report passed schema validation")
		return
	}
	g.logger.Warn().
		Str("document_id", doc.DocumentID).
		Int("diagnostics", len(res.Diagnostics)).
		Msg("report failed schema validation")
}

// GenerateAndValidate runs Generate followed by Validate.
func (g *Generator) GenerateAndValidate(p Patient, s Study) (*GeneratedDocument, error) {
	doc, err := g.Generate(p, s)
	if err != nil {
		return nil, err
	}
	g.Validate(doc)
	return doc, nil
}

func marshalDocument(doc *ClinicalDocument) ([]byte, error) {
	output, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("cda: failed to marshal XML: %w", err)
	}

	header := []byte(xml.Header)
	result := make([]byte, len(header)+len(output))
	copy(result, header)
	copy(result[len(header):], output)
	return result, nil
}
