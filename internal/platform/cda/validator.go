package cda

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jacoelho/xsd"
	xsderrors "github.com/jacoelho/xsd/errors"
	"github.com/rs/zerolog"
)

// Severity classifies a validation diagnostic.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
	SeverityFatal   Severity = "fatal"
)

// Diagnostic is one finding reported while validating a document.
type Diagnostic struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code,omitempty"`
	Message  string   `json:"message"`
	Path     string   `json:"path,omitempty"`
	Line     int      `json:"line,omitempty"`
	Column   int      `json:"column,omitempty"`
}

func (d Diagnostic) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s", d.Severity)
	if d.Line > 0 {
		fmt.Fprintf(&b, " %d:%d", d.Line, d.Column)
	}
	if d.Code != "" {
		fmt.Fprintf(&b, " [%s]", d.Code)
	}
	b.WriteString(" ")
	b.WriteString(d.Message)
	if d.Path != "" {
		fmt.Fprintf(&b, " at %s", d.Path)
	}
	return b.String()
}

// ValidationResult is the verdict of one validation call.
type ValidationResult struct {
	Valid       bool         `json:"valid"`
	Skipped     bool         `json:"skipped,omitempty"`
	SchemaRef   string       `json:"schemaRef,omitempty"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// Failures returns the diagnostics that make a document invalid.
func (r ValidationResult) Failures() []Diagnostic {
	var out []Diagnostic
	for _, d := range r.Diagnostics {
		if d.Severity != SeverityWarning {
			out = append(out, d)
		}
	}
	return out
}

// Validator checks documents against XSD schemas. Compiled schemas are
// cached per reference for the validator's lifetime. It is safe for
// concurrent use.
type Validator struct {
	mu      sync.Mutex
	schemas map[string]*xsd.Schema
	logger  zerolog.Logger
}

// NewValidator creates a validator with an empty schema cache.
func NewValidator(logger zerolog.Logger) *Validator {
	return &Validator{
		schemas: make(map[string]*xsd.Schema),
		logger:  logger,
	}
}

// Validate checks document against the schema at schemaRef, a filesystem
// path or file:// URI. An empty reference skips validation and is valid.
// Neither argument is modified.
func (v *Validator) Validate(document []byte, schemaRef string) ValidationResult {
	if strings.TrimSpace(schemaRef) == "" {
		return ValidationResult{Valid: true, Skipped: true}
	}

	res := ValidationResult{SchemaRef: schemaRef}

	path, err := schemaPath(schemaRef)
	if err != nil {
		res.Diagnostics = append(res.Diagnostics, Diagnostic{Severity: SeverityFatal, Message: err.Error()})
		return res
	}

	schema, err := v.schema(path)
	if err != nil {
		res.Diagnostics = append(res.Diagnostics, Diagnostic{
			Severity: SeverityFatal,
			Code:     string(xsderrors.ErrSchemaNotLoaded),
			Message:  err.Error(),
		})
		return res
	}

	if d, ok := schemaLocationMismatch(document, path); ok {
		res.Diagnostics = append(res.Diagnostics, d)
	}

	if err := schema.Validate(bytes.NewReader(document)); err != nil {
		res.Diagnostics = append(res.Diagnostics, diagnosticsFrom(err)...)
	}

	res.Valid = len(res.Failures()) == 0
	return res
}

// schema returns the compiled schema for path, compiling it on first use.
// Failed compilations are not cached.
func (v *Validator) schema(path string) (*xsd.Schema, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if s, ok := v.schemas[path]; ok {
		return s, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cda: schema %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("cda: schema %s is a directory", path)
	}

	s, err := xsd.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cda: failed to compile schema: %w", err)
	}
	v.schemas[path] = s
	v.logger.Debug().Str("schema", path).Msg("schema compiled")
	return s, nil
}

// schemaPath turns a schema reference into a local path. Remote references
// are rejected so validation never reaches the network.
func schemaPath(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if !strings.Contains(ref, "://") {
		return filepath.Clean(ref), nil
	}

	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("cda: invalid schema reference %q: %w", ref, err)
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("cda: unsupported schema reference scheme %q", u.Scheme)
	}
	if u.Path == "" {
		return "", fmt.Errorf("cda: schema reference %q has no path", ref)
	}
	return filepath.FromSlash(u.Path), nil
}

// diagnosticsFrom maps an error returned by the schema engine to diagnostics.
func diagnosticsFrom(err error) []Diagnostic {
	violations, ok := xsderrors.AsValidations(err)
	if !ok {
		return []Diagnostic{{Severity: SeverityFatal, Message: err.Error()}}
	}

	out := make([]Diagnostic, 0, len(violations))
	for _, vl := range violations {
		out = append(out, Diagnostic{
			Severity: severityOf(vl.Code),
			Code:     vl.Code,
			Message:  vl.Message,
			Path:     vl.Path,
			Line:     vl.Line,
			Column:   vl.Column,
		})
	}
	return out
}

// severityOf reports fatal for findings that stop the document from being
// read at all and error for schema violations.
func severityOf(code string) Severity {
	switch xsderrors.ErrorCode(code) {
	case xsderrors.ErrXMLParse, xsderrors.ErrNoRoot, xsderrors.ErrSchemaNotLoaded:
		return SeverityFatal
	default:
		return SeverityError
	}
}

// schemaLocationMismatch warns when the root element's xsi:schemaLocation
// hint names a schema other than the one being validated against.
func schemaLocationMismatch(document []byte, path string) (Diagnostic, bool) {
	dec := xml.NewDecoder(bytes.NewReader(document))
	for {
		tok, err := dec.Token()
		if err != nil {
			return Diagnostic{}, false
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		for _, attr := range start.Attr {
			if attr.Name.Space != XSINamespace || attr.Name.Local != "schemaLocation" {
				continue
			}
			fields := strings.Fields(attr.Value)
			for i := 1; i < len(fields); i += 2 {
				if filepath.Base(filepath.FromSlash(fields[i])) == filepath.Base(path) {
					return Diagnostic{}, false
				}
			}
			line, col := dec.InputPos()
			return Diagnostic{
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("schemaLocation %q does not reference %s", attr.Value, filepath.Base(path)),
				Path:     "/" + start.Name.Local,
				Line:     line,
				Column:   col,
			}, true
		}
		return Diagnostic{}, false
	}
}
