package cda

import (
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

const testSchema = "testdata/report.xsd"

const minimalValidDoc = `<?xml version="1.0" encoding="UTF-8"?>
<ClinicalDocument xmlns="urn:hl7-org:v3">
  <realmCode code="PL"/>
  <typeId root="2.16.840.1.113883.1.3" extension="POCD_HD000040"/>
  <id root="2.25.0.0.0.0" extension="abc"/>
  <code code="UNK" codeSystem="2.16.840.1.113883.5.1008"/>
  <title>Report</title>
  <effectiveTime value="20240115143000+0100"/>
  <confidentialityCode code="N" codeSystem="2.16.840.1.113883.5.25"/>
  <languageCode code="pl-PL"/>
</ClinicalDocument>`

const missingLanguageDoc = `<?xml version="1.0" encoding="UTF-8"?>
<ClinicalDocument xmlns="urn:hl7-org:v3">
  <realmCode code="PL"/>
  <typeId root="2.16.840.1.113883.1.3" extension="POCD_HD000040"/>
  <id root="2.25.0.0.0.0"/>
  <code code="UNK" codeSystem="2.16.840.1.113883.5.1008"/>
  <title>Report</title>
  <effectiveTime value="20240115"/>
  <confidentialityCode code="N" codeSystem="2.16.840.1.113883.5.25"/>
</ClinicalDocument>`

func newTestValidator() *Validator {
	return NewValidator(zerolog.Nop())
}

func TestValidator_EmptyReferenceSkips(t *testing.T) {
	v := newTestValidator()

	for _, ref := range []string{"", "   "} {
		res := v.Validate([]byte("not even xml"), ref)
		if !res.Valid || !res.Skipped {
			t.Errorf("ref %q: expected skipped and valid, got %+v", ref, res)
		}
		if len(res.Diagnostics) != 0 {
			t.Errorf("ref %q: expected no diagnostics, got %v", ref, res.Diagnostics)
		}
	}
}

func TestValidator_ValidDocument(t *testing.T) {
	res := newTestValidator().Validate([]byte(minimalValidDoc), testSchema)
	if !res.Valid {
		t.Fatalf("expected valid, diagnostics: %v", res.Diagnostics)
	}
	if res.Skipped {
		t.Error("expected validation to run")
	}
}

func TestValidator_SchemaViolation(t *testing.T) {
	res := newTestValidator().Validate([]byte(missingLanguageDoc), testSchema)
	if res.Valid {
		t.Fatal("expected document without languageCode to be invalid")
	}
	failures := res.Failures()
	if len(failures) == 0 {
		t.Fatal("expected at least one failure diagnostic")
	}
	for _, d := range failures {
		if d.Message == "" {
			t.Errorf("diagnostic without message: %+v", d)
		}
	}
}

func TestValidator_MalformedDocumentIsFatal(t *testing.T) {
	res := newTestValidator().Validate([]byte("<ClinicalDocument xmlns=\"urn:hl7-org:v3\"><realmCode"), testSchema)
	if res.Valid {
		t.Fatal("expected malformed document to be invalid")
	}

	fatal := false
	for _, d := range res.Diagnostics {
		if d.Severity == SeverityFatal {
			fatal = true
		}
	}
	if !fatal {
		t.Errorf("expected a fatal diagnostic, got %v", res.Diagnostics)
	}
}

func TestValidator_EmptyDocument(t *testing.T) {
	res := newTestValidator().Validate(nil, testSchema)
	if res.Valid {
		t.Fatal("expected empty document to be invalid")
	}
}

func TestValidator_MissingSchemaFile(t *testing.T) {
	ref := filepath.Join(t.TempDir(), "missing.xsd")
	res := newTestValidator().Validate([]byte(minimalValidDoc), ref)
	if res.Valid || res.Skipped {
		t.Fatalf("expected failure for missing schema, got %+v", res)
	}
	if len(res.Diagnostics) != 1 || res.Diagnostics[0].Severity != SeverityFatal {
		t.Errorf("expected one fatal diagnostic, got %v", res.Diagnostics)
	}
}

func TestValidator_RemoteReferenceRejected(t *testing.T) {
	res := newTestValidator().Validate([]byte(minimalValidDoc), "https://example.org/CDA.xsd")
	if res.Valid {
		t.Fatal("expected remote schema reference to be rejected")
	}
	if res.Diagnostics[0].Severity != SeverityFatal {
		t.Errorf("expected fatal diagnostic, got %+v", res.Diagnostics[0])
	}
}

func TestValidator_FileURI(t *testing.T) {
	abs, err := filepath.Abs(testSchema)
	if err != nil {
		t.Fatal(err)
	}
	ref := "file://" + filepath.ToSlash(abs)

	res := newTestValidator().Validate([]byte(minimalValidDoc), ref)
	if !res.Valid {
		t.Errorf("expected valid via file URI, diagnostics: %v", res.Diagnostics)
	}
}

func TestValidator_Idempotent(t *testing.T) {
	v := newTestValidator()
	doc := []byte(missingLanguageDoc)
	orig := append([]byte(nil), doc...)

	first := v.Validate(doc, testSchema)
	second := v.Validate(doc, testSchema)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("results differ:\n first %+v\nsecond %+v", first, second)
	}
	if string(doc) != string(orig) {
		t.Error("validator modified the document")
	}
}

func TestValidator_SchemaCompiledOnce(t *testing.T) {
	dir := t.TempDir()
	data, err := os.ReadFile(testSchema)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "report.xsd")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	v := newTestValidator()
	if res := v.Validate([]byte(minimalValidDoc), path); !res.Valid {
		t.Fatalf("expected valid, diagnostics: %v", res.Diagnostics)
	}

	// The cached schema keeps serving after the file disappears.
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if res := v.Validate([]byte(minimalValidDoc), path); !res.Valid {
		t.Errorf("expected cached schema to be used, diagnostics: %v", res.Diagnostics)
	}
}

func TestValidator_SchemaLocationMismatchWarns(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<ClinicalDocument xmlns="urn:hl7-org:v3" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" xsi:schemaLocation="urn:hl7-org:v3 other.xsd">
  <realmCode code="PL"/>
  <typeId root="2.16.840.1.113883.1.3" extension="POCD_HD000040"/>
  <id root="2.25.0.0.0.0" extension="abc"/>
  <code code="UNK" codeSystem="2.16.840.1.113883.5.1008"/>
  <title>Report</title>
  <effectiveTime value="20240115143000+0100"/>
  <confidentialityCode code="N" codeSystem="2.16.840.1.113883.5.25"/>
  <languageCode code="pl-PL"/>
</ClinicalDocument>`

	res := newTestValidator().Validate([]byte(doc), testSchema)
	if !res.Valid {
		t.Fatalf("a warning must not invalidate the document: %v", res.Diagnostics)
	}
	if len(res.Diagnostics) != 1 || res.Diagnostics[0].Severity != SeverityWarning {
		t.Errorf("expected one warning, got %v", res.Diagnostics)
	}
}

func TestValidator_Concurrent(t *testing.T) {
	v := newTestValidator()

	var wg sync.WaitGroup
	results := make(chan ValidationResult, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			doc := minimalValidDoc
			if i%2 == 1 {
				doc = missingLanguageDoc
			}
			results <- v.Validate([]byte(doc), testSchema)
		}(i)
	}
	wg.Wait()
	close(results)

	valid, invalid := 0, 0
	for res := range results {
		if res.Valid {
			valid++
		} else {
			invalid++
		}
	}
	if valid != 8 || invalid != 8 {
		t.Errorf("expected 8 valid and 8 invalid, got %d and %d", valid, invalid)
	}
}

func TestSchemaPath(t *testing.T) {
	tests := []struct {
		ref     string
		want    string
		wantErr bool
	}{
		{ref: "schemas/CDA.xsd", want: filepath.Clean("schemas/CDA.xsd")},
		{ref: "file:///opt/schemas/CDA.xsd", want: filepath.FromSlash("/opt/schemas/CDA.xsd")},
		{ref: "http://example.org/CDA.xsd", wantErr: true},
		{ref: "file://", wantErr: true},
	}

	for _, tt := range tests {
		got, err := schemaPath(tt.ref)
		if (err != nil) != tt.wantErr {
			t.Errorf("schemaPath(%q) error = %v, wantErr %v", tt.ref, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("schemaPath(%q) = %q, want %q", tt.ref, got, tt.want)
		}
	}
}
