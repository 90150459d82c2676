package cda

import "testing"

func TestResolve(t *testing.T) {
	tests := []struct {
		name       string
		builtIn    string
		candidates []string
		want       string
	}{
		{"no candidates", "Unknown", nil, "Unknown"},
		{"all empty", "Unknown", []string{"", "", ""}, "Unknown"},
		{"first wins", "Unknown", []string{"a", "b"}, "a"},
		{"skips empty", "Unknown", []string{"", "b", "c"}, "b"},
		{"last candidate", "Unknown", []string{"", "", "c"}, "c"},
		{"whitespace is content", "Unknown", []string{" ", "b"}, " "},
		{"empty built-in", "", []string{"", ""}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Resolve(tt.builtIn, tt.candidates...); got != tt.want {
				t.Errorf("Resolve(%q, %q) = %q, want %q", tt.builtIn, tt.candidates, got, tt.want)
			}
		})
	}
}

func TestResolveCode_FieldsIndependent(t *testing.T) {
	fallback := CodeConfig{Code: "UNK", CodeSystem: OIDNullFlavor, CodeSystemName: "Unknown", DisplayName: "Unknown"}

	got := ResolveCode(CodeConfig{Code: "18748-4", DisplayName: "Report"}, fallback)
	want := CodeConfig{Code: "18748-4", CodeSystem: OIDNullFlavor, CodeSystemName: "Unknown", DisplayName: "Report"}
	if got != want {
		t.Errorf("ResolveCode = %+v, want %+v", got, want)
	}

	if got := ResolveCode(CodeConfig{}, fallback); got != fallback {
		t.Errorf("ResolveCode(empty) = %+v, want %+v", got, fallback)
	}
}

func TestResolver_Code(t *testing.T) {
	r := NewResolver(BuiltinDefaults())

	got := r.Code(CodeConfig{CodeSystem: OIDLOINC})
	if got.Code != "UNK" {
		t.Errorf("expected code UNK, got %q", got.Code)
	}
	if got.CodeSystem != OIDLOINC {
		t.Errorf("expected configured code system, got %q", got.CodeSystem)
	}
	if got.CodeSystemName != "Unknown" || got.DisplayName != "Unknown" {
		t.Errorf("expected placeholder names, got %+v", got)
	}
}

func TestResolver_OrganizationID(t *testing.T) {
	r := NewResolver(BuiltinDefaults())

	tests := []struct {
		name        string
		sectionRoot string
		sectionExt  string
		orgOID      string
		want        InstanceID
	}{
		{
			name: "all empty uses placeholders",
			want: InstanceID{Root: "2.25.0.0.0.0", Extension: "Unknown"},
		},
		{
			name:   "organization OID without extension omits extension",
			orgOID: "1.2.3",
			want:   InstanceID{Root: "1.2.3"},
		},
		{
			name:        "section root wins over organization",
			sectionRoot: "9.9",
			orgOID:      "1.2.3",
			want:        InstanceID{Root: "9.9"},
		},
		{
			name:       "configured extension always kept",
			sectionExt: "FAC-1",
			want:       InstanceID{Root: "2.25.0.0.0.0", Extension: "FAC-1"},
		},
		{
			name:        "section root and extension",
			sectionRoot: "9.9",
			sectionExt:  "FAC-1",
			orgOID:      "1.2.3",
			want:        InstanceID{Root: "9.9", Extension: "FAC-1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.OrganizationID(tt.sectionRoot, tt.sectionExt, tt.orgOID)
			if got != tt.want {
				t.Errorf("OrganizationID = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestResolver_InjectedDefaults(t *testing.T) {
	d := BuiltinDefaults()
	d.Text = "N/A"
	d.OIDRoot = "1.1"
	r := NewResolver(d)

	if got := r.Text("", ""); got != "N/A" {
		t.Errorf("expected injected text default, got %q", got)
	}
	if got := r.OID(); got != "1.1" {
		t.Errorf("expected injected OID default, got %q", got)
	}

	d.Text = "changed"
	if got := r.Text(); got != "N/A" {
		t.Errorf("resolver observed mutation of its defaults: %q", got)
	}
}

func TestSplitName(t *testing.T) {
	tests := []struct {
		in     string
		given  string
		family string
	}{
		{"", "Unknown", "Unknown"},
		{"Unknown", "Unknown", "Unknown"},
		{"Kowalski", "Unknown", "Kowalski"},
		{"Kowalski Jan", "Jan", "Kowalski"},
		{"Kowalski Jan Maria", "Jan Maria", "Kowalski"},
		{" Jan", "Jan", "Unknown"},
		{"Kowalski ", "Unknown", "Kowalski"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			given, family := SplitName(tt.in, "Unknown")
			if given != tt.given || family != tt.family {
				t.Errorf("SplitName(%q) = (%q, %q), want (%q, %q)", tt.in, given, family, tt.given, tt.family)
			}
		})
	}
}
