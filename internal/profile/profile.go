// Package profile loads the site configuration that shapes generated reports.
package profile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/ehr/cdareport/internal/platform/cda"
)

// ErrUnsupportedFormat is returned for profile files whose extension is not
// one of .yaml, .yml, .json, .toml or .xml.
var ErrUnsupportedFormat = errors.New("profile: unsupported file format")

// Overrides are process-level settings that take precedence over the file.
type Overrides struct {
	CDAXSDPath string
	OutputPath string
}

// Load reads the profile at path and applies overrides. A missing file is
// reported with an error wrapping os.ErrNotExist.
func Load(path string, o Overrides) (cda.Profile, error) {
	var (
		p   cda.Profile
		err error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json", ".toml":
		p, err = loadViper(path)
	case ".xml":
		p, err = loadLegacyXML(path)
	default:
		return cda.Profile{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, path)
	}
	if err != nil {
		return cda.Profile{}, err
	}

	return Apply(p, o), nil
}

// Apply returns p with every non-empty override set.
func Apply(p cda.Profile, o Overrides) cda.Profile {
	if o.CDAXSDPath != "" {
		p.CDAXSDPath = o.CDAXSDPath
	}
	if o.OutputPath != "" {
		p.OutputPath = o.OutputPath
	}
	return p
}

func loadViper(path string) (cda.Profile, error) {
	if _, err := os.Stat(path); err != nil {
		return cda.Profile{}, fmt.Errorf("profile: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return cda.Profile{}, fmt.Errorf("profile: read %s: %w", path, err)
	}

	var p cda.Profile
	if err := v.Unmarshal(&p); err != nil {
		return cda.Profile{}, fmt.Errorf("profile: decode %s: %w", path, err)
	}
	return normalize(p), nil
}

// normalize drops entries that cannot be rendered: template ids without a
// root and custom OIDs missing either half of the mapping.
func normalize(p cda.Profile) cda.Profile {
	var templates []cda.TemplateIDConfig
	for _, t := range p.TemplateIDs {
		if t.Root != "" {
			templates = append(templates, t)
		}
	}
	p.TemplateIDs = templates

	var oids []cda.CustomOID
	for _, c := range p.CustomOIDs {
		if c.OID != "" && c.AssigningAuthority != "" {
			oids = append(oids, c)
		}
	}
	p.CustomOIDs = oids
	return p
}
