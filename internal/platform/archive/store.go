// Package archive writes generated documents to the output directory.
package archive

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ehr/cdareport/internal/platform/cda"
)

// ErrDisabled is returned by Save when no output directory is configured.
var ErrDisabled = errors.New("archive: output path not configured")

const fileTimeLayout = "20060102150405"

// Store saves documents under a single directory.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: strings.TrimSpace(dir)}
}

func (s *Store) Dir() string { return s.dir }

func (s *Store) Enabled() bool { return s.dir != "" }

// EnsureDir creates the output directory if it is missing. It fails when the
// path exists but is not a directory.
func (s *Store) EnsureDir() error {
	if !s.Enabled() {
		return ErrDisabled
	}
	info, err := os.Stat(s.dir)
	switch {
	case err == nil && !info.IsDir():
		return fmt.Errorf("archive: %s exists and is not a directory", s.dir)
	case err == nil:
		return nil
	case !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("archive: stat %s: %w", s.dir, err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("archive: create %s: %w", s.dir, err)
	}
	return nil
}

// FileName returns ORU_<patient>_<accession>_<YYYYMMDDHHMMSS>.xml with
// characters unsafe in file names replaced by '_'.
func FileName(patientID, accession string, at time.Time) string {
	return fmt.Sprintf("ORU_%s_%s_%s.xml",
		sanitize(patientID), sanitize(accession), at.Format(fileTimeLayout))
}

// Save writes doc atomically and returns the path of the new file. The name
// carries doc.GeneratedAt, the same instant as the document's effectiveTime.
func (s *Store) Save(doc *cda.GeneratedDocument, patient cda.Patient, study cda.Study) (string, error) {
	if !s.Enabled() {
		return "", ErrDisabled
	}
	if doc == nil || len(doc.XML) == 0 {
		return "", errors.New("archive: empty document")
	}
	if err := s.EnsureDir(); err != nil {
		return "", err
	}

	path := filepath.Join(s.dir, FileName(patient.ID, study.AccessionNumber, doc.GeneratedAt))
	if err := writeAtomic(path, doc.XML); err != nil {
		return "", err
	}
	return path, nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("archive: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("archive: write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("archive: sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("archive: close %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("archive: chmod %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("archive: rename into %s: %w", path, err)
	}
	return nil
}

// sanitize keeps letters, digits, '-' and '.'; anything else becomes '_'.
// An empty value becomes "UNKNOWN".
func sanitize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "UNKNOWN"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			return r
		default:
			return '_'
		}
	}, s)
}
