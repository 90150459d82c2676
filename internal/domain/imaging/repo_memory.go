package imaging

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// NewMemoryRepos returns repositories holding the rows of b, for running
// without a database. Later rows replace earlier ones with the same key.
func NewMemoryRepos(b Batch) (PatientRepository, StudyRepository) {
	m := &memoryStore{
		patients: make(map[string]Patient),
		studies:  make(map[string]Study),
	}
	for _, p := range b.Patients {
		if p != nil && p.ID != "" {
			m.patients[p.ID] = *p
		}
	}
	for _, s := range b.Studies {
		if s != nil && s.InstanceUID != "" {
			m.studies[s.InstanceUID] = *s
		}
	}
	return (*memPatientRepo)(m), (*memStudyRepo)(m)
}

type memoryStore struct {
	mu       sync.RWMutex
	patients map[string]Patient
	studies  map[string]Study
}

type memPatientRepo memoryStore

func (r *memPatientRepo) List(_ context.Context) ([]*Patient, error) {
	return r.filter(func(*Patient) bool { return true }), nil
}

func (r *memPatientRepo) Search(_ context.Context, term string) ([]*Patient, error) {
	term = strings.ToLower(term)
	return r.filter(func(p *Patient) bool {
		return strings.Contains(strings.ToLower(p.Name), term) || strings.Contains(strings.ToLower(p.ID), term)
	}), nil
}

func (r *memPatientRepo) filter(keep func(*Patient) bool) []*Patient {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*Patient{}
	for _, p := range r.patients {
		if keep(&p) {
			out = append(out, &p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *memPatientRepo) GetByID(_ context.Context, id string) (*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.patients[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (r *memPatientRepo) Upsert(_ context.Context, p *Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patients[p.ID] = *p
	return nil
}

type memStudyRepo memoryStore

func (r *memStudyRepo) ListByPatient(_ context.Context, patientID string) ([]*Study, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*Study{}
	for _, s := range r.studies {
		if s.PatientID == patientID {
			out = append(out, &s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].Time > out[j].Time
	})
	return out, nil
}

func (r *memStudyRepo) GetByUID(_ context.Context, uid string) (*Study, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.studies[uid]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (r *memStudyRepo) Upsert(_ context.Context, s *Study) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.studies[s.InstanceUID] = *s
	return nil
}
