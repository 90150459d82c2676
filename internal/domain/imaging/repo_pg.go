package imaging

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/cdareport/internal/platform/db"
)

// -- Patient Repository --

type patientRepoPG struct {
	pool db.Querier
}

func NewPatientRepo(pool *pgxpool.Pool) PatientRepository {
	return &patientRepoPG{pool: pool}
}

func (r *patientRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const patientCols = `pat_id, COALESCE(pat_name, ''), COALESCE(pat_birth_dt, ''), COALESCE(pat_gender_code, ''),
	COALESCE(pat_address, ''), COALESCE(pat_phone, '')`

func (r *patientRepoPG) List(ctx context.Context) ([]*Patient, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+patientCols+` FROM patients ORDER BY pat_name, pat_id`)
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	return collectPatients(rows)
}

func (r *patientRepoPG) Search(ctx context.Context, term string) ([]*Patient, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+patientCols+` FROM patients
		WHERE pat_name ILIKE $1 OR pat_id ILIKE $1
		ORDER BY pat_name, pat_id`,
		"%"+term+"%",
	)
	if err != nil {
		return nil, fmt.Errorf("search patients: %w", err)
	}
	return collectPatients(rows)
}

func (r *patientRepoPG) GetByID(ctx context.Context, id string) (*Patient, error) {
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE pat_id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get patient %s: %w", id, err)
	}
	return p, nil
}

func (r *patientRepoPG) Upsert(ctx context.Context, p *Patient) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patients (pat_id, pat_name, pat_birth_dt, pat_gender_code, pat_address, pat_phone)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (pat_id) DO UPDATE SET
			pat_name = EXCLUDED.pat_name,
			pat_birth_dt = EXCLUDED.pat_birth_dt,
			pat_gender_code = EXCLUDED.pat_gender_code,
			pat_address = EXCLUDED.pat_address,
			pat_phone = EXCLUDED.pat_phone`,
		p.ID, p.Name, p.BirthDate, p.Sex, p.Address, p.Phone,
	)
	if err != nil {
		return fmt.Errorf("upsert patient %s: %w", p.ID, err)
	}
	return nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	if err := row.Scan(&p.ID, &p.Name, &p.BirthDate, &p.Sex, &p.Address, &p.Phone); err != nil {
		return nil, err
	}
	return &p, nil
}

func collectPatients(rows pgx.Rows) ([]*Patient, error) {
	defer rows.Close()

	var patients []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan patient: %w", err)
		}
		patients = append(patients, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate patients: %w", err)
	}
	return patients, nil
}

// -- Study Repository --

type studyRepoPG struct {
	pool db.Querier
}

func NewStudyRepo(pool *pgxpool.Pool) StudyRepository {
	return &studyRepoPG{pool: pool}
}

func (r *studyRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const studyCols = `study_uid, COALESCE(pat_id, ''), COALESCE(acc_num, ''), COALESCE(study_dt, ''),
	COALESCE(study_tm, ''), COALESCE(mod, ''), COALESCE(study_desc, ''),
	COALESCE(ref_phys_name, ''), COALESCE(perf_phys_name, '')`

func (r *studyRepoPG) ListByPatient(ctx context.Context, patientID string) ([]*Study, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+studyCols+` FROM studies WHERE pat_id = $1 ORDER BY study_dt DESC, study_tm DESC`,
		patientID,
	)
	if err != nil {
		return nil, fmt.Errorf("list studies for %s: %w", patientID, err)
	}
	defer rows.Close()

	var studies []*Study
	for rows.Next() {
		s, err := scanStudy(rows)
		if err != nil {
			return nil, fmt.Errorf("scan study: %w", err)
		}
		studies = append(studies, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate studies: %w", err)
	}
	return studies, nil
}

func (r *studyRepoPG) GetByUID(ctx context.Context, uid string) (*Study, error) {
	s, err := scanStudy(r.conn(ctx).QueryRow(ctx, `SELECT `+studyCols+` FROM studies WHERE study_uid = $1`, uid))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get study %s: %w", uid, err)
	}
	return s, nil
}

func (r *studyRepoPG) Upsert(ctx context.Context, s *Study) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO studies (study_uid, pat_id, acc_num, study_dt, study_tm, mod, study_desc, ref_phys_name, perf_phys_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (study_uid) DO UPDATE SET
			pat_id = EXCLUDED.pat_id,
			acc_num = EXCLUDED.acc_num,
			study_dt = EXCLUDED.study_dt,
			study_tm = EXCLUDED.study_tm,
			mod = EXCLUDED.mod,
			study_desc = EXCLUDED.study_desc,
			ref_phys_name = EXCLUDED.ref_phys_name,
			perf_phys_name = EXCLUDED.perf_phys_name`,
		s.InstanceUID, s.PatientID, s.AccessionNumber, s.Date, s.Time,
		s.Modality, s.Description, s.ReferringPhysician, s.PerformingPhysician,
	)
	if err != nil {
		return fmt.Errorf("upsert study %s: %w", s.InstanceUID, err)
	}
	return nil
}

func scanStudy(row pgx.Row) (*Study, error) {
	var s Study
	err := row.Scan(
		&s.InstanceUID, &s.PatientID, &s.AccessionNumber, &s.Date, &s.Time,
		&s.Modality, &s.Description, &s.ReferringPhysician, &s.PerformingPhysician,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
