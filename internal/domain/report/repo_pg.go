package report

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/cdareport/internal/platform/db"
)

type archiveLogPG struct {
	pool db.Querier
}

func NewArchiveLog(pool *pgxpool.Pool) ArchiveLog {
	return &archiveLogPG{pool: pool}
}

func (r *archiveLogPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

func (r *archiveLogPG) Record(ctx context.Context, e *ArchiveEntry) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO report_archive (document_id, pat_id, study_uid, file_path, effective_time)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING archived_at`,
		e.DocumentID, e.PatientID, e.StudyUID, e.FilePath, e.EffectiveTime,
	).Scan(&e.ArchivedAt)
	if err != nil {
		return fmt.Errorf("record archived report %s: %w", e.DocumentID, err)
	}
	return nil
}

func (r *archiveLogPG) ListByStudy(ctx context.Context, studyUID string) ([]*ArchiveEntry, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT document_id::text, pat_id, study_uid, file_path, effective_time, archived_at
		FROM report_archive WHERE study_uid = $1
		ORDER BY archived_at DESC`, studyUID)
	if err != nil {
		return nil, fmt.Errorf("list archived reports for %s: %w", studyUID, err)
	}
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*ArchiveEntry, error) {
		var e ArchiveEntry
		err := row.Scan(&e.DocumentID, &e.PatientID, &e.StudyUID, &e.FilePath, &e.EffectiveTime, &e.ArchivedAt)
		return &e, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan archived reports: %w", err)
	}
	return entries, nil
}
