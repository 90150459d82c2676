package integration

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ehr/cdareport/internal/domain/imaging"
	"github.com/ehr/cdareport/internal/domain/report"
	"github.com/ehr/cdareport/internal/platform/archive"
	"github.com/ehr/cdareport/internal/platform/cda"
	"github.com/ehr/cdareport/internal/platform/db"
)

func newImagingService() *imaging.Service {
	pool := globalDB.Pool
	svc := imaging.NewService(imaging.NewPatientRepo(pool), imaging.NewStudyRepo(pool), zerolog.Nop())
	return svc.WithTx(func(ctx context.Context, fn func(ctx context.Context) error) error {
		return db.WithTx(ctx, pool, fn)
	})
}

func seed(t *testing.T, ctx context.Context, svc *imaging.Service) (*imaging.Patient, *imaging.Study) {
	t.Helper()
	p := &imaging.Patient{ID: uniqueID("PAT"), Name: "Nowak Anna", BirthDate: "19750512", Sex: "F"}
	s := &imaging.Study{
		InstanceUID:     uniqueID("1.2.840"),
		PatientID:       p.ID,
		AccessionNumber: uniqueID("ACC"),
		Date:            "20240115",
		Time:            "101500",
		Modality:        "NM",
		Description:     "Thyroid scintigraphy",
	}
	if err := svc.Import(ctx, imaging.Batch{Patients: []*imaging.Patient{p}, Studies: []*imaging.Study{s}}); err != nil {
		t.Fatalf("import: %v", err)
	}
	return p, s
}

func TestImaging_ImportAndRead(t *testing.T) {
	ctx := context.Background()
	svc := newImagingService()
	p, s := seed(t, ctx, svc)

	got, err := svc.GetPatient(ctx, p.ID)
	if err != nil {
		t.Fatalf("get patient: %v", err)
	}
	if got.Name != p.Name || got.BirthDate != p.BirthDate {
		t.Errorf("unexpected patient %+v", got)
	}

	found, err := svc.SearchPatients(ctx, p.ID[4:])
	if err != nil || len(found) != 1 {
		t.Errorf("expected search by partial id to find the patient, got %d (%v)", len(found), err)
	}

	studies, err := svc.ListStudies(ctx, p.ID)
	if err != nil || len(studies) != 1 || studies[0].InstanceUID != s.InstanceUID {
		t.Errorf("unexpected studies %+v (%v)", studies, err)
	}

	missing, err := svc.GetStudy(ctx, "no-such-study")
	if err != nil || !missing.IsZero() {
		t.Errorf("expected empty study for unknown uid, got %+v (%v)", missing, err)
	}
}

func TestImaging_UpsertReplaces(t *testing.T) {
	ctx := context.Background()
	svc := newImagingService()
	p, _ := seed(t, ctx, svc)

	p.Name = "Nowak-Kowalska Anna"
	if err := svc.Import(ctx, imaging.Batch{Patients: []*imaging.Patient{p}}); err != nil {
		t.Fatal(err)
	}
	got, _ := svc.GetPatient(ctx, p.ID)
	if got.Name != p.Name {
		t.Errorf("expected updated name, got %q", got.Name)
	}
}

func TestImaging_ImportRollsBack(t *testing.T) {
	ctx := context.Background()
	svc := newImagingService()

	p := &imaging.Patient{ID: uniqueID("PAT"), Name: "Rollback"}
	orphan := &imaging.Study{InstanceUID: uniqueID("1.2"), PatientID: "missing-patient"}
	err := svc.Import(ctx, imaging.Batch{Patients: []*imaging.Patient{p}, Studies: []*imaging.Study{orphan}})
	if err == nil {
		t.Fatal("expected foreign key violation")
	}

	got, _ := svc.GetPatient(ctx, p.ID)
	if !got.IsZero() {
		t.Error("patient insert should have been rolled back")
	}
}

func TestReport_ArchiveLog(t *testing.T) {
	ctx := context.Background()
	svc := newImagingService()
	p, s := seed(t, ctx, svc)

	reports := report.NewService(svc, cda.NewGenerator(cda.Profile{}), archive.NewStore(t.TempDir()), zerolog.Nop()).
		WithArchiveLog(report.NewArchiveLog(globalDB.Pool))

	out, err := reports.Produce(ctx, p.ID, s.InstanceUID, true)
	if err != nil {
		t.Fatalf("produce: %v", err)
	}

	history, err := reports.History(ctx, s.InstanceUID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 || history[0].DocumentID != out.Document.DocumentID || history[0].FilePath != out.File {
		t.Errorf("unexpected history %+v", history)
	}
	if history[0].ArchivedAt.IsZero() {
		t.Error("expected archived_at to be set")
	}
}

func TestMigrations_Status(t *testing.T) {
	statuses, err := db.NewMigrator(globalDB.Pool, db.Migrations()).Status(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range statuses {
		if !s.Applied {
			t.Errorf("migration %d not applied", s.Version)
		}
	}
}

func TestHealth_Ping(t *testing.T) {
	p := db.NewProber(globalDB.Pool)
	if err := p.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if p.Stats().MaxConns != 5 {
		t.Errorf("expected pool bound of 5, got %+v", p.Stats())
	}
}
