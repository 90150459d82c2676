package imaging

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryRepos(t *testing.T) {
	patients, studies := NewMemoryRepos(Batch{
		Patients: []*Patient{
			{ID: "P2", Name: "Nowak Anna"},
			{ID: "P1", Name: "Kowalski Jan"},
			{Name: "no id, dropped"},
		},
		Studies: []*Study{
			{InstanceUID: "1.1", PatientID: "P1", Date: "20230101"},
			{InstanceUID: "1.2", PatientID: "P1", Date: "20240101"},
			{InstanceUID: "2.1", PatientID: "P2"},
		},
	})
	ctx := context.Background()

	all, _ := patients.List(ctx)
	if len(all) != 2 || all[0].ID != "P1" {
		t.Errorf("expected 2 patients ordered by name, got %+v", all)
	}

	found, _ := patients.Search(ctx, "NOWAK")
	if len(found) != 1 || found[0].ID != "P2" {
		t.Errorf("unexpected search result %+v", found)
	}

	if _, err := patients.GetByID(ctx, "P9"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	list, _ := studies.ListByPatient(ctx, "P1")
	if len(list) != 2 || list[0].InstanceUID != "1.2" {
		t.Errorf("expected newest study first, got %+v", list)
	}

	if err := studies.Upsert(ctx, &Study{InstanceUID: "1.1", PatientID: "P1", Modality: "CT"}); err != nil {
		t.Fatal(err)
	}
	st, err := studies.GetByUID(ctx, "1.1")
	if err != nil || st.Modality != "CT" {
		t.Errorf("expected upserted study, got %+v %v", st, err)
	}
}

func TestMemoryRepos_ReturnsCopies(t *testing.T) {
	patients, _ := NewMemoryRepos(Batch{Patients: []*Patient{{ID: "P1", Name: "Kowalski Jan"}}})
	ctx := context.Background()

	p, _ := patients.GetByID(ctx, "P1")
	p.Name = "changed"

	again, _ := patients.GetByID(ctx, "P1")
	if again.Name != "Kowalski Jan" {
		t.Errorf("stored patient was modified through a returned pointer")
	}
}
