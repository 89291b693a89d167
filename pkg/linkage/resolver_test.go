package linkage

import (
	"strings"
	"testing"
	"time"

	"github.com/synaptica-ai/inspire-premeds/pkg/common/models"
	"github.com/synaptica-ai/inspire-premeds/pkg/common/pseudotime"
	"github.com/synaptica-ai/inspire-premeds/pkg/frame"
)

func readCSV(t *testing.T, text string) *frame.Frame {
	t.Helper()
	f, err := frame.ReadCSV(strings.NewReader(text), frame.CSVOptions{})
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	return f
}

func column(t *testing.T, f *frame.Frame, name string) *frame.Column {
	t.Helper()
	c, err := f.Column(name)
	if err != nil {
		t.Fatalf("column %s: %v", name, err)
	}
	return c
}

func TestResolveSharedOrigin(t *testing.T) {
	raw := readCSV(t, "subject_id,op_id,admission_time,age,sex,inhosp_death_time,allcause_death_time\n"+
		"1,10,0,40,M,,\n"+
		"2,20,100,60,F,,\n")

	id, err := NewResolver(DefaultColumns(), pseudotime.Origin).Resolve(raw)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if id.Patients.NumRows() != 2 {
		t.Fatalf("expected 2 patients, got %d", id.Patients.NumRows())
	}

	first := column(t, id.Patients, models.FirstAdmittedAtTime)
	dob := column(t, id.Patients, models.DateOfBirth)
	dod := column(t, id.Patients, models.DateOfDeath)
	for i := 0; i < 2; i++ {
		if !first.Time(i).Equal(pseudotime.Origin) {
			t.Fatalf("patient %d: first admission %s, expected origin", i, first.Time(i))
		}
		if !dod.IsNull(i) {
			t.Fatalf("patient %d: expected null date of death", i)
		}
	}

	// 40*365.25 - 182.625 = 14427.375 days before the origin.
	want := pseudotime.Origin.Add(-time.Duration(14427.375 * 24 * float64(time.Hour)))
	if !dob.Time(0).Equal(want) {
		t.Fatalf("expected birth %s, got %s", want, dob.Time(0))
	}

	origin, err := id.Origin(time.Time{})
	if err != nil || !origin.Equal(pseudotime.Origin) {
		t.Fatalf("expected origin %s, got %s (%v)", pseudotime.Origin, origin, err)
	}

	patient, link, err := ResolvePatients(raw)
	if err != nil {
		t.Fatalf("resolve patients: %v", err)
	}
	if patient.NumRows() != 2 || link.NumRows() != 2 {
		t.Fatalf("expected 2 patients and 2 links, got %d and %d", patient.NumRows(), link.NumRows())
	}
	pdob := column(t, patient, models.DateOfBirth)
	if !pdob.Time(0).Equal(want) {
		t.Fatalf("expected birth %s, got %s", want, pdob.Time(0))
	}
	linkSubjects := column(t, link, models.SubjectID)
	linkAdmissions := column(t, link, "op_id")
	if linkSubjects.Str(1) != "2" || linkAdmissions.Str(1) != "20" {
		t.Fatalf("expected link 2->20, got %s->%s", linkSubjects.Str(1), linkAdmissions.Str(1))
	}
}

func TestResolveKeepsEarliestAdmission(t *testing.T) {
	raw := readCSV(t, "subject_id,op_id,admission_time,age,sex,inhosp_death_time,allcause_death_time\n"+
		"7,71,500,50,F,,\n"+
		"7,72,,70,F,,\n"+
		"7,73,-20,30,F,,\n"+
		"12,120,5,20,M,,\n"+
		"3,30,1,80,M,600,400\n")

	id, err := NewResolver(DefaultColumns(), pseudotime.Origin).Resolve(raw)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	subjects := column(t, id.Patients, models.SubjectID)
	got := []string{subjects.Str(0), subjects.Str(1), subjects.Str(2)}
	if strings.Join(got, ",") != "3,7,12" {
		t.Fatalf("expected numeric subject order, got %v", got)
	}

	// subject 7 keeps the row admitted at -20, which says age 30
	dob := column(t, id.Patients, models.DateOfBirth)
	want, _ := pseudotime.BirthFromAge(pseudotime.Origin, pseudotime.Offset{Value: 30, Valid: true})
	if !dob.Time(1).Equal(want) {
		t.Fatalf("expected birth from the earliest admission, got %s", dob.Time(1))
	}

	// subject 3 died at the earlier of the two offsets
	dod := column(t, id.Patients, models.DateOfDeath)
	if want := pseudotime.Origin.Add(400 * time.Minute); !dod.Time(0).Equal(want) {
		t.Fatalf("expected death %s, got %s", want, dod.Time(0))
	}

	if id.Links.NumRows() != 5 {
		t.Fatalf("link table must keep every admission row, got %d", id.Links.NumRows())
	}
	if got := strings.Join(id.Links.Names(), ","); got != "subject_id,op_id" {
		t.Fatalf("unexpected link columns %s", got)
	}
}

func TestResolveRequiresAdmissionColumns(t *testing.T) {
	raw := readCSV(t, "subject_id,op_id,age\n1,10,40\n")
	if _, err := NewResolver(DefaultColumns(), pseudotime.Origin).Resolve(raw); err == nil {
		t.Fatal("expected an error for a missing admission_time column")
	}
}

func TestResolveMissingAgeLeavesBirthNull(t *testing.T) {
	raw := readCSV(t, "subject_id,op_id,admission_time,age\n1,10,0,\n")
	id, err := NewResolver(DefaultColumns(), pseudotime.Origin).Resolve(raw)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !column(t, id.Patients, models.DateOfBirth).IsNull(0) {
		t.Fatal("expected null date of birth")
	}
	if !column(t, id.Patients, models.Sex).IsNull(0) {
		t.Fatal("expected null sex when the column is absent")
	}
}

func TestOriginRejectsMixedValues(t *testing.T) {
	later := pseudotime.Origin.Add(time.Hour)
	patients := PatientsFrame([]models.PatientIdentity{
		{SubjectID: "1", FirstAdmittedAt: pseudotime.Origin},
		{SubjectID: "2", FirstAdmittedAt: later},
	})
	id := &Identity{Patients: patients}
	if _, err := id.Origin(pseudotime.Origin); err == nil {
		t.Fatal("expected mixed origins to be rejected")
	}

	empty := &Identity{Patients: PatientsFrame(nil)}
	got, err := empty.Origin(later)
	if err != nil || !got.Equal(later) {
		t.Fatalf("expected fallback for an empty patient table, got %s (%v)", got, err)
	}
}
