package linkage

import (
	"fmt"
	"time"

	"github.com/synaptica-ai/inspire-premeds/pkg/common/models"
	"github.com/synaptica-ai/inspire-premeds/pkg/frame"
)

// Columns names the admissions-table fields identity resolution reads.
type Columns struct {
	Subject         string `yaml:"subject_id"`
	Admission       string `yaml:"admission_id"`
	AdmissionTime   string `yaml:"admission_time"`
	Age             string `yaml:"age"`
	Sex             string `yaml:"sex"`
	InHospitalDeath string `yaml:"inhosp_death_time"`
	AllCauseDeath   string `yaml:"allcause_death_time"`
}

func DefaultColumns() Columns {
	return Columns{
		Subject:         models.SubjectID,
		Admission:       "op_id",
		AdmissionTime:   "admission_time",
		Age:             "age",
		Sex:             models.Sex,
		InHospitalDeath: "inhosp_death_time",
		AllCauseDeath:   "allcause_death_time",
	}
}

// WithDefaults fills unset names from DefaultColumns.
func (c Columns) WithDefaults() Columns {
	d := DefaultColumns()
	set := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	set(&c.Subject, d.Subject)
	set(&c.Admission, d.Admission)
	set(&c.AdmissionTime, d.AdmissionTime)
	set(&c.Age, d.Age)
	set(&c.Sex, d.Sex)
	set(&c.InHospitalDeath, d.InHospitalDeath)
	set(&c.AllCauseDeath, d.AllCauseDeath)
	return c
}

// Identity holds the resolved patient table and the subject/admission link table.
type Identity struct {
	Patients *frame.Frame
	Links    *frame.Frame
}

// Origin returns the single first_admitted_at_time shared by every patient.
// An empty patient table yields the fallback.
func (id *Identity) Origin(fallback time.Time) (time.Time, error) {
	c, err := id.Patients.Column(models.FirstAdmittedAtTime)
	if err != nil {
		return time.Time{}, err
	}
	if c.Kind() != frame.Timestamp {
		return time.Time{}, fmt.Errorf("%s is %s, expected a timestamp", models.FirstAdmittedAtTime, c.Kind())
	}
	var origin time.Time
	found := false
	for i := 0; i < c.Len(); i++ {
		if c.IsNull(i) {
			continue
		}
		if !found {
			origin, found = c.Time(i), true
			continue
		}
		if !c.Time(i).Equal(origin) {
			return time.Time{}, fmt.Errorf("patient table carries more than one origin (%s and %s)", origin, c.Time(i))
		}
	}
	if !found {
		return fallback, nil
	}
	return origin, nil
}

// PatientsFrame lays out identities as the persisted patient table.
func PatientsFrame(patients []models.PatientIdentity) *frame.Frame {
	n := len(patients)
	ids := make([]string, n)
	sex := make([]string, n)
	sexValid := make([]bool, n)
	dob := make([]time.Time, n)
	dobValid := make([]bool, n)
	first := make([]time.Time, n)
	dod := make([]time.Time, n)
	dodValid := make([]bool, n)
	for i, p := range patients {
		ids[i] = p.SubjectID
		sex[i], sexValid[i] = p.Sex, p.Sex != ""
		if p.DateOfBirth != nil {
			dob[i], dobValid[i] = *p.DateOfBirth, true
		}
		first[i] = p.FirstAdmittedAt
		if p.DateOfDeath != nil {
			dod[i], dodValid[i] = *p.DateOfDeath, true
		}
	}
	f, _ := frame.New(
		frame.NewStringColumn(models.SubjectID, ids, nil),
		frame.NewTimestampColumn(models.DateOfBirth, dob, dobValid),
		frame.NewStringColumn(models.Sex, sex, sexValid),
		frame.NewTimestampColumn(models.FirstAdmittedAtTime, first, nil),
		frame.NewTimestampColumn(models.DateOfDeath, dod, dodValid),
	)
	return f
}
