package linkage

import (
	"sort"
	"strconv"
	"time"

	"github.com/synaptica-ai/inspire-premeds/pkg/common/logger"
	"github.com/synaptica-ai/inspire-premeds/pkg/common/models"
	"github.com/synaptica-ai/inspire-premeds/pkg/common/pseudotime"
	"github.com/synaptica-ai/inspire-premeds/pkg/frame"
)

type Resolver struct {
	cols   Columns
	origin time.Time
}

func NewResolver(cols Columns, origin time.Time) *Resolver {
	return &Resolver{cols: cols.WithDefaults(), origin: origin}
}

// Resolve derives the patient and link tables from the raw admissions table.
//
// Each patient keeps the row of their earliest admission (rows without an
// admission offset sort last). Every patient shares first_admitted_at_time =
// origin; birth and death are anchored to the same origin. Patients are
// ordered by subject id so repeated runs lay out identical tables.
func (r *Resolver) Resolve(raw *frame.Frame) (*Identity, error) {
	subject, err := raw.Column(r.cols.Subject)
	if err != nil {
		return nil, err
	}
	admission, err := raw.Column(r.cols.Admission)
	if err != nil {
		return nil, err
	}
	admittedAt, err := raw.Column(r.cols.AdmissionTime)
	if err != nil {
		return nil, err
	}
	if _, err := raw.Column(r.cols.Age); err != nil {
		return nil, err
	}

	offsets := make([]pseudotime.Offset, raw.NumRows())
	for i := range offsets {
		offsets[i] = pseudotime.ParseOffset(admittedAt.Str(i))
	}
	sorted := raw.SortStable(func(a, b int) bool {
		oa, ob := offsets[a], offsets[b]
		if oa.Valid != ob.Valid {
			return oa.Valid
		}
		return oa.Valid && oa.Value < ob.Value
	})
	firsts, err := sorted.FirstBy(r.cols.Subject)
	if err != nil {
		return nil, err
	}

	patients := r.identities(firsts)
	sort.SliceStable(patients, func(i, j int) bool {
		return lessID(patients[i].SubjectID, patients[j].SubjectID)
	})

	links, err := frame.New(
		subject.Rename(models.SubjectID),
		admission,
	)
	if err != nil {
		return nil, err
	}
	return &Identity{Patients: PatientsFrame(patients), Links: links}, nil
}

func (r *Resolver) identities(firsts *frame.Frame) []models.PatientIdentity {
	subject, _ := firsts.Column(r.cols.Subject)
	age, _ := firsts.Column(r.cols.Age)
	sex := optionalColumn(firsts, r.cols.Sex)
	inHosp := optionalColumn(firsts, r.cols.InHospitalDeath)
	allCause := optionalColumn(firsts, r.cols.AllCauseDeath)

	var missingAge, deathBeforeOrigin int
	out := make([]models.PatientIdentity, 0, firsts.NumRows())
	for i := 0; i < firsts.NumRows(); i++ {
		p := models.PatientIdentity{
			SubjectID:       subject.Str(i),
			FirstAdmittedAt: r.origin,
		}
		if sex != nil {
			p.Sex = sex.Str(i)
		}
		if dob, ok := pseudotime.BirthFromAge(r.origin, pseudotime.ParseOffset(age.Str(i))); ok {
			p.DateOfBirth = &dob
		} else {
			missingAge++
		}
		death := pseudotime.EarliestDeath(cellOffset(inHosp, i), cellOffset(allCause, i))
		if dod, ok := pseudotime.FromOffset(r.origin, death, pseudotime.Minutes); ok {
			if dod.Before(r.origin) {
				deathBeforeOrigin++
			}
			p.DateOfDeath = &dod
		}
		out = append(out, p)
	}

	if missingAge > 0 {
		logger.WithField("patients", missingAge).Warn("patients without a usable age have no date of birth")
	}
	if deathBeforeOrigin > 0 {
		logger.WithField("patients", deathBeforeOrigin).Warn("death offsets earlier than first admission")
	}
	return out
}

func optionalColumn(f *frame.Frame, name string) *frame.Column {
	c, err := f.Column(name)
	if err != nil {
		return nil
	}
	return c
}

func cellOffset(c *frame.Column, row int) pseudotime.Offset {
	if c == nil {
		return pseudotime.Offset{}
	}
	return pseudotime.ParseOffset(c.Str(row))
}

// lessID orders numeric ids numerically and everything else lexically,
// numbers first.
func lessID(a, b string) bool {
	na, errA := strconv.ParseInt(a, 10, 64)
	nb, errB := strconv.ParseInt(b, 10, 64)
	switch {
	case errA == nil && errB == nil:
		return na < nb
	case errA == nil:
		return true
	case errB == nil:
		return false
	default:
		return a < b
	}
}

// ResolvePatients resolves raw with the default INSPIRE column names and
// the fixed origin.
func ResolvePatients(raw *frame.Frame) (patient, link *frame.Frame, err error) {
	id, err := NewResolver(DefaultColumns(), pseudotime.Origin).Resolve(raw)
	if err != nil {
		return nil, nil, err
	}
	return id.Patients, id.Links, nil
}
