package linkage

import (
	"context"
	"errors"
	"fmt"

	"github.com/synaptica-ai/inspire-premeds/pkg/common/logger"
	"github.com/synaptica-ai/inspire-premeds/pkg/common/models"
	"github.com/synaptica-ai/inspire-premeds/pkg/frame"
	"github.com/synaptica-ai/inspire-premeds/pkg/storage"
)

var ErrAdmissionsMissing = errors.New("admissions table unavailable")

// Cache makes identity resolution a one-time step per output location: the
// persisted patient and link tables are the source of truth once written.
type Cache struct {
	store      storage.Store
	format     frame.Format
	resolver   *Resolver
	admissions func() (*frame.LazyFrame, error)
	overwrite  bool
}

func NewCache(store storage.Store, format frame.Format, resolver *Resolver, admissions func() (*frame.LazyFrame, error), overwrite bool) *Cache {
	return &Cache{store: store, format: format, resolver: resolver, admissions: admissions, overwrite: overwrite}
}

// Ensure reloads the persisted identity tables or, when they are absent
// (or overwrite is set), resolves them from the admissions table and
// persists them. reloaded reports which path was taken.
func (c *Cache) Ensure(ctx context.Context) (id *Identity, reloaded bool, err error) {
	if !c.overwrite {
		id, err := c.load(ctx)
		if err == nil {
			return id, true, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, false, err
		}
	}

	logger.Log.Info("Processing admissions table for patient identities")
	lf, err := c.admissions()
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrAdmissionsMissing, err)
	}
	raw, err := lf.Collect()
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrAdmissionsMissing, err)
	}
	id, err = c.resolver.Resolve(raw)
	if err != nil {
		return nil, false, fmt.Errorf("resolve patients: %w", err)
	}

	// The link table goes first: a patient artifact on disk implies its link
	// table is complete.
	if err := storage.SaveTable(ctx, c.store, models.AdmissionLinkArtifact, c.format, id.Links); err != nil {
		return nil, false, err
	}
	if err := storage.SaveTable(ctx, c.store, models.PatientArtifact, c.format, id.Patients); err != nil {
		return nil, false, err
	}
	logger.WithFields(map[string]interface{}{
		"patients":   id.Patients.NumRows(),
		"admissions": id.Links.NumRows(),
	}).Info("Patient identities resolved and persisted")
	return id, false, nil
}

func (c *Cache) load(ctx context.Context) (*Identity, error) {
	ok, err := c.store.Exists(ctx, storage.TableKey(models.PatientArtifact, c.format))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, storage.ErrNotFound
	}
	logger.WithField("location", c.store.Location(storage.TableKey(models.PatientArtifact, c.format))).
		Info("Reloading processed patient table")

	patients, err := storage.LoadTable(ctx, c.store, models.PatientArtifact, c.format)
	if err != nil {
		return nil, err
	}
	if patients, err = patients.ParseTimestamps(models.DateOfBirth, models.FirstAdmittedAtTime, models.DateOfDeath); err != nil {
		return nil, fmt.Errorf("patient table: %w", err)
	}
	links, err := storage.LoadTable(ctx, c.store, models.AdmissionLinkArtifact, c.format)
	if err != nil {
		return nil, fmt.Errorf("patient table present but link table unreadable: %w", err)
	}
	return &Identity{Patients: patients, Links: links}, nil
}
