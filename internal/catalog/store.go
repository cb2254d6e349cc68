// Package catalog loads claims, versioned catalogs and QA fixtures from a
// directory of JSON files.
package catalog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/decision-ledger/internal/cache"
	"github.com/ppiankov/decision-ledger/internal/model"
)

// Fixture file names
const (
	ClaimsFile             = "claims.json"
	InterpretationSetsFile = "interpretation_sets.json"
	AssumptionSetsFile     = "assumption_sets.json"
	CohortsFile            = "qa_cohorts.json"
	ProposedChangesFile    = "qa_proposed_changes.json"
)

// Lookup is the read side of the reference data
type Lookup interface {
	Claim(id string) (*model.Claim, error)
	Claims(filter model.CatalogFilter) ([]model.Claim, error)
	InterpretationSet(id string) (*model.InterpretationSet, error)
	InterpretationSets(filter model.CatalogFilter) ([]model.InterpretationSet, error)
	AssumptionSet(id string) (*model.AssumptionSet, error)
	AssumptionSets(filter model.CatalogFilter) ([]model.AssumptionSet, error)
	Cohort(id string) (*model.QACohort, error)
	Cohorts() ([]model.QACohort, error)
	ProposedChange(id string) (*model.QAProposedChange, error)
	ProposedChanges() ([]model.QAProposedChange, error)
}

// FileStore reads fixtures from Dir. Raw file contents are cached until
// Reset is called or the TTL expires.
type FileStore struct {
	dir    string
	cache  cache.Cache
	ttl    time.Duration
	logger *slog.Logger
}

// NewFileStore creates a store over dir. A ttl of zero caches until Reset.
func NewFileStore(dir string, ttl time.Duration) *FileStore {
	return &FileStore{
		dir:    dir,
		cache:  cache.NewMemoryCache(ttl, 10*time.Minute),
		ttl:    ttl,
		logger: slog.Default().With("component", "catalog"),
	}
}

// Dir returns the fixtures directory
func (s *FileStore) Dir() string {
	return s.dir
}

// Reset drops every cached fixture so the next read goes to disk
func (s *FileStore) Reset() {
	_ = s.cache.Clear()
	s.logger.Debug("fixture cache cleared", "dir", s.dir)
}

// load decodes a fixture file into out. A missing file is an empty list.
func (s *FileStore) load(name string, out interface{}) error {
	key := cache.Key("fixture", s.dir, name)

	data, ok := s.cache.Get(key)
	if !ok {
		var err error
		data, err = os.ReadFile(filepath.Join(s.dir, name))
		if os.IsNotExist(err) {
			data = []byte("[]")
		} else if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		_ = s.cache.Set(key, data, s.ttl)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

// Claims lists claims; Search matches the claim ID case-insensitively
func (s *FileStore) Claims(filter model.CatalogFilter) ([]model.Claim, error) {
	var claims []model.Claim
	if err := s.load(ClaimsFile, &claims); err != nil {
		return nil, err
	}

	out := make([]model.Claim, 0, len(claims))
	search := strings.ToLower(filter.Search)
	for _, c := range claims {
		if !scoped(filter, c.Jurisdiction, c.ProductLine) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(c.ClaimID), search) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// Claim returns the first claim with the given ID
func (s *FileStore) Claim(id string) (*model.Claim, error) {
	claims, err := s.Claims(model.CatalogFilter{})
	if err != nil {
		return nil, err
	}
	for i := range claims {
		if claims[i].ClaimID == id {
			return &claims[i], nil
		}
	}
	return nil, model.NewNotFound("claim", id)
}

// InterpretationSets lists interpretation sets matching filter
func (s *FileStore) InterpretationSets(filter model.CatalogFilter) ([]model.InterpretationSet, error) {
	var sets []model.InterpretationSet
	if err := s.load(InterpretationSetsFile, &sets); err != nil {
		return nil, err
	}

	out := make([]model.InterpretationSet, 0, len(sets))
	for _, set := range sets {
		if scoped(filter, set.Jurisdiction, set.ProductLine) {
			out = append(out, set)
		}
	}
	return out, nil
}

// InterpretationSet returns the set with the given ID
func (s *FileStore) InterpretationSet(id string) (*model.InterpretationSet, error) {
	sets, err := s.InterpretationSets(model.CatalogFilter{})
	if err != nil {
		return nil, err
	}
	for i := range sets {
		if sets[i].InterpretationSetID == id {
			return &sets[i], nil
		}
	}
	return nil, model.NewNotFound("interpretation set", id)
}

// AssumptionSets lists assumption sets matching filter
func (s *FileStore) AssumptionSets(filter model.CatalogFilter) ([]model.AssumptionSet, error) {
	var sets []model.AssumptionSet
	if err := s.load(AssumptionSetsFile, &sets); err != nil {
		return nil, err
	}

	out := make([]model.AssumptionSet, 0, len(sets))
	for _, set := range sets {
		if scoped(filter, set.Jurisdiction, set.ProductLine) {
			out = append(out, set)
		}
	}
	return out, nil
}

// AssumptionSet returns the set with the given ID
func (s *FileStore) AssumptionSet(id string) (*model.AssumptionSet, error) {
	sets, err := s.AssumptionSets(model.CatalogFilter{})
	if err != nil {
		return nil, err
	}
	for i := range sets {
		if sets[i].AssumptionSetID == id {
			return &sets[i], nil
		}
	}
	return nil, model.NewNotFound("assumption set", id)
}

// Cohorts lists the QA cohorts
func (s *FileStore) Cohorts() ([]model.QACohort, error) {
	cohorts := []model.QACohort{}
	if err := s.load(CohortsFile, &cohorts); err != nil {
		return nil, err
	}
	return cohorts, nil
}

// Cohort returns the cohort with the given ID
func (s *FileStore) Cohort(id string) (*model.QACohort, error) {
	cohorts, err := s.Cohorts()
	if err != nil {
		return nil, err
	}
	for i := range cohorts {
		if cohorts[i].CohortID == id {
			return &cohorts[i], nil
		}
	}
	return nil, model.NewNotFound("cohort", id)
}

// ProposedChanges lists the QA proposed changes
func (s *FileStore) ProposedChanges() ([]model.QAProposedChange, error) {
	changes := []model.QAProposedChange{}
	if err := s.load(ProposedChangesFile, &changes); err != nil {
		return nil, err
	}
	return changes, nil
}

// ProposedChange returns the proposed change with the given ID
func (s *FileStore) ProposedChange(id string) (*model.QAProposedChange, error) {
	changes, err := s.ProposedChanges()
	if err != nil {
		return nil, err
	}
	for i := range changes {
		if changes[i].ProposalID == id {
			return &changes[i], nil
		}
	}
	return nil, model.NewNotFound("proposed change", id)
}

func scoped(filter model.CatalogFilter, jurisdiction, productLine string) bool {
	if filter.Jurisdiction != "" && filter.Jurisdiction != jurisdiction {
		return false
	}
	if filter.ProductLine != "" && filter.ProductLine != productLine {
		return false
	}
	return true
}
