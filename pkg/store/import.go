package store

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/fileractions/internal/interchange"
	"github.com/mesh-intelligence/fileractions/internal/validate"
	"github.com/mesh-intelligence/fileractions/pkg/types"
)

// Policy decides what happens when an imported item's id is already in
// use.
type Policy string

// Conflict policies.
const (
	PolicyRenumber Policy = "renumber" // Give the imported item a fresh id.
	PolicyOverride Policy = "override" // Replace the existing item.
	PolicyReject   Policy = "reject"   // Skip the imported item.
)

// ParsePolicy converts a policy name.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(s); p {
	case PolicyRenumber, PolicyOverride, PolicyReject:
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", types.ErrUnknownPolicy, s)
}

// ImportResult summarizes one imported file.
type ImportResult struct {
	Path    string
	Dialect string

	// Imported lists the ids stored, after renumbering.
	Imported []string

	// Renumbered maps an id found in the file to the id it was stored as.
	Renumbered map[string]string

	// Rejected lists ids skipped under PolicyReject.
	Rejected []string

	// Err joins the errors of the items that could not be imported.
	Err error
}

// ImportFile reads path in the hinted dialect and stores every item it
// declares. Items that fail to parse or validate are skipped and reported
// in the result; the others are stored. The returned error is non-nil
// only when the file could not be read or yielded no item at all.
func (s *Store) ImportFile(path, hint string, policy Policy) (*ImportResult, error) {
	if _, err := ParsePolicy(string(policy)); err != nil {
		return nil, err
	}
	dialect, recs, err := interchange.DecodeFile(path, hint, s.locale)
	if err != nil && len(recs) == 0 {
		return nil, err
	}

	res := &ImportResult{Path: path, Dialect: dialect, Renumbered: map[string]string{}}
	var errs []error
	if err != nil {
		errs = append(errs, err)
	}
	for _, r := range recs {
		it, err := validate.Admit(r)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		it.Readonly, it.Writable, it.Reason, it.Provider = false, false, types.ReasonWritable, ""

		if _, err := s.Get(it.ID); err == nil {
			switch policy {
			case PolicyReject:
				res.Rejected = append(res.Rejected, it.ID)
				errs = append(errs, fmt.Errorf("item %s: %w", it.ID, types.ErrDuplicateID))
				continue
			case PolicyRenumber:
				old := it.ID
				it.SetID(NewID())
				res.Renumbered[old] = it.ID
			}
		}
		if err := s.save(it); err != nil {
			errs = append(errs, err)
			continue
		}
		res.Imported = append(res.Imported, it.ID)
	}
	res.Err = errors.Join(errs...)

	s.log.Info("imported",
		zap.String("path", path),
		zap.String("dialect", dialect),
		zap.Int("items", len(res.Imported)),
		zap.Int("renumbered", len(res.Renumbered)),
		zap.Int("rejected", len(res.Rejected)))
	return res, nil
}

// ImportFiles imports every path in turn. A file that fails does not stop
// the batch; its error is joined into the returned error and its result
// is omitted.
func (s *Store) ImportFiles(paths []string, hint string, policy Policy) ([]*ImportResult, error) {
	var (
		results []*ImportResult
		errs    []error
	)
	for _, p := range paths {
		res, err := s.ImportFile(p, hint, policy)
		if err != nil {
			s.log.Warn("import failed", zap.String("path", p), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		results = append(results, res)
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p, res.Err))
		}
	}
	return results, errors.Join(errs...)
}

// ExportItem writes the item with id into folder in dialect and returns
// the path written. An existing file is never overwritten.
func (s *Store) ExportItem(id, folder, dialect string) (string, error) {
	it, err := s.Get(id)
	if err != nil {
		return "", err
	}
	path, err := interchange.Export(it, folder, dialect, s.root)
	if err != nil {
		return "", err
	}
	s.log.Info("exported", zap.String("item_id", id), zap.String("path", path))
	return path, nil
}
