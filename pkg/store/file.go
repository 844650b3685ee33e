package store

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	errs "github.com/matzehuels/flowdiagram/pkg/errors"
	"github.com/matzehuels/flowdiagram/pkg/flow"
)

// FileStore keeps one JSON file per flow in a directory. The file name is
// the flow name, so an existing project directory of *.flow.json files can
// be used as is.
type FileStore struct {
	mu  sync.RWMutex
	dir string
}

// NewFileStore creates dir if needed and returns a store rooted there.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errs.New(errs.ErrCodeInvalidInput, "store directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errs.Wrap(errs.ErrCodeStore, err, "create store dir")
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the store root.
func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) path(name string) string {
	return filepath.Join(s.dir, name)
}

func (s *FileStore) Get(_ context.Context, name string) (*flow.Document, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, err := flow.ReadFile(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, notFound(name)
	}
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeStore, err, "read flow %s", name)
	}
	doc.Name = name
	return doc, nil
}

// Put writes through a temporary file so readers never see a partial flow.
func (s *FileStore) Put(_ context.Context, doc *flow.Document) error {
	if err := ValidateName(doc.Name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := flow.Marshal(doc)
	if err != nil {
		return errs.Wrap(errs.ErrCodeInvalidDocument, err, "encode flow %s", doc.Name)
	}

	tmp, err := os.CreateTemp(s.dir, ".flow-*")
	if err != nil {
		return errs.Wrap(errs.ErrCodeStore, err, "write flow %s", doc.Name)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errs.Wrap(errs.ErrCodeStore, err, "write flow %s", doc.Name)
	}
	if err := tmp.Close(); err != nil {
		return errs.Wrap(errs.ErrCodeStore, err, "write flow %s", doc.Name)
	}
	if err := os.Rename(tmp.Name(), s.path(doc.Name)); err != nil {
		return errs.Wrap(errs.ErrCodeStore, err, "write flow %s", doc.Name)
	}
	return nil
}

func (s *FileStore) Delete(_ context.Context, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errs.Wrap(errs.ErrCodeStore, err, "delete flow %s", name)
	}
	return nil
}

// List returns every regular *.json file that is not hidden.
func (s *FileStore) List(context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeStore, err, "read store dir")
	}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name[0] == '.' || filepath.Ext(name) != ".json" {
			continue
		}
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

func (s *FileStore) Close() error { return nil }

var _ Store = (*FileStore)(nil)
