package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"cdmbridge/internal/domain"
)

const (
	licensesDirname   = "licenses"
	licensesIndexFile = "licenses.json"
	recordSuffix      = ".sealed"
)

// licenseEntry is the index metadata kept for each record.
type licenseEntry struct {
	StoredUTC int64 `json:"stored_utc"`
	Size      int   `json:"size"`
}

// LicenseFileStore keeps each record in its own file under dir/licenses.
type LicenseFileStore struct {
	dir string
	mu  sync.Mutex
}

// NewLicenseFileStore returns a LicenseFileStore rooted at dir, creating
// the record directory if needed.
func NewLicenseFileStore(dir string) (*LicenseFileStore, error) {
	if err := os.MkdirAll(filepath.Join(dir, licensesDirname), 0o700); err != nil {
		return nil, fmt.Errorf("store: create %s: %w", dir, err)
	}
	return &LicenseFileStore{dir: dir}, nil
}

// PutLicense writes record for sessionID, replacing any previous one.
func (s *LicenseFileStore) PutLicense(sessionID string, record []byte) error {
	if err := ValidateID(sessionID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := writeFile(s.recordPath(sessionID), record, 0o600); err != nil {
		return err
	}
	index, err := s.readIndex()
	if err != nil {
		return err
	}
	index[sessionID] = licenseEntry{StoredUTC: time.Now().Unix(), Size: len(record)}
	return writeJSON(s.indexPath(), index, 0o600)
}

// GetLicense returns the record stored for sessionID.
func (s *LicenseFileStore) GetLicense(sessionID string) ([]byte, bool, error) {
	if err := ValidateID(sessionID); err != nil {
		return nil, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := readFile(s.recordPath(sessionID))
	if err != nil {
		return nil, false, err
	}
	return b, b != nil, nil
}

// DeleteLicense removes the record for sessionID. Deleting a missing
// record is not an error.
func (s *LicenseFileStore) DeleteLicense(sessionID string) error {
	if err := ValidateID(sessionID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := removeFile(s.recordPath(sessionID)); err != nil {
		return err
	}
	index, err := s.readIndex()
	if err != nil {
		return err
	}
	if _, ok := index[sessionID]; !ok {
		return nil
	}
	delete(index, sessionID)
	return writeJSON(s.indexPath(), index, 0o600)
}

// ListLicenses returns the stored session ids in lexical order.
func (s *LicenseFileStore) ListLicenses() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := s.readIndex()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(index))
	for id := range index {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Close is a no-op; every write is already on disk.
func (s *LicenseFileStore) Close() error { return nil }

func (s *LicenseFileStore) readIndex() (map[string]licenseEntry, error) {
	index := map[string]licenseEntry{}
	if err := readJSON(s.indexPath(), &index); err != nil {
		return nil, fmt.Errorf("store: read index: %w", err)
	}
	return index, nil
}

func (s *LicenseFileStore) indexPath() string {
	return filepath.Join(s.dir, licensesIndexFile)
}

func (s *LicenseFileStore) recordPath(sessionID string) string {
	return filepath.Join(s.dir, licensesDirname, sessionID+recordSuffix)
}

// Compile-time assertion that LicenseFileStore implements domain.LicenseStore.
var _ domain.LicenseStore = (*LicenseFileStore)(nil)
