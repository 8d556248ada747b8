package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/modelplane/modelplane/pkg/contract"
)

// Store is durable, content-addressed storage for trained model blobs.
// A blob's location is derived from its content hash, so writing the same
// bytes twice is a no-op and retries are safe.
type Store interface {
	Put(data []byte) (string, *contract.Error)
	Get(location string) ([]byte, *contract.Error)
	Delete(location string) *contract.Error
	Exists(location string) bool
}

// FileStore keeps blobs under root, sharded by the first two hex chars of
// the sha256 digest.
type FileStore struct {
	root string
}

func NewFileStore(root string) (*FileStore, *contract.Error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, contract.NewErrorWith(contract.ErrorCodeStorage, err, "failed to create artifact root %q", root)
	}
	return &FileStore{root: root}, nil
}

func (s *FileStore) path(location string) string {
	if len(location) < 2 {
		return filepath.Join(s.root, location)
	}
	return filepath.Join(s.root, location[:2], location)
}

func (s *FileStore) Put(data []byte) (string, *contract.Error) {
	digest := sha256.Sum256(data)
	location := hex.EncodeToString(digest[:])

	path := s.path(location)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", contract.NewErrorWith(contract.ErrorCodeStorage, err, "failed to create artifact directory")
	}

	// Write to a temp file first so a killed process never leaves a
	// half-written blob at the final location.
	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return "", contract.NewErrorWith(contract.ErrorCodeStorage, err, "failed to stage artifact")
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", contract.NewErrorWith(contract.ErrorCodeStorage, err, "failed to write artifact")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", contract.NewErrorWith(contract.ErrorCodeStorage, err, "failed to flush artifact")
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return "", contract.NewErrorWith(contract.ErrorCodeStorage, err, "failed to commit artifact")
	}

	return location, nil
}

func (s *FileStore) Get(location string) ([]byte, *contract.Error) {
	data, err := os.ReadFile(s.path(location))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, contract.NewError(contract.ErrorCodeNotFound, "artifact %q not found", location)
		}
		return nil, contract.NewErrorWith(contract.ErrorCodeStorage, err, "failed to read artifact %q", location)
	}
	return data, nil
}

func (s *FileStore) Delete(location string) *contract.Error {
	err := os.Remove(s.path(location))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return contract.NewErrorWith(contract.ErrorCodeStorage, err, "failed to delete artifact %q", location)
	}
	return nil
}

func (s *FileStore) Exists(location string) bool {
	_, err := os.Stat(s.path(location))
	return err == nil
}

var _ Store = (*FileStore)(nil)

// Location sanity check used by callers that accept externally supplied
// handles.
func ValidLocation(location string) error {
	if location == "" {
		return fmt.Errorf("empty artifact location")
	}
	return nil
}
