package store

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
)

// FileStore keeps one file per artifact under a root directory:
//
//	positions.json, nominees.json, nominee_positions.json, topics.json
//	emails/{email}.json, persons/{id}.json
//	feedback_html/{id}.html, feedback_json/{id}.json
//	summaries/nominee/{id}/{position}.json, summaries/position/{position}.json
type FileStore struct {
	root string
}

// NewFileStore creates a FileStore rooted at dir. The directory is created lazily on first write.
func NewFileStore(dir string) *FileStore {
	return &FileStore{root: dir}
}

// Root returns the root directory
func (s *FileStore) Root() string {
	return s.root
}

// Path returns the file path for a key
func (s *FileStore) Path(key Key) (string, error) {
	if err := key.Validate(); err != nil {
		return "", err
	}
	for _, part := range []string{key.ID, key.Position} {
		if part == "." || part == ".." {
			return "", &KeyError{Key: key, Message: "relative path part"}
		}
	}
	escape := url.PathEscape

	var rel string
	switch key.Stage {
	case StagePositions, StageNominees, StageNomineePositions, StageTopics:
		rel = string(key.Stage) + ".json"
	case StageEmails, StagePersons, StageSnapshot:
		rel = filepath.Join(string(key.Stage), escape(key.ID)+".json")
	case StageRawFeedback:
		rel = filepath.Join(string(key.Stage), escape(key.ID)+".html")
	case StageNomineeSummary:
		rel = filepath.Join("summaries", "nominee", escape(key.ID), escape(key.Position)+".json")
	case StagePositionSummary:
		rel = filepath.Join("summaries", "position", escape(key.Position)+".json")
	default:
		return "", &KeyError{Key: key, Message: "no file layout for stage"}
	}
	return filepath.Join(s.root, rel), nil
}

// Get reads the artifact file for key
func (s *FileStore) Get(_ context.Context, key Key) ([]byte, error) {
	path, err := s.Path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &OpError{Op: "get", Key: key, Cause: ErrNotFound}
		}
		return nil, &OpError{Op: "get", Key: key, Cause: err}
	}
	return data, nil
}

// Put writes the artifact atomically: a temp file in the same directory is renamed over the target,
// so an interrupted run never leaves a truncated artifact behind.
func (s *FileStore) Put(_ context.Context, key Key, data []byte) error {
	path, err := s.Path(key)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &OpError{Op: "put", Key: key, Cause: err}
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return &OpError{Op: "put", Key: key, Cause: err}
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return &OpError{Op: "put", Key: key, Cause: err}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return &OpError{Op: "put", Key: key, Cause: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return &OpError{Op: "put", Key: key, Cause: fmt.Errorf("rename: %w", err)}
	}
	return nil
}

// Delete removes the artifact file; deleting a missing artifact is not an error
func (s *FileStore) Delete(_ context.Context, key Key) error {
	path, err := s.Path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return &OpError{Op: "delete", Key: key, Cause: err}
	}
	return nil
}

// Close is a no-op for the file backend
func (s *FileStore) Close() error {
	return nil
}
