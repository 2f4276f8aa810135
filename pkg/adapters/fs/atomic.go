package fs

import (
	"fmt"
	"os"
	"path/filepath"

	"go.mongodb.org/mongo-driver/bson"
)

const (
	// TempFilePrefix is the prefix of in-flight document writes. Watchers skip these files.
	TempFilePrefix = "odm-tmp-"

	// Ext is the extension of stored documents.
	Ext = ".bson"
)

// writeDocument stores raw at filename atomically: the bytes go to a temp
// file in the same directory, which is then renamed over the target.
func writeDocument(filename string, raw bson.Raw, perm os.FileMode) error {
	if err := raw.Validate(); err != nil {
		return fmt.Errorf("refusing to write invalid document: %w", err)
	}

	dir := filepath.Dir(filename)

	tmpFile, err := os.CreateTemp(dir, TempFilePrefix+"*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.Write(raw); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write to temp file: %w", err)
	}

	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Chmod(tmpFile.Name(), perm); err != nil {
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}

	if err := os.Rename(tmpFile.Name(), filename); err != nil {
		return fmt.Errorf("failed to rename temp file to %s: %w", filename, err)
	}

	return nil
}

// readDocument loads and validates the document stored at filename.
func readDocument(filename string) (bson.Raw, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	raw := bson.Raw(data)
	if err := raw.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(filename), err)
	}
	return raw, nil
}
