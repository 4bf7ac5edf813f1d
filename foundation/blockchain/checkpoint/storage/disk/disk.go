// Package disk implements the ability to read and write the checkpoint to a
// single JSON file on disk.
package disk

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ardanlabs/ethrelay/foundation/blockchain/checkpoint"
)

// Disk represents the serialization implementation for reading and storing
// the checkpoint in a JSON file. This implements the checkpoint.Storage
// interface.
type Disk struct {
	path string
}

// New constructs a Disk value for use. The folder holding the file is
// created if it doesn't exist.
func New(path string) (*Disk, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	return &Disk{path: path}, nil
}

// Close in this implementation has nothing to do since the file is written
// and closed on every call to Write.
func (d *Disk) Close() error {
	return nil
}

// Read loads the checkpoint from disk. A missing file is the same as an
// empty checkpoint.
func (d *Disk) Read() (checkpoint.Checkpoint, error) {
	data, err := os.ReadFile(d.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return checkpoint.Empty(), nil
		}
		return checkpoint.Checkpoint{}, err
	}

	var cp checkpoint.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return checkpoint.Checkpoint{}, fmt.Errorf("decoding %s: %w", d.path, err)
	}

	return cp, nil
}

// Write replaces the file on disk with the specified checkpoint.
func (d *Disk) Write(cp checkpoint.Checkpoint) error {

	// Marshal the checkpoint in a more human readable format.
	data, err := json.MarshalIndent(cp, "", "    ")
	if err != nil {
		return err
	}

	// Write to a temporary file and rename it so the checkpoint is replaced
	// in one step.
	tmp := d.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}

	return os.Rename(tmp, d.path)
}
