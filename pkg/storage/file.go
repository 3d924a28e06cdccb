package storage

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/spf13/afero"
	"github.com/zoomauto/zoomauto/pkg/jobs"
)

// DefaultFileName is the schedule file name inside the data directory.
const DefaultFileName = "schedules.json"

const backupStamp = "20060102150405"

// File is a jobs.Persister backed by one JSON file.
type File struct {
	fs   afero.Fs
	path string
	now  func() time.Time

	mu     sync.Mutex
	digest [sha256.Size]byte
	known  bool
}

// NewFile returns a persister for path on fs. A nil fs means the OS filesystem.
func NewFile(fs afero.Fs, path string) *File {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &File{fs: fs, path: path, now: time.Now}
}

// Path returns the file location.
func (f *File) Path() string {
	return f.path
}

// LoadAll reads every job. A missing or empty file is an empty set.
func (f *File) LoadAll() ([]jobs.Job, error) {
	data, err := afero.ReadFile(f.fs, f.path)
	if errors.Is(err, os.ErrNotExist) {
		f.remember(nil)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}
	f.remember(data)
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var records map[string]record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", jobs.ErrCorrupt, f.path, err)
	}
	keys := make([]string, 0, len(records))
	for k := range records {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]jobs.Job, 0, len(records))
	for _, k := range keys {
		j, err := fromRecord(k, records[k])
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", jobs.ErrCorrupt, f.path, err)
		}
		out = append(out, j)
	}
	return out, nil
}

// SaveAll replaces the file contents with js.
func (f *File) SaveAll(js []jobs.Job) error {
	records := make(map[string]record, len(js))
	for _, j := range js {
		records[j.ID] = toRecord(j)
	}
	data, err := json.MarshalIndent(records, "", "    ")
	if err != nil {
		return err
	}
	if err := f.writeAtomic(data); err != nil {
		return err
	}
	f.remember(data)
	return nil
}

// Quarantine renames the current file to <name>.<timestamp>.bak and returns
// the new path.
func (f *File) Quarantine() (string, error) {
	dst := fmt.Sprintf("%s.%s.bak", f.path, f.now().Format(backupStamp))
	if err := f.fs.Rename(f.path, dst); err != nil {
		return "", fmt.Errorf("quarantine %s: %w", f.path, err)
	}
	f.remember(nil)
	return dst, nil
}

// Changed reports whether the file differs from what this persister last
// read or wrote. It lets a watcher ignore events caused by our own saves.
func (f *File) Changed() (bool, error) {
	data, err := afero.ReadFile(f.fs, f.path)
	if errors.Is(err, os.ErrNotExist) {
		data, err = nil, nil
	}
	if err != nil {
		return false, err
	}
	sum := sha256.Sum256(data)
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.known || sum != f.digest, nil
}

func (f *File) remember(data []byte) {
	sum := sha256.Sum256(data)
	f.mu.Lock()
	f.digest, f.known = sum, true
	f.mu.Unlock()
}

func (f *File) writeAtomic(data []byte) error {
	dir := filepath.Dir(f.path)
	if err := f.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := afero.TempFile(f.fs, dir, "."+filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		f.fs.Remove(name)
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		f.fs.Remove(name)
		return fmt.Errorf("sync %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		f.fs.Remove(name)
		return err
	}
	if err := f.fs.Rename(name, f.path); err != nil {
		f.fs.Remove(name)
		return fmt.Errorf("rename %s -> %s: %w", name, f.path, err)
	}
	return nil
}
