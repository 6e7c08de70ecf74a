package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"github.com/zeu5/grid-rl-env/types"
	"github.com/zeu5/grid-rl-env/util"
)

// FileRecorder appends one JSON document per episode to a file
type FileRecorder struct {
	path string
	mu   sync.Mutex
	file *os.File
}

var _ types.Recorder = &FileRecorder{}

func NewFileRecorder(path string) (*FileRecorder, error) {
	if err := util.EnsureDir(filepath.Dir(path)); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	return &FileRecorder{path: path, file: f}, nil
}

func (f *FileRecorder) Path() string { return f.path }

func (f *FileRecorder) Record(_ context.Context, summary types.EpisodeSummary) error {
	bs, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.file == nil {
		return errors.New("recorder is closed")
	}
	_, err = f.file.Write(append(bs, '\n'))
	return err
}

func (f *FileRecorder) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.file == nil {
		return nil
	}
	err := f.file.Close()
	f.file = nil
	return err
}
