package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/mj1618/quadview/internal/model"
	"github.com/mj1618/quadview/internal/platform"
	"gopkg.in/yaml.v3"
)

// File is a Store backed by a YAML file.
type File struct {
	path   string
	logger *log.Logger

	mu     sync.Mutex
	last   model.State // last record read or written by this process
	closed bool
}

// Open returns a File store at path, creating parent directories. A missing
// file is treated as an empty record.
func Open(path string, logger *log.Logger) (*File, error) {
	if logger == nil {
		logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "store"})
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}
	f := &File{path: path, logger: logger}
	s, err := f.read()
	if err != nil {
		return nil, err
	}
	f.last = s
	return f, nil
}

// Path returns the file the store writes to.
func (f *File) Path() string {
	return f.path
}

func (f *File) Get(ctx context.Context) (model.State, error) {
	if err := ctx.Err(); err != nil {
		return model.State{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return model.State{}, ErrClosed
	}
	s, err := f.read()
	if err != nil {
		return model.State{}, err
	}
	f.last = s
	return copyState(s), nil
}

func (f *File) Set(ctx context.Context, p platform.Patch) error {
	return f.update(ctx, func(s *model.State) { p.Apply(s) })
}

func (f *File) Remove(ctx context.Context, keys ...platform.Key) error {
	return f.update(ctx, func(s *model.State) { platform.Clear(s, keys...) })
}

// update performs a read-modify-write of the whole record.
func (f *File) update(ctx context.Context, mutate func(*model.State)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	s, err := f.read()
	if err != nil {
		return err
	}
	mutate(&s)
	if err := f.write(s); err != nil {
		return err
	}
	f.last = s
	return nil
}

// Close stops the store. Watch channels close when their context ends.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *File) read() (model.State, error) {
	var s model.State
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("read state: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return s, nil
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parse state %s: %w", f.path, err)
	}
	return s, nil
}

func (f *File) write(s model.State) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("yaml encode: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".state-*.yaml")
	if err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace state: %w", err)
	}
	return nil
}

// Watch reports changes to the file made by other writers. Rewrites by this
// store are not reported. The channel closes when ctx is done.
func (f *File) Watch(ctx context.Context) (<-chan platform.Change, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch state: %w", err)
	}
	// Writes replace the file by rename, so watch the directory.
	if err := w.Add(filepath.Dir(f.path)); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch state: %w", err)
	}

	out := make(chan platform.Change, 4)
	go func() {
		defer close(out)
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(f.path) {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
					continue
				}
				change, ok := f.refresh()
				if !ok {
					continue
				}
				select {
				case out <- change:
				case <-ctx.Done():
					return
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				f.logger.Warn("state watch error", "err", err)
			}
		}
	}()
	return out, nil
}

// refresh rereads the file and reports which keys differ from the last
// record this store saw.
func (f *File) refresh() (platform.Change, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return platform.Change{}, false
	}
	s, err := f.read()
	if err != nil {
		f.logger.Debug("state reread failed", "err", err)
		return platform.Change{}, false
	}
	keys := platform.Diff(f.last, s)
	f.last = s
	if len(keys) == 0 {
		return platform.Change{}, false
	}
	return platform.Change{Keys: keys}, true
}
