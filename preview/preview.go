// Package preview keeps locally selected files on disk behind short-lived
// handles so the browser can play them before they are uploaded.
package preview

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eringen/shortpost/composer"
)

// ErrNotFound is returned for handles that were never created or already released.
var ErrNotFound = errors.New("preview: handle not found")

type entry struct {
	path      string
	name      string
	mediaType string
	size      int64
	createdAt time.Time
}

// Store is a composer.PreviewStore backed by a temp directory.
type Store struct {
	dir       string
	urlPrefix string

	mu       sync.RWMutex
	entries  map[string]*entry
	released int
}

var _ composer.PreviewStore = (*Store)(nil)

// NewStore creates the directory if needed. urlPrefix is the path handles are
// served under, e.g. "/preview/".
func NewStore(dir, urlPrefix string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create preview dir: %w", err)
	}
	return &Store{
		dir:       dir,
		urlPrefix: urlPrefix,
		entries:   make(map[string]*entry),
	}, nil
}

// Create copies the file into the store and returns its handle.
func (s *Store) Create(file *composer.File) (composer.Handle, error) {
	if file == nil || file.Open == nil {
		return composer.Handle{}, errors.New("preview: file has no content")
	}
	src, err := file.Open()
	if err != nil {
		return composer.Handle{}, fmt.Errorf("open selected file: %w", err)
	}
	defer src.Close()

	id := uuid.NewString()
	path := filepath.Join(s.dir, id)
	dst, err := os.Create(path)
	if err != nil {
		return composer.Handle{}, err
	}
	written, err := io.Copy(dst, src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return composer.Handle{}, fmt.Errorf("write preview: %w", err)
	}

	s.mu.Lock()
	s.entries[id] = &entry{
		path:      path,
		name:      file.Name,
		mediaType: file.MediaType,
		size:      written,
		createdAt: time.Now(),
	}
	s.mu.Unlock()

	return composer.Handle{ID: id, URL: s.urlPrefix + id + "/"}, nil
}

// Open reads the content behind a live handle.
func (s *Store) Open(h composer.Handle) (io.ReadCloser, error) {
	f, _, err := s.OpenFile(h.ID)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Info describes a stored preview.
type Info struct {
	Name      string
	MediaType string
	Size      int64
	CreatedAt time.Time
}

// OpenFile opens the preview file for serving.
func (s *Store) OpenFile(id string) (*os.File, Info, error) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return nil, Info{}, ErrNotFound
	}
	f, err := os.Open(e.path)
	if err != nil {
		return nil, Info{}, err
	}
	return f, Info{Name: e.name, MediaType: e.mediaType, Size: e.size, CreatedAt: e.createdAt}, nil
}

// Release removes the preview. Releasing an unknown handle is a no-op.
func (s *Store) Release(h composer.Handle) error {
	s.mu.Lock()
	e, ok := s.entries[h.ID]
	if ok {
		delete(s.entries, h.ID)
		s.released++
	}
	s.mu.Unlock()
	if !ok {
		return nil
	}
	if err := os.Remove(e.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Len returns the number of live handles.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Released returns how many handles have been released so far.
func (s *Store) Released() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.released
}

// Cleanup releases every handle older than maxAge and returns how many went.
func (s *Store) Cleanup(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)
	var stale []string
	s.mu.RLock()
	for id, e := range s.entries {
		if e.createdAt.Before(cutoff) {
			stale = append(stale, id)
		}
	}
	s.mu.RUnlock()
	for _, id := range stale {
		_ = s.Release(composer.Handle{ID: id})
	}
	return len(stale)
}
