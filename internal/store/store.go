package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"unicode/utf8"

	"github.com/gofrs/flock"

	"github.com/baaaaaaaka/carbon/internal/tracker"
)

// ErrCorrupt is returned by a strict load when the data file does not parse.
var ErrCorrupt = errors.New("corrupt projects file")

type Options struct {
	// Strict makes Load fail on unreadable or unparsable data instead of
	// falling back to an empty collection.
	Strict bool
	Logger *slog.Logger
}

// Store persists the whole project collection as one JSON file. Every
// mutation is a locked read-modify-write of that file.
type Store struct {
	mu     sync.Mutex
	path   string
	lock   *flock.Flock
	strict bool
	log    *slog.Logger
}

func New(path string, opts Options) (*Store, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		path:   path,
		lock:   flock.New(path + ".lock"),
		strict: opts.Strict,
		log:    logger,
	}, nil
}

func (s *Store) Path() string { return s.path }

func (s *Store) Strict() bool { return s.strict }

func (s *Store) Load() (tracker.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lock.RLock(); err != nil {
		// A read-only data dir cannot hold the lock file; reads stay best-effort.
		if !errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("lock projects: %w", err)
		}
		s.log.Debug("reading projects without lock", "path", s.path, "error", err)
		return s.loadUnlocked()
	}
	defer func() { _ = s.lock.Unlock() }()

	return s.loadUnlocked()
}

func (s *Store) Save(c tracker.Collection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("lock projects: %w", err)
	}
	defer func() { _ = s.lock.Unlock() }()

	return s.saveUnlocked(c)
}

// Update loads the collection, applies fn and saves the result, all under the
// file lock. When fn returns an error nothing is written and the error is
// returned unchanged.
func (s *Store) Update(fn func(*tracker.Collection) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("lock projects: %w", err)
	}
	defer func() { _ = s.lock.Unlock() }()

	c, err := s.loadUnlocked()
	if err != nil {
		return err
	}
	if err := fn(&c); err != nil {
		return err
	}
	return s.saveUnlocked(c)
}

func (s *Store) loadUnlocked() (tracker.Collection, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return tracker.Collection{}, nil
		}
		if s.strict {
			return nil, fmt.Errorf("read projects: %w", err)
		}
		s.log.Warn("unreadable projects file, starting empty", "path", s.path, "error", err)
		return tracker.Collection{}, nil
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return tracker.Collection{}, nil
	}

	if !utf8.Valid(b) {
		if s.strict {
			return nil, fmt.Errorf("%w: %s: invalid UTF-8", ErrCorrupt, s.path)
		}
		s.log.Warn("projects file is not valid UTF-8, starting empty", "path", s.path)
		return tracker.Collection{}, nil
	}

	var c tracker.Collection
	if err := json.Unmarshal(b, &c); err != nil {
		if s.strict {
			return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.path, err)
		}
		s.log.Warn("unparsable projects file, starting empty", "path", s.path, "error", err)
		return tracker.Collection{}, nil
	}
	if c == nil {
		c = tracker.Collection{}
	}
	s.log.Debug("loaded projects", "path", s.path, "count", len(c))
	return c, nil
}

func (s *Store) saveUnlocked(c tracker.Collection) error {
	if c == nil {
		c = tracker.Collection{}
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	b, err := Marshal(c)
	if err != nil {
		return err
	}
	if err := atomicWriteFile(s.path, b, 0o600); err != nil {
		return fmt.Errorf("atomic write projects: %w", err)
	}
	s.log.Debug("saved projects", "path", s.path, "count", len(c))
	return nil
}

// Marshal renders a collection exactly as the store writes it.
func Marshal(c tracker.Collection) ([]byte, error) {
	if c == nil {
		c = tracker.Collection{}
	}
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal projects: %w", err)
	}
	return append(b, '\n'), nil
}
