package store

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/baaaaaaaka/carbon/internal/tracker"
)

func newTestStore(t *testing.T, opts Options) *Store {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "carbon", "projects.json"), opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return store
}

func sampleCollection() tracker.Collection {
	loc := time.FixedZone("", 2*3600)
	start := time.Date(2024, 3, 10, 9, 0, 0, 123456000, loc)
	end := start.Add(90 * time.Minute)
	return tracker.Collection{
		{ID: 1, Title: "Carbon", Completed: true, Sessions: []tracker.Session{{StartTime: start, EndTime: &end}}},
		{ID: 2, Title: "Open", Sessions: []tracker.Session{{StartTime: end}}},
	}
}

func TestNewCreatesDirectory(t *testing.T) {
	store := newTestStore(t, Options{})
	info, err := os.Stat(filepath.Dir(store.Path()))
	if err != nil {
		t.Fatalf("stat dir: %v", err)
	}
	if !info.IsDir() {
		t.Fatalf("expected directory at %s", filepath.Dir(store.Path()))
	}
}

func TestNewFailsWhenDirectoryCannotBeCreated(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o600); err != nil {
		t.Fatalf("write blocker: %v", err)
	}
	if _, err := New(filepath.Join(blocker, "carbon", "projects.json"), Options{}); err == nil {
		t.Fatalf("expected error when parent is a file")
	}
}

func TestLoadMissingReturnsEmpty(t *testing.T) {
	store := newTestStore(t, Options{Strict: true})
	c, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c == nil || len(c) != 0 {
		t.Fatalf("expected empty collection, got %#v", c)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	store := newTestStore(t, Options{})
	in := sampleCollection()
	if err := store.Save(in); err != nil {
		t.Fatalf("Save: %v", err)
	}

	out, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(out) != 2 || out[0].Title != "Carbon" || out[1].ID != 2 {
		t.Fatalf("unexpected collection: %#v", out)
	}
	if !out[0].Sessions[0].StartTime.Equal(in[0].Sessions[0].StartTime) {
		t.Fatalf("start time changed: %v vs %v", out[0].Sessions[0].StartTime, in[0].Sessions[0].StartTime)
	}
	if out[1].Sessions[0].EndTime != nil {
		t.Fatalf("expected running session to stay open")
	}
}

func TestSaveLoadSaveIsByteIdentical(t *testing.T) {
	store := newTestStore(t, Options{})
	if err := store.Save(sampleCollection()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	first, err := os.ReadFile(store.Path())
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	c, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := store.Save(c); err != nil {
		t.Fatalf("Save again: %v", err)
	}
	second, err := os.ReadFile(store.Path())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("content changed:\n%s\nvs\n%s", first, second)
	}
}

func TestFileSchema(t *testing.T) {
	store := newTestStore(t, Options{})
	if err := store.Save(sampleCollection()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	b, err := os.ReadFile(store.Path())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	for _, want := range []string{
		`"id": 1`,
		`"title": "Carbon"`,
		`"completed": true`,
		`"start_time": "2024-03-10T09:00:00.123456+02:00"`,
		`"end_time": null`,
	} {
		if !strings.Contains(string(b), want) {
			t.Fatalf("expected %s in file:\n%s", want, b)
		}
	}
}

func TestSaveEmptyWritesArray(t *testing.T) {
	store := newTestStore(t, Options{})
	if err := store.Save(nil); err != nil {
		t.Fatalf("Save: %v", err)
	}
	b, err := os.ReadFile(store.Path())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(b) != "[]\n" {
		t.Fatalf("expected empty array, got %q", b)
	}
}

func TestLoadToleratesUnknownFields(t *testing.T) {
	store := newTestStore(t, Options{Strict: true})
	data := `[{"id":4,"title":"t","completed":false,"color":"red","sessions":[{"start_time":"2024-03-10T09:00:00+01:00","end_time":null,"note":"x"}]}]`
	if err := os.WriteFile(store.Path(), []byte(data), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(c) != 1 || c[0].ID != 4 || c[0].State() != tracker.Running {
		t.Fatalf("unexpected collection: %#v", c)
	}
}

func TestLoadCorruptTolerantReturnsEmptyAndWarns(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	store := newTestStore(t, Options{Logger: logger})
	if err := os.WriteFile(store.Path(), []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	c, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(c) != 0 {
		t.Fatalf("expected empty collection, got %#v", c)
	}
	if !strings.Contains(logs.String(), "level=WARN") {
		t.Fatalf("expected warning, got %q", logs.String())
	}
}

func TestLoadCorruptStrictFails(t *testing.T) {
	store := newTestStore(t, Options{Strict: true})
	if err := os.WriteFile(store.Path(), []byte(`{"id":1}`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := store.Load(); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
}

func TestUpdateOnCorruptFileStartsFresh(t *testing.T) {
	store := newTestStore(t, Options{Logger: slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))})
	if err := os.WriteFile(store.Path(), []byte("garbage"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	err := store.Update(func(c *tracker.Collection) error {
		*c = append(*c, tracker.Project{ID: c.NextID(), Title: "new", Sessions: []tracker.Session{{StartTime: time.Now()}}})
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	c, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(c) != 1 || c[0].ID != 1 {
		t.Fatalf("unexpected collection: %#v", c)
	}
}

func TestUpdateErrorLeavesFileUntouched(t *testing.T) {
	store := newTestStore(t, Options{})
	if err := store.Save(sampleCollection()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	before, _ := os.ReadFile(store.Path())

	sentinel := errors.New("rejected")
	err := store.Update(func(c *tracker.Collection) error {
		(*c)[0].Title = "mutated"
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel, got %v", err)
	}
	after, _ := os.ReadFile(store.Path())
	if !bytes.Equal(before, after) {
		t.Fatalf("file changed on rejected update")
	}
}

func TestUpdateIsSerialized(t *testing.T) {
	store := newTestStore(t, Options{})

	const n = 25
	var wg sync.WaitGroup
	errCh := make(chan error, n)
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			defer wg.Done()
			errCh <- store.Update(func(c *tracker.Collection) error {
				*c = append(*c, tracker.Project{
					ID:       c.NextID(),
					Title:    fmt.Sprintf("p%02d", i),
					Sessions: []tracker.Session{{StartTime: time.Now()}},
				})
				return nil
			})
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
	}

	c, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(c) != n {
		t.Fatalf("projects len=%d want %d", len(c), n)
	}
	seen := map[int]bool{}
	for _, p := range c {
		if seen[p.ID] {
			t.Fatalf("duplicate id %d", p.ID)
		}
		seen[p.ID] = true
	}
}

func TestStoresSharingFileSerializeThroughLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "projects.json")
	a, err := New(path, Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	b, err := New(path, Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var wg sync.WaitGroup
	for _, s := range []*Store{a, b, a, b} {
		wg.Add(1)
		go func(s *Store) {
			defer wg.Done()
			_ = s.Update(func(c *tracker.Collection) error {
				*c = append(*c, tracker.Project{ID: c.NextID(), Sessions: []tracker.Session{{StartTime: time.Now()}}})
				return nil
			})
		}(s)
	}
	wg.Wait()

	c, err := a.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(c) != 4 || c.NextID() != 5 {
		t.Fatalf("expected 4 projects with ids 1..4, got %#v", c)
	}
}

func TestLoadInvalidUTF8(t *testing.T) {
	data := []byte("[{\"id\":1,\"title\":\"a\xffb\",\"completed\":false,\"sessions\":[{\"start_time\":\"2024-03-10T09:00:00Z\",\"end_time\":null}]}]")

	var logs bytes.Buffer
	tolerant := newTestStore(t, Options{Logger: slog.New(slog.NewTextHandler(&logs, nil))})
	if err := os.WriteFile(tolerant.Path(), data, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := tolerant.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(c) != 0 {
		t.Fatalf("expected empty collection, got %#v", c)
	}
	if strings.Count(logs.String(), "level=WARN") != 1 {
		t.Fatalf("expected one warning, got %q", logs.String())
	}

	strict := newTestStore(t, Options{Strict: true})
	if err := os.WriteFile(strict.Path(), data, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := strict.Load(); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
}

func TestLoadUnreadablePath(t *testing.T) {
	tolerant := newTestStore(t, Options{Logger: slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))})
	if err := os.Mkdir(tolerant.Path(), 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	c, err := tolerant.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(c) != 0 {
		t.Fatalf("expected empty collection, got %#v", c)
	}

	strict := newTestStore(t, Options{Strict: true})
	if err := os.Mkdir(strict.Path(), 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if _, err := strict.Load(); err == nil {
		t.Fatalf("expected strict load of a directory to fail")
	}
}

func TestSaveFailsWhenPathIsDirectory(t *testing.T) {
	store := newTestStore(t, Options{Logger: slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))})
	if err := os.Mkdir(store.Path(), 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := store.Save(sampleCollection()); err == nil {
		t.Fatalf("expected save over a directory to fail")
	}
	err := store.Update(func(c *tracker.Collection) error {
		*c = append(*c, tracker.Project{ID: 1})
		return nil
	})
	if err == nil {
		t.Fatalf("expected update over a directory to fail")
	}
}
