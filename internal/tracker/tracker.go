package tracker

import (
	"time"
)

// Store is the persistence contract the tracker runs against. Update must
// persist the collection only when fn returns nil.
type Store interface {
	Load() (Collection, error)
	Update(fn func(*Collection) error) error
}

type Tracker struct {
	store    Store
	clock    func() time.Time
	location *time.Location
}

type Option func(*Tracker)

func WithClock(clock func() time.Time) Option {
	return func(t *Tracker) { t.clock = clock }
}

func WithLocation(loc *time.Location) Option {
	return func(t *Tracker) { t.location = loc }
}

func New(store Store, opts ...Option) *Tracker {
	t := &Tracker{
		store:    store,
		clock:    time.Now,
		location: time.Local,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Tracker) Location() *time.Location { return t.location }

// Now is the tracker's clock in its location, without a monotonic reading so
// that persisted and in-memory values compare equal.
func (t *Tracker) Now() time.Time {
	return t.clock().In(t.location).Round(0)
}

func (t *Tracker) Load() (Collection, error) {
	return t.store.Load()
}

func (t *Tracker) Start(title string) (Project, error) {
	var created Project
	err := t.store.Update(func(c *Collection) error {
		created = Project{
			ID:       c.NextID(),
			Title:    title,
			Sessions: []Session{{StartTime: t.Now()}},
		}
		*c = append(*c, created)
		return nil
	})
	if err != nil {
		return Project{}, err
	}
	return created, nil
}

func (t *Tracker) Pause(id int) (Project, error) {
	return t.apply(id, func(p *Project) error {
		if len(p.Sessions) == 0 {
			return reject(id, ErrNoActiveSession, "No active session found for project with ID: %d", id)
		}
		last := &p.Sessions[len(p.Sessions)-1]
		if !last.Open() {
			return reject(id, ErrAlreadyPaused, "The last session of this project is already paused.")
		}
		now := t.Now()
		last.EndTime = &now
		return nil
	})
}

func (t *Tracker) Resume(id int) (Project, error) {
	return t.apply(id, func(p *Project) error {
		if len(p.Sessions) == 0 {
			return reject(id, ErrNoSessions, "No sessions found for project with ID: %d", id)
		}
		if p.Completed {
			return reject(id, ErrCompleted, "The project with ID: %d is completed and cannot be resumed.", id)
		}
		if p.Sessions[len(p.Sessions)-1].Open() {
			return reject(id, ErrAlreadyRunning, "The last session of this project is already running.")
		}
		p.Sessions = append(p.Sessions, Session{StartTime: t.Now()})
		return nil
	})
}

func (t *Tracker) Stop(id int) (Project, error) {
	return t.apply(id, func(p *Project) error {
		if p.Completed {
			return reject(id, ErrCompleted, "The project with ID: %d is already completed.", id)
		}
		if n := len(p.Sessions); n > 0 && p.Sessions[n-1].Open() {
			now := t.Now()
			p.Sessions[n-1].EndTime = &now
		}
		p.Completed = true
		return nil
	})
}

// apply runs fn against the project with the given id inside a single
// load-mutate-save cycle. Nothing is written when fn rejects.
func (t *Tracker) apply(id int, fn func(*Project) error) (Project, error) {
	var out Project
	err := t.store.Update(func(c *Collection) error {
		i := c.index(id)
		if i < 0 {
			return notFound(id)
		}
		if err := fn(&(*c)[i]); err != nil {
			return err
		}
		out = (*c)[i]
		return nil
	})
	if err != nil {
		return Project{}, err
	}
	return out, nil
}
