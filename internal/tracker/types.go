package tracker

import "time"

type State int

const (
	Running State = iota
	Paused
	Completed
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Completed:
		return "completed"
	default:
		return "unknown"
	}
}

// Session is one contiguous tracked interval. A nil EndTime means the session
// is still running.
type Session struct {
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
}

func (s Session) Open() bool { return s.EndTime == nil }

// Duration returns end-start, using now for a running session.
func (s Session) Duration(now time.Time) time.Duration {
	end := now
	if s.EndTime != nil {
		end = *s.EndTime
	}
	return end.Sub(s.StartTime)
}

type Project struct {
	ID        int       `json:"id"`
	Title     string    `json:"title"`
	Sessions  []Session `json:"sessions"`
	Completed bool      `json:"completed"`
}

func (p Project) State() State {
	if p.Completed {
		return Completed
	}
	if last, ok := p.lastSession(); ok && last.Open() {
		return Running
	}
	return Paused
}

func (p Project) lastSession() (Session, bool) {
	if len(p.Sessions) == 0 {
		return Session{}, false
	}
	return p.Sessions[len(p.Sessions)-1], true
}

// ClosedTotal sums the durations of closed sessions only.
func (p Project) ClosedTotal() time.Duration {
	var total time.Duration
	for _, s := range p.Sessions {
		if s.EndTime == nil {
			continue
		}
		total += s.EndTime.Sub(s.StartTime)
	}
	return total
}

// Total sums every session, measuring running ones against now.
func (p Project) Total(now time.Time) time.Duration {
	var total time.Duration
	for _, s := range p.Sessions {
		total += s.Duration(now)
	}
	return total
}

// Collection is the unit of persistence; order is creation order.
type Collection []Project

func (c Collection) NextID() int {
	max := 0
	for _, p := range c {
		if p.ID > max {
			max = p.ID
		}
	}
	return max + 1
}

func (c Collection) Find(id int) (Project, bool) {
	for _, p := range c {
		if p.ID == id {
			return p, true
		}
	}
	return Project{}, false
}

func (c Collection) index(id int) int {
	for i := range c {
		if c[i].ID == id {
			return i
		}
	}
	return -1
}

func (c Collection) InProgress() []Project {
	var out []Project
	for _, p := range c {
		if !p.Completed {
			out = append(out, p)
		}
	}
	return out
}

func (c Collection) Completed() []Project {
	var out []Project
	for _, p := range c {
		if p.Completed {
			out = append(out, p)
		}
	}
	return out
}

// CompletedOn returns completed projects with at least one session ending on
// the calendar date of day, as observed in loc.
func (c Collection) CompletedOn(day time.Time, loc *time.Location) []Project {
	y, m, d := day.In(loc).Date()
	var out []Project
	for _, p := range c {
		if !p.Completed {
			continue
		}
		for _, s := range p.Sessions {
			if s.EndTime == nil {
				continue
			}
			ey, em, ed := s.EndTime.In(loc).Date()
			if ey == y && em == m && ed == d {
				out = append(out, p)
				break
			}
		}
	}
	return out
}
