package tracker

import (
	"fmt"
	"io"
	"time"
)

const DefaultTimeLayout = "2006-01-02 15:04:05"

type Day int

const (
	Today Day = iota
	Yesterday
)

// FormatDuration renders whole seconds as HH:MM:SS. Hours do not roll over
// into days and negative values are printed as-is.
func FormatDuration(d time.Duration) string {
	total := int64(d / time.Second)
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}

// ReportOptions controls how status lines render timestamps.
type ReportOptions struct {
	TimeLayout string
}

func (o ReportOptions) layout() string {
	if o.TimeLayout == "" {
		return DefaultTimeLayout
	}
	return o.TimeLayout
}

// Status writes every in-progress project with per-session detail. The clock
// is read once per running session.
func (t *Tracker) Status(w io.Writer, opts ReportOptions) error {
	c, err := t.store.Load()
	if err != nil {
		return err
	}
	return t.writeStatus(w, c.InProgress(), opts)
}

func (t *Tracker) writeStatus(w io.Writer, projects []Project, opts ReportOptions) error {
	layout := opts.layout()
	for _, p := range projects {
		if _, err := fmt.Fprintf(w, "Project ID: %d, Title: %s\n", p.ID, p.Title); err != nil {
			return err
		}
		var total time.Duration
		for i, s := range p.Sessions {
			end := t.Now()
			if s.EndTime != nil {
				end = *s.EndTime
			}
			d := end.Sub(s.StartTime)
			total += d
			if _, err := fmt.Fprintf(w, "  Session %d: started at %s, ended at %s. Duration: %s\n",
				i+1,
				s.StartTime.In(t.location).Format(layout),
				end.In(t.location).Format(layout),
				FormatDuration(d),
			); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "  Total time spent on project: %s\n", FormatDuration(total)); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tracker) ListAll(w io.Writer) error {
	c, err := t.store.Load()
	if err != nil {
		return err
	}
	return WriteSummaries(w, c.Completed())
}

// ListDay writes completed projects with a session that ended today or
// yesterday by the local calendar.
func (t *Tracker) ListDay(w io.Writer, day Day) error {
	c, err := t.store.Load()
	if err != nil {
		return err
	}
	return WriteSummaries(w, c.CompletedOn(t.dayDate(day), t.location))
}

func (t *Tracker) dayDate(day Day) time.Time {
	now := t.Now()
	if day == Yesterday {
		y, m, d := now.Date()
		return time.Date(y, m, d-1, 12, 0, 0, 0, t.location)
	}
	return now
}

// WriteSummaries writes id, title and closed-session total for each project,
// separated by blank lines.
func WriteSummaries(w io.Writer, projects []Project) error {
	for i, p := range projects {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "Project ID: %d, Title: %s\n  Total time spent on project: %s\n",
			p.ID, p.Title, FormatDuration(p.ClosedTotal())); err != nil {
			return err
		}
	}
	return nil
}
