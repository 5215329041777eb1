package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"github.com/baaaaaaaka/carbon/internal/tracker"
)

var errQuit = errors.New("quit")

// Options wires the dashboard to the tracker. Every action goes through the
// same operations the command line uses.
type Options struct {
	Load       func() (tracker.Collection, error)
	Pause      func(id int) (tracker.Project, error)
	Resume     func(id int) (tracker.Project, error)
	Stop       func(id int) (tracker.Project, error)
	Now        func() time.Time
	TimeLayout string
	// Location renders session times; nil means time.Local.
	Location *time.Location
	// WatchPath is the data file; changes to it trigger a reload.
	WatchPath string
	Version   string
	Tick      time.Duration
}

type uiEvent struct {
	when time.Time
	kind string
}

func (e *uiEvent) When() time.Time { return e.when }

type rect struct {
	y int
	x int
	h int
	w int
}

type layout struct {
	projects rect
	sessions rect
}

type listState struct {
	selected int
	scroll   int
}

type uiState struct {
	projects  []tracker.Project
	loadError error
	list      listState
	message   string
}

// Run shows the dashboard until the user quits or ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	if opts.Load == nil {
		return errors.New("Load is required")
	}
	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()
	return run(ctx, screen, opts)
}

func run(ctx context.Context, screen tcell.Screen, opts Options) error {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Tick <= 0 {
		opts.Tick = time.Second
	}

	state := &uiState{}
	refreshState(state, opts)

	done := make(chan struct{})
	defer close(done)

	go func() {
		ticker := time.NewTicker(opts.Tick)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				screen.PostEvent(&uiEvent{when: time.Now(), kind: "tick"})
			case <-done:
				return
			}
		}
	}()

	if opts.WatchPath != "" {
		stop, err := watchFile(opts.WatchPath, func() {
			screen.PostEvent(&uiEvent{when: time.Now(), kind: "reload"})
		})
		if err != nil {
			slog.Debug("file watch disabled", "path", opts.WatchPath, "error", err)
		} else {
			defer stop()
		}
	}

	go func() {
		select {
		case <-ctx.Done():
			screen.PostEvent(&uiEvent{when: time.Now(), kind: "quit"})
		case <-done:
		}
	}()

	for {
		draw(screen, state, opts)
		ev := screen.PollEvent()
		if ev == nil {
			return nil
		}

		switch tev := ev.(type) {
		case *uiEvent:
			switch tev.kind {
			case "quit":
				return ctx.Err()
			case "reload":
				refreshState(state, opts)
			}
		case *tcell.EventResize:
			screen.Sync()
		case *tcell.EventKey:
			if err := handleKey(state, opts, tev); err != nil {
				if errors.Is(err, errQuit) {
					return nil
				}
				return err
			}
		}
	}
}

// watchFile calls onChange whenever path is written, created or replaced.
// The parent directory is watched because the store renames over the file.
func watchFile(path string, onChange func()) (func(), error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}
	name := filepath.Base(path)
	go func() {
		for {
			select {
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != name {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
					onChange()
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.Debug("file watcher error", "error", err)
			}
		}
	}()
	return func() { _ = w.Close() }, nil
}

func handleKey(state *uiState, opts Options, ev *tcell.EventKey) error {
	switch ev.Key() {
	case tcell.KeyESC, tcell.KeyCtrlC:
		return errQuit
	case tcell.KeyUp:
		moveSelection(state, -1)
		return nil
	case tcell.KeyDown:
		moveSelection(state, 1)
		return nil
	case tcell.KeyRune:
	default:
		return nil
	}

	switch ev.Rune() {
	case 'q':
		return errQuit
	case 'k':
		moveSelection(state, -1)
	case 'j':
		moveSelection(state, 1)
	case 'p':
		runAction(state, opts, opts.Pause, tracker.PausedMessage)
	case 'r':
		runAction(state, opts, opts.Resume, tracker.ResumedMessage)
	case 's':
		runAction(state, opts, opts.Stop, tracker.StoppedMessage)
	case 'g':
		refreshState(state, opts)
	}
	return nil
}

func runAction(state *uiState, opts Options, action func(int) (tracker.Project, error), confirm func(int) string) {
	p, ok := selectedProject(state)
	if !ok || action == nil {
		return
	}
	if _, err := action(p.ID); err != nil {
		state.message = err.Error()
		if !tracker.IsRejected(err) {
			slog.Error("dashboard action failed", "id", p.ID, "error", err)
		}
	} else {
		state.message = confirm(p.ID)
	}
	refreshState(state, opts)
}

func refreshState(state *uiState, opts Options) {
	c, err := opts.Load()
	state.loadError = err
	if err != nil {
		return
	}
	var selectedID int
	if p, ok := selectedProject(state); ok {
		selectedID = p.ID
	}
	state.projects = c.InProgress()
	state.list.selected = 0
	for i, p := range state.projects {
		if p.ID == selectedID {
			state.list.selected = i
			break
		}
	}
	state.list.clamp(len(state.projects))
}

func selectedProject(state *uiState) (tracker.Project, bool) {
	idx := state.list.selected
	if idx < 0 || idx >= len(state.projects) {
		return tracker.Project{}, false
	}
	return state.projects[idx], true
}

func moveSelection(state *uiState, delta int) {
	state.list.selected += delta
	state.list.clamp(len(state.projects))
}

func computeLayout(screen tcell.Screen) layout {
	w, h := screen.Size()
	bodyH := max(0, h-2)
	projH := bodyH / 2
	if projH < 3 {
		projH = min(bodyH, 3)
	}
	return layout{
		projects: rect{y: 1, x: 0, h: projH, w: w},
		sessions: rect{y: 1 + projH, x: 0, h: bodyH - projH, w: w},
	}
}

func draw(screen tcell.Screen, state *uiState, opts Options) {
	screen.Clear()
	w, _ := screen.Size()
	lay := computeLayout(screen)
	now := opts.Now()

	header := " carbon watch"
	writeText(screen, 0, 0, padRight(truncate(header, w), w), tcell.StyleDefault.Bold(true))
	if v := versionLabel(opts.Version); w > displayWidth(v)+displayWidth(header)+1 {
		writeText(screen, w-displayWidth(v)-1, 0, v, tcell.StyleDefault.Dim(true))
	}

	drawBox(screen, lay.projects, "In progress", true)
	rows := projectRows(state.projects, now)
	state.list.ensureVisible(lay.projects.h-2, len(rows))
	drawList(screen, lay.projects, rows, state.list)

	drawBox(screen, lay.sessions, "Sessions", false)
	var lines []string
	if p, ok := selectedProject(state); ok {
		lines = sessionLines(p, now, opts.TimeLayout, opts.Location)
	} else if len(state.projects) == 0 {
		lines = []string{"No projects in progress."}
	}
	drawLines(screen, lay.sessions, lines)

	left := state.message
	if state.loadError != nil {
		left = "Load failed: " + state.loadError.Error()
	}
	drawStatus(screen, left, "j/k move  p pause  r resume  s stop  q quit")
	screen.Show()
}

func projectRows(projects []tracker.Project, now time.Time) []string {
	rows := make([]string, 0, len(projects))
	for _, p := range projects {
		rows = append(rows, fmt.Sprintf("#%-4d %-8s %s  %s",
			p.ID, p.State(), tracker.FormatDuration(p.Total(now)), p.Title))
	}
	return rows
}

func sessionLines(p tracker.Project, now time.Time, layout string, loc *time.Location) []string {
	if layout == "" {
		layout = tracker.DefaultTimeLayout
	}
	if loc == nil {
		loc = time.Local
	}
	lines := make([]string, 0, len(p.Sessions)+1)
	for i, s := range p.Sessions {
		end := "running"
		if s.EndTime != nil {
			end = s.EndTime.In(loc).Format(layout)
		}
		lines = append(lines, fmt.Sprintf("%2d  %s -> %-19s  %s",
			i+1, s.StartTime.In(loc).Format(layout), end, tracker.FormatDuration(s.Duration(now))))
	}
	lines = append(lines, "Total "+tracker.FormatDuration(p.Total(now)))
	return lines
}

func (s *listState) clamp(nItems int) {
	if nItems <= 0 {
		s.selected = 0
		s.scroll = 0
		return
	}
	s.selected = clamp(s.selected, 0, nItems-1)
	s.scroll = clamp(s.scroll, 0, nItems-1)
}

func (s *listState) ensureVisible(viewH int, nItems int) {
	if viewH <= 0 || nItems <= 0 {
		s.scroll = 0
		return
	}
	if s.selected < s.scroll {
		s.scroll = s.selected
	}
	if s.selected >= s.scroll+viewH {
		s.scroll = s.selected - viewH + 1
	}
	s.scroll = clamp(s.scroll, 0, max(0, nItems-viewH))
}

func drawBox(screen tcell.Screen, r rect, title string, focused bool) {
	if r.w <= 0 || r.h <= 0 {
		return
	}
	borderStyle := tcell.StyleDefault
	if focused {
		borderStyle = borderStyle.Bold(true)
	} else {
		borderStyle = borderStyle.Dim(true)
	}
	for x := r.x + 1; x < r.x+r.w-1; x++ {
		screen.SetContent(x, r.y, tcell.RuneHLine, nil, borderStyle)
		screen.SetContent(x, r.y+r.h-1, tcell.RuneHLine, nil, borderStyle)
	}
	for y := r.y + 1; y < r.y+r.h-1; y++ {
		screen.SetContent(r.x, y, tcell.RuneVLine, nil, borderStyle)
		screen.SetContent(r.x+r.w-1, y, tcell.RuneVLine, nil, borderStyle)
	}
	screen.SetContent(r.x, r.y, tcell.RuneULCorner, nil, borderStyle)
	screen.SetContent(r.x+r.w-1, r.y, tcell.RuneURCorner, nil, borderStyle)
	screen.SetContent(r.x, r.y+r.h-1, tcell.RuneLLCorner, nil, borderStyle)
	screen.SetContent(r.x+r.w-1, r.y+r.h-1, tcell.RuneLRCorner, nil, borderStyle)

	title = truncate(" "+title+" ", max(0, r.w-2))
	titleX := r.x + 1 + max(0, (r.w-2-displayWidth(title))/2)
	writeText(screen, titleX, r.y, title, tcell.StyleDefault.Reverse(true))
}

func drawList(screen tcell.Screen, r rect, rows []string, state listState) {
	if r.h < 3 || r.w < 4 {
		return
	}
	innerH := r.h - 2
	innerW := r.w - 2
	for i := 0; i < innerH; i++ {
		idx := state.scroll + i
		if idx >= len(rows) {
			break
		}
		style := tcell.StyleDefault
		if idx == state.selected {
			style = style.Reverse(true).Bold(true)
		}
		writeText(screen, r.x+1, r.y+1+i, padRight(truncate(rows[idx], innerW), innerW), style)
	}
}

func drawLines(screen tcell.Screen, r rect, lines []string) {
	if r.h < 3 || r.w < 4 {
		return
	}
	innerH := r.h - 2
	innerW := r.w - 2
	// Keep the most recent sessions and the total visible.
	start := max(0, len(lines)-innerH)
	for i := 0; i < innerH && start+i < len(lines); i++ {
		writeText(screen, r.x+1, r.y+1+i, truncate(lines[start+i], innerW), tcell.StyleDefault)
	}
}

func drawStatus(screen tcell.Screen, left string, right string) {
	w, h := screen.Size()
	if h <= 0 {
		return
	}
	y := h - 1
	writeText(screen, 0, y, padRight(truncate(left, w), w), tcell.StyleDefault.Reverse(true))
	if right == "" || displayWidth(left)+displayWidth(right)+2 > w {
		return
	}
	writeText(screen, w-displayWidth(right), y, right, tcell.StyleDefault.Reverse(true))
}

func writeText(screen tcell.Screen, x, y int, text string, style tcell.Style) {
	offset := 0
	for _, ch := range text {
		width := runewidth.RuneWidth(ch)
		if width == 0 {
			continue
		}
		screen.SetContent(x+offset, y, ch, nil, style)
		offset += width
	}
}

func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if displayWidth(s) <= width {
		return s
	}
	var buf strings.Builder
	curWidth := 0
	for _, ch := range s {
		chWidth := runewidth.RuneWidth(ch)
		if chWidth == 0 {
			buf.WriteRune(ch)
			continue
		}
		if curWidth+chWidth > width {
			break
		}
		buf.WriteRune(ch)
		curWidth += chWidth
	}
	return buf.String()
}

func padRight(s string, width int) string {
	if displayWidth(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-displayWidth(s))
}

func displayWidth(s string) int {
	return runewidth.StringWidth(s)
}

func versionLabel(v string) string {
	v = strings.TrimSpace(v)
	if v == "" || strings.EqualFold(v, "dev") {
		return "dev"
	}
	if strings.HasPrefix(strings.ToLower(v), "v") {
		return v
	}
	return "v" + v
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
