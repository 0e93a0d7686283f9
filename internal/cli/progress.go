package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/shiftsched/pkg/pipeline"
	"github.com/matzehuels/shiftsched/pkg/shift"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const frameInterval = 80 * time.Millisecond

type (
	roundMsg struct {
		round   int64
		window  int
		changes int64
		elapsed time.Duration
	}
	searchDoneMsg struct{}
	frameMsg      struct{}
)

// searchModel is the bubbletea model of the live search view: a spinner
// followed by the latest round figures.
type searchModel struct {
	title     string
	frame     int
	rounds    int64
	rotations int64
	window    int
	elapsed   time.Duration
	done      bool
	stopping  bool
	cancel    context.CancelFunc
}

func newSearchModel(title string, cancel context.CancelFunc) searchModel {
	return searchModel{title: title, cancel: cancel}
}

func nextFrame() tea.Cmd {
	return tea.Tick(frameInterval, func(time.Time) tea.Msg { return frameMsg{} })
}

func (m searchModel) Init() tea.Cmd {
	return nextFrame()
}

func (m searchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case frameMsg:
		if m.done {
			return m, nil
		}
		m.frame++
		return m, nextFrame()
	case roundMsg:
		m.rounds++
		m.rotations += msg.changes
		m.window = msg.window
		if msg.elapsed > m.elapsed {
			m.elapsed = msg.elapsed
		}
	case searchDoneMsg:
		m.done = true
		return m, tea.Quit
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			// The search notices at its next round; keep drawing until then.
			m.stopping = true
			if m.cancel != nil {
				m.cancel()
			}
		}
	}
	return m, nil
}

func (m searchModel) View() string {
	if m.done {
		return ""
	}
	frame := styleIconSpinner.Render(spinnerFrames[m.frame%len(spinnerFrames)])
	title := m.title
	if m.stopping {
		title = "Stopping..."
	}
	line := frame + " " + StyleDim.Render(title)
	if m.rounds > 0 {
		stats := []string{
			fmt.Sprintf("round %d", m.rounds),
			fmt.Sprintf("window %d", m.window),
			fmt.Sprintf("%d moves", m.rotations),
			m.elapsed.Round(time.Millisecond).String(),
		}
		line += "  " + StyleDim.Render(strings.Join(stats, " · "))
	}
	return line + "\n"
}

// programObserver forwards search rounds to a running program.
type programObserver struct{ p *tea.Program }

func (o programObserver) OnRound(round int64, window int, changes int64, elapsed time.Duration) {
	o.p.Send(roundMsg{round: round, window: window, changes: changes, elapsed: elapsed})
}

// searchFunc runs a search, reporting rounds to obs when it is non-nil.
type searchFunc func(ctx context.Context, obs shift.RoundObserver) (*pipeline.Result, error)

// runSearch runs fn. When interactive, a live view of the search is drawn
// on stderr and q or ctrl+c cancels the search.
func runSearch(ctx context.Context, title string, interactive bool, fn searchFunc) (*pipeline.Result, error) {
	if !interactive {
		return fn(ctx, nil)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	p := tea.NewProgram(newSearchModel(title, cancel), tea.WithOutput(os.Stderr), tea.WithContext(ctx))

	type outcome struct {
		res *pipeline.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := fn(ctx, programObserver{p})
		done <- outcome{res, err}
		p.Send(searchDoneMsg{})
	}()

	if _, err := p.Run(); err != nil {
		loggerFromContext(ctx).Debug("search view stopped", "err", err)
	}
	out := <-done
	return out.res, out.err
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}
