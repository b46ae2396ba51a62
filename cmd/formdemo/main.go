// formdemo runs a small form over the real terminal: formkey reads and
// dispatches keys, Bubble Tea draws the result.
//
// Run with: go run ./cmd/formdemo
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/kungfusheep/formkey"
	"github.com/spf13/cobra"
)

const appName = "formdemo"

var (
	configPath    string
	keysPath      string
	chordTimeout  time.Duration
	escapeTimeout time.Duration
	logPath       string
	printDefaults bool
)

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "Try formkey's chords, counts and focus routing in a terminal form",
	Long: `formdemo shows a name field, two checkboxes and a list.

Tab/S-Tab move focus. In the list, j/k move (try 5j or C-u j), gg/G jump to
the ends, dd deletes. q quits from anywhere but the name field, C-c always.`,
	RunE:          run,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", formkey.ConfigPath(), "config file (timeouts, bindings, key overrides)")
	rootCmd.Flags().StringVar(&keysPath, "keys", "", "extra TOML file of escape sequence overrides")
	rootCmd.Flags().DurationVar(&chordTimeout, "chord-timeout", 0, "wait for the next key of a chord (overrides config)")
	rootCmd.Flags().DurationVar(&escapeTimeout, "escape-timeout", 0, "wait after ESC for a sequence to continue (overrides config)")
	rootCmd.Flags().StringVar(&logPath, "log", "", "write debug logs to this file")
	rootCmd.Flags().BoolVar(&printDefaults, "print-bindings", false, "print the default bindings as a config template and exit")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	logger, closeLog, err := openLog(logPath)
	if err != nil {
		return err
	}
	defer closeLog()

	cfg, err := formkey.LoadConfig(configPath, appName, logger)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	if chordTimeout > 0 {
		cfg.Timing.Chord = chordTimeout
	}
	if escapeTimeout > 0 {
		cfg.Timing.EscapeFirst = escapeTimeout
		cfg.Timing.Escape = escapeTimeout / 2
	}

	st := newState()
	form := buildForm(st)

	if printDefaults {
		for _, km := range []*formkey.Keymap{form.Navigation(), st.list.keys, form.Keymap()} {
			if err := km.WriteDefaultBindings(os.Stdout, appName); err != nil {
				return err
			}
		}
		return nil
	}

	tty := formkey.NewTTYSource(os.Stdin)
	if !tty.IsTerminal() {
		return errors.New("stdin is not a terminal")
	}
	if err := tty.MakeRaw(); err != nil {
		return err
	}
	defer tty.Restore()

	seqs := formkey.SequencesFromEnv(logger)
	if keysPath != "" {
		applied, skipped, err := seqs.LoadOverridesFile(keysPath, logger)
		if err != nil {
			return fmt.Errorf("error loading key overrides: %w", err)
		}
		logger.Info("key overrides loaded", "applied", applied, "skipped", skipped)
	}

	in := formkey.NewInputWithDecoder(formkey.NewDecoder(tty, seqs), form).SetLogger(logger)
	cfg.Configure(in, form.Navigation(), st.list.keys, form.Keymap())
	watchFocus(form, in, st)

	p := tea.NewProgram(model{st: st}, tea.WithInput(nil), tea.WithAltScreen())
	st.redraw = func() { p.Send(redrawMsg{}) }
	st.quit = p.Quit

	in.Accumulator().OnCount = func(n int) {
		st.update(func() { st.count = n })
	}
	in.Dispatcher().OnPending = func(keys []formkey.Key) {
		st.update(func() { st.chord = formkey.FormatKeys(keys) })
	}
	in.OnError = func(err error) {
		st.update(func() { st.notice, st.failed = err.Error(), true })
	}
	in.OnUnhandled = func(ev formkey.Event) {
		st.update(func() { st.notice = "no binding for " + ev.Key.String() })
	}

	go func() {
		err := in.Run(func(res formkey.Result) {
			st.update(func() {
				st.chord, st.count = "", 0
				if res == formkey.Handled && !st.failed {
					st.notice = ""
				}
				st.failed = false
			})
		})
		logger.Info("input stopped", "err", err)
		p.Quit()
	}()

	_, err = p.Run()
	return err
}

func openLog(path string) (*slog.Logger, func(), error) {
	if path == "" {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	h := slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(h), func() { f.Close() }, nil
}

// state is shared between the input goroutine, which changes it, and the
// Bubble Tea program, which draws it.
type state struct {
	mu sync.Mutex

	name   *textField
	boxes  []*checkbox
	list   *list
	focus  int
	chord  string
	count  int
	notice string
	failed bool

	redraw func()
	quit   func()
}

func newState() *state {
	st := &state{redraw: func() {}, quit: func() {}}
	st.name = &textField{st: st, label: "Name", keys: formkey.NewKeymap().Name("name")}
	st.boxes = []*checkbox{
		{st: st, label: "Subscribe", keys: formkey.NewKeymap().Name("subscribe")},
		{st: st, label: "Dark mode", keys: formkey.NewKeymap().Name("dark")},
	}
	st.list = &list{st: st, keys: formkey.NewKeymap().Name("list"), items: []string{
		"Learn formkey", "Build a TUI", "Add vim bindings",
		"Count prefixes (5j, C-u j)", "Chords (gg, dd)", "Profit!",
	}}
	return st
}

func (st *state) update(fn func()) {
	st.mu.Lock()
	fn()
	st.mu.Unlock()
	st.redraw()
}

func buildForm(st *state) *formkey.Form {
	st.name.keys.HandleNamed("clear_field", "<C-w>", func(formkey.Match) {
		st.update(func() { st.name.value = "" })
	})
	st.name.keys.HandleNamed("delete_char", "<BS>", func(m formkey.Match) {
		st.update(func() {
			r := []rune(st.name.value)
			st.name.value = string(r[:max(0, len(r)-m.Count)])
		})
	})
	for _, b := range st.boxes {
		b.keys.HandleNamed("toggle", "<Space>", func(formkey.Match) {
			st.update(func() { b.checked = !b.checked })
		})
	}
	st.list.bind()

	quit := func(formkey.Match) { st.quit() }

	widgets := []formkey.Widget{st.name}
	for _, b := range st.boxes {
		widgets = append(widgets, b)
	}
	widgets = append(widgets, st.list)

	form := formkey.NewForm(widgets...)
	form.Keymap().HandleNamed("quit", "q", quit)
	form.Keymap().HandleNamed("force_quit", "<C-c>", quit)
	return form
}

// watchFocus tracks the focused widget. Bare digits are a count in the list
// and text in the name field.
func watchFocus(form *formkey.Form, in *formkey.Input, st *state) {
	form.OnFocus(func(i int, w formkey.Widget) {
		in.Accumulator().BareDigits = w == formkey.Widget(st.list)
		st.update(func() { st.focus = i })
	})
}

type textField struct {
	st    *state
	label string
	value string
	keys  *formkey.Keymap
}

func (t *textField) Keymap() *formkey.Keymap { return t.keys }

// HandleKey takes printable characters the keymap does not bind.
func (t *textField) HandleKey(m formkey.Match) formkey.Result {
	k := m.Keys[0]
	var r rune
	switch {
	case k.Special == formkey.SpecialSpace && k.Mod == formkey.ModNone:
		r = ' '
	case k.Special == formkey.SpecialNone && k.Mod == formkey.ModNone && k.Rune >= ' ':
		r = k.Rune
	default:
		return formkey.Unhandled
	}
	t.st.update(func() { t.value += strings.Repeat(string(r), m.Count) })
	return formkey.Handled
}

type checkbox struct {
	st      *state
	label   string
	checked bool
	keys    *formkey.Keymap
}

func (c *checkbox) Keymap() *formkey.Keymap { return c.keys }

type list struct {
	st     *state
	items  []string
	cursor int
	keys   *formkey.Keymap
}

func (l *list) Keymap() *formkey.Keymap { return l.keys }

func (l *list) bind() {
	move := func(delta int) {
		l.st.update(func() {
			l.cursor = max(0, min(l.cursor+delta, len(l.items)-1))
		})
	}
	l.keys.HandleNamed("move_down", "j", func(m formkey.Match) { move(m.Count) })
	l.keys.HandleNamed("move_up", "k", func(m formkey.Match) { move(-m.Count) })
	l.keys.HandleNamed("top", "gg", func(formkey.Match) { move(-len(l.items)) })
	l.keys.HandleNamed("bottom", "G", func(formkey.Match) { move(len(l.items)) })
	l.keys.HandleNamed("delete", "dd", func(m formkey.Match) {
		l.st.update(func() {
			for range m.Count {
				if len(l.items) == 0 {
					return
				}
				l.items = append(l.items[:l.cursor], l.items[l.cursor+1:]...)
				l.cursor = max(0, min(l.cursor, len(l.items)-1))
			}
		})
	})
}

type redrawMsg struct{}

type model struct {
	st *state
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg.(type) {
	case tea.QuitMsg:
		return m, tea.Quit
	}
	return m, nil
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	focusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	blurStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57")).Padding(0, 1)
	noticeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	sectionStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

func (m model) View() string {
	st := m.st
	st.mu.Lock()
	defer st.mu.Unlock()

	style := func(i int) lipgloss.Style {
		if st.focus == i {
			return focusStyle
		}
		return blurStyle
	}

	var rows []string
	rows = append(rows, style(0).Render(fmt.Sprintf("%s: %s_", st.name.label, st.name.value)))
	for i, b := range st.boxes {
		mark := "[ ]"
		if b.checked {
			mark = "[x]"
		}
		rows = append(rows, style(i+1).Render(mark+" "+b.label))
	}

	var items strings.Builder
	for i, item := range st.list.items {
		cursor := "   "
		if i == st.list.cursor {
			cursor = " ▸ "
		}
		items.WriteString(cursor + item + "\n")
	}
	rows = append(rows, sectionStyle.BorderForeground(style(len(st.boxes)+1).GetForeground()).Render(strings.TrimRight(items.String(), "\n")))

	status := "ready"
	if st.chord != "" {
		status = "keys: " + st.chord
	}
	if st.count > 0 {
		status = fmt.Sprintf("count: %d  %s", st.count, status)
	}
	footer := statusStyle.Render(status)
	if st.notice != "" {
		footer += " " + noticeStyle.Render(st.notice)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("formkey demo"),
		"",
		lipgloss.JoinVertical(lipgloss.Left, rows...),
		"",
		footer,
		blurStyle.Render("tab/s-tab: focus  j/k 5j C-u j: move  gg/G: ends  dd: delete  q: quit"),
	)
}
