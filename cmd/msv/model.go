package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/daviddao/mobsinet_viewer/internal/config"
	"github.com/daviddao/mobsinet_viewer/internal/datasource"
	"github.com/daviddao/mobsinet_viewer/internal/geometry"
	"github.com/daviddao/mobsinet_viewer/internal/metrics"
	"github.com/daviddao/mobsinet_viewer/internal/poller"
	"github.com/daviddao/mobsinet_viewer/internal/render"
	"github.com/daviddao/mobsinet_viewer/internal/roundlog"
	"github.com/daviddao/mobsinet_viewer/internal/snapshot"
	"github.com/daviddao/mobsinet_viewer/internal/synchronizer"
)

// --- Messages ---

type snapshotMsg struct {
	res poller.Result
}

type frameMsg struct {
	frame string
	round int
}

type queryResultMsg struct {
	res queryResult
	err error
}

type controlDoneMsg struct {
	action string
	err    error
}

type projectsMsg struct {
	names []string
	err   error
}

type configMsg struct {
	project string
	entries []datasource.ConfigEntry
	err     error
}

type configChangedMsg struct {
	cfg config.Config
	err error
}

type exportDoneMsg struct {
	path string
	err  error
}

type tickMsg struct{}

// Control actions reported by controlDoneMsg.
const (
	actionInit       = "init"
	actionRun        = "run"
	actionStop       = "stop"
	actionReevaluate = "reevaluate"
)

// --- Key bindings ---

type keyMap struct {
	Quit      key.Binding
	Init      key.Binding
	Run       key.Binding
	StopSim   key.Binding
	Pause     key.Binding
	Slower    key.Binding
	Faster    key.Binding
	Arrows    key.Binding
	IDs       key.Binding
	Logs      key.Binding
	Left      key.Binding
	Down      key.Binding
	Up        key.Binding
	Right     key.Binding
	ZoomIn    key.Binding
	ZoomOut   key.Binding
	ResetView key.Binding
	Query     key.Binding
	Project   key.Binding
	Config    key.Binding
	Reeval    key.Binding
	ClearLogs key.Binding
	Export    key.Binding
	Labels    key.Binding
	LogsUp    key.Binding
	LogsDown  key.Binding
	Help      key.Binding
	Enter     key.Binding
	Esc       key.Binding
}

var keys = keyMap{
	Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Init:      key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "init project")),
	Run:       key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "run simulation")),
	StopSim:   key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "stop simulation")),
	Pause:     key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "pause/resume polling")),
	Slower:    key.NewBinding(key.WithKeys("["), key.WithHelp("[", "poll slower")),
	Faster:    key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "poll faster")),
	Arrows:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "arrows")),
	IDs:       key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "node ids")),
	Logs:      key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "logs")),
	Left:      key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("h/←", "pan left")),
	Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("j/↓", "pan down")),
	Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("k/↑", "pan up")),
	Right:     key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("l/→", "pan right")),
	ZoomIn:    key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "zoom in")),
	ZoomOut:   key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "zoom out")),
	ResetView: key.NewBinding(key.WithKeys("0"), key.WithHelp("0", "reset view")),
	Query:     key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "query")),
	Project:   key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "next project")),
	Config:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "project config")),
	Reeval:    key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "reevaluate links")),
	ClearLogs: key.NewBinding(key.WithKeys("C"), key.WithHelp("C", "clear logs")),
	Export:    key.NewBinding(key.WithKeys("S"), key.WithHelp("S", "save frame as svg")),
	Labels:    key.NewBinding(key.WithKeys("N"), key.WithHelp("N", "embedding labels")),
	LogsUp:    key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "scroll pane up")),
	LogsDown:  key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "scroll pane down")),
	Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Enter:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "run query")),
	Esc:       key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel/close embedding")),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Init, k.Run, k.Pause, k.Query, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Init, k.Run, k.StopSim, k.Reeval, k.Project, k.Config},
		{k.Pause, k.Slower, k.Faster, k.Query, k.Logs, k.ClearLogs},
		{k.Left, k.Down, k.Up, k.Right, k.ResetView, k.Export},
		{k.ZoomIn, k.ZoomOut, k.Arrows, k.IDs, k.Labels, k.Quit},
	}
}

// Zoom and pan steps, as fractions of the visible window.
const (
	panStep  = 0.1
	zoomStep = 0.8

	minRate = 0.25
	maxRate = 50
)

// --- Model ---

type uiModel struct {
	client *datasource.Client
	sched  *poller.Scheduler
	sync   *synchronizer.Synchronizer
	logs   *roundlog.History
	guard  *render.Guard
	log    *slog.Logger

	cfg      config.Config
	cfgPath  string
	project  string
	projects []string

	// nil until the user pans or zooms.
	layout *geometry.LayoutState
	frame  string

	width     int
	height    int
	logView   viewport.Model
	prompt    textinput.Model
	prompting bool

	showConfig    bool
	configEntries []datasource.ConfigEntry

	// embedding is the last node2vec result, shown in the side pane until
	// closed with esc.
	embedding   *datasource.Embedding
	embedLabels bool
	embedFrame  string

	exportDir string

	result    string
	status    string
	statusErr bool

	help     help.Model
	showHelp bool

	lastUpdate  time.Time
	lastLatency time.Duration
}

func newModel(c *datasource.Client, sched *poller.Scheduler, logs *roundlog.History, cfg config.Config, cfgPath string, log *slog.Logger) uiModel {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	logs.SetVisible(cfg.ShowLogs)

	h := help.New()
	h.ShowAll = true

	ti := textinput.New()
	ti.Prompt = "query> "
	ti.Placeholder = "path 1 7"
	ti.CharLimit = 64

	return uiModel{
		client:    c,
		sched:     sched,
		sync:      synchronizer.New(logs, log),
		logs:      logs,
		guard:     render.NewGuard(log),
		log:       log,
		cfg:       cfg,
		cfgPath:   cfgPath,
		project:   cfg.Project,
		logView:   viewport.New(0, 0),
		prompt:    ti,
		help:      h,
		exportDir: ".",
	}
}

func (m uiModel) Init() tea.Cmd {
	return tea.Batch(
		tickEvery(),
		m.loadProjects(),
	)
}

func tickEvery() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg{}
	})
}

func (m uiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.prompting {
			return m.updatePrompt(msg)
		}
		return m.updateKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.resizePanes()
		return m, m.renderFrame()

	case snapshotMsg:
		return m.handleSnapshot(msg.res)

	case frameMsg:
		m.frame = msg.frame
		m.guard.Leave()

	case queryResultMsg:
		if msg.err != nil {
			m.setError(msg.err.Error())
			return m, nil
		}
		m.result = msg.res.Text
		if msg.res.Embedding != nil {
			m.embedding = msg.res.Embedding
			m.showConfig = false
			m.resizePanes()
			return m, m.renderFrame()
		}
		if msg.res.Path != nil {
			m.sync.Highlight(msg.res.Path)
			m.sched.Trigger()
			return m, m.renderFrame()
		}

	case controlDoneMsg:
		return m.handleControl(msg)

	case projectsMsg:
		if msg.err != nil {
			m.setError("projects: " + msg.err.Error())
			return m, nil
		}
		m.projects = msg.names
		if m.project == "" && len(msg.names) > 0 {
			m.project = msg.names[0]
		}

	case configMsg:
		if msg.err != nil {
			m.setError("config: " + msg.err.Error())
			return m, nil
		}
		if msg.project == m.project {
			m.configEntries = msg.entries
			m.refreshSidePane()
		}

	case configChangedMsg:
		return m.applyConfig(msg)

	case exportDoneMsg:
		if msg.err != nil {
			m.setError("export: " + msg.err.Error())
			return m, nil
		}
		m.setStatus("saved " + msg.path)

	case tickMsg:
		return m, tickEvery()
	}

	return m, nil
}

func (m uiModel) updateKey(msg tea.KeyMsg) (uiModel, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, keys.Init):
		if m.project == "" {
			m.setError("no project selected (press p)")
			return m, nil
		}
		m.setStatus("loading " + m.project + "...")
		project := m.project
		return m, m.control(actionInit, func(ctx context.Context) error {
			return m.client.InitSimulation(ctx, project)
		})

	case key.Matches(msg, keys.Run):
		rounds, rate := m.cfg.Rounds, m.cfg.SimulationRefreshRate
		return m, m.control(actionRun, func(ctx context.Context) error {
			return m.client.RunSimulation(ctx, rounds, rate)
		})

	case key.Matches(msg, keys.StopSim):
		return m, m.control(actionStop, m.client.StopSimulation)

	case key.Matches(msg, keys.Reeval):
		return m, m.control(actionReevaluate, m.client.ReevaluateConnections)

	case key.Matches(msg, keys.Pause):
		if m.sched.Running() {
			m.sched.Stop()
			m.setStatus("polling paused")
			return m, nil
		}
		if err := m.sched.Start(m.cfg.RefreshRateHz); err != nil {
			m.setError(err.Error())
			return m, nil
		}
		m.setStatus(fmt.Sprintf("polling at %.2g Hz", m.cfg.RefreshRateHz))

	case key.Matches(msg, keys.Slower):
		return m.setRate(m.cfg.RefreshRateHz / 2)

	case key.Matches(msg, keys.Faster):
		return m.setRate(m.cfg.RefreshRateHz * 2)

	case key.Matches(msg, keys.Arrows):
		m.cfg.Arrows = !m.cfg.Arrows
		return m, m.renderFrame()

	case key.Matches(msg, keys.IDs):
		m.cfg.ShowIDs = !m.cfg.ShowIDs
		return m, m.renderFrame()

	case key.Matches(msg, keys.Logs):
		m.logs.Toggle()
		m.resizePanes()
		m.refreshSidePane()
		return m, m.renderFrame()

	case key.Matches(msg, keys.ClearLogs):
		m.logs.Reset()
		m.refreshSidePane()
		m.setStatus("logs cleared")

	case key.Matches(msg, keys.Export):
		return m, m.exportFrame()

	case key.Matches(msg, keys.Labels):
		if m.embedding == nil {
			m.setStatus("no embedding, try /node2vec 2")
			return m, nil
		}
		m.embedLabels = !m.embedLabels
		m.resizePanes()

	case key.Matches(msg, keys.Esc):
		if m.embedding != nil {
			m.embedding = nil
			m.embedFrame = ""
			m.resizePanes()
			m.refreshSidePane()
			return m, m.renderFrame()
		}

	case key.Matches(msg, keys.Left):
		return m.moveView(func(l geometry.LayoutState) geometry.LayoutState { return l.Pan(-panStep, 0) })

	case key.Matches(msg, keys.Right):
		return m.moveView(func(l geometry.LayoutState) geometry.LayoutState { return l.Pan(panStep, 0) })

	case key.Matches(msg, keys.Up):
		return m.moveView(func(l geometry.LayoutState) geometry.LayoutState { return l.Pan(0, panStep) })

	case key.Matches(msg, keys.Down):
		return m.moveView(func(l geometry.LayoutState) geometry.LayoutState { return l.Pan(0, -panStep) })

	case key.Matches(msg, keys.ZoomIn):
		return m.moveView(func(l geometry.LayoutState) geometry.LayoutState { return l.Zoom(zoomStep) })

	case key.Matches(msg, keys.ZoomOut):
		return m.moveView(func(l geometry.LayoutState) geometry.LayoutState { return l.Zoom(1 / zoomStep) })

	case key.Matches(msg, keys.ResetView):
		m.layout = nil
		return m, m.renderFrame()

	case key.Matches(msg, keys.Query):
		m.prompting = true
		m.prompt.SetValue("")
		m.resizePanes()
		return m, m.prompt.Focus()

	case key.Matches(msg, keys.Project):
		if len(m.projects) == 0 {
			return m, m.loadProjects()
		}
		m.project = nextProject(m.projects, m.project)
		m.configEntries = nil
		m.setStatus("project " + m.project + " selected, press i to load it")
		if m.showConfig {
			return m, m.loadConfig()
		}

	case key.Matches(msg, keys.Config):
		m.showConfig = !m.showConfig
		m.resizePanes()
		m.refreshSidePane()
		cmds := []tea.Cmd{m.renderFrame()}
		if m.showConfig {
			cmds = append(cmds, m.loadConfig())
		}
		return m, tea.Batch(cmds...)

	case key.Matches(msg, keys.LogsUp), key.Matches(msg, keys.LogsDown):
		var cmd tea.Cmd
		m.logView, cmd = m.logView.Update(msg)
		return m, cmd

	case key.Matches(msg, keys.Help):
		m.showHelp = !m.showHelp
		m.resizePanes()
		return m, m.renderFrame()
	}
	return m, nil
}

func (m uiModel) updatePrompt(msg tea.KeyMsg) (uiModel, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Esc):
		m.closePrompt()
		return m, nil

	case key.Matches(msg, keys.Enter):
		input := m.prompt.Value()
		m.closePrompt()
		q, err := parseQuery(input)
		if err != nil {
			m.setError(err.Error())
			return m, nil
		}
		return m, m.runQuery(q)
	}

	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(msg)
	return m, cmd
}

func (m *uiModel) closePrompt() {
	m.prompting = false
	m.prompt.Blur()
	m.resizePanes()
}

// handleSnapshot feeds one poll result through the synchronizer.
func (m uiModel) handleSnapshot(res poller.Result) (uiModel, tea.Cmd) {
	if res.Err != nil {
		switch {
		case errors.Is(res.Err, snapshot.ErrMalformedSnapshot):
			metrics.SnapshotsTotal.WithLabelValues(metrics.OutcomeMalformed).Inc()
			m.sched.Stop()
			m.setError("malformed snapshot, polling stopped")
		case errors.Is(res.Err, context.Canceled):
		default:
			m.setError("backend unreachable: " + res.Err.Error())
		}
		return m, nil
	}

	d := m.sync.Accept(res.Snapshot)
	if d.Outcome == synchronizer.Malformed {
		m.sched.Stop()
		m.setError("malformed snapshot, polling stopped")
		return m, nil
	}
	if d.StopPolling && m.sched.Running() {
		m.sched.Stop()
		m.setStatus("simulation not running, polling paused")
	}
	if !d.Render {
		return m, nil
	}

	m.lastUpdate = res.Snapshot.FetchedAt
	m.lastLatency = res.Latency
	if d.HighlightsCleared {
		m.result = ""
	}
	m.refreshSidePane()
	return m, m.renderFrame()
}

func (m uiModel) handleControl(msg controlDoneMsg) (uiModel, tea.Cmd) {
	if msg.err != nil {
		m.log.Warn("control request failed", "action", msg.action, "err", msg.err)
		m.setError(msg.action + ": " + msg.err.Error())
		return m, nil
	}
	m.log.Info("control request done", "action", msg.action, "project", m.project)

	switch msg.action {
	case actionInit:
		m.sync.Reset()
		m.result = ""
		m.refreshSidePane()
		m.sched.Trigger()
		m.setStatus("loaded " + m.project)
	case actionRun:
		if !m.sched.Running() {
			if err := m.sched.Start(m.cfg.RefreshRateHz); err != nil {
				m.setError(err.Error())
				return m, nil
			}
		}
		m.setStatus(fmt.Sprintf("simulation running for %d rounds", m.cfg.Rounds))
	case actionStop:
		m.sched.Trigger()
		m.setStatus("simulation stopped")
	case actionReevaluate:
		m.sched.Trigger()
		m.setStatus("connections reevaluated")
	}
	return m, nil
}

func (m uiModel) applyConfig(msg configChangedMsg) (uiModel, tea.Cmd) {
	if msg.err != nil {
		m.setError("config reload: " + msg.err.Error())
		return m, nil
	}
	old := m.cfg
	m.cfg = msg.cfg

	if m.cfg.RefreshRateHz != old.RefreshRateHz && m.sched.Running() {
		if err := m.sched.ChangeRate(m.cfg.RefreshRateHz); err != nil {
			m.setError(err.Error())
			return m, nil
		}
	}
	if m.cfg.ShowLogs != old.ShowLogs {
		m.logs.SetVisible(m.cfg.ShowLogs)
		m.resizePanes()
		m.refreshSidePane()
	}
	if m.cfg.DimX != old.DimX || m.cfg.DimY != old.DimY {
		m.layout = nil
	}

	switch {
	case m.cfg.BaseURL != old.BaseURL:
		m.setStatus("config reloaded, base_url takes effect after restart")
	default:
		m.setStatus("config reloaded")
	}
	m.log.Info("config reloaded", "path", m.cfgPath)
	return m, m.renderFrame()
}

func (m uiModel) setRate(rate float64) (uiModel, tea.Cmd) {
	rate = min(max(rate, minRate), maxRate)
	m.cfg.RefreshRateHz = rate
	if m.sched.Running() {
		if err := m.sched.ChangeRate(rate); err != nil {
			m.setError(err.Error())
			return m, nil
		}
	}
	m.setStatus(fmt.Sprintf("poll rate %.2g Hz", rate))
	return m, nil
}

func (m uiModel) moveView(fn func(geometry.LayoutState) geometry.LayoutState) (uiModel, tea.Cmd) {
	l := geometry.DefaultLayout(m.cfg.DimX, m.cfg.DimY)
	if m.layout != nil {
		l = *m.layout
	}
	l = fn(l)
	m.layout = &l
	return m, m.renderFrame()
}

// renderFrame builds the current frame off the event loop. It returns nil
// when a frame is still being drawn; the guard counts the drop.
func (m uiModel) renderFrame() tea.Cmd {
	if m.width == 0 {
		return nil
	}
	if !m.guard.TryEnter() {
		return nil
	}
	st := m.sync.CurrentState()
	in := m.frameInput(st)
	w, _, h := m.paneSizes()
	canvas := render.Canvas{Width: w, Height: h}
	return func() tea.Msg {
		return frameMsg{frame: canvas.Draw(geometry.Build(in)), round: st.Round}
	}
}

// frameInput is the render input for st in the current view.
func (m uiModel) frameInput(st synchronizer.State) geometry.Input {
	return geometry.Input{
		Nodes:      st.Nodes,
		Links:      st.Links,
		Highlights: st.Highlights,
		Layout:     m.layout,
		DimX:       m.cfg.DimX,
		DimY:       m.cfg.DimY,
		Arrows:     m.cfg.Arrows,
		ShowIDs:    m.cfg.ShowIDs,
	}
}

// exportFrame writes the current round as an SVG file in exportDir, using the
// same view window as the terminal frame.
func (m uiModel) exportFrame() tea.Cmd {
	st := m.sync.CurrentState()
	if st.Round < 0 {
		m.log.Debug("export skipped, no round yet")
		return func() tea.Msg {
			return exportDoneMsg{err: errors.New("no round to export yet")}
		}
	}
	in := m.frameInput(st)
	path := filepath.Join(m.exportDir, exportName(m.project, st.Round))
	log := m.log
	return func() tea.Msg {
		err := writeSVG(path, geometry.Build(in), render.DefaultSVGSize)
		if err == nil {
			log.Info("frame exported", "path", path, "round", st.Round)
		}
		return exportDoneMsg{path: path, err: err}
	}
}

func exportName(project string, round int) string {
	if project == "" {
		return fmt.Sprintf("msv-round-%d.svg", round)
	}
	return fmt.Sprintf("msv-%s-round-%d.svg", project, round)
}

func writeSVG(path string, s geometry.Shapes, size int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := render.SVG(f, s, size, size); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (m uiModel) control(action string, fn func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return controlDoneMsg{action: action, err: fn(context.Background())}
	}
}

func (m uiModel) runQuery(q query) tea.Cmd {
	c := m.client
	return func() tea.Msg {
		res, err := runQuery(context.Background(), c, q)
		return queryResultMsg{res: res, err: err}
	}
}

func (m uiModel) loadProjects() tea.Cmd {
	c := m.client
	return func() tea.Msg {
		names, err := c.ProjectNames(context.Background())
		return projectsMsg{names: names, err: err}
	}
}

func (m uiModel) loadConfig() tea.Cmd {
	c, project := m.client, m.project
	if project == "" {
		return nil
	}
	return func() tea.Msg {
		entries, err := c.GetConfig(context.Background(), project)
		return configMsg{project: project, entries: entries, err: err}
	}
}

// paneSizes returns the graph width, side pane width and content height.
func (m uiModel) paneSizes() (graphW, sideW, contentH int) {
	contentH = m.height - 3 // title + result + status
	if m.prompting {
		contentH--
	}
	if m.showHelp {
		contentH -= 6
	}
	graphW = m.width
	if (m.showConfig || m.embedding != nil || m.logs.Visible()) && m.width >= 60 {
		sideW = m.width / 3
		graphW = m.width - sideW - 3 // separator
	}
	return max(graphW, 1), sideW, max(contentH, 1)
}

func (m *uiModel) resizePanes() {
	_, sideW, contentH := m.paneSizes()
	m.logView.Width = sideW
	m.logView.Height = max(contentH-1, 0) // pane header
	m.drawEmbedding(sideW, contentH-1)
}

// drawEmbedding plots the embedding into the side pane area.
func (m *uiModel) drawEmbedding(w, h int) {
	if m.embedding == nil || w <= 0 || h <= 0 {
		m.embedFrame = ""
		return
	}
	s := geometry.Embedding(m.embedding.Words, m.embedding.Vectors, m.embedLabels)
	m.embedFrame = render.Canvas{Width: w, Height: h}.Draw(s)
}

// refreshSidePane reloads the side pane content.
func (m *uiModel) refreshSidePane() {
	if m.showConfig {
		m.logView.SetContent(formatConfig(m.configEntries))
		return
	}
	m.logView.SetContent(m.logs.Format())
}

func (m *uiModel) setStatus(s string) {
	m.status = s
	m.statusErr = false
}

func (m *uiModel) setError(s string) {
	m.status = s
	m.statusErr = true
}

func nextProject(projects []string, current string) string {
	for i, p := range projects {
		if p == current {
			return projects[(i+1)%len(projects)]
		}
	}
	return projects[0]
}
