package progress

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/Digital-Shane/treeview"
	"github.com/Digital-Shane/youtube-metadata/internal/media"
	"github.com/Digital-Shane/youtube-metadata/internal/tui/theme"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// DefaultScanDepth covers the library root plus channel, season and video
// levels.
const DefaultScanDepth = 4

// ScanProgressModel displays a full screen progress UI while a library folder
// is walked into a tree. Once complete the caller extracts the tree and hands
// it to the metadata refresh.
type ScanProgressModel struct {
	path        string
	cfg         ScanConfig
	totalSeries int

	// scan counters
	seriesScanned int
	videosFound   int
	videosWithID  int
	scanDone      bool

	width  int
	height int

	tree *treeview.Tree[treeview.FileInfo]
	err  error

	progress progress.Model
	msgCh    chan tea.Msg
	rootPath string
	seen     map[string]struct{}
	cancel   context.CancelFunc

	theme theme.Theme
}

type scanProgressMsg struct{}

type scanCompleteMsg struct{}

// ScanConfig carries the knobs used to build the library tree.
type ScanConfig struct {
	MaxDepth int
	// Filter overrides the default media and folder filter.
	Filter func(treeview.FileInfo) bool
}

type treeBuilderFunc func(context.Context, string, bool, ...treeview.Option[treeview.FileInfo]) (*treeview.Tree[treeview.FileInfo], error)

var scanTreeBuilder treeBuilderFunc = treeview.NewTreeFromFileSystem

// NewScanProgressModel creates a model and counts the series folders up
// front so progress can be reported against them.
func NewScanProgressModel(path string, cfg ScanConfig, th theme.Theme) *ScanProgressModel {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = DefaultScanDepth
	}
	entries, _ := os.ReadDir(path)
	total := 0
	for _, entry := range entries {
		if !media.IsHidden(entry.Name()) {
			total++
		}
	}
	gradient := th.ProgressGradient()
	p := progress.New(progress.WithGradient(gradient[0], gradient[1]))
	p.Width = 50
	rootPath, _ := filepath.Abs(path)
	return &ScanProgressModel{
		path:        path,
		cfg:         cfg,
		totalSeries: max(total, 1),
		width:       80,
		height:      12,
		progress:    p,
		msgCh:       make(chan tea.Msg, 64),
		rootPath:    rootPath,
		seen:        make(map[string]struct{}),
		theme:       th,
	}
}

// DefaultScanFilter keeps folders and playable media, skipping hidden files.
func DefaultScanFilter(fi treeview.FileInfo) bool {
	if media.IsHidden(fi.Name()) || strings.HasPrefix(fi.Name(), "._") {
		return false
	}
	if fi.IsDir() {
		return true
	}
	return fi.FileInfo.Mode().IsRegular() && media.IsMedia(fi.Name())
}

// Init kicks off asynchronous tree building.
func (m *ScanProgressModel) Init() tea.Cmd {
	var ctx context.Context
	ctx, m.cancel = context.WithCancel(context.Background())
	go m.buildTreeAsync(ctx)
	return m.waitForMsg()
}

func (m *ScanProgressModel) waitForMsg() tea.Cmd { return func() tea.Msg { return <-m.msgCh } }

func (m *ScanProgressModel) buildTreeAsync(ctx context.Context) {
	filter := m.cfg.Filter
	if filter == nil {
		filter = DefaultScanFilter
	}
	t, err := scanTreeBuilder(ctx, m.path, false,
		treeview.WithMaxDepth[treeview.FileInfo](m.cfg.MaxDepth),
		treeview.WithTraversalCap[treeview.FileInfo](2000000),
		treeview.WithFilterFunc(filter),
		treeview.WithProgressCallback[treeview.FileInfo](func(_ int, n *treeview.Node[treeview.FileInfo]) {
			data := n.Data()
			if data.IsDir() && filepath.Dir(data.Path) == m.rootPath {
				if _, ok := m.seen[data.Path]; !ok {
					m.seen[data.Path] = struct{}{}
					m.seriesScanned++
				}
			}
			if !data.IsDir() && media.IsMedia(data.Name()) {
				m.videosFound++
				if media.ExtractVideoID(data.Name()) != "" {
					m.videosWithID++
				}
			}
			select {
			case m.msgCh <- scanProgressMsg{}:
			default:
			}
		}),
	)
	m.tree = t
	m.err = err
	m.scanDone = true
	m.msgCh <- scanCompleteMsg{}
}

// Update processes Bubble Tea messages.
func (m *ScanProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.progress.Width = msg.Width - 4
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "esc" {
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
	case scanProgressMsg:
		ratio := math.Min(float64(m.seriesScanned)/float64(m.totalSeries), 1)
		cmd := m.progress.SetPercent(ratio)
		return m, tea.Batch(cmd, m.waitForMsg())
	case scanCompleteMsg:
		return m, tea.Quit
	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		return m, cmd
	}
	return m, nil
}

// View renders the progress UI.
func (m *ScanProgressModel) View() string {
	if m.err != nil {
		return fmt.Sprintf("Error: %v\n", m.err)
	}
	percent := min(100*m.seriesScanned/m.totalSeries, 100)

	stats := []string{
		fmt.Sprintf("%s Channel Folders: %d", m.theme.Icon("series"), m.totalSeries),
		fmt.Sprintf("%s Videos Found: %d", m.theme.Icon("video"), m.videosFound),
		fmt.Sprintf("%s Without Video ID: %d", m.theme.Icon("missing"), m.videosFound-m.videosWithID),
		fmt.Sprintf("Progress: %d%%", percent),
	}

	panel := m.theme.PanelStyle()
	panelWidth := max(m.width-panel.GetHorizontalFrameSize(), 0)

	return lipgloss.JoinVertical(lipgloss.Left,
		m.theme.HeaderStyle().Width(m.width).Render("Scanning YouTube Library"),
		m.progress.View(),
		fmt.Sprintf("Folders scanned: %d/%d  Videos found: %d", m.seriesScanned, m.totalSeries, m.videosFound),
		panel.Width(panelWidth).Render(strings.Join(stats, "\n")),
		m.theme.StatusBarStyle().Width(m.width).Render("Scanning... please wait"),
	)
}

// Tree returns the constructed tree.
func (m *ScanProgressModel) Tree() *treeview.Tree[treeview.FileInfo] { return m.tree }

// Done reports whether the scan ran to completion.
func (m *ScanProgressModel) Done() bool { return m.scanDone }

// Err returns any build error.
func (m *ScanProgressModel) Err() error { return m.err }
