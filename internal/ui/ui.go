package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/tophits/internal/models"
	"github.com/desertthunder/tophits/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	SearchView ViewState = iota
	ArtistListView
	TracksView
	LoadingView
)

const (
	titleRandom    = "5 Random Popular Songs"
	titleTopTracks = "Top 5 Tracks"
	noticeFallback = "Nothing in this era reached the popularity floor, so these picks are unfiltered."
)

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	back         ViewState // view esc returns to from TracksView
	engine       tasks.Engine
	width        int
	height       int
	input        textinput.Model
	spinner      spinner.Model
	artistList   list.Model
	trackList    list.Model
	notice       string
	progressChan chan tasks.ProgressUpdate
	doneChan     chan Msg
	progress     tasks.ProgressUpdate
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model backed by engine.
func NewModel(ctx context.Context, engine tasks.Engine) *Model {
	input := textinput.New()
	input.Placeholder = "Artist name"
	input.CharLimit = 100
	input.Focus()

	return &Model{
		ctx:        ctx,
		view:       SearchView,
		engine:     engine,
		input:      input,
		spinner:    spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.ok)),
		artistList: newList(nil, "Artists"),
		trackList:  newList(nil, titleTopTracks),
		help:       help.New(),
		keys:       newKeyMap(),
	}
}

// Init starts the cursor blinking in the search input.
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeLists()
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case SearchView:
			return m.handleSearchKeys(msg)
		case ArtistListView:
			return m.handleArtistListKeys(msg)
		case TracksView:
			return m.handleTracksKeys(msg)
		case LoadingView:
			if key.Matches(msg, m.keys.quit) {
				return m, tea.Quit
			}
			return m, nil
		}

	case spinner.TickMsg:
		if m.view != LoadingView {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateActive(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgArtistLookup:
		data := msg.data.(artistLookupData)
		if data.err != nil {
			return m.fail(data.err, SearchView)
		}
		m.err = nil
		if data.lookup.Match != nil {
			m.back = SearchView
			m.showTracks(fmt.Sprintf("%s: %s", titleTopTracks, data.lookup.Match.Name), "", data.lookup.TopTracks)
			return m, nil
		}
		if len(data.lookup.Artists) == 0 {
			m.err = fmt.Errorf("no artists found for %q", data.lookup.Query)
			m.view = SearchView
			return m, nil
		}
		m.artistList.SetItems(artistItems(data.lookup.Artists))
		m.artistList.Title = fmt.Sprintf("Artists matching %q", data.lookup.Query)
		m.artistList.Select(0)
		m.view = ArtistListView
		return m, nil

	case MsgTopTracks:
		data := msg.data.(topTracksData)
		if data.err != nil {
			return m.fail(data.err, ArtistListView)
		}
		m.err = nil
		m.back = ArtistListView
		m.showTracks(fmt.Sprintf("%s: %s", titleTopTracks, data.artist.Name), "", data.tracks)
		return m, nil

	case MsgProgressUpdate:
		m.progress = msg.data.(tasks.ProgressUpdate)
		return m, m.waitForProgress()

	case MsgRandomHits:
		data := msg.data.(randomHitsData)
		m.progressChan = nil
		m.doneChan = nil
		if data.err != nil {
			return m.fail(data.err, SearchView)
		}
		m.err = nil
		m.back = SearchView
		notice := ""
		if data.hits.Result.Fallback {
			notice = noticeFallback
		}
		m.showTracks(fmt.Sprintf("%s (%d)", titleRandom, data.hits.Era.Year), notice, data.hits.Result.Tracks)
		return m, nil
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case SearchView:
		return m.renderSearch()
	case ArtistListView:
		return m.renderList(m.artistList, m.keys.enter, m.keys.back, m.keys.random, m.keys.quit)
	case TracksView:
		return m.renderTracks()
	case LoadingView:
		return m.renderLoading()
	default:
		return ""
	}
}

func (m *Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.abort):
		return m, tea.Quit
	case key.Matches(msg, m.keys.random):
		return m, m.startRandomHits()
	case key.Matches(msg, m.keys.back):
		m.input.Reset()
		m.err = nil
		return m, nil
	case key.Matches(msg, m.keys.enter):
		name := strings.TrimSpace(m.input.Value())
		if name == "" {
			return m, nil
		}
		return m, m.findArtist(name)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleArtistListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.random):
		return m, m.startRandomHits()
	case key.Matches(msg, m.keys.back):
		m.err = nil
		m.view = SearchView
		return m, nil
	case key.Matches(msg, m.keys.enter):
		if item, ok := m.artistList.SelectedItem().(artistItem); ok {
			return m, m.fetchTopTracks(item.artist)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.artistList, cmd = m.artistList.Update(msg)
	return m, cmd
}

func (m *Model) handleTracksKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.random):
		return m, m.startRandomHits()
	case key.Matches(msg, m.keys.back):
		m.view = m.back
		m.notice = ""
		return m, nil
	}

	var cmd tea.Cmd
	m.trackList, cmd = m.trackList.Update(msg)
	return m, cmd
}

func (m *Model) updateActive(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case SearchView:
		m.input, cmd = m.input.Update(msg)
	case ArtistListView:
		m.artistList, cmd = m.artistList.Update(msg)
	case TracksView:
		m.trackList, cmd = m.trackList.Update(msg)
	}
	return m, cmd
}

func (m *Model) fail(err error, view ViewState) (tea.Model, tea.Cmd) {
	m.err = err
	m.view = view
	return m, nil
}

func (m *Model) showTracks(title, notice string, tracks []models.Track) {
	m.trackList.SetItems(trackItems(tracks))
	m.trackList.Title = title
	m.trackList.Select(0)
	m.notice = notice
	m.view = TracksView
}

func (m *Model) loading(message string) {
	m.err = nil
	m.progress = tasks.ProgressUpdate{Message: message}
	m.view = LoadingView
}

func (m *Model) findArtist(name string) tea.Cmd {
	m.loading(fmt.Sprintf("Searching artists matching %q...", name))
	engine, ctx := m.engine, m.ctx
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		lookup, err := engine.FindArtist(ctx, name, nil)
		return artistLookupMsg(lookup, err)
	})
}

func (m *Model) fetchTopTracks(artist models.Artist) tea.Cmd {
	m.loading(fmt.Sprintf("Fetching top tracks for %s...", artist.Name))
	engine, ctx := m.engine, m.ctx
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		tracks, err := engine.TopTracks(ctx, artist.ID)
		return topTracksMsg(artist, tracks, err)
	})
}

// startRandomHits runs the engine in a goroutine; progress and the final result arrive as messages.
func (m *Model) startRandomHits() tea.Cmd {
	m.loading("Picking an era...")
	m.progressChan = make(chan tasks.ProgressUpdate, 8)
	m.doneChan = make(chan Msg, 1)

	engine, ctx := m.engine, m.ctx
	progress, done := m.progressChan, m.doneChan
	go func() {
		hits, err := engine.RandomHits(ctx, progress)
		close(progress)
		done <- randomHitsMsg(hits, err)
	}()

	return tea.Batch(m.spinner.Tick, m.waitForProgress())
}

func (m *Model) waitForProgress() tea.Cmd {
	progress, done := m.progressChan, m.doneChan
	if progress == nil {
		return nil
	}
	return func() tea.Msg {
		if update, ok := <-progress; ok {
			return progressUpdateMsg(update)
		}
		return <-done
	}
}

func (m *Model) resizeLists() {
	w, h := max(m.width-4, 0), max(m.height-8, 0)
	m.artistList.SetSize(w, h)
	m.trackList.SetSize(w, h)
	m.input.Width = max(m.width-6, 20)
}

func (m *Model) renderSearch() string {
	title := styles.title.Render("tophits")
	body := fmt.Sprintf("%s\n\n%s", title, m.input.View())
	if m.err != nil {
		body = fmt.Sprintf("%s\n\n%s", body, styles.err.Render(fmt.Sprintf("Error: %v", m.err)))
	}
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.enter, m.keys.random, m.keys.abort})
	return fmt.Sprintf("%s\n\n%s", body, helpView)
}

func (m *Model) renderList(l list.Model, keys ...key.Binding) string {
	body := l.View()
	if m.err != nil {
		body = fmt.Sprintf("%s\n\n%s", body, styles.err.Render(fmt.Sprintf("Error: %v", m.err)))
	}
	return fmt.Sprintf("%s\n\n%s", body, m.help.ShortHelpView(keys))
}

func (m *Model) renderTracks() string {
	if len(m.trackList.Items()) == 0 {
		title := styles.title.Render(m.trackList.Title)
		helpView := m.help.ShortHelpView([]key.Binding{m.keys.back, m.keys.random, m.keys.quit})
		return fmt.Sprintf("%s\n%s\n\n%s", title, styles.warn.Render("No results found."), helpView)
	}

	out := m.renderList(m.trackList, m.keys.back, m.keys.random, m.keys.quit)
	if m.notice != "" {
		out = fmt.Sprintf("%s\n\n%s", styles.warn.Render(m.notice), out)
	}
	return out
}

func (m *Model) renderLoading() string {
	line := m.progress.Message
	if m.progress.Total > 0 {
		line = fmt.Sprintf("[%d/%d] %s", m.progress.Step, m.progress.Total, line)
	}
	return fmt.Sprintf("%s\n\n%s %s", styles.title.Render("tophits"), m.spinner.View(), line)
}

func newList(items []list.Item, title string) list.Model {
	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	return l
}
