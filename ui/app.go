package ui

import (
	"context"
	"log"
	"sync"

	"github.com/rivo/tview"
	"github.com/yhkl-dev/nibble/config"
	"github.com/yhkl-dev/nibble/coverart"
	"github.com/yhkl-dev/nibble/sequencer"
)

// timelineStep is how far one arrow press moves the timeline while editing
const timelineStep = 5.0

// Store is the state container the screen renders and sends actions to
type Store interface {
	Send(a sequencer.Action)
	State() sequencer.State
	Subscribe(fn func(sequencer.State))
}

// App represents the TUI application
type App struct {
	tviewApp       *tview.Application
	cfg            *config.Config
	store          Store
	ctx            context.Context
	onQuit         func()
	coverConverter *coverart.Converter
	keys           *KeyBindingManager

	rootFlex     *tview.Flex
	coverView    *tview.TextView
	infoView     *tview.TextView
	timelineView *tview.TextView
	timeView     *tview.TextView
	controlsView *tview.TextView
	statusBar    *tview.TextView
	helpView     *HelpView
	sectionsView *SectionsView

	mu      sync.Mutex
	latest  sequencer.State
	refresh chan struct{}
}

// NewApp creates a new TUI application with dependency injection.
// onQuit is called when the user asks to exit.
func NewApp(ctx context.Context, cfg *config.Config, store Store, covers *coverart.Converter, onQuit func()) *App {
	return &App{
		tviewApp:       tview.NewApplication(),
		cfg:            cfg,
		store:          store,
		ctx:            ctx,
		onQuit:         onQuit,
		coverConverter: covers,
		keys:           NewKeyBindingManager(),
		latest:         store.State(),
		refresh:        make(chan struct{}, 1),
	}
}

// Run builds the screen and blocks until the application stops
func (a *App) Run() error {
	a.createHomepage()
	a.store.Subscribe(a.onState)
	a.onState(a.store.State())
	a.render(a.snapshot())

	go a.renderLoop()
	go a.loadCoverArt()

	log.Println("start nibble...")
	return a.tviewApp.Run()
}

// Stop stops the application
func (a *App) Stop() {
	if a.tviewApp != nil {
		a.tviewApp.Stop()
	}
}

// onState records the newest state and wakes the render loop without blocking the store
func (a *App) onState(st sequencer.State) {
	a.mu.Lock()
	a.latest = st
	a.mu.Unlock()

	select {
	case a.refresh <- struct{}{}:
	default:
	}
}

func (a *App) snapshot() sequencer.State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.latest
}

func (a *App) renderLoop() {
	for {
		select {
		case <-a.refresh:
			st := a.snapshot()
			a.tviewApp.QueueUpdateDraw(func() {
				a.render(st)
			})
		case <-a.ctx.Done():
			return
		}
	}
}

// render draws st; it must run on the tview goroutine once the app is running
func (a *App) render(st sequencer.State) {
	a.infoView.SetText(FormatSectionInfo(st))

	width := a.cfg.UI.ProgressBarWidth
	if _, _, w, _ := a.timelineView.GetInnerRect(); w > 0 && w < width {
		width = w
	}
	a.timelineView.SetText(CreateProgressBar(st.Progress(), width, st.IsTimelineEditing))
	a.timeView.SetText(CreateProgressText(st))
	a.controlsView.SetText(FormatControls(st))
	a.statusBar.SetText(FormatError(st))

	if a.sectionsView.IsActive() {
		a.sectionsView.refresh(st)
	}
}

// loadCoverArt renders the book cover once; it never changes while the book is open
func (a *App) loadCoverArt() {
	cover := a.snapshot().Book.Cover
	ascii, err := a.coverConverter.Convert(cover)
	if err != nil {
		log.Printf("Failed to load cover art: %v", err)
	} else {
		ascii = tview.Escape(ascii)
	}

	a.tviewApp.QueueUpdateDraw(func() {
		a.coverView.SetText(ascii)
	})
}

// quit stops the screen and notifies the owner
func (a *App) quit() {
	a.tviewApp.Stop()
	if a.onQuit != nil {
		a.onQuit()
	}
}
