package ui

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/yhkl-dev/nibble/sequencer"
)

// createHomepage sets up the single player screen
func (a *App) createHomepage() {
	newText := func() *tview.TextView {
		tv := tview.NewTextView().
			SetDynamicColors(true).
			SetScrollable(false).
			SetWrap(true)
		tv.SetBorder(false)
		return tv
	}

	a.coverView = newText()
	a.coverView.SetText(a.coverConverter.Placeholder())
	a.infoView = newText()
	a.timelineView = newText()
	a.timeView = newText()
	a.controlsView = newText()
	a.statusBar = newText()

	a.helpView = NewHelpView(a)
	a.sectionsView = NewSectionsView(a)

	a.setupKeyBindings()
	a.setupInputHandlers()

	player := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.infoView, 5, 0, false).
		AddItem(a.timelineView, 1, 0, false).
		AddItem(a.timeView, 1, 0, false).
		AddItem(nil, 1, 0, false).
		AddItem(a.controlsView, 2, 0, false).
		AddItem(a.statusBar, 0, 1, false)

	mainLayout := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(a.coverView, 27, 0, false).
		AddItem(player, 0, 1, true)

	a.rootFlex = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(mainLayout, 0, 1, true)
	a.rootFlex.SetBorder(true).SetTitle(" nibble ")

	a.tviewApp.SetRoot(a.rootFlex, true)
}

// setupKeyBindings maps keys to sequencer actions
func (a *App) setupKeyBindings() {
	send := func(name string, action sequencer.Action) KeyAction {
		return KeyAction{name: name, handler: func() { a.store.Send(action) }}
	}

	a.keys.RegisterKeyBinding(send("togglePause", sequencer.PauseTapped{}), nil, []rune{' '})
	a.keys.RegisterKeyBinding(send("forward", sequencer.GoForwardTapped{}), []tcell.Key{tcell.KeyRight}, []rune{'l'})
	a.keys.RegisterKeyBinding(send("backward", sequencer.GoBackwardTapped{}), []tcell.Key{tcell.KeyLeft}, []rune{'h'})
	a.keys.RegisterKeyBinding(send("next", sequencer.NextTapped{}), []tcell.Key{tcell.KeyPgDn}, []rune{'n', 'L'})
	a.keys.RegisterKeyBinding(send("previous", sequencer.PreviousTapped{}), []tcell.Key{tcell.KeyPgUp}, []rune{'p', 'H'})
	a.keys.RegisterKeyBinding(send("speed", sequencer.SpeedTapped{}), nil, []rune{'s'})
	a.keys.RegisterSequence(send("restart", sequencer.SeekTo{Seconds: 0}), "gg")

	a.keys.RegisterKeyBinding(KeyAction{name: "sound", handler: func() {
		a.store.Send(sequencer.SetSoundMode{On: !a.store.State().IsSoundOn})
	}}, nil, []rune{'m'})
	a.keys.RegisterKeyBinding(KeyAction{name: "timeline", handler: func() {
		a.store.Send(sequencer.TimelineValueChanged{Editing: true})
	}}, nil, []rune{'t'})
	a.keys.RegisterKeyBinding(KeyAction{name: "sections", handler: a.showSections}, nil, []rune{'c'})
	a.keys.RegisterKeyBinding(KeyAction{name: "help", handler: a.showHelp}, nil, []rune{'?'})
	a.keys.RegisterKeyBinding(KeyAction{name: "quit", handler: a.quit},
		[]tcell.Key{tcell.KeyEsc, tcell.KeyCtrlC}, []rune{'q'})
}

// setupInputHandlers routes keys to modal views, the timeline editor, or the bindings
func (a *App) setupInputHandlers() {
	a.tviewApp.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		// Handle modal views first
		if a.helpView.IsActive() {
			if event.Key() == tcell.KeyEscape || event.Rune() == '?' {
				a.helpView.Close()
				return nil
			}
			return event
		}
		if a.sectionsView.IsActive() {
			if event.Key() == tcell.KeyEscape || event.Rune() == 'c' {
				a.sectionsView.Close()
				return nil
			}
			return event
		}

		if event.Key() == tcell.KeyCtrlC {
			a.quit()
			return nil
		}

		if st := a.store.State(); st.IsTimelineEditing {
			a.handleTimelineKey(event, st)
			return nil
		}

		if a.keys.HandleKey(event) {
			return nil
		}
		return event
	})
}

// handleTimelineKey moves the timeline cursor while dragging; Enter seeks and ESC cancels
func (a *App) handleTimelineKey(event *tcell.EventKey, st sequencer.State) {
	switch {
	case event.Key() == tcell.KeyRight || event.Rune() == 'l':
		a.store.Send(sequencer.UpdateTimelineTime{Seconds: clampTimeline(st.TimelineTime+timelineStep, st.Duration)})
	case event.Key() == tcell.KeyLeft || event.Rune() == 'h':
		a.store.Send(sequencer.UpdateTimelineTime{Seconds: clampTimeline(st.TimelineTime-timelineStep, st.Duration)})
	case event.Key() == tcell.KeyEnter || event.Rune() == 't':
		a.store.Send(sequencer.TimelineValueChanged{Editing: false})
	case event.Key() == tcell.KeyEscape:
		a.store.Send(sequencer.TimelineEditingCanceled{})
	}
}

func clampTimeline(seconds, duration float64) float64 {
	if seconds < 0 {
		return 0
	}
	if duration > 0 && seconds > duration {
		return duration
	}
	return seconds
}

// showHelp displays the help modal view
func (a *App) showHelp() {
	a.showModal(a.helpView.GetContainer(), 60, 24)
	a.helpView.Show()
}

// showSections displays the key point list
func (a *App) showSections() {
	a.showModal(a.sectionsView.GetContainer(), 60, 16)
	a.sectionsView.Show()
}

func (a *App) showModal(content tview.Primitive, width, height int) {
	a.keys.ResetPending()
	modal := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().
			SetDirection(tview.FlexColumn).
			AddItem(nil, 0, 1, false).
			AddItem(content, width, 0, true).
			AddItem(nil, 0, 1, false), height, 0, true).
		AddItem(nil, 0, 1, false)

	a.tviewApp.SetRoot(modal, true)
}
