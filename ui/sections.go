package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/yhkl-dev/nibble/domain"
	"github.com/yhkl-dev/nibble/sequencer"
)

// SectionsView lists the key points of the book and jumps to the selected one
type SectionsView struct {
	app       *App
	container *tview.Flex
	table     *tview.Table
	isActive  bool
	sections  []domain.Section
}

// NewSectionsView creates a new sections view
func NewSectionsView(app *App) *SectionsView {
	sv := &SectionsView{
		app: app,
	}

	sv.table = tview.NewTable().
		SetBorders(false).
		SetSelectable(true, false).
		SetFixed(1, 0)

	headerStyle := tcell.StyleDefault.Foreground(tcell.ColorYellow).Attributes(tcell.AttrBold)
	sv.table.SetCell(0, 0, tview.NewTableCell("#").SetStyle(headerStyle))
	sv.table.SetCell(0, 1, tview.NewTableCell("Title").SetStyle(headerStyle))

	sv.table.SetSelectedFunc(func(row, column int) {
		if row < 1 || row > len(sv.sections) {
			return
		}
		sv.app.store.Send(sequencer.StartAudio{Section: sv.sections[row-1]})
		sv.Close()
	})

	sv.container = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(sv.table, 0, 1, true)

	sv.container.SetBorder(true).
		SetTitle(" Key points (ESC/c to close) ").
		SetBorderColor(tcell.NewHexColor(0x00bcd4))

	return sv
}

// Show displays the sections view with the current section selected
func (sv *SectionsView) Show() {
	sv.isActive = true
	st := sv.app.store.State()
	sv.refresh(st)
	if st.Section.Number > 0 {
		sv.table.Select(st.Section.Number, 0)
	}
	sv.app.tviewApp.SetFocus(sv.table)
}

// Close hides the sections view
func (sv *SectionsView) Close() {
	sv.isActive = false
	sv.app.tviewApp.SetRoot(sv.app.rootFlex, true)
}

// IsActive returns whether the sections view is active
func (sv *SectionsView) IsActive() bool {
	return sv.isActive
}

// GetContainer returns the sections view container
func (sv *SectionsView) GetContainer() *tview.Flex {
	return sv.container
}

// refresh redraws the rows, marking the section that is playing
func (sv *SectionsView) refresh(st sequencer.State) {
	for i := sv.table.GetRowCount() - 1; i > 0; i-- {
		sv.table.RemoveRow(i)
	}
	sv.sections = st.Book.Sections

	if len(sv.sections) == 0 {
		sv.table.SetCell(1, 0, tview.NewTableCell("No sections").
			SetAlign(tview.AlignCenter).
			SetExpansion(2).
			SetTextColor(tcell.ColorGray))
		return
	}

	rowStyle := tcell.StyleDefault.Foreground(tcell.ColorWhite)

	for i, section := range sv.sections {
		row := i + 1
		style := rowStyle
		marker := ""
		if section.Number == st.Section.Number {
			style = rowStyle.Foreground(tcell.ColorLightGreen)
			marker = "▶ "
		}

		sv.table.SetCell(row, 0,
			tview.NewTableCell(fmt.Sprintf("%d", section.Number)).
				SetStyle(style).
				SetAlign(tview.AlignRight))

		sv.table.SetCell(row, 1,
			tview.NewTableCell(marker+section.Title).
				SetStyle(style).
				SetExpansion(2))
	}

	sv.table.SetSelectedStyle(tcell.StyleDefault.
		Background(tcell.ColorDarkCyan).
		Foreground(tcell.ColorWhite))
}
