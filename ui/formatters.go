package ui

import (
	"fmt"
	"strings"

	"github.com/yhkl-dev/nibble/sequencer"
)

// FormatKeyPoint renders the section position, e.g. "KEY POINT 1 OF 2"
func FormatKeyPoint(number, count int) string {
	return fmt.Sprintf("KEY POINT %d OF %d", number, count)
}

// FormatSectionInfo creates the header block for the current section
func FormatSectionInfo(st sequencer.State) string {
	if st.Section.Number == 0 {
		return CreateWelcomeMessage(st.Book.Name, st.Book.SectionCount)
	}

	status := "[lightgreen]" + st.Section.Title
	switch {
	case st.IsLoading:
		status = fmt.Sprintf("[yellow]%s [darkgray](Loading...)", st.Section.Title)
	case st.LastError != "":
		status = fmt.Sprintf("[red]%s [darkgray](Failed)", st.Section.Title)
	case st.IsPaused:
		status = fmt.Sprintf("[yellow]%s [darkgray](PAUSED)", st.Section.Title)
	}

	return fmt.Sprintf(`
[gray]%s
[white::b]%s[-:-:-]

[darkgray]%s`,
		FormatKeyPoint(st.Section.Number, st.Book.SectionCount), status, st.Book.Name)
}

// CreateProgressBar creates a visual progress bar; the cursor is highlighted while dragging
func CreateProgressBar(progress float64, width int, editing bool) string {
	if progress < 0 {
		progress = 0
	} else if progress > 1 {
		progress = 1
	}
	filledWidth := int(progress * float64(width))
	fill := "[lightgreen]▓"
	if editing {
		fill = "[yellow]▓"
	}

	var bar strings.Builder
	for i := 0; i < width; i++ {
		if i < filledWidth {
			bar.WriteString(fill)
		} else {
			bar.WriteString("[darkgray]░")
		}
	}
	return bar.String()
}

// CreateProgressText creates the elapsed/total line under the timeline
func CreateProgressText(st sequencer.State) string {
	elapsed := st.CurrentTimeLabel()
	if st.IsTimelineEditing {
		elapsed = "[yellow]" + st.TimelineLabel()
	}
	return fmt.Sprintf("[white]%s[darkgray] / %s", elapsed, st.DurationLabel())
}

// FormatControls renders the transport row with the current play state, speed and sound mode
func FormatControls(st sequencer.State) string {
	playPause := "[lightgreen]⏸ pause"
	if st.IsPaused {
		playPause = "[yellow]▶ play"
	}
	sound := "[lightgreen]♪ on"
	if !st.IsSoundOn {
		sound = "[red]♪ off"
	}
	return fmt.Sprintf(
		"[darkgray]⏮ [white]p[darkgray]  ↺5 [white]←[darkgray]  %s[darkgray]  ↻10 [white]→[darkgray]  ⏭ [white]n[darkgray]    speed [white]%s[darkgray]    sound %s",
		playPause, st.Speed, sound)
}

// FormatError renders the last load error, or nothing
func FormatError(st sequencer.State) string {
	if st.LastError == "" {
		return ""
	}
	return "[red]" + st.LastError
}

// CreateWelcomeMessage is shown before a section is chosen or when the book is empty
func CreateWelcomeMessage(bookName string, sections int) string {
	if sections == 0 {
		return `
[lightgreen] Welcome to nibble
[darkgray] This book has no sections to play.

[gray]  ESC to exit`
	}
	return fmt.Sprintf(`
[lightgreen] Welcome to nibble
[darkgray][book] %s
[darkgray]// %d key points`, bookName, sections)
}
