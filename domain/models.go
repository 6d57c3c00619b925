package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidBook is returned when a book violates the section invariants
var ErrInvalidBook = errors.New("invalid book")

// Section is one playable audio chapter of a Book
type Section struct {
	Title  string `toml:"title"`
	Source string `toml:"source"`
	Number int    `toml:"number"` // 1-based
}

// Book is an ordered list of sections. It is read-only once loaded.
type Book struct {
	Name         string    `toml:"name"`
	Cover        string    `toml:"cover"`
	Sections     []Section `toml:"sections"`
	SectionCount int       `toml:"section_count"`
}

// Section returns the section with the given 1-based number
func (b *Book) Section(number int) (Section, bool) {
	if number < 1 || number > len(b.Sections) {
		return Section{}, false
	}
	return b.Sections[number-1], true
}

// IsEmpty reports whether the book has nothing to play
func (b *Book) IsEmpty() bool {
	return len(b.Sections) == 0
}

// Validate checks that section numbers are contiguous from 1 and match their position
func (b *Book) Validate() error {
	if b.SectionCount != len(b.Sections) {
		return fmt.Errorf("%w: section count %d does not match %d sections",
			ErrInvalidBook, b.SectionCount, len(b.Sections))
	}
	for i, s := range b.Sections {
		if s.Number != i+1 {
			return fmt.Errorf("%w: section at position %d has number %d", ErrInvalidBook, i+1, s.Number)
		}
		if strings.TrimSpace(s.Source) == "" {
			return fmt.Errorf("%w: section %d has no source", ErrInvalidBook, s.Number)
		}
	}
	return nil
}

// Normalize fills in section numbers and the section count when a book file omits them
func (b *Book) Normalize() {
	for i := range b.Sections {
		if b.Sections[i].Number == 0 {
			b.Sections[i].Number = i + 1
		}
	}
	if b.SectionCount == 0 {
		b.SectionCount = len(b.Sections)
	}
}

// MockBook is the bundled two-section demo book
func MockBook() Book {
	return Book{
		Name:  "RamStein",
		Cover: "bookCoverMock",
		Sections: []Section{
			{Title: "Title 1", Source: "audioName1", Number: 1},
			{Title: "Title 2", Source: "audioName2", Number: 2},
		},
		SectionCount: 2,
	}
}
