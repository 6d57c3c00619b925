package library

import (
	"context"
	"fmt"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"
	"github.com/yhkl-dev/nibble/domain"
)

// Source provides the book to play
type Source interface {
	Load(ctx context.Context) (domain.Book, error)
}

// Open picks a source for path: the bundled mock book when empty, a remote
// book for http(s) URLs, and a TOML file otherwise
func Open(fs afero.Fs, path string) Source {
	switch {
	case path == "":
		return MockSource{}
	case strings.HasPrefix(path, "http://"), strings.HasPrefix(path, "https://"):
		return NewRemoteSource(path)
	default:
		return NewFileSource(fs, path)
	}
}

// MockSource returns the bundled demo book
type MockSource struct{}

func (MockSource) Load(ctx context.Context) (domain.Book, error) {
	return domain.MockBook(), nil
}

// FileSource reads a book from a TOML file
type FileSource struct {
	fs   afero.Fs
	path string
}

func NewFileSource(fs afero.Fs, path string) *FileSource {
	return &FileSource{fs: fs, path: path}
}

func (s *FileSource) Load(ctx context.Context) (domain.Book, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		return domain.Book{}, fmt.Errorf("failed to read book file: %w", err)
	}
	return parseBook(data)
}

// parseBook decodes a TOML book document and checks its section invariants
func parseBook(data []byte) (domain.Book, error) {
	var book domain.Book
	if err := toml.Unmarshal(data, &book); err != nil {
		return domain.Book{}, fmt.Errorf("%w: %v", domain.ErrInvalidBook, err)
	}
	book.Normalize()
	if err := book.Validate(); err != nil {
		return domain.Book{}, err
	}
	return book, nil
}
