package player

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// Resolver turns a section source reference into something a backend can open.
// In local mode sources are bundled asset names ("audioName1" -> assets/audioName1.mp3);
// in remote mode they must already be URLs or absolute paths.
type Resolver struct {
	fs        afero.Fs
	local     bool
	assetsDir string
}

// NewResolver creates a resolver; local selects bundled asset lookup
func NewResolver(fs afero.Fs, local bool, assetsDir string) *Resolver {
	return &Resolver{fs: fs, local: local, assetsDir: assetsDir}
}

// Resolve returns the playable location of source
func (r *Resolver) Resolve(source string) (string, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return "", fmt.Errorf("%w: empty source", ErrInvalidSource)
	}
	if r.local {
		return r.resolveAsset(source)
	}
	return resolveRemote(source)
}

func (r *Resolver) resolveAsset(name string) (string, error) {
	file := name
	if filepath.Ext(file) == "" {
		file += ".mp3"
	}
	path := filepath.Join(r.assetsDir, file)
	ok, err := afero.Exists(r.fs, path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrInvalidSource, name, err)
	}
	if !ok {
		return "", fmt.Errorf("%w: no bundled asset %s", ErrInvalidSource, path)
	}
	return path, nil
}

func resolveRemote(source string) (string, error) {
	if filepath.IsAbs(source) {
		return source, nil
	}
	u, err := url.Parse(source)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSource, err)
	}
	switch u.Scheme {
	case "http", "https":
		if u.Host == "" {
			return "", fmt.Errorf("%w: missing host in %s", ErrInvalidSource, source)
		}
		return source, nil
	case "file":
		return u.Path, nil
	default:
		return "", fmt.Errorf("%w: unsupported source %s", ErrInvalidSource, source)
	}
}
