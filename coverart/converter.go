package coverart

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/qeesung/image2ascii/convert"
	"github.com/spf13/afero"
)

// imageExts are tried in order when a cover reference has no extension
var imageExts = []string{".png", ".jpg", ".jpeg"}

// Converter renders book covers as ASCII art
type Converter struct {
	httpClient *http.Client
	converter  *convert.ImageConverter
	fs         afero.Fs
	assetsDir  string
	width      int
	height     int
}

// NewConverter creates a converter that resolves bare cover names inside assetsDir
func NewConverter(fs afero.Fs, assetsDir string) *Converter {
	return &Converter{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		converter: convert.NewImageConverter(),
		fs:        fs,
		assetsDir: assetsDir,
		width:     25,
		height:    12,
	}
}

// Convert renders the cover referenced by ref, which may be a URL, a file path,
// or a bundled asset name. The placeholder is returned alongside any error.
func (c *Converter) Convert(ref string) (string, error) {
	if ref == "" {
		return c.Placeholder(), nil
	}

	var (
		img image.Image
		err error
	)
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		img, err = c.fromURL(ref)
	} else {
		img, err = c.fromFile(ref)
	}
	if err != nil {
		return c.Placeholder(), err
	}

	convertOptions := convert.DefaultOptions
	convertOptions.FixedWidth = c.width
	convertOptions.FixedHeight = c.height
	convertOptions.Colored = false // Disable ANSI colors for tview compatibility

	return c.converter.Image2ASCIIString(img, &convertOptions), nil
}

func (c *Converter) fromURL(url string) (image.Image, error) {
	resp, err := c.httpClient.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return decode(resp.Body)
}

func (c *Converter) fromFile(ref string) (image.Image, error) {
	path, err := c.locate(ref)
	if err != nil {
		return nil, err
	}
	f, err := c.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cover: %w", err)
	}
	defer f.Close()
	return decode(f)
}

// locate finds the file for ref, trying the assets directory and known image extensions
func (c *Converter) locate(ref string) (string, error) {
	candidates := []string{ref}
	if !filepath.IsAbs(ref) && c.assetsDir != "" {
		candidates = append(candidates, filepath.Join(c.assetsDir, ref))
	}
	if filepath.Ext(ref) == "" {
		for _, base := range append([]string(nil), candidates...) {
			for _, ext := range imageExts {
				candidates = append(candidates, base+ext)
			}
		}
	}

	for _, path := range candidates {
		if ok, _ := afero.Exists(c.fs, path); ok {
			return path, nil
		}
	}
	return "", fmt.Errorf("cover %q not found", ref)
}

func decode(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode: %w", err)
	}
	return img, nil
}

// Placeholder is shown when no cover art is available
func (c *Converter) Placeholder() string {
	return `[darkgray]┌───────────────────────┐
[darkgray]│                       │
[darkgray]│                       │
[darkgray]│        ♫  ♪  ♫        │
[darkgray]│    No Cover Art       │
[darkgray]│        ♫  ♪  ♫        │
[darkgray]│                       │
[darkgray]│                       │
[darkgray]└───────────────────────┘`
}
