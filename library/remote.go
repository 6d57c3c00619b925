package library

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/yhkl-dev/nibble/domain"
)

// maxBookSize bounds the size of a downloaded book document
const maxBookSize = 1 << 20

// RemoteSource fetches a TOML book over HTTP, retrying transient failures
type RemoteSource struct {
	url    string
	client *retryablehttp.Client
}

func NewRemoteSource(url string) *RemoteSource {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.HTTPClient.Timeout = 10 * time.Second
	client.Logger = log.Default()
	return &RemoteSource{url: url, client: client}
}

func (s *RemoteSource) Load(ctx context.Context) (domain.Book, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return domain.Book{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/toml, text/plain")

	resp, err := s.client.Do(req)
	if err != nil {
		return domain.Book{}, fmt.Errorf("failed to fetch book: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.Book{}, fmt.Errorf("unexpected status: %d, response: %s", resp.StatusCode, string(body))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBookSize))
	if err != nil {
		return domain.Book{}, fmt.Errorf("read response failed: %w", err)
	}
	return parseBook(data)
}
