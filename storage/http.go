package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

var httpClient = &http.Client{Timeout: 30 * time.Second}

// HTTPSource holt die Field-Map von einer URL (z. B. einem Config-Repo).
type HTTPSource struct {
	URL    string
	Client *http.Client
}

func NewHTTPSource(url string) *HTTPSource {
	return &HTTPSource{URL: url, Client: httpClient}
}

func (h *HTTPSource) Name() string {
	return h.URL
}

func (h *HTTPSource) Fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.URL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := h.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("field map request failed with status: %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxFieldMapSize))
}
