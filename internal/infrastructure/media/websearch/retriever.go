// Package websearch fetches topical images from an image-search endpoint.
package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/okolin/scribe/internal/core/domain"
)

const maxImageBytes = 8 << 20

type Retriever struct {
	searchURL  string
	httpClient *http.Client
}

func New(searchURL string) *Retriever {
	return &Retriever{
		searchURL:  searchURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Retrieve searches for the topic and downloads the first result. An empty
// result set or an unreachable image surfaces as domain.ErrImageNotFound so
// the acquisition chain moves on.
func (r *Retriever) Retrieve(ctx context.Context, topic string) ([]byte, error) {
	if r.searchURL == "" {
		return nil, domain.WrapError(domain.ErrImageNotFound, "search image", fmt.Errorf("image search endpoint not configured"))
	}

	imageURL, err := r.search(ctx, topic)
	if err != nil {
		return nil, err
	}
	return r.download(ctx, imageURL)
}

func (r *Retriever) search(ctx context.Context, topic string) (string, error) {
	endpoint := fmt.Sprintf("%s?q=%s", r.searchURL, url.QueryEscape(topic))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("create search request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("image search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("image search status: %s", resp.Status)
	}

	var payload struct {
		Results []struct {
			URL string `json:"url"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode search response: %w", err)
	}
	if len(payload.Results) == 0 || payload.Results[0].URL == "" {
		return "", domain.WrapError(domain.ErrImageNotFound, "search image", fmt.Errorf("no results for %q", topic))
	}
	return payload.Results[0].URL, nil
}

func (r *Retriever) download(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create download request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("image download request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, domain.WrapError(domain.ErrImageNotFound, "download image",
			fmt.Errorf("status %s for %s", resp.Status, imageURL))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("read image body: %w", err)
	}
	if len(data) == 0 {
		return nil, domain.WrapError(domain.ErrImageNotFound, "download image", fmt.Errorf("empty body from %s", imageURL))
	}
	return data, nil
}
