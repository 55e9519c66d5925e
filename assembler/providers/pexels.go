package providers

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"
)

// PexelsBackend searches the Pexels photo API for landscape stills.
type PexelsBackend struct {
	APIKey   string
	Client   *http.Client
	Interval time.Duration
}

func NewPexelsBackend(apiKey string) *PexelsBackend {
	return &PexelsBackend{
		APIKey: apiKey,
		Client: &http.Client{Timeout: 15 * time.Second},
	}
}

func (p *PexelsBackend) Name() string { return "pexels" }

func (p *PexelsBackend) Available() bool { return p.APIKey != "" }

func (p *PexelsBackend) MinInterval() time.Duration {
	if p.Interval > 0 {
		return p.Interval
	}
	return 500 * time.Millisecond
}

func (p *PexelsBackend) Search(ctx context.Context, query string, maxResults int) []Candidate {
	searchURL := fmt.Sprintf("https://api.pexels.com/v1/search?query=%s&per_page=%d&orientation=landscape",
		url.QueryEscape(query), maxResults)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("Authorization", p.APIKey)
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.Client.Do(req)
	if err != nil {
		log.Printf("⚠️ Pexels search failed: %v", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("⚠️ Pexels returned status %d", resp.StatusCode)
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil
	}

	var out []Candidate
	for _, photo := range gjson.GetBytes(body, "photos").Array() {
		locator := photo.Get("src.large2x").String()
		if locator == "" {
			continue
		}
		out = append(out, Candidate{
			SourceID: photo.Get("id").String(),
			Locator:  locator,
			Title:    photo.Get("alt").String(),
			Provider: "pexels",
		})
	}
	return out
}
