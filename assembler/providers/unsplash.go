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

// UnsplashBackend searches the Unsplash photo API. It ranks below
// Pexels because Unsplash has less motorsport coverage.
type UnsplashBackend struct {
	AccessKey string
	Client    *http.Client
	Interval  time.Duration
}

func NewUnsplashBackend(accessKey string) *UnsplashBackend {
	return &UnsplashBackend{
		AccessKey: accessKey,
		Client:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (u *UnsplashBackend) Name() string { return "unsplash" }

func (u *UnsplashBackend) Available() bool { return u.AccessKey != "" }

func (u *UnsplashBackend) MinInterval() time.Duration {
	if u.Interval > 0 {
		return u.Interval
	}
	return 500 * time.Millisecond
}

func (u *UnsplashBackend) Search(ctx context.Context, query string, maxResults int) []Candidate {
	searchURL := fmt.Sprintf("https://api.unsplash.com/search/photos?query=%s&per_page=%d&orientation=landscape",
		url.QueryEscape(query), maxResults)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("Authorization", "Client-ID "+u.AccessKey)
	req.Header.Set("User-Agent", userAgent)

	resp, err := u.Client.Do(req)
	if err != nil {
		log.Printf("⚠️ Unsplash search failed: %v", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("⚠️ Unsplash returned status %d", resp.StatusCode)
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil
	}

	var out []Candidate
	for _, photo := range gjson.GetBytes(body, "results").Array() {
		locator := photo.Get("urls.regular").String()
		if locator == "" {
			continue
		}
		out = append(out, Candidate{
			SourceID: photo.Get("id").String(),
			Locator:  locator,
			Title:    photo.Get("description").String(),
			Provider: "unsplash",
		})
	}
	return out
}
