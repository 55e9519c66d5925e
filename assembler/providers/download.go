package providers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"time"

	"video_narrator/assembler/utils"
)

const (
	minImageBytes = 1000
	minVideoBytes = 10000
)

// MediaDownloader fetches accepted candidates to local files. HTTP
// sources are retried, platform videos go through yt-dlp.
type MediaDownloader struct {
	Client *http.Client
	Retry  RetryPolicy
	Binary string
}

func NewMediaDownloader() *MediaDownloader {
	return &MediaDownloader{
		Client: &http.Client{Timeout: 60 * time.Second},
		Retry:  RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second},
		Binary: "yt-dlp",
	}
}

// Fetch downloads one candidate to dest, routing by provider.
func (d *MediaDownloader) Fetch(ctx context.Context, c Candidate, dest string) error {
	if c.Provider == "footage" {
		return d.fetchClip(ctx, c.Locator, dest)
	}
	return d.FetchURL(ctx, c.Locator, dest)
}

// FetchURL downloads an HTTP resource to dest with retries, rejecting
// suspiciously small bodies.
func (d *MediaDownloader) FetchURL(ctx context.Context, rawURL, dest string) error {
	return d.Retry.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return err
		}
		req.Header.Set("User-Agent", userAgent)

		resp, err := d.Client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("download returned status %d", resp.StatusCode)
		}

		out, err := os.Create(dest)
		if err != nil {
			return err
		}
		n, err := io.Copy(out, resp.Body)
		out.Close()
		if err != nil {
			os.Remove(dest)
			return err
		}
		if n < minImageBytes {
			os.Remove(dest)
			return fmt.Errorf("download too small: %d bytes", n)
		}
		return nil
	})
}

// fetchClip downloads a platform video through yt-dlp, capped at 1080p
// and merged to mp4.
func (d *MediaDownloader) fetchClip(ctx context.Context, videoURL, dest string) error {
	cmd := exec.CommandContext(ctx, d.Binary, "--no-warnings", "--no-playlist",
		"-f", "bestvideo[height<=1080][ext=mp4]+bestaudio[ext=m4a]/best[height<=1080][ext=mp4]",
		"--merge-output-format", "mp4",
		"-o", dest,
		videoURL)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("clip download failed: %v: %s", err, truncate(string(output), 200))
	}

	size, err := utils.GetFileSize(dest)
	if err != nil {
		return fmt.Errorf("clip download produced no file: %v", err)
	}
	if size < minVideoBytes {
		os.Remove(dest)
		return fmt.Errorf("clip download too small: %d bytes", size)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
