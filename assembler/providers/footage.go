package providers

import (
	"context"
	"fmt"
	"log"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"time"
)

// Channels whose uploads count as authoritative B-roll sources.
var authoritativeChannels = []string{
	"FORMULA 1",
	"Formula 1",
	"F1",
	"Sky Sports F1",
	"Red Bull Racing",
	"Mercedes-AMG PETRONAS F1 Team",
	"Scuderia Ferrari",
	"McLaren",
	"Aston Martin Aramco F1 Team",
	"BWT Alpine F1 Team",
	"Williams Racing",
}

// Title keywords that indicate clean B-roll.
var desirableTitleKeywords = []string{
	"highlights", "onboard", "race edit", "best moments",
	"compilation", "season review", "battle", "overtake",
	"pit stop", "start", "finish", "podium", "top 10",
	"pole lap", "fastest lap", "crash", "incident",
	"qualifying", "sprint", "team radio",
}

// Title keywords that indicate talking heads or unusable content.
var undesirableTitleKeywords = []string{
	"interview", "press conference", "reaction", "reacts",
	"podcast", "explained", "breakdown", "analysis",
	"vlog", "behind the scenes", "documentary", "full race",
	"live stream", "watch along", "my thoughts", "opinion",
	"review", "preview", "prediction",
}

var onboardDrivers = []string{"verstappen", "hamilton", "leclerc", "norris", "alonso"}

// EnhanceQuery steers a raw query toward official B-roll by appending
// sport and content hints it is missing.
func EnhanceQuery(query string) string {
	lower := strings.ToLower(query)

	hasDesirable := false
	for _, kw := range desirableTitleKeywords {
		if strings.Contains(lower, kw) {
			hasDesirable = true
			break
		}
	}

	enhanced := query
	if !strings.Contains(lower, "f1") && !strings.Contains(lower, "formula") {
		enhanced = query + " F1"
	}

	if !hasDesirable {
		wantOnboard := false
		for _, name := range onboardDrivers {
			if strings.Contains(lower, name) {
				wantOnboard = true
				break
			}
		}
		switch {
		case strings.Contains(lower, "race") || strings.Contains(lower, "gp"):
			enhanced = enhanced + " highlights"
		case wantOnboard:
			enhanced = enhanced + " onboard"
		default:
			enhanced = enhanced + " highlights"
		}
	}

	return enhanced
}

// ScoreResult rates a search result by title and channel. Scores start
// at 0.5, gain 0.25 for an authoritative channel, 0.08 per desirable
// title keyword, lose 0.25 per undesirable keyword and clamp to [0, 1].
func ScoreResult(title, channel string) float64 {
	titleLower := strings.ToLower(title)
	channelLower := strings.ToLower(channel)

	score := 0.5

	for _, official := range authoritativeChannels {
		if strings.Contains(channelLower, strings.ToLower(official)) {
			score += 0.25
			break
		}
	}

	for _, good := range desirableTitleKeywords {
		if strings.Contains(titleLower, good) {
			score += 0.08
		}
	}

	for _, bad := range undesirableTitleKeywords {
		if strings.Contains(titleLower, bad) {
			score -= 0.25
		}
	}

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// IsAuthoritativeChannel reports whether a channel name matches one of
// the known official sources.
func IsAuthoritativeChannel(channel string) bool {
	lower := strings.ToLower(channel)
	for _, official := range authoritativeChannels {
		if strings.Contains(lower, strings.ToLower(official)) {
			return true
		}
	}
	return false
}

// FootageBackend searches a video platform through yt-dlp and ranks
// the results by quality score.
type FootageBackend struct {
	Binary       string
	MaxClipSecs  float64
	Interval     time.Duration
	available    bool
	availability sync.Once
}

func NewFootageBackend(maxClipMinutes float64) *FootageBackend {
	return &FootageBackend{
		Binary:      "yt-dlp",
		MaxClipSecs: maxClipMinutes * 60,
	}
}

func (f *FootageBackend) Name() string { return "footage" }

func (f *FootageBackend) Available() bool {
	f.availability.Do(func() {
		_, err := exec.LookPath(f.Binary)
		f.available = err == nil
	})
	return f.available
}

func (f *FootageBackend) MinInterval() time.Duration {
	if f.Interval > 0 {
		return f.Interval
	}
	return 500 * time.Millisecond
}

// Search runs an enhanced platform search and returns scored results
// best first. Results scoring below 0.2 or longer than the clip cap
// are dropped.
func (f *FootageBackend) Search(ctx context.Context, query string, maxResults int) []Candidate {
	enhanced := EnhanceQuery(query)

	// Overfetch so filtering still leaves enough candidates.
	cmd := exec.CommandContext(ctx, f.Binary, "--no-warnings",
		fmt.Sprintf("ytsearch%d:%s", maxResults+3, enhanced),
		"--print", "%(title)s|||%(id)s|||%(channel)s|||%(duration)s",
		"--no-download")

	output, err := cmd.Output()
	if err != nil {
		log.Printf("⚠️ Footage search failed for %q: %v", enhanced, err)
		return nil
	}

	var out []Candidate
	for _, line := range strings.Split(strings.TrimSpace(string(output)), "\n") {
		parts := strings.Split(line, "|||")
		if len(parts) < 4 {
			continue
		}
		title, videoID, channel, duration := parts[0], parts[1], parts[2], parts[3]

		score := ScoreResult(title, channel)
		if score < 0.2 {
			continue
		}
		if secs := parseSeconds(duration); secs > 0 && f.MaxClipSecs > 0 && secs > f.MaxClipSecs {
			continue
		}

		out = append(out, Candidate{
			SourceID:      videoID,
			Locator:       "https://www.youtube.com/watch?v=" + videoID,
			Title:         title,
			Provider:      "footage",
			QualityRank:   score,
			Authoritative: IsAuthoritativeChannel(channel),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].QualityRank > out[j].QualityRank
	})

	if len(out) > maxResults {
		out = out[:maxResults]
	}
	return out
}

func parseSeconds(s string) float64 {
	var v float64
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%f", &v); err != nil {
		return 0
	}
	return v
}
