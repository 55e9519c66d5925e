package engine

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"video_narrator/assembler/models"
	"video_narrator/assembler/utils"
)

// SegmentProducer assembles one segment's visual. Implemented by
// Assembler, stubbed in tests.
type SegmentProducer interface {
	AssembleSegment(ctx context.Context, idx int, seg models.Segment, audioPath, outPath string) models.SegmentResult
}

// Stitcher is the timeline-level render surface: joining segment
// clips, mixing music and rendering the outro.
type Stitcher interface {
	Concat(ctx context.Context, clips []string, workDir, outPath string) error
	AddMusic(ctx context.Context, videoPath, musicPath string, voiceVolume, musicVolume, fade float64, outPath string) error
	Outro(ctx context.Context, channelName, audioPath string, outPath string) error
}

// Timeline drives a full run: probe narration, assemble segments
// concurrently, then stitch the master video with music and captions.
type Timeline struct {
	Cfg      *models.AssemblyConfig
	Producer SegmentProducer
	Stitcher Stitcher

	AudioDir  string
	WorkDir   string
	OutputDir string

	MusicPath   string
	ChannelName string
	OutroAudio  string

	// Probe measures a media file's duration. Defaults to ffprobe.
	Probe func(path string) (float64, error)
}

func (t *Timeline) probe(path string) (float64, error) {
	if t.Probe != nil {
		return t.Probe(path)
	}
	return utils.GetMediaDuration(path)
}

// narrationPath resolves the audio file for a segment, preferring an
// explicit script entry over the segment_NN convention.
func (t *Timeline) narrationPath(idx int, seg models.Segment) string {
	if seg.AudioFile != "" {
		if filepath.IsAbs(seg.AudioFile) {
			return seg.AudioFile
		}
		return filepath.Join(t.AudioDir, seg.AudioFile)
	}
	return filepath.Join(t.AudioDir, fmt.Sprintf("segment_%02d.mp3", idx))
}

// Run assembles every segment and stitches the master timeline.
func (t *Timeline) Run(ctx context.Context, script *models.Script) (*models.RunReport, error) {
	report := &models.RunReport{
		Title:     script.Title,
		StartedAt: time.Now(),
	}

	if err := utils.EnsureDirectoryExists(t.WorkDir); err != nil {
		return nil, err
	}
	if err := utils.EnsureDirectoryExists(t.OutputDir); err != nil {
		return nil, err
	}

	if files, err := utils.GetNarrationFiles(t.AudioDir); err == nil && len(files) < len(script.Segments) {
		log.Printf("⚠️ Audio dir has %d narration files for %d segments", len(files), len(script.Segments))
	}

	// Measure narration up front so routing and planning see real
	// durations.
	segments := make([]models.Segment, len(script.Segments))
	copy(segments, script.Segments)
	for i := range segments {
		audioPath := t.narrationPath(i, segments[i])
		duration, err := t.probe(audioPath)
		if err != nil {
			log.Printf("⚠️ Segment %d: cannot probe narration %s: %v", i+1, audioPath, err)
			continue
		}
		segments[i].AudioDuration = duration
	}

	log.Printf("🎬 Assembling %d segments...", len(segments))

	results := make([]models.SegmentResult, len(segments))
	maxWorkers := t.Cfg.Settings.MaxWorkers
	if maxWorkers < 1 {
		maxWorkers = 1
	}

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, maxWorkers)

	for i, seg := range segments {
		wg.Add(1)
		go func(idx int, seg models.Segment) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			audioPath := t.narrationPath(idx, seg)
			outPath := filepath.Join(t.WorkDir, fmt.Sprintf("segment_%02d.mp4", idx))
			results[idx] = t.Producer.AssembleSegment(ctx, idx, seg, audioPath, outPath)

			if results[idx].Status == models.StatusDone {
				log.Printf("✓ Segment %d/%d done (%s)", idx+1, len(segments), results[idx].Strategy)
			} else {
				log.Printf("❌ Segment %d/%d failed: %s", idx+1, len(segments), results[idx].Error)
			}
		}(i, seg)
	}

	wg.Wait()

	report.Results = results
	report.Tally()

	clips := orderedClips(results)
	if len(clips) == 0 {
		report.CompletedAt = time.Now()
		return report, ErrNothingProduced
	}
	if report.Failed > 0 {
		log.Printf("⚠️ %d of %d segments failed, continuing with %d", report.Failed, len(segments), report.Produced)
	}

	if t.Cfg.Settings.IncludeOutro {
		outroPath := filepath.Join(t.WorkDir, "outro.mp4")
		if err := t.Stitcher.Outro(ctx, t.ChannelName, t.OutroAudio, outroPath); err != nil {
			log.Printf("⚠️ Outro render failed, skipping: %v", err)
		} else {
			clips = append(clips, outroPath)
		}
	}

	stitched := filepath.Join(t.WorkDir, "timeline.mp4")
	if err := t.Stitcher.Concat(ctx, clips, t.WorkDir, stitched); err != nil {
		report.CompletedAt = time.Now()
		return report, err
	}

	finalPath := filepath.Join(t.OutputDir, "final_video.mp4")
	if t.MusicPath != "" && utils.FileExists(t.MusicPath) {
		err := t.Stitcher.AddMusic(ctx, stitched, t.MusicPath,
			t.Cfg.Settings.VoiceVolume, t.Cfg.Settings.MusicVolume, t.Cfg.Settings.MusicFadeSec, finalPath)
		if err != nil {
			log.Printf("⚠️ Music mix failed, delivering without music: %v", err)
			if err := os.Rename(stitched, finalPath); err != nil {
				report.CompletedAt = time.Now()
				return report, err
			}
		}
	} else {
		if err := os.Rename(stitched, finalPath); err != nil {
			report.CompletedAt = time.Now()
			return report, err
		}
	}
	report.OutputPath = finalPath

	if t.Cfg.Settings.WriteCaptions {
		captionsPath := filepath.Join(t.OutputDir, "captions.srt")
		if err := os.WriteFile(captionsPath, []byte(BuildCaptions(segments, results)), 0644); err != nil {
			log.Printf("⚠️ Caption write failed: %v", err)
		} else {
			report.CaptionsPath = captionsPath
		}
	}

	report.CompletedAt = time.Now()
	log.Printf("✓ Run complete: %d produced, %d failed", report.Produced, report.Failed)
	return report, nil
}

// orderedClips returns the produced segment clips in script order,
// skipping failed segments.
func orderedClips(results []models.SegmentResult) []string {
	var clips []string
	for _, r := range results {
		if r.Status == models.StatusDone && r.OutputPath != "" {
			clips = append(clips, r.OutputPath)
		}
	}
	return clips
}

// BuildCaptions renders SRT captions from segment text and measured
// narration durations. Failed segments are skipped and later start
// times shift up, matching the delivered timeline.
func BuildCaptions(segments []models.Segment, results []models.SegmentResult) string {
	var sb strings.Builder
	current := 0.0
	entry := 1

	for i, seg := range segments {
		if i < len(results) && results[i].Status != models.StatusDone {
			continue
		}
		duration := seg.AudioDuration
		if duration <= 0 {
			// Rough speaking rate estimate when the probe failed.
			duration = float64(len(strings.Fields(seg.Text))) / 2.5
		}

		start := current
		end := current + duration
		current = end

		fmt.Fprintf(&sb, "%d\n%s --> %s\n%s\n\n",
			entry, formatSRTTime(start), formatSRTTime(end), seg.Text)
		entry++
	}

	return sb.String()
}

func formatSRTTime(seconds float64) string {
	h := int(seconds) / 3600
	m := (int(seconds) % 3600) / 60
	s := int(seconds) % 60
	ms := int((seconds - float64(int(seconds))) * 1000)
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}
