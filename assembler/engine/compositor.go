package engine

import (
	"context"
	"fmt"
	"log"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"video_narrator/assembler/models"
	"video_narrator/assembler/utils"
)

// Compositor turns acquired sources into rendered segment clips whose
// duration matches the narration audio exactly.
type Compositor struct {
	Width         int
	Height        int
	FPS           int
	MaxShot       float64
	MinShot       float64
	Crossfade     float64
	ZoomIntensity float64
	AudioBitrate  string
	QuoteFontFile string
	RenderTimeout time.Duration
}

func NewCompositor(cfg *models.AssemblyConfig) *Compositor {
	return &Compositor{
		Width:         cfg.Settings.Width,
		Height:        cfg.Settings.Height,
		FPS:           cfg.Settings.FPS,
		MaxShot:       cfg.Settings.MaxShotSeconds,
		MinShot:       cfg.Settings.MinShotSeconds,
		Crossfade:     cfg.Settings.CrossfadeSeconds,
		ZoomIntensity: cfg.Settings.ZoomIntensity,
		AudioBitrate:  "192k",
		QuoteFontFile: cfg.Settings.QuoteFontFile,
		RenderTimeout: time.Duration(cfg.Settings.RenderTimeoutSec) * time.Second,
	}
}

// renderContext bounds one ffmpeg invocation so a hung render cannot
// stall the whole run.
func (c *Compositor) renderContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.RenderTimeout > 0 {
		return context.WithTimeout(ctx, c.RenderTimeout)
	}
	return context.WithCancel(ctx)
}

func (c *Compositor) ffmpeg(ctx context.Context, args ...string) error {
	rctx, cancel := c.renderContext(ctx)
	defer cancel()

	cmd := exec.CommandContext(rctx, "ffmpeg", append([]string{"-y"}, args...)...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		log.Printf("FFmpeg error output: %s", string(output))
		return fmt.Errorf("%w: %v", ErrCompositionFailed, err)
	}
	return nil
}

// PlanShots cuts a narration span into shots. Spans longer than the
// maximum shot length get several shots, at least two, so pacing never
// drags.
func (c *Compositor) PlanShots(target float64) CompositionPlan {
	n := int(math.Ceil(target / c.MaxShot))
	if n < 2 {
		n = 2
	}
	return c.plan(target, n)
}

// PlanFor distributes target seconds over at most the requested shot
// count. The count shrinks when it would cut shots under the minimum
// shot length, so an over-acquired segment is not pacing-chopped.
func (c *Compositor) PlanFor(target float64, shots int) CompositionPlan {
	if c.MinShot > 0 {
		if limit := int(target / c.MinShot); limit < shots {
			shots = limit
		}
	}
	return c.plan(target, shots)
}

// plan distributes target seconds over an exact shot count. The final
// shot absorbs the remainder so durations always sum to target. A
// single shot plan has no transitions.
func (c *Compositor) plan(target float64, shots int) CompositionPlan {
	if shots <= 1 {
		return CompositionPlan{
			TargetDuration: target,
			Shots:          []Shot{{Duration: target, Motion: MotionZoomIn}},
		}
	}

	per := target / float64(shots)
	plan := CompositionPlan{
		TargetDuration:     target,
		TransitionDuration: math.Min(c.Crossfade, per/4),
	}
	for i := 0; i < shots; i++ {
		d := per
		if i == shots-1 {
			d = target - per*float64(shots-1)
		}
		plan.Shots = append(plan.Shots, Shot{
			Duration: d,
			Motion:   MotionEffect(i % 4),
		})
	}
	return plan
}

// transitionOffsets computes xfade start offsets. Each transition
// begins one transition length before its left-hand shot ends.
func transitionOffsets(plan CompositionPlan) []float64 {
	if len(plan.Shots) < 2 {
		return nil
	}
	offsets := make([]float64, 0, len(plan.Shots)-1)
	elapsed := 0.0
	for i := 0; i < len(plan.Shots)-1; i++ {
		elapsed += plan.Shots[i].Duration
		offsets = append(offsets, elapsed-float64(i+1)*plan.TransitionDuration)
	}
	return offsets
}

// kenBurnsFilter builds the virtual camera move for one still image.
func (c *Compositor) kenBurnsFilter(duration float64, motion MotionEffect) string {
	totalFrames := int(duration * float64(c.FPS))

	type kbParams struct {
		startZ, endZ float64
		xShift       int
	}
	var p kbParams
	switch motion {
	case MotionZoomIn:
		p = kbParams{1.0, 1.0 + 0.15*c.ZoomIntensity, 0}
	case MotionZoomOut:
		p = kbParams{1.0 + 0.15*c.ZoomIntensity, 1.0, 0}
	case MotionPanLeft:
		p = kbParams{1.1, 1.1, 50}
	case MotionPanRight:
		p = kbParams{1.1, 1.1, -50}
	}

	zExpr := fmt.Sprintf("%.3f+(on/%d)*(%.3f-%.3f)", p.startZ, totalFrames, p.endZ, p.startZ)
	xExpr := "iw/2-(iw/zoom/2)"
	if p.xShift != 0 {
		xExpr = fmt.Sprintf("iw/2-(iw/zoom/2)+(%d-(on/%d)*%d)", p.xShift, totalFrames, p.xShift*2)
	}

	return fmt.Sprintf("zoompan=z='%s':x='%s':y='ih/2-(ih/zoom/2)':d=%d:s=%dx%d:fps=%d,format=yuv420p",
		zExpr, xExpr, totalFrames, c.Width, c.Height, c.FPS)
}

// renderShot renders one planned shot to a silent clip.
func (c *Compositor) renderShot(ctx context.Context, shot Shot, outPath string) error {
	switch shot.Kind {
	case ShotImage:
		return c.ffmpeg(ctx,
			"-loop", "1", "-i", shot.Source,
			"-vf", c.kenBurnsFilter(shot.Duration, shot.Motion),
			"-t", fmt.Sprintf("%.3f", shot.Duration),
			"-c:v", "libx264", "-preset", "fast", "-crf", "20",
			"-pix_fmt", "yuv420p", "-an",
			outPath)
	default:
		filter := fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d,setsar=1,format=yuv420p",
			c.Width, c.Height, c.Width, c.Height)
		return c.ffmpeg(ctx,
			"-i", shot.Source,
			"-t", fmt.Sprintf("%.3f", shot.Duration),
			"-vf", filter,
			"-c:v", "libx264", "-preset", "fast", "-crf", "20",
			"-an",
			outPath)
	}
}

// ComposeShots renders every shot, joins them with crossfades and muxes
// the narration on top. A failed crossfade degrades to a hard cut
// before the whole composition is reported failed.
func (c *Compositor) ComposeShots(ctx context.Context, plan CompositionPlan, workDir, audioPath, outPath string) error {
	if len(plan.Shots) == 0 {
		return ErrNoVisualProduced
	}

	var clipFiles []string
	for i, shot := range plan.Shots {
		clipPath := filepath.Join(workDir, fmt.Sprintf("clip_%02d.mp4", i))
		if err := c.renderShot(ctx, shot, clipPath); err != nil {
			return err
		}
		clipFiles = append(clipFiles, clipPath)
	}

	if len(clipFiles) == 1 {
		if err := c.muxNarration(ctx, clipFiles[0], audioPath, plan.TargetDuration, outPath); err != nil {
			return err
		}
		utils.CleanupTempFiles(clipFiles)
		return nil
	}

	silent := filepath.Join(workDir, "joined.mp4")
	if err := c.crossfadeClips(ctx, clipFiles, plan, silent); err != nil {
		log.Printf("⚠️ Crossfade failed, falling back to hard cuts: %v", err)
		if err := c.concatClips(ctx, clipFiles, workDir, silent); err != nil {
			return err
		}
	}

	if err := c.muxNarration(ctx, silent, audioPath, plan.TargetDuration, outPath); err != nil {
		return err
	}
	utils.CleanupTempFiles(append(clipFiles, silent))
	return nil
}

// crossfadeClips chains xfade filters across the rendered clips.
func (c *Compositor) crossfadeClips(ctx context.Context, clips []string, plan CompositionPlan, outPath string) error {
	offsets := transitionOffsets(plan)
	t := plan.TransitionDuration

	var args []string
	for _, clip := range clips {
		args = append(args, "-i", clip)
	}

	var filter strings.Builder
	if len(clips) == 2 {
		fmt.Fprintf(&filter, "[0:v][1:v]xfade=transition=fade:duration=%.3f:offset=%.3f,format=yuv420p[outv]", t, offsets[0])
	} else {
		fmt.Fprintf(&filter, "[0:v][1:v]xfade=transition=fade:duration=%.3f:offset=%.3f[v1]", t, offsets[0])
		for i := 2; i < len(clips); i++ {
			if i == len(clips)-1 {
				fmt.Fprintf(&filter, ";[v%d][%d:v]xfade=transition=fade:duration=%.3f:offset=%.3f,format=yuv420p[outv]", i-1, i, t, offsets[i-1])
			} else {
				fmt.Fprintf(&filter, ";[v%d][%d:v]xfade=transition=fade:duration=%.3f:offset=%.3f[v%d]", i-1, i, t, offsets[i-1], i)
			}
		}
	}

	args = append(args,
		"-filter_complex", filter.String(),
		"-map", "[outv]",
		"-c:v", "libx264", "-preset", "fast", "-crf", "20",
		outPath)

	return c.ffmpeg(ctx, args...)
}

// concatClips joins clips with hard cuts through the concat demuxer.
func (c *Compositor) concatClips(ctx context.Context, clips []string, workDir, outPath string) error {
	concatFile := filepath.Join(workDir, "concat.txt")
	if err := utils.CreateConcatFile(clips, concatFile); err != nil {
		return fmt.Errorf("%w: %v", ErrCompositionFailed, err)
	}
	defer os.Remove(concatFile)

	return c.ffmpeg(ctx,
		"-f", "concat", "-safe", "0", "-i", concatFile,
		"-c:v", "libx264", "-preset", "fast", "-crf", "20",
		outPath)
}

// muxNarration lays the narration audio over a silent clip, cutting at
// the narration length.
func (c *Compositor) muxNarration(ctx context.Context, videoPath, audioPath string, duration float64, outPath string) error {
	return c.ffmpeg(ctx,
		"-i", videoPath, "-i", audioPath,
		"-c:v", "copy", "-c:a", "aac", "-b:a", c.AudioBitrate,
		"-t", fmt.Sprintf("%.3f", duration), "-shortest",
		outPath)
}

// wrapQuoteText breaks a quote into lines of at most 50 characters for
// drawtext rendering.
func wrapQuoteText(quote string) string {
	var lines []string
	current := ""
	for _, word := range strings.Fields(quote) {
		if current != "" && len(current)+len(word)+1 > 50 {
			lines = append(lines, current)
			current = word
			continue
		}
		if current == "" {
			current = word
		} else {
			current = current + " " + word
		}
	}
	if current != "" {
		lines = append(lines, current)
	}
	return strings.Join(lines, "\\n")
}

// escapeDrawText makes text safe inside a drawtext filter value.
// Apostrophes become typographic quotes, which sidesteps shell-style
// quote nesting in the filter graph.
func escapeDrawText(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, "’", `:`, `\:`, `%`, `\%`)
	return r.Replace(s)
}

func (c *Compositor) fontArg() string {
	if c.QuoteFontFile != "" {
		return fmt.Sprintf("fontfile=%s:", c.QuoteFontFile)
	}
	return ""
}

// QuoteCard renders a quotation over a dark card, with the speaker's
// portrait on the left when one was found.
func (c *Compositor) QuoteCard(ctx context.Context, quote, speaker, portraitPath, audioPath string, duration float64, outPath string) error {
	quoteSize, nameSize := 36, 28
	if c.Width >= 3840 {
		quoteSize, nameSize = 56, 40
	}

	wrapped := escapeDrawText(wrapQuoteText(quote))
	name := escapeDrawText(speaker)
	font := c.fontArg()

	if portraitPath != "" && utils.FileExists(portraitPath) {
		imgSize := c.Height / 2
		imgX := c.Width * 8 / 100
		imgY := (c.Height - imgSize) / 2
		textX := c.Width * 40 / 100
		textY := c.Height * 35 / 100
		nameY := c.Height * 65 / 100

		filter := fmt.Sprintf(
			"[0:v]scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2:black[speaker];"+
				"color=c=#1a1a1a:s=%dx%d:d=%.3f:r=%d[bg];"+
				"[bg][speaker]overlay=%d:%d,"+
				"drawtext=text='\"%s\"':%sfontsize=%d:fontcolor=white:x=%d:y=%d:line_spacing=20,"+
				"drawtext=text='- %s':%sfontsize=%d:fontcolor=#E8002D:x=%d:y=%d,"+
				"format=yuv420p[outv]",
			imgSize, imgSize, imgSize, imgSize,
			c.Width, c.Height, duration, c.FPS,
			imgX, imgY,
			wrapped, font, quoteSize, textX, textY,
			name, font, nameSize, textX, nameY)

		return c.ffmpeg(ctx,
			"-i", portraitPath, "-i", audioPath,
			"-filter_complex", filter,
			"-map", "[outv]", "-map", "1:a",
			"-c:v", "libx264", "-preset", "fast", "-crf", "20",
			"-c:a", "aac", "-b:a", c.AudioBitrate,
			"-t", fmt.Sprintf("%.3f", duration),
			outPath)
	}

	textY := c.Height * 40 / 100
	nameY := c.Height * 60 / 100
	bg := fmt.Sprintf("color=c=#1a1a1a:s=%dx%d:d=%.3f:r=%d", c.Width, c.Height, duration, c.FPS)
	filter := fmt.Sprintf(
		"drawtext=text='\"%s\"':%sfontsize=%d:fontcolor=white:x=(w-text_w)/2:y=%d:line_spacing=20,"+
			"drawtext=text='- %s':%sfontsize=%d:fontcolor=#E8002D:x=(w-text_w)/2:y=%d,"+
			"format=yuv420p[outv]",
		wrapped, font, quoteSize, textY,
		name, font, nameSize, nameY)

	return c.ffmpeg(ctx,
		"-f", "lavfi", "-i", bg,
		"-i", audioPath,
		"-filter_complex", "[0:v]"+filter,
		"-map", "[outv]", "-map", "1:a",
		"-c:v", "libx264", "-preset", "fast", "-crf", "20",
		"-c:a", "aac", "-b:a", c.AudioBitrate,
		"-t", fmt.Sprintf("%.3f", duration),
		outPath)
}

// PresenterLoop animates a presenter still for the narration length.
// The slow breathing zoom and sway keep the frame from looking frozen.
func (c *Compositor) PresenterLoop(ctx context.Context, presenterImage, audioPath string, duration float64, outPath string) error {
	totalFrames := int(duration * float64(c.FPS))

	filter := fmt.Sprintf(
		"scale=w=%d:h=%d:force_original_aspect_ratio=increase,crop=%d:%d,"+
			"zoompan=z='1.05+0.03*sin(on/120)':"+
			"x='iw/2-(iw/zoom/2)+sin(on/90)*15':"+
			"y='ih/2-(ih/zoom/2)+cos(on/100)*8':"+
			"d=%d:s=%dx%d:fps=%d,format=yuv420p",
		c.Width*2, c.Height*2, c.Width*2, c.Height*2,
		totalFrames, c.Width, c.Height, c.FPS)

	return c.ffmpeg(ctx,
		"-loop", "1", "-i", presenterImage,
		"-i", audioPath,
		"-vf", filter,
		"-c:v", "libx264", "-preset", "fast", "-crf", "20",
		"-c:a", "aac", "-b:a", c.AudioBitrate,
		"-t", fmt.Sprintf("%.3f", duration),
		"-shortest",
		outPath)
}

// FitScene loops or trims a generated scene clip to the narration
// length, reframes it to the output size and muxes the narration.
func (c *Compositor) FitScene(ctx context.Context, scenePath, audioPath string, duration float64, outPath string) error {
	filter := fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d,setsar=1,format=yuv420p",
		c.Width, c.Height, c.Width, c.Height)

	return c.ffmpeg(ctx,
		"-stream_loop", "-1", "-i", scenePath,
		"-i", audioPath,
		"-vf", filter,
		"-map", "0:v", "-map", "1:a",
		"-c:v", "libx264", "-preset", "fast", "-crf", "20",
		"-c:a", "aac", "-b:a", c.AudioBitrate,
		"-t", fmt.Sprintf("%.3f", duration),
		outPath)
}

// Outro renders a closing credits card over black, optionally with its
// own audio bed.
func (c *Compositor) Outro(ctx context.Context, channelName, audioPath string, outPath string) error {
	duration := 6.0
	if audioPath != "" && utils.FileExists(audioPath) {
		if d, err := utils.GetMediaDuration(audioPath); err == nil && d > 0 {
			duration = d
		}
	}

	titleSize, channelSize, ctaSize := 48, 64, 32
	if c.Width >= 3840 {
		titleSize, channelSize, ctaSize = 72, 96, 48
	}

	centerY := c.Height * 45 / 100
	ctaY := c.Height * 58 / 100
	const creditsSplit = 3.0
	font := c.fontArg()

	bg := fmt.Sprintf("color=black:s=%dx%d:d=%.3f:r=%d", c.Width, c.Height, duration, c.FPS)
	filter := fmt.Sprintf(
		"format=yuv420p,"+
			"drawtext=text='Sources & References in Description':%sfontsize=%d:fontcolor=white:x=(w-text_w)/2:y=%d:enable='lt(t,%.1f)',"+
			"drawtext=text='%s':%sfontsize=%d:fontcolor=#E8002D:x=(w-text_w)/2:y=%d:enable='gte(t,%.1f)',"+
			"drawtext=text='LIKE - SUBSCRIBE - BELL':%sfontsize=%d:fontcolor=white:x=(w-text_w)/2:y=%d:enable='gte(t,%.1f)'",
		font, titleSize, centerY, creditsSplit,
		escapeDrawText(channelName), font, channelSize, centerY, creditsSplit,
		font, ctaSize, ctaY, creditsSplit)

	args := []string{"-f", "lavfi", "-i", bg}
	if audioPath != "" && utils.FileExists(audioPath) {
		args = append(args, "-i", audioPath)
	}
	args = append(args, "-vf", filter,
		"-c:v", "libx264", "-preset", "fast", "-crf", "20")
	if audioPath != "" && utils.FileExists(audioPath) {
		args = append(args, "-c:a", "aac", "-b:a", c.AudioBitrate)
	}
	args = append(args, "-t", fmt.Sprintf("%.3f", duration), outPath)

	return c.ffmpeg(ctx, args...)
}

// Concat joins finished segment clips into the master timeline.
func (c *Compositor) Concat(ctx context.Context, clips []string, workDir, outPath string) error {
	if len(clips) == 0 {
		return ErrNothingProduced
	}

	concatFile := filepath.Join(workDir, "timeline_concat.txt")
	if err := utils.CreateConcatFile(clips, concatFile); err != nil {
		return fmt.Errorf("%w: %v", ErrCompositionFailed, err)
	}
	defer os.Remove(concatFile)

	return c.ffmpeg(ctx,
		"-f", "concat", "-safe", "0", "-i", concatFile,
		"-c", "copy",
		outPath)
}

// AddMusic loops the music bed under the narration for the whole
// timeline, faded in and out, mixed without renormalizing the voice.
func (c *Compositor) AddMusic(ctx context.Context, videoPath, musicPath string, voiceVolume, musicVolume, fade float64, outPath string) error {
	duration, err := utils.GetMediaDuration(videoPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCompositionFailed, err)
	}

	if voiceVolume <= 0 {
		voiceVolume = 1.0
	}

	filter := fmt.Sprintf(
		"[0:a]aformat=channel_layouts=stereo,volume=%.3f[voice];"+
			"[1:a]aloop=loop=-1:size=2e+09,atrim=0:%.3f,"+
			"afade=t=in:st=0:d=%.1f,afade=t=out:st=%.3f:d=%.1f,"+
			"volume=%.3f[music];"+
			"[voice][music]amix=inputs=2:duration=first:dropout_transition=0:normalize=0[aout]",
		voiceVolume, duration, fade, duration-fade, fade, musicVolume)

	return c.ffmpeg(ctx,
		"-i", videoPath, "-i", musicPath,
		"-filter_complex", filter,
		"-map", "0:v", "-map", "[aout]",
		"-c:v", "copy", "-c:a", "aac", "-b:a", c.AudioBitrate,
		outPath)
}
