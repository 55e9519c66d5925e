package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"video_narrator/assembler/models"
	"video_narrator/assembler/providers"
	"video_narrator/assembler/utils"
)

// Renderer is the compositor surface the assembler drives. Split out
// as an interface so segment logic is testable without ffmpeg.
type Renderer interface {
	PlanShots(target float64) CompositionPlan
	PlanFor(target float64, shots int) CompositionPlan
	ComposeShots(ctx context.Context, plan CompositionPlan, workDir, audioPath, outPath string) error
	QuoteCard(ctx context.Context, quote, speaker, portraitPath, audioPath string, duration float64, outPath string) error
	PresenterLoop(ctx context.Context, presenterImage, audioPath string, duration float64, outPath string) error
	FitScene(ctx context.Context, scenePath, audioPath string, duration float64, outPath string) error
}

// Downloader fetches an accepted candidate to a local file.
type Downloader interface {
	Fetch(ctx context.Context, c providers.Candidate, dest string) error
}

// Validator optionally inspects a downloaded candidate before it is
// accepted. A nil validator accepts everything.
type Validator interface {
	Validate(ctx context.Context, path, referenceText string) bool
}

// SceneGenerator produces a short generated clip from a text prompt.
type SceneGenerator interface {
	Available() bool
	Generate(ctx context.Context, prompt, dest string) error
}

// StillGenerator produces a single still from a text prompt.
type StillGenerator interface {
	Available() bool
	Generate(ctx context.Context, prompt, style, dest string) error
}

// PortraitFinder locates a headshot for a named person.
type PortraitFinder interface {
	Find(ctx context.Context, name string) (providers.Candidate, bool)
}

type produceFunc func(ctx context.Context, d VisualDecision, seg models.Segment, segDir, audioPath, outPath string) error

// Assembler executes the visual decision for each segment: acquire
// candidates, compose shots, fall back when a strategy comes up empty.
type Assembler struct {
	Cfg        *models.AssemblyConfig
	Renderer   Renderer
	Run        *providers.RunContext
	Images     []providers.Backend
	Footage    providers.Backend
	Portraits  PortraitFinder
	Scene      SceneGenerator
	Stills     StillGenerator
	Downloader Downloader
	Validator  Validator
	WorkDir    string

	handlers map[Strategy]produceFunc

	presenterMu   sync.Mutex
	presenterPath string
}

func NewAssembler(cfg *models.AssemblyConfig, r Renderer, run *providers.RunContext, workDir string) *Assembler {
	a := &Assembler{
		Cfg:      cfg,
		Renderer: r,
		Run:      run,
		WorkDir:  workDir,
	}
	a.handlers = map[Strategy]produceFunc{
		StrategyReferenceFootage: a.produceFootage,
		StrategyStaticImage:      a.produceStaticImage,
		StrategyPresenter:        a.producePresenter,
		StrategyQuoteCard:        a.produceQuoteCard,
		StrategyGeneratedScene:   a.produceScene,
	}
	return a
}

func (a *Assembler) sceneEnabled() bool {
	return a.Cfg.Settings.AllowGeneratedScene && a.Scene != nil && a.Scene.Available()
}

// fallbackChain orders the strategies to attempt. The presenter loop
// closes the chain because it can always render from a cached still,
// so a segment only fails when even that breaks.
func fallbackChain(d VisualDecision) []Strategy {
	chain := []Strategy{d.Primary}
	if d.Fallback != d.Primary {
		chain = append(chain, d.Fallback)
	}
	hasPresenter := false
	for _, s := range chain {
		if s == StrategyPresenter {
			hasPresenter = true
		}
	}
	if !hasPresenter {
		chain = append(chain, StrategyPresenter)
	}
	return chain
}

// AssembleSegment runs the full per-segment flow and reports what
// happened. It never returns an error, failure is part of the report.
func (a *Assembler) AssembleSegment(ctx context.Context, idx int, seg models.Segment, audioPath, outPath string) models.SegmentResult {
	result := models.SegmentResult{
		Index:    idx,
		Context:  seg.Context,
		Duration: seg.AudioDuration,
		Status:   models.StatusFailed,
	}

	if seg.AudioDuration <= 0 {
		result.Error = "segment has no narration audio"
		return result
	}

	segDir := filepath.Join(a.WorkDir, fmt.Sprintf("segment_%02d", idx))
	if err := utils.EnsureDirectoryExists(segDir); err != nil {
		result.Error = fmt.Sprintf("failed to create work dir: %v", err)
		return result
	}

	decision := Route(seg, a.sceneEnabled())
	result.Confidence = decision.Confidence

	var lastErr error
	for i, strat := range fallbackChain(decision) {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}

		handler := a.handlers[strat]
		err := handler(ctx, decision, seg, segDir, audioPath, outPath)
		if err == nil {
			result.Strategy = strat.String()
			result.FallbackUsed = i > 0
			result.Status = models.StatusDone
			result.OutputPath = outPath
			if i > 0 {
				log.Printf("⚠️ Segment %d fell back to %s", idx+1, strat)
			}
			return result
		}

		lastErr = err
		log.Printf("⚠️ Segment %d: %s failed: %v", idx+1, strat, err)
	}

	result.Error = fmt.Sprintf("%v: %v", ErrSegmentFailed, lastErr)
	return result
}

// search queries a backend through the run context under the
// configured search timeout.
func (a *Assembler) search(ctx context.Context, backend providers.Backend, query string, maxResults int) []providers.Candidate {
	sctx, cancel := context.WithTimeout(ctx, time.Duration(a.Cfg.Settings.SearchTimeoutSec)*time.Second)
	defer cancel()
	return a.Run.Search(sctx, backend, query, maxResults)
}

// acquireSources downloads candidates from the given backends until
// the plan is filled or the candidate budget runs out. The external
// validator only inspects footage clips, so image acquisition passes
// validate false and accepts anything that downloads cleanly.
func (a *Assembler) acquireSources(ctx context.Context, backends []providers.Backend, queries []string, need int, seg models.Segment, segDir, prefix, ext string, validate bool) []string {
	maxCandidates := a.Cfg.Settings.MaxCandidates
	downloadTimeout := time.Duration(a.Cfg.Settings.DownloadTimeoutSec) * time.Second

	var accepted []string
	tried := 0

	for _, query := range queries {
		if len(accepted) >= need || tried >= maxCandidates {
			break
		}
		for _, backend := range backends {
			if len(accepted) >= need || tried >= maxCandidates {
				break
			}
			for _, cand := range a.search(ctx, backend, query, maxCandidates) {
				if len(accepted) >= need || tried >= maxCandidates {
					break
				}
				tried++

				dest := filepath.Join(segDir, fmt.Sprintf("%s_%02d%s", prefix, len(accepted), ext))
				dctx, cancel := context.WithTimeout(ctx, downloadTimeout)
				err := a.Downloader.Fetch(dctx, cand, dest)
				cancel()
				if err != nil {
					log.Printf("⚠️ Candidate rejected (%s): %v", cand.Provider, err)
					continue
				}

				if validate && a.Validator != nil && !a.Validator.Validate(ctx, dest, seg.Text) {
					log.Printf("⚠️ Candidate rejected (%s): failed validation", cand.Provider)
					os.Remove(dest)
					continue
				}

				accepted = append(accepted, dest)
			}
		}
	}

	return accepted
}

func (a *Assembler) produceFootage(ctx context.Context, d VisualDecision, seg models.Segment, segDir, audioPath, outPath string) error {
	if a.Footage == nil || !a.Footage.Available() {
		return ErrBackendUnavailable
	}

	plan := a.Renderer.PlanShots(seg.AudioDuration)
	sources := a.acquireSources(ctx, []providers.Backend{a.Footage}, d.SearchQueries, len(plan.Shots), seg, segDir, "footage", ".mp4", true)
	if len(sources) == 0 {
		return fmt.Errorf("%w: no usable footage for %v", ErrStrategyExhausted, d.SearchQueries)
	}

	// Re-plan over what was actually acquired so durations still sum
	// to the narration length.
	plan = a.Renderer.PlanFor(seg.AudioDuration, len(sources))
	for i := range plan.Shots {
		plan.Shots[i].Source = sources[i]
		plan.Shots[i].Kind = ShotVideo
	}

	return a.Renderer.ComposeShots(ctx, plan, segDir, audioPath, outPath)
}

func (a *Assembler) produceStaticImage(ctx context.Context, d VisualDecision, seg models.Segment, segDir, audioPath, outPath string) error {
	plan := a.Renderer.PlanShots(seg.AudioDuration)
	sources := a.acquireSources(ctx, a.Images, d.SearchQueries, len(plan.Shots), seg, segDir, "img", ".jpg", false)

	// Generation backs up empty search results.
	if len(sources) == 0 && a.Stills != nil && a.Stills.Available() {
		prompt := seg.Context
		if prompt == "" {
			prompt = seg.Text
		}
		dest := filepath.Join(segDir, "img_gen.jpg")
		if err := a.Stills.Generate(ctx, prompt, seg.GraphicStyle, dest); err == nil {
			sources = append(sources, dest)
		} else {
			log.Printf("⚠️ Still generation failed: %v", err)
		}
	}

	if len(sources) == 0 {
		return fmt.Errorf("%w: no usable images for %v", ErrStrategyExhausted, d.SearchQueries)
	}

	plan = a.Renderer.PlanFor(seg.AudioDuration, len(sources))
	for i := range plan.Shots {
		plan.Shots[i].Source = sources[i]
		plan.Shots[i].Kind = ShotImage
	}

	return a.Renderer.ComposeShots(ctx, plan, segDir, audioPath, outPath)
}

func (a *Assembler) produceQuoteCard(ctx context.Context, d VisualDecision, seg models.Segment, segDir, audioPath, outPath string) error {
	quote, speaker := d.QuoteText, d.SpeakerName
	if quote == "" || speaker == "" {
		// Honor an explicit override even without attribution.
		speaker, quote = DetectQuote(seg.Text)
		if quote == "" {
			return fmt.Errorf("%w: no quotation in segment text", ErrStrategyExhausted)
		}
		if speaker == "" {
			speaker = "Unknown"
		}
	}

	portraitPath := ""
	if a.Portraits != nil {
		sctx, scancel := context.WithTimeout(ctx, time.Duration(a.Cfg.Settings.SearchTimeoutSec)*time.Second)
		cand, ok := a.Portraits.Find(sctx, speaker)
		scancel()
		if ok {
			dest := filepath.Join(segDir, "speaker.jpg")
			dctx, cancel := context.WithTimeout(ctx, time.Duration(a.Cfg.Settings.DownloadTimeoutSec)*time.Second)
			err := a.Downloader.Fetch(dctx, cand, dest)
			cancel()
			if err == nil {
				portraitPath = dest
			}
		}
	}

	return a.Renderer.QuoteCard(ctx, quote, speaker, portraitPath, audioPath, seg.AudioDuration, outPath)
}

func (a *Assembler) produceScene(ctx context.Context, d VisualDecision, seg models.Segment, segDir, audioPath, outPath string) error {
	if a.Scene == nil || !a.Scene.Available() {
		return ErrBackendUnavailable
	}

	prompt := d.ScenePrompt
	if prompt == "" {
		prompt = ScenePromptFor(seg.Text, seg.Context)
	}
	if prompt == "" {
		return fmt.Errorf("%w: no scene prompt for segment", ErrStrategyExhausted)
	}

	scenePath := filepath.Join(segDir, "scene_raw.mp4")
	gctx, cancel := context.WithTimeout(ctx, time.Duration(a.Cfg.Settings.SceneTimeoutSec)*time.Second)
	err := a.Scene.Generate(gctx, prompt, scenePath)
	cancel()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: scene generation", ErrGenerationTimeout)
		}
		return fmt.Errorf("%w: %v", ErrCandidateRejected, err)
	}

	return a.Renderer.FitScene(ctx, scenePath, audioPath, seg.AudioDuration, outPath)
}

func (a *Assembler) producePresenter(ctx context.Context, d VisualDecision, seg models.Segment, segDir, audioPath, outPath string) error {
	presenter, err := a.presenterImage(ctx)
	if err != nil {
		return err
	}
	return a.Renderer.PresenterLoop(ctx, presenter, audioPath, seg.AudioDuration, outPath)
}

// presenterImage finds and caches the presenter still for the run.
// The same face fronts every presenter segment.
func (a *Assembler) presenterImage(ctx context.Context) (string, error) {
	a.presenterMu.Lock()
	defer a.presenterMu.Unlock()

	if a.presenterPath != "" {
		return a.presenterPath, nil
	}

	path := filepath.Join(a.WorkDir, "presenter.jpg")
	if utils.FileExists(path) {
		a.presenterPath = path
		return path, nil
	}

	queries := []string{"professional presenter studio", "news presenter portrait"}
	for _, query := range queries {
		for _, backend := range a.Images {
			for _, cand := range a.search(ctx, backend, query, 2) {
				dctx, cancel := context.WithTimeout(ctx, time.Duration(a.Cfg.Settings.DownloadTimeoutSec)*time.Second)
				err := a.Downloader.Fetch(dctx, cand, path)
				cancel()
				if err == nil {
					a.presenterPath = path
					return path, nil
				}
			}
		}
	}

	return "", fmt.Errorf("%w: no presenter image", ErrNoVisualProduced)
}
