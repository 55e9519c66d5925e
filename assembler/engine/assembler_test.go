package engine

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"video_narrator/assembler/models"
	"video_narrator/assembler/providers"
)

// stubRenderer delegates planning to a real compositor but records
// render calls instead of invoking ffmpeg.
type stubRenderer struct {
	comp *Compositor

	composed    []CompositionPlan
	quoteCalls  int
	scenes      int
	presenters  int
	failCompose bool
}

func (s *stubRenderer) PlanShots(target float64) CompositionPlan { return s.comp.PlanShots(target) }
func (s *stubRenderer) PlanFor(target float64, shots int) CompositionPlan {
	return s.comp.PlanFor(target, shots)
}

func (s *stubRenderer) ComposeShots(ctx context.Context, plan CompositionPlan, workDir, audioPath, outPath string) error {
	if s.failCompose {
		return ErrCompositionFailed
	}
	s.composed = append(s.composed, plan)
	return os.WriteFile(outPath, []byte("video"), 0644)
}

func (s *stubRenderer) QuoteCard(ctx context.Context, quote, speaker, portraitPath, audioPath string, duration float64, outPath string) error {
	s.quoteCalls++
	return os.WriteFile(outPath, []byte("video"), 0644)
}

func (s *stubRenderer) PresenterLoop(ctx context.Context, presenterImage, audioPath string, duration float64, outPath string) error {
	s.presenters++
	return os.WriteFile(outPath, []byte("video"), 0644)
}

func (s *stubRenderer) FitScene(ctx context.Context, scenePath, audioPath string, duration float64, outPath string) error {
	s.scenes++
	return os.WriteFile(outPath, []byte("video"), 0644)
}

// stubBackend counts searches and serves canned candidates.
type stubBackend struct {
	name        string
	available   bool
	calls       int
	sawDeadline bool
	results     []providers.Candidate
}

func (b *stubBackend) Name() string               { return b.name }
func (b *stubBackend) Available() bool            { return b.available }
func (b *stubBackend) MinInterval() time.Duration { return 0 }
func (b *stubBackend) Search(ctx context.Context, query string, maxResults int) []providers.Candidate {
	b.calls++
	_, b.sawDeadline = ctx.Deadline()
	return b.results
}

// stubDownloader fails for configured providers and writes a marker
// file otherwise.
type stubDownloader struct {
	failProviders map[string]bool
	fetches       int
}

func (d *stubDownloader) Fetch(ctx context.Context, c providers.Candidate, dest string) error {
	d.fetches++
	if d.failProviders[c.Provider] {
		return errors.New("download refused")
	}
	return os.WriteFile(dest, []byte("media"), 0644)
}

type rejectAllValidator struct{}

func (rejectAllValidator) Validate(ctx context.Context, path, referenceText string) bool { return false }

func candidates(provider string, n int) []providers.Candidate {
	out := make([]providers.Candidate, n)
	for i := range out {
		out[i] = providers.Candidate{
			SourceID: string(rune('a' + i)),
			Locator:  "https://example.com/" + provider,
			Provider: provider,
		}
	}
	return out
}

func testAssembler(t *testing.T) (*Assembler, *stubRenderer, *stubDownloader) {
	t.Helper()

	cfg, err := models.LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	renderer := &stubRenderer{comp: NewCompositor(cfg)}
	downloader := &stubDownloader{failProviders: map[string]bool{}}

	a := NewAssembler(cfg, renderer, providers.NewRunContext(), t.TempDir())
	a.Downloader = downloader
	return a, renderer, downloader
}

func TestAssembleQuoteSegment(t *testing.T) {
	a, renderer, _ := testAssembler(t)

	seg := models.Segment{
		Text:          `Lewis Hamilton said "We need to push the limits of what this sport can be"`,
		AudioDuration: 6.5,
	}

	res := a.AssembleSegment(context.Background(), 0, seg, "audio.mp3", a.WorkDir+"/out.mp4")

	if res.Status != models.StatusDone {
		t.Fatalf("status = %s (%s)", res.Status, res.Error)
	}
	if res.Strategy != "quote_card" {
		t.Errorf("strategy = %q, want quote_card", res.Strategy)
	}
	if res.FallbackUsed {
		t.Error("quote card should be the primary strategy")
	}
	if renderer.quoteCalls != 1 {
		t.Errorf("quote renders = %d, want 1", renderer.quoteCalls)
	}
	if res.Confidence != 0.95 {
		t.Errorf("confidence = %v, want 0.95", res.Confidence)
	}
}

func TestUnavailableBackendNeverInvoked(t *testing.T) {
	a, _, _ := testAssembler(t)

	footage := &stubBackend{name: "footage", available: false, results: candidates("footage", 3)}
	a.Footage = footage

	seg := models.Segment{
		Text:          "Verstappen fights through the pack to take a dramatic victory",
		AudioDuration: 8.0,
	}

	a.AssembleSegment(context.Background(), 0, seg, "audio.mp3", a.WorkDir+"/out.mp4")

	if footage.calls != 0 {
		t.Errorf("unavailable backend was searched %d times", footage.calls)
	}
}

func TestFallbackWhenAllCandidatesRejected(t *testing.T) {
	a, renderer, downloader := testAssembler(t)

	a.Footage = &stubBackend{name: "footage", available: true, results: candidates("footage", 3)}
	a.Images = []providers.Backend{
		&stubBackend{name: "pexels", available: true, results: candidates("pexels", 3)},
	}
	downloader.failProviders["footage"] = true

	seg := models.Segment{
		Text:          "Verstappen fights through the pack to take a dramatic victory",
		AudioDuration: 8.0,
	}

	res := a.AssembleSegment(context.Background(), 0, seg, "audio.mp3", a.WorkDir+"/out.mp4")

	if res.Status != models.StatusDone {
		t.Fatalf("status = %s (%s)", res.Status, res.Error)
	}
	if res.Strategy != "static_image" {
		t.Errorf("strategy = %q, want static_image fallback", res.Strategy)
	}
	if !res.FallbackUsed {
		t.Error("fallback flag not set")
	}
	if len(renderer.composed) != 1 {
		t.Fatalf("composed %d plans, want 1", len(renderer.composed))
	}
}

func TestReplanMatchesAcquiredSources(t *testing.T) {
	a, renderer, _ := testAssembler(t)

	// Only one usable footage candidate for a segment planned at
	// three shots.
	a.Footage = &stubBackend{name: "footage", available: true, results: candidates("footage", 1)}

	seg := models.Segment{
		Text:          "Verstappen fights through the pack to take a dramatic victory",
		AudioDuration: 13.0,
	}

	res := a.AssembleSegment(context.Background(), 0, seg, "audio.mp3", a.WorkDir+"/out.mp4")

	if res.Status != models.StatusDone {
		t.Fatalf("status = %s (%s)", res.Status, res.Error)
	}
	if len(renderer.composed) != 1 {
		t.Fatalf("composed %d plans, want 1", len(renderer.composed))
	}

	plan := renderer.composed[0]
	if len(plan.Shots) != 1 {
		t.Fatalf("shots = %d, want 1 after re-plan", len(plan.Shots))
	}
	if plan.Shots[0].Duration != 13.0 {
		t.Errorf("re-planned duration = %g, want full 13.0", plan.Shots[0].Duration)
	}
	if plan.Shots[0].Kind != ShotVideo {
		t.Errorf("shot kind = %v, want video", plan.Shots[0].Kind)
	}
}

func TestValidatorRejectionExhaustsStrategy(t *testing.T) {
	a, _, _ := testAssembler(t)

	footage := &stubBackend{name: "footage", available: true, results: candidates("footage", 3)}
	a.Footage = footage
	a.Validator = rejectAllValidator{}

	seg := models.Segment{
		Text:          "Verstappen fights through the pack to take a dramatic victory",
		AudioDuration: 8.0,
	}

	res := a.AssembleSegment(context.Background(), 0, seg, "audio.mp3", a.WorkDir+"/out.mp4")

	// No image backends and no presenter source: everything fails.
	if res.Status != models.StatusFailed {
		t.Fatalf("status = %s, want failed", res.Status)
	}
	if res.Error == "" {
		t.Error("failed segment carries no error")
	}
}

func TestImageAcquisitionSkipsValidator(t *testing.T) {
	a, renderer, _ := testAssembler(t)

	// The external validator only understands footage clips. An
	// entity-routed still must not be run through it and rejected.
	a.Validator = rejectAllValidator{}
	pexels := &stubBackend{name: "pexels", available: true, results: candidates("pexels", 3)}
	a.Images = []providers.Backend{pexels}

	seg := models.Segment{
		Text:          "Ferrari unveiled the latest livery at Maranello",
		AudioDuration: 8.0,
	}

	res := a.AssembleSegment(context.Background(), 0, seg, "audio.mp3", a.WorkDir+"/out.mp4")

	if res.Status != models.StatusDone {
		t.Fatalf("status = %s (%s)", res.Status, res.Error)
	}
	if res.Strategy != "static_image" {
		t.Errorf("strategy = %q, want static_image", res.Strategy)
	}
	if res.FallbackUsed {
		t.Error("image strategy fell back despite usable candidates")
	}
	if len(renderer.composed) != 1 {
		t.Errorf("composed %d plans, want 1", len(renderer.composed))
	}
}

func TestCandidateBudgetRespected(t *testing.T) {
	a, _, downloader := testAssembler(t)

	// Plenty of candidates, every download rejected: attempts stop at
	// the configured budget.
	a.Footage = &stubBackend{name: "footage", available: true, results: candidates("footage", 20)}
	downloader.failProviders["footage"] = true

	seg := models.Segment{
		Text:          "Verstappen fights through the pack to take a dramatic victory",
		AudioDuration: 8.0,
	}

	a.AssembleSegment(context.Background(), 0, seg, "audio.mp3", a.WorkDir+"/out.mp4")

	budget := a.Cfg.Settings.MaxCandidates
	if downloader.fetches > budget {
		t.Errorf("tried %d candidates, budget is %d", downloader.fetches, budget)
	}
}

func TestSearchRunsUnderDeadline(t *testing.T) {
	a, _, _ := testAssembler(t)

	footage := &stubBackend{name: "footage", available: true, results: candidates("footage", 1)}
	a.Footage = footage

	seg := models.Segment{
		Text:          "Verstappen fights through the pack to take a dramatic victory",
		AudioDuration: 8.0,
	}

	a.AssembleSegment(context.Background(), 0, seg, "audio.mp3", a.WorkDir+"/out.mp4")

	if footage.calls == 0 {
		t.Fatal("footage backend never searched")
	}
	if !footage.sawDeadline {
		t.Error("search ran without a deadline")
	}
}

func TestSceneSegmentUsesGenerator(t *testing.T) {
	a, renderer, _ := testAssembler(t)
	a.Cfg.Settings.AllowGeneratedScene = true
	a.Scene = &stubSceneGen{}

	seg := models.Segment{
		Text:          "Imagine a future built on sustainable energy",
		AudioDuration: 7.0,
	}

	res := a.AssembleSegment(context.Background(), 0, seg, "audio.mp3", a.WorkDir+"/out.mp4")

	if res.Status != models.StatusDone {
		t.Fatalf("status = %s (%s)", res.Status, res.Error)
	}
	if res.Strategy != "generated_scene" {
		t.Errorf("strategy = %q, want generated_scene", res.Strategy)
	}
	if renderer.scenes != 1 {
		t.Errorf("scene fits = %d, want 1", renderer.scenes)
	}
}

type stubSceneGen struct{ fail bool }

func (s *stubSceneGen) Available() bool { return true }
func (s *stubSceneGen) Generate(ctx context.Context, prompt, dest string) error {
	if s.fail {
		return errors.New("generation refused")
	}
	return os.WriteFile(dest, []byte("scene"), 0644)
}

func TestSceneFailureFallsBackToPresenter(t *testing.T) {
	a, renderer, _ := testAssembler(t)
	a.Cfg.Settings.AllowGeneratedScene = true
	a.Scene = &stubSceneGen{fail: true}
	a.Images = []providers.Backend{
		&stubBackend{name: "pexels", available: true, results: candidates("pexels", 1)},
	}

	seg := models.Segment{
		Text:          "Imagine a future built on sustainable energy",
		AudioDuration: 7.0,
	}

	res := a.AssembleSegment(context.Background(), 0, seg, "audio.mp3", a.WorkDir+"/out.mp4")

	if res.Status != models.StatusDone {
		t.Fatalf("status = %s (%s)", res.Status, res.Error)
	}
	if res.Strategy != "presenter" {
		t.Errorf("strategy = %q, want presenter fallback", res.Strategy)
	}
	if !res.FallbackUsed {
		t.Error("fallback flag not set")
	}
	if renderer.presenters != 1 {
		t.Errorf("presenter renders = %d, want 1", renderer.presenters)
	}
}

func TestFallbackChainAlwaysEndsInPresenter(t *testing.T) {
	d := VisualDecision{Primary: StrategyReferenceFootage, Fallback: StrategyStaticImage}
	chain := fallbackChain(d)
	if chain[len(chain)-1] != StrategyPresenter {
		t.Errorf("chain = %v, want presenter terminal", chain)
	}

	d = VisualDecision{Primary: StrategyStaticImage, Fallback: StrategyPresenter}
	chain = fallbackChain(d)
	if len(chain) != 2 {
		t.Errorf("chain = %v, presenter duplicated", chain)
	}
}

func TestMissingNarrationFailsFast(t *testing.T) {
	a, _, _ := testAssembler(t)

	res := a.AssembleSegment(context.Background(), 0, models.Segment{Text: "anything"}, "audio.mp3", a.WorkDir+"/out.mp4")
	if res.Status != models.StatusFailed {
		t.Errorf("status = %s, want failed for zero duration", res.Status)
	}
}
