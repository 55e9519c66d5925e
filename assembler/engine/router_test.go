package engine

import (
	"testing"

	"video_narrator/assembler/models"
)

func TestRouteAttributedQuote(t *testing.T) {
	seg := models.Segment{
		Text: `Lewis Hamilton said "We need to push the limits of what this sport can be"`,
	}

	d := Route(seg, false)

	if d.Primary != StrategyQuoteCard {
		t.Fatalf("primary = %v, want quote_card", d.Primary)
	}
	if d.Fallback != StrategyReferenceFootage {
		t.Errorf("fallback = %v, want reference_footage", d.Fallback)
	}
	if d.Confidence != 0.95 {
		t.Errorf("confidence = %v, want 0.95", d.Confidence)
	}
	if d.SpeakerName != "Lewis Hamilton" {
		t.Errorf("speaker = %q, want Lewis Hamilton", d.SpeakerName)
	}
	if len(d.SearchQueries) == 0 || d.SearchQueries[0] != "Lewis Hamilton F1" {
		t.Errorf("queries = %v, want speaker-derived queries", d.SearchQueries)
	}
}

func TestRouteQuoteBeatsOtherSignals(t *testing.T) {
	// Entities and action keywords in the same segment must not
	// outrank an attributed quote.
	seg := models.Segment{
		Text: `After the race Max Verstappen said "That podium battle was the hardest fight of my career"`,
	}

	d := Route(seg, false)
	if d.Primary != StrategyQuoteCard {
		t.Errorf("primary = %v, want quote_card", d.Primary)
	}
}

func TestRouteActionWithEntities(t *testing.T) {
	seg := models.Segment{
		Text:    "Verstappen fights through the pack to take a dramatic victory",
		Context: "race highlights",
	}

	d := Route(seg, false)

	if d.Primary != StrategyReferenceFootage {
		t.Fatalf("primary = %v, want reference_footage", d.Primary)
	}
	if d.Fallback != StrategyStaticImage {
		t.Errorf("fallback = %v, want static_image", d.Fallback)
	}
	if d.Confidence != 0.85 {
		t.Errorf("confidence = %v, want 0.85", d.Confidence)
	}
}

func TestRouteEntityImage(t *testing.T) {
	seg := models.Segment{Text: "Hamilton joins Ferrari next season"}

	d := Route(seg, false)

	if d.Primary != StrategyStaticImage {
		t.Fatalf("primary = %v, want static_image", d.Primary)
	}
	if d.Fallback != StrategyPresenter {
		t.Errorf("fallback = %v, want presenter", d.Fallback)
	}
	if d.Confidence != 0.9 {
		t.Errorf("confidence = %v, want 0.9", d.Confidence)
	}

	wantQueries := []string{"Lewis Hamilton F1 2024", "Scuderia Ferrari F1 car"}
	if len(d.SearchQueries) != len(wantQueries) {
		t.Fatalf("queries = %v, want %v", d.SearchQueries, wantQueries)
	}
	for i := range wantQueries {
		if d.SearchQueries[i] != wantQueries[i] {
			t.Errorf("query[%d] = %q, want %q", i, d.SearchQueries[i], wantQueries[i])
		}
	}
}

func TestRouteConceptPresenter(t *testing.T) {
	seg := models.Segment{Text: "Basically the whole process depends on a clever catalyst"}

	d := Route(seg, false)

	if d.Primary != StrategyPresenter {
		t.Fatalf("primary = %v, want presenter", d.Primary)
	}
	if d.Fallback != StrategyStaticImage {
		t.Errorf("fallback = %v, want static_image", d.Fallback)
	}
	if d.Confidence != 0.8 {
		t.Errorf("confidence = %v, want 0.8", d.Confidence)
	}
}

func TestRouteGeneratedScene(t *testing.T) {
	seg := models.Segment{Text: "Imagine a future built on sustainable energy"}

	d := Route(seg, true)

	if d.Primary != StrategyGeneratedScene {
		t.Fatalf("primary = %v, want generated_scene", d.Primary)
	}
	if d.Fallback != StrategyPresenter {
		t.Errorf("fallback = %v, want presenter", d.Fallback)
	}
	if d.Confidence != 0.85 {
		t.Errorf("confidence = %v, want 0.85", d.Confidence)
	}
	if d.ScenePrompt == "" {
		t.Error("expected a scene prompt")
	}
}

func TestRouteSceneDisabled(t *testing.T) {
	// Same abstract segment with generation off must not route to a
	// generated scene.
	seg := models.Segment{Text: "Imagine a future built on sustainable energy"}

	d := Route(seg, false)
	if d.Primary == StrategyGeneratedScene {
		t.Errorf("generated scene routed while disabled")
	}
}

func TestRouteSceneBlockedByEntities(t *testing.T) {
	// Abstract keywords with a named driver still prefer real media.
	seg := models.Segment{Text: "Verstappen imagines a future of sustainable racing innovation"}

	d := Route(seg, true)
	if d.Primary == StrategyGeneratedScene {
		t.Errorf("generated scene routed despite entities present")
	}
}

func TestRouteDefault(t *testing.T) {
	seg := models.Segment{Text: "It was a quiet sunny afternoon at the track"}

	d := Route(seg, false)

	if d.Primary != StrategyStaticImage {
		t.Fatalf("primary = %v, want static_image", d.Primary)
	}
	if d.Fallback != StrategyPresenter {
		t.Errorf("fallback = %v, want presenter", d.Fallback)
	}
	if d.Confidence != 0.6 {
		t.Errorf("confidence = %v, want 0.6", d.Confidence)
	}
	if len(d.SearchQueries) == 0 {
		t.Error("expected generic default queries")
	}
}

func TestRouteOverride(t *testing.T) {
	seg := models.Segment{
		Text:       "It was a quiet sunny afternoon at the track",
		VisualType: "presenter",
	}

	d := Route(seg, false)

	if d.Primary != StrategyPresenter {
		t.Fatalf("primary = %v, want presenter override", d.Primary)
	}
	if d.Confidence != 1.0 {
		t.Errorf("confidence = %v, want 1.0", d.Confidence)
	}
	if d.Rule != "override" {
		t.Errorf("rule = %q, want override", d.Rule)
	}
}

func TestBuildSearchQueriesCapsAndOverride(t *testing.T) {
	seg := models.Segment{
		Text:         "Verstappen, Hamilton, Leclerc and Norris with Red Bull, Mercedes and Ferrari",
		FootageQuery: "2024 season opener",
	}
	entities := DetectEntities(seg.Text)

	queries := buildSearchQueries(seg, entities)

	// Two drivers, two teams, plus the author query.
	if len(queries) != 5 {
		t.Fatalf("queries = %v, want 5 entries", queries)
	}
	if queries[len(queries)-1] != "2024 season opener" {
		t.Errorf("last query = %q, want the author query", queries[len(queries)-1])
	}
}

func TestBuildSearchQueriesSkipsGraphicDirective(t *testing.T) {
	seg := models.Segment{
		Text:         "Hamilton at the factory",
		FootageQuery: "GRAPHIC: fuel flow diagram",
	}
	entities := DetectEntities(seg.Text)

	for _, q := range buildSearchQueries(seg, entities) {
		if q == "GRAPHIC: fuel flow diagram" {
			t.Errorf("graphic directive leaked into search queries: %v", q)
		}
	}
}
