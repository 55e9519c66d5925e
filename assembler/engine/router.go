package engine

import (
	"fmt"
	"strings"

	"video_narrator/assembler/models"
)

// routeInput carries everything a routing rule may inspect. It is
// computed once per segment so rules stay cheap and side effect free.
type routeInput struct {
	seg        models.Segment
	lower      string
	entities   Entities
	speaker    string
	quote      string
	scene      string
	queries    []string
	allowScene bool
	isConcept  bool
	isAction   bool
	isSceneFit bool
}

// routeRule is one rung of the decision ladder. Rules are evaluated in
// order and the first rule whose match function returns true decides.
type routeRule struct {
	name   string
	match  func(in routeInput) bool
	decide func(in routeInput) VisualDecision
}

var routeRules = []routeRule{
	{
		name: "attributed_quote",
		match: func(in routeInput) bool {
			return in.speaker != "" && in.quote != ""
		},
		decide: func(in routeInput) VisualDecision {
			return VisualDecision{
				Primary:    StrategyQuoteCard,
				Fallback:   StrategyReferenceFootage,
				Confidence: 0.95,
				SearchQueries: []string{
					in.speaker + " F1",
					in.speaker + " portrait",
				},
				SpeakerName: in.speaker,
				QuoteText:   in.quote,
			}
		},
	},
	{
		name: "abstract_scene",
		match: func(in routeInput) bool {
			return in.allowScene && in.isSceneFit && !in.entities.Any() && in.scene != ""
		},
		decide: func(in routeInput) VisualDecision {
			return VisualDecision{
				Primary:       StrategyGeneratedScene,
				Fallback:      StrategyPresenter,
				Confidence:    0.85,
				SearchQueries: orDefault(in.queries, "F1 technology"),
				ScenePrompt:   in.scene,
			}
		},
	},
	{
		name: "action_footage",
		match: func(in routeInput) bool {
			return in.isAction && in.entities.Any()
		},
		decide: func(in routeInput) VisualDecision {
			return VisualDecision{
				Primary:       StrategyReferenceFootage,
				Fallback:      StrategyStaticImage,
				Confidence:    0.85,
				SearchQueries: orDefault(in.queries, "F1 "+in.seg.Context),
			}
		},
	},
	{
		name: "entity_image",
		match: func(in routeInput) bool {
			return in.entities.Any() && !in.isConcept
		},
		decide: func(in routeInput) VisualDecision {
			return VisualDecision{
				Primary:       StrategyStaticImage,
				Fallback:      StrategyPresenter,
				Confidence:    0.9,
				SearchQueries: orDefault(in.queries, "F1 "+in.seg.Context),
			}
		},
	},
	{
		name: "concept_presenter",
		match: func(in routeInput) bool {
			return in.isConcept
		},
		decide: func(in routeInput) VisualDecision {
			fallback := StrategyStaticImage
			if in.allowScene && in.scene != "" {
				fallback = StrategyGeneratedScene
			}
			return VisualDecision{
				Primary:       StrategyPresenter,
				Fallback:      fallback,
				Confidence:    0.8,
				SearchQueries: orDefault(in.queries, "F1 technology", "motorsport engineering"),
				ScenePrompt:   in.scene,
			}
		},
	},
	{
		name: "default_image",
		match: func(in routeInput) bool {
			return true
		},
		decide: func(in routeInput) VisualDecision {
			return VisualDecision{
				Primary:       StrategyStaticImage,
				Fallback:      StrategyPresenter,
				Confidence:    0.6,
				SearchQueries: orDefault(in.queries, "Formula 1 racing", "F1 car"),
			}
		},
	},
}

// Route decides the visual treatment for a segment. An explicit
// visual_type override in the script wins outright, otherwise the rule
// ladder runs top to bottom. allowScene gates generated scenes for runs
// without a generation backend.
func Route(seg models.Segment, allowScene bool) VisualDecision {
	combined := seg.Text + " " + seg.Context + " " + seg.FootageQuery
	lower := strings.ToLower(combined)

	speaker, quote := DetectQuote(seg.Text)
	entities := DetectEntities(combined)

	scene := seg.ScenePrompt
	if scene == "" {
		scene = ScenePromptFor(seg.Text, seg.Context)
	}

	in := routeInput{
		seg:        seg,
		lower:      lower,
		entities:   entities,
		speaker:    speaker,
		quote:      quote,
		scene:      scene,
		queries:    buildSearchQueries(seg, entities),
		allowScene: allowScene,
		isConcept:  containsAny(lower, conceptKeywords),
		isAction:   containsAny(lower, actionKeywords),
		isSceneFit: containsAny(lower, sceneKeywords),
	}

	if strat, ok := ParseStrategy(seg.VisualType); ok {
		return overrideDecision(strat, in)
	}

	for _, rule := range routeRules {
		if rule.match(in) {
			d := rule.decide(in)
			d.Rule = rule.name
			return d
		}
	}

	// The default rule matches everything so this is unreachable.
	return VisualDecision{Primary: StrategyStaticImage, Fallback: StrategyPresenter, Confidence: 0.6}
}

// overrideDecision honors an author override with full confidence but
// still derives queries and prompts so acquisition can run.
func overrideDecision(strat Strategy, in routeInput) VisualDecision {
	d := VisualDecision{
		Primary:       strat,
		Confidence:    1.0,
		Rule:          "override",
		SearchQueries: orDefault(in.queries, "F1 "+in.seg.Context),
		SpeakerName:   in.speaker,
		QuoteText:     in.quote,
		ScenePrompt:   in.scene,
	}
	switch strat {
	case StrategyReferenceFootage:
		d.Fallback = StrategyStaticImage
	case StrategyGeneratedScene, StrategyQuoteCard:
		d.Fallback = StrategyReferenceFootage
	default:
		d.Fallback = StrategyStaticImage
	}
	if strat == StrategyStaticImage {
		d.Fallback = StrategyPresenter
	}
	return d
}

// buildSearchQueries derives provider queries from detected entities:
// up to two drivers, up to two teams, one fuel partner, plus any author
// supplied footage query.
func buildSearchQueries(seg models.Segment, entities Entities) []string {
	var queries []string
	for i, driver := range entities.Drivers {
		if i >= 2 {
			break
		}
		queries = append(queries, fmt.Sprintf("%s F1 2024", driver))
	}
	for i, team := range entities.Teams {
		if i >= 2 {
			break
		}
		queries = append(queries, fmt.Sprintf("%s F1 car", team))
	}
	for i, partner := range entities.FuelPartners {
		if i >= 1 {
			break
		}
		queries = append(queries, fmt.Sprintf("%s F1", partner))
	}

	if q := strings.TrimSpace(seg.FootageQuery); q != "" && !strings.HasPrefix(q, "GRAPHIC:") {
		queries = append(queries, q)
	}

	return queries
}

func orDefault(queries []string, defaults ...string) []string {
	if len(queries) > 0 {
		return queries
	}
	return defaults
}
