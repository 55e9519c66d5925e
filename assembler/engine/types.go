package engine

// Strategy identifies the visual treatment chosen for a segment.
type Strategy int

const (
	StrategyReferenceFootage Strategy = iota
	StrategyStaticImage
	StrategyPresenter
	StrategyQuoteCard
	StrategyGeneratedScene
)

func (s Strategy) String() string {
	switch s {
	case StrategyReferenceFootage:
		return "reference_footage"
	case StrategyStaticImage:
		return "static_image"
	case StrategyPresenter:
		return "presenter"
	case StrategyQuoteCard:
		return "quote_card"
	case StrategyGeneratedScene:
		return "generated_scene"
	default:
		return "unknown"
	}
}

// ParseStrategy maps a script-level visual_type override to a Strategy.
func ParseStrategy(name string) (Strategy, bool) {
	switch name {
	case "footage", "reference_footage", "video":
		return StrategyReferenceFootage, true
	case "image", "static_image", "graphic":
		return StrategyStaticImage, true
	case "presenter", "talking_head":
		return StrategyPresenter, true
	case "quote", "quote_card":
		return StrategyQuoteCard, true
	case "scene", "generated_scene", "animation":
		return StrategyGeneratedScene, true
	}
	return 0, false
}

// VisualDecision is the router's verdict for one segment: a primary
// strategy, a single fallback, and everything the acquisition step
// needs to execute either one.
type VisualDecision struct {
	Primary       Strategy
	Fallback      Strategy
	Confidence    float64
	Rule          string
	SearchQueries []string
	SpeakerName   string
	QuoteText     string
	ScenePrompt   string
}

// MotionEffect is the virtual camera move applied to a still image.
type MotionEffect int

const (
	MotionZoomIn MotionEffect = iota
	MotionZoomOut
	MotionPanLeft
	MotionPanRight
)

func (m MotionEffect) String() string {
	switch m {
	case MotionZoomIn:
		return "zoom_in"
	case MotionZoomOut:
		return "zoom_out"
	case MotionPanLeft:
		return "pan_left"
	case MotionPanRight:
		return "pan_right"
	default:
		return "unknown"
	}
}

// ShotKind tells the renderer how to treat a shot source.
type ShotKind int

const (
	ShotImage ShotKind = iota
	ShotVideo
)

// Shot is one planned slice of a segment's visual.
type Shot struct {
	Source   string
	Kind     ShotKind
	Duration float64
	Motion   MotionEffect
}

// CompositionPlan describes how a segment's visual is cut to match its
// narration audio. Shot durations always sum to TargetDuration.
type CompositionPlan struct {
	Shots              []Shot
	TransitionDuration float64
	TargetDuration     float64
}
