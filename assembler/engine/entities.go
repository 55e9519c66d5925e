package engine

import (
	"regexp"
	"strings"
)

// lexEntry pairs a lowercase surface form with a canonical name.
// Entries are scanned in order so detection output is deterministic.
type lexEntry struct {
	key  string
	name string
}

var driverLexicon = []lexEntry{
	{"verstappen", "Max Verstappen"}, {"hamilton", "Lewis Hamilton"},
	{"leclerc", "Charles Leclerc"}, {"norris", "Lando Norris"},
	{"sainz", "Carlos Sainz"}, {"russell", "George Russell"},
	{"perez", "Sergio Perez"}, {"alonso", "Fernando Alonso"},
	{"stroll", "Lance Stroll"}, {"ocon", "Esteban Ocon"},
	{"gasly", "Pierre Gasly"}, {"tsunoda", "Yuki Tsunoda"},
	{"ricciardo", "Daniel Ricciardo"}, {"bottas", "Valtteri Bottas"},
	{"piastri", "Oscar Piastri"}, {"lawson", "Liam Lawson"},
	{"antonelli", "Kimi Antonelli"}, {"bearman", "Oliver Bearman"},
	{"schumacher", "Michael Schumacher"}, {"senna", "Ayrton Senna"},
	{"vettel", "Sebastian Vettel"}, {"raikkonen", "Kimi Raikkonen"},
	{"wolff", "Toto Wolff"}, {"horner", "Christian Horner"},
	{"binotto", "Mattia Binotto"}, {"brown", "Zak Brown"},
	{"newey", "Adrian Newey"}, {"brawn", "Ross Brawn"},
}

var teamLexicon = []lexEntry{
	{"red bull", "Red Bull Racing"}, {"mercedes", "Mercedes F1"},
	{"ferrari", "Scuderia Ferrari"}, {"mclaren", "McLaren F1"},
	{"aston martin", "Aston Martin F1"}, {"alpine", "Alpine F1"},
	{"williams", "Williams Racing"}, {"haas", "Haas F1"},
	{"sauber", "Sauber F1"}, {"rb", "RB F1 Team"},
}

var partnerLexicon = []lexEntry{
	{"aramco", "Saudi Aramco"}, {"shell", "Shell"},
	{"petronas", "Petronas"}, {"mobil", "ExxonMobil"},
	{"castrol", "Castrol"}, {"bp", "BP"}, {"gulf", "Gulf Oil"},
}

var conceptKeywords = []string{
	"how", "why", "explain", "concept", "basically", "essentially",
	"fundamentally", "process", "mechanism", "chemistry", "physics",
	"engineering", "fischer-tropsch", "syngas", "catalyst", "molecule",
	"carbon capture", "efficiency", "thermal", "combustion",
	"compression ratio", "power unit", "mgu-h", "mgu-k", "hybrid",
}

var actionKeywords = []string{
	"race", "racing", "overtake", "crash", "pit stop", "start",
	"finish", "podium", "celebration", "onboard", "battle",
	"wheel to wheel", "championship", "victory", "dramatic",
}

// Keywords that suggest a generated cinematic scene would fit better
// than real footage.
var sceneKeywords = []string{
	"future", "vision", "imagine", "revolution", "transformation",
	"evolution", "innovation", "breakthrough", "paradigm", "frontier",
	"molecular", "atomic", "chemical reaction", "synthesis",
	"production facility", "industrial", "manufacturing",
	"wind tunnel", "aerodynamic", "simulation",
}

// Prompt templates for common scene generation scenarios
var scenePrompts = map[string]string{
	"fuel_production": "Industrial fuel production facility with advanced chemistry equipment, glowing reactors, sustainable energy, futuristic laboratory",
	"carbon_capture":  "Carbon capture technology visualization, CO2 molecules being absorbed, green industrial facility, environmental technology",
	"engine_tech":     "Formula 1 power unit internal visualization, turbo spinning, energy flow through MGU-K, high-tech engineering",
	"wind_tunnel":     "F1 car in wind tunnel, smoke particles flowing over aerodynamic bodywork, technical testing facility",
	"chemistry":       "Chemical synthesis process visualization, molecular bonds forming, laboratory equipment, scientific innovation",
	"factory":         "High-tech F1 factory floor, carbon fiber components being manufactured, robotic precision, clean room environment",
	"data_analysis":   "F1 data analysis visualization, telemetry streams, holographic displays, race strategy simulation",
	"sustainable":     "Sustainable energy technology, green fuel production, environmental innovation, clean energy future",
}

// scenePromptTriggers is evaluated in order, first match wins.
var scenePromptTriggers = []struct {
	bucket   string
	keywords []string
}{
	{"fuel_production", []string{"fuel production", "sustainable fuel", "synthetic fuel"}},
	{"carbon_capture", []string{"carbon capture", "co2", "carbon dioxide"}},
	{"engine_tech", []string{"power unit", "engine", "mgu", "turbo"}},
	{"wind_tunnel", []string{"wind tunnel", "aerodynamic", "downforce"}},
	{"chemistry", []string{"chemistry", "chemical", "molecule", "synthesis", "fischer-tropsch"}},
	{"factory", []string{"factory", "manufacturing", "production"}},
	{"data_analysis", []string{"data", "telemetry", "analysis", "strategy"}},
	{"sustainable", []string{"sustainable", "green", "environment", "future"}},
}

// Entities holds canonical names detected in a piece of text.
type Entities struct {
	Drivers      []string
	Teams        []string
	FuelPartners []string
}

// Any reports whether at least one entity of any kind was found.
func (e Entities) Any() bool {
	return len(e.Drivers) > 0 || len(e.Teams) > 0 || len(e.FuelPartners) > 0
}

// DetectEntities scans text for known drivers, teams and fuel partners.
func DetectEntities(text string) Entities {
	lower := strings.ToLower(text)
	var out Entities
	for _, e := range driverLexicon {
		if strings.Contains(lower, e.key) {
			out.Drivers = append(out.Drivers, e.name)
		}
	}
	for _, e := range teamLexicon {
		if strings.Contains(lower, e.key) {
			out.Teams = append(out.Teams, e.name)
		}
	}
	for _, e := range partnerLexicon {
		if strings.Contains(lower, e.key) {
			out.FuelPartners = append(out.FuelPartners, e.name)
		}
	}
	return out
}

var quotePattern = regexp.MustCompile(`"([^"]{20,})"`)

// speakerPatterns are tried in order, first capture wins.
var speakerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`([A-Z][a-z]+ [A-Z][a-z]+) (?:said|stated|explained|mentioned|noted)`),
	regexp.MustCompile(`(?:said|stated|explained) ([A-Z][a-z]+ [A-Z][a-z]+)`),
	regexp.MustCompile(`as ([A-Z][a-z]+ [A-Z][a-z]+) (?:put it|noted|explained)`),
	regexp.MustCompile(`according to ([A-Z][a-z]+ [A-Z][a-z]+)`),
}

var speechVerbs = []string{"said", "stated", "explained", "according"}

// DetectQuote looks for a quotation of at least 20 characters and tries
// to attribute it. Attribution first tries explicit speaker phrasings,
// then falls back to a lexicon name near a speech verb.
func DetectQuote(text string) (speaker, quote string) {
	if m := quotePattern.FindStringSubmatch(text); m != nil {
		quote = m[1]
	}

	for _, p := range speakerPatterns {
		if m := p.FindStringSubmatch(text); m != nil {
			speaker = m[1]
			break
		}
	}

	if speaker == "" {
		lower := strings.ToLower(text)
		hasVerb := false
		for _, v := range speechVerbs {
			if strings.Contains(lower, v) {
				hasVerb = true
				break
			}
		}
		if hasVerb {
			for _, e := range driverLexicon {
				if strings.Contains(lower, e.key) {
					speaker = e.name
					break
				}
			}
		}
	}

	return speaker, quote
}

// ScenePromptFor picks a generation prompt template matching the text,
// or returns empty when nothing fits.
func ScenePromptFor(text, context string) string {
	lower := strings.ToLower(text + " " + context)
	for _, t := range scenePromptTriggers {
		for _, kw := range t.keywords {
			if strings.Contains(lower, kw) {
				return scenePrompts[t.bucket]
			}
		}
	}
	return ""
}

func containsAny(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
