package providers

import "context"

// PortraitSearch finds a headshot for a named person by walking the
// image backends in rank order with a few query variants.
type PortraitSearch struct {
	Run     *RunContext
	Sources []Backend
}

func (p *PortraitSearch) Find(ctx context.Context, name string) (Candidate, bool) {
	queries := []string{
		name + " portrait",
		name + " F1",
		name + " Formula 1",
	}

	for _, query := range queries {
		for _, backend := range p.Sources {
			if cands := p.Run.Search(ctx, backend, query, 2); len(cands) > 0 {
				return cands[0], true
			}
		}
	}
	return Candidate{}, false
}
