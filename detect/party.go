package detect

import (
	"slices"
	"time"
)

// Party is the collection of Families produced by a detection run. Parties
// compose additively: families are merged by template name, so results of
// several template groups or data chunks can be combined.
type Party struct {
	families []*Family
	index    map[string]int
}

// NewParty returns an empty Party.
func NewParty() *Party {
	return &Party{index: make(map[string]int)}
}

// Add merges f into the party. A family for a template already present has
// its detections appended. Families with no detections are kept so that
// every searched template is represented.
func (p *Party) Add(f *Family) {
	if p.index == nil {
		p.index = make(map[string]int)
	}

	if i, ok := p.index[f.Name()]; ok {
		p.families[i].Detections = append(p.families[i].Detections, f.Detections...)
		return
	}

	p.index[f.Name()] = len(p.families)
	p.families = append(p.families, &Family{
		Template:   f.Template,
		Detections: slices.Clone(f.Detections),
	})
}

// Merge adds every family of other.
func (p *Party) Merge(other *Party) {
	if other == nil {
		return
	}

	for _, f := range other.families {
		p.Add(f)
	}
}

// Families returns the families in order of first appearance.
func (p *Party) Families() []*Family { return p.families }

// Family returns the family of the named template.
func (p *Party) Family(name string) (*Family, bool) {
	i, ok := p.index[name]
	if !ok {
		return nil, false
	}

	return p.families[i], true
}

// Len returns the total number of detections.
func (p *Party) Len() int {
	n := 0
	for _, f := range p.families {
		n += f.Len()
	}

	return n
}

// Detections returns every detection ordered by time, then template name.
func (p *Party) Detections() []*Detection {
	var out []*Detection
	for _, f := range p.families {
		out = append(out, f.Detections...)
	}

	slices.SortStableFunc(out, func(a, b *Detection) int {
		if c := a.DetectTime.Compare(b.DetectTime); c != 0 {
			return c
		}

		switch {
		case a.TemplateName < b.TemplateName:
			return -1
		case a.TemplateName > b.TemplateName:
			return 1
		default:
			return 0
		}
	})

	return out
}

// Finalize declusters every family with the trigger interval.
func (p *Party) Finalize(trigInt time.Duration) {
	for _, f := range p.families {
		f.Decluster(trigInt)
	}
}
