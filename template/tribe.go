package template

import (
	"fmt"
	"time"
)

// Tribe is a collection of templates that may have been cut with different
// processing.
type Tribe struct {
	Templates []*Template
}

// Len returns the number of templates.
func (tr *Tribe) Len() int { return len(tr.Templates) }

// Names returns the template names in order.
func (tr *Tribe) Names() []string {
	out := make([]string, len(tr.Templates))
	for i, t := range tr.Templates {
		out[i] = t.Name
	}

	return out
}

// Get returns the template with the given name.
func (tr *Tribe) Get(name string) (*Template, bool) {
	for _, t := range tr.Templates {
		if t.Name == name {
			return t, true
		}
	}

	return nil, false
}

// Validate checks every template and rejects duplicate names.
func (tr *Tribe) Validate() error {
	seen := make(map[string]bool, len(tr.Templates))

	for _, t := range tr.Templates {
		if err := t.Validate(); err != nil {
			return err
		}

		if seen[t.Name] {
			return fmt.Errorf("%w: duplicate template name %q", ErrInvalid, t.Name)
		}

		seen[t.Name] = true
	}

	return nil
}

// Groups partitions the tribe into groups of templates with identical
// processing and length. Groups appear in order of their first template and
// keep template order within a group.
func (tr *Tribe) Groups() [][]*Template {
	type key struct {
		p Processing
		n int
	}

	index := make(map[key]int)

	var groups [][]*Template

	for _, t := range tr.Templates {
		k := key{t.Processing, t.Len()}

		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, nil)
		}

		groups[i] = append(groups[i], t)
	}

	return groups
}

// MaxSpan returns the largest channel start spread over all templates.
func (tr *Tribe) MaxSpan() time.Duration {
	var span time.Duration

	for _, t := range tr.Templates {
		if s := t.Span(); s > span {
			span = s
		}
	}

	return span
}

// MaxProcessLength returns the longest process length in the tribe.
func (tr *Tribe) MaxProcessLength() time.Duration {
	var l time.Duration

	for _, t := range tr.Templates {
		if t.Processing.ProcessLength > l {
			l = t.Processing.ProcessLength
		}
	}

	return l
}
