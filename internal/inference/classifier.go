// Package inference maps free-form text to spending categories and merchant
// guesses using ordered keyword tables. Every function is pure and total.
package inference

import (
	"fmt"
	"regexp"
	"strings"
)

type compiledRule struct {
	re    *regexp.Regexp
	label string
}

// Classifier evaluates an ordered rule table, first match wins.
type Classifier struct {
	fallback string
	rules    []compiledRule
}

// NewClassifier compiles rules in the given order. Keywords are quoted, so
// they match literally.
func NewClassifier(rules []Rule, fallback string) (*Classifier, error) {
	if strings.TrimSpace(fallback) == "" {
		return nil, fmt.Errorf("classifier fallback label cannot be empty")
	}

	compiled := make([]compiledRule, 0, len(rules))
	for i, r := range rules {
		if strings.TrimSpace(r.Label) == "" {
			return nil, fmt.Errorf("rule %d has no label", i)
		}

		alts := make([]string, 0, len(r.Keywords))
		for _, kw := range r.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" {
				continue
			}
			alts = append(alts, regexp.QuoteMeta(kw))
		}
		if len(alts) == 0 {
			return nil, fmt.Errorf("rule %q has no keywords", r.Label)
		}

		re, err := regexp.Compile(strings.Join(alts, "|"))
		if err != nil {
			return nil, fmt.Errorf("failed to compile rule %q: %w", r.Label, err)
		}
		compiled = append(compiled, compiledRule{label: r.Label, re: re})
	}

	return &Classifier{rules: compiled, fallback: fallback}, nil
}

// MustClassifier is NewClassifier for tables known at compile time.
func MustClassifier(rules []Rule, fallback string) *Classifier {
	c, err := NewClassifier(rules, fallback)
	if err != nil {
		panic(err)
	}
	return c
}

// Classify returns the label of the first matching rule, or the fallback.
func (c *Classifier) Classify(text string) string {
	label, _ := c.Match(text)
	return label
}

// Match is Classify that also reports whether a rule matched.
func (c *Classifier) Match(text string) (string, bool) {
	normalized := strings.ToLower(text)
	for _, r := range c.rules {
		if r.re.MatchString(normalized) {
			return r.label, true
		}
	}
	return c.fallback, false
}

// Labels lists every value Classify can return, in rule order, fallback last.
func (c *Classifier) Labels() []string {
	seen := make(map[string]struct{}, len(c.rules)+1)
	labels := make([]string, 0, len(c.rules)+1)
	for _, r := range c.rules {
		if _, ok := seen[r.label]; ok {
			continue
		}
		seen[r.label] = struct{}{}
		labels = append(labels, r.label)
	}
	if _, ok := seen[c.fallback]; !ok {
		labels = append(labels, c.fallback)
	}
	return labels
}

var (
	textClassifier     = MustClassifier(TextRules(), CategoryGeneral)
	filenameClassifier = MustClassifier(FilenameRules(), CategoryGeneral)
	merchantClassifier = MustClassifier(MerchantRules(), DefaultMerchant)
)

// CategoryOf classifies free text, e.g. a transcribed utterance.
func CategoryOf(text string) string {
	return textClassifier.Classify(text)
}

// FilenameCategory classifies an uploaded file name.
func FilenameCategory(name string) string {
	return filenameClassifier.Classify(name)
}

// GuessMerchant guesses the merchant named in a file name.
func GuessMerchant(name string) string {
	return merchantClassifier.Classify(name)
}

// Taxonomy lists every category the default tables can produce.
func Taxonomy() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, c := range []*Classifier{textClassifier, filenameClassifier} {
		for _, label := range c.Labels() {
			if _, ok := seen[label]; ok {
				continue
			}
			seen[label] = struct{}{}
			out = append(out, label)
		}
	}
	return out
}
