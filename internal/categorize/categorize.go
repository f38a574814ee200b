// Package categorize suggests a category for a merchant name from ordered keyword rules.
package categorize

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Uncategorized is suggested when no rule matches.
const Uncategorized = "Uncategorized"

const (
	ExactConfidence     = 1.0
	SubstringConfidence = 0.8
)

type (
	// Rule maps a keyword to a category name.
	Rule struct {
		Keyword  string
		Category string
	}

	Suggestion struct {
		Category   string
		Confidence float64
	}

	Categorizer struct {
		rules []Rule
	}
)

// New builds a categorizer over rules. Keywords are matched case-insensitively;
// blank keywords are ignored.
func New(rules ...Rule) *Categorizer {
	c := &Categorizer{rules: make([]Rule, 0, len(rules))}
	for _, r := range rules {
		kw := strings.ToLower(strings.TrimSpace(r.Keyword))
		if kw == "" {
			continue
		}
		c.rules = append(c.rules, Rule{Keyword: kw, Category: r.Category})
	}
	return c
}

// Suggest returns the category of the first rule whose keyword occurs in merchant.
func (c *Categorizer) Suggest(merchant string) Suggestion {
	m := strings.ToLower(strings.TrimSpace(merchant))
	if m == "" {
		return Suggestion{Category: Uncategorized}
	}
	for _, r := range c.rules {
		if m == r.Keyword {
			return Suggestion{Category: r.Category, Confidence: ExactConfidence}
		}
		if strings.Contains(m, r.Keyword) {
			return Suggestion{Category: r.Category, Confidence: SubstringConfidence}
		}
	}
	return Suggestion{Category: Uncategorized}
}

// Rules returns a copy of the normalised rule list.
func (c *Categorizer) Rules() []Rule {
	return append([]Rule(nil), c.rules...)
}

type ruleFile struct {
	Categories []struct {
		Name     string   `yaml:"name"`
		Keywords []string `yaml:"keywords"`
	} `yaml:"categories"`
}

// LoadRules reads rules from YAML:
//
//	categories:
//	  - name: Food
//	    keywords: [starbucks, restaurant]
//
// Rule order follows the file.
func LoadRules(r io.Reader) ([]Rule, error) {
	var f ruleFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode category rules: %w", err)
	}

	var rules []Rule
	for i, cat := range f.Categories {
		name := strings.TrimSpace(cat.Name)
		if name == "" {
			return nil, fmt.Errorf("category rules: entry %d has no name", i)
		}
		for _, kw := range cat.Keywords {
			rules = append(rules, Rule{Keyword: kw, Category: name})
		}
	}
	return rules, nil
}

// DefaultRules is the built-in keyword table.
func DefaultRules() []Rule {
	table := []struct {
		category string
		keywords []string
	}{
		{"Food", []string{"starbucks", "mcdonald", "restaurant", "cafe", "coffee", "pizza", "burger", "sushi", "bakery", "grocery", "supermarket", "whole foods", "trader joe"}},
		{"Transport", []string{"uber", "lyft", "taxi", "shell", "chevron", "exxon", "gas station", "parking", "metro", "train", "airline"}},
		{"Shopping", []string{"amazon", "target", "walmart", "ebay", "ikea", "best buy", "apple store"}},
		{"Entertainment", []string{"netflix", "spotify", "cinema", "theater", "steam", "playstation", "disney"}},
		{"Utilities", []string{"electric", "water", "internet", "comcast", "verizon", "at&t", "t-mobile"}},
		{"Health", []string{"pharmacy", "cvs", "walgreens", "hospital", "clinic", "dentist", "gym"}},
		{"Housing", []string{"rent", "mortgage", "landlord"}},
	}
	var rules []Rule
	for _, row := range table {
		for _, kw := range row.keywords {
			rules = append(rules, Rule{Keyword: kw, Category: row.category})
		}
	}
	return rules
}
