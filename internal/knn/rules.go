// ABOUTME: Ordered keyword redirect rules applied after the k-NN vote
// ABOUTME: Each rule pairs a text predicate with a target label; the first match wins
package knn

import (
	"fmt"
	"os"
	"regexp"
	"slices"

	"gopkg.in/yaml.v3"
)

// RedirectRule moves a voted label to Target when its predicate holds.
// WhenLabels limits the rule to those voted labels; empty means any label.
// AnyPatterns needs at least one hit, AllPatterns needs every pattern, and
// NonePatterns must all miss.
type RedirectRule struct {
	Name         string   `yaml:"name"`
	WhenLabels   []string `yaml:"when_labels"`
	AnyPatterns  []string `yaml:"any"`
	AllPatterns  []string `yaml:"all"`
	NonePatterns []string `yaml:"none"`
	Target       string   `yaml:"target"`

	anyRe  []*regexp.Regexp
	allRe  []*regexp.Regexp
	noneRe []*regexp.Regexp
}

type rulesFile struct {
	Rules []RedirectRule `yaml:"rules"`
}

// ParseRules decodes and compiles a YAML rule list.
func ParseRules(data []byte) ([]RedirectRule, error) {
	var f rulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	for i := range f.Rules {
		if err := f.Rules[i].Compile(); err != nil {
			return nil, err
		}
	}
	return f.Rules, nil
}

// LoadRules reads a YAML rule file.
func LoadRules(path string) ([]RedirectRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules %s: %w", path, err)
	}
	return ParseRules(data)
}

// Compile validates the rule and compiles its patterns. Rules built in
// code must be compiled before use; ParseRules does it for file rules.
func (r *RedirectRule) Compile() error {
	if r.Name == "" {
		return fmt.Errorf("redirect rule without a name")
	}
	if r.Target == "" {
		return fmt.Errorf("rule %s: target cannot be empty", r.Name)
	}
	if len(r.AnyPatterns)+len(r.AllPatterns) == 0 {
		return fmt.Errorf("rule %s: needs at least one any/all pattern", r.Name)
	}

	compileAll := func(patterns []string) ([]*regexp.Regexp, error) {
		out := make([]*regexp.Regexp, 0, len(patterns))
		for _, p := range patterns {
			re, err := regexp.Compile(p)
			if err != nil {
				return nil, fmt.Errorf("rule %s: %w", r.Name, err)
			}
			out = append(out, re)
		}
		return out, nil
	}

	var err error
	if r.anyRe, err = compileAll(r.AnyPatterns); err != nil {
		return err
	}
	if r.allRe, err = compileAll(r.AllPatterns); err != nil {
		return err
	}
	r.noneRe, err = compileAll(r.NonePatterns)
	return err
}

// Matches reports whether a compiled rule fires for a voted label and text.
func (r *RedirectRule) Matches(label, text string) bool {
	if len(r.WhenLabels) > 0 && !slices.Contains(r.WhenLabels, label) {
		return false
	}
	if len(r.anyRe) > 0 && !slices.ContainsFunc(r.anyRe, func(re *regexp.Regexp) bool { return re.MatchString(text) }) {
		return false
	}
	for _, re := range r.allRe {
		if !re.MatchString(text) {
			return false
		}
	}
	for _, re := range r.noneRe {
		if re.MatchString(text) {
			return false
		}
	}
	return true
}

// applyRules returns the first matching rule, or nil.
func applyRules(rules []RedirectRule, label, text string) *RedirectRule {
	for i := range rules {
		if rules[i].Matches(label, text) {
			return &rules[i]
		}
	}
	return nil
}
