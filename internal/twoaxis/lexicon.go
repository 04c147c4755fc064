// ABOUTME: Keyword lexicon that refines the model's sentiment after inference
// ABOUTME: Questions with weak sentiment become neutral; lopsided hit counts override the model
package twoaxis

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Lexicon holds compiled sentiment and question patterns.
type Lexicon struct {
	Positive *regexp.Regexp
	Negative *regexp.Regexp
	Question *regexp.Regexp

	PositiveLabel string
	NegativeLabel string
	NeutralLabel  string

	// Margin is the hit count one side needs to override the model.
	Margin int
	// WeakMax is the most hits the other side may have for an override, and
	// the most total hits a question may carry and still be forced neutral.
	WeakMax int
}

type lexiconFile struct {
	Positive      string `yaml:"positive"`
	Negative      string `yaml:"negative"`
	Question      string `yaml:"question"`
	PositiveLabel string `yaml:"positive_label"`
	NegativeLabel string `yaml:"negative_label"`
	NeutralLabel  string `yaml:"neutral_label"`
	Margin        int    `yaml:"margin"`
	WeakMax       *int   `yaml:"weak_max"`
}

// ParseLexicon decodes and compiles a YAML lexicon.
func ParseLexicon(data []byte) (*Lexicon, error) {
	var f lexiconFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse lexicon: %w", err)
	}

	lex := &Lexicon{
		PositiveLabel: orDefault(f.PositiveLabel, SentimentPositive),
		NegativeLabel: orDefault(f.NegativeLabel, SentimentNegative),
		NeutralLabel:  orDefault(f.NeutralLabel, SentimentNeutral),
		Margin:        f.Margin,
		WeakMax:       1,
	}
	if lex.Margin <= 0 {
		lex.Margin = 3
	}
	if f.WeakMax != nil {
		lex.WeakMax = *f.WeakMax
	}

	var err error
	if lex.Positive, err = compile("positive", f.Positive); err != nil {
		return nil, err
	}
	if lex.Negative, err = compile("negative", f.Negative); err != nil {
		return nil, err
	}
	if lex.Question, err = compile("question", f.Question); err != nil {
		return nil, err
	}
	return lex, nil
}

// LoadLexicon reads a YAML lexicon file.
func LoadLexicon(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lexicon %s: %w", path, err)
	}
	return ParseLexicon(data)
}

func compile(name, pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, fmt.Errorf("lexicon %s pattern is empty", name)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("lexicon %s pattern: %w", name, err)
	}
	return re, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// Hits counts positive and negative matches and reports whether text reads
// as a question.
func (l *Lexicon) Hits(text string) (pos, neg int, question bool) {
	pos = len(l.Positive.FindAllStringIndex(text, -1))
	neg = len(l.Negative.FindAllStringIndex(text, -1))
	question = l.Question.MatchString(text)
	return pos, neg, question
}

// Refine returns the sentiment to report and whether it differs from the
// model's. The question rule is checked before the override rule.
func (l *Lexicon) Refine(text, sentiment string) (string, bool) {
	pos, neg, question := l.Hits(text)

	refined := sentiment
	switch {
	case question && pos+neg <= l.WeakMax:
		refined = l.NeutralLabel
	case pos >= l.Margin && neg <= l.WeakMax:
		refined = l.PositiveLabel
	case neg >= l.Margin && pos <= l.WeakMax:
		refined = l.NegativeLabel
	}
	return refined, refined != sentiment
}
