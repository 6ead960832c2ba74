// Package moderation masks forbidden words in outgoing message text.
package moderation

import (
	"log/slog"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
	"github.com/samber/lo"
)

// Moderator matches a fixed dictionary against message text, ignoring case,
// punctuation and common leet substitutions.
type Moderator struct {
	log          *slog.Logger
	matcher      *goahocorasick.Machine
	censoredChar rune
}

// folded is the searchable form of a text with, for each kept rune,
// its position in the original text.
type folded struct {
	runes []rune
	index []int
}

// NewModerator builds the automaton. Entries made only of noise are dropped.
// An empty dictionary yields a Moderator that never censors.
func NewModerator(censoredWords []string, censoredChar rune, log *slog.Logger) (*Moderator, error) {
	patterns := lo.FilterMap(censoredWords, func(word string, _ int) ([]rune, bool) {
		f := fold(word)
		return f.runes, len(f.runes) > 0
	})
	mod := &Moderator{log: log, censoredChar: censoredChar}
	if len(patterns) == 0 {
		return mod, nil
	}
	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, err
	}
	mod.matcher = m
	return mod, nil
}

// Censor masks every match with the censor character, keeping the text length.
// It returns the matched dictionary words in order of appearance.
func (m *Moderator) Censor(text string) (string, []string) {
	if m == nil || m.matcher == nil {
		return text, nil
	}
	f := fold(text)
	if len(f.runes) == 0 {
		return text, nil
	}
	terms := m.matcher.MultiPatternSearch(f.runes, false)
	if len(terms) == 0 {
		return text, nil
	}

	out := []rune(text)
	var words []string
	for _, term := range terms {
		start, end := term.Pos, term.Pos+len(term.Word)
		if start < 0 || end > len(f.index) {
			continue
		}
		for i := f.index[start]; i <= f.index[end-1]; i++ {
			out[i] = m.censoredChar
		}
		words = append(words, string(term.Word))
	}
	m.log.Debug("Message censored", "words", len(words))
	return string(out), words
}

func fold(input string) folded {
	runes := []rune(input)
	f := folded{runes: make([]rune, 0, len(runes)), index: make([]int, 0, len(runes))}
	for i, r := range runes {
		r = unleet(r)
		if unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r) {
			continue
		}
		f.runes = append(f.runes, unicode.ToLower(r))
		f.index = append(f.index, i)
	}
	return f
}

func unleet(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3', '€':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	default:
		return r
	}
}
