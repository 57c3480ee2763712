package core

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	goahocorasick "github.com/anknown/ahocorasick"
)

// MaxContentLength is the longest accepted message, counted in characters.
const MaxContentLength = 1000

// scriptMarkers are literal fragments that only appear in script injection attempts.
// They are matched against normalized content, see normalize.
var scriptMarkers = []string{
	"<script",
	"</script",
	"javascript:",
	"vbscript:",
}

// handlerAttr matches an inline event handler attribute inside a tag, e.g. <img onerror=...>.
var handlerAttr = regexp.MustCompile(`(?i)<[a-z][^>]*\son[a-z]+\s*=`)

// tagOpen matches whitespace a browser tolerates between '<', an optional '/', and the tag name.
var tagOpen = regexp.MustCompile(`<\s*(/?)\s*`)

// Validator performs stateless content checks on chat messages.
// It is a defense-in-depth filter; rendering code must still escape output.
type Validator struct {
	markers *goahocorasick.Machine
}

// NewValidator builds the marker automaton.
func NewValidator() (*Validator, error) {
	patterns := make([][]rune, len(scriptMarkers))
	for i, marker := range scriptMarkers {
		patterns[i] = []rune(marker)
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, fmt.Errorf("build marker automaton: %w", err)
	}
	return &Validator{markers: m}, nil
}

// Validate returns nil when content is acceptable, or one of ErrEmptyContent,
// ErrContentTooLong, ErrUnsafeContent.
func (v *Validator) Validate(content string) error {
	if strings.TrimSpace(content) == "" {
		return ErrEmptyContent
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return ErrContentTooLong
	}
	if v.containsMarker(content) || handlerAttr.MatchString(content) {
		return ErrUnsafeContent
	}
	return nil
}

func (v *Validator) containsMarker(content string) bool {
	normalized := normalize(content)
	if len(normalized) == 0 {
		return false
	}
	return len(v.markers.MultiPatternSearch(normalized, true)) > 0
}

// normalize lower-cases content, closes up whitespace after '<' and drops the
// tab and newline characters URL parsers ignore inside a scheme. Spaces
// elsewhere are kept, so "java script:" stays two words.
func normalize(content string) []rune {
	content = tagOpen.ReplaceAllString(content, "<$1")
	normalized := make([]rune, 0, len(content))
	for _, r := range content {
		if r == '\t' || r == '\n' || r == '\r' {
			continue
		}
		normalized = append(normalized, unicode.ToLower(r))
	}
	return normalized
}

// validationMessage maps a Validate error to the reason shown to the sender.
func validationMessage(err error) string {
	switch {
	case errors.Is(err, ErrEmptyContent):
		return MsgEmptyContent
	case errors.Is(err, ErrContentTooLong):
		return MsgContentTooLong
	default:
		return MsgUnsafeContent
	}
}
