package template

import (
	"strings"

	"github.com/vittafit/contracts/internal/placeholder"
)

type SegmentKind int

const (
	SegmentLiteral SegmentKind = iota
	SegmentPlaceholder
)

// Segment is one token of a template: either a run of literal text or a
// single placeholder occurrence. Text always holds the raw source slice,
// so concatenating segment texts reproduces the input exactly.
type Segment struct {
	Kind SegmentKind
	Text string
	Key  placeholder.Key
}

type WarningKind string

const (
	WarningMissingValue       WarningKind = "MISSING_VALUE"
	WarningUnknownPlaceholder WarningKind = "UNKNOWN_PLACEHOLDER"
)

type Warning struct {
	Kind WarningKind
	Key  placeholder.Key
}

// Values maps placeholder keys to already-formatted display strings.
type Values map[placeholder.Key]string

type Result struct {
	Text     string
	Warnings []Warning
}

// Tokenize splits template text into literal and placeholder segments.
// A placeholder is "{{" + identifier + "}}" where the identifier is
// letters, digits and underscores starting with a letter or underscore.
// Anything else, including an unclosed "{{", stays literal.
func Tokenize(text string) []Segment {
	var segments []Segment
	literalStart := 0
	i := 0
	for i < len(text) {
		open := strings.Index(text[i:], "{{")
		if open < 0 {
			break
		}
		open += i
		end := strings.Index(text[open+2:], "}}")
		if end < 0 {
			break
		}
		ident := text[open+2 : open+2+end]
		if !validIdentifier(ident) {
			i = open + 2
			continue
		}
		if open > literalStart {
			segments = append(segments, Segment{Kind: SegmentLiteral, Text: text[literalStart:open]})
		}
		token := text[open : open+2+end+2]
		segments = append(segments, Segment{
			Kind: SegmentPlaceholder,
			Text: token,
			Key:  placeholder.Key(token),
		})
		literalStart = open + 2 + end + 2
		i = literalStart
	}
	if literalStart < len(text) {
		segments = append(segments, Segment{Kind: SegmentLiteral, Text: text[literalStart:]})
	}
	return segments
}

// Render substitutes placeholders in a single pass over the token
// sequence. Values are spliced in verbatim: they are never re-scanned
// for placeholder syntax and never evaluated, so attacker-controlled
// values cannot expand into anything. Recognized keys with no value
// become the empty string plus a MissingValue warning; keys outside the
// catalog are left untouched plus an UnknownPlaceholder warning.
// Rendering the same inputs twice yields byte-identical output.
func Render(catalog *placeholder.Catalog, text string, values Values) Result {
	var b strings.Builder
	var warnings []Warning
	for _, seg := range Tokenize(text) {
		if seg.Kind == SegmentLiteral {
			b.WriteString(seg.Text)
			continue
		}
		if value, ok := values[seg.Key]; ok {
			b.WriteString(value)
			continue
		}
		if catalog.IsRecognized(seg.Key) {
			warnings = append(warnings, Warning{Kind: WarningMissingValue, Key: seg.Key})
			continue
		}
		b.WriteString(seg.Text)
		warnings = append(warnings, Warning{Kind: WarningUnknownPlaceholder, Key: seg.Key})
	}
	return Result{Text: b.String(), Warnings: warnings}
}

// PlaceholderKeys returns the distinct placeholder keys of a template in
// order of first occurrence.
func PlaceholderKeys(text string) []placeholder.Key {
	var keys []placeholder.Key
	seen := make(map[placeholder.Key]struct{})
	for _, seg := range Tokenize(text) {
		if seg.Kind != SegmentPlaceholder {
			continue
		}
		if _, ok := seen[seg.Key]; ok {
			continue
		}
		seen[seg.Key] = struct{}{}
		keys = append(keys, seg.Key)
	}
	return keys
}

func validIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r == '_':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
