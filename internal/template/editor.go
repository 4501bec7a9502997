package template

import (
	"errors"
	"fmt"

	"github.com/vittafit/contracts/internal/placeholder"
)

var ErrCursorOutOfRange = errors.New("cursor out of range")

// InsertAt splices the key's literal token into text at the cursor and
// returns the new text with the cursor placed right after the insertion.
// The inputs are never mutated; on error the caller's text and cursor
// remain valid as-is. The host UI owns the interactive widget and
// threads (text, cursor) pairs through here, which keeps undo/redo a
// plain history of returned pairs.
func InsertAt(catalog *placeholder.Catalog, text string, cursor int, key placeholder.Key) (string, int, error) {
	if !catalog.IsRecognized(key) {
		return text, cursor, fmt.Errorf("%w: %s", placeholder.ErrUnknownPlaceholder, key)
	}
	if cursor < 0 || cursor > len(text) {
		return text, cursor, fmt.Errorf("%w: %d", ErrCursorOutOfRange, cursor)
	}
	inserted := text[:cursor] + string(key) + text[cursor:]
	return inserted, cursor + len(key), nil
}

// Preview renders the template for human inspection. Caller-supplied
// values win; any recognized key the caller left out falls back to the
// catalog's example text so the preview stays readable.
func Preview(catalog *placeholder.Catalog, text string, values Values) Result {
	merged := Values{}
	for key, sample := range catalog.SampleValues() {
		merged[key] = sample
	}
	for key, value := range values {
		merged[key] = value
	}
	return Render(catalog, text, merged)
}
