package normalizer

import (
	"regexp"
	"strings"
)

// nonWordPattern matches every rune that is not a letter, number, underscore,
// whitespace or '#'. Letters and numbers are Unicode-aware so Amharic and
// other non-Latin channel text survives cleaning.
var nonWordPattern = regexp.MustCompile(`[^\p{L}\p{N}_\s#]`)

// CleanText replaces special characters with spaces, collapses whitespace
// runs and trims the result. A nil value is returned unchanged.
func CleanText(value *string) *string {
	if value == nil {
		return nil
	}

	cleaned := nonWordPattern.ReplaceAllString(*value, " ")
	cleaned = strings.Join(strings.Fields(cleaned), " ")

	return &cleaned
}
