package reconcile

import (
	"strings"
	"unicode"
)

// SplitRingName splits a full ring body name as reported by the game
// ("Paesia 2 A Ring") into the body part ("2") and the ring label ("A Ring")
// relative to the system name. Names that do not carry a ring suffix return
// the whole remainder as the body and an empty ring label.
//
// The system name prefix is matched case-insensitively and stripped
// token-wise, which also absorbs the duplicate-identity artifacts produced
// by naive string splitting upstream: a body name like "21991 2 A Ring" for
// system "HIP 21991" still reduces to body "2".
func SplitRingName(systemName, fullName string) (body, ringLabel string) {
	tokens := strings.Fields(fullName)
	sysTokens := strings.Fields(systemName)

	// Strip the system name prefix token by token. Partial matches are
	// stripped too: a trailing numeric suffix of the system name glued onto
	// the front of the body name is the known parser artifact.
	i := 0
	for i < len(tokens) && i < len(sysTokens) && strings.EqualFold(tokens[i], sysTokens[i]) {
		i++
	}
	tokens = tokens[i:]
	if i == 0 && len(sysTokens) > 0 {
		// Not a prefix match; check for the artifact case where only the
		// trailing tokens of the system name were concatenated.
		last := sysTokens[len(sysTokens)-1]
		if len(tokens) > 1 && strings.EqualFold(tokens[0], last) && isNumericToken(tokens[0]) {
			tokens = tokens[1:]
		}
	}

	// The ring label is the trailing "<designator> Ring" pair.
	if len(tokens) >= 2 && strings.EqualFold(tokens[len(tokens)-1], "Ring") {
		ringLabel = strings.Join(tokens[len(tokens)-2:], " ")
		tokens = tokens[:len(tokens)-2]
	}

	return strings.Join(tokens, " "), ringLabel
}

func isNumericToken(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
