package safechat

import "strings"

var emergencyRequestMarkers = []string{"emergency", "contact", "number"}

// locationHintPhrases indicate the user expects their own location to be
// inferred, which we cannot do; the formatter explains that instead of
// silently falling back to the generic international footer.
var locationHintPhrases = []string{"my country", "here", "where i live"}

// IsEmergencyRequest reports whether the message looks like a request for
// emergency contact information. This is a deliberately coarse keyword check:
// it false-positives on unrelated messages containing these words and misses
// emergency requests phrased without them.
func IsEmergencyRequest(message string) bool {
	lowered := strings.ToLower(message)
	for _, marker := range emergencyRequestMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}

// ExtractCountry scans the message for a known country name or alias and
// returns the directory key it maps to. The first match in longest-alias-first
// order wins; multiple countries in one message are not disambiguated. When no
// country is found the international key is returned, with locationHinted set
// if the message asked about the user's own location.
func (d *ContactDirectory) ExtractCountry(message string) (key string, explicit bool, locationHinted bool) {
	lowered := strings.ToLower(message)

	for _, entry := range d.aliases {
		if strings.Contains(lowered, entry.alias) {
			return entry.key, true, false
		}
	}

	for _, phrase := range locationHintPhrases {
		if strings.Contains(lowered, phrase) {
			return InternationalKey, false, true
		}
	}
	return InternationalKey, false, false
}
