package trackentity

import (
	"sort"
	"strings"
	"unicode"
)

// Stem is one isolated component of a recording, produced by source
// separation and addressable through a session-scoped URL.
type Stem struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// TrackDescriptor is the client's mix instruction for one stem.
// A nil volume means the default gain of 1.0.
type TrackDescriptor struct {
	Name   string   `json:"name"`
	Volume *float64 `json:"volume"`
	Mute   bool     `json:"mute"`
}

func (t TrackDescriptor) Gain() float64 {
	if t.Volume == nil {
		return 1.0
	}

	return *t.Volume
}

type MixSpec struct {
	SessionPath string            `json:"session_path"`
	Tracks      []TrackDescriptor `json:"tracks"`
	SoloTrack   string            `json:"solo_track,omitempty"`
}

// StemFileName maps a stem name to its deterministic filename within the
// session directory: lowercased, with path-unsafe characters substituted so
// that a hostile name can never escape the session directory.
func StemFileName(stemName string) string {
	lowered := strings.ToLower(stemName)

	sanitized := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			return r
		}
		return '_'
	}, lowered)

	return sanitized + ".wav"
}

// DisplayName is the client-facing form of a stem name, e.g. "vocals" -> "Vocals".
func DisplayName(stemName string) string {
	if stemName == "" {
		return ""
	}

	runes := []rune(stemName)
	return string(unicode.ToUpper(runes[0])) + string(runes[1:])
}

// conventional model ordering; stems outside this list sort alphabetically after
var stemRank = map[string]int{
	"vocals": 0,
	"drums":  1,
	"bass":   2,
	"other":  3,
	"guitar": 4,
	"piano":  5,
}

// SortStemNames orders stem names in the conventional model order.
func SortStemNames(names []string) {
	sort.SliceStable(names, func(i, j int) bool {
		rankI, knownI := stemRank[names[i]]
		rankJ, knownJ := stemRank[names[j]]

		switch {
		case knownI && knownJ:
			return rankI < rankJ
		case knownI:
			return true
		case knownJ:
			return false
		default:
			return names[i] < names[j]
		}
	})
}
