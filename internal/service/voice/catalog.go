package voice

// PlayAI voices exposed by the synthesis endpoint.
var Voices = map[string]string{
	"Arista-PlayAI":   "bright, youthful female voice",
	"Celeste-PlayAI":  "soft, calm female voice",
	"Cheyenne-PlayAI": "warm, friendly female voice",
	"Quinn-PlayAI":    "energetic female voice",
	"Atlas-PlayAI":    "deep, steady male voice",
	"Basil-PlayAI":    "relaxed male voice",
	"Briggs-PlayAI":   "gravelly male voice",
	"Calum-PlayAI":    "light, conversational male voice",
}

// Synthesis speed bounds accepted upstream.
const (
	SpeedMin = 0.5
	SpeedMax = 2.0
)

// SampleRates lists output rates the synthesis endpoint supports.
var SampleRates = []int{8000, 16000, 22050, 24000, 32000, 44100, 48000}

// DefaultSampleRate is used when a client does not ask for one.
const DefaultSampleRate = 48000

// NormalizeVoice maps any requested voice onto a known one, falling back to
// fallback for unknown or empty input.
func NormalizeVoice(requested, fallback string) string {
	if _, ok := Voices[requested]; ok {
		return requested
	}
	return fallback
}

// ClampSpeed bounds a synthesis speed, substituting fallback for zero.
func ClampSpeed(speed, fallback float32) float32 {
	if speed == 0 {
		speed = fallback
	}
	if speed < SpeedMin {
		return SpeedMin
	}
	if speed > SpeedMax {
		return SpeedMax
	}
	return speed
}
