package voice

// Config is the read-only voice configuration served to the frontend.
// It is fetched once and held as client state.
type Config struct {
	Model             string            `json:"model"`
	Voices            map[string]string `json:"voices"` // voice id -> description
	DefaultVoice      string            `json:"defaultVoice"`
	DefaultSpeed      float32           `json:"defaultSpeed"`
	SpeedMin          float32           `json:"speedMin"`
	SpeedMax          float32           `json:"speedMax"`
	SampleRates       []int             `json:"sampleRates"`
	DefaultSampleRate int               `json:"defaultSampleRate"`
}
