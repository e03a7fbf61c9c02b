package game

// DetailLevel controls how verbose the narrator is asked to be.
type DetailLevel string

const (
	DetailBrief    DetailLevel = "brief"
	DetailNormal   DetailLevel = "normal"
	DetailDetailed DetailLevel = "detailed"
)

// Tone controls the narrator's register.
type Tone string

const (
	ToneSerious   Tone = "serious"
	ToneBalanced  Tone = "balanced"
	ToneWhimsical Tone = "whimsical"
)

// Settings is the process-wide player configuration. It is loaded once at
// startup and persisted on every mutation. FontSize and Theme are opaque to
// the engine; they are stored for the presentation layer's benefit only.
type Settings struct {
	FontSize         int         `json:"fontSize"`
	StreamingEnabled bool        `json:"streamingEnabled"`
	Temperature      float64     `json:"temperature"`
	DetailLevel      DetailLevel `json:"detailLevel"`
	Tone             Tone        `json:"tone"`
	AutoSaveEnabled  bool        `json:"autoSaveEnabled"`
	SelectedModel    string      `json:"selectedModel"`
	Theme            string      `json:"theme"`
}

// DefaultSettings returns the settings used before the player has saved any.
func DefaultSettings() Settings {
	return Settings{
		FontSize:         14,
		StreamingEnabled: true,
		Temperature:      0.8,
		DetailLevel:      DetailNormal,
		Tone:             ToneBalanced,
		AutoSaveEnabled:  true,
		SelectedModel:    "",
		Theme:            "dark",
	}
}

// Normalize clamps out-of-range values back to usable defaults so a corrupt
// or hand-edited settings record cannot wedge the engine.
func (s Settings) Normalize() Settings {
	if s.Temperature < 0 {
		s.Temperature = 0
	}
	if s.Temperature > 1 {
		s.Temperature = 1
	}
	switch s.DetailLevel {
	case DetailBrief, DetailNormal, DetailDetailed:
	default:
		s.DetailLevel = DetailNormal
	}
	switch s.Tone {
	case ToneSerious, ToneBalanced, ToneWhimsical:
	default:
		s.Tone = ToneBalanced
	}
	if s.FontSize <= 0 {
		s.FontSize = 14
	}
	return s
}
