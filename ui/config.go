package ui

// Config contains TUI-specific configuration.
type Config struct {
	// APIKey is the Gemini credential. Session-only: it is read from the
	// environment or prompted for, never written to the config file.
	APIKey string `env:"GEMINI_API_KEY"`

	GlamourMaxWidth uint
	GlamourStyle    string `env:"GLAMOUR_STYLE"`
	EnableMouse     bool

	// Voice is the prebuilt TTS voice used for pronunciation audio.
	Voice string

	// DataDir is where the reading tracker database lives.
	DataDir string

	// Initial location, from CLI args. Book may be empty.
	Book    string
	Chapter int

	// For debugging the UI
	GlamourEnabled bool `env:"SELAH_ENABLE_GLAMOUR" envDefault:"true"`
}
