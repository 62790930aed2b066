package constants

import (
	"os"
	"strconv"
)

func GetOutDir() string {
	path := os.Getenv("DRUMDEX_OUT_DIR")
	if path != "" {
		return path
	}
	return "./out"
}

func GetModelPath() string {
	path := os.Getenv("DRUMDEX_MODEL_PATH")
	if path != "" {
		return path
	}
	return "models/drum_classifier.gob"
}

// GetCatalogEndpoint returns the DynamoDB endpoint used to record runs.
// Empty means the catalog is disabled.
func GetCatalogEndpoint() string {
	return os.Getenv("DRUMDEX_CATALOG_ENDPOINT")
}

func GetCatalogTable() string {
	table := os.Getenv("DRUMDEX_CATALOG_TABLE")
	if table != "" {
		return table
	}
	return "drumdex-runs"
}

// GetIntEnv returns the integer value of key, or fallback when it is unset or
// not a number.
func GetIntEnv(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

const (
	TargetSampleRate  = 44100
	WindowMs          = 100
	CoefficientCount  = 13
	DefaultVelocity   = 100
	NoteDurationTicks = 30
	TickResolution    = 480
	MinInterOnsetMs   = 30
	FallbackBPM       = 120.0

	// General MIDI reserves channel 10 (index 9) for percussion
	PercussionChannel = 9

	FrameSize = 2048
	HopSize   = 512
	MelBands  = 40
)

// General MIDI percussion key map
const (
	NoteKick  = 36
	NoteSnare = 38
	NoteHihat = 42
)
