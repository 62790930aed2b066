package cmd

import (
	"log"
	"os"

	"github.com/jsphweid/drumdex/classifier"
	"github.com/jsphweid/drumdex/config"
	"github.com/jsphweid/drumdex/constants"
	"github.com/jsphweid/drumdex/pipeline"
	"github.com/spf13/cobra"
)

var (
	modelPath       string
	instrumentsPath string
	workers         int
)

var rootCmd = &cobra.Command{
	Use:   "drumdex",
	Short: "Drum transcription",
	Long:  `drumdex turns recordings of drums into General MIDI percussion tracks.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&modelPath, "model", constants.GetModelPath(), "classifier model file")
	rootCmd.PersistentFlags().StringVar(&instrumentsPath, "instruments", "", "JSON file mapping instrument names to MIDI notes")
	rootCmd.PersistentFlags().IntVar(&workers, "workers", 0, "feature extraction workers (0 means one per CPU)")
}

func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func newLogger() *log.Logger {
	return log.New(os.Stderr, "", log.LstdFlags)
}

// LoadConfig applies flags on top of the environment.
func LoadConfig() (config.Config, error) {
	cfg := config.FromEnv()
	if instrumentsPath != "" {
		m, err := config.LoadInstrumentMap(instrumentsPath)
		if err != nil {
			return cfg, err
		}
		cfg = cfg.WithInstrumentMap(m)
	}
	if workers > 0 {
		cfg.Workers = workers
	}
	return cfg, cfg.Validate()
}

// NewTranscriber loads the model at path and wires a pipeline around it.
func NewTranscriber(cfg config.Config, path string, logger *log.Logger) (*pipeline.Transcriber, error) {
	m, err := classifier.LoadModel(path)
	if err != nil {
		return nil, err
	}
	return pipeline.New(cfg, m, pipeline.WithLogger(logger))
}
