package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/jsphweid/drumdex/audio"
	"github.com/jsphweid/drumdex/catalog"
	"github.com/jsphweid/drumdex/midi"
	"github.com/jsphweid/drumdex/model"
	"github.com/jsphweid/drumdex/pipeline"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
)

const maxUploadBytes = 64 << 20

var addr string

func init() {
	serveCmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves transcription over HTTP",
	Long:  `Serves POST /transcribe, which takes a WAV body and answers with a MIDI file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig()
		if err != nil {
			return err
		}
		logger := newLogger()
		tr, err := NewTranscriber(cfg, modelPath, logger)
		if err != nil {
			return err
		}
		store, err := StoreFromEnv()
		if err != nil {
			return err
		}
		if _, ok := store.(catalog.NopStore); ok {
			store = catalog.NewMemoryStore()
		}
		s := NewServer(tr, store, cfg.TargetSampleRate, logger)
		logger.Printf("listening on %s", addr)
		return http.ListenAndServe(addr, s.Handler())
	},
}

type Server struct {
	tr     *pipeline.Transcriber
	store  catalog.Store
	rate   int
	logger *log.Logger
}

func NewServer(tr *pipeline.Transcriber, store catalog.Store, rate int, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{tr: tr, store: store, rate: rate, logger: logger}
}

func (s *Server) Handler() http.Handler {
	router := mux.NewRouter().StrictSlash(true)
	router.HandleFunc("/health", handleHealth).Methods("GET")
	router.HandleFunc("/transcribe", s.HandleTranscribe).Methods("POST")
	router.HandleFunc("/jobs/{id}", s.HandleJob).Methods("GET")

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		ExposedHeaders: []string{"X-Drumdex-Job", "X-Drumdex-Bpm", "X-Drumdex-Emitted", "X-Drumdex-Skipped"},
	})
	return c.Handler(router)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	res := model.ErrorResponse{Error: err.Error()}
	var stageErr *pipeline.StageError
	if errors.As(err, &stageErr) {
		res.Stage = stageErr.Stage.String()
	}
	writeJSON(w, status, res)
}

// HandleTranscribe answers with the MIDI file, or with JSON when the query
// has format=json.
func (s *Server) HandleTranscribe(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxUploadBytes)
	buf, err := audio.Decode(body, s.rate)
	if err != nil {
		status := http.StatusUnprocessableEntity
		if errors.Is(err, audio.ErrUnsupportedFormat) {
			status = http.StatusUnsupportedMediaType
		}
		writeError(w, status, &pipeline.StageError{Stage: pipeline.StageLoad, Err: err})
		return
	}

	res, err := s.tr.Run(r.Context(), buf)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	data, err := midi.EncodeBytes(res.Stream)
	if err != nil {
		writeError(w, http.StatusInternalServerError, &pipeline.StageError{Stage: pipeline.StageWrite, Err: err})
		return
	}

	record := catalog.NewRecord("upload", "", res.Report)
	if err := s.store.Put(r.Context(), record); err != nil {
		s.logger.Printf("could not catalogue run %s: %v", record.PK, err)
	}

	if r.URL.Query().Get("format") == "json" {
		writeJSON(w, http.StatusOK, model.TranscribeResponse{
			JobId:  record.PK,
			Report: res.Report,
			BPM:    res.BPM,
			Midi:   data,
		})
		return
	}
	w.Header().Set("Content-Type", "audio/midi")
	w.Header().Set("X-Drumdex-Job", record.PK)
	w.Header().Set("X-Drumdex-Bpm", strconv.FormatFloat(res.BPM, 'f', 2, 64))
	w.Header().Set("X-Drumdex-Emitted", strconv.Itoa(res.Report.Emitted))
	w.Header().Set("X-Drumdex-Skipped", strconv.Itoa(res.Report.Skipped))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) HandleJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	record, err := catalog.Lookup(r.Context(), s.store, id)
	if errors.Is(err, catalog.ErrNotFound) {
		writeError(w, http.StatusNotFound, fmt.Errorf("no run %s", id))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}
