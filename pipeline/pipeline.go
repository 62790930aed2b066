// Package pipeline runs one recording through separation, onset detection,
// classification, tempo estimation and sequencing. Runs share nothing, so a
// Transcriber may serve concurrent calls.
package pipeline

import (
	"context"
	"fmt"
	"log"

	"github.com/jsphweid/drumdex/audio"
	"github.com/jsphweid/drumdex/classifier"
	"github.com/jsphweid/drumdex/config"
	"github.com/jsphweid/drumdex/features"
	"github.com/jsphweid/drumdex/midi"
	"github.com/jsphweid/drumdex/model"
	"github.com/jsphweid/drumdex/onset"
	"github.com/jsphweid/drumdex/sequencer"
	"github.com/jsphweid/drumdex/tempo"
	"golang.org/x/sync/errgroup"
)

type Transcriber struct {
	cfg        config.Config
	separator  Separator
	detector   *onset.Detector
	classifier *classifier.Classifier
	estimator  *tempo.Estimator
	sequencer  *sequencer.Sequencer
	logger     *log.Logger
	onsetOpts  []onset.Option
}

type Option func(*Transcriber)

func WithSeparator(s Separator) Option {
	return func(t *Transcriber) {
		t.separator = s
	}
}

func WithLogger(l *log.Logger) Option {
	return func(t *Transcriber) {
		t.logger = l
	}
}

func WithOnsetOptions(opts ...onset.Option) Option {
	return func(t *Transcriber) {
		t.onsetOpts = append(t.onsetOpts, opts...)
	}
}

type Result struct {
	Stream        model.EventStream
	Report        model.Report
	Onsets        []model.ClassifiedOnset
	BPM           float64
	Beats         []float64
	TempoFallback bool
}

// New checks cfg and wires every stage. A nil predictor fails with
// classifier.ErrModelUnavailable before any audio is touched.
func New(cfg config.Config, p classifier.Predictor, opts ...Option) (*Transcriber, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	t := &Transcriber{cfg: cfg}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = log.Default()
	}
	if t.separator == nil {
		t.separator = Passthrough{}
	}
	clf, err := classifier.New(p, features.NewExtractor(cfg))
	if err != nil {
		return nil, err
	}
	t.classifier = clf
	t.detector = onset.NewDetector(cfg, t.onsetOpts...)
	t.estimator = tempo.NewEstimator(cfg, t.logger)
	t.sequencer = sequencer.New(cfg, t.logger)
	return t, nil
}

func (t *Transcriber) stage(s Stage, format string, args ...interface{}) {
	t.logger.Printf("[Stage %d/%d] "+format, append([]interface{}{int(s), stageCount}, args...)...)
}

// Run transcribes a buffer already at the configured sample rate. Tempo is
// estimated alongside onset detection and classification.
func (t *Transcriber) Run(ctx context.Context, buf model.AudioBuffer) (Result, error) {
	if buf.Len() == 0 {
		return Result{}, stageErr(StageLoad, audio.ErrEmptyBuffer)
	}
	if buf.SampleRate != t.cfg.TargetSampleRate {
		return Result{}, stageErr(StageLoad, fmt.Errorf("%w: got %d, want %d",
			features.ErrSampleRateMismatch, buf.SampleRate, t.cfg.TargetSampleRate))
	}

	t.stage(StageSeparate, "Isolating percussion from %.2fs of audio", buf.Duration())
	perc, err := t.separator.Separate(ctx, buf)
	if err != nil {
		return Result{}, stageErr(StageSeparate, err)
	}
	if perc.SampleRate != buf.SampleRate {
		return Result{}, stageErr(StageSeparate, fmt.Errorf("separator changed sample rate from %d to %d", buf.SampleRate, perc.SampleRate))
	}

	var res Result
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t.stage(StageTempo, "Estimating tempo")
		est := t.estimator.Estimate(perc)
		res.BPM, res.Beats, res.TempoFallback = est.BPM, est.Beats, est.Fallback
		return nil
	})
	g.Go(func() error {
		t.stage(StageOnsets, "Detecting onsets")
		times := t.detector.Detect(perc)
		if err := gctx.Err(); err != nil {
			return stageErr(StageOnsets, err)
		}
		t.stage(StageClassify, "Classifying %d onsets", len(times))
		onsets, err := t.classifier.ClassifyOnsets(gctx, perc, times)
		if err != nil {
			return stageErr(StageClassify, err)
		}
		res.Onsets = onsets
		return nil
	})
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	t.stage(StageSequence, "Sequencing %d onsets at %.1f BPM", len(res.Onsets), res.BPM)
	stream, report, err := t.sequencer.Sequence(res.Onsets, res.BPM)
	if err != nil {
		return Result{}, stageErr(StageSequence, err)
	}
	res.Stream, res.Report = stream, report
	t.logger.Printf("sequenced %d notes over %d ticks", report.Emitted, stream.TotalTicks())
	if report.Skipped > 0 {
		t.logger.Printf("skipped %d of %d onsets: %v", report.Skipped, report.Onsets, report.SkippedLabels)
	}
	return res, nil
}

// TranscribeFile loads in, runs it and writes the MIDI file to out. Nothing
// is written unless every stage succeeds.
func (t *Transcriber) TranscribeFile(ctx context.Context, in, out string) (Result, error) {
	t.stage(StageLoad, "Loading %s", in)
	buf, err := audio.Load(in, t.cfg.TargetSampleRate)
	if err != nil {
		return Result{}, stageErr(StageLoad, err)
	}
	res, err := t.Run(ctx, buf)
	if err != nil {
		return Result{}, err
	}
	t.stage(StageWrite, "Writing %s", out)
	if err := midi.WriteMidiFile(res.Stream, out); err != nil {
		return Result{}, stageErr(StageWrite, err)
	}
	return res, nil
}
