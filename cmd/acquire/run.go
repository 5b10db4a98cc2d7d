package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/signalsfoundry/gnss-acquisition/core"
	"github.com/signalsfoundry/gnss-acquisition/internal/logging"
	"github.com/signalsfoundry/gnss-acquisition/internal/replica"
	"github.com/signalsfoundry/gnss-acquisition/internal/samples"
	"github.com/signalsfoundry/gnss-acquisition/kb"
	"github.com/signalsfoundry/gnss-acquisition/model"
)

func newRunCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Search a recorded capture for satellites",
		Long: `Read a snapshot of raw front-end samples and search it for every
candidate PRN. The capture must hold at least 1.75 code periods.

Examples:
  acquire run --capture l1.bin --format int16iq --fs 4.096e6 --if 4e5
  acquire run --capture l1.bin --prn 1,5,12 --workers 4 -o json
  acquire run --capture l1.bin --visible-only --catalog gps.json --lat 51.5 --lon -0.1`,
		Args: cobra.NoArgs,
	}
	cmd.RunE = a.runE(func(cmd *cobra.Command, args []string) error {
		return a.runCapture(cmd)
	})

	fs := cmd.Flags()
	fs.String("capture", "", "raw sample file")
	fs.String("format", "", "sample encoding (int8, int8iq, int16iq, float32iq)")
	fs.Int64("offset", 0, "bytes to skip at the start of the capture")
	fs.Int("samples", 0, "samples to read; 0 reads the minimum the search needs")
	bindKey(fs, "capture", "capture.path")
	bindKey(fs, "format", "capture.format")
	bindKey(fs, "offset", "capture.offset_bytes")
	bindKey(fs, "samples", "capture.samples")

	fs.IntSlice("prn", nil, "candidate PRNs (default 1-32)")
	bindKey(fs, "prn", "acquisition.candidates")
	addSearchFlags(fs)
	addAidingFlags(fs)
	return cmd
}

// addSearchFlags registers the acquisition parameters shared by run and simulate.
func addSearchFlags(fs *pflag.FlagSet) {
	fs.Float64("fs", 0, "sampling frequency in Hz")
	fs.Float64("if", 0, "intermediate frequency in Hz")
	fs.Float64("band", 0, "full carrier search band in Hz")
	fs.Float64("integration-ms", 0, "coherent integration length in milliseconds")
	fs.Float64("threshold", 0, "peak ratio a detection must exceed")
	fs.Int("code-offset", 0, "code phase calibration offset in samples")
	fs.Int("workers", 0, "candidates searched concurrently")
	bindKey(fs, "fs", "acquisition.sampling_freq_hz")
	bindKey(fs, "if", "acquisition.intermediate_freq_hz")
	bindKey(fs, "band", "acquisition.search_band_hz")
	bindKey(fs, "integration-ms", "acquisition.coherent_integration_ms")
	bindKey(fs, "threshold", "acquisition.threshold")
	bindKey(fs, "code-offset", "acquisition.code_phase_offset")
	bindKey(fs, "workers", "acquisition.workers")
}

// addAidingFlags registers the receiver position and catalog options.
func addAidingFlags(fs *pflag.FlagSet) {
	fs.Bool("visible-only", false, "search only PRNs predicted above the elevation mask")
	fs.String("catalog", "", "JSON satellite catalog with TLEs")
	fs.Float64("lat", 0, "receiver latitude in degrees")
	fs.Float64("lon", 0, "receiver longitude in degrees")
	fs.Float64("alt", 0, "receiver altitude in metres")
	fs.Float64("mask", 0, "elevation mask in degrees")
	fs.String("time", "", "prediction time, RFC3339 (default now)")
	bindKey(fs, "visible-only", "aiding.visible_only")
	bindKey(fs, "catalog", "aiding.catalog")
	bindKey(fs, "lat", "aiding.latitude_deg")
	bindKey(fs, "lon", "aiding.longitude_deg")
	bindKey(fs, "alt", "aiding.altitude_m")
	bindKey(fs, "mask", "aiding.elevation_mask_deg")
	bindKey(fs, "time", "aiding.time")
}

func (a *app) runCapture(cmd *cobra.Command) error {
	cfg := a.cfg
	if cfg.Capture.Path == "" {
		return errors.New("no capture given; pass --capture or set capture.path")
	}
	format, err := samples.ParseFormat(cfg.Capture.Format)
	if err != nil {
		return err
	}

	acq := cfg.AcquisitionConfig()
	n := max(cfg.Capture.Samples, acq.MinSampleCount())
	buf, err := samples.Load(cfg.Capture.Path, format, cfg.Capture.OffsetBytes, n)
	if err != nil {
		return err
	}
	a.log.Debug(cmd.Context(), "capture loaded",
		logging.String("path", cfg.Capture.Path),
		logging.String("format", string(format)),
		logging.Int("samples", len(buf)),
	)

	return a.acquireAndPrint(cmd, acq, buf)
}

// acquireAndPrint narrows candidates when aiding is enabled, runs the search
// and writes the result document.
func (a *app) acquireAndPrint(cmd *cobra.Command, acq model.AcquisitionConfig, buf []complex128) error {
	ctx, log := logging.WithRunLogger(cmd.Context(), a.log)

	if a.cfg.Aiding.VisibleOnly {
		sel, err := a.visibleCandidates(ctx, acq.Candidates)
		if err != nil {
			return err
		}
		a.aiding.AddPruned(len(sel.Pruned))
		log.Info(ctx, "candidates narrowed by visibility",
			logging.Int("before", len(acq.Candidates)),
			logging.Int("after", len(sel.Kept)),
			logging.Int("unpredicted", len(sel.Failed)),
		)
		acq.Candidates = sel.Kept
	}

	reports := newReportRecorder()
	eng, err := core.NewEngine(acq, replica.CAProvider{},
		core.WithWorkers(a.cfg.Acquisition.Workers),
		core.WithLogger(log),
		core.WithObserver(core.MultiObserver{a.collector, reports, core.LoggingObserver{Log: log}}),
	)
	if err != nil {
		return err
	}

	start := time.Now()
	results, runErr := eng.Acquire(ctx, buf)
	a.collector.RunFinished(runErr)
	if results == nil {
		return runErr
	}
	log.Info(ctx, "acquisition finished",
		logging.Int("evaluated", results.Len()),
		logging.Int("detected", len(results.Detected())),
		logging.Duration("elapsed", time.Since(start)),
	)

	doc := buildDocument(acq, results, reports)
	if err := writeResults(cmd.OutOrStdout(), a.cfg.Output.Format, a.cfg.Output.Precision, doc); err != nil {
		return err
	}
	return runErr
}

// visibleCandidates loads the catalog and drops the PRNs predicted below the
// mask.
func (a *app) visibleCandidates(ctx context.Context, candidates []int) (core.CandidateSelection, error) {
	vp, err := a.predictor(ctx)
	if err != nil {
		return core.CandidateSelection{}, err
	}
	defer vp.Close()

	at, err := a.cfg.AidingTime(time.Now)
	if err != nil {
		return core.CandidateSelection{}, err
	}
	start := time.Now()
	sel, err := vp.CandidatesAbove(candidates, at, a.cfg.Receiver(), a.cfg.Aiding.ElevationMaskDeg)
	a.aiding.ObservePrediction(time.Since(start), len(sel.Above))
	if err != nil {
		a.aiding.AddPropagationFailures(len(sel.Failed))
		a.log.Warn(ctx, "some satellites could not be propagated; searching them anyway", logging.Err(err))
	}
	return sel, nil
}

func (a *app) predictor(ctx context.Context) (*core.VisibilityPredictor, error) {
	path := a.cfg.Aiding.Catalog
	if path == "" {
		return nil, errors.New("visibility aiding needs a catalog; pass --catalog or set aiding.catalog")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	cat := kb.NewCatalog()
	added, err := core.LoadSatelliteCatalog(cat, f)
	if err != nil {
		return nil, err
	}
	vp, err := core.NewVisibilityPredictor(cat)
	if err != nil {
		a.aiding.AddPropagationFailures(countJoined(err))
		a.log.Warn(ctx, "some catalog orbits were rejected", logging.Err(err))
	}
	a.log.Debug(ctx, "catalog loaded",
		logging.String("path", path),
		logging.Int("satellites", len(added)),
		logging.Int("with_orbit", len(vp.Tracked())),
	)
	return vp, nil
}

func countJoined(err error) int {
	if err == nil {
		return 0
	}
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		return len(j.Unwrap())
	}
	return 1
}
