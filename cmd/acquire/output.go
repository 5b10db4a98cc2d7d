package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"sync"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/gnss-acquisition/core"
	"github.com/signalsfoundry/gnss-acquisition/model"
)

// reportRecorder keeps the last report per PRN for the result table.
type reportRecorder struct {
	mu      sync.Mutex
	reports map[int]core.CandidateReport
}

func newReportRecorder() *reportRecorder {
	return &reportRecorder{reports: make(map[int]core.CandidateReport)}
}

func (r *reportRecorder) CandidateStarted(int) {}

func (r *reportRecorder) CandidateFinished(rep core.CandidateReport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports[rep.ID] = rep
}

func (r *reportRecorder) get(id int) (core.CandidateReport, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rep, ok := r.reports[id]
	return rep, ok
}

type resultRow struct {
	PRN                int     `json:"prn" yaml:"prn"`
	Detected           bool    `json:"detected" yaml:"detected"`
	CarrierFrequencyHz float64 `json:"carrier_frequency_hz" yaml:"carrier_frequency_hz"`
	DopplerHz          float64 `json:"doppler_hz" yaml:"doppler_hz"`
	CodePhase          int     `json:"code_phase" yaml:"code_phase"`
	CodePhaseChips     float64 `json:"code_phase_chips" yaml:"code_phase_chips"`
	PeakMetric         float64 `json:"peak_metric" yaml:"peak_metric"`
	CN0DBHz            float64 `json:"cn0_dbhz,omitempty" yaml:"cn0_dbhz,omitempty"`
	Error              string  `json:"error,omitempty" yaml:"error,omitempty"`
}

type resultDocument struct {
	Threshold float64     `json:"threshold" yaml:"threshold"`
	Detected  []int       `json:"detected" yaml:"detected"`
	Results   []resultRow `json:"results" yaml:"results"`
}

func buildDocument(cfg model.AcquisitionConfig, results *model.ResultSet, reports *reportRecorder) resultDocument {
	doc := resultDocument{
		Threshold: cfg.Threshold,
		Detected:  results.Detected(),
		Results:   make([]resultRow, 0, results.Len()),
	}
	if doc.Detected == nil {
		doc.Detected = []int{}
	}
	samplesPerChip := cfg.SamplingFreqHz / cfg.ChipRateHz
	for _, id := range results.IDs() {
		r := results.Get(id)
		row := resultRow{
			PRN:        id,
			Detected:   r.Detected(cfg.Threshold),
			CodePhase:  r.CodePhase,
			PeakMetric: r.PeakMetric,
		}
		if row.Detected {
			row.CarrierFrequencyHz = r.CarrierFrequency
			row.DopplerHz = r.CarrierFrequency - cfg.IntermediateFreqHz
			row.CodePhaseChips = float64(r.CodePhase) / samplesPerChip
		}
		if rep, ok := reports.get(id); ok {
			if rep.Err != nil {
				row.Error = rep.Err.Error()
			} else if row.Detected {
				row.CN0DBHz = rep.CN0
			}
		}
		doc.Results = append(doc.Results, row)
	}
	return doc
}

func writeDocument(w io.Writer, format string, precision int, doc any, table func(*tabwriter.Writer, int) error) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	case "table", "":
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		if err := table(tw, precision); err != nil {
			return err
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

func writeResults(w io.Writer, format string, precision int, doc resultDocument) error {
	return writeDocument(w, format, precision, doc, func(tw *tabwriter.Writer, prec int) error {
		fmt.Fprintln(tw, "PRN\tDETECTED\tCARRIER_HZ\tDOPPLER_HZ\tCODE_PHASE\tCHIPS\tPEAK_RATIO\tCN0_DBHZ\t")
		for _, r := range doc.Results {
			if !r.Detected {
				fmt.Fprintf(tw, "%d\tno\t-\t-\t-\t-\t%s\t-\t%s\n", r.PRN, fixed(r.PeakMetric, prec), r.Error)
				continue
			}
			fmt.Fprintf(tw, "%d\tyes\t%s\t%s\t%d\t%s\t%s\t%s\t\n",
				r.PRN,
				fixed(r.CarrierFrequencyHz, prec),
				fixed(r.DopplerHz, prec),
				r.CodePhase,
				fixed(r.CodePhaseChips, prec),
				fixed(r.PeakMetric, prec),
				fixed(r.CN0DBHz, 1),
			)
		}
		return nil
	})
}

func writePredictions(w io.Writer, format string, precision int, preds []core.Prediction) error {
	if preds == nil {
		preds = []core.Prediction{}
	}
	doc := map[string][]core.Prediction{"visible": preds}
	return writeDocument(w, format, precision, doc, func(tw *tabwriter.Writer, prec int) error {
		fmt.Fprintln(tw, "PRN\tELEVATION_DEG\tRANGE_KM\tRANGE_RATE_MPS\tDOPPLER_HZ\t")
		for _, p := range preds {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t\n",
				p.PRN,
				fixed(p.ElevationDeg, prec),
				fixed(p.RangeKm, prec),
				fixed(p.RangeRateMps, prec),
				fixed(p.DopplerHz, prec),
			)
		}
		return nil
	})
}

func fixed(v float64, precision int) string {
	// A ratio over a vanishing second peak would print hundreds of digits.
	if math.Abs(v) >= 1e9 {
		return strconv.FormatFloat(v, 'g', precision+1, 64)
	}
	return strconv.FormatFloat(v, 'f', precision, 64)
}
