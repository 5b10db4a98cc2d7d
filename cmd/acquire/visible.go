package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/signalsfoundry/gnss-acquisition/internal/logging"
)

func newVisibleCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "visible",
		Short: "Predict which catalog satellites are above the elevation mask",
		Long: `Propagate every catalog TLE to the prediction time and list the
satellites at or above the elevation mask, with their expected Doppler.

Examples:
  acquire visible --catalog gps.json --lat 51.5 --lon -0.1 --alt 30
  acquire visible --catalog gps.json --time 2021-10-02T12:00:00Z --mask 10 -o json`,
		Args: cobra.NoArgs,
	}
	cmd.RunE = a.runE(func(cmd *cobra.Command, args []string) error {
		return a.visible(cmd)
	})
	addAidingFlags(cmd.Flags())
	return cmd
}

func (a *app) visible(cmd *cobra.Command) error {
	ctx := cmd.Context()
	vp, err := a.predictor(ctx)
	if err != nil {
		return err
	}
	defer vp.Close()

	at, err := a.cfg.AidingTime(time.Now)
	if err != nil {
		return err
	}
	start := time.Now()
	preds, err := vp.Visible(at, a.cfg.Receiver(), a.cfg.Aiding.ElevationMaskDeg)
	a.aiding.ObservePrediction(time.Since(start), len(preds))
	if err != nil {
		a.aiding.AddPropagationFailures(countJoined(err))
		a.log.Warn(ctx, "some satellites could not be propagated", logging.Err(err))
	}
	a.log.Debug(ctx, "visibility predicted",
		logging.String("time", at.Format(time.RFC3339)),
		logging.Int("visible", len(preds)),
	)
	return writePredictions(cmd.OutOrStdout(), a.cfg.Output.Format, a.cfg.Output.Precision, preds)
}
