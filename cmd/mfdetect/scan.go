package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-matchfilter/acquire"
)

func scanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Detect over a time range, one process-length chunk at a time",
		Long: `Scan a time range chunk by chunk, requesting each chunk's data from
the archive with retries. When a chunk cannot be fetched the detections
made so far are still reported.`,
		Args: cobra.NoArgs,
		RunE: runScan,
	}

	addDetectFlags(cmd)
	cmd.Flags().String("start", "", "Start of the scan, RFC 3339 (required)")
	cmd.Flags().String("end", "", "End of the scan, RFC 3339 (required)")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")

	return cmd
}

func runScan(cmd *cobra.Command, _ []string) error {
	cfg, logger, opts, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	f := cmd.Flags()
	templatesPath, _ := f.GetString("templates")
	dataPath, _ := f.GetString("data")
	startStr, _ := f.GetString("start")
	endStr, _ := f.GetString("end")

	start, err := parseTime(startStr)
	if err != nil {
		return err
	}

	end, err := parseTime(endStr)
	if err != nil {
		return err
	}

	tribe, err := readTribe(templatesPath)
	if err != nil {
		return err
	}

	st, err := readStream(dataPath)
	if err != nil {
		return err
	}

	fetcher := acquire.NewFetcher(&acquire.MemoryClient{Stream: st},
		acquire.WithAttempts(cfg.Fetch.Attempts),
		acquire.WithInterval(cfg.Fetch.Interval),
		acquire.WithFetchLogger(logger))

	runner, err := acquire.NewRunner(fetcher, tribe, opts...)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	party, err := runner.Run(ctx, start, end)
	if party != nil {
		printParty(cmd.OutOrStdout(), party)

		if saveErr := save(ctx, cfg, party, logger); saveErr != nil && err == nil {
			err = saveErr
		}
	}

	return err
}
