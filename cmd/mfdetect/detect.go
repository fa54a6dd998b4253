package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cwbudde/algo-matchfilter/detect"
	"github.com/cwbudde/algo-matchfilter/internal/config"
	"github.com/cwbudde/algo-matchfilter/store"
)

func detectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Detect templates in a continuous data file",
		Long: `Detect every template of a tribe in continuous data read from a JSON
file. Templates are grouped by processing parameters and each group is
correlated against the data in process-length windows.`,
		Args: cobra.NoArgs,
		RunE: runDetect,
	}

	addDetectFlags(cmd)

	return cmd
}

func runDetect(cmd *cobra.Command, _ []string) error {
	cfg, logger, opts, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	templatesPath, _ := cmd.Flags().GetString("templates")
	dataPath, _ := cmd.Flags().GetString("data")

	tribe, err := readTribe(templatesPath)
	if err != nil {
		return err
	}

	st, err := readStream(dataPath)
	if err != nil {
		return err
	}

	d, err := detect.New(opts...)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	party, err := d.DetectTribe(ctx, tribe, st)
	if party != nil {
		printParty(cmd.OutOrStdout(), party)

		if saveErr := save(ctx, cfg, party, logger); saveErr != nil && err == nil {
			err = saveErr
		}
	}

	return err
}

// save writes the party to the configured database, if any.
func save(ctx context.Context, cfg config.Config, party *detect.Party, logger *zap.Logger) error {
	if cfg.Database == "" {
		return nil
	}

	s, err := store.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.SaveParty(ctx, party); err != nil {
		return err
	}

	logger.Info("saved detections", zap.String("database", cfg.Database), zap.Int("detections", party.Len()))

	return nil
}
