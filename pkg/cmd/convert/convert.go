package convert

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/apexreplay/apexreplay-service-go/log"
	"github.com/apexreplay/apexreplay-service-go/pkg/config"
	"github.com/apexreplay/apexreplay-service-go/pkg/store"
)

// NewConvertCmd transcodes CSV session files to Parquet ahead of time so the
// first API request doesn't pay the conversion cost.
func NewConvertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert [circuit ...]",
		Short: "converts CSV session files to Parquet",
		Long: `converts the CSV session files below the data dir to Parquet.
Without arguments all circuit directories are processed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(args)
		},
	}
	return cmd
}

func runConvert(circuits []string) error {
	logger := log.DevLogger(os.Stderr, log.InfoLevel)
	log.ResetDefault(logger)

	st, err := store.New(config.DataDir)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()
	if len(circuits) == 0 {
		st.Bootstrap(ctx)
		return nil
	}
	for _, circuit := range circuits {
		st.ConvertDir(ctx, filepath.Join(config.DataDir, circuit))
	}
	return nil
}
