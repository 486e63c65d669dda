package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Guliveer/unixstat-agent/internal/collector"
	"github.com/Guliveer/unixstat-agent/internal/models"
)

func newOnceCmd(flags *globalFlags) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "once",
		Short: "Run one polling cycle and print the metrics",
		Long: "Run one polling cycle and print the metrics.\n\n" +
			"Rate metrics need two samples, so they are missing from a single cycle.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			logger := initLogger(cfg)
			defer func() { _ = logger.Sync() }()

			_, tbl, err := selectTable(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			coll := newCollector(cfg, tbl, prometheus.NewRegistry(), logger)

			res, err := coll.Collect(cmd.Context())
			if errors.Is(err, collector.ErrNoCommandsRan) {
				return err
			}
			for _, cerr := range res.Errors {
				logger.Warn("Collection error", zap.Error(cerr))
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res.Metrics)
			}
			return printMetrics(cmd.OutOrStdout(), res.Metrics)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print metrics as JSON")
	return cmd
}

// printMetrics writes one aligned line per metric.
func printMetrics(w io.Writer, metrics []models.Metric) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "COMMAND\tMETRIC\tVALUE\tUNIT")
	for _, m := range metrics {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", m.Command, m.Path(), strconv.FormatFloat(m.Value, 'f', -1, 64), m.Unit)
	}
	return tw.Flush()
}
