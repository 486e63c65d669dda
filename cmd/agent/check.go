package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Guliveer/unixstat-agent/internal/catalog"
	"github.com/Guliveer/unixstat-agent/internal/executor"
)

func newCheckCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the command table and report which commands exist on this host",
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
			return checkTable(cmd.OutOrStdout(), tbl, executor.LookPath)
		},
	}
}

// checkTable prints every command with its mode and availability, then
// the table's validation problems. A table with problems is an error.
func checkTable(w io.Writer, tbl *catalog.Table, lookPath func(string) bool) error {
	fmt.Fprintf(w, "table: %s\n\n", tbl.Name())

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tMODE\tCOMMAND\tFOUND")
	for _, key := range tbl.Commands() {
		def, err := tbl.LookupCommand(key)
		if err != nil {
			return err
		}
		found := "no"
		if lookPath(def.Executable()) {
			found = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%v\t%s\n", key, def.Mode, def.Command, found)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	err := tbl.Validate()
	var verr *catalog.ValidationError
	if errors.As(err, &verr) {
		fmt.Fprintf(w, "\n%d problem(s):\n", len(verr.Problems))
		for _, p := range verr.Problems {
			fmt.Fprintf(w, "  %s\n", p)
		}
		return fmt.Errorf("table %s is invalid", tbl.Name())
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "\ntable is valid")
	return nil
}
