package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"NewsShell/internal/infrastructure/pagemeta"
	"NewsShell/internal/infrastructure/storage"
)

func newInspectCmd(rt *runtime) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "inspect URL",
		Short: "Fetch a page with the app headers and print its metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			extractor := pagemeta.NewExtractor(timeout, rt.cfg.Master.AppHeaders)
			meta, err := extractor.Fetch(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("inspect %s: %w", args[0], err)
			}
			return printJSON(cmd.OutOrStdout(), meta)
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 15*time.Second, "request timeout")
	return cmd
}

func newJournalCmd(rt *runtime) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "List the most recent navigation decisions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			journal, err := storage.OpenSQLiteJournal(cmd.Context(), rt.cfg.Journal.DSN)
			if err != nil {
				return err
			}
			defer journal.Close()

			records, err := journal.RecentDecisions(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), records)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "AT\tSITE\tACTION\tCATEGORY\tREASON\tURL")
			for _, r := range records {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					r.At.Local().Format(time.DateTime), r.CallSite, r.Action, r.Category, r.Reason, r.URL)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of decisions")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}
