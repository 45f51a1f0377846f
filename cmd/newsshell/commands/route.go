package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"NewsShell/internal/domain"
	"NewsShell/internal/route"
	"NewsShell/internal/usecase"
)

func newClassifyCmd(rt *runtime) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "classify URL...",
		Short: "Show the route category of each URL",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			classifier := route.NewClassifier(rt.cfg.Master)
			results := make([]domain.Classification, 0, len(args))
			for _, u := range args {
				results = append(results, classifier.Classify(u))
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), results)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "URL\tCATEGORY\tRULE\tOWN DOMAIN")
			for i, c := range results {
				category := string(c.Category)
				if c.MemberApp != "" {
					category += "/" + string(c.MemberApp)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%t\n", args[i], category, dash(c.Rule), c.IsOwnDomain)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newResolveCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve URL...",
		Short: "Show where each plain-web URL would open",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resolver := route.NewResolver(rt.cfg.Master)
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "URL\tTARGET")
			for _, u := range args {
				fmt.Fprintf(tw, "%s\t%s\n", u, resolver.Resolve(u))
			}
			return tw.Flush()
		},
	}
}

func newDecideCmd(rt *runtime) *cobra.Command {
	var ev domain.NavigationEvent
	cmd := &cobra.Command{
		Use:   "decide URL",
		Short: "Run the navigation pipeline for one URL without side effects",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ev.RequestedURL = args[0]
			pipeline := usecase.NewPipeline(usecase.PipelineDeps{
				Config: rt.cfg.Master,
				Logger: rt.logger,
			})
			return printJSON(cmd.OutOrStdout(), pipeline.Decide(ev))
		},
	}
	cmd.Flags().StringVar(&ev.CurrentURL, "current", "", "URL currently shown by the surface")
	cmd.Flags().BoolVar(&ev.IsUserInitiated, "user", true, "navigation was started by the user")
	cmd.Flags().BoolVar(&ev.IsSameURLAsCurrent, "same-url", false, "surface reports the same URL as current")
	cmd.Flags().BoolVar(&ev.IsSubframe, "subframe", false, "navigation targets a subframe")
	cmd.Flags().BoolVar(&ev.CarriesAppHeaders, "app-headers", false, "request already carries the app headers")
	return cmd
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
