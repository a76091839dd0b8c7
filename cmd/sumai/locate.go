package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"sumai_assistant/internal/app"
	"sumai_assistant/internal/services/disambiguation"
)

var locateStation bool

var locateCmd = &cobra.Command{
	Use:   "locate <term>",
	Short: "Check whether a place name is ambiguous",
	Long: `Looks the term up in the listings store. By default the term is treated
as an area name; with --station it is treated as a station name and the
matching prefecture/city candidates are listed.`,
	Args: cobra.ExactArgs(1),
	RunE: runLocate,
}

func init() {
	locateCmd.Flags().BoolVarP(&locateStation, "station", "s", false, "treat the term as a station name")
	rootCmd.AddCommand(locateCmd)
}

func runLocate(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	term := strings.TrimSpace(args[0])

	application, err := app.New(ctx, log, cfg)
	if err != nil {
		return err
	}
	defer application.Close()

	out := cmd.OutOrStdout()
	warn := color.New(color.FgYellow)
	ok := color.New(color.FgGreen)

	if locateStation {
		candidates, err := application.Recommendations.StationCandidates(ctx, term)
		if err != nil {
			return err
		}
		if len(candidates) == 0 {
			warn.Fprintf(out, "no listings near %s駅\n", term)
			return nil
		}
		if disambiguation.HasCandidateAmbiguity(candidates) {
			warn.Fprintln(out, disambiguation.CandidateClarification(candidates, term))
			return nil
		}
		for _, c := range candidates {
			ok.Fprintf(out, "%s (%d)\n", c.DisplayName(), c.PropertyCount)
		}
		return nil
	}

	verdict, err := application.Recommendations.ResolveArea(ctx, term)
	if err != nil {
		return err
	}
	if !verdict.NeedsClarification {
		ok.Fprintf(out, "%s: unambiguous\n", term)
		return nil
	}

	warn.Fprintln(out, verdict.Message)
	for i, region := range verdict.SuggestedRegions {
		fmt.Fprintf(out, "  %d. %s\n", i+1, region)
	}
	return nil
}
