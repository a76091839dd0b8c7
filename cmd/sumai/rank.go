package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"sumai_assistant/internal/app"
	"sumai_assistant/internal/domain"
	"sumai_assistant/internal/lib/jsonld"
	"sumai_assistant/internal/services/conversation"
	"sumai_assistant/internal/services/extraction"
	"sumai_assistant/internal/services/normalizer"
)

var (
	rankMessage  string
	rankPrefect  string
	rankCity     string
	rankStation  string
	rankLayout   string
	rankPriceMax float64
	rankAreaMin  float64
	rankLimit    int
	rankJSONLD   bool
)

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank listings against requirements",
	Long: `Ranks listings from the configured store. Requirements are taken from a
free-text message (-m) and/or explicit flags; flags win over the message.`,
	Example: `  sumai rank -m "港区で2LDK、5000万円以内"
  sumai rank --prefecture 東京都 --layout 3LDK --price-max 6000 --jsonld`,
	RunE: runRank,
}

func init() {
	rankCmd.Flags().StringVarP(&rankMessage, "message", "m", "", "free-text requirements")
	rankCmd.Flags().StringVar(&rankPrefect, "prefecture", "", "prefecture, e.g. 東京都")
	rankCmd.Flags().StringVar(&rankCity, "city", "", "city or ward, e.g. 港区")
	rankCmd.Flags().StringVar(&rankStation, "station", "", "station name")
	rankCmd.Flags().StringVar(&rankLayout, "layout", "", "layout, e.g. 2LDK or 2LDK+")
	rankCmd.Flags().Float64Var(&rankPriceMax, "price-max", 0, "max price in 万円")
	rankCmd.Flags().Float64Var(&rankAreaMin, "area-min", 0, "min area in ㎡")
	rankCmd.Flags().IntVarP(&rankLimit, "limit", "n", 0, "number of results (default from config)")
	rankCmd.Flags().BoolVar(&rankJSONLD, "jsonld", false, "print schema.org JSON-LD instead of text")
	rootCmd.AddCommand(rankCmd)
}

func runRank(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	reqs := rankRequirements()
	if reqs.IsEmpty() {
		return fmt.Errorf("no requirements given: use -m or criteria flags")
	}

	application, err := app.New(ctx, log, cfg)
	if err != nil {
		return err
	}
	defer application.Close()

	recs, err := application.Recommendations.FindMatching(ctx, reqs, rankLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if rankJSONLD {
		data, err := jsonld.NewGenerator().GenerateRecommendationsJSONLDBytes(recs)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	if len(recs) == 0 {
		color.New(color.FgYellow).Fprintln(out, "no matching listings")
		return nil
	}

	color.New(color.FgCyan, color.Bold).Fprintln(out, describeRequirements(reqs))
	fmt.Fprintln(out, conversation.FormatRecommendations(recs))
	return nil
}

func rankRequirements() domain.RequirementSet {
	raw := normalizer.RawRecord{}
	if rankMessage != "" {
		raw = extraction.Requirements(rankMessage)
	}

	for key, value := range map[string]string{
		"prefecture": rankPrefect,
		"city":       rankCity,
		"station":    rankStation,
		"layout":     rankLayout,
	} {
		if value != "" {
			raw[key] = value
		}
	}
	if rankPriceMax > 0 {
		raw["price_max"] = rankPriceMax
	}
	if rankAreaMin > 0 {
		raw["area_min"] = rankAreaMin
	}

	return normalizer.Default().Requirements(raw)
}

func describeRequirements(reqs domain.RequirementSet) string {
	var parts []string
	if loc := strings.TrimSpace(reqs.Prefecture + reqs.City); loc != "" {
		parts = append(parts, loc)
	}
	if reqs.Station != "" {
		parts = append(parts, reqs.Station+"駅")
	}
	if reqs.Layout != "" {
		parts = append(parts, reqs.Layout)
	}
	if reqs.PriceMax != nil {
		parts = append(parts, fmt.Sprintf("〜%.0f万円", *reqs.PriceMax))
	}
	if reqs.AreaMin != nil {
		parts = append(parts, fmt.Sprintf("%.0f㎡〜", *reqs.AreaMin))
	}
	return "criteria: " + strings.Join(parts, " / ")
}
