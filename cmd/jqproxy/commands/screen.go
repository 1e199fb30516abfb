package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hayasaka/jqproxy/internal/screener"
)

// screenCmd runs the screening pipeline from the command line.
var screenCmd = &cobra.Command{
	Use:   "screen",
	Short: "Run the screening pipeline",
	Long: `Run one screening pass over the listed universe and print the
ranked results.

Example:
  go run ./cmd/jqproxy screen --min-liquidity 1e8 --limit 20
  go run ./cmd/jqproxy screen --markets prime --per-lt 15 --div-yield-gt 0.03
  go run ./cmd/jqproxy screen --fast --max-scan 100 --json`,
	RunE: runScreen,
}

var (
	screenMarkets      string
	screenMinLiquidity float64
	screenWindow       int
	screenFast         bool
	screenMomentumGT   float64
	screenPERLT        float64
	screenPBRLT        float64
	screenDivYieldGT   float64
	screenLimit        int
	screenBudgetMS     int
	screenMaxScan      int
	screenJSON         bool
	screenSnapshot     bool
)

func init() {
	rootCmd.AddCommand(screenCmd)

	screenCmd.Flags().StringVar(&screenMarkets, "markets", "", "comma-separated market segment filter")
	screenCmd.Flags().Float64Var(&screenMinLiquidity, "min-liquidity", 0, "minimum average daily turnover")
	screenCmd.Flags().IntVar(&screenWindow, "window", 20, "liquidity averaging window in trading days")
	screenCmd.Flags().BoolVar(&screenFast, "fast", false, "latest-day liquidity instead of the windowed average")
	screenCmd.Flags().Float64Var(&screenMomentumGT, "momentum-3m-gt", 0, "3-month momentum threshold")
	screenCmd.Flags().Float64Var(&screenPERLT, "per-lt", 0, "maximum P/E ratio")
	screenCmd.Flags().Float64Var(&screenPBRLT, "pbr-lt", 0, "maximum P/B ratio")
	screenCmd.Flags().Float64Var(&screenDivYieldGT, "div-yield-gt", 0, "minimum dividend yield")
	screenCmd.Flags().IntVar(&screenLimit, "limit", 50, "maximum result rows")
	screenCmd.Flags().IntVar(&screenBudgetMS, "budget-ms", 0, "wall-clock budget in milliseconds")
	screenCmd.Flags().IntVar(&screenMaxScan, "max-scan", 0, "scanned-candidate ceiling")
	screenCmd.Flags().BoolVar(&screenJSON, "json", false, "emit JSON instead of a table")
	screenCmd.Flags().BoolVar(&screenSnapshot, "snapshot", false, "persist the run (requires DATABASE_URL)")
}

func runScreen(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	app, cleanup, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	cfg := screener.Config{
		MinLiquidity:    screenMinLiquidity,
		LiquidityWindow: screenWindow,
		FastLiquidity:   screenFast,
		Limit:           screenLimit,
		BudgetMS:        screenBudgetMS,
		MaxScan:         screenMaxScan,
		Debug:           true,
	}
	if screenMarkets != "" {
		cfg.Markets = strings.Split(screenMarkets, ",")
	}
	// An unset flag means a disabled predicate, not a zero threshold.
	if cmd.Flags().Changed("momentum-3m-gt") {
		cfg.Momentum3mGT = &screenMomentumGT
	}
	if cmd.Flags().Changed("per-lt") {
		cfg.PERLT = &screenPERLT
	}
	if cmd.Flags().Changed("pbr-lt") {
		cfg.PBRLT = &screenPBRLT
	}
	if cmd.Flags().Changed("div-yield-gt") {
		cfg.DivYieldGT = &screenDivYieldGT
	}

	result, err := app.screener.Run(ctx, cfg)
	if err != nil {
		return fmt.Errorf("screening run: %w", err)
	}

	if screenSnapshot {
		if app.repo == nil {
			return fmt.Errorf("--snapshot requires DATABASE_URL")
		}
		runID, err := app.repo.SaveRun(ctx, cfg, result)
		if err != nil {
			return fmt.Errorf("save snapshot: %w", err)
		}
		fmt.Printf("snapshot stored: run_id=%d\n", runID)
	}

	if screenJSON {
		return json.NewEncoder(os.Stdout).Encode(result)
	}

	printScreenTable(result)
	return nil
}

func printScreenTable(result *screener.Result) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tCODE\tNAME\tMARKET\tLIQUIDITY\tMOM3M\tPER\tPBR\tYIELD\tSCORE")
	for i, row := range result.Rows {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%.4f\n",
			i+1, row.Code, row.Name, row.Market,
			fmtPtr(row.AvgTradingValue, "%.0f"),
			fmtPct(row.Momentum3m),
			fmtPtr(row.PER, "%.1f"),
			fmtPtr(row.PBR, "%.2f"),
			fmtPct(row.DividendYield),
			row.Score,
		)
	}
	w.Flush()

	fmt.Printf("\nscanned=%d truncated=%v", result.Scanned, result.Truncated)
	if result.TruncateReason != "" {
		fmt.Printf(" reason=%s", result.TruncateReason)
	}
	fmt.Println()
	for _, e := range result.Errors {
		fmt.Printf("warn: %s\n", e)
	}
}

func fmtPtr(v *float64, format string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf(format, *v)
}

func fmtPct(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%+.2f%%", *v*100)
}
