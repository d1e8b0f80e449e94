// sizeopt runs the build-time size optimization pipeline: it loads an
// asset manifest, estimates per-asset compression savings for a platform
// and quality tier, prints a summary and writes the report.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/clduab11/thinkrank-perf/adaptive"
	"github.com/clduab11/thinkrank-perf/sizeopt"
)

func main() {
	manifestPath := flag.String("manifest", "assets.yaml", "asset manifest (.yaml or .csv)")
	platform := flag.String("platform", "android", "target platform (ios, android, desktop)")
	tier := flag.String("tier", "mid", "quality tier (low, mid, high)")
	csvOut := flag.String("csv", "", "write per-asset decisions to this CSV file")
	jsonOut := flag.String("json", "", "write full report to this JSON file")
	storePath := flag.String("store", "", "record the run in this SQLite history database")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if err := run(*manifestPath, *platform, *tier, *csvOut, *jsonOut, *storePath, logger); err != nil {
		fmt.Fprintln(os.Stderr, "sizeopt:", err)
		os.Exit(1)
	}
}

func run(manifestPath, platform, tier, csvOut, jsonOut, storePath string, logger *slog.Logger) error {
	var manifest *sizeopt.Manifest
	var err error
	if strings.HasSuffix(manifestPath, ".csv") {
		manifest, err = sizeopt.LoadManifestCSV(manifestPath)
	} else {
		manifest, err = sizeopt.LoadManifestYAML(manifestPath)
	}
	if err != nil {
		return err
	}

	optimizer := sizeopt.NewOptimizer(adaptive.Platform(platform), sizeopt.QualityTier(tier), logger)
	report, err := optimizer.Run(manifest)
	if err != nil {
		return err
	}

	printSummary(report)

	// Export failures are logged but do not fail the run: the report was
	// produced and printed, losing one output form is not fatal.
	if csvOut != "" {
		if err := report.WriteCSV(csvOut); err != nil {
			logger.Error("failed to write CSV report", "path", csvOut, "error", err)
		}
	}
	if jsonOut != "" {
		if err := report.WriteJSON(jsonOut); err != nil {
			logger.Error("failed to write JSON report", "path", jsonOut, "error", err)
		}
	}
	if storePath != "" {
		if err := saveToStore(storePath, report); err != nil {
			logger.Error("failed to record run", "path", storePath, "error", err)
		}
	}

	return nil
}

func saveToStore(path string, report *sizeopt.SizeReport) error {
	store, err := sizeopt.OpenReportStore(path)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.SaveReport(report)
}

func printSummary(report *sizeopt.SizeReport) {
	fmt.Printf("run %s (%s/%s)\n", report.RunID, report.Platform, report.Tier)
	fmt.Printf("  assets:   %d (%d changes accepted)\n", len(report.Decisions), report.AcceptedCount())
	fmt.Printf("  before:   %s\n", formatBytes(report.TotalBefore))
	fmt.Printf("  after:    %s\n", formatBytes(report.TotalAfter))
	fmt.Printf("  saved:    %s (%.1f%%)\n", formatBytes(report.TotalSavedBytes), report.SavingsPercent)
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
