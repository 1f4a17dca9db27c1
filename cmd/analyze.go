package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/cachemiss/cachemodel"
)

var (
	analyzeFlags modelFlags
	reuseFlags   modelFlags
	tilesFlags   modelFlags
)

// resolveModelInputs turns flags into a validated geometry and problem or exits.
func resolveModelInputs(cmd *cobra.Command, f *modelFlags) (cachemodel.Geometry, cachemodel.Problem) {
	g, err := f.geometry(presetsFilePath, cmd.Flags().Changed)
	if err != nil {
		logrus.Fatalf("Invalid cache configuration: %v", err)
	}
	p, err := f.problem()
	if err != nil {
		logrus.Fatalf("Invalid problem: %v", err)
	}
	logrus.Debugf("cache %v, problem M=%d K=%d N=%d elem=%dB", g, p.M, p.K, p.N, p.ElementSizeBytes)
	return g, p
}

// analyzeCmd classifies the misses of one problem on one cache
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Estimate compulsory, capacity and conflict misses",
	Run: func(cmd *cobra.Command, args []string) {
		g, p := resolveModelInputs(cmd, &analyzeFlags)

		start := time.Now()
		r, err := cachemodel.Analyze(g, p)
		if err != nil {
			logrus.Fatalf("Analysis failed: %v", err)
		}
		logrus.Infof("Analysis complete in %v", time.Since(start))
		if r.OverallMissRate > 1 {
			logrus.Warnf("Estimated miss rate %.4f exceeds 1: capacity and conflict terms are upper-bound heuristics", r.OverallMissRate)
		}

		report := newAnalysisReport(g, p, r)
		if err := writeReport(cmd.OutOrStdout(), outputFormat, report, func(w io.Writer) { printAnalysis(w, report) }); err != nil {
			logrus.Fatalf("Failed to write report: %v", err)
		}
	},
}

// reuseCmd prints per-operand reuse factors
var reuseCmd = &cobra.Command{
	Use:   "reuse",
	Short: "Profile temporal and spatial reuse of A, B and C",
	Run: func(cmd *cobra.Command, args []string) {
		g, p := resolveModelInputs(cmd, &reuseFlags)

		m, err := cachemodel.ReuseDistanceModel(g, p)
		if err != nil {
			logrus.Fatalf("Reuse model failed: %v", err)
		}
		report := ReuseReport{Cache: newCacheParams(g), Matrix: newMatrixParams(g, p), Reuse: m}
		if err := writeReport(cmd.OutOrStdout(), outputFormat, report, func(w io.Writer) { printReuse(w, report) }); err != nil {
			logrus.Fatalf("Failed to write report: %v", err)
		}
	},
}

// tilesCmd recommends blocking factors
var tilesCmd = &cobra.Command{
	Use:   "tiles",
	Short: "Recommend tile sizes for a blocked loop nest",
	Run: func(cmd *cobra.Command, args []string) {
		g, p := resolveModelInputs(cmd, &tilesFlags)

		t, err := cachemodel.OptimalTileSizes(g, p)
		if err != nil {
			logrus.Fatalf("Tile recommendation failed: %v", err)
		}
		if t.CacheUtilization > 1 {
			logrus.Warnf("Tile working set is %.2fx the cache: minimum tiles still overflow", t.CacheUtilization)
		}
		report := TilesReport{Cache: newCacheParams(g), Matrix: newMatrixParams(g, p), Tiles: t}
		if err := writeReport(cmd.OutOrStdout(), outputFormat, report, func(w io.Writer) { printTiles(w, report) }); err != nil {
			logrus.Fatalf("Failed to write report: %v", err)
		}
	},
}

// presetsCmd lists the caches in presets.yaml
var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List named cache presets",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadPresetsConfig(presetsFilePath)
		if err != nil {
			logrus.Fatalf("Failed to load presets: %v", err)
		}
		if err := writeReport(cmd.OutOrStdout(), outputFormat, cfg.Presets, func(w io.Writer) { printPresets(w, cfg.Presets) }); err != nil {
			logrus.Fatalf("Failed to write report: %v", err)
		}
	},
}

func printPresets(w io.Writer, presets []Preset) {
	for _, p := range presets {
		sets := "invalid"
		if g, err := cachemodel.GeometryFor(p.CacheSizeBytes, p.BlockSizeBytes, p.Associativity); err == nil {
			sets = fmt.Sprintf("%d sets", g.NumSets)
		}
		fmt.Fprintf(w, "%-10s %-12s %8d B, %3d B blocks, %2d-way, %s\n",
			p.Name, p.Description, p.CacheSizeBytes, p.BlockSizeBytes, p.Associativity, sets)
	}
}

func init() {
	analyzeFlags.register(analyzeCmd)
	reuseFlags.register(reuseCmd)
	tilesFlags.register(tilesCmd)

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(reuseCmd)
	rootCmd.AddCommand(tilesCmd)
	rootCmd.AddCommand(presetsCmd)
}
