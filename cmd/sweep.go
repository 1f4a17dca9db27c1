package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/cachemiss/cachemodel"
	"github.com/inference-sim/cachemiss/cachemodel/sweep"
)

var (
	sweepConcurrency int
	sweepElementSize int64

	configsSizes []int64

	curveSize       int64
	curveCacheSizes []int64
	curveBlockSize  int64
	curveAssoc      int64

	assocCacheSize int64
	assocBlockSize int64
	assocSize      int64
	assocWays      []int64

	tilingPreset string
	tilingSizes  []int64
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run validation sweeps across cache configurations and problem sizes",
	Long: "Each sweep point is an independent analysis; points run concurrently (--concurrency) " +
		"and defaults come from the sweep section of presets.yaml. Flags override those defaults.",
}

// sweepSetup loads presets.yaml, applies --element-size, and returns a
// Sweeper with an interrupt-cancelled context.
func sweepSetup(cmd *cobra.Command) (Config, *sweep.Sweeper, context.Context, context.CancelFunc) {
	cfg, err := loadPresetsConfig(presetsFilePath)
	if err != nil {
		logrus.Fatalf("Failed to load presets: %v", err)
	}
	if cmd.Flags().Changed("element-size") || cfg.Sweep.ElementSizeBytes == 0 {
		cfg.Sweep.ElementSizeBytes = sweepElementSize
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	s := sweep.New(sweepConcurrency)
	logrus.Debugf("sweep concurrency=%d element_size=%dB", s.Concurrency(), cfg.Sweep.ElementSizeBytes)
	return cfg, s, ctx, cancel
}

// overrideInt64 keeps the presets.yaml value unless the flag was given or
// the file left it unset.
func overrideInt64(cmd *cobra.Command, name string, flagVal int64, fileVal *int64) {
	if cmd.Flags().Changed(name) || *fileVal == 0 {
		*fileVal = flagVal
	}
}

func overrideInt64s(cmd *cobra.Command, name string, flagVal []int64, fileVal *[]int64) {
	if cmd.Flags().Changed(name) || len(*fileVal) == 0 {
		*fileVal = flagVal
	}
}

func emit(cmd *cobra.Command, v any, text func(io.Writer)) {
	if err := writeReport(cmd.OutOrStdout(), outputFormat, v, text); err != nil {
		logrus.Fatalf("Failed to write report: %v", err)
	}
}

var sweepConfigsCmd = &cobra.Command{
	Use:   "configs",
	Short: "Analyze square problems on every preset cache",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, s, ctx, cancel := sweepSetup(cmd)
		defer cancel()
		overrideInt64s(cmd, "sizes", configsSizes, &cfg.Sweep.MatrixSizes)

		if len(cfg.Presets) == 0 {
			logrus.Fatalf("No presets in %s", presetsFilePath)
		}
		configs := make([]sweep.CacheConfig, 0, len(cfg.Presets))
		for _, p := range cfg.Presets {
			configs = append(configs, p.CacheConfig())
		}

		results, err := s.Configurations(ctx, configs, cfg.Sweep.MatrixSizes, cfg.Sweep.ElementSizeBytes)
		if err != nil {
			logrus.Fatalf("Sweep failed: %v", err)
		}
		emit(cmd, results, func(w io.Writer) { printConfigResults(w, results) })
	},
}

var sweepCurveCmd = &cobra.Command{
	Use:   "curve",
	Short: "Miss rate of one problem as the cache grows",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, s, ctx, cancel := sweepSetup(cmd)
		defer cancel()
		d := &cfg.Sweep
		overrideInt64(cmd, "size", curveSize, &d.CurveSize)
		overrideInt64s(cmd, "cache-sizes", curveCacheSizes, &d.CacheSizes)
		overrideInt64(cmd, "block-size", curveBlockSize, &d.CurveBlockSizeBytes)
		overrideInt64(cmd, "assoc", curveAssoc, &d.CurveAssociativity)

		points, err := s.MissRateCurve(ctx, d.CurveSize, d.CacheSizes, d.CurveBlockSizeBytes, d.CurveAssociativity, d.ElementSizeBytes)
		if err != nil {
			logrus.Fatalf("Sweep failed: %v", err)
		}
		emit(cmd, points, func(w io.Writer) { printCurve(w, d.CurveSize, points) })
	},
}

var sweepAssocCmd = &cobra.Command{
	Use:   "assoc",
	Short: "Conflict misses as associativity varies",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, s, ctx, cancel := sweepSetup(cmd)
		defer cancel()
		d := &cfg.Sweep
		overrideInt64(cmd, "cache-size", assocCacheSize, &d.AssocCacheSizeBytes)
		overrideInt64(cmd, "block-size", assocBlockSize, &d.AssocBlockSizeBytes)
		overrideInt64(cmd, "size", assocSize, &d.AssocSize)
		overrideInt64s(cmd, "assocs", assocWays, &d.Associativities)

		points, err := s.AssociativityImpact(ctx, d.AssocCacheSizeBytes, d.AssocBlockSizeBytes, d.AssocSize, d.Associativities, d.ElementSizeBytes)
		if err != nil {
			logrus.Fatalf("Sweep failed: %v", err)
		}
		emit(cmd, points, func(w io.Writer) { printAssoc(w, d.AssocCacheSizeBytes, d.AssocSize, points) })
	},
}

var sweepTilingCmd = &cobra.Command{
	Use:   "tiling",
	Short: "Untiled miss rate and recommended tiles across problem sizes",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, s, ctx, cancel := sweepSetup(cmd)
		defer cancel()
		d := &cfg.Sweep
		overrideInt64s(cmd, "sizes", tilingSizes, &d.TilingSizes)
		if cmd.Flags().Changed("preset") || d.TilingPreset == "" {
			d.TilingPreset = tilingPreset
		}

		preset, ok := cfg.Preset(d.TilingPreset)
		if !ok {
			logrus.Fatalf("Unknown preset %q (available: %v)", d.TilingPreset, cfg.PresetNames())
		}
		g, err := preset.CacheConfig().Geometry()
		if err != nil {
			logrus.Fatalf("Invalid preset: %v", err)
		}

		points, err := s.TilingStudy(ctx, g, d.TilingSizes, d.ElementSizeBytes)
		if err != nil {
			logrus.Fatalf("Sweep failed: %v", err)
		}
		emit(cmd, points, func(w io.Writer) { printTiling(w, g, points) })
	},
}

func printConfigResults(w io.Writer, results []sweep.ConfigResult) {
	fmt.Fprintln(w, "=== Cache Configuration Sweep ===")
	pr := newPrinter()
	for _, r := range results {
		fmt.Fprintf(w, "\n%s (%.0fKB)\n", r.Name, float64(r.CacheSizeBytes)/1024)
		fmt.Fprintln(w, "  Size  Working Set Ratio  Miss Rate      Total Misses")
		for _, p := range r.Points {
			pr.Fprintf(w, "  %4d  %16.2fx  %9.4f  %16d\n", p.Size, p.WorkingSetRatio, p.MissRate, p.TotalMisses)
		}
	}
}

func printCurve(w io.Writer, size int64, points []sweep.CurvePoint) {
	fmt.Fprintln(w, "=== Miss Rate vs Cache Size ===")
	fmt.Fprintf(w, "Matrix: %dx%dx%d\n\n", size, size, size)
	fmt.Fprintln(w, "Cache Size  Working Set Ratio  Miss Rate")
	fmt.Fprintln(w, "----------  -----------------  ---------")
	for _, p := range points {
		fmt.Fprintf(w, "%6.0fKB    %8.2fx          %8.4f\n", float64(p.CacheSizeBytes)/1024, p.WorkingSetRatio, p.MissRate)
	}
}

func printAssoc(w io.Writer, cacheSize, size int64, points []sweep.AssocPoint) {
	fmt.Fprintln(w, "=== Associativity Impact Analysis ===")
	fmt.Fprintf(w, "Cache: %.0fKB, Matrix: %dx%dx%d\n\n", float64(cacheSize)/1024, size, size, size)
	fmt.Fprintln(w, "Assoc  Conflict Misses  Total Misses  Miss Rate")
	fmt.Fprintln(w, "-----  ---------------  ------------  ---------")
	p := newPrinter()
	for _, pt := range points {
		p.Fprintf(w, "%5d  %15d  %12d  %9.4f\n", pt.Associativity, pt.ConflictMisses, pt.TotalMisses, pt.MissRate)
	}
}

func printTiling(w io.Writer, g cachemodel.Geometry, points []sweep.TilingPoint) {
	fmt.Fprintln(w, "=== Tiling Optimization Analysis ===")
	fmt.Fprintf(w, "Cache: %.0fKB, %dB blocks, %d-way\n", float64(g.CacheSizeBytes)/1024, g.BlockSizeBytes, g.Associativity)
	for _, p := range points {
		fmt.Fprintf(w, "\nMatrix %dx%dx%d:\n", p.Size, p.Size, p.Size)
		fmt.Fprintf(w, "  Naive miss rate: %.4f\n", p.NaiveMissRate)
		fmt.Fprintf(w, "  Optimal tile sizes: M=%d, K=%d, N=%d\n", p.Tiles.TileM, p.Tiles.TileK, p.Tiles.TileN)
		fmt.Fprintf(w, "  Cache utilization: %.2f\n", p.Tiles.CacheUtilization)
	}
}

func init() {
	sweepCmd.PersistentFlags().IntVar(&sweepConcurrency, "concurrency", 0, "Max analyses in flight (0 = GOMAXPROCS)")
	sweepCmd.PersistentFlags().Int64Var(&sweepElementSize, "element-size", cachemodel.DefaultElementSizeBytes, "Element size in bytes")

	sweepConfigsCmd.Flags().Int64SliceVar(&configsSizes, "sizes", []int64{64, 128, 256, 512, 1024}, "Square matrix sizes")

	sweepCurveCmd.Flags().Int64Var(&curveSize, "size", 512, "Square matrix size")
	sweepCurveCmd.Flags().Int64SliceVar(&curveCacheSizes, "cache-sizes",
		[]int64{8 << 10, 16 << 10, 32 << 10, 64 << 10, 128 << 10, 256 << 10, 512 << 10, 1 << 20}, "Cache sizes in bytes")
	sweepCurveCmd.Flags().Int64Var(&curveBlockSize, "block-size", 64, "Block size in bytes")
	sweepCurveCmd.Flags().Int64Var(&curveAssoc, "assoc", cachemodel.DefaultAssociativity, "Set associativity")

	sweepAssocCmd.Flags().Int64Var(&assocCacheSize, "cache-size", 32<<10, "Cache size in bytes")
	sweepAssocCmd.Flags().Int64Var(&assocBlockSize, "block-size", 64, "Block size in bytes")
	sweepAssocCmd.Flags().Int64Var(&assocSize, "size", 256, "Square matrix size")
	sweepAssocCmd.Flags().Int64SliceVar(&assocWays, "assocs", []int64{1, 2, 4, 8, 16}, "Associativities to compare")

	sweepTilingCmd.Flags().StringVar(&tilingPreset, "preset", "small-l1", "Cache preset to tile for")
	sweepTilingCmd.Flags().Int64SliceVar(&tilingSizes, "sizes", []int64{128, 256, 512, 1024}, "Square matrix sizes")

	sweepCmd.AddCommand(sweepConfigsCmd)
	sweepCmd.AddCommand(sweepCurveCmd)
	sweepCmd.AddCommand(sweepAssocCmd)
	sweepCmd.AddCommand(sweepTilingCmd)
	rootCmd.AddCommand(sweepCmd)
}
