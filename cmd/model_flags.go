package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inference-sim/cachemiss/cachemodel"
)

// modelFlags holds the cache and problem flags shared by analyze, reuse and tiles.
type modelFlags struct {
	preset         string
	cacheSizeBytes int64
	blockSizeBytes int64
	associativity  int64
	numSets        int64
	m, k, n        int64
	elementSize    int64
}

func (f *modelFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.preset, "preset", "", "Named cache from presets.yaml (explicit cache flags still win)")
	cmd.Flags().Int64Var(&f.cacheSizeBytes, "cache-size", 32*1024, "Cache size in bytes")
	cmd.Flags().Int64Var(&f.blockSizeBytes, "block-size", 64, "Cache block (line) size in bytes")
	cmd.Flags().Int64Var(&f.associativity, "assoc", cachemodel.DefaultAssociativity, "Set associativity (ways)")
	cmd.Flags().Int64Var(&f.numSets, "sets", 0, "Number of sets (default: (cache-size/block-size)/assoc)")
	cmd.Flags().Int64Var(&f.m, "m", 512, "Rows of A and C")
	cmd.Flags().Int64Var(&f.k, "k", 512, "Columns of A, rows of B")
	cmd.Flags().Int64Var(&f.n, "n", 512, "Columns of B and C")
	cmd.Flags().Int64Var(&f.elementSize, "element-size", cachemodel.DefaultElementSizeBytes, "Element size in bytes")
}

// geometry resolves the cache layout. A preset supplies cache size, block
// size and associativity, but only for flags the user did not set (changed
// reports whether a flag was given on the command line). An explicit --sets
// is validated as given; otherwise the set count is derived.
func (f *modelFlags) geometry(presetsPath string, changed func(string) bool) (cachemodel.Geometry, error) {
	cacheSize, blockSize, assoc := f.cacheSizeBytes, f.blockSizeBytes, f.associativity
	if f.preset != "" {
		cfg, err := loadPresetsConfig(presetsPath)
		if err != nil {
			return cachemodel.Geometry{}, err
		}
		p, ok := cfg.Preset(f.preset)
		if !ok {
			return cachemodel.Geometry{}, fmt.Errorf("unknown preset %q (available: %v)", f.preset, cfg.PresetNames())
		}
		if !changed("cache-size") {
			cacheSize = p.CacheSizeBytes
		}
		if !changed("block-size") {
			blockSize = p.BlockSizeBytes
		}
		if !changed("assoc") {
			assoc = p.Associativity
		}
	}
	if changed("sets") {
		return cachemodel.NewGeometry(cacheSize, f.numSets, blockSize, assoc)
	}
	return cachemodel.GeometryFor(cacheSize, blockSize, assoc)
}

func (f *modelFlags) problem() (cachemodel.Problem, error) {
	return cachemodel.NewProblem(f.m, f.k, f.n, f.elementSize)
}
