package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"github.com/inference-sim/cachemiss/cachemodel"
)

var reportFormats = map[string]struct{}{"text": {}, "yaml": {}, "json": {}}

// CacheParams echoes the geometry with its derived block count.
type CacheParams struct {
	cachemodel.Geometry `yaml:",inline"`
	TotalBlocks         int64 `json:"total_blocks" yaml:"total_blocks"`
}

// MatrixParams echoes the problem with operand footprints.
type MatrixParams struct {
	cachemodel.Problem `yaml:",inline"`
	BytesA             int64   `json:"a_size_bytes" yaml:"a_size_bytes"`
	BytesB             int64   `json:"b_size_bytes" yaml:"b_size_bytes"`
	BytesC             int64   `json:"c_size_bytes" yaml:"c_size_bytes"`
	TotalDataBytes     int64   `json:"total_data_bytes" yaml:"total_data_bytes"`
	WorkingSetRatio    float64 `json:"working_set_ratio" yaml:"working_set_ratio"`
}

// AnalysisReport is the output of the analyze command.
type AnalysisReport struct {
	Cache  CacheParams           `json:"cache_params" yaml:"cache_params"`
	Matrix MatrixParams          `json:"matrix_params" yaml:"matrix_params"`
	Misses cachemodel.MissReport `json:"miss_analysis" yaml:"miss_analysis"`
}

func newCacheParams(g cachemodel.Geometry) CacheParams {
	return CacheParams{Geometry: g, TotalBlocks: g.TotalBlocks()}
}

func newMatrixParams(g cachemodel.Geometry, p cachemodel.Problem) MatrixParams {
	return MatrixParams{
		Problem:         p,
		BytesA:          p.BytesA(),
		BytesB:          p.BytesB(),
		BytesC:          p.BytesC(),
		TotalDataBytes:  p.TotalBytes(),
		WorkingSetRatio: p.WorkingSetRatio(g),
	}
}

// newAnalysisReport bundles an analysis with its inputs.
func newAnalysisReport(g cachemodel.Geometry, p cachemodel.Problem, r cachemodel.MissReport) AnalysisReport {
	return AnalysisReport{Cache: newCacheParams(g), Matrix: newMatrixParams(g, p), Misses: r}
}

// ReuseReport is the output of the reuse command.
type ReuseReport struct {
	Cache  CacheParams           `json:"cache_params" yaml:"cache_params"`
	Matrix MatrixParams          `json:"matrix_params" yaml:"matrix_params"`
	Reuse  cachemodel.ReuseModel `json:"reuse_analysis" yaml:"reuse_analysis"`
}

// TilesReport is the output of the tiles command.
type TilesReport struct {
	Cache  CacheParams                   `json:"cache_params" yaml:"cache_params"`
	Matrix MatrixParams                  `json:"matrix_params" yaml:"matrix_params"`
	Tiles  cachemodel.TileRecommendation `json:"tiling" yaml:"tiling"`
}

// writeReport renders v as YAML or JSON, or calls text for the console format.
func writeReport(w io.Writer, format string, v any, text func(w io.Writer)) error {
	switch format {
	case "yaml":
		data, err := yaml.Marshal(v)
		if err != nil {
			return fmt.Errorf("YAML marshal failed: %w", err)
		}
		_, err = w.Write(data)
		return err
	case "json":
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("JSON marshal failed: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case "text":
		text(w)
		return nil
	}
	return fmt.Errorf("unknown output format %q", format)
}

// newPrinter groups digits in integers ("98,304") for console reports.
func newPrinter() *message.Printer {
	return message.NewPrinter(language.English)
}

func printCacheParams(w io.Writer, c CacheParams) {
	fmt.Fprintf(w, "Cache Configuration:\n")
	fmt.Fprintf(w, "  Size: %d bytes\n", c.CacheSizeBytes)
	fmt.Fprintf(w, "  Sets: %d\n", c.NumSets)
	fmt.Fprintf(w, "  Block Size: %d bytes\n", c.BlockSizeBytes)
	fmt.Fprintf(w, "  Associativity: %d-way\n", c.Associativity)
}

func printMatrixParams(w io.Writer, m MatrixParams) {
	fmt.Fprintf(w, "\nMatrix Configuration:\n")
	fmt.Fprintf(w, "  M=%d, K=%d, N=%d\n", m.M, m.K, m.N)
	fmt.Fprintf(w, "  Total Data: %.2f MB\n", float64(m.TotalDataBytes)/(1024*1024))
	fmt.Fprintf(w, "  Working Set Ratio: %.2fx cache size\n", m.WorkingSetRatio)
}

func printAnalysis(w io.Writer, r AnalysisReport) {
	fmt.Fprintln(w, "=== Cache Miss Rate Analysis Model ===")
	printCacheParams(w, r.Cache)
	printMatrixParams(w, r.Matrix)

	p := newPrinter()
	m := r.Misses
	p.Fprintf(w, "\nMiss Analysis:\n")
	p.Fprintf(w, "  Compulsory Misses: %d\n", m.CompulsoryMisses)
	p.Fprintf(w, "  Capacity Misses: %d\n", m.CapacityMisses)
	p.Fprintf(w, "  Conflict Misses: %d\n", m.ConflictMisses)
	p.Fprintf(w, "  Total Misses: %d\n", m.TotalMisses)
	p.Fprintf(w, "  Total Accesses: %d\n", m.TotalAccesses)
	fmt.Fprintf(w, "  Overall Miss Rate: %.4f (%.2f%%)\n", m.OverallMissRate, m.OverallMissRate*100)
}

func printReuse(w io.Writer, r ReuseReport) {
	fmt.Fprintln(w, "=== Reuse Pattern Analysis ===")
	fmt.Fprintf(w, "Matrix: %dx%dx%d\n", r.Matrix.M, r.Matrix.K, r.Matrix.N)

	p := newPrinter()
	for _, op := range []struct {
		name    string
		profile cachemodel.ReuseProfile
	}{{"matrix_A", r.Reuse.A}, {"matrix_B", r.Reuse.B}, {"matrix_C", r.Reuse.C}} {
		p.Fprintf(w, "\n%s:\n", op.name)
		p.Fprintf(w, "  Total elements: %d\n", op.profile.TotalElements)
		p.Fprintf(w, "  Unique cache blocks: %d\n", op.profile.UniqueBlocks)
		fmt.Fprintf(w, "  Reuse factor: %d\n", op.profile.ReuseFactor)
		fmt.Fprintf(w, "  Temporal reuse: %d\n", op.profile.TemporalReuse)
		fmt.Fprintf(w, "  Spatial reuse: %d\n", op.profile.SpatialReuse)
	}
}

func printTiles(w io.Writer, r TilesReport) {
	fmt.Fprintln(w, "=== Optimal Tiling ===")
	printCacheParams(w, r.Cache)
	printMatrixParams(w, r.Matrix)
	fmt.Fprintf(w, "\nOptimal Tiling:\n")
	fmt.Fprintf(w, "  Tile M: %d\n", r.Tiles.TileM)
	fmt.Fprintf(w, "  Tile K: %d\n", r.Tiles.TileK)
	fmt.Fprintf(w, "  Tile N: %d\n", r.Tiles.TileN)
	fmt.Fprintf(w, "  Cache Utilization: %.2f\n", r.Tiles.CacheUtilization)
}
