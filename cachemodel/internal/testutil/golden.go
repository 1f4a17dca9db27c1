// Package testutil provides shared test infrastructure for the cache model.
// It holds the golden dataset types and assertion helpers used by the
// cachemodel and cachemodel/sweep test packages.
package testutil

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// GoldenDataset represents the structure of testdata/goldendataset.json.
type GoldenDataset struct {
	Tests []GoldenTestCase `json:"tests"`
}

// GoldenTestCase is one (cache, problem) pair with the reference model's outputs.
type GoldenTestCase struct {
	Name             string `json:"name"`
	CacheSizeBytes   int64  `json:"cache_size_bytes"`
	BlockSizeBytes   int64  `json:"block_size_bytes"`
	Associativity    int64  `json:"associativity"`
	NumSets          int64  `json:"num_sets"`
	M                int64  `json:"m"`
	K                int64  `json:"k"`
	N                int64  `json:"n"`
	ElementSizeBytes int64  `json:"element_size_bytes"`

	// Exact match (integers)
	CompulsoryMisses int64 `json:"compulsory_misses"`
	CapacityMisses   int64 `json:"capacity_misses"`
	ConflictMisses   int64 `json:"conflict_misses"`
	TotalMisses      int64 `json:"total_misses"`
	TotalAccesses    int64 `json:"total_accesses"`
	TileM            int64 `json:"tile_m"`
	TileK            int64 `json:"tile_k"`
	TileN            int64 `json:"tile_n"`

	OverallMissRate  float64 `json:"overall_miss_rate"`
	CacheUtilization float64 `json:"cache_utilization"`
}

// LoadGoldenDataset loads the golden dataset from the testdata directory.
// The path is resolved relative to this source file: cachemodel/internal/testutil/ → testdata/.
func LoadGoldenDataset(t *testing.T) *GoldenDataset {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get current file path")
	}
	path := filepath.Join(filepath.Dir(thisFile), "..", "..", "..", "testdata", "goldendataset.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read golden dataset: %v", err)
	}

	var dataset GoldenDataset
	if err := json.Unmarshal(data, &dataset); err != nil {
		t.Fatalf("Failed to parse golden dataset: %v", err)
	}
	if len(dataset.Tests) == 0 {
		t.Fatal("golden dataset has no test cases")
	}
	return &dataset
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}
