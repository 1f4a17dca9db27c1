package sweep

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/cachemiss/cachemodel"
	"github.com/inference-sim/cachemiss/cachemodel/internal/testutil"
)

// harnessConfigs mirrors the L1/L2/L3 configurations of the validation harness.
func harnessConfigs() []CacheConfig {
	return []CacheConfig{
		{Name: "Small L1", CacheSizeBytes: 32 * 1024, BlockSizeBytes: 64, Associativity: 4},
		{Name: "Large L1", CacheSizeBytes: 64 * 1024, BlockSizeBytes: 64, Associativity: 4},
		{Name: "L2 Cache", CacheSizeBytes: 256 * 1024, BlockSizeBytes: 64, Associativity: 8},
		{Name: "L3 Cache", CacheSizeBytes: 2 * 1024 * 1024, BlockSizeBytes: 64, Associativity: 16},
	}
}

func TestNew_DefaultsConcurrency(t *testing.T) {
	assert.Positive(t, New(0).Concurrency())
	assert.Equal(t, 3, New(3).Concurrency())
}

func TestConfigurations_MatchesDirectAnalysis(t *testing.T) {
	sizes := []int64{16, 32, 64}
	results, err := New(4).Configurations(context.Background(), harnessConfigs(), sizes, 8)
	require.NoError(t, err)
	require.Len(t, results, 4)

	for i, c := range harnessConfigs() {
		assert.Equal(t, c.Name, results[i].Name)
		require.Len(t, results[i].Points, len(sizes))
		g, err := c.Geometry()
		require.NoError(t, err)
		for j, size := range sizes {
			p := cachemodel.Problem{M: size, K: size, N: size, ElementSizeBytes: 8}
			want, err := cachemodel.Analyze(g, p)
			require.NoError(t, err)
			got := results[i].Points[j]
			assert.Equal(t, size, got.Size)
			assert.Equal(t, want.TotalMisses, got.TotalMisses)
			assert.Equal(t, want.OverallMissRate, got.MissRate)
			assert.InDelta(t, p.WorkingSetRatio(g), got.WorkingSetRatio, 1e-12)
		}
	}
}

func TestSweeps_GoldenSquareCases(t *testing.T) {
	dataset := testutil.LoadGoldenDataset(t)
	ran := 0
	for _, tc := range dataset.Tests {
		if tc.M != tc.K || tc.K != tc.N {
			continue
		}
		ran++
		t.Run(tc.Name, func(t *testing.T) {
			cfg := CacheConfig{Name: tc.Name, CacheSizeBytes: tc.CacheSizeBytes, BlockSizeBytes: tc.BlockSizeBytes, Associativity: tc.Associativity}
			g, err := cfg.Geometry()
			require.NoError(t, err)
			require.Equal(t, tc.NumSets, g.NumSets)

			results, err := New(2).Configurations(context.Background(), []CacheConfig{cfg}, []int64{tc.M}, tc.ElementSizeBytes)
			require.NoError(t, err)
			require.Len(t, results, 1)
			require.Len(t, results[0].Points, 1)
			assert.Equal(t, tc.TotalMisses, results[0].Points[0].TotalMisses)
			testutil.AssertFloat64Equal(t, "overall_miss_rate", tc.OverallMissRate, results[0].Points[0].MissRate, 1e-9)

			tiling, err := New(2).TilingStudy(context.Background(), g, []int64{tc.M}, tc.ElementSizeBytes)
			require.NoError(t, err)
			require.Len(t, tiling, 1)
			assert.Equal(t, tc.TileM, tiling[0].Tiles.TileM)
			assert.Equal(t, tc.TileK, tiling[0].Tiles.TileK)
			assert.Equal(t, tc.TileN, tiling[0].Tiles.TileN)
			testutil.AssertFloat64Equal(t, "naive_miss_rate", tc.OverallMissRate, tiling[0].NaiveMissRate, 1e-9)
		})
	}
	require.NotZero(t, ran, "golden dataset has no square cases")
}

func TestConfigurations_DeterministicAcrossConcurrency(t *testing.T) {
	sizes := []int64{8, 24, 40, 56}
	serial, err := New(1).Configurations(context.Background(), harnessConfigs(), sizes, 8)
	require.NoError(t, err)
	parallel, err := New(16).Configurations(context.Background(), harnessConfigs(), sizes, 8)
	require.NoError(t, err)
	assert.Equal(t, serial, parallel)
}

func TestConfigurations_BadConfigRejectedUpFront(t *testing.T) {
	configs := []CacheConfig{{Name: "odd", CacheSizeBytes: 32 * 1024, BlockSizeBytes: 64, Associativity: 3}}
	_, err := New(2).Configurations(context.Background(), configs, []int64{16}, 8)
	require.Error(t, err)
	assert.ErrorIs(t, err, cachemodel.ErrConfiguration)
	assert.Contains(t, err.Error(), `"odd"`)
}

func TestConfigurations_InvalidSizePropagates(t *testing.T) {
	_, err := New(2).Configurations(context.Background(), harnessConfigs(), []int64{16, 0}, 8)
	assert.ErrorIs(t, err, cachemodel.ErrInvalidProblem)
}

func TestMissRateCurve_NonIncreasing(t *testing.T) {
	cacheSizes := []int64{8 * 1024, 16 * 1024, 32 * 1024, 64 * 1024, 128 * 1024, 256 * 1024, 512 * 1024, 1024 * 1024}
	points, err := New(0).MissRateCurve(context.Background(), 64, cacheSizes, 64, 4, 8)
	require.NoError(t, err)
	require.Len(t, points, len(cacheSizes))

	for i := 1; i < len(points); i++ {
		assert.Equal(t, cacheSizes[i], points[i].CacheSizeBytes)
		assert.LessOrEqual(t, points[i].MissRate, points[i-1].MissRate, "cache=%d", cacheSizes[i])
		assert.Less(t, points[i].WorkingSetRatio, points[i-1].WorkingSetRatio)
	}
}

func TestAssociativityImpact_OrderAndValues(t *testing.T) {
	assocs := []int64{1, 2, 4, 8, 16}
	points, err := New(0).AssociativityImpact(context.Background(), 32*1024, 64, 32, assocs, 8)
	require.NoError(t, err)
	require.Len(t, points, len(assocs))

	for i, a := range assocs {
		g, err := cachemodel.GeometryFor(32*1024, 64, a)
		require.NoError(t, err)
		want, err := cachemodel.AnalyzeMatrixMultiplication(g, 32, 32, 32, 8)
		require.NoError(t, err)
		assert.Equal(t, a, points[i].Associativity)
		assert.Equal(t, want.ConflictMisses, points[i].ConflictMisses)
		assert.Equal(t, want.TotalMisses, points[i].TotalMisses)
	}
}

func TestTilingStudy_TilesWithinBounds(t *testing.T) {
	g, err := cachemodel.GeometryFor(32*1024, 64, 4)
	require.NoError(t, err)
	sizes := []int64{16, 32, 64, 128}

	points, err := New(2).TilingStudy(context.Background(), g, sizes, 8)
	require.NoError(t, err)
	for i, p := range points {
		assert.Equal(t, sizes[i], p.Size)
		assert.GreaterOrEqual(t, p.Tiles.TileM, int64(1))
		assert.LessOrEqual(t, p.Tiles.TileM, p.Size)
		assert.LessOrEqual(t, p.Tiles.TileK, p.Size)
		assert.LessOrEqual(t, p.Tiles.TileN, p.Size)
		assert.Positive(t, p.NaiveMissRate)
	}
}

func TestTilingStudy_RejectsInvalidGeometry(t *testing.T) {
	_, err := New(1).TilingStudy(context.Background(), cachemodel.Geometry{}, []int64{16}, 8)
	assert.ErrorIs(t, err, cachemodel.ErrConfiguration)
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	err := New(2).run(ctx, "cancelled", 10, func(int) error {
		calls.Add(1)
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls.Load())
}

func TestRun_FirstErrorWins(t *testing.T) {
	boom := errors.New("boom")
	err := New(1).run(context.Background(), "failing", 5, func(i int) error {
		if i == 2 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failing sweep")
}
