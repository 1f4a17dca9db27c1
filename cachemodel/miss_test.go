package cachemodel

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/cachemiss/cachemodel/internal/testutil"
)

func mustGeometry(t *testing.T, cacheSize, blockSize, assoc int64) Geometry {
	t.Helper()
	g, err := GeometryFor(cacheSize, blockSize, assoc)
	require.NoError(t, err)
	return g
}

// literalSetAccessCounts walks every iteration of the i, j, k loop nest.
// Only usable for small problems; it is the reference for setAccessCounts.
func literalSetAccessCounts(g Geometry, p Problem) []int64 {
	counts := make([]int64, g.NumSets)
	e := p.ElementSizeBytes
	baseB := p.M * p.K * e
	baseC := baseB + p.K*p.N*e
	for i := int64(0); i < p.M; i++ {
		for j := int64(0); j < p.N; j++ {
			for k := int64(0); k < p.K; k++ {
				counts[g.SetIndex((i*p.K+k)*e)]++
				counts[g.SetIndex(baseB+(k*p.N+j)*e)]++
				counts[g.SetIndex(baseC+(i*p.N+j)*e)]++
			}
		}
	}
	return counts
}

func TestAnalyze_CompulsoryMissesExact(t *testing.T) {
	g := mustGeometry(t, 32*1024, 64, 4)
	tests := []struct {
		name    string
		p       Problem
		wantCMP int64
	}{
		// each matrix is 32 bytes → one block apiece
		{"2x2x2 doubles", Problem{2, 2, 2, 8}, 3},
		{"8x8x8 doubles", Problem{8, 8, 8, 8}, 24},
		// A=3*5*4=60B→1, B=5*7*4=140B→3, C=3*7*4=84B→2
		{"rectangular floats", Problem{3, 5, 7, 4}, 6},
		{"single element", Problem{1, 1, 1, 8}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Analyze(g, tt.p)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCMP, r.CompulsoryMisses)
		})
	}
}

func TestAnalyze_ZeroCapacityMissesWhenDataFits(t *testing.T) {
	g := mustGeometry(t, 1024*1024, 64, 4)
	r, err := AnalyzeMatrixMultiplication(g, 4, 4, 4, DefaultElementSizeBytes)
	require.NoError(t, err)
	assert.Equal(t, int64(0), r.CapacityMisses)
}

func TestAnalyze_CapacityGuardWhenTrafficFitsCache(t *testing.T) {
	// GIVEN a 2-block cache and three single-element matrices (3 blocks)
	g, err := NewGeometry(128, 1, 64, 2)
	require.NoError(t, err)

	// WHEN the whole run moves fewer bytes than the cache holds
	r, err := AnalyzeMatrixMultiplication(g, 1, 1, 1, 8)
	require.NoError(t, err)

	// THEN no capacity misses are charged despite the block overflow
	assert.Equal(t, int64(0), r.CapacityMisses)
}

func TestAnalyze_TotalAccessesIdentity(t *testing.T) {
	for _, cacheSize := range []int64{8 * 1024, 32 * 1024, 1024 * 1024} {
		g := mustGeometry(t, cacheSize, 64, 4)
		r, err := AnalyzeMatrixMultiplication(g, 10, 10, 10, 8)
		require.NoError(t, err)
		assert.Equal(t, int64(3000), r.TotalAccesses, "cache=%d", cacheSize)
	}
}

func TestAnalyze_TotalIsSumOfComponents(t *testing.T) {
	g := mustGeometry(t, 8*1024, 64, 2)
	r, err := AnalyzeMatrixMultiplication(g, 40, 24, 56, 8)
	require.NoError(t, err)
	assert.Equal(t, r.CompulsoryMisses+r.CapacityMisses+r.ConflictMisses, r.TotalMisses)
	assert.InDelta(t, float64(r.TotalMisses)/float64(r.TotalAccesses), r.OverallMissRate, 1e-12)
}

func TestSetAccessCounts_MatchesLiteralLoopNest(t *testing.T) {
	tests := []struct {
		name  string
		cache int64
		block int64
		assoc int64
		p     Problem
	}{
		{"square doubles", 32 * 1024, 64, 4, Problem{12, 12, 12, 8}},
		{"rectangular floats", 8 * 1024, 32, 2, Problem{5, 17, 9, 4}},
		{"direct mapped", 4 * 1024, 64, 1, Problem{7, 3, 11, 8}},
		{"element larger than block", 4 * 1024, 16, 4, Problem{6, 6, 6, 24}},
		{"unaligned matrix bases", 2 * 1024, 64, 2, Problem{3, 3, 3, 8}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := mustGeometry(t, tt.cache, tt.block, tt.assoc)
			assert.Equal(t, literalSetAccessCounts(g, tt.p), setAccessCounts(g, tt.p))
		})
	}
}

func TestAnalyze_MissRateMonotoneInCacheSize(t *testing.T) {
	// Doubling the set count refines the set mapping, so neither the block
	// overflow nor the per-set overflow can grow.
	p := Problem{64, 64, 64, 8}
	prev := 2.0e9
	for cacheSize := int64(8 * 1024); cacheSize <= 1024*1024; cacheSize *= 2 {
		g := mustGeometry(t, cacheSize, 64, 4)
		r, err := Analyze(g, p)
		require.NoError(t, err)
		if r.OverallMissRate > prev {
			t.Errorf("cache=%d: miss rate %v exceeds smaller cache's %v", cacheSize, r.OverallMissRate, prev)
		}
		prev = r.OverallMissRate
	}
}

func TestAnalyze_EndToEnd512OnL1(t *testing.T) {
	g, err := NewGeometry(32768, 128, 64, 4)
	require.NoError(t, err)

	r, err := AnalyzeMatrixMultiplication(g, 512, 512, 512, 8)
	require.NoError(t, err)

	assert.Equal(t, int64(98304), r.CompulsoryMisses)
	assert.Equal(t, int64(402653184), r.TotalAccesses)
	// (98304 - 512) blocks of overflow × min(M, N, K)
	assert.Equal(t, int64(50069504), r.CapacityMisses)
	// every set sees far more than 4 accesses: total - 128×4
	assert.Equal(t, int64(402652672), r.ConflictMisses)
	assert.Greater(t, r.OverallMissRate, float64(r.CompulsoryMisses)/float64(r.TotalAccesses))
}

func TestAnalyze_MissRateCanExceedOne(t *testing.T) {
	// Known approximation: capacity and conflict terms both over-count, so
	// a 6 MiB working set on a 32 KiB cache reports more misses than accesses.
	g := mustGeometry(t, 32*1024, 64, 4)
	r, err := AnalyzeMatrixMultiplication(g, 512, 512, 512, 8)
	require.NoError(t, err)
	assert.Greater(t, r.OverallMissRate, 1.0)
}

func TestAnalyze_InvalidProblem(t *testing.T) {
	g := mustGeometry(t, 32*1024, 64, 4)
	tests := []struct {
		name      string
		p         Problem
		wantParam string
	}{
		{"zero M", Problem{0, 4, 4, 8}, "M"},
		{"negative K", Problem{4, -2, 4, 8}, "K"},
		{"zero N", Problem{4, 4, 0, 8}, "N"},
		{"zero element size", Problem{4, 4, 4, 0}, "element_size_bytes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Analyze(g, tt.p)
			require.Error(t, err)
			var probErr *InvalidProblemError
			require.True(t, errors.As(err, &probErr))
			assert.Equal(t, tt.wantParam, probErr.Param)
			assert.ErrorIs(t, err, ErrInvalidProblem)
			assert.Contains(t, err.Error(), tt.wantParam)
		})
	}
}

func TestAnalyze_InvalidGeometry(t *testing.T) {
	_, err := AnalyzeMatrixMultiplication(Geometry{CacheSizeBytes: 1024, BlockSizeBytes: 64, NumSets: 3, Associativity: 4}, 4, 4, 4, 8)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestAnalyze_GoldenDataset(t *testing.T) {
	dataset := testutil.LoadGoldenDataset(t)
	for _, tc := range dataset.Tests {
		t.Run(tc.Name, func(t *testing.T) {
			g, err := NewGeometry(tc.CacheSizeBytes, tc.NumSets, tc.BlockSizeBytes, tc.Associativity)
			require.NoError(t, err)
			r, err := AnalyzeMatrixMultiplication(g, tc.M, tc.K, tc.N, tc.ElementSizeBytes)
			require.NoError(t, err)

			assert.Equal(t, tc.CompulsoryMisses, r.CompulsoryMisses, "compulsory")
			assert.Equal(t, tc.CapacityMisses, r.CapacityMisses, "capacity")
			assert.Equal(t, tc.ConflictMisses, r.ConflictMisses, "conflict")
			assert.Equal(t, tc.TotalMisses, r.TotalMisses, "total")
			assert.Equal(t, tc.TotalAccesses, r.TotalAccesses, "accesses")
			testutil.AssertFloat64Equal(t, "overall_miss_rate", tc.OverallMissRate, r.OverallMissRate, 1e-9)
		})
	}
}
