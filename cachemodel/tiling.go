package cachemodel

import "fmt"

// TileRecommendation holds blocking factors for a tiled loop nest.
type TileRecommendation struct {
	TileM int64 `json:"optimal_tile_m" yaml:"optimal_tile_m"`
	TileK int64 `json:"optimal_tile_k" yaml:"optimal_tile_k"`
	TileN int64 `json:"optimal_tile_n" yaml:"optimal_tile_n"`
	// CacheUtilization is informational and exceeds 1.0 when even the
	// smallest tiles overflow the budget.
	CacheUtilization float64 `json:"cache_utilization" yaml:"cache_utilization"`
}

// CalculateOptimalTileSizes is OptimalTileSizes for an inline problem.
func CalculateOptimalTileSizes(g Geometry, m, k, n, elementSizeBytes int64) (TileRecommendation, error) {
	return OptimalTileSizes(g, Problem{M: m, K: k, N: n, ElementSizeBytes: elementSizeBytes})
}

// OptimalTileSizes splits the cache evenly between A, B and C and picks the
// largest tiles whose rows fit each third. Every tile is in [1, dimension].
func OptimalTileSizes(g Geometry, p Problem) (TileRecommendation, error) {
	if err := g.Validate(); err != nil {
		return TileRecommendation{}, fmt.Errorf("tile sizes: %w", err)
	}
	if err := p.Validate(); err != nil {
		return TileRecommendation{}, fmt.Errorf("tile sizes: %w", err)
	}
	e := p.ElementSizeBytes
	cachePerMatrix := g.CacheSizeBytes / 3

	// A tile rows span K, C tile rows span N. Tiles may be 0 here; tileN and
	// the utilization are derived from these raw values and only the
	// returned tiles are clamped.
	tileM := min(p.M, cachePerMatrix/(e*p.K), cachePerMatrix/(e*p.N))
	tileK := min(p.K, cachePerMatrix/(e*p.N))
	if tileM+tileK == 0 {
		// One row of C overflows a third of the cache.
		tileM, tileK = 1, 1
	}
	tileN := min(p.N, cachePerMatrix/(e*(tileM+tileK)))

	footprint := (tileM*p.K + tileK*p.N + tileM*p.N) * e
	return TileRecommendation{
		TileM:            max(1, tileM),
		TileK:            max(1, tileK),
		TileN:            max(1, tileN),
		CacheUtilization: float64(footprint) / float64(g.CacheSizeBytes),
	}, nil
}
