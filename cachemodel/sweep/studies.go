package sweep

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/cachemiss/cachemodel"
)

// SizePoint is one square problem analyzed on one cache.
type SizePoint struct {
	Size            int64   `yaml:"size" json:"size"`
	MissRate        float64 `yaml:"miss_rate" json:"miss_rate"`
	TotalMisses     int64   `yaml:"total_misses" json:"total_misses"`
	WorkingSetRatio float64 `yaml:"working_set_ratio" json:"working_set_ratio"`
}

// ConfigResult holds every problem size analyzed on one cache config.
type ConfigResult struct {
	Name           string      `yaml:"config_name" json:"config_name"`
	CacheSizeBytes int64       `yaml:"cache_size_bytes" json:"cache_size_bytes"`
	Points         []SizePoint `yaml:"results" json:"results"`
}

// Configurations analyzes each square size on each cache config.
func (s *Sweeper) Configurations(ctx context.Context, configs []CacheConfig, sizes []int64, elementSizeBytes int64) ([]ConfigResult, error) {
	geometries := make([]cachemodel.Geometry, len(configs))
	results := make([]ConfigResult, len(configs))
	for i, c := range configs {
		g, err := c.Geometry()
		if err != nil {
			return nil, err
		}
		geometries[i] = g
		results[i] = ConfigResult{Name: c.Name, CacheSizeBytes: c.CacheSizeBytes, Points: make([]SizePoint, len(sizes))}
	}

	err := s.run(ctx, "configurations", len(configs)*len(sizes), func(idx int) error {
		ci, si := idx/len(sizes), idx%len(sizes)
		g, p := geometries[ci], squareProblem(sizes[si], elementSizeBytes)
		r, err := cachemodel.Analyze(g, p)
		if err != nil {
			return fmt.Errorf("%s size=%d: %w", configs[ci].Name, sizes[si], err)
		}
		logrus.Debugf("config %s size=%d miss_rate=%.4f", configs[ci].Name, sizes[si], r.OverallMissRate)
		results[ci].Points[si] = SizePoint{
			Size:            sizes[si],
			MissRate:        r.OverallMissRate,
			TotalMisses:     r.TotalMisses,
			WorkingSetRatio: p.WorkingSetRatio(g),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// CurvePoint is the miss rate of a fixed problem on one cache size.
type CurvePoint struct {
	CacheSizeBytes  int64   `yaml:"cache_size_bytes" json:"cache_size_bytes"`
	WorkingSetRatio float64 `yaml:"working_set_ratio" json:"working_set_ratio"`
	MissRate        float64 `yaml:"miss_rate" json:"miss_rate"`
}

// MissRateCurve analyzes one square problem across cache sizes with fixed
// block size and associativity.
func (s *Sweeper) MissRateCurve(ctx context.Context, size int64, cacheSizes []int64, blockSizeBytes, associativity, elementSizeBytes int64) ([]CurvePoint, error) {
	geometries := make([]cachemodel.Geometry, len(cacheSizes))
	for i, cs := range cacheSizes {
		g, err := cachemodel.GeometryFor(cs, blockSizeBytes, associativity)
		if err != nil {
			return nil, fmt.Errorf("miss-rate curve cache=%d: %w", cs, err)
		}
		geometries[i] = g
	}

	p := squareProblem(size, elementSizeBytes)
	points := make([]CurvePoint, len(cacheSizes))
	err := s.run(ctx, "miss-rate curve", len(cacheSizes), func(i int) error {
		r, err := cachemodel.Analyze(geometries[i], p)
		if err != nil {
			return err
		}
		points[i] = CurvePoint{
			CacheSizeBytes:  cacheSizes[i],
			WorkingSetRatio: p.WorkingSetRatio(geometries[i]),
			MissRate:        r.OverallMissRate,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return points, nil
}

// AssocPoint is the outcome for one associativity.
type AssocPoint struct {
	Associativity  int64   `yaml:"associativity" json:"associativity"`
	ConflictMisses int64   `yaml:"conflict_misses" json:"conflict_misses"`
	TotalMisses    int64   `yaml:"total_misses" json:"total_misses"`
	MissRate       float64 `yaml:"miss_rate" json:"miss_rate"`
}

// AssociativityImpact holds cache and block size fixed and varies the way
// count, re-deriving the set count each time.
func (s *Sweeper) AssociativityImpact(ctx context.Context, cacheSizeBytes, blockSizeBytes, size int64, associativities []int64, elementSizeBytes int64) ([]AssocPoint, error) {
	geometries := make([]cachemodel.Geometry, len(associativities))
	for i, a := range associativities {
		g, err := cachemodel.GeometryFor(cacheSizeBytes, blockSizeBytes, a)
		if err != nil {
			return nil, fmt.Errorf("associativity %d: %w", a, err)
		}
		geometries[i] = g
	}

	p := squareProblem(size, elementSizeBytes)
	points := make([]AssocPoint, len(associativities))
	err := s.run(ctx, "associativity", len(associativities), func(i int) error {
		r, err := cachemodel.Analyze(geometries[i], p)
		if err != nil {
			return err
		}
		points[i] = AssocPoint{
			Associativity:  associativities[i],
			ConflictMisses: r.ConflictMisses,
			TotalMisses:    r.TotalMisses,
			MissRate:       r.OverallMissRate,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return points, nil
}

// TilingPoint pairs the untiled miss rate of a square problem with the
// recommended tiles for it.
type TilingPoint struct {
	Size          int64                         `yaml:"size" json:"size"`
	NaiveMissRate float64                       `yaml:"naive_miss_rate" json:"naive_miss_rate"`
	Tiles         cachemodel.TileRecommendation `yaml:"tiles" json:"tiles"`
}

// TilingStudy analyzes each square size on g and recommends tiles for it.
func (s *Sweeper) TilingStudy(ctx context.Context, g cachemodel.Geometry, sizes []int64, elementSizeBytes int64) ([]TilingPoint, error) {
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("tiling study: %w", err)
	}
	points := make([]TilingPoint, len(sizes))
	err := s.run(ctx, "tiling", len(sizes), func(i int) error {
		p := squareProblem(sizes[i], elementSizeBytes)
		r, err := cachemodel.Analyze(g, p)
		if err != nil {
			return err
		}
		tiles, err := cachemodel.OptimalTileSizes(g, p)
		if err != nil {
			return err
		}
		points[i] = TilingPoint{Size: sizes[i], NaiveMissRate: r.OverallMissRate, Tiles: tiles}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return points, nil
}
