package cachemodel

import "fmt"

// DefaultAssociativity is the way count used when the caller does not pick one.
const DefaultAssociativity int64 = 4

// Geometry is a validated set-associative cache layout.
// Construct with NewGeometry or GeometryFor; the zero value is not usable.
type Geometry struct {
	CacheSizeBytes int64 `json:"cache_size_bytes" yaml:"cache_size_bytes"`
	BlockSizeBytes int64 `json:"block_size_bytes" yaml:"block_size_bytes"`
	NumSets        int64 `json:"num_sets" yaml:"num_sets"`
	Associativity  int64 `json:"associativity" yaml:"associativity"`
}

// NewGeometry validates the parameters and returns the cache layout.
// Returns *ConfigurationError if any parameter is non-positive or if
// cacheSizeBytes/blockSizeBytes != numSets*associativity.
func NewGeometry(cacheSizeBytes, numSets, blockSizeBytes, associativity int64) (Geometry, error) {
	params := []struct {
		name string
		v    int64
	}{
		{"cache_size_bytes", cacheSizeBytes},
		{"num_sets", numSets},
		{"block_size_bytes", blockSizeBytes},
		{"associativity", associativity},
	}
	for _, p := range params {
		if p.v <= 0 {
			return Geometry{}, &ConfigurationError{Param: p.name, Msg: fmt.Sprintf("must be > 0, got %d", p.v)}
		}
	}

	g := Geometry{
		CacheSizeBytes: cacheSizeBytes,
		BlockSizeBytes: blockSizeBytes,
		NumSets:        numSets,
		Associativity:  associativity,
	}
	if g.TotalBlocks() != numSets*associativity {
		return Geometry{}, &ConfigurationError{
			Param: "num_sets",
			Msg: fmt.Sprintf("inconsistent: %d bytes / %d-byte blocks = %d blocks, but %d sets × %d ways = %d",
				cacheSizeBytes, blockSizeBytes, g.TotalBlocks(), numSets, associativity, numSets*associativity),
		}
	}
	return g, nil
}

// GeometryFor derives the conventional set count
// (cacheSizeBytes/blockSizeBytes)/associativity and validates the result.
func GeometryFor(cacheSizeBytes, blockSizeBytes, associativity int64) (Geometry, error) {
	if blockSizeBytes <= 0 {
		return Geometry{}, &ConfigurationError{Param: "block_size_bytes", Msg: fmt.Sprintf("must be > 0, got %d", blockSizeBytes)}
	}
	if associativity <= 0 {
		return Geometry{}, &ConfigurationError{Param: "associativity", Msg: fmt.Sprintf("must be > 0, got %d", associativity)}
	}
	return NewGeometry(cacheSizeBytes, (cacheSizeBytes/blockSizeBytes)/associativity, blockSizeBytes, associativity)
}

// TotalBlocks is the number of cache lines.
func (g Geometry) TotalBlocks() int64 {
	return g.CacheSizeBytes / g.BlockSizeBytes
}

// BlocksPerSet equals Associativity for a validated geometry.
func (g Geometry) BlocksPerSet() int64 {
	return g.TotalBlocks() / g.NumSets
}

// SetIndex maps a byte address to its cache set.
func (g Geometry) SetIndex(addr int64) int64 {
	return (addr / g.BlockSizeBytes) % g.NumSets
}

func (g Geometry) String() string {
	return fmt.Sprintf("%dB/%dB-blocks/%d-sets/%d-way", g.CacheSizeBytes, g.BlockSizeBytes, g.NumSets, g.Associativity)
}

// Validate re-checks a Geometry that may have been built as a struct literal.
func (g Geometry) Validate() error {
	_, err := NewGeometry(g.CacheSizeBytes, g.NumSets, g.BlockSizeBytes, g.Associativity)
	return err
}
