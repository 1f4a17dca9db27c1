package cachemodel

import "fmt"

// ReuseProfile summarizes how one matrix is re-referenced by the i, j, k loop.
type ReuseProfile struct {
	TotalElements int64 `json:"total_elements" yaml:"total_elements"`
	UniqueBlocks  int64 `json:"unique_blocks" yaml:"unique_blocks"`
	ReuseFactor   int64 `json:"reuse_factor" yaml:"reuse_factor"`
	// TemporalReuse is how many times each element is logically referenced.
	TemporalReuse int64 `json:"temporal_reuse" yaml:"temporal_reuse"`
	// SpatialReuse is how many elements of one block are consumed in a row.
	SpatialReuse int64 `json:"spatial_reuse" yaml:"spatial_reuse"`
}

// ReuseModel holds the reuse profile of each operand.
type ReuseModel struct {
	A ReuseProfile `json:"matrix_a" yaml:"matrix_a"`
	B ReuseProfile `json:"matrix_b" yaml:"matrix_b"`
	C ReuseProfile `json:"matrix_c" yaml:"matrix_c"`
}

// GenerateReuseDistanceModel is ReuseDistanceModel for an inline problem.
func GenerateReuseDistanceModel(g Geometry, m, k, n, elementSizeBytes int64) (ReuseModel, error) {
	return ReuseDistanceModel(g, Problem{M: m, K: k, N: n, ElementSizeBytes: elementSizeBytes})
}

// ReuseDistanceModel approximates reuse distance with closed-form reuse
// factors rather than stack-distance analysis.
func ReuseDistanceModel(g Geometry, p Problem) (ReuseModel, error) {
	if err := g.Validate(); err != nil {
		return ReuseModel{}, fmt.Errorf("reuse model: %w", err)
	}
	if err := p.Validate(); err != nil {
		return ReuseModel{}, fmt.Errorf("reuse model: %w", err)
	}
	// A block smaller than one element still serves that element.
	elementsPerBlock := max(1, g.BlockSizeBytes/p.ElementSizeBytes)

	profile := func(elements, temporal, rowLen int64) ReuseProfile {
		return ReuseProfile{
			TotalElements: elements,
			UniqueBlocks:  ceilDiv(elements*p.ElementSizeBytes, g.BlockSizeBytes),
			ReuseFactor:   temporal,
			TemporalReuse: temporal,
			SpatialReuse:  min(elementsPerBlock, rowLen),
		}
	}

	return ReuseModel{
		// A[i][k] is read once per output column; k walks a row of A.
		A: profile(p.M*p.K, p.N, p.K),
		// B[k][j] is read once per output row.
		B: profile(p.K*p.N, p.M, p.N),
		// C[i][j] accumulates one term per k.
		C: profile(p.M*p.N, p.K, p.N),
	}, nil
}
