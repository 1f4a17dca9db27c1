package cachemodel

import "fmt"

// MissReport classifies the misses of one (Geometry, Problem) analysis.
// TotalMisses = CompulsoryMisses + CapacityMisses + ConflictMisses.
type MissReport struct {
	CompulsoryMisses int64   `json:"compulsory_misses" yaml:"compulsory_misses"`
	CapacityMisses   int64   `json:"capacity_misses" yaml:"capacity_misses"`
	ConflictMisses   int64   `json:"conflict_misses" yaml:"conflict_misses"`
	TotalMisses      int64   `json:"total_misses" yaml:"total_misses"`
	TotalAccesses    int64   `json:"total_accesses" yaml:"total_accesses"`
	OverallMissRate  float64 `json:"overall_miss_rate" yaml:"overall_miss_rate"`
}

// AnalyzeMatrixMultiplication is Analyze for an inline problem.
func AnalyzeMatrixMultiplication(g Geometry, m, k, n, elementSizeBytes int64) (MissReport, error) {
	return Analyze(g, Problem{M: m, K: k, N: n, ElementSizeBytes: elementSizeBytes})
}

// Analyze estimates compulsory, capacity and conflict misses for the i, j, k
// loop nest over p on a cache laid out as g.
//
// Cost is O(M·K + K·N + M·N) time and O(NumSets) memory, dominated by the
// conflict histogram.
func Analyze(g Geometry, p Problem) (MissReport, error) {
	if err := g.Validate(); err != nil {
		return MissReport{}, fmt.Errorf("analyze: %w", err)
	}
	if err := p.Validate(); err != nil {
		return MissReport{}, fmt.Errorf("analyze: %w", err)
	}

	r := MissReport{
		CompulsoryMisses: compulsoryMisses(g, p),
		CapacityMisses:   capacityMisses(g, p),
		ConflictMisses:   conflictMisses(g, p),
		TotalAccesses:    p.TotalAccesses(),
	}
	r.TotalMisses = r.CompulsoryMisses + r.CapacityMisses + r.ConflictMisses
	r.OverallMissRate = float64(r.TotalMisses) / float64(r.TotalAccesses)
	return r, nil
}

// matrixBlocks returns the number of distinct cache blocks spanned by A, B and C.
func matrixBlocks(g Geometry, p Problem) (a, b, c int64) {
	return ceilDiv(p.BytesA(), g.BlockSizeBytes),
		ceilDiv(p.BytesB(), g.BlockSizeBytes),
		ceilDiv(p.BytesC(), g.BlockSizeBytes)
}

// compulsoryMisses is exact: one cold miss per distinct block touched.
func compulsoryMisses(g Geometry, p Problem) int64 {
	a, b, c := matrixBlocks(g, p)
	return a + b + c
}

// capacityMisses is zero when all three matrices fit at once. Otherwise the
// block overflow is scaled by the smallest dimension as a reuse proxy.
func capacityMisses(g Geometry, p Problem) int64 {
	a, b, c := matrixBlocks(g, p)
	totalMatrixBlocks := a + b + c
	if totalMatrixBlocks <= g.TotalBlocks() {
		return 0
	}
	if p.TotalAccesses()*p.ElementSizeBytes <= g.CacheSizeBytes {
		return 0
	}
	return max(0, totalMatrixBlocks-g.TotalBlocks()) * min(p.M, p.N, p.K)
}

// conflictMisses sums, over every set, the accesses beyond Associativity.
// This counts raw overflow across the whole run, not per eviction, so it
// over-counts relative to an LRU simulation.
func conflictMisses(g Geometry, p Problem) int64 {
	var misses int64
	for _, count := range setAccessCounts(g, p) {
		if count > g.Associativity {
			misses += count - g.Associativity
		}
	}
	return misses
}

// setAccessCounts builds the per-set access histogram of the i, j, k loop
// with A, B and C placed back to back from address 0.
//
// Inside the loop nest A[i][k] is touched once per j (N times), B[k][j] once
// per i (M times) and C[i][j] once per k (K times). Weighting each element's
// set by its touch count gives the same histogram as walking all M·N·K
// iterations.
func setAccessCounts(g Geometry, p Problem) []int64 {
	counts := make([]int64, g.NumSets)
	baseB := p.BytesA()
	baseC := baseB + p.BytesB()

	addMatrix := func(base, elements, weight int64) {
		e := p.ElementSizeBytes
		for idx := int64(0); idx < elements; idx++ {
			counts[g.SetIndex(base+idx*e)] += weight
		}
	}
	addMatrix(0, p.M*p.K, p.N)
	addMatrix(baseB, p.K*p.N, p.M)
	addMatrix(baseC, p.M*p.N, p.K)
	return counts
}
