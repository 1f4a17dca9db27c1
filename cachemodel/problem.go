package cachemodel

// DefaultElementSizeBytes is the size of a double-precision scalar.
const DefaultElementSizeBytes int64 = 8

// Problem describes one C = A × B instance: A is M×K, B is K×N, C is M×N,
// all stored row-major.
type Problem struct {
	M                int64 `json:"m" yaml:"m"`
	K                int64 `json:"k" yaml:"k"`
	N                int64 `json:"n" yaml:"n"`
	ElementSizeBytes int64 `json:"element_size_bytes" yaml:"element_size_bytes"`
}

// NewProblem returns a validated Problem.
func NewProblem(m, k, n, elementSizeBytes int64) (Problem, error) {
	p := Problem{M: m, K: k, N: n, ElementSizeBytes: elementSizeBytes}
	if err := p.Validate(); err != nil {
		return Problem{}, err
	}
	return p, nil
}

// Validate returns *InvalidProblemError naming the first non-positive field.
func (p Problem) Validate() error {
	switch {
	case p.M <= 0:
		return &InvalidProblemError{Param: "M", Value: p.M}
	case p.K <= 0:
		return &InvalidProblemError{Param: "K", Value: p.K}
	case p.N <= 0:
		return &InvalidProblemError{Param: "N", Value: p.N}
	case p.ElementSizeBytes <= 0:
		return &InvalidProblemError{Param: "element_size_bytes", Value: p.ElementSizeBytes}
	}
	return nil
}

func (p Problem) BytesA() int64 { return p.M * p.K * p.ElementSizeBytes }
func (p Problem) BytesB() int64 { return p.K * p.N * p.ElementSizeBytes }
func (p Problem) BytesC() int64 { return p.M * p.N * p.ElementSizeBytes }

// TotalBytes is the combined footprint of A, B and C.
func (p Problem) TotalBytes() int64 {
	return p.BytesA() + p.BytesB() + p.BytesC()
}

// WorkingSetRatio is TotalBytes as a multiple of the cache size.
func (p Problem) WorkingSetRatio(g Geometry) float64 {
	return float64(p.TotalBytes()) / float64(g.CacheSizeBytes)
}

// TotalAccesses counts one read of A, one read of B and one read/write of C
// per inner-loop iteration.
func (p Problem) TotalAccesses() int64 {
	return p.M * p.K * p.N * 3
}

// ceilDiv assumes b > 0 and a >= 0.
func ceilDiv(a, b int64) int64 {
	return (a + b - 1) / b
}
