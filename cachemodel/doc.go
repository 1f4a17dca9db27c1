// Package cachemodel estimates cache behavior of the canonical row-major
// matrix-multiplication loop nest (C = A × B, loop order i, j, k) on a
// set-associative cache.
//
// # Reading Guide
//
//   - geometry.go: Geometry, the validated cache layout
//   - problem.go: Problem, one M×K×N multiplication instance
//   - miss.go: Analyze, the compulsory/capacity/conflict classifier
//   - reuse.go: ReuseDistanceModel, closed-form per-matrix reuse factors
//   - tiling.go: OptimalTileSizes, blocking-factor recommendation
//
// # Known Approximations
//
// Only compulsory misses are exact. Capacity misses scale the block overflow
// by min(M, N, K), and conflict misses count raw per-set access overflow
// across the whole run rather than per eviction. Both are upper-bound
// heuristics: OverallMissRate can exceed 1.0 for large problems on small
// caches, and TileRecommendation.CacheUtilization can exceed 1.0.
//
// Every function is pure. Independent analyses can run concurrently; see
// the sweep sub-package.
package cachemodel
