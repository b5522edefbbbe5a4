// Package model defines shared data types used across the newsflow pipeline.
//
// Conventions:
//   - Prices: float64 probabilities (0.0-1.0)
//   - Timestamps: time.Time in UTC; optional timestamps are *time.Time
//   - Embeddings: []float32 with a fixed per-deployment dimension
package model
