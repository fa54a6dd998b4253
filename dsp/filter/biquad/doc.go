// Package biquad implements second-order IIR sections in Direct Form II
// Transposed and cascades of them.
//
// # Usage
//
//	c := biquad.NewChain(sections)
//	c.ProcessBlock(samples) // in place
package biquad
