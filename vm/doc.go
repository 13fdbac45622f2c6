// Package vm executes three-address listings produced by the compiler.
//
// This package contains:
//   - a decoder that turns listing lines into instructions
//   - dynamically typed values (integer, real, string, array)
//   - a frame-based interpreter with call, return and jump support
//
// The listing carries no calling convention, so the decoder recovers one from
// the declaration comments the code generator writes: parameters, locals and
// constants of each routine, and the extent of its body.
package vm
