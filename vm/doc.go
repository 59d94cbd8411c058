// Package vm implements the garnet virtual machine.
//
// This package contains:
//   - NaN-boxed value representation
//   - Heap objects, classes and singleton classes
//   - Argument vectors and activation contexts
//   - Bytecode format, builder and disassembler
//   - Bytecode interpreter and method dispatch
//   - Primitive class implementations
package vm
