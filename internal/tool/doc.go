// Package tool invokes the external image-processing command for a single
// file. Arguments are passed as discrete argv entries with no shell
// re-parsing, and the input and output paths are always the final two
// arguments.
package tool
