// Package cmd implements the command-line interface for the spoutcore
// tick engine tooling. It provides a hierarchical command structure for
// exercising and inspecting the engine core.
//
// The package is organized into several subpackages:
//
//   - sim: Commands for running a synthetic tick loop against the
//     snapshot lock and the scheduled update machinery
//   - util: Shared utilities for command-line processing and
//     configuration (internal use)
//
// See spoutcore -help for a list of all commands.
package cmd
