// Package commands defines the cdmctl CLI and wires dependencies for subcommands.
//
// Commands
//
//   - initdata  Print a Clear Key 'pssh' box for one or more key ids
//   - package   Encrypt a file with the content key for a key id
//   - acquire   Run a license exchange and report the key statuses
//   - decrypt   Acquire or restore a license and decrypt files with it
//   - list      List persisted licenses
//   - remove    Release a persisted license
//
// # Implementation
//
// The root command loads the config file, applies CDM_* environment
// variables and flag overrides, and builds the dependency graph (store,
// engine, license client, acquisition service) before any subcommand runs.
// With --metrics the collected counters are written to stderr on exit.
package commands
