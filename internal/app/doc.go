// Package app wires application dependencies for the binaries.
//
// It loads Config from defaults, an optional YAML file and CDM_*
// environment variables, then builds the concrete store, engine, license
// client and acquisition service from it, exposing them via the Wire
// struct for commands to use.
package app
