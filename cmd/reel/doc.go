// Package main hosts the reel CLI entrypoint and command graph.
//
// The Cobra-based command tree covers queue inspection and maintenance,
// daemon status probing over the health endpoint, configuration scaffolding,
// and notification testing. It centralizes configuration resolution so
// subcommands can focus on user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
