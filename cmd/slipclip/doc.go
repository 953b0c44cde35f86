// Package main hosts the slipclip CLI entrypoint and command graph.
//
// The Cobra-based command tree turns terminal invocations into calls on the
// internal packages: replay extraction, bulk clippify and export runs, store
// queries, batch sampling, the HTTP query server, and configuration
// scaffolding. Configuration resolution and logger setup live here so
// subcommands can focus on presentation.
//
// Keep this package lean: add behavior to the internal packages first, then
// surface it through a command or flag.
package main
