// Package replay decodes Slippi replay files (.slp) and extracts one numeric
// input stream per active controller port.
//
// A replay is a UBJSON document with two members: "raw", the binary event
// stream recorded frame by frame, and "metadata", an optional object carrying
// netplay names and connect codes. The decoder walks the event stream once,
// keeping only what extraction needs: the game start block (character
// selections, player slots, in-game display names) and every leader pre-frame
// update (sticks, triggers, physical buttons).
//
// Extract enforces the domain rules on top of the decoded game: empty paths
// are rejected, games shorter than one minute are rejected, inactive ports are
// skipped, and ports without a resolvable character are filtered out.
// Container damage surfaces as *ParseError; a container that decodes but does
// not describe a coherent game surfaces as ErrInvalidGame.
package replay
