// Package clip cuts full-game input streams into fixed-length, non-overlapping
// windows and carries the player's provenance onto each window.
//
// Only complete windows are produced. A game of L frames cut into windows of
// W frames yields floor(L/W) clips and the trailing L mod W frames are dropped.
package clip
