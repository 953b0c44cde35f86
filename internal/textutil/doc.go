// Package textutil sanitizes player-supplied text for safe use in file names.
package textutil
