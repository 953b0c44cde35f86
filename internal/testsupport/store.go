package testsupport

import (
	"context"
	"testing"

	"slipclip/internal/clip"
	"slipclip/internal/clipstore"
	"slipclip/internal/config"
	"slipclip/internal/melee"
	"slipclip/internal/sparse"
)

// MustOpenStore opens the configured clip store and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) clipstore.Store {
	t.Helper()

	store, err := clipstore.Open(cfg, clipstore.OptionsFromConfig(cfg))
	if err != nil {
		t.Fatalf("clipstore.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewClip builds a clip of the given length whose every cell holds fill on
// the first channel, so clips are distinguishable after a round trip.
func NewClip(t testing.TB, gameID string, clipID int, character melee.Character, frames int, fill float32) clip.Clip {
	t.Helper()

	b := sparse.NewBuilder(melee.NumChannels, frames)
	row := make([]float32, melee.NumChannels)
	row[0] = fill
	for range frames {
		if err := b.AppendRow(row); err != nil {
			t.Fatalf("append row: %v", err)
		}
	}
	return clip.Clip{
		GameID:    gameID,
		ClipID:    clipID,
		Stream:    b.Freeze(),
		Character: character,
		Code:      "TEST#1",
	}
}

// PutClips writes clips and fails the test on any write failure.
func PutClips(t testing.TB, store clipstore.Store, clips ...clip.Clip) clipstore.WriteReport {
	t.Helper()

	report, err := store.Put(context.Background(), clips)
	if err != nil {
		t.Fatalf("store.Put: %v", err)
	}
	if report.Failed != 0 {
		t.Fatalf("store.Put: %d failures: %v", report.Failed, report.Failures)
	}
	return report
}
