package replay_test

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"slipclip/internal/melee"
	"slipclip/internal/replay"
	"slipclip/internal/testsupport"
)

func writeReplay(t *testing.T, b testsupport.ReplayBuilder) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Game_20210319T120000.slp")
	b.Write(t, path)
	return path
}

func TestExtractReturnsOneRecordPerActivePort(t *testing.T) {
	path := writeReplay(t, testsupport.ReplayBuilder{
		Frames: 3700,
		Players: []testsupport.ReplayPlayer{
			{Port: 0, Character: uint8(melee.Fox), NetplayName: "Alice", NetplayCode: "ALI#1"},
			{Port: 2, Character: uint8(melee.Marth), NetplayName: "Bob", NetplayCode: "BOB#22"},
		},
	})

	records, err := replay.Extract(path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	want := []struct {
		port      int
		character melee.Character
		name      string
		code      string
	}{
		{0, melee.Fox, "Alice", "ALI#1"},
		{2, melee.Marth, "Bob", "BOB#22"},
	}
	for i, w := range want {
		rec := records[i]
		if rec.Port != w.port || rec.Character != w.character || rec.Name != w.name || rec.Code != w.code {
			t.Fatalf("record %d = %+v, want %+v", i, rec, w)
		}
		if rec.GameID != "Game_20210319T120000.slp" {
			t.Fatalf("record %d game id = %q", i, rec.GameID)
		}
		if rec.Frames() != 3700 || rec.Stream.Cols() != melee.NumChannels {
			t.Fatalf("record %d shape = %dx%d", i, rec.Stream.Rows(), rec.Stream.Cols())
		}
	}
}

func TestExtractMapsInputsToChannels(t *testing.T) {
	input := testsupport.ReplayInput{
		JoystickX: 0.5,
		JoystickY: -0.25,
		CStickY:   1,
		TriggerR:  0.75,
		Buttons:   melee.MaskA | melee.MaskZ | melee.MaskStart,
	}
	path := writeReplay(t, testsupport.ReplayBuilder{
		Frames: 10,
		Players: []testsupport.ReplayPlayer{
			{Port: 1, Character: uint8(melee.Peach), Input: testsupport.ConstantInput(input)},
		},
	})

	extractor := &replay.Extractor{MinFrames: 1}
	records, err := extractor.Extract(path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	stream := records[0].Stream

	expected := map[melee.Channel]float32{
		melee.JoystickX: 0.5,
		melee.JoystickY: -0.25,
		melee.CStickY:   1,
		melee.TriggerR:  0.75,
		melee.ButtonA:   1,
		melee.ButtonZ:   1,
	}
	for row := 0; row < stream.Rows(); row++ {
		for ch := melee.Channel(0); ch < melee.NumChannels; ch++ {
			if got := stream.At(row, int(ch)); got != expected[ch] {
				t.Fatalf("row %d %s = %v, want %v", row, ch, got, expected[ch])
			}
		}
	}
}

func TestExtractIgnoresFollowerInput(t *testing.T) {
	path := writeReplay(t, testsupport.ReplayBuilder{
		Frames: 5,
		Players: []testsupport.ReplayPlayer{
			{Port: 0, Character: uint8(melee.IceClimbers)},
		},
	})

	records, err := (&replay.Extractor{MinFrames: 1}).Extract(path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if nnz := records[0].Stream.NNZ(); nnz != 0 {
		t.Fatalf("expected neutral leader input, got %d non-zero values", nnz)
	}
}

func TestExtractRejectsShortGames(t *testing.T) {
	path := writeReplay(t, testsupport.ReplayBuilder{
		Frames:  melee.Frames(replay.MinGameSeconds) - 1,
		Players: []testsupport.ReplayPlayer{{Port: 0, Character: uint8(melee.Fox)}},
	})

	_, err := replay.Extract(path)
	if !errors.Is(err, replay.ErrGameTooShort) {
		t.Fatalf("expected ErrGameTooShort, got %v", err)
	}
}

func TestExtractRejectsEmptyPath(t *testing.T) {
	if _, err := replay.Extract("  "); !errors.Is(err, replay.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestExtractReportsMissingFile(t *testing.T) {
	_, err := replay.Extract(filepath.Join(t.TempDir(), "missing.slp"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
	if replay.IsParseError(err) {
		t.Fatalf("missing file should not be a parse error: %v", err)
	}
}

func TestExtractReportsCorruptReplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.slp")
	if err := os.WriteFile(path, []byte("not a replay at all"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, err := replay.Extract(path)
	var pe *replay.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ParseError, got %v", err)
	}
	if pe.Path != path {
		t.Fatalf("parse error path = %q, want %q", pe.Path, path)
	}
}

func TestExtractReportsTruncatedEventStream(t *testing.T) {
	data := testsupport.ReplayBuilder{
		Frames:  4,
		Players: []testsupport.ReplayPlayer{{Port: 0, Character: uint8(melee.Fox)}},
	}.Bytes()

	_, err := replay.DecodeBytes(data[:len(data)/2])
	if !replay.IsParseError(err) {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestExtractSkipsUnknownCharactersAndInactivePorts(t *testing.T) {
	path := writeReplay(t, testsupport.ReplayBuilder{
		Frames: 20,
		Players: []testsupport.ReplayPlayer{
			{Port: 0, Character: 0x20},
			{Port: 1, Character: uint8(melee.Sheik)},
			{Port: 3, Character: uint8(melee.Falco), NoInput: true},
		},
	})

	records, err := (&replay.Extractor{MinFrames: 1}).Extract(path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(records) != 1 || records[0].Character != melee.Sheik {
		t.Fatalf("expected only the Sheik record, got %+v", records)
	}
}

func TestExtractFallsBackToInGameIdentity(t *testing.T) {
	path := writeReplay(t, testsupport.ReplayBuilder{
		Frames:       20,
		SkipMetadata: true,
		Players: []testsupport.ReplayPlayer{
			// 0x81 0x94 is the full-width number sign in Shift-JIS.
			{Port: 0, Character: uint8(melee.Mario), InGameName: "Mario Main", InGameCode: "MARI\x81\x94777"},
		},
	})

	records, err := (&replay.Extractor{MinFrames: 1}).Extract(path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if records[0].Name != "Mario Main" || records[0].Code != "MARI#777" {
		t.Fatalf("identity = (%q, %q)", records[0].Name, records[0].Code)
	}
}

func TestExtractMissingIdentityIsEmpty(t *testing.T) {
	path := writeReplay(t, testsupport.ReplayBuilder{
		Frames:  20,
		Players: []testsupport.ReplayPlayer{{Port: 0, Character: uint8(melee.Yoshi)}},
	})

	records, err := (&replay.Extractor{MinFrames: 1}).Extract(path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if records[0].Name != "" || records[0].Code != "" {
		t.Fatalf("expected empty identity, got (%q, %q)", records[0].Name, records[0].Code)
	}
}

func TestExtractRejectsPortThatDropsOut(t *testing.T) {
	path := writeReplay(t, testsupport.ReplayBuilder{
		Frames: 30,
		Players: []testsupport.ReplayPlayer{
			{Port: 0, Character: uint8(melee.Fox)},
			{Port: 1, Character: uint8(melee.Falco), StopAfter: 10},
		},
	})

	_, err := (&replay.Extractor{MinFrames: 1}).Extract(path)
	if !errors.Is(err, replay.ErrInvalidGame) {
		t.Fatalf("expected ErrInvalidGame, got %v", err)
	}
}

func TestDecodeBytesReadsMetadata(t *testing.T) {
	game, err := replay.DecodeBytes(testsupport.ReplayBuilder{
		Frames:  3,
		Players: []testsupport.ReplayPlayer{{Port: 0, Character: uint8(melee.Ness), NetplayName: "N", NetplayCode: "NE#1"}},
	}.Bytes())
	if err != nil {
		t.Fatalf("DecodeBytes: %v", err)
	}
	if game.Start.Version != "3.12.0" {
		t.Fatalf("version = %q", game.Start.Version)
	}
	if game.Metadata.StartAt == "" || game.Metadata.Players[0] == nil || game.Metadata.Players[0].Code != "NE#1" {
		t.Fatalf("metadata = %+v", game.Metadata)
	}
	if len(game.Frames) != 3 || game.Frames[0].Number != -123 {
		t.Fatalf("frames = %d, first = %d", len(game.Frames), game.Frames[0].Number)
	}
}

func TestGameID(t *testing.T) {
	cases := map[string]string{
		"/replays/2021/Game_1.slp": "Game_1.slp",
		`C:\replays\Game_2.slp`:    "Game_2.slp",
		"Game_3.slp":               "Game_3.slp",
	}
	for in, want := range cases {
		if got := replay.GameID(in); got != want {
			t.Fatalf("GameID(%q) = %q, want %q", in, got, want)
		}
	}
}
