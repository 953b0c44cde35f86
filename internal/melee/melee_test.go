package melee_test

import (
	"testing"

	"slipclip/internal/melee"
)

func TestCharacterRoundTripsThroughName(t *testing.T) {
	for _, c := range melee.Characters() {
		parsed, err := melee.ParseCharacter(c.String())
		if err != nil {
			t.Fatalf("ParseCharacter(%q): %v", c.String(), err)
		}
		if parsed != c {
			t.Fatalf("ParseCharacter(%q) = %v, want %v", c.String(), parsed, c)
		}
		back, err := melee.CharacterFromIndex(c.Index())
		if err != nil || back != c {
			t.Fatalf("CharacterFromIndex(%d) = %v, %v", c.Index(), back, err)
		}
	}
}

func TestCharacterRosterOrder(t *testing.T) {
	if len(melee.Characters()) != melee.NumCharacters {
		t.Fatalf("roster size = %d", len(melee.Characters()))
	}
	if melee.CaptainFalcon.Index() != 0 || melee.Ganondorf.Index() != 25 {
		t.Fatalf("unexpected boundary indices: %d %d", melee.CaptainFalcon.Index(), melee.Ganondorf.Index())
	}
	if melee.Fox.String() != "FOX" || melee.IceClimbers.String() != "ICE_CLIMBERS" {
		t.Fatalf("unexpected names: %s %s", melee.Fox, melee.IceClimbers)
	}
}

func TestParseCharacterIsLenient(t *testing.T) {
	cases := map[string]melee.Character{
		"fox":            melee.Fox,
		" Captain Falcon": melee.CaptainFalcon,
		"young-link":     melee.YoungLink,
	}
	for input, want := range cases {
		got, err := melee.ParseCharacter(input)
		if err != nil {
			t.Fatalf("ParseCharacter(%q): %v", input, err)
		}
		if got != want {
			t.Fatalf("ParseCharacter(%q) = %v, want %v", input, got, want)
		}
	}
	if _, err := melee.ParseCharacter("MASTER_HAND"); err == nil {
		t.Fatal("expected error for non-playable character")
	}
}

func TestDisplayName(t *testing.T) {
	if got := melee.CaptainFalcon.DisplayName(); got != "Captain Falcon" {
		t.Fatalf("DisplayName = %q", got)
	}
	if got := melee.Character(40).String(); got != "UNKNOWN_40" {
		t.Fatalf("String for invalid = %q", got)
	}
}

func TestChannelLayout(t *testing.T) {
	if melee.NumChannels != 13 {
		t.Fatalf("NumChannels = %d", melee.NumChannels)
	}
	if melee.ButtonZ != melee.NumChannels-1 {
		t.Fatalf("ButtonZ = %d", melee.ButtonZ)
	}
	if len(melee.ButtonChannels) != 7 {
		t.Fatalf("button channel count = %d", len(melee.ButtonChannels))
	}
	for i, bc := range melee.ButtonChannels {
		if bc.Channel != melee.FirstButton+melee.Channel(i) {
			t.Fatalf("button %d maps to channel %v", i, bc.Channel)
		}
		if !bc.Channel.IsButton() {
			t.Fatalf("%v should be a button channel", bc.Channel)
		}
	}
	if melee.TriggerR.IsButton() {
		t.Fatal("trigger must not be a button channel")
	}
}

func TestFramesFloors(t *testing.T) {
	cases := []struct {
		seconds float64
		want    int
	}{
		{30, 1800},
		{0.5, 30},
		{1.01, 60},
		{2.05, 123},
		{4.1, 246},
		{16.9, 1014},
		{0.51, 30},
		{0, 0},
		{-2, 0},
	}
	for _, tc := range cases {
		if got := melee.Frames(tc.seconds); got != tc.want {
			t.Fatalf("Frames(%v) = %d, want %d", tc.seconds, got, tc.want)
		}
	}
}
