package melee

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Character is a playable character selection. The numeric value matches the
// in-game external (character select screen) identifier and doubles as the
// zero-based class index used for labels.
type Character uint8

const (
	CaptainFalcon Character = iota
	DonkeyKong
	Fox
	GameAndWatch
	Kirby
	Bowser
	Link
	Luigi
	Mario
	Marth
	Mewtwo
	Ness
	Peach
	Pikachu
	IceClimbers
	Jigglypuff
	Samus
	Yoshi
	Zelda
	Sheik
	Falco
	YoungLink
	DrMario
	Roy
	Pichu
	Ganondorf
)

// NumCharacters is the size of the roster and the width of one-hot labels.
const NumCharacters = 26

var characterNames = [NumCharacters]string{
	"CAPTAIN_FALCON",
	"DONKEY_KONG",
	"FOX",
	"GAME_AND_WATCH",
	"KIRBY",
	"BOWSER",
	"LINK",
	"LUIGI",
	"MARIO",
	"MARTH",
	"MEWTWO",
	"NESS",
	"PEACH",
	"PIKACHU",
	"ICE_CLIMBERS",
	"JIGGLYPUFF",
	"SAMUS",
	"YOSHI",
	"ZELDA",
	"SHEIK",
	"FALCO",
	"YOUNG_LINK",
	"DR_MARIO",
	"ROY",
	"PICHU",
	"GANONDORF",
}

var characterByName = func() map[string]Character {
	out := make(map[string]Character, NumCharacters)
	for i, name := range characterNames {
		out[name] = Character(i)
	}
	return out
}()

// Valid reports whether c is part of the roster.
func (c Character) Valid() bool {
	return int(c) < NumCharacters
}

// Index returns the zero-based class index.
func (c Character) Index() int {
	return int(c)
}

// String returns the canonical upper-snake name, e.g. CAPTAIN_FALCON.
func (c Character) String() string {
	if !c.Valid() {
		return fmt.Sprintf("UNKNOWN_%d", uint8(c))
	}
	return characterNames[c]
}

// DisplayName returns a human readable name, e.g. "Captain Falcon".
func (c Character) DisplayName() string {
	if !c.Valid() {
		return c.String()
	}
	// A Caser keeps state between calls, so each call gets its own.
	return cases.Title(language.English).String(strings.ReplaceAll(strings.ToLower(characterNames[c]), "_", " "))
}

// ParseCharacter resolves a canonical name. Matching ignores case and accepts
// spaces or dashes in place of underscores.
func ParseCharacter(value string) (Character, error) {
	key := strings.ToUpper(strings.TrimSpace(value))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	if c, ok := characterByName[key]; ok {
		return c, nil
	}
	return 0, fmt.Errorf("unknown character %q", value)
}

// CharacterFromIndex converts a class index back into a Character.
func CharacterFromIndex(index int) (Character, error) {
	if index < 0 || index >= NumCharacters {
		return 0, fmt.Errorf("character index %d out of range", index)
	}
	return Character(index), nil
}

// Characters returns the full roster in index order.
func Characters() []Character {
	out := make([]Character, NumCharacters)
	for i := range out {
		out[i] = Character(i)
	}
	return out
}

// MarshalText implements encoding.TextMarshaler.
func (c Character) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid character %d", uint8(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Character) UnmarshalText(text []byte) error {
	parsed, err := ParseCharacter(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
