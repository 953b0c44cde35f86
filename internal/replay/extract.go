package replay

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"slipclip/internal/melee"
	"slipclip/internal/sparse"
)

// MinGameSeconds is the shortest game Extract accepts by default.
const MinGameSeconds = 60

// PlayerRecord is the full-game input stream of one port together with the
// identity of whoever played it. Records are never mutated after Extract
// returns them.
type PlayerRecord struct {
	GameID    string
	Port      int
	Stream    *sparse.Matrix
	Character melee.Character
	// Name and Code are empty when the replay carries no netplay identity,
	// e.g. console recordings.
	Name string
	Code string
}

// Frames returns the number of frames in the stream.
func (p PlayerRecord) Frames() int {
	if p.Stream == nil {
		return 0
	}
	return p.Stream.Rows()
}

// Extractor converts replays into player records.
type Extractor struct {
	Decoder Decoder
	// MinFrames rejects shorter games with ErrGameTooShort. Zero means
	// MinGameSeconds worth of frames.
	MinFrames int
}

var defaultExtractor = &Extractor{}

// Extract decodes path with the default extractor.
func Extract(path string) ([]PlayerRecord, error) {
	return defaultExtractor.Extract(path)
}

// GameID derives the game identifier from a replay path: its base filename.
// Identifiers are unique within one directory, not across directories.
func GameID(replayPath string) string {
	return path.Base(strings.ReplaceAll(replayPath, `\`, "/"))
}

// Extract decodes the replay at path and returns one record per active port
// with a known character, ordered by port.
func (e *Extractor) Extract(replayPath string) ([]PlayerRecord, error) {
	if strings.TrimSpace(replayPath) == "" {
		return nil, fmt.Errorf("%w: replay path is empty", ErrInvalidArgument)
	}
	decoder := e.Decoder
	if decoder == nil {
		decoder = SLPDecoder{}
	}
	game, err := decoder.Decode(replayPath)
	if err != nil {
		return nil, err
	}

	minFrames := e.MinFrames
	if minFrames <= 0 {
		minFrames = melee.Frames(MinGameSeconds)
	}
	if len(game.Frames) < minFrames {
		return nil, fmt.Errorf("%w: %d frames, need %d", ErrGameTooShort, len(game.Frames), minFrames)
	}

	records, err := buildRecords(GameID(replayPath), game)
	if err != nil {
		if errors.Is(err, ErrInvalidGame) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidGame, err)
	}
	return records, nil
}

func buildRecords(gameID string, game *Game) ([]PlayerRecord, error) {
	records := make([]PlayerRecord, 0, NumPorts)
	for port := 0; port < NumPorts; port++ {
		if game.Frames[0].Ports[port] == nil {
			continue
		}
		start := game.Start.Players[port]
		if start == nil {
			continue
		}
		character := melee.Character(start.Character)
		if !character.Valid() {
			continue
		}

		stream, err := buildStream(game.Frames, port)
		if err != nil {
			return nil, err
		}
		name, code := identity(game, port)
		records = append(records, PlayerRecord{
			GameID:    gameID,
			Port:      port,
			Stream:    stream,
			Character: character,
			Name:      name,
			Code:      code,
		})
	}
	return records, nil
}

func buildStream(frames []Frame, port int) (*sparse.Matrix, error) {
	b := sparse.NewBuilder(melee.NumChannels, len(frames))
	row := make([]float32, melee.NumChannels)
	for i := range frames {
		pf := frames[i].Ports[port]
		if pf == nil {
			return nil, fmt.Errorf("%w: port %d has no input on frame %d", ErrInvalidGame, port, frames[i].Number)
		}
		fillRow(row, pf)
		if err := b.AppendRow(row); err != nil {
			return nil, err
		}
	}
	return b.Freeze(), nil
}

func fillRow(row []float32, pf *PortFrame) {
	row[melee.JoystickX] = pf.Joystick.X
	row[melee.JoystickY] = pf.Joystick.Y
	row[melee.CStickX] = pf.CStick.X
	row[melee.CStickY] = pf.CStick.Y
	row[melee.TriggerL] = pf.TriggerL
	row[melee.TriggerR] = pf.TriggerR
	for _, bc := range melee.ButtonChannels {
		if pf.Buttons&bc.Mask != 0 {
			row[bc.Channel] = 1
		} else {
			row[bc.Channel] = 0
		}
	}
}

// identity prefers the metadata block and falls back to the in-game display
// name and connect code.
func identity(game *Game, port int) (string, string) {
	var name, code string
	if mp := game.Metadata.Players[port]; mp != nil {
		name, code = mp.Name, mp.Code
	}
	if sp := game.Start.Players[port]; sp != nil {
		if name == "" {
			name = sp.DisplayName
		}
		if code == "" {
			code = sp.ConnectCode
		}
	}
	return name, code
}
