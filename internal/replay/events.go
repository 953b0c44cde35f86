package replay

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Event command bytes.
const (
	cmdEventPayloads byte = 0x35
	cmdGameStart     byte = 0x36
	cmdPreFrame      byte = 0x37
)

// Offsets are relative to the command byte of the event.
const (
	gameStartVersion        = 0x01
	gameStartPlayerBase     = 0x65
	gameStartPlayerStride   = 0x24
	gameStartDisplayName    = 0x1A5
	gameStartDisplayNameLen = 0x1F
	gameStartConnectCode    = 0x221
	gameStartConnectCodeLen = 0x0A

	preFrameNumber    = 0x01
	preFramePort      = 0x05
	preFrameFollower  = 0x06
	preFrameJoystickX = 0x19
	preFrameJoystickY = 0x1D
	preFrameCStickX   = 0x21
	preFrameCStickY   = 0x25
	preFrameButtons   = 0x31
	preFrameTriggerL  = 0x33
	preFrameTriggerR  = 0x37
	preFrameMinSize   = 0x3B
)

// firstFrame is the frame number of the first recorded frame.
const firstFrame int32 = -123

var errNoPayloadSizes = errors.New("event stream does not start with payload sizes")

// parseEvents walks the raw event stream. Structural problems are returned
// as plain errors and wrapped into *ParseError by the caller; semantic
// problems wrap ErrInvalidGame.
func parseEvents(raw []byte, game *Game) error {
	if len(raw) < 2 || raw[0] != cmdEventPayloads {
		return errNoPayloadSizes
	}
	sizes, consumed, err := parsePayloadSizes(raw)
	if err != nil {
		return err
	}

	// Every frame needs at least one pre-frame event, which bounds how far a
	// frame number may point.
	maxFrames := len(raw)/preFrameMinSize + 1

	var sawStart bool
	pos := consumed
	for pos < len(raw) {
		cmd := raw[pos]
		size, ok := sizes[cmd]
		if !ok {
			return fmt.Errorf("unknown event 0x%02x at offset %d", cmd, pos)
		}
		end := pos + 1 + size
		if end > len(raw) {
			return fmt.Errorf("event 0x%02x at offset %d truncated", cmd, pos)
		}
		event := raw[pos:end]

		switch cmd {
		case cmdGameStart:
			parseGameStart(event, &game.Start)
			sawStart = true
		case cmdPreFrame:
			if err := parsePreFrame(event, game, maxFrames); err != nil {
				return err
			}
		}
		pos = end
	}
	if !sawStart {
		return errors.New("event stream has no game start")
	}
	return nil
}

func parsePayloadSizes(raw []byte) (map[byte]int, int, error) {
	declared := int(raw[1])
	end := 1 + declared
	if declared < 1 || end > len(raw) || (declared-1)%3 != 0 {
		return nil, 0, fmt.Errorf("payload size table of %d bytes is malformed", declared)
	}
	sizes := map[byte]int{cmdEventPayloads: declared}
	for pos := 2; pos+3 <= end; pos += 3 {
		sizes[raw[pos]] = int(binary.BigEndian.Uint16(raw[pos+1 : pos+3]))
	}
	return sizes, end, nil
}

func parseGameStart(event []byte, start *GameStart) {
	if len(event) >= gameStartVersion+3 {
		start.Version = formatVersion(event[gameStartVersion : gameStartVersion+3])
	}
	for i := 0; i < NumPorts; i++ {
		base := gameStartPlayerBase + gameStartPlayerStride*i
		if base+1 >= len(event) {
			start.Players[i] = nil
			continue
		}
		playerType := PlayerType(event[base+1])
		if playerType == PlayerEmpty {
			start.Players[i] = nil
			continue
		}
		player := &StartPlayer{
			Character: event[base],
			Type:      playerType,
		}
		nameStart := gameStartDisplayName + gameStartDisplayNameLen*i
		if nameEnd := nameStart + gameStartDisplayNameLen; nameEnd <= len(event) {
			player.DisplayName = decodeShiftJIS(event[nameStart:nameEnd])
		}
		codeStart := gameStartConnectCode + gameStartConnectCodeLen*i
		if codeEnd := codeStart + gameStartConnectCodeLen; codeEnd <= len(event) {
			player.ConnectCode = decodeShiftJIS(event[codeStart:codeEnd])
		}
		start.Players[i] = player
	}
}

func parsePreFrame(event []byte, game *Game, maxFrames int) error {
	if len(event) < preFrameMinSize {
		return fmt.Errorf("pre-frame update of %d bytes is too short", len(event))
	}
	number := int32(binary.BigEndian.Uint32(event[preFrameNumber:]))
	port := int(event[preFramePort])
	if port >= NumPorts {
		return fmt.Errorf("%w: pre-frame update for port %d", ErrInvalidGame, port)
	}
	if event[preFrameFollower] != 0 {
		return nil
	}
	index := int(number - firstFrame)
	if index < 0 || index >= maxFrames {
		return fmt.Errorf("%w: frame number %d out of range", ErrInvalidGame, number)
	}
	for len(game.Frames) <= index {
		game.Frames = append(game.Frames, Frame{Number: firstFrame + int32(len(game.Frames))})
	}

	// Rollback may resend a frame; the latest data wins.
	game.Frames[index].Ports[port] = &PortFrame{
		Joystick: Stick{X: readFloat(event, preFrameJoystickX), Y: readFloat(event, preFrameJoystickY)},
		CStick:   Stick{X: readFloat(event, preFrameCStickX), Y: readFloat(event, preFrameCStickY)},
		TriggerL: readFloat(event, preFrameTriggerL),
		TriggerR: readFloat(event, preFrameTriggerR),
		Buttons:  binary.BigEndian.Uint16(event[preFrameButtons:]),
	}
	return nil
}

func readFloat(event []byte, offset int) float32 {
	return math.Float32frombits(binary.BigEndian.Uint32(event[offset:]))
}
