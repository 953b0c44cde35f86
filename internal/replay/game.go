package replay

import "fmt"

// NumPorts is the number of controller ports in a match.
const NumPorts = 4

// PlayerType is the occupant of a port as declared by the game start block.
type PlayerType uint8

const (
	PlayerHuman PlayerType = 0
	PlayerCPU   PlayerType = 1
	PlayerDemo  PlayerType = 2
	PlayerEmpty PlayerType = 3
)

// Stick is an analog stick position, each axis roughly in [-1, 1].
type Stick struct {
	X float32
	Y float32
}

// PortFrame is the leader pre-frame input of one port for one frame.
type PortFrame struct {
	Joystick Stick
	CStick   Stick
	TriggerL float32
	TriggerR float32
	Buttons  uint16
}

// Frame holds per-port input for one frame. Ports without data are nil.
type Frame struct {
	Number int32
	Ports  [NumPorts]*PortFrame
}

// StartPlayer describes an occupied port at game start.
type StartPlayer struct {
	Character   uint8
	Type        PlayerType
	DisplayName string
	ConnectCode string
}

// GameStart is the subset of the game start block extraction relies on.
type GameStart struct {
	Version string
	Players [NumPorts]*StartPlayer
}

// MetadataPlayer carries netplay identity recorded out of band.
type MetadataPlayer struct {
	Name string
	Code string
}

// Metadata is the optional out-of-band metadata block.
type Metadata struct {
	StartAt  string
	PlayedOn string
	Players  [NumPorts]*MetadataPlayer
}

// Game is a decoded replay.
type Game struct {
	Start    GameStart
	Frames   []Frame
	Metadata Metadata
}

func formatVersion(b []byte) string {
	if len(b) < 3 {
		return ""
	}
	return fmt.Sprintf("%d.%d.%d", b[0], b[1], b[2])
}
