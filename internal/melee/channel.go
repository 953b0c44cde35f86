package melee

import "math"

// FrameRate is the fixed simulation rate of a replay, in frames per second.
const FrameRate = 60

// Channel is a column of an input stream.
type Channel int

// Channel order is persisted inside every clip; do not reorder.
const (
	JoystickX Channel = iota
	JoystickY
	CStickX
	CStickY
	TriggerL
	TriggerR
	ButtonY
	ButtonX
	ButtonB
	ButtonA
	ButtonL
	ButtonR
	ButtonZ
)

// NumChannels is the column count of an input stream.
const NumChannels = 13

// FirstButton is the first digital channel; every channel from here on holds
// 1 for pressed and 0 for released.
const FirstButton = ButtonY

var channelNames = [NumChannels]string{
	"joystick_x",
	"joystick_y",
	"cstick_x",
	"cstick_y",
	"trigger_l",
	"trigger_r",
	"button_y",
	"button_x",
	"button_b",
	"button_a",
	"button_l",
	"button_r",
	"button_z",
}

// Physical button bits as recorded by the controller poll.
const (
	MaskDPadLeft  uint16 = 0x0001
	MaskDPadRight uint16 = 0x0002
	MaskDPadDown  uint16 = 0x0004
	MaskDPadUp    uint16 = 0x0008
	MaskZ         uint16 = 0x0010
	MaskR         uint16 = 0x0020
	MaskL         uint16 = 0x0040
	MaskA         uint16 = 0x0100
	MaskB         uint16 = 0x0200
	MaskX         uint16 = 0x0400
	MaskY         uint16 = 0x0800
	MaskStart     uint16 = 0x1000
)

// ButtonChannels maps each digital channel, in column order, to its physical
// button bit.
var ButtonChannels = [...]struct {
	Channel Channel
	Mask    uint16
}{
	{ButtonY, MaskY},
	{ButtonX, MaskX},
	{ButtonB, MaskB},
	{ButtonA, MaskA},
	{ButtonL, MaskL},
	{ButtonR, MaskR},
	{ButtonZ, MaskZ},
}

func (c Channel) String() string {
	if c < 0 || int(c) >= NumChannels {
		return "unknown"
	}
	return channelNames[c]
}

// IsButton reports whether the channel is a digital button.
func (c Channel) IsButton() bool {
	return c >= FirstButton && int(c) < NumChannels
}

// Frames converts a duration in seconds to whole frames, flooring fractions.
// A small epsilon keeps decimal inputs such as 2.05 on their whole frame.
func Frames(seconds float64) int {
	if seconds <= 0 {
		return 0
	}
	return int(math.Floor(seconds*FrameRate + 1e-9))
}
