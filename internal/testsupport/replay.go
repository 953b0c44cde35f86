package testsupport

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// ReplayInput is the controller state written for one port on one frame.
type ReplayInput struct {
	JoystickX, JoystickY float32
	CStickX, CStickY     float32
	TriggerL, TriggerR   float32
	Buttons              uint16
}

// ReplayPlayer configures one occupied port of a synthetic replay.
type ReplayPlayer struct {
	Port      int
	Character uint8
	// InGameName and InGameCode are ASCII and written into the game start
	// block.
	InGameName string
	InGameCode string
	// NetplayName and NetplayCode are written into the metadata block.
	NetplayName string
	NetplayCode string
	// Input returns the controller state for a zero-based frame index. Nil
	// writes neutral input.
	Input func(frame int) ReplayInput
	// StopAfter stops writing input after that many frames; zero writes every
	// frame.
	StopAfter int
	// NoInput writes the port into the game start block without any frames.
	NoInput bool
}

// ReplayBuilder produces byte-valid .slp replays for decoder tests.
type ReplayBuilder struct {
	Frames       int
	Players      []ReplayPlayer
	SkipMetadata bool
}

const (
	testGameStartSize = 0x2A0
	testPreFrameSize  = 0x40
	testPostFrameSize = 0x20
	testGameEndSize   = 0x01
	testFirstFrame    = -123
)

// Bytes encodes the replay.
func (b ReplayBuilder) Bytes() []byte {
	raw := b.rawEvents()

	var buf bytes.Buffer
	buf.WriteByte('{')
	writeKey(&buf, "raw")
	buf.WriteString("[$U#l")
	_ = binary.Write(&buf, binary.BigEndian, int32(len(raw)))
	buf.Write(raw)
	if !b.SkipMetadata {
		writeKey(&buf, "metadata")
		b.writeMetadata(&buf)
	}
	buf.WriteByte('}')
	return buf.Bytes()
}

// Write stores the replay at path, creating parent directories.
func (b ReplayBuilder) Write(t testing.TB, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, b.Bytes(), 0o644); err != nil {
		t.Fatalf("write replay %s: %v", path, err)
	}
}

func (b ReplayBuilder) rawEvents() []byte {
	var raw bytes.Buffer

	raw.WriteByte(0x35)
	raw.WriteByte(1 + 3*4)
	for _, entry := range []struct {
		cmd  byte
		size uint16
	}{
		{0x36, testGameStartSize},
		{0x37, testPreFrameSize},
		{0x38, testPostFrameSize},
		{0x39, testGameEndSize},
	} {
		raw.WriteByte(entry.cmd)
		_ = binary.Write(&raw, binary.BigEndian, entry.size)
	}

	start := make([]byte, 1+testGameStartSize)
	start[0] = 0x36
	start[1], start[2], start[3] = 3, 12, 0
	for i := 0; i < 4; i++ {
		start[0x65+0x24*i+1] = 3
	}
	for _, p := range b.Players {
		base := 0x65 + 0x24*p.Port
		start[base] = p.Character
		start[base+1] = 0
		copy(start[0x1A5+0x1F*p.Port:0x1A5+0x1F*(p.Port+1)], p.InGameName)
		copy(start[0x221+0x0A*p.Port:0x221+0x0A*(p.Port+1)], p.InGameCode)
	}
	raw.Write(start)

	for f := 0; f < b.Frames; f++ {
		for _, p := range b.Players {
			if p.NoInput || (p.StopAfter > 0 && f >= p.StopAfter) {
				continue
			}
			var in ReplayInput
			if p.Input != nil {
				in = p.Input(f)
			}
			raw.Write(preFrame(f, p.Port, false, in))
			if p.Character == 14 {
				raw.Write(preFrame(f, p.Port, true, ReplayInput{Buttons: 0x0100, JoystickX: -1}))
			}
		}
		post := make([]byte, 1+testPostFrameSize)
		post[0] = 0x38
		raw.Write(post)
	}

	raw.Write([]byte{0x39, 0x02})
	return raw.Bytes()
}

func preFrame(frame, port int, follower bool, in ReplayInput) []byte {
	ev := make([]byte, 1+testPreFrameSize)
	ev[0] = 0x37
	binary.BigEndian.PutUint32(ev[0x01:], uint32(int32(testFirstFrame+frame)))
	ev[0x05] = byte(port)
	if follower {
		ev[0x06] = 1
	}
	putFloat(ev[0x19:], in.JoystickX)
	putFloat(ev[0x1D:], in.JoystickY)
	putFloat(ev[0x21:], in.CStickX)
	putFloat(ev[0x25:], in.CStickY)
	binary.BigEndian.PutUint16(ev[0x31:], in.Buttons)
	putFloat(ev[0x33:], in.TriggerL)
	putFloat(ev[0x37:], in.TriggerR)
	return ev
}

func putFloat(dst []byte, v float32) {
	binary.BigEndian.PutUint32(dst, math.Float32bits(v))
}

func (b ReplayBuilder) writeMetadata(buf *bytes.Buffer) {
	buf.WriteByte('{')
	writeKey(buf, "startAt")
	writeString(buf, "2021-03-19T12:00:00Z")
	writeKey(buf, "playedOn")
	writeString(buf, "dolphin")
	writeKey(buf, "players")
	buf.WriteByte('{')
	for _, p := range b.Players {
		if p.NetplayName == "" && p.NetplayCode == "" {
			continue
		}
		writeKey(buf, string(rune('0'+p.Port)))
		buf.WriteByte('{')
		writeKey(buf, "names")
		buf.WriteByte('{')
		writeKey(buf, "netplay")
		writeString(buf, p.NetplayName)
		writeKey(buf, "code")
		writeString(buf, p.NetplayCode)
		buf.WriteByte('}')
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	buf.WriteByte('}')
}

func writeKey(buf *bytes.Buffer, key string) {
	buf.WriteByte('U')
	buf.WriteByte(byte(len(key)))
	buf.WriteString(key)
}

func writeString(buf *bytes.Buffer, value string) {
	buf.WriteByte('S')
	writeKey(buf, value)
}

// ConstantInput returns an input function that writes the same state every
// frame.
func ConstantInput(in ReplayInput) func(int) ReplayInput {
	return func(int) ReplayInput { return in }
}

// WriteJunk writes size bytes that no decoder accepts, for files bulk runs
// must skip or reject.
func WriteJunk(t testing.TB, path string, size int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	data := bytes.Repeat([]byte("junk"), size/4+1)[:max(size, 1)]
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
