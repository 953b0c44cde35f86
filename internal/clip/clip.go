package clip

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"slipclip/internal/melee"
	"slipclip/internal/replay"
	"slipclip/internal/sparse"
	"slipclip/internal/textutil"
)

var (
	// ErrInvalidArgument reports unusable caller input such as a
	// non-positive window length.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrSegmentationFailure reports a game that produced no usable clip.
	ErrSegmentationFailure = errors.New("segmentation failure")
	// ErrCorruptWindow reports a window holding non-finite input values.
	ErrCorruptWindow = errors.New("corrupt window")
)

// DefaultLengthSeconds is the clip length used when none is configured.
const DefaultLengthSeconds = 30

// NoCode is the filename placeholder for players without a connect code.
const NoCode = "none"

// Clip is one fixed-length window of a player's input stream.
type Clip struct {
	GameID    string
	ClipID    int
	Stream    *sparse.Matrix
	Character melee.Character
	Name      string
	Code      string
}

// Frames returns the window length in frames.
func (c Clip) Frames() int {
	if c.Stream == nil {
		return 0
	}
	return c.Stream.Rows()
}

// Filename returns the directory-mode key {CHARACTER}-{code}-{clip_id}{ext}.
func Filename(c Clip, ext string) string {
	code := textutil.SanitizeFileName(c.Code)
	if code == "" {
		code = NoCode
	}
	var b strings.Builder
	b.WriteString(c.Character.String())
	b.WriteByte('-')
	b.WriteString(code)
	b.WriteByte('-')
	b.WriteString(strconv.Itoa(c.ClipID))
	b.WriteString(ext)
	return b.String()
}

// WindowFrames converts a clip length in seconds to whole frames.
func WindowFrames(seconds float64) int {
	return melee.Frames(seconds)
}

// CountWindows returns how many complete windows a stream of the given
// length yields. Callers use it to reserve clip ids before segmenting.
func CountWindows(frames int, lengthSeconds float64) int {
	step := WindowFrames(lengthSeconds)
	if step <= 0 || frames < step {
		return 0
	}
	return frames / step
}

// Result is the outcome of one window. Clip carries the identity of the
// window even when Err is set.
type Result struct {
	Clip Clip
	Err  error
}

// Segment cuts rec into windows of lengthSeconds, numbering them from
// startID. A failing window is reported in its Result and does not stop the
// remaining windows. When no window succeeds the results are still returned
// together with ErrSegmentationFailure.
func Segment(rec replay.PlayerRecord, lengthSeconds float64, startID int) ([]Result, error) {
	step := WindowFrames(lengthSeconds)
	if step <= 0 {
		return nil, fmt.Errorf("%w: clip length %v seconds is shorter than one frame", ErrInvalidArgument, lengthSeconds)
	}
	if rec.Stream == nil {
		return nil, fmt.Errorf("%w: player record has no input stream", ErrInvalidArgument)
	}

	total := rec.Stream.Rows()
	results := make([]Result, 0, CountWindows(total, lengthSeconds))
	succeeded := 0
	for start, id := 0, startID; start+step <= total; start, id = start+step, id+1 {
		c := Clip{
			GameID:    rec.GameID,
			ClipID:    id,
			Character: rec.Character,
			Name:      rec.Name,
			Code:      rec.Code,
		}
		window, err := cut(rec.Stream, start, start+step)
		if err != nil {
			results = append(results, Result{Clip: c, Err: err})
			continue
		}
		c.Stream = window
		results = append(results, Result{Clip: c})
		succeeded++
	}
	if succeeded == 0 {
		return results, fmt.Errorf("%w: %s port %d: %d frames, %d windows", ErrSegmentationFailure, rec.GameID, rec.Port, total, len(results))
	}
	return results, nil
}

func cut(stream *sparse.Matrix, start, end int) (*sparse.Matrix, error) {
	window, err := stream.Slice(start, end)
	if err != nil {
		return nil, err
	}
	if !window.Finite() {
		return nil, fmt.Errorf("%w: frames [%d,%d)", ErrCorruptWindow, start, end)
	}
	return window, nil
}

// Report tallies a multi-port segmentation.
type Report struct {
	Clips    int
	Failures int
	// NextID is the first clip id not consumed. Failed windows consume ids.
	NextID int
}

// SegmentGame segments every record of one game, threading the clip id
// across ports. It fails with ErrSegmentationFailure only when the game as a
// whole yields no clip.
func SegmentGame(records []replay.PlayerRecord, lengthSeconds float64, startID int) ([]Clip, Report, error) {
	report := Report{NextID: startID}
	var clips []Clip
	for _, rec := range records {
		results, err := Segment(rec, lengthSeconds, report.NextID)
		if errors.Is(err, ErrInvalidArgument) {
			return nil, report, err
		}
		report.NextID += len(results)
		for _, r := range results {
			if r.Err != nil {
				report.Failures++
				continue
			}
			clips = append(clips, r.Clip)
		}
	}
	report.Clips = len(clips)
	if report.Clips == 0 {
		return nil, report, fmt.Errorf("%w: no clips from %d players", ErrSegmentationFailure, len(records))
	}
	return clips, report, nil
}

// CountGameWindows returns the number of ids SegmentGame will consume.
func CountGameWindows(records []replay.PlayerRecord, lengthSeconds float64) int {
	n := 0
	for _, rec := range records {
		n += CountWindows(rec.Frames(), lengthSeconds)
	}
	return n
}
