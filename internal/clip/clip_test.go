package clip_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slipclip/internal/clip"
	"slipclip/internal/melee"
	"slipclip/internal/replay"
	"slipclip/internal/sparse"
)

func record(t *testing.T, frames int, mutate func(row int, values []float32)) replay.PlayerRecord {
	t.Helper()
	data := make([]float32, frames*melee.NumChannels)
	for r := 0; r < frames; r++ {
		row := data[r*melee.NumChannels : (r+1)*melee.NumChannels]
		row[melee.JoystickX] = float32(r%200) / 200
		if r%7 == 0 {
			row[melee.ButtonA] = 1
		}
		if mutate != nil {
			mutate(r, row)
		}
	}
	stream, err := sparse.FromDense(frames, melee.NumChannels, data)
	require.NoError(t, err)
	return replay.PlayerRecord{
		GameID:    "Game_1.slp",
		Port:      1,
		Stream:    stream,
		Character: melee.Falco,
		Name:      "Player",
		Code:      "PLYR#123",
	}
}

func TestSegmentNinetySecondGame(t *testing.T) {
	rec := record(t, 5400, nil)

	results, err := clip.Segment(rec, 30, 0)
	require.NoError(t, err)
	require.Len(t, results, 3)

	for i, r := range results {
		require.NoError(t, r.Err)
		assert.Equal(t, i, r.Clip.ClipID)
		assert.Equal(t, 1800, r.Clip.Frames())
		assert.Equal(t, melee.NumChannels, r.Clip.Stream.Cols())
		assert.Equal(t, rec.GameID, r.Clip.GameID)
		assert.Equal(t, rec.Character, r.Clip.Character)
		assert.Equal(t, rec.Name, r.Clip.Name)
		assert.Equal(t, rec.Code, r.Clip.Code)

		want, err := rec.Stream.Slice(i*1800, (i+1)*1800)
		require.NoError(t, err)
		assert.True(t, want.Equal(r.Clip.Stream), "window %d differs from source rows", i)
	}
}

func TestSegmentDropsPartialTrailingWindow(t *testing.T) {
	cases := []struct {
		frames  int
		seconds float64
		want    int
	}{
		{frames: 3600, seconds: 30, want: 2},
		{frames: 3601, seconds: 30, want: 2},
		{frames: 5399, seconds: 30, want: 2},
		{frames: 4000, seconds: 10, want: 6},
		{frames: 4000, seconds: 10.5, want: 6},
		{frames: 100, seconds: 1.01, want: 1},
	}
	for _, tc := range cases {
		rec := record(t, tc.frames, nil)
		results, err := clip.Segment(rec, tc.seconds, 0)
		require.NoError(t, err)
		require.Len(t, results, tc.want, "frames=%d seconds=%v", tc.frames, tc.seconds)
		assert.Equal(t, tc.want, clip.CountWindows(tc.frames, tc.seconds))

		step := clip.WindowFrames(tc.seconds)
		for _, r := range results {
			assert.Equal(t, step, r.Clip.Frames())
		}
	}
}

func TestSegmentNumbersFromStartID(t *testing.T) {
	rec := record(t, 2*1800+50, nil)

	results, err := clip.Segment(rec, 30, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 10, results[0].Clip.ClipID)
	assert.Equal(t, 11, results[1].Clip.ClipID)
}

func TestSegmentIsDeterministic(t *testing.T) {
	rec := record(t, 4000, nil)

	first, err := clip.Segment(rec, 20, 0)
	require.NoError(t, err)
	second, err := clip.Segment(rec, 20, 0)
	require.NoError(t, err)
	require.Len(t, second, len(first))
	for i := range first {
		a, err := first[i].Clip.Stream.MarshalBinary()
		require.NoError(t, err)
		b, err := second[i].Clip.Stream.MarshalBinary()
		require.NoError(t, err)
		assert.Equal(t, a, b)
	}
}

func TestSegmentIsolatesCorruptWindow(t *testing.T) {
	rec := record(t, 3*600, func(row int, values []float32) {
		if row == 650 {
			values[melee.CStickX] = float32(math.NaN())
		}
	})

	results, err := clip.Segment(rec, 10, 0)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.ErrorIs(t, results[1].Err, clip.ErrCorruptWindow)
	assert.Equal(t, 1, results[1].Clip.ClipID)
	assert.Nil(t, results[1].Clip.Stream)
	assert.NoError(t, results[2].Err)
}

func TestSegmentFailsWhenNoWindowSurvives(t *testing.T) {
	rec := record(t, 1000, nil)
	results, err := clip.Segment(rec, 30, 0)
	assert.ErrorIs(t, err, clip.ErrSegmentationFailure)
	assert.Empty(t, results)

	corrupt := record(t, 600, func(_ int, values []float32) {
		values[melee.TriggerL] = float32(math.Inf(1))
	})
	results, err = clip.Segment(corrupt, 10, 0)
	assert.ErrorIs(t, err, clip.ErrSegmentationFailure)
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, clip.ErrCorruptWindow)
}

func TestSegmentRejectsInvalidArguments(t *testing.T) {
	rec := record(t, 100, nil)
	for _, seconds := range []float64{0, -5, 0.001} {
		_, err := clip.Segment(rec, seconds, 0)
		assert.ErrorIs(t, err, clip.ErrInvalidArgument, "seconds=%v", seconds)
	}

	_, err := clip.Segment(replay.PlayerRecord{GameID: "g"}, 30, 0)
	assert.ErrorIs(t, err, clip.ErrInvalidArgument)
}

func TestSegmentGameThreadsIDsAcrossPorts(t *testing.T) {
	a := record(t, 3600, nil)
	b := record(t, 3600, nil)
	b.Port = 3
	b.Character = melee.Sheik
	b.Code = ""

	clips, report, err := clip.SegmentGame([]replay.PlayerRecord{a, b}, 30, 100)
	require.NoError(t, err)
	require.Len(t, clips, 4)
	assert.Equal(t, clip.Report{Clips: 4, NextID: 104}, report)
	assert.Equal(t, 4, clip.CountGameWindows([]replay.PlayerRecord{a, b}, 30))

	ids := make([]int, 0, len(clips))
	for _, c := range clips {
		ids = append(ids, c.ClipID)
	}
	assert.Equal(t, []int{100, 101, 102, 103}, ids)
	assert.Equal(t, melee.Sheik, clips[3].Character)
}

func TestSegmentGameToleratesOneBadPort(t *testing.T) {
	good := record(t, 1800, nil)
	short := record(t, 100, nil)

	clips, report, err := clip.SegmentGame([]replay.PlayerRecord{short, good}, 30, 0)
	require.NoError(t, err)
	require.Len(t, clips, 1)
	assert.Equal(t, 0, clips[0].ClipID)
	assert.Equal(t, 1, report.NextID)

	_, _, err = clip.SegmentGame([]replay.PlayerRecord{short}, 30, 0)
	assert.ErrorIs(t, err, clip.ErrSegmentationFailure)
}

func TestFilename(t *testing.T) {
	cases := []struct {
		clip clip.Clip
		want string
	}{
		{clip.Clip{Character: melee.Fox, Code: "FOX#1", ClipID: 7}, "FOX-FOX#1-7.slpc"},
		{clip.Clip{Character: melee.CaptainFalcon, ClipID: 0}, "CAPTAIN_FALCON-none-0.slpc"},
		{clip.Clip{Character: melee.Marth, Code: "A/B:C", ClipID: 12}, "MARTH-A-B-C-12.slpc"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, clip.Filename(tc.clip, ".slpc"))
	}
}
