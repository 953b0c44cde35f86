package batch

import (
	"context"
	"errors"
	"fmt"

	"slipclip/internal/clip"
	"slipclip/internal/melee"
)

var (
	// ErrInvalidArgument reports an unusable generator configuration.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrRaggedBatch reports clips of different lengths in one batch.
	ErrRaggedBatch = errors.New("clips in batch differ in length")
)

// Source enumerates and loads clips. clipstore.View satisfies it.
type Source interface {
	Keys(ctx context.Context) ([]string, error)
	Load(ctx context.Context, keys []string) ([]clip.Clip, error)
}

// Tensor3 is a dense row-major [n, frames, channels] array.
type Tensor3 struct {
	Data  []float32
	Shape [3]int
}

// Sample returns the [frames*channels] slice of sample i.
func (t Tensor3) Sample(i int) []float32 {
	size := t.Shape[1] * t.Shape[2]
	return t.Data[i*size : (i+1)*size]
}

// At returns one element.
func (t Tensor3) At(i, frame, channel int) float32 {
	return t.Data[(i*t.Shape[1]+frame)*t.Shape[2]+channel]
}

// Tensor is a dense row-major [n, width] array. Scalar labels have width 1.
type Tensor struct {
	Data  []float32
	Shape [2]int
}

// Row returns label i.
func (t Tensor) Row(i int) []float32 {
	return t.Data[i*t.Shape[1] : (i+1)*t.Shape[1]]
}

// Batch is one stacked set of inputs and their labels. Classes holds the
// integer label of every sample regardless of encoding.
type Batch struct {
	Inputs  Tensor3
	Labels  Tensor
	Classes []int
}

// Len returns the number of samples.
func (b Batch) Len() int { return len(b.Classes) }

// stack densifies clips into one tensor. Every clip must have the same
// length, which segmentation guarantees for a single configured length.
func stack(clips []clip.Clip) (Tensor3, error) {
	if len(clips) == 0 {
		return Tensor3{}, nil
	}
	frames := clips[0].Frames()
	size := frames * melee.NumChannels
	out := Tensor3{
		Data:  make([]float32, len(clips)*size),
		Shape: [3]int{len(clips), frames, melee.NumChannels},
	}
	for i, c := range clips {
		if c.Stream == nil {
			return Tensor3{}, fmt.Errorf("%w: clip %d has no stream", ErrRaggedBatch, c.ClipID)
		}
		if c.Frames() != frames {
			return Tensor3{}, fmt.Errorf("%w: clip %d has %d frames, batch has %d", ErrRaggedBatch, c.ClipID, c.Frames(), frames)
		}
		if c.Stream.Cols() != melee.NumChannels {
			return Tensor3{}, fmt.Errorf("%w: clip %d has %d channels", ErrRaggedBatch, c.ClipID, c.Stream.Cols())
		}
		if err := c.Stream.DenseInto(out.Data[i*size : (i+1)*size]); err != nil {
			return Tensor3{}, fmt.Errorf("densify clip %d: %w", c.ClipID, err)
		}
	}
	return out, nil
}

// encodeLabels renders integer classes either as scalars or one-hot rows of
// the given width.
func encodeLabels(classes []int, oneHot bool, width int) Tensor {
	if !oneHot {
		data := make([]float32, len(classes))
		for i, c := range classes {
			data[i] = float32(c)
		}
		return Tensor{Data: data, Shape: [2]int{len(classes), 1}}
	}
	data := make([]float32, len(classes)*width)
	for i, c := range classes {
		data[i*width+c] = 1
	}
	return Tensor{Data: data, Shape: [2]int{len(classes), width}}
}
