package replay

import (
	"errors"
	"fmt"
	"os"
)

// Decoder turns a replay file into a Game. Implementations must not retain
// the path or any file handle after returning.
type Decoder interface {
	Decode(path string) (*Game, error)
}

// SLPDecoder decodes Slippi .slp files.
type SLPDecoder struct{}

// Decode reads and decodes the replay at path.
func (SLPDecoder) Decode(path string) (*Game, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read replay: %w", err)
	}
	game, err := DecodeBytes(data)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.Path = path
		}
		return nil, err
	}
	return game, nil
}

// DecodeBytes decodes an in-memory replay.
func DecodeBytes(data []byte) (*Game, error) {
	root, err := decodeUBJSON(data)
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	doc, ok := root.(map[string]any)
	if !ok {
		return nil, &ParseError{Err: errors.New("top-level value is not an object")}
	}
	raw, ok := doc["raw"].([]byte)
	if !ok {
		return nil, &ParseError{Err: errors.New("missing raw event stream")}
	}
	if len(raw) == 0 {
		return nil, &ParseError{Err: errors.New("raw event stream is empty (replay still recording?)")}
	}

	game := &Game{}
	if err := parseEvents(raw, game); err != nil {
		if errors.Is(err, ErrInvalidGame) {
			return nil, err
		}
		return nil, &ParseError{Err: err}
	}
	game.Metadata = parseMetadata(doc["metadata"])
	return game, nil
}
