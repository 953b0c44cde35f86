package clipstore

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"slipclip/internal/clip"
	"slipclip/internal/melee"
	"slipclip/internal/sparse"
)

// Record file layout, version 1:
//
//	magic      [4]byte "SLPC"
//	version    uint8
//	metaLen    uint32 little endian
//	meta       metaLen bytes of JSON (recordMeta)
//	stream     sparse matrix encoding, to end of file
const (
	recordVersion    = 1
	recordHeaderSize = 4 + 1 + 4
	maxMetaSize      = 1 << 16
)

var recordMagic = [4]byte{'S', 'L', 'P', 'C'}

// ErrRecordFormat reports a clip record that cannot be decoded.
var ErrRecordFormat = errors.New("clipstore: invalid clip record")

// recordMeta is the provenance stored ahead of the stream.
type recordMeta struct {
	GameID    string          `json:"game_id"`
	ClipID    int             `json:"clip_id"`
	Character melee.Character `json:"character"`
	Name      string          `json:"name,omitempty"`
	Code      string          `json:"code,omitempty"`
	Partition Partition       `json:"partition,omitempty"`
	Frames    int             `json:"frames"`
}

func metaOf(c clip.Clip, p Partition) recordMeta {
	return recordMeta{
		GameID:    c.GameID,
		ClipID:    c.ClipID,
		Character: c.Character,
		Name:      c.Name,
		Code:      c.Code,
		Partition: p,
		Frames:    c.Frames(),
	}
}

func (m recordMeta) record() record {
	return record{
		strings: map[Field]string{
			FieldGameID:    m.GameID,
			FieldName:      m.Name,
			FieldCode:      m.Code,
			FieldPartition: string(m.Partition),
		},
		ints: map[Field]int64{
			FieldClipID:    int64(m.ClipID),
			FieldCharacter: int64(m.Character),
		},
	}
}

// EncodeRecord serializes a clip and its partition into the record format.
func EncodeRecord(c clip.Clip, p Partition) ([]byte, error) {
	if c.Stream == nil {
		return nil, fmt.Errorf("clip %d has no stream", c.ClipID)
	}
	meta, err := json.Marshal(metaOf(c, p))
	if err != nil {
		return nil, fmt.Errorf("encode clip metadata: %w", err)
	}
	stream, err := c.Stream.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("encode clip stream: %w", err)
	}

	out := make([]byte, 0, recordHeaderSize+len(meta)+len(stream))
	out = append(out, recordMagic[:]...)
	out = append(out, recordVersion)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(meta)))
	out = append(out, meta...)
	out = append(out, stream...)
	return out, nil
}

// DecodeRecord parses a record produced by EncodeRecord.
func DecodeRecord(data []byte) (clip.Clip, Partition, error) {
	meta, n, err := readMeta(bytes.NewReader(data))
	if err != nil {
		return clip.Clip{}, "", err
	}
	stream, err := sparse.Decode(data[n:])
	if err != nil {
		return clip.Clip{}, "", fmt.Errorf("%w: %v", ErrRecordFormat, err)
	}
	if stream.Rows() != meta.Frames {
		return clip.Clip{}, "", fmt.Errorf("%w: stream has %d frames, header says %d", ErrRecordFormat, stream.Rows(), meta.Frames)
	}
	return clip.Clip{
		GameID:    meta.GameID,
		ClipID:    meta.ClipID,
		Stream:    stream,
		Character: meta.Character,
		Name:      meta.Name,
		Code:      meta.Code,
	}, meta.Partition, nil
}

// readMeta reads the header and metadata, returning the number of bytes
// consumed so the stream can be located without decoding it.
func readMeta(r io.Reader) (recordMeta, int, error) {
	br := bufio.NewReader(r)
	var header [recordHeaderSize]byte
	if _, err := io.ReadFull(br, header[:]); err != nil {
		return recordMeta{}, 0, fmt.Errorf("%w: short header", ErrRecordFormat)
	}
	if !bytes.Equal(header[:4], recordMagic[:]) {
		return recordMeta{}, 0, fmt.Errorf("%w: bad magic", ErrRecordFormat)
	}
	if header[4] != recordVersion {
		return recordMeta{}, 0, fmt.Errorf("%w: unsupported version %d", ErrRecordFormat, header[4])
	}
	size := binary.LittleEndian.Uint32(header[5:])
	if size > maxMetaSize {
		return recordMeta{}, 0, fmt.Errorf("%w: metadata of %d bytes", ErrRecordFormat, size)
	}
	raw := make([]byte, size)
	if _, err := io.ReadFull(br, raw); err != nil {
		return recordMeta{}, 0, fmt.Errorf("%w: truncated metadata", ErrRecordFormat)
	}
	var meta recordMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return recordMeta{}, 0, fmt.Errorf("%w: metadata: %v", ErrRecordFormat, err)
	}
	if !meta.Character.Valid() {
		return recordMeta{}, 0, fmt.Errorf("%w: invalid character", ErrRecordFormat)
	}
	return meta, recordHeaderSize + int(size), nil
}
