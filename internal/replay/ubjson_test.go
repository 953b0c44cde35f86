package replay

import (
	"bytes"
	"strings"
	"testing"
)

func TestDecodeUBJSONScalarsAndContainers(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("{")
	buf.WriteString("U\x01aI\x01\x00")
	buf.WriteString("U\x01bSU\x03abc")
	buf.WriteString("U\x01c[i\x05TZ]")
	buf.WriteString("U\x01d[$U#U\x03\x01\x02\x03")
	buf.WriteString("U\x01eN{#U\x01U\x01xi\xff")
	buf.WriteString("}")

	value, err := decodeUBJSON(buf.Bytes())
	if err != nil {
		t.Fatalf("decodeUBJSON: %v", err)
	}
	obj, ok := value.(map[string]any)
	if !ok {
		t.Fatalf("expected object, got %T", value)
	}
	if got := obj["a"]; got != int64(256) {
		t.Fatalf("a = %v, want 256", got)
	}
	if got := obj["b"]; got != "abc" {
		t.Fatalf("b = %v, want abc", got)
	}
	arr, ok := obj["c"].([]any)
	if !ok || len(arr) != 3 {
		t.Fatalf("c = %#v, want 3 elements", obj["c"])
	}
	if arr[0] != int64(5) || arr[1] != true || arr[2] != nil {
		t.Fatalf("c = %#v", arr)
	}
	raw, ok := obj["d"].([]byte)
	if !ok || !bytes.Equal(raw, []byte{1, 2, 3}) {
		t.Fatalf("d = %#v, want []byte{1,2,3}", obj["d"])
	}
	nested, ok := obj["e"].(map[string]any)
	if !ok || nested["x"] != int64(-1) {
		t.Fatalf("e = %#v", obj["e"])
	}
}

func TestDecodeUBJSONTruncated(t *testing.T) {
	inputs := [][]byte{
		nil,
		[]byte("{U\x03raw[$U#l\x00\x00\x00\x10\x01\x02"),
		[]byte("{U\x05ab"),
		[]byte("[$U"),
	}
	for i, data := range inputs {
		if _, err := decodeUBJSON(data); err == nil {
			t.Fatalf("input %d: expected error", i)
		}
	}
}

func TestDecodeUBJSONNestingLimit(t *testing.T) {
	deep := bytes.Repeat([]byte{'['}, 1<<20)
	if _, err := decodeUBJSON(deep); err == nil || !strings.Contains(err.Error(), "nested deeper") {
		t.Fatalf("expected nesting error, got %v", err)
	}
	if _, err := DecodeBytes(deep); !IsParseError(err) {
		t.Fatalf("DecodeBytes error = %v, want parse error", err)
	}

	ok := append(bytes.Repeat([]byte{'['}, maxUBJSONDepth), bytes.Repeat([]byte{']'}, maxUBJSONDepth)...)
	if _, err := decodeUBJSON(ok); err != nil {
		t.Fatalf("nesting at the limit: %v", err)
	}
}

func TestDecodeUBJSONUnknownMarker(t *testing.T) {
	if _, err := decodeUBJSON([]byte("{U\x01a?}")); err == nil {
		t.Fatal("expected unknown marker error")
	}
}
