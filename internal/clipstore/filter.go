package clipstore

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"slipclip/internal/melee"
)

// Field is a filterable metadata field.
type Field string

const (
	FieldGameID    Field = "game_id"
	FieldClipID    Field = "clip_id"
	FieldCharacter Field = "character"
	FieldName      Field = "name"
	FieldCode      Field = "code"
	FieldPartition Field = "partition"
	// FieldPort only applies to full-game player records.
	FieldPort Field = "port"
)

// Op is a comparison operator.
type Op string

const (
	OpEq  Op = "="
	OpNe  Op = "!="
	OpLt  Op = "<"
	OpLte Op = "<="
	OpGt  Op = ">"
	OpGte Op = ">="
	OpIn  Op = "in"
)

// Condition constrains one field. For OpIn, Value must be a slice.
type Condition struct {
	Field Field
	Op    Op
	Value any
}

// Filter is a conjunction of conditions. The zero value matches everything.
type Filter []Condition

// Eq is shorthand for an equality condition.
func Eq(field Field, value any) Condition {
	return Condition{Field: field, Op: OpEq, Value: value}
}

// In is shorthand for a set-membership condition.
func In(field Field, values ...any) Condition {
	return Condition{Field: field, Op: OpIn, Value: values}
}

type fieldKind int

const (
	kindString fieldKind = iota
	kindInt
)

type fieldSpec struct {
	kind   fieldKind
	column string
}

var clipFields = map[Field]fieldSpec{
	FieldGameID:    {kindString, "game_id"},
	FieldClipID:    {kindInt, "clip_id"},
	FieldCharacter: {kindInt, "character_id"},
	FieldName:      {kindString, "name"},
	FieldCode:      {kindString, "code"},
	FieldPartition: {kindString, "split"},
}

var playerFields = map[Field]fieldSpec{
	FieldGameID:    {kindString, "game_id"},
	FieldPort:      {kindInt, "port"},
	FieldCharacter: {kindInt, "character_id"},
	FieldName:      {kindString, "name"},
	FieldCode:      {kindString, "code"},
}

// compiled is a validated condition with canonical values: string for
// string fields and int64 for integer fields (characters by class index).
type compiled struct {
	field  Field
	spec   fieldSpec
	op     Op
	values []any
}

// Validate reports whether f can be applied to clips.
func (f Filter) Validate() error {
	_, err := f.compile(clipFields)
	return err
}

func (f Filter) compile(fields map[Field]fieldSpec) ([]compiled, error) {
	out := make([]compiled, 0, len(f))
	for _, cond := range f {
		spec, ok := fields[cond.Field]
		if !ok {
			return nil, fmt.Errorf("%w: unknown filter field %q", ErrInvalidArgument, cond.Field)
		}
		var raw []any
		switch cond.Op {
		case OpEq, OpNe, OpLt, OpLte, OpGt, OpGte:
			raw = []any{cond.Value}
		case OpIn:
			list, err := toList(cond.Value)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrInvalidArgument, cond.Field, err)
			}
			if len(list) == 0 {
				return nil, fmt.Errorf("%w: %s: empty set", ErrInvalidArgument, cond.Field)
			}
			raw = list
		default:
			return nil, fmt.Errorf("%w: unknown filter operator %q", ErrInvalidArgument, cond.Op)
		}
		values := make([]any, len(raw))
		for i, v := range raw {
			canon, err := canonical(cond.Field, spec.kind, v)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrInvalidArgument, cond.Field, err)
			}
			values[i] = canon
		}
		out = append(out, compiled{field: cond.Field, spec: spec, op: cond.Op, values: values})
	}
	return out, nil
}

func toList(value any) ([]any, error) {
	if list, ok := value.([]any); ok {
		return list, nil
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("set membership needs a slice, got %T", value)
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}

func canonical(field Field, kind fieldKind, value any) (any, error) {
	if field == FieldCharacter {
		switch v := value.(type) {
		case melee.Character:
			if !v.Valid() {
				return nil, fmt.Errorf("invalid character %d", uint8(v))
			}
			return int64(v), nil
		case string:
			c, err := melee.ParseCharacter(v)
			if err != nil {
				return nil, err
			}
			return int64(c), nil
		}
	}
	if field == FieldPartition {
		if p, ok := value.(Partition); ok {
			return string(p), nil
		}
	}

	switch kind {
	case kindString:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("want string, got %T", value)
		}
		return s, nil
	default:
		switch v := value.(type) {
		case int:
			return int64(v), nil
		case int32:
			return int64(v), nil
		case int64:
			return v, nil
		case uint8:
			return int64(v), nil
		case string:
			n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("want integer, got %q", v)
			}
			return n, nil
		}
		return nil, fmt.Errorf("want integer, got %T", value)
	}
}

// record is the metadata view a condition is evaluated against.
type record struct {
	strings map[Field]string
	ints    map[Field]int64
}

func (c compiled) match(r record) bool {
	var cmp func(v any) int
	if c.spec.kind == kindString {
		have := r.strings[c.field]
		cmp = func(v any) int { return strings.Compare(have, v.(string)) }
	} else {
		have := r.ints[c.field]
		cmp = func(v any) int {
			switch want := v.(int64); {
			case have < want:
				return -1
			case have > want:
				return 1
			}
			return 0
		}
	}

	switch c.op {
	case OpEq:
		return cmp(c.values[0]) == 0
	case OpNe:
		return cmp(c.values[0]) != 0
	case OpLt:
		return cmp(c.values[0]) < 0
	case OpLte:
		return cmp(c.values[0]) <= 0
	case OpGt:
		return cmp(c.values[0]) > 0
	case OpGte:
		return cmp(c.values[0]) >= 0
	case OpIn:
		for _, v := range c.values {
			if cmp(v) == 0 {
				return true
			}
		}
	}
	return false
}

func matchAll(conds []compiled, r record) bool {
	for _, c := range conds {
		if !c.match(r) {
			return false
		}
	}
	return true
}

// where renders conditions as a SQL WHERE clause with positional args.
// Absent names and codes are stored as NULL and compare as empty strings.
func where(conds []compiled) (string, []any) {
	if len(conds) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(conds))
	var args []any
	for _, c := range conds {
		column := c.spec.column
		if c.field == FieldName || c.field == FieldCode {
			column = "COALESCE(" + column + ", '')"
		}
		if c.op == OpIn {
			parts = append(parts, column+" IN ("+placeholders(len(c.values))+")")
			args = append(args, c.values...)
			continue
		}
		parts = append(parts, column+" "+string(c.op)+" ?")
		args = append(args, c.values[0])
	}
	return " WHERE " + strings.Join(parts, " AND "), args
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

var parseOps = []Op{OpNe, OpLte, OpGte, OpEq, OpLt, OpGt}

// ParseCondition parses "field<op>value", e.g. "clip_id>=100" or
// "character=FOX".
func ParseCondition(expr string) (Condition, error) {
	for _, op := range parseOps {
		idx := strings.Index(expr, string(op))
		if idx <= 0 {
			continue
		}
		field := Field(strings.TrimSpace(expr[:idx]))
		value := strings.TrimSpace(expr[idx+len(op):])
		cond := Condition{Field: field, Op: op, Value: value}
		if _, err := (Filter{cond}).compile(clipFields); err != nil {
			return Condition{}, err
		}
		return cond, nil
	}
	return Condition{}, fmt.Errorf("%w: condition %q has no operator", ErrInvalidArgument, expr)
}
