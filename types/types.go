// Copyright 2020-2021 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package types implements Clarium's scalar dtype system: the semantic
// column types tables may hold, plus CAST coercion between them.
package types

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/euanmacinnes/clarium/errs"
)

// DType is a column's semantic dtype, per spec §3.
type DType int

const (
	Null DType = iota
	Int64
	Float64
	Bool
	String
	TimestampMs
	Vector // list<f32>
)

func (d DType) String() string {
	switch d {
	case Int64:
		return "i64"
	case Float64:
		return "f64"
	case Bool:
		return "bool"
	case String:
		return "string"
	case TimestampMs:
		return "timestamp-ms"
	case Vector:
		return "list<f32>"
	default:
		return "null"
	}
}

// Value is a single scalar cell. nil means SQL NULL. Concrete Go types
// held: int64, float64, bool, string, time in ms (int64, dtype tags it),
// []float32 for vectors, decimal.Decimal, uuid.UUID.
type Value = interface{}

// Vec is the in-memory representation of a list<f32> vector cell.
type Vec []float32

// ParseVectorLiteral parses a "[x,y,z]" or "x,y,z" literal into a Vec, as
// produced by the to_vec(...) UDF and vector column literals.
func ParseVectorLiteral(s string) (Vec, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	if s == "" {
		return Vec{}, nil
	}
	parts := strings.Split(s, ",")
	out := make(Vec, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, errs.ErrType.New(fmt.Sprintf("invalid vector component %q", p))
		}
		out[i] = float32(f)
	}
	return out, nil
}

// CastName enumerates the type words recognized by ::type casts (spec
// §4.2). Width/precision variants are parsed but normalized to one of
// these canonical targets.
type CastName string

const (
	CastBool      CastName = "bool"
	CastInt       CastName = "int"
	CastFloat     CastName = "float"
	CastText      CastName = "text"
	CastVarchar   CastName = "varchar"
	CastNumeric   CastName = "numeric"
	CastDate      CastName = "date"
	CastTime      CastName = "time"
	CastTimestamp CastName = "timestamp"
	CastInterval  CastName = "interval"
	CastJSON      CastName = "json"
	CastUUID      CastName = "uuid"
	CastBytea     CastName = "bytea"
	CastRegclass  CastName = "regclass"
	CastRegtype   CastName = "regtype"
)

// NormalizeTypeWord maps any of the accepted spelling variants in spec
// §4.2 to a canonical CastName.
func NormalizeTypeWord(word string) (CastName, error) {
	w := strings.ToLower(strings.TrimSpace(word))
	// strip any parenthesized precision, e.g. "varchar(32)" -> "varchar"
	if i := strings.IndexByte(w, '('); i >= 0 {
		w = w[:i]
	}
	w = strings.TrimSpace(w)
	switch w {
	case "bool", "boolean":
		return CastBool, nil
	case "int2", "int4", "int8", "int", "integer", "bigint", "smallint":
		return CastInt, nil
	case "real", "float8", "double precision", "float", "double":
		return CastFloat, nil
	case "text":
		return CastText, nil
	case "varchar", "char":
		return CastVarchar, nil
	case "numeric", "decimal":
		return CastNumeric, nil
	case "date":
		return CastDate, nil
	case "time":
		return CastTime, nil
	case "timestamp":
		return CastTimestamp, nil
	case "interval":
		return CastInterval, nil
	case "json", "jsonb":
		return CastJSON, nil
	case "uuid":
		return CastUUID, nil
	case "bytea":
		return CastBytea, nil
	case "regclass":
		return CastRegclass, nil
	case "regtype":
		return CastRegtype, nil
	default:
		return "", errs.ErrType.New(fmt.Sprintf("unsupported cast type %q", word))
	}
}

// ColumnDType maps a CREATE TABLE/TIME TABLE column type word to a
// storage DType. It recognizes the vector spelling ("vector"/"list<f32>")
// on top of every cast type word NormalizeTypeWord accepts, since a DDL
// column word has no arithmetic-cast target to fall back on.
func ColumnDType(word string) (DType, error) {
	w := strings.ToLower(strings.TrimSpace(word))
	if w == "vector" || w == "list<f32>" || strings.HasPrefix(w, "vector(") {
		return Vector, nil
	}
	cn, err := NormalizeTypeWord(word)
	if err != nil {
		return Null, err
	}
	switch cn {
	case CastBool:
		return Bool, nil
	case CastInt:
		return Int64, nil
	case CastFloat, CastNumeric:
		return Float64, nil
	case CastDate, CastTimestamp:
		return TimestampMs, nil
	default:
		return String, nil
	}
}

// Cast coerces v to the given cast target, matching the CAST semantics
// used by both the expression evaluator and literal folding.
func Cast(v Value, target CastName) (Value, error) {
	if v == nil {
		return nil, nil
	}
	switch target {
	case CastBool:
		return toBool(v)
	case CastInt:
		return toInt64(v)
	case CastFloat:
		return toFloat64(v)
	case CastText, CastVarchar, CastJSON:
		return toText(v), nil
	case CastNumeric:
		return toDecimal(v)
	case CastDate, CastTimestamp:
		return toTimestampMs(v)
	case CastTime, CastInterval:
		return toInt64(v)
	case CastUUID:
		s := toText(v)
		u, err := uuid.Parse(s)
		if err != nil {
			return nil, errs.ErrType.New(fmt.Sprintf("invalid uuid %q", s))
		}
		return u, nil
	case CastBytea:
		return []byte(toText(v)), nil
	case CastRegclass, CastRegtype:
		return toText(v), nil
	}
	return nil, errs.ErrType.New(fmt.Sprintf("unsupported cast target %q", target))
}

func toBool(v Value) (Value, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case int64:
		return x != 0, nil
	case float64:
		return x != 0, nil
	case string:
		switch strings.ToLower(x) {
		case "true", "t", "1", "yes":
			return true, nil
		case "false", "f", "0", "no":
			return false, nil
		}
	}
	return nil, errs.ErrType.New(fmt.Sprintf("cannot cast %v to bool", v))
}

func toInt64(v Value) (Value, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case float64:
		return int64(x), nil
	case bool:
		if x {
			return int64(1), nil
		}
		return int64(0), nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil {
			return nil, errs.ErrType.New(fmt.Sprintf("cannot cast %q to int", x))
		}
		return i, nil
	case decimal.Decimal:
		return x.IntPart(), nil
	}
	return nil, errs.ErrType.New(fmt.Sprintf("cannot cast %v to int", v))
}

func toFloat64(v Value) (Value, error) {
	switch x := v.(type) {
	case int64:
		return float64(x), nil
	case float64:
		return x, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return nil, errs.ErrType.New(fmt.Sprintf("cannot cast %q to float", x))
		}
		return f, nil
	case decimal.Decimal:
		f, _ := x.Float64()
		return f, nil
	}
	return nil, errs.ErrType.New(fmt.Sprintf("cannot cast %v to float", v))
}

func toText(v Value) string {
	switch x := v.(type) {
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case decimal.Decimal:
		return x.String()
	case uuid.UUID:
		return x.String()
	default:
		return fmt.Sprintf("%v", x)
	}
}

func toDecimal(v Value) (Value, error) {
	switch x := v.(type) {
	case decimal.Decimal:
		return x, nil
	case int64:
		return decimal.NewFromInt(x), nil
	case float64:
		return decimal.NewFromFloat(x), nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(x))
		if err != nil {
			return nil, errs.ErrType.New(fmt.Sprintf("cannot cast %q to numeric", x))
		}
		return d, nil
	}
	return nil, errs.ErrType.New(fmt.Sprintf("cannot cast %v to numeric", v))
}

// toTimestampMs parses an ISO-8601 string (or passes through an existing
// ms value) to epoch milliseconds, per the literal-folding contract in
// spec §4.2.
func toTimestampMs(v Value) (Value, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case float64:
		return int64(x), nil
	case string:
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, x); err == nil {
				return t.UnixMilli(), nil
			}
		}
		return nil, errs.ErrType.New(fmt.Sprintf("cannot parse timestamp %q", x))
	}
	return nil, errs.ErrType.New(fmt.Sprintf("cannot cast %v to timestamp", v))
}

// TryParseISOTimestamp converts a quoted string literal to numeric ms if
// it looks like an ISO-8601 timestamp, matching the lexer contract in
// spec §4.2 ("ISO-8601 timestamps inside quotes become numeric ms at
// parse time"). Returns ok=false (leaving v as a plain string) if the
// value doesn't parse as a timestamp.
func TryParseISOTimestamp(s string) (ms int64, ok bool) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05.000Z", "2006-01-02T15:04:05Z", "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UnixMilli(), true
		}
	}
	return 0, false
}
