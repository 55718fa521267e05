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

package types

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/euanmacinnes/clarium/errs"
)

// IsNullOrEmpty reports whether v is SQL NULL or the empty string, the
// predicate the SLICE label-coalescing rule (spec §4.5, §9) uses to decide
// whether an RHS value should fill an LHS-sticky label.
func IsNullOrEmpty(v Value) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return s == ""
	}
	return false
}

// Truthy coerces a scalar to a boolean for WHERE/HAVING/CASE WHEN
// evaluation. NULL is never truthy.
func Truthy(v Value) bool {
	if v == nil {
		return false
	}
	switch x := v.(type) {
	case bool:
		return x
	case int64:
		return x != 0
	case float64:
		return x != 0
	case string:
		return x != ""
	case decimal.Decimal:
		return !x.IsZero()
	default:
		return true
	}
}

// asFloat64 widens any numeric scalar to float64 for arithmetic/comparison,
// the common-denominator numeric type the executor computes in.
func asFloat64(v Value) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case decimal.Decimal:
		f, _ := x.Float64()
		return f, true
	}
	return 0, false
}

// bothInt reports whether a and b are both int64, the case arithmetic
// keeps in integer domain rather than widening to float64.
func bothInt(a, b Value) (int64, int64, bool) {
	ai, aok := a.(int64)
	bi, bok := b.(int64)
	return ai, bi, aok && bok
}

// Arith applies +, -, *, / to a and b, matching the shunting-yard
// arithmetic parser's operator set (spec §4.2). NULL propagates: any NULL
// operand yields a NULL result.
func Arith(op string, a, b Value) (Value, error) {
	if a == nil || b == nil {
		return nil, nil
	}
	if op == "+" {
		if as, ok := a.(string); ok {
			return as + toText(b), nil
		}
		if bs, ok := b.(string); ok {
			return toText(a) + bs, nil
		}
	}
	if ai, bi, ok := bothInt(a, b); ok {
		switch op {
		case "+":
			return ai + bi, nil
		case "-":
			return ai - bi, nil
		case "*":
			return ai * bi, nil
		case "/":
			if bi == 0 {
				return nil, errs.ErrType.New("division by zero")
			}
			return ai / bi, nil
		}
	}
	af, aok := asFloat64(a)
	bf, bok := asFloat64(b)
	if !aok || !bok {
		return nil, errs.ErrType.New(fmt.Sprintf("cannot apply %s to %v and %v", op, a, b))
	}
	switch op {
	case "+":
		return af + bf, nil
	case "-":
		return af - bf, nil
	case "*":
		return af * bf, nil
	case "/":
		if bf == 0 {
			return nil, errs.ErrType.New("division by zero")
		}
		return af / bf, nil
	}
	return nil, errs.ErrType.New("unsupported arithmetic operator " + op)
}

// Compare orders a against b. NULL never compares equal or ordered to
// anything, including another NULL; callers handling IS [NOT] NULL must
// special-case nil before calling Compare. ok is false when the two values
// cannot be compared (one is nil, or the types are incomparable).
func Compare(a, b Value) (cmp int, ok bool) {
	if a == nil || b == nil {
		return 0, false
	}
	if as, aok := a.(string); aok {
		if bs, bok := b.(string); bok {
			return strings.Compare(as, bs), true
		}
	}
	if at, aok := a.(int64); aok {
		if bt, bok := b.(int64); bok {
			switch {
			case at < bt:
				return -1, true
			case at > bt:
				return 1, true
			default:
				return 0, true
			}
		}
	}
	af, aok := asFloat64(a)
	bf, bok := asFloat64(b)
	if !aok || !bok {
		return 0, false
	}
	switch {
	case af < bf:
		return -1, true
	case af > bf:
		return 1, true
	default:
		return 0, true
	}
}

// Equal reports whether a and b compare equal; NULL is never equal to
// anything (including NULL), matching SQL three-valued logic collapsed to
// boolean for predicate evaluation (absence of a result is treated as not
// matching).
func Equal(a, b Value) bool {
	c, ok := Compare(a, b)
	return ok && c == 0
}

// LikeMatch implements SQL LIKE pattern matching: '%' matches any run of
// characters, '_' matches exactly one.
func LikeMatch(s, pattern string) bool {
	return likeMatch([]rune(s), []rune(pattern))
}

func likeMatch(s, p []rune) bool {
	if len(p) == 0 {
		return len(s) == 0
	}
	if p[0] == '%' {
		if likeMatch(s, p[1:]) {
			return true
		}
		for i := 0; i < len(s); i++ {
			if likeMatch(s[i+1:], p[1:]) {
				return true
			}
		}
		return false
	}
	if len(s) == 0 {
		return false
	}
	if p[0] == '_' || p[0] == s[0] {
		return likeMatch(s[1:], p[1:])
	}
	return false
}
