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

package ast

// PredKind tags the variant held by a Predicate node.
type PredKind int

const (
	PredOr PredKind = iota
	PredAnd
	PredCompare
	PredLike
	PredIsNull
	PredBetween
	PredIn
	PredExists
	PredAnyAll
	PredParen
)

// CompareOp is a comparison operator. Negation is applied by flipping
// the operator (no dedicated Not node exists anywhere in this AST, per
// design note §4.3): "=" <-> "!=", "<" <-> ">=", "<=" <-> ">".
type CompareOp string

const (
	CmpEq  CompareOp = "="
	CmpNe  CompareOp = "!="
	CmpLt  CompareOp = "<"
	CmpLe  CompareOp = "<="
	CmpGt  CompareOp = ">"
	CmpGe  CompareOp = ">="
)

// Flip returns the negated comparison operator.
func (c CompareOp) Flip() CompareOp {
	switch c {
	case CmpEq:
		return CmpNe
	case CmpNe:
		return CmpEq
	case CmpLt:
		return CmpGe
	case CmpGe:
		return CmpLt
	case CmpLe:
		return CmpGt
	case CmpGt:
		return CmpLe
	}
	return c
}

// Predicate is a tagged-variant boolean expression node. NOT is never
// represented directly: And/Or negation is pushed via De Morgan at parse
// time, comparisons flip their operator, and Like/IsNull/Between/In/
// Exists/AnyAll carry a Negated flag that Negate toggles on a copy.
type Predicate struct {
	Kind PredKind

	// PredOr / PredAnd
	Clauses []*Predicate

	// PredCompare
	Op    CompareOp
	Left  *Expr
	Right *Expr
	// Right may alternatively be an ANY/ALL subquery; when RightAnyAll is
	// set, Right is ignored.
	RightAnyAll *AnyAll

	// PredLike
	Negated bool
	Pattern *Expr

	// PredIsNull: Left populated, Negated = IS NOT NULL

	// PredBetween
	Low  *Expr
	High *Expr

	// PredIn
	List  []*Expr
	InSub *Query

	// PredExists
	Sub *Query

	// PredAnyAll
	AA *AnyAll

	// PredParen
	Inner *Predicate
}

// AnyAll represents an ANY(...)/ALL(...) subquery comparison.
type AnyAll struct {
	Op  CompareOp
	All bool // false = ANY, true = ALL
	Sub *Query
}

// Or builds a flattened OR predicate.
func Or(clauses ...*Predicate) *Predicate { return &Predicate{Kind: PredOr, Clauses: clauses} }

// And builds a flattened AND predicate.
func And(clauses ...*Predicate) *Predicate { return &Predicate{Kind: PredAnd, Clauses: clauses} }

// Compare builds a comparison predicate.
func Compare(op CompareOp, l, r *Expr) *Predicate {
	return &Predicate{Kind: PredCompare, Op: op, Left: l, Right: r}
}

// Negate returns the De Morgan / operator-flip negation of p as a new
// predicate, per the strategy in design note §4.3; p itself is not
// modified.
func Negate(p *Predicate) *Predicate {
	switch p.Kind {
	case PredOr:
		neg := make([]*Predicate, len(p.Clauses))
		for i, c := range p.Clauses {
			neg[i] = Negate(c)
		}
		return And(neg...)
	case PredAnd:
		neg := make([]*Predicate, len(p.Clauses))
		for i, c := range p.Clauses {
			neg[i] = Negate(c)
		}
		return Or(neg...)
	case PredCompare:
		if p.RightAnyAll != nil {
			aa := *p.RightAnyAll
			aa.All = !aa.All
			aa.Op = aa.Op.Flip()
			return &Predicate{Kind: PredCompare, Op: p.Op.Flip(), Left: p.Left, RightAnyAll: &aa}
		}
		return Compare(p.Op.Flip(), p.Left, p.Right)
	case PredLike:
		q := *p
		q.Negated = !q.Negated
		return &q
	case PredIsNull:
		q := *p
		q.Negated = !q.Negated
		return &q
	case PredBetween:
		q := *p
		q.Negated = !q.Negated
		return &q
	case PredIn:
		q := *p
		q.Negated = !q.Negated
		return &q
	case PredExists:
		q := *p
		q.Negated = !q.Negated
		return &q
	case PredAnyAll:
		q := *p
		q.Negated = !q.Negated
		return &q
	case PredParen:
		return Negate(p.Inner)
	}
	return p
}
