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

// CommandKind tags the statement variant held by a Command.
type CommandKind int

const (
	CmdSelect CommandKind = iota
	CmdSlice
	CmdMatch
	CmdInsert
	CmdUpdate
	CmdDelete
	CmdCreate
	CmdDrop
	CmdRename
	CmdUse
	CmdSet
	CmdShow
	CmdDescribe
	CmdLoad
	CmdGCGraph
	CmdUserAdd
	CmdUserAlter
	CmdUserDelete
)

// Command is the top-level parsed statement.
type Command struct {
	Kind CommandKind

	Select *Query // CmdSelect
	Slice  *SlicePlan // CmdSlice (top-level SLICE statement)

	Match *MatchPattern // CmdMatch, before rewrite

	DML *DML // CmdInsert/Update/Delete
	DDL *DDL // CmdCreate/Drop/Rename

	UseSet *UseSet // CmdUse/CmdSet
	Show   *Show   // CmdShow/CmdDescribe
	Load   *Load   // CmdLoad
	User   *UserOp // CmdUserAdd/Alter/Delete
}

// SelectItem is one projection column.
type SelectItem struct {
	Expr  *Expr
	Alias string
}

// TableRef is a bare table/view reference with an optional alias.
type TableRef struct {
	Name  string
	Alias string
}

// JoinType enumerates supported join kinds; bare JOIN parses as Inner.
type JoinType int

const (
	JoinInner JoinType = iota
	JoinLeft
	JoinRight
	JoinFull
)

// JoinClause is one link in a join chain.
type JoinClause struct {
	Type JoinType
	Src  *FromSource
	On   *Predicate
}

// FromSourceKind tags the FROM source variant.
type FromSourceKind int

const (
	FromTable FromSourceKind = iota
	FromSubquery
	FromTVF
)

// FromSource is a single FROM entry: a table, a subquery, or a
// table-valued function call.
type FromSource struct {
	Kind FromSourceKind

	Table *TableRef // FromTable

	Subquery *Query // FromSubquery
	Alias    string // required for FromSubquery

	TVFName string  // FromTVF, e.g. "graph_neighbors"
	TVFArgs []*Expr // FromTVF
}

// FromTree is the full FROM clause: a base source plus an ordered chain
// of joins.
type FromTree struct {
	Base  *FromSource
	Joins []*JoinClause
}

// AggKind selects the aggregation driver for a Query; at most one may be
// set (BY window, BY SLICE, and GROUP BY are mutually exclusive).
type AggKind int

const (
	AggNone AggKind = iota
	AggByWindow
	AggBySlice
	AggGroupBy
	AggRollingBy
)

// OrderKey is one ORDER BY key.
type OrderKey struct {
	Expr *Expr
	Desc bool
}

// OrderHint records a trailing "USING ANN|EXACT" hint, stripped from the
// key it was attached to.
type OrderHint int

const (
	HintNone OrderHint = iota
	HintANN
	HintExact
)

// CTE is one WITH-clause common table expression.
type CTE struct {
	Name  string
	Query *Query
}

// IntoMode selects INSERT semantics for a SELECT ... INTO sink.
type IntoMode int

const (
	IntoAppend IntoMode = iota
	IntoReplace
)

// Into is a SELECT's optional INTO sink.
type Into struct {
	Table string
	Mode  IntoMode
}

// Query is a full (possibly nested) SELECT statement.
type Query struct {
	WithCTEs []CTE

	Select []SelectItem
	From   *FromTree

	Where *Predicate

	AggKind     AggKind
	ByWindowMs  int64
	BySlice     *SlicePlan
	GroupBy     []*Expr
	GroupNotNull bool
	RollingMs   int64

	Having *Predicate

	OrderBy       []OrderKey
	OrderByHint   OrderHint
	OrderHintOnKey int // index into OrderBy the hint was stripped from

	Limit    *int64
	Into     *Into

	// Union: when non-nil, this Query's rows are unioned with Next's.
	// UnionAll controls DISTINCT vs ALL semantics.
	UnionNext *Query
	UnionAll  bool
}

// SliceSourceKind tags a SLICE source variant.
type SliceSourceKind int

const (
	SliceSrcTable SliceSourceKind = iota
	SliceSrcManual
	SliceSrcPlan
)

// ManualInterval is one literal tuple in a Manual slice source.
type ManualInterval struct {
	Start  int64
	End    int64
	Labels map[string]*Expr
}

// SliceSource is one leaf or nested-plan source feeding a SlicePlan.
type SliceSource struct {
	Kind SliceSourceKind

	// SliceSrcTable
	Table     string
	StartCol  string
	EndCol    string
	Where     *Predicate
	LabelVals map[string]*Expr

	// SliceSrcManual
	Manual []ManualInterval

	// SliceSrcPlan
	Plan *SlicePlan
}

// SliceOp is the algebraic operator joining a SlicePlan's clauses.
type SliceOp int

const (
	SliceUnion SliceOp = iota
	SliceIntersect
)

// SliceClause is one "OP source" term beyond the base of a SlicePlan.
type SliceClause struct {
	Op  SliceOp
	Src *SliceSource
}

// SlicePlan is the full algebra tree for a SLICE statement or BY
// SLICE(...) aggregation driver.
type SlicePlan struct {
	Base    *SliceSource
	Clauses []SliceClause
	Labels  []string
}

// MatchPattern is the parsed form of a MATCH statement, before rewrite
// to SELECT (see match package).
type MatchPattern struct {
	Shortest    bool
	Graph       string
	StartLabel  string
	StartKeyLit *Expr
	EdgeType    string
	MinHops     int
	MaxHops     int
	EndLabel    string
	EndKeyLit   *Expr // required when Shortest

	Where   *Predicate
	Return  []SelectItem
	OrderBy []OrderKey
	Limit   *int64
}

// DML is the payload of an INSERT/UPDATE/DELETE statement; which fields
// are set depends on the statement kind.
type DML struct {
	Table   string
	Columns []string
	Values  [][]*Expr // INSERT VALUES rows
	FromSelect *Query // INSERT ... SELECT

	Assignments map[string]*Expr // UPDATE SET
	Where       *Predicate       // UPDATE/DELETE
}

// DDLObject enumerates CREATE/DROP/RENAME target kinds.
type DDLObject int

const (
	DDLDatabase DDLObject = iota
	DDLSchema
	DDLTable
	DDLTimeTable
	DDLView
	DDLVectorIndex
	DDLGraph
	DDLScript
	DDLStore
	DDLKey
)

// DDLAction is CREATE, DROP, or RENAME.
type DDLAction int

const (
	DDLCreate DDLAction = iota
	DDLDrop
	DDLRename
)

// ColumnDef is one column in a CREATE TABLE/TIME TABLE statement.
type ColumnDef struct {
	Name string
	Type string
}

// DDL is the parsed form of any CREATE/DROP/RENAME statement.
type DDL struct {
	Action DDLAction
	Object DDLObject

	Name    string
	NewName string // RENAME target

	Columns    []ColumnDef
	PrimaryKey []string
	PartitionBy []string

	ViewSQL   string // CREATE VIEW ... AS <sql>
	ViewMatch *MatchPattern

	VIndexTable  string
	VIndexColumn string
	VIndexAlgo   string
	VIndexMetric string
	VIndexDim    int
	VIndexMode   string
	VIndexParams map[string]string

	GraphNodes []GraphNodeDef
	GraphEdges []GraphEdgeDef
	GraphEngine string
}

// GraphNodeDef is one node-kind entry of a CREATE GRAPH statement.
type GraphNodeDef struct {
	Label     string
	Key       string
	Table     string
	KeyColumn string
}

// GraphEdgeDef is one edge-kind entry of a CREATE GRAPH statement.
type GraphEdgeDef struct {
	Type        string
	From        string
	To          string
	Table       string
	SrcColumn   string
	DstColumn   string
	CostColumn  string
	TimeColumn  string
}

// UseSet is a parsed USE or SET statement.
type UseSet struct {
	IsSet bool
	DB     string
	Schema string
	Graph  string
	Key    string // SET <key> = <value>
	Value  string
}

// Show is a parsed SHOW or DESCRIBE statement.
type Show struct {
	IsDescribe bool
	What       string // e.g. "TABLES", "DATABASES", object name for DESCRIBE
}

// Load is a parsed LOAD statement.
type Load struct {
	Table string
	Path  string
	Format string
}

// UserOp is a parsed USER ADD/ALTER/DELETE statement.
type UserOp struct {
	Action   string // "ADD","ALTER","DELETE"
	Username string
	Password string
	Roles    []string
}
