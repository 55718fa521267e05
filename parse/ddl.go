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

package parse

import (
	"strconv"
	"strings"

	"github.com/euanmacinnes/clarium/ast"
	"github.com/euanmacinnes/clarium/errs"
	"github.com/euanmacinnes/clarium/lex"
)

var ddlObjectWords = map[string]ast.DDLObject{
	"DATABASE":     ast.DDLDatabase,
	"SCHEMA":       ast.DDLSchema,
	"TABLE":        ast.DDLTable,
	"VIEW":         ast.DDLView,
	"VECTOR-INDEX": ast.DDLVectorIndex,
	"GRAPH":        ast.DDLGraph,
	"SCRIPT":       ast.DDLScript,
	"STORE":        ast.DDLStore,
	"KEY":          ast.DDLKey,
}

func parseCreate(s *lex.Scanner) (*ast.DDL, error) {
	s.Pos += len("CREATE")
	lex.SkipSpaces(s)

	if matchKeywordAt(s.Src, s.Pos, "TIME") {
		s.Pos += len("TIME")
		lex.SkipSpaces(s)
		if !matchKeywordAt(s.Src, s.Pos, "TABLE") {
			return nil, errs.ErrSyntax.New("expected TABLE after TIME")
		}
		s.Pos += len("TABLE")
		return parseCreateTable(s, true)
	}
	if matchKeywordAt(s.Src, s.Pos, "TABLE") {
		s.Pos += len("TABLE")
		return parseCreateTable(s, false)
	}
	if matchKeywordAt(s.Src, s.Pos, "VIEW") {
		s.Pos += len("VIEW")
		return parseCreateView(s)
	}
	if matchKeywordAt(s.Src, s.Pos, "VECTOR-INDEX") || matchKeywordAt(s.Src, s.Pos, "VINDEX") {
		consumeWord(s)
		return parseCreateVectorIndex(s)
	}
	if matchKeywordAt(s.Src, s.Pos, "GRAPH") {
		s.Pos += len("GRAPH")
		return parseCreateGraph(s)
	}
	if matchKeywordAt(s.Src, s.Pos, "DATABASE") {
		s.Pos += len("DATABASE")
		lex.SkipSpaces(s)
		name, err := lex.ReadIdent(s)
		if err != nil {
			return nil, err
		}
		return &ast.DDL{Action: ast.DDLCreate, Object: ast.DDLDatabase, Name: name}, nil
	}
	if matchKeywordAt(s.Src, s.Pos, "SCHEMA") {
		s.Pos += len("SCHEMA")
		lex.SkipSpaces(s)
		name, err := lex.ReadIdent(s)
		if err != nil {
			return nil, err
		}
		return &ast.DDL{Action: ast.DDLCreate, Object: ast.DDLSchema, Name: name}, nil
	}
	return nil, errs.ErrSyntax.New("unsupported CREATE target" + "\n" + lex.CaretSnippet(string(s.Src), s.Pos))
}

func consumeWord(s *lex.Scanner) {
	for !s.Eof() && isIdentRune(s.Peek()) || (!s.Eof() && s.Peek() == '-') {
		s.Pos++
	}
}

func parseCreateTable(s *lex.Scanner, isTime bool) (*ast.DDL, error) {
	lex.SkipSpaces(s)
	name, err := lex.ReadIdent(s)
	if err != nil {
		return nil, err
	}
	d := &ast.DDL{Action: ast.DDLCreate, Name: name}
	if isTime {
		d.Object = ast.DDLTimeTable
	} else {
		d.Object = ast.DDLTable
	}

	lex.SkipSpaces(s)
	if s.Peek() == '(' {
		s.Pos++
		text, err := readBalancedParenContent(s)
		if err != nil {
			return nil, err
		}
		for _, part := range lex.SplitTopLevel(text, ',') {
			part = strings.TrimSpace(part)
			upper := strings.ToUpper(part)
			if strings.HasPrefix(upper, "PRIMARY KEY") {
				cols := part[strings.IndexByte(part, '('):]
				cols = strings.TrimPrefix(strings.TrimSuffix(cols, ")"), "(")
				for _, c := range lex.SplitTopLevel(cols, ',') {
					d.PrimaryKey = append(d.PrimaryKey, strings.TrimSpace(c))
				}
				continue
			}
			fields := strings.Fields(part)
			if len(fields) < 2 {
				continue
			}
			d.Columns = append(d.Columns, ast.ColumnDef{Name: fields[0], Type: strings.Join(fields[1:], " ")})
		}
	}

	lex.SkipSpaces(s)
	if matchKeywordAt(s.Src, s.Pos, "PARTITION") {
		s.Pos += len("PARTITION")
		lex.SkipSpaces(s)
		if matchKeywordAt(s.Src, s.Pos, "BY") {
			s.Pos += len("BY")
		}
		lex.SkipSpaces(s)
		if s.Peek() == '(' {
			s.Pos++
			text, err := readBalancedParenContent(s)
			if err != nil {
				return nil, err
			}
			for _, c := range lex.SplitTopLevel(text, ',') {
				d.PartitionBy = append(d.PartitionBy, strings.TrimSpace(c))
			}
		}
	}

	return d, nil
}

func parseCreateView(s *lex.Scanner) (*ast.DDL, error) {
	lex.SkipSpaces(s)
	name, err := lex.ReadIdent(s)
	if err != nil {
		return nil, err
	}
	lex.SkipSpaces(s)
	if !matchKeywordAt(s.Src, s.Pos, "AS") {
		return nil, errs.ErrSyntax.New("expected AS in CREATE VIEW")
	}
	s.Pos += len("AS")
	lex.SkipSpaces(s)
	d := &ast.DDL{Action: ast.DDLCreate, Object: ast.DDLView, Name: name}
	if matchKeywordAt(s.Src, s.Pos, "MATCH") {
		m, err := parseMatch(s)
		if err != nil {
			return nil, err
		}
		d.ViewMatch = m
	} else {
		d.ViewSQL = strings.TrimSpace(string(s.Src[s.Pos:]))
		s.Pos = len(s.Src)
	}
	return d, nil
}

func parseCreateVectorIndex(s *lex.Scanner) (*ast.DDL, error) {
	lex.SkipSpaces(s)
	name, err := lex.ReadIdent(s)
	if err != nil {
		return nil, err
	}
	lex.SkipSpaces(s)
	if !matchKeywordAt(s.Src, s.Pos, "ON") {
		return nil, errs.ErrSyntax.New("expected ON in CREATE VECTOR-INDEX")
	}
	s.Pos += len("ON")
	lex.SkipSpaces(s)
	table, err := lex.ReadIdent(s)
	if err != nil {
		return nil, err
	}
	lex.SkipSpaces(s)
	if s.Peek() != '(' {
		return nil, errs.ErrSyntax.New("expected '(column)' in CREATE VECTOR-INDEX")
	}
	s.Pos++
	col, err := lex.ReadIdent(s)
	if err != nil {
		return nil, err
	}
	lex.SkipSpaces(s)
	if s.Peek() != ')' {
		return nil, errs.ErrSyntax.New("expected ')'")
	}
	s.Pos++

	d := &ast.DDL{
		Action: ast.DDLCreate, Object: ast.DDLVectorIndex, Name: name,
		VIndexTable: table, VIndexColumn: col,
		VIndexAlgo: "HNSW", VIndexMetric: "l2", VIndexMode: "BATCHED",
		VIndexParams: map[string]string{},
	}

	for {
		lex.SkipSpaces(s)
		if matchKeywordAt(s.Src, s.Pos, "USING") {
			s.Pos += len("USING")
			lex.SkipSpaces(s)
			algo, err := lex.ReadIdent(s)
			if err != nil {
				return nil, err
			}
			d.VIndexAlgo = strings.ToUpper(algo)
			continue
		}
		if matchKeywordAt(s.Src, s.Pos, "METRIC") {
			s.Pos += len("METRIC")
			lex.SkipSpaces(s)
			metric, err := lex.ReadIdent(s)
			if err != nil {
				return nil, err
			}
			d.VIndexMetric = strings.ToLower(metric)
			continue
		}
		if matchKeywordAt(s.Src, s.Pos, "DIM") {
			s.Pos += len("DIM")
			lex.SkipSpaces(s)
			start := s.Pos
			for !s.Eof() && isDigit(s.Peek()) {
				s.Pos++
			}
			n, err := strconv.Atoi(string(s.Src[start:s.Pos]))
			if err != nil {
				return nil, errs.ErrSyntax.New("expected integer DIM")
			}
			d.VIndexDim = n
			continue
		}
		if matchKeywordAt(s.Src, s.Pos, "MODE") {
			s.Pos += len("MODE")
			lex.SkipSpaces(s)
			mode, err := lex.ReadIdent(s)
			if err != nil {
				return nil, err
			}
			d.VIndexMode = strings.ToUpper(mode)
			continue
		}
		break
	}

	return d, nil
}

func parseCreateGraph(s *lex.Scanner) (*ast.DDL, error) {
	lex.SkipSpaces(s)
	name, err := lex.ReadIdent(s)
	if err != nil {
		return nil, err
	}
	d := &ast.DDL{Action: ast.DDLCreate, Object: ast.DDLGraph, Name: name, GraphEngine: "relational"}

	lex.SkipSpaces(s)
	if s.Peek() != '(' {
		return nil, errs.ErrSyntax.New("expected '(' in CREATE GRAPH")
	}
	s.Pos++
	text, err := readBalancedParenContent(s)
	if err != nil {
		return nil, err
	}
	for _, part := range lex.SplitTopLevel(text, ',') {
		part = strings.TrimSpace(part)
		upper := strings.ToUpper(part)
		if strings.HasPrefix(upper, "NODE") {
			nd, err := parseGraphNodeDef(part)
			if err != nil {
				return nil, err
			}
			d.GraphNodes = append(d.GraphNodes, nd)
		} else if strings.HasPrefix(upper, "EDGE") {
			ed, err := parseGraphEdgeDef(part)
			if err != nil {
				return nil, err
			}
			d.GraphEdges = append(d.GraphEdges, ed)
		}
	}

	lex.SkipSpaces(s)
	if matchKeywordAt(s.Src, s.Pos, "ENGINE") {
		s.Pos += len("ENGINE")
		lex.SkipSpaces(s)
		eng, err := lex.ReadIdent(s)
		if err != nil {
			return nil, err
		}
		d.GraphEngine = strings.ToLower(eng)
	}
	return d, nil
}

// parseGraphNodeDef parses "NODE Label(table, key=col)".
func parseGraphNodeDef(part string) (ast.GraphNodeDef, error) {
	rest := strings.TrimSpace(part[len("NODE"):])
	paren := strings.IndexByte(rest, '(')
	if paren < 0 {
		return ast.GraphNodeDef{}, errs.ErrSyntax.New("malformed NODE definition: " + part)
	}
	label := strings.TrimSpace(rest[:paren])
	body := strings.TrimSuffix(strings.TrimSpace(rest[paren+1:]), ")")
	fields := lex.SplitTopLevel(body, ',')
	nd := ast.GraphNodeDef{Label: label, Key: label}
	if len(fields) > 0 {
		nd.Table = strings.TrimSpace(fields[0])
	}
	for _, f := range fields[1:] {
		assignKV(f, map[string]*string{"key": &nd.KeyColumn})
	}
	if nd.KeyColumn == "" {
		nd.KeyColumn = "id"
	}
	return nd, nil
}

// parseGraphEdgeDef parses "EDGE Type(from=Label,to=Label,table=t,src=c,dst=c[,cost=c][,time=c])".
func parseGraphEdgeDef(part string) (ast.GraphEdgeDef, error) {
	rest := strings.TrimSpace(part[len("EDGE"):])
	paren := strings.IndexByte(rest, '(')
	if paren < 0 {
		return ast.GraphEdgeDef{}, errs.ErrSyntax.New("malformed EDGE definition: " + part)
	}
	etype := strings.TrimSpace(rest[:paren])
	body := strings.TrimSuffix(strings.TrimSpace(rest[paren+1:]), ")")
	ed := ast.GraphEdgeDef{Type: etype}
	kvs := map[string]*string{
		"from": &ed.From, "to": &ed.To, "table": &ed.Table,
		"src": &ed.SrcColumn, "dst": &ed.DstColumn,
		"cost": &ed.CostColumn, "time": &ed.TimeColumn,
	}
	for _, f := range lex.SplitTopLevel(body, ',') {
		assignKV(f, kvs)
	}
	return ed, nil
}

func assignKV(field string, targets map[string]*string) {
	field = strings.TrimSpace(field)
	eq := strings.IndexByte(field, '=')
	if eq < 0 {
		return
	}
	key := strings.ToLower(strings.TrimSpace(field[:eq]))
	val := strings.TrimSpace(field[eq+1:])
	if t, ok := targets[key]; ok {
		*t = val
	}
}

func parseDrop(s *lex.Scanner) (*ast.DDL, error) {
	s.Pos += len("DROP")
	lex.SkipSpaces(s)
	obj, consumed, err := readDDLObjectWord(s)
	if err != nil {
		return nil, err
	}
	s.Pos += consumed
	lex.SkipSpaces(s)
	name, err := lex.ReadIdent(s)
	if err != nil {
		return nil, err
	}
	return &ast.DDL{Action: ast.DDLDrop, Object: obj, Name: name}, nil
}

func parseRename(s *lex.Scanner) (*ast.DDL, error) {
	s.Pos += len("RENAME")
	lex.SkipSpaces(s)
	obj, consumed, err := readDDLObjectWord(s)
	if err != nil {
		return nil, err
	}
	s.Pos += consumed
	lex.SkipSpaces(s)
	name, err := lex.ReadIdent(s)
	if err != nil {
		return nil, err
	}
	lex.SkipSpaces(s)
	if !matchKeywordAt(s.Src, s.Pos, "TO") {
		return nil, errs.ErrSyntax.New("expected TO in RENAME")
	}
	s.Pos += len("TO")
	lex.SkipSpaces(s)
	newName, err := lex.ReadIdent(s)
	if err != nil {
		return nil, err
	}
	return &ast.DDL{Action: ast.DDLRename, Object: obj, Name: name, NewName: newName}, nil
}

func readDDLObjectWord(s *lex.Scanner) (ast.DDLObject, int, error) {
	for word, obj := range ddlObjectWords {
		if matchKeywordAt(s.Src, s.Pos, word) {
			return obj, len(word), nil
		}
	}
	if matchKeywordAt(s.Src, s.Pos, "TIME") {
		rest := s.Pos + len("TIME")
		skip := skipSpacesLen(s.Src, rest)
		if matchKeywordAt(s.Src, rest+skip, "TABLE") {
			return ast.DDLTimeTable, skip + len("TIME") + len("TABLE"), nil
		}
	}
	return 0, 0, errs.ErrSyntax.New("unsupported DDL object" + "\n" + lex.CaretSnippet(string(s.Src), s.Pos))
}
