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

// Package catalog implements the presentable system-table surface
// (information_schema/pg_catalog), view definitions, and the vector-index
// and graph sidecar metadata stores.
package catalog

import (
	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// Fixed type OIDs presented through pg_catalog.pg_type, pinned to the
// values a real PostgreSQL wire client expects (verified against the
// original implementation's catalog fixture tests, not re-derived).
const (
	OIDBool      = 16
	OIDInt8      = 20 // bigint
	OIDInt4      = 23
	OIDInt2      = 21
	OIDFloat4    = 700
	OIDFloat8    = 701
	OIDText      = 25
	OIDVarchar   = 1043
	OIDNumeric   = 1700
	OIDTimestamp = 1114
	OIDDate      = 1082
	OIDJSON      = 114
	OIDUUID      = 2950
	OIDBytea     = 17
	OIDRegclass  = 2205
	OIDRegtype   = 2206
)

// Relkind values presented through pg_catalog.pg_class.relkind.
const (
	RelkindTable    = "r"
	RelkindIndex    = "i"
	RelkindView     = "v"
	RelkindSequence = "S"
)

// Namespace OIDs for the two fixed schemas the catalog presents.
const (
	NspPgCatalog        = 11
	NspInformationSchema = 12
	NspPublic           = 2200
)

// ServerVersion is the literal string returned by pg_catalog.version().
const ServerVersion = "Clarium 1.0 (compatible with PostgreSQL wire protocol)"

// TypeNameToOID maps the canonical cast/type words the parser recognizes
// to their presented OID, used by format_type(oid, mod) and to_regtype.
var TypeNameToOID = map[string]int{
	"bool":      OIDBool,
	"int8":      OIDInt8,
	"bigint":    OIDInt8,
	"int4":      OIDInt4,
	"integer":   OIDInt4,
	"int2":      OIDInt2,
	"smallint":  OIDInt2,
	"float4":    OIDFloat4,
	"real":      OIDFloat4,
	"float8":    OIDFloat8,
	"double precision": OIDFloat8,
	"text":      OIDText,
	"varchar":   OIDVarchar,
	"numeric":   OIDNumeric,
	"timestamp": OIDTimestamp,
	"date":      OIDDate,
	"json":      OIDJSON,
	"jsonb":     OIDJSON,
	"uuid":      OIDUUID,
	"bytea":     OIDBytea,
	"regclass":  OIDRegclass,
	"regtype":   OIDRegtype,
}

// OIDToTypeName is the inverse of TypeNameToOID, used by format_type.
var OIDToTypeName = func() map[int]string {
	m := make(map[int]string, len(TypeNameToOID))
	// Prefer the canonical long-form spelling when two words share an OID.
	canonical := []string{"bool", "bigint", "integer", "smallint", "real",
		"double precision", "text", "varchar", "numeric", "timestamp",
		"date", "jsonb", "uuid", "bytea", "regclass", "regtype"}
	for _, name := range canonical {
		m[TypeNameToOID[name]] = name
	}
	return m
}()

// FormatType implements pg_catalog.format_type(oid, mod): render a type
// OID (and an optional width/precision mod, currently unused) as its
// canonical SQL spelling, or NULL (empty, ok=false) for an unknown OID.
func FormatType(oid int, mod int) (string, bool) {
	name, ok := OIDToTypeName[oid]
	return name, ok
}

// ToRegtype implements to_regtype(text): resolve a type name to its OID,
// or NULL (ok=false) if the name isn't recognized, matching spec §6's
// "unknown names resolve to NULL, never an error" contract.
func ToRegtype(name string) (int, bool) {
	oid, ok := TypeNameToOID[name]
	return oid, ok
}

// canonicalizeViewSQL best-effort reformats sql the way a real Postgres
// server does for pg_get_viewdef (the stored text is never returned
// verbatim; it round-trips through the parser's own deparser). Clarium's
// dialect extends plain SQL with BY SLICE/ROLLING BY/USING ANN and MATCH,
// none of which a Postgres-grammar parser accepts, so a parse failure
// just means the view uses one of those extensions; the raw text is
// returned unchanged in that case.
func canonicalizeViewSQL(sql string) string {
	tree, err := pg_query.Parse(sql)
	if err != nil {
		return sql
	}
	out, err := pg_query.Deparse(tree)
	if err != nil {
		return sql
	}
	return out
}
