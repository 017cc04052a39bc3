// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package qipc

import "strings"

// DDL generation. The q create form is
//
//	tbl:([] c1:`t1$(); c2:`t2$())
//
// and for keyed models the key columns move inside the brackets:
//
//	tbl:([k1:`t1$()] v1:`t2$())

func attrPrefix(a Attr) string {
	switch a {
	case AttrSorted:
		return "`s#"
	case AttrUnique:
		return "`u#"
	case AttrParted:
		return "`p#"
	case AttrGrouped:
		return "`g#"
	}
	return ""
}

func columnDef(f Field) string {
	prefix := attrPrefix(f.Attr)
	if f.Kind == KMixed {
		return f.Name + ":" + prefix + "()"
	}
	return f.Name + ":" + prefix + "`" + string(f.Kind.Char()) + "$()"
}

// CreateTableQ generates the q expression creating the model's table.
func CreateTableQ(m *Model) string {
	var keyParts, valParts []string
	for _, f := range m.fields {
		def := columnDef(f)
		if f.PrimaryKey {
			keyParts = append(keyParts, def)
		} else {
			valParts = append(valParts, def)
		}
	}
	keySection := "[]"
	if len(keyParts) > 0 {
		keySection = "[" + strings.Join(keyParts, "; ") + "]"
	}
	return m.name + ":(" + keySection + " " + strings.Join(valParts, "; ") + ")"
}

// DropTableQ generates the q expression deleting the model's table from the
// root namespace.
func DropTableQ(m *Model) string {
	return "delete " + m.name + " from `."
}

// TableExistsQ generates the q expression testing table existence.
func TableExistsQ(m *Model) string {
	return "`" + m.name + " in tables[]"
}

// MetaQ generates the q expression fetching table metadata.
func MetaQ(m *Model) string {
	return "meta " + m.name
}

// CountQ generates the q expression counting table rows.
func CountQ(m *Model) string {
	return "count " + m.name
}
