// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package qipc

import "iter"

// Paginate yields successive pages of pageSize rows from a select query.
// Iteration stops at the first short or empty page, or on error (delivered
// as the final pair with a nil page).
func Paginate(s *Session, q *SelectQuery, pageSize int) iter.Seq2[*ResultSet, error] {
	return func(yield func(*ResultSet, error) bool) {
		for page := 0; ; page++ {
			paged := q.Offset(page * pageSize).Limit(pageSize)
			v, err := s.Exec(paged)
			if err != nil {
				yield(nil, err)
				return
			}
			rs, ok := v.(*ResultSet)
			if !ok || rs.Len() == 0 {
				return
			}
			if !yield(rs, nil) {
				return
			}
			if rs.Len() < pageSize {
				return
			}
		}
	}
}
