// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package qipc

import (
	"fmt"
	"strings"
)

// Join builders for the four q join operators. Each compiles to the server
// form and binds results to the left model.

func backtickJoin(cols []string) string {
	var b strings.Builder
	for _, c := range cols {
		b.WriteByte('`')
		b.WriteString(c)
	}
	return b.String()
}

// AsOfJoin matches each left row to the greatest right row whose key is <=
// the left key: aj[`c1`c2;L;R].
type AsOfJoin struct {
	On    []string
	Left  *Model
	Right *Model
}

// AJ builds an as-of join. The last on-column is the temporal one.
func AJ(on []string, left, right *Model) *AsOfJoin {
	return &AsOfJoin{On: on, Left: left, Right: right}
}

func (j *AsOfJoin) Compile() string {
	return "aj[" + backtickJoin(j.On) + ";" + j.Left.name + ";" + j.Right.name + "]"
}

// BoundModel returns the left model.
func (j *AsOfJoin) BoundModel() *Model { return j.Left }

func (j *AsOfJoin) String() string { return j.Compile() }

// LeftJoin keys the right table on the join columns and left-joins:
// L lj `c1`c2 xkey R.
type LeftJoin struct {
	On    []string
	Left  *Model
	Right *Model
}

// LJ builds a left join.
func LJ(on []string, left, right *Model) *LeftJoin {
	return &LeftJoin{On: on, Left: left, Right: right}
}

func (j *LeftJoin) Compile() string {
	return j.Left.name + " lj " + backtickJoin(j.On) + " xkey " + j.Right.name
}

// BoundModel returns the left model.
func (j *LeftJoin) BoundModel() *Model { return j.Left }

func (j *LeftJoin) String() string { return j.Compile() }

// InnerJoin keys the right table on the join columns and inner-joins:
// L ij `c1`c2 xkey R.
type InnerJoin struct {
	On    []string
	Left  *Model
	Right *Model
}

// IJ builds an inner join.
func IJ(on []string, left, right *Model) *InnerJoin {
	return &InnerJoin{On: on, Left: left, Right: right}
}

func (j *InnerJoin) Compile() string {
	return j.Left.name + " ij " + backtickJoin(j.On) + " xkey " + j.Right.name
}

// BoundModel returns the left model.
func (j *InnerJoin) BoundModel() *Model { return j.Left }

func (j *InnerJoin) String() string { return j.Compile() }

// WindowAgg pairs an aggregate function with a right-side column for a
// window join.
type WindowAgg struct {
	Fn  string
	Col string
}

// WindowJoin aggregates right-side values within a per-row time window:
// wj[windows;`c1`c2;L;(R;(f1;`v1);(f2;`v2);...)].
type WindowJoin struct {
	Lo, Hi int64
	On     []string
	Left   *Model
	Right  *Model
	Aggs   []WindowAgg
}

// WJ builds a window join. The window is lo..hi nanoseconds around the left
// row's time column (the last on-column).
func WJ(lo, hi int64, on []string, left, right *Model, aggs ...WindowAgg) *WindowJoin {
	return &WindowJoin{Lo: lo, Hi: hi, On: on, Left: left, Right: right, Aggs: aggs}
}

func (j *WindowJoin) Compile() string {
	timeCol := j.On[len(j.On)-1]
	var aggs strings.Builder
	for _, a := range j.Aggs {
		aggs.WriteString(fmt.Sprintf(";(%s;`%s)", a.Fn, a.Col))
	}
	return fmt.Sprintf("wj[%d %d+%s.%s;%s;%s;(%s%s)]",
		j.Lo, j.Hi, j.Left.name, timeCol,
		backtickJoin(j.On), j.Left.name, j.Right.name, aggs.String())
}

// BoundModel returns the left model.
func (j *WindowJoin) BoundModel() *Model { return j.Left }

func (j *WindowJoin) String() string { return j.Compile() }
