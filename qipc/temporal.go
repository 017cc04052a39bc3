// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package qipc

import (
	"fmt"
	"math"
	"time"
)

// q epoch: 2000.01.01. All temporal kinds count from it (or from midnight).
var qEpoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

const (
	nanosPerSec int64 = 1_000_000_000
	secsPerDay  int64 = 86_400
)

// timeToTimestamp converts a time.Time to q timestamp raw nanos.
func timeToTimestamp(t time.Time) int64 {
	return t.Sub(qEpoch).Nanoseconds()
}

// timestampToTime converts q timestamp raw nanos to a time.Time.
func timestampToTime(nanos int64) time.Time {
	return qEpoch.Add(time.Duration(nanos))
}

// DateOf truncates a time.Time to a q date.
func DateOf(t time.Time) Date {
	t = t.UTC()
	days := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).Sub(qEpoch) / (24 * time.Hour)
	return Date(days)
}

// NewDate builds a q date from a calendar day.
func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// Time returns the midnight time.Time for the date.
func (d Date) Time() time.Time {
	return qEpoch.AddDate(0, 0, int(d))
}

func (d Date) String() string {
	if int32(d) == NullInt {
		return "0Nd"
	}
	return d.Time().Format("2006.01.02")
}

// MonthOf converts a time.Time to a q month.
func MonthOf(t time.Time) Month {
	t = t.UTC()
	return Month((t.Year()-2000)*12 + int(t.Month()) - 1)
}

// Time returns the first day of the month.
func (m Month) Time() time.Time {
	year := 2000 + int(m)/12
	month := time.Month(1 + int(m)%12)
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
}

func (m Month) String() string {
	if int32(m) == NullInt {
		return "0Nm"
	}
	return m.Time().Format("2006.01") + "m"
}

// MinuteOf converts a time.Time to minutes since midnight.
func MinuteOf(t time.Time) Minute {
	return Minute(t.Hour()*60 + t.Minute())
}

func (m Minute) String() string {
	if int32(m) == NullInt {
		return "0Nu"
	}
	return fmt.Sprintf("%02d:%02d", int(m)/60, int(m)%60)
}

// SecondOf converts a time.Time to seconds since midnight.
func SecondOf(t time.Time) Second {
	return Second(t.Hour()*3600 + t.Minute()*60 + t.Second())
}

func (s Second) String() string {
	if int32(s) == NullInt {
		return "0Nv"
	}
	return fmt.Sprintf("%02d:%02d:%02d", int(s)/3600, int(s)/60%60, int(s)%60)
}

// TimeOf converts a time.Time to milliseconds since midnight.
func TimeOf(t time.Time) Time {
	return Time((t.Hour()*3600+t.Minute()*60+t.Second())*1000 + t.Nanosecond()/1_000_000)
}

func (t Time) String() string {
	if int32(t) == NullInt {
		return "0Nt"
	}
	ms := int(t)
	return fmt.Sprintf("%02d:%02d:%02d.%03d", ms/3_600_000, ms/60_000%60, ms/1000%60, ms%1000)
}

// DatetimeOf converts a time.Time to fractional days since the q epoch.
func DatetimeOf(t time.Time) Datetime {
	return Datetime(float64(t.Sub(qEpoch)) / float64(24*time.Hour))
}

// Time converts fractional days back to a time.Time.
func (d Datetime) Time() time.Time {
	return qEpoch.Add(time.Duration(float64(d) * float64(24*time.Hour)))
}

func (d Datetime) String() string {
	if math.IsNaN(float64(d)) {
		return "0Nz"
	}
	return d.Time().Format("2006.01.02T15:04:05.000")
}

// timestampLiteral renders a time.Time in q timestamp literal form,
// YYYY.MM.DDDHH:MM:SS.NNNNNNNNN.
func timestampLiteral(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%sD%s.%09d",
		t.Format("2006.01.02"), t.Format("15:04:05"), t.Nanosecond())
}

// timespanLiteral renders a duration in q timespan literal form,
// [-]dDHH:MM:SS.NNNNNNNNN.
func timespanLiteral(d time.Duration) string {
	n := d.Nanoseconds()
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	days := n / (secsPerDay * nanosPerSec)
	rem := n % (secsPerDay * nanosPerSec)
	hours := rem / (3600 * nanosPerSec)
	rem %= 3600 * nanosPerSec
	mins := rem / (60 * nanosPerSec)
	rem %= 60 * nanosPerSec
	secs := rem / nanosPerSec
	nanos := rem % nanosPerSec
	return fmt.Sprintf("%s%dD%02d:%02d:%02d.%09d", sign, days, hours, mins, secs, nanos)
}
