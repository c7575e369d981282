/*************************************************************************
 * Copyright 2026 rdr contributors
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package rdrtime implements the IET time model: conversion between IET
// microseconds and UTC, and the granule-boundary arithmetic every other
// package in this module builds on.
package rdrtime

import (
	"time"

	"github.com/bmflynn/rdr/rdrerr"
)

// IET is International Atomic Time expressed as microseconds since a
// mission-specific epoch. All granule math in this module is done in IET.
type IET int64

// leapSecondEntry pairs a UTC instant (as Unix seconds) with the number of
// leap seconds in effect from that instant forward. The table only needs
// occasional maintenance; it is process-wide read-only state, initialized
// once at package load and never mutated afterward (see design notes in
// spec.md §9).
type leapSecondEntry struct {
	utcUnix    int64
	leapOffset int64
}

// leapSeconds is intentionally small; it only needs the boundaries
// relevant to S-NPP/JPSS operations. IET measurement includes leap
// seconds but does not apply them to the civil calendar computation, so
// this table is consulted only when converting to/from UTC calendar
// fields, never when doing granule arithmetic directly on IET values.
var leapSeconds = []leapSecondEntry{
	{utcUnix: 63072000, leapOffset: 10},   // 1972-01-01
	{utcUnix: 78796800, leapOffset: 11},   // 1972-07-01
	{utcUnix: 94694400, leapOffset: 12},   // 1973-01-01
	{utcUnix: 126230400, leapOffset: 13},  // 1974-01-01
	{utcUnix: 157766400, leapOffset: 14},  // 1975-01-01
	{utcUnix: 189302400, leapOffset: 15},  // 1976-01-01
	{utcUnix: 220924800, leapOffset: 16},  // 1977-01-01
	{utcUnix: 252460800, leapOffset: 17},  // 1978-01-01
	{utcUnix: 283996800, leapOffset: 18},  // 1979-01-01
	{utcUnix: 315532800, leapOffset: 19},  // 1980-01-01
	{utcUnix: 362793600, leapOffset: 20},  // 1981-07-01
	{utcUnix: 394329600, leapOffset: 21},  // 1982-07-01
	{utcUnix: 425865600, leapOffset: 22},  // 1983-07-01
	{utcUnix: 489024000, leapOffset: 23},  // 1985-07-01
	{utcUnix: 567993600, leapOffset: 24},  // 1988-01-01
	{utcUnix: 631152000, leapOffset: 25},  // 1990-01-01
	{utcUnix: 662688000, leapOffset: 26},  // 1991-01-01
	{utcUnix: 709948800, leapOffset: 27},  // 1992-07-01
	{utcUnix: 741484800, leapOffset: 28},  // 1993-07-01
	{utcUnix: 773020800, leapOffset: 29},  // 1994-07-01
	{utcUnix: 820454400, leapOffset: 30},  // 1996-01-01
	{utcUnix: 867715200, leapOffset: 31},  // 1997-07-01
	{utcUnix: 915148800, leapOffset: 32},  // 1999-01-01
	{utcUnix: 1136073600, leapOffset: 33}, // 2006-01-01
	{utcUnix: 1230768000, leapOffset: 34}, // 2009-01-01
	{utcUnix: 1341100800, leapOffset: 35}, // 2012-07-01
	{utcUnix: 1435708800, leapOffset: 36}, // 2015-07-01
	{utcUnix: 1483228800, leapOffset: 37}, // 2017-01-01
}

// epochTAI1958 is 1958-01-01T00:00:00 expressed as a Unix timestamp; it is
// the mission epoch for S-NPP IET per spec.md §3.
var epochTAI1958 = time.Date(1958, 1, 1, 0, 0, 0, 0, time.UTC).Unix()

func leapOffsetFor(unixSec int64) int64 {
	var off int64
	for _, e := range leapSeconds {
		if unixSec < e.utcUnix {
			break
		}
		off = e.leapOffset
	}
	return off
}

// IETFromUTC converts a calendar UTC time to IET microseconds since the
// mission epoch (1958-01-01 TAI), including leap seconds.
func IETFromUTC(t time.Time) IET {
	t = t.UTC()
	leap := leapOffsetFor(t.Unix())
	secs := (t.Unix() - epochTAI1958) + leap
	return IET(secs*1e6 + int64(t.Nanosecond())/1000)
}

// UTCFromIET converts an IET microsecond value back to a calendar UTC time.
func UTCFromIET(iet IET) time.Time {
	us := int64(iet)
	secs := us / 1e6
	rem := us % 1e6
	if rem < 0 {
		rem += 1e6
		secs--
	}
	unix := secs + epochTAI1958
	leap := leapOffsetFor(unix)
	unix -= leap
	return time.Unix(unix, rem*1000).UTC()
}

// FormatDate renders the YYYYMMDD form used verbatim in HDF5 attributes.
func FormatDate(iet IET) string {
	return UTCFromIET(iet).Format("20060102")
}

// FormatTime renders the HHMMSS.ffffffZ form used verbatim in HDF5
// attributes.
func FormatTime(iet IET) string {
	t := UTCFromIET(iet)
	return t.Format("150405.000000") + "Z"
}

// floorDiv performs floored integer division: unlike Go's truncating `/`,
// it rounds toward negative infinity, so granule indices for IET values
// before base are negative rather than truncated toward zero.
func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// GranuleOf computes the granule index and window for an IET value given
// a product's base time and granule length, both in microseconds.
func GranuleOf(iet, base IET, granLen int64) (g int64, begin, end IET, err error) {
	if granLen <= 0 {
		return 0, 0, 0, rdrerr.New(rdrerr.Config, "granule length must be positive")
	}
	if int64(iet) < int64(base) {
		return 0, 0, 0, rdrerr.New(rdrerr.TimeBeforeEpoch, "packet IET precedes product base time")
	}
	g = floorDiv(int64(iet)-int64(base), granLen)
	begin = base + IET(g*granLen)
	end = begin + IET(granLen)
	return
}

// Mid returns the midpoint IET of a [begin, end) granule window.
func Mid(begin, end IET) IET {
	return begin + (end-begin)/2
}
