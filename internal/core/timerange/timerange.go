// Package timerange は予約・勤怠・給与計算で共有する日付境界の計算をまとめます。
package timerange

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout は API で受け付ける暦日の書式です。
const DateLayout = "2006-01-02"

// ErrMalformedDate は日付文字列が解釈できない場合に返却されます。
var ErrMalformedDate = errors.New("timerange: malformed date")

// Window は両端を含む時刻範囲 [From, To] です。
type Window struct {
	From time.Time
	To   time.Time
}

// StartOfDay は t と同じ暦日の 00:00 を返します。
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// EndOfDay は t と同じ暦日の 23:59:59.999 を返します。
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1).Add(-time.Millisecond)
}

// Day は t を含む暦日全体の範囲を返します。
func Day(t time.Time) Window {
	return Window{From: StartOfDay(t), To: EndOfDay(t)}
}

// Days は start の 00:00 から end の 23:59:59.999 までの範囲を返します。
func Days(start, end time.Time) Window {
	return Window{From: StartOfDay(start), To: EndOfDay(end)}
}

// FirstOfMonth は t が属する月の初日 00:00 を返します。
func FirstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// LastOfMonth は t が属する月の最終日 00:00 を返します。
func LastOfMonth(t time.Time) time.Time {
	return FirstOfMonth(t).AddDate(0, 1, -1)
}

// Month は t が属する月全体の範囲を返します。
func Month(t time.Time) Window {
	return Days(FirstOfMonth(t), LastOfMonth(t))
}

// ParseDate は YYYY-MM-DD 形式の文字列を loc の 00:00 として解釈します。
func ParseDate(raw string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	trimmed := strings.TrimSpace(raw)
	t, err := time.ParseInLocation(DateLayout, trimmed, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedDate, raw)
	}
	return t, nil
}
