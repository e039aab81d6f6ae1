// Package dateformat renders timestamps the way Colombian operators read them:
// Spanish names, America/Bogota wall time, no seconds.
package dateformat

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

// Bogota is America/Bogota, falling back to a fixed UTC-5 (Colombia has no DST).
var Bogota = loadBogota()

func loadBogota() *time.Location {
	if loc, err := time.LoadLocation("America/Bogota"); err == nil {
		return loc
	}
	return time.FixedZone("COT", -5*60*60)
}

var (
	weekdays    = [...]string{"domingo", "lunes", "martes", "miércoles", "jueves", "viernes", "sábado"}
	months      = [...]string{"enero", "febrero", "marzo", "abril", "mayo", "junio", "julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre"}
	monthsAbbr  = [...]string{"ene", "feb", "mar", "abr", "may", "jun", "jul", "ago", "sept", "oct", "nov", "dic"}
	ymdKeyRegex = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
)

var layouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Parse accepts the timestamp shapes the accounting backend returns. Values
// without an offset are read as UTC.
func Parse(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms), true
	}
	return time.Time{}, false
}

func clock(t time.Time) string {
	h := t.Hour()
	suffix := "a. m."
	if h >= 12 {
		suffix = "p. m."
	}
	h12 := h % 12
	if h12 == 0 {
		h12 = 12
	}
	return fmt.Sprintf("%02d:%02d %s", h12, t.Minute(), suffix)
}

// DateTime renders "martes, 9 de septiembre de 2025, 10:30 a. m.".
func DateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	t = t.In(Bogota)
	return fmt.Sprintf("%s, %d de %s de %d, %s", weekdays[t.Weekday()], t.Day(), months[t.Month()-1], t.Year(), clock(t))
}

// DateTimeAbbr renders "martes, 9 de sept del 2025, 10:30 a. m.".
func DateTimeAbbr(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return DateAbbr(t) + ", " + clock(t.In(Bogota))
}

// DateAbbr renders "martes, 9 de sept del 2025".
func DateAbbr(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	t = t.In(Bogota)
	return weekdays[t.Weekday()] + ", " + DateOnly(t)
}

// DateOnly renders "9 de sept del 2025".
func DateOnly(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	t = t.In(Bogota)
	return fmt.Sprintf("%d de %s del %d", t.Day(), monthsAbbr[t.Month()-1], t.Year())
}

// YMDKey is the Bogota calendar day of t as "2006-01-02".
func YMDKey(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(Bogota).Format("2006-01-02")
}

// IsToday and IsYesterday compare Bogota calendar days against now.
func IsToday(t, now time.Time) bool {
	return !t.IsZero() && YMDKey(t) == YMDKey(now)
}

func IsYesterday(t, now time.Time) bool {
	if t.IsZero() {
		return false
	}
	n := now.In(Bogota)
	yesterday := time.Date(n.Year(), n.Month(), n.Day()-1, 12, 0, 0, 0, Bogota)
	return YMDKey(t) == YMDKey(yesterday)
}

// FromYMDKey renders a "2006-01-02" key as "9 de sept del 2025" without any
// timezone conversion; "" for malformed keys.
func FromYMDKey(key string) string {
	m := ymdKeyRegex.FindStringSubmatch(key)
	if m == nil {
		return ""
	}
	y, _ := strconv.Atoi(m[1])
	mo, _ := strconv.Atoi(m[2])
	d, _ := strconv.Atoi(m[3])
	if mo < 1 || mo > 12 {
		return ""
	}
	return fmt.Sprintf("%d de %s del %d", d, monthsAbbr[mo-1], y)
}
