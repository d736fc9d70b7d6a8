package pubdate

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var spanishMonths = map[string]time.Month{
	"ene": time.January,
	"feb": time.February,
	"mar": time.March,
	"abr": time.April,
	"may": time.May,
	"jun": time.June,
	"jul": time.July,
	"ago": time.August,
	"sep": time.September,
	"set": time.September,
	"oct": time.October,
	"nov": time.November,
	"dic": time.December,

	"enero":      time.January,
	"febrero":    time.February,
	"marzo":      time.March,
	"abril":      time.April,
	"mayo":       time.May,
	"junio":      time.June,
	"julio":      time.July,
	"agosto":     time.August,
	"septiembre": time.September,
	"setiembre":  time.September,
	"octubre":    time.October,
	"noviembre":  time.November,
	"diciembre":  time.December,
}

var tokenSplit = regexp.MustCompile(`[\s,./]+`)

// fillers are skipped so "12 de noviembre de 2025" reads like "12 noviembre 2025".
var fillers = map[string]bool{"de": true, "del": true}

// FromVisualText parses "<day> <month> [year]" with Spanish month names or
// abbreviations. Without a year the most recent such date not after now is
// used ("15 Dic" read in February is last December).
func FromVisualText(sig Signals, now time.Time) (time.Time, bool) {
	var parts []string
	for _, p := range tokenSplit.Split(strings.TrimSpace(sig.VisualText), -1) {
		p = strings.ToLower(p)
		if p == "" || fillers[p] {
			continue
		}
		parts = append(parts, p)
	}
	if len(parts) < 2 {
		return time.Time{}, false
	}

	day, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, false
	}
	month, ok := lookupMonth(parts[1])
	if !ok {
		return time.Time{}, false
	}

	year := now.Year()
	explicitYear := false
	if len(parts) > 2 {
		if y, err := strconv.Atoi(parts[2]); err == nil && y > 999 {
			year = y
			explicitYear = true
		}
	}

	if explicitYear {
		return calendarDate(year, int(month), day, now.Location())
	}
	// "29 Feb" may need to reach back to the last leap year
	for y := year; y > year-8; y-- {
		if candidate, ok := calendarDate(y, int(month), day, now.Location()); ok && !candidate.After(now) {
			return candidate, true
		}
	}
	return time.Time{}, false
}

func lookupMonth(token string) (time.Month, bool) {
	if m, ok := spanishMonths[token]; ok {
		return m, true
	}
	r := []rune(token)
	if len(r) < 3 {
		return 0, false
	}
	m, ok := spanishMonths[string(r[:3])]
	return m, ok
}
