package decoder

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"tirecheck/models"
)

// Date codes are standalone digit groups. A 4 digit group always wins over a
// 3 digit one, so stray trailing numbers in OCR text are not read as dates.
var (
	dateCode4Pattern = regexp.MustCompile(`\b\d{4}\b`)
	dateCode3Pattern = regexp.MustCompile(`\b\d{3}\b`)
)

// EmptyDOT is the sentinel for an unreadable DOT code.
func EmptyDOT(raw string) models.DotCodeInfo {
	return models.DotCodeInfo{Raw: raw, AgeStatus: models.AgeUnknown}
}

// DecodeDOT reads the manufacture week/year from a DOT marking and computes
// the tire age relative to now. Four digit codes are WWYY (2000 onwards);
// three digit codes are WWY from the 1990s and decode with reduced confidence.
func DecodeDOT(r TextReading, now time.Time) models.DotCodeInfo {
	raw := strings.TrimSpace(r.Text)
	code := dateCode(raw)
	if code == "" {
		return EmptyDOT(raw)
	}

	week, _ := strconv.Atoi(code[:2])
	yy, _ := strconv.Atoi(code[2:])
	conf := clampUnit(r.Confidence)
	var year int
	if len(code) == 4 {
		year = 2000 + yy
	} else {
		year = 1990 + yy
		conf *= 0.8
	}
	if week < 1 || week > 53 {
		return EmptyDOT(raw)
	}

	made := isoWeekStart(year, week)
	if _, w := made.ISOWeek(); w != week || made.After(now) {
		return EmptyDOT(raw)
	}

	age := monthsBetween(made, now)
	return models.DotCodeInfo{
		Raw:            raw,
		Week:           week,
		Year:           year,
		ManufacturedAt: &made,
		AgeInMonths:    age,
		AgeStatus:      models.AgeStatusForMonths(age),
		Confidence:     conf,
	}
}

func dateCode(raw string) string {
	for _, re := range []*regexp.Regexp{dateCode4Pattern, dateCode3Pattern} {
		if groups := re.FindAllString(raw, -1); len(groups) > 0 {
			return groups[len(groups)-1]
		}
	}
	return ""
}

// isoWeekStart returns the Monday of ISO week w in year y (UTC).
func isoWeekStart(y, w int) time.Time {
	jan4 := time.Date(y, time.January, 4, 0, 0, 0, 0, time.UTC)
	offset := (int(jan4.Weekday()) + 6) % 7
	return jan4.AddDate(0, 0, -offset+(w-1)*7)
}

func monthsBetween(from, to time.Time) int {
	to = to.UTC()
	months := (to.Year()-from.Year())*12 + int(to.Month()-from.Month())
	if to.Day() < from.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}
