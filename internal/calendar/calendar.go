// Package calendar implements the legal-date filter: turning a
// competition window plus a weekday mask, holiday set, and vacation
// intervals into the concrete dates a match may be played on.
package calendar

import (
	"time"

	"ufolepvolley/scheduler/internal/config"
)

var weekdayNames = map[string]time.Weekday{
	"lundi":     time.Monday,
	"mardi":     time.Tuesday,
	"mercredi":  time.Wednesday,
	"jeudi":     time.Thursday,
	"vendredi":  time.Friday,
	"samedi":    time.Saturday,
	"dimanche":  time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
	"sunday":    time.Sunday,
}

// ParseWeekday converts a federation weekday name to a time.Weekday.
// Unparseable values default to Monday rather than failing; this field has
// never been validated upstream and a bad value must not kill a run.
func ParseWeekday(name string) time.Weekday {
	if wd, ok := weekdayNames[name]; ok {
		return wd
	}
	return time.Monday
}

// DefaultHolidays returns the embedded 2025-2026 French public-holiday
// table a freshly loaded Config falls back to when calendar.holidays is
// unset. The table itself lives with the config defaulting so a Config
// never depends on this package; this wrapper exists so calendar code can
// ask for the defaults under its own name.
func DefaultHolidays() []config.Date {
	return config.DefaultCalendar().Holidays
}

// DefaultVacations returns the embedded Zone B school-vacation calendar.
func DefaultVacations() []config.VacationRange {
	return config.DefaultCalendar().Vacations
}

// AllowedSet converts weekday names into the lookup set LegalDates filters
// with. An empty list means the federation default of Monday through Friday.
func AllowedSet(names []string) map[time.Weekday]bool {
	allowed := make(map[time.Weekday]bool, len(names))
	for _, w := range names {
		allowed[ParseWeekday(w)] = true
	}
	if len(allowed) == 0 {
		for _, wd := range []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday} {
			allowed[wd] = true
		}
	}
	return allowed
}

// LegalDates enumerates every date in [start, end] whose weekday is in
// AllowedSet(allowedWeekdays) (Monday through Friday when the list is
// empty) and which falls on neither a holiday
// nor inside a vacation interval. Pure and idempotent: calling it twice
// with the same arguments yields the same slice.
func LegalDates(start, end time.Time, allowedWeekdays []string, cal config.Calendar) []time.Time {
	allowed := AllowedSet(allowedWeekdays)

	holidays := make(map[time.Time]bool, len(cal.Holidays))
	for _, h := range cal.Holidays {
		holidays[h.Time] = true
	}

	var dates []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if !allowed[d.Weekday()] {
			continue
		}
		if holidays[d] {
			continue
		}
		if inVacation(d, cal.Vacations) {
			continue
		}
		dates = append(dates, d)
	}
	return dates
}

func inVacation(d time.Time, vacations []config.VacationRange) bool {
	for _, v := range vacations {
		if v.Contains(d) {
			return true
		}
	}
	return false
}
