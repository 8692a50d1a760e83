package workshop

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

// Status describes where "today" sits relative to the event days.
type Status string

const (
	StatusEventDay      Status = "event-day-today"
	StatusNotYetStarted Status = "not-yet-started"
	StatusAlreadyEnded  Status = "already-ended"
	StatusBetweenDays   Status = "between-days"
)

var clockPattern = regexp.MustCompile(`(\d{1,2}):(\d{2})`)

// Context is the resolved temporal view of the dataset at one instant.
type Context struct {
	Now      time.Time
	DateText string
	TimeText string
	DateKey  string
	Status   Status
	Today    *Day
	NextDay  *Day
	NextItem *ScheduleItem
	Days     []Day
}

// LocationOrUTC loads an IANA zone, falling back to UTC when it is unknown.
func LocationOrUTC(name string) *time.Location {
	name = strings.TrimSpace(name)
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Resolve computes the temporal context for now in loc. Without a dataset or
// event days only the clock fields are set and the status is between-days.
func Resolve(now time.Time, loc *time.Location, ds *Dataset) Context {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	tc := Context{
		Now:      local,
		DateText: GermanDate(local),
		TimeText: local.Format("15:04"),
		DateKey:  local.Format(dateLayout),
	}
	if ds == nil || len(ds.Days) == 0 {
		tc.Status = StatusBetweenDays
		return tc
	}
	tc.Days = ds.Days

	if day, ok := ds.DayByDate(tc.DateKey); ok {
		tc.Status = StatusEventDay
		tc.Today = &day
		tc.NextItem = nextItem(day, local.Hour()*60+local.Minute())
		return tc
	}

	first, last := ds.FirstDay().CivilDate(), ds.LastDay().CivilDate()
	start := time.Date(first.Year(), first.Month(), first.Day(), 0, 0, 0, 0, loc)
	end := time.Date(last.Year(), last.Month(), last.Day(), 23, 59, 59, 0, loc)
	switch {
	case local.Before(start):
		tc.Status = StatusNotYetStarted
	case local.After(end):
		tc.Status = StatusAlreadyEnded
	default:
		tc.Status = StatusBetweenDays
	}

	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
	for _, d := range ds.Days {
		if !d.CivilDate().Before(today) {
			day := d
			tc.NextDay = &day
			break
		}
	}
	return tc
}

// nextItem returns the first item whose first clock time is strictly after minuteOfDay.
func nextItem(day Day, minuteOfDay int) *ScheduleItem {
	for _, item := range day.Schedule {
		minutes, ok := ItemMinutes(item)
		if !ok {
			continue
		}
		if minutes > minuteOfDay {
			found := item
			return &found
		}
	}
	return nil
}

// ItemMinutes parses the first H:MM or HH:MM occurrence in an item's time field.
func ItemMinutes(item ScheduleItem) (int, bool) {
	m := clockPattern.FindStringSubmatch(item.Time)
	if m == nil {
		return 0, false
	}
	h, _ := strconv.Atoi(m[1])
	mm, _ := strconv.Atoi(m[2])
	return h*60 + mm, true
}

var germanWeekdays = [...]string{"Sonntag", "Montag", "Dienstag", "Mittwoch", "Donnerstag", "Freitag", "Samstag"}

var germanMonths = [...]string{"Januar", "Februar", "März", "April", "Mai", "Juni", "Juli", "August", "September", "Oktober", "November", "Dezember"}

// GermanDate formats t like "Montag, 29. September 2025".
func GermanDate(t time.Time) string {
	return fmt.Sprintf("%s, %d. %s %d", germanWeekdays[t.Weekday()], t.Day(), germanMonths[t.Month()-1], t.Year())
}

// GermanWeekday returns the German weekday name of t.
func GermanWeekday(t time.Time) string {
	return germanWeekdays[t.Weekday()]
}
