package racecard

import (
	"database/sql"
	"strconv"
	"strings"
	"time"
)

// DeriveFeatures computes the cross-record features of a starter from its
// own fields, its form slots and the race it runs in
func DeriveFeatures(s Starter, race Race) Features {
	f := Features{
		AvgPlaceLast5:      avgPlace(s.Form),
		VenueRepeat:        venueRepeat(s.Form, s.Meeting.Venue),
		TrainerJockeyCombo: s.Trainer + ComboSeparator + s.Jockey,
	}

	last, ok := s.Form.Latest()
	if !ok {
		return f
	}

	if days, ok := DaysSince(s.Meeting.Date, last.Date); ok {
		f.DaysSinceLastRun = sql.Null[int]{V: days, Valid: true}
	}
	f.DistanceDiffM = sql.Null[int]{V: race.Distance - last.Distance, Valid: true}
	if s.WeightKg.Valid && last.Weight > 0 {
		f.WeightDiffKg = sql.Null[float64]{V: round(s.WeightKg.V-last.Weight, 1), Valid: true}
	}
	if s.Jockey != "" {
		change := 0
		if last.Jockey != s.Jockey {
			change = 1
		}
		f.JockeyChange = sql.Null[int]{V: change, Valid: true}
	}
	return f
}

// DaysSince returns the days between the meeting date and a "DD.MM" form
// date. The form year is the meeting year when its month is not after the
// meeting month, otherwise the year before. Gaps of more than about a year
// are therefore mis-dated.
func DaysSince(meetingDate, dayMonth string) (int, bool) {
	meeting, err := ParseMeetingDate(meetingDate)
	if err != nil {
		return 0, false
	}
	day, month, ok := splitDayMonth(dayMonth)
	if !ok {
		return 0, false
	}

	year := meeting.Year()
	if month > int(meeting.Month()) {
		year--
	}
	last := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// reject dates time.Date would normalise, e.g. 31.02
	if last.Day() != day || int(last.Month()) != month {
		return 0, false
	}
	return int(meeting.Sub(last).Hours() / 24), true
}

func splitDayMonth(s string) (int, int, bool) {
	dd, mm, found := strings.Cut(strings.TrimSpace(s), ".")
	if !found {
		return 0, 0, false
	}
	day, err1 := strconv.Atoi(dd)
	month, err2 := strconv.Atoi(strings.TrimSuffix(mm, "."))
	if err1 != nil || err2 != nil || month < 1 || month > 12 || day < 1 || day > 31 {
		return 0, 0, false
	}
	return day, month, true
}

// avgPlace averages the placings below the unplaced sentinel, rounded to 2
// places; invalid when there are none
func avgPlace(h FormHistory) sql.Null[float64] {
	sum, n := 0, 0
	for _, e := range h.Entries() {
		if e.Unplaced() {
			continue
		}
		sum += e.Place
		n++
	}
	if n == 0 {
		return sql.Null[float64]{}
	}
	return sql.Null[float64]{V: round(float64(sum)/float64(n), 2), Valid: true}
}

func venueRepeat(h FormHistory, venue string) int {
	if venue == "" {
		return 0
	}
	for _, e := range h.Entries() {
		if e.Venue == venue {
			return 1
		}
	}
	return 0
}
