package racecard

import (
	"fmt"
	"strings"
	"time"
)

// Accepted textual forms of the meeting date
const (
	dateLayoutDotted = "02.01.2006"
	dateLayoutISO    = "2006-01-02"
)

// ExtractMeta pulls the meeting date and venue from the document header.
// Both fields are empty when no header is found.
func ExtractMeta(text string) MeetingMeta {
	m := meetingHeaderPattern.FindStringSubmatch(text)
	if m == nil {
		return MeetingMeta{}
	}
	return MeetingMeta{
		Date:  m[1],
		Venue: strings.TrimSpace(m[2]),
	}
}

// ParseMeetingDate parses a meeting date in either accepted form
func ParseMeetingDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{dateLayoutISO, dateLayoutDotted} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised meeting date %q", s)
}

// meetingDay returns the "DD.MM" form of the meeting date, or "" when the
// date does not parse
func (m MeetingMeta) meetingDay() string {
	t, err := ParseMeetingDate(m.Date)
	if err != nil {
		return ""
	}
	return t.Format("02.01")
}
