package racecard

import (
	"database/sql"
	"strconv"
	"strings"
)

// FormResult is the outcome of scanning a starter segment for form tuples
type FormResult struct {
	Slots FormHistory
	// CurrentJockey is the jockey of a tuple dated on the meeting day. That
	// tuple describes today's race and is not part of the history.
	CurrentJockey string
}

// ExtractForm scans text from the start for recent-form tuples and keeps at
// most FormSlots of them, newest first. meetingDay is the "DD.MM" of the
// meeting; pass "" when unknown.
func ExtractForm(text, meetingDay string) FormResult {
	var res FormResult
	locs := formEntryPattern.FindAllStringSubmatchIndex(text, -1)

	n := 0
	for i, loc := range locs {
		if n == FormSlots {
			break
		}
		group := func(k int) string { return text[loc[2*k]:loc[2*k+1]] }

		// the jockey runs to the next tuple, the end of line or end of text
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		rest := text[loc[1]:end]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[:nl]
		}
		jockey := strings.Join(strings.Fields(rest), " ")

		date := group(1) + "." + group(2)
		if meetingDay != "" && date == meetingDay {
			if res.CurrentJockey == "" {
				res.CurrentJockey = jockey
			}
			continue
		}

		entry := FormEntry{
			Date:   date,
			Venue:  group(3),
			Place:  parsePlace(group(4)),
			Jockey: jockey,
		}
		entry.Weight, _ = parseDecimal(group(5))
		entry.Distance, _ = strconv.Atoi(group(6))
		entry.Prize = parseAmount(group(7))
		entry.Odds, _ = parseDecimal(group(8))

		res.Slots[n] = sql.Null[FormEntry]{V: entry, Valid: true}
		n++
	}
	return res
}

func parsePlace(token string) int {
	if token == UnplacedToken {
		return UnplacedPlace
	}
	p, err := strconv.Atoi(token)
	if err != nil || p <= 0 {
		return UnplacedPlace
	}
	return p
}
