package racecard

import (
	"database/sql"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Extractor runs the per-document pipeline for a fixed pair of tracked years
type Extractor struct {
	years [2]int
	// fallbackDate is used when the document header carries no date
	fallbackDate string
}

// Option configures an Extractor
type Option func(*Extractor)

// WithFallbackDate sets the meeting date used when the header has none
func WithFallbackDate(date string) Option {
	return func(e *Extractor) {
		e.fallbackDate = date
	}
}

// DefaultYears are the tracked statistic years when none are configured
var DefaultYears = [2]int{2025, 2024}

// NewExtractor creates an extractor tracking the two given years, most
// recent first
func NewExtractor(years [2]int, opts ...Option) *Extractor {
	e := &Extractor{years: years}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Years returns the tracked years
func (e *Extractor) Years() [2]int {
	return e.years
}

// ExtractStarter pulls every field of one starter segment and derives its
// features. Each lookup is independent; a miss leaves the field at its
// default and records the field name in Starter.Defaults.
func (e *Extractor) ExtractStarter(seg StarterSegment, rc RaceContext) Starter {
	text := seg.Text
	s := Starter{
		Meeting:     rc.Meeting,
		Race:        rc.Race,
		StartNumber: seg.StartNumber,
		Remark:      seg.Remark,
		BoxNumber:   sql.Null[int]{V: seg.BoxNumber, Valid: true},
	}

	if m := morningLinePattern.FindStringSubmatch(text); m != nil {
		if odds, ok := parseDecimal(m[1]); ok {
			s.MorningLineOdds = sql.Null[float64]{V: odds, Valid: true}
		}
	}
	if !s.MorningLineOdds.Valid {
		s.defaulted("ml_odds")
	}

	if m := weightPattern.FindStringSubmatch(text); m != nil {
		if w, ok := parseDecimal(m[1]); ok {
			s.WeightKg = sql.Null[float64]{V: w, Valid: true}
		}
	}
	if !s.WeightKg.Valid {
		s.defaulted("weight_kg")
	}

	if m := horseNamePattern.FindStringSubmatch(text); m != nil && !strings.Contains(m[1], ":") {
		s.HorseName = m[1]
	} else {
		s.defaulted("horse_name")
	}

	if m := pedigreePattern.FindStringSubmatch(text); m != nil {
		age, _ := strconv.Atoi(m[1])
		s.Age = sql.Null[int]{V: age, Valid: true}
		s.Color = strings.TrimSuffix(m[2], ".")
		s.Gender = m[3]
		s.Sire = strings.TrimSpace(m[4])
		s.Dam = strings.TrimSpace(m[5])
	} else {
		s.defaulted("pedigree")
	}

	s.Trainer = s.labelled(trainerPattern, text, "trainer")
	s.Owner = s.labelled(ownerPattern, text, "owner")
	s.Breeder = s.labelled(breederPattern, text, "breeder")
	s.Jockey = extractJockey(text)

	for i, year := range e.years {
		s.Years[i] = extractYearStats(text, year)
		if s.Years[i].Defaulted {
			s.defaulted("stats_" + strconv.Itoa(year))
		}
	}
	s.Career = careerFrom(s.Years)

	hist := ExtractForm(text, rc.Meeting.meetingDay())
	s.Form = hist.Slots
	if s.Jockey == "" && hist.CurrentJockey != "" {
		s.Jockey = hist.CurrentJockey
	}
	if s.Jockey == "" {
		s.defaulted("jockey")
	}

	s.Features = DeriveFeatures(s, rc.Race)
	return s
}

func (s *Starter) defaulted(field string) {
	s.Defaults = append(s.Defaults, field)
}

func (s *Starter) labelled(pattern *regexp.Regexp, text, field string) string {
	if m := pattern.FindStringSubmatch(text); m != nil && m[1] != "" {
		return m[1]
	}
	s.defaulted(field)
	return ""
}

// extractJockey returns the last non-empty line between the breeder line
// and the first year-statistics line
func extractJockey(text string) string {
	b := breederPattern.FindStringIndex(text)
	if b == nil {
		return ""
	}
	rest := text[b[1]:]
	if st := yearStatsPattern.FindStringIndex(rest); st != nil {
		rest = rest[:st[0]]
	} else if nl := strings.IndexByte(strings.TrimPrefix(rest, "\n"), '\n'); nl >= 0 {
		// no statistics block: only the line right after the breeder
		rest = strings.TrimPrefix(rest, "\n")[:nl]
	}

	lines := strings.Split(rest, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" || strings.Contains(line, ":") || formEntryPattern.MatchString(line) {
			continue
		}
		if line[0] >= '0' && line[0] <= '9' {
			continue
		}
		return line
	}
	return ""
}

// extractYearStats finds the statistics block whose year label equals year.
// A missing block yields zeros, never NaN rates.
func extractYearStats(text string, year int) YearStats {
	label := strconv.Itoa(year)
	for _, m := range yearStatsPattern.FindAllStringSubmatch(text, -1) {
		if m[1] != label {
			continue
		}
		ys := YearStats{Year: year}
		ys.Starts, _ = strconv.Atoi(m[2])
		ys.Wins, _ = strconv.Atoi(m[3])
		ys.Places, _ = strconv.Atoi(m[4])
		ys.Prize = parseAmount(m[5])
		ys.WinPct = ratio(ys.Wins, ys.Starts, 4)
		ys.PlacePct = ratio(ys.Places, ys.Starts, 4)
		return ys
	}
	return YearStats{Year: year, Defaulted: true}
}

func careerFrom(years [2]YearStats) Career {
	c := Career{}
	prize := 0
	for _, y := range years {
		c.TotalStarts += y.Starts
		c.TotalWins += y.Wins
		prize += y.Prize
	}
	c.WinPct = ratio(c.TotalWins, c.TotalStarts, 4)
	c.RoiApprox = ratio(prize, c.TotalStarts, 2)
	return c
}

// ratio divides num by den rounded to the given places, 0 when den is 0
func ratio(num, den, places int) float64 {
	if den == 0 {
		return 0
	}
	return round(float64(num)/float64(den), places)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
