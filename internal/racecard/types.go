// Package racecard turns the page-extracted text of a race-card document
// into flat per-starter records with derived form features.
//
// The pipeline is MetaExtractor → RaceSegmenter → StarterSegmenter →
// starter fields, recent form and derived features per starter, followed by
// a single field-size backfill over every starter of the document.
package racecard

import "database/sql"

// MeetingMeta holds the meeting-level header fields
type MeetingMeta struct {
	Date  string
	Venue string
}

// Race holds the header fields of one race
type Race struct {
	Number    int
	Time      string
	Distance  int
	Prize     int
	Surface   string
	Name      string
	FieldSize int
}

// RaceContext is everything a starter needs to know about its race and meeting
type RaceContext struct {
	Meeting MeetingMeta
	Race    Race
}

// YearStats is one tracked year's aggregate block. Defaulted is set when the
// block was not found and the zero values were applied.
type YearStats struct {
	Year      int
	Starts    int
	Wins      int
	Places    int
	Prize     int
	WinPct    float64
	PlacePct  float64
	Defaulted bool
}

// Career aggregates both tracked years
type Career struct {
	TotalStarts int
	TotalWins   int
	WinPct      float64
	// RoiApprox is prize money per start. It is a proxy only: the layout
	// carries no historical odds, so no true return on stake can be computed.
	RoiApprox float64
}

// FormEntry is one prior race of a starter
type FormEntry struct {
	Date     string
	Venue    string
	Place    int
	Weight   float64
	Distance int
	Prize    int
	Odds     float64
	Jockey   string
}

// Unplaced reports whether the entry carries the unplaced sentinel
func (f FormEntry) Unplaced() bool {
	return f.Place >= UnplacedPlace
}

// FormHistory is the fixed set of recent-form slots, newest first. Slots
// beyond the entries found are invalid, never omitted.
type FormHistory [FormSlots]sql.Null[FormEntry]

// Entries returns the filled slots in order
func (h FormHistory) Entries() []FormEntry {
	var out []FormEntry
	for _, slot := range h {
		if slot.Valid {
			out = append(out, slot.V)
		}
	}
	return out
}

// Latest returns the most recent entry, if any
func (h FormHistory) Latest() (FormEntry, bool) {
	return h[0].V, h[0].Valid
}

// Features are computed from a starter, its form and its race
type Features struct {
	DaysSinceLastRun   sql.Null[int]
	AvgPlaceLast5      sql.Null[float64]
	DistanceDiffM      sql.Null[int]
	WeightDiffKg       sql.Null[float64]
	VenueRepeat        int
	JockeyChange       sql.Null[int]
	TrainerJockeyCombo string
}

// Starter is one runner with everything extracted and derived for it
type Starter struct {
	Meeting MeetingMeta
	Race    Race

	StartNumber int
	Remark      string
	HorseName   string
	Age         sql.Null[int]
	Gender      string
	Color       string
	Sire        string
	Dam         string

	Trainer string
	Owner   string
	Breeder string
	Jockey  string

	BoxNumber       sql.Null[int]
	WeightKg        sql.Null[float64]
	MorningLineOdds sql.Null[float64]

	Years  [2]YearStats
	Career Career

	Form     FormHistory
	Features Features

	// Defaults lists the fields that fell back to their default value
	Defaults []string
}

// Document is the extraction result of one race-card text
type Document struct {
	Meta     MeetingMeta
	Races    []Race
	Starters []Starter
}
