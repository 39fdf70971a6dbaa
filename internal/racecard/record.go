package racecard

import (
	"database/sql"
	"fmt"
	"strconv"
)

// Record is one flat output row. Values line up with Schema.Columns; a nil
// value is absent and serializes as an empty field.
type Record []any

// Kind is the value type of a column
type Kind int

const (
	KindText Kind = iota
	KindInt
	KindReal
)

// Schema is the fixed column layout of the output rows. Year-dependent
// columns carry the tracked year in their name.
type Schema struct {
	years   [2]int
	columns []string
	kinds   []Kind
}

type column struct {
	name string
	kind Kind
}

var (
	meetingColumns = []column{
		{"meeting_date", KindText}, {"venue", KindText}, {"race_nr", KindInt}, {"race_time", KindText},
		{"race_name", KindText}, {"distance_m", KindInt}, {"prize_eur", KindInt}, {"surface", KindText},
		{"field_size", KindInt},
	}
	starterColumns = []column{
		{"start_nr", KindInt}, {"remark", KindText}, {"horse_name", KindText}, {"age", KindInt},
		{"gender", KindText}, {"color", KindText}, {"sire", KindText}, {"dam", KindText},
		{"trainer", KindText}, {"owner", KindText}, {"breeder", KindText}, {"jockey", KindText},
		{"weight_kg", KindReal}, {"box_nr", KindInt}, {"ml_odds", KindReal},
	}
	yearColumns = []column{
		{"starts", KindInt}, {"wins", KindInt}, {"places", KindInt}, {"prize", KindInt},
		{"win_pct", KindReal}, {"place_pct", KindReal},
	}
	careerColumns = []column{
		{"total_starts", KindInt}, {"total_wins", KindInt}, {"career_win_pct", KindReal}, {"career_roi_approx", KindReal},
	}
	formColumns = []column{
		{"date", KindText}, {"venue", KindText}, {"place", KindInt}, {"weight", KindReal},
		{"distance", KindInt}, {"prize", KindInt}, {"odds", KindReal}, {"jockey", KindText},
	}
	featureColumns = []column{
		{"days_since_last_run", KindInt}, {"avg_place_last5", KindReal}, {"distance_diff_m", KindInt},
		{"weight_diff_kg", KindReal}, {"venue_repeat", KindInt}, {"jockey_change", KindInt},
		{"trainer_jockey_combo", KindText},
	}
)

// NewSchema builds the column layout for the given tracked years
func NewSchema(years [2]int) Schema {
	s := Schema{years: years}
	add := func(format string, arg int, cols []column) {
		for _, c := range cols {
			name := c.name
			if format != "" {
				name = fmt.Sprintf(format, arg, c.name)
			}
			s.columns = append(s.columns, name)
			s.kinds = append(s.kinds, c.kind)
		}
	}

	add("", 0, meetingColumns)
	add("", 0, starterColumns)
	for _, y := range years {
		for _, c := range yearColumns {
			s.columns = append(s.columns, fmt.Sprintf("%s_%d", c.name, y))
			s.kinds = append(s.kinds, c.kind)
		}
	}
	add("", 0, careerColumns)
	for i := 1; i <= FormSlots; i++ {
		add("r%d_%s", i, formColumns)
	}
	add("", 0, featureColumns)
	return s
}

// Columns returns the ordered column names
func (s Schema) Columns() []string {
	return append([]string(nil), s.columns...)
}

// Kinds returns the value type of each column, aligned with Columns
func (s Schema) Kinds() []Kind {
	return append([]Kind(nil), s.kinds...)
}

// Years returns the tracked years the schema was built for
func (s Schema) Years() [2]int {
	return s.years
}

// Record flattens a starter into a row in column order
func (s Schema) Record(st Starter) Record {
	r := make(Record, 0, len(s.columns))
	r = append(r,
		st.Meeting.Date, st.Meeting.Venue, st.Race.Number, st.Race.Time, st.Race.Name,
		st.Race.Distance, st.Race.Prize, st.Race.Surface, st.Race.FieldSize,
	)
	r = append(r,
		st.StartNumber, st.Remark, st.HorseName, nullable(st.Age), st.Gender, st.Color, st.Sire, st.Dam,
		st.Trainer, st.Owner, st.Breeder, st.Jockey,
		nullable(st.WeightKg), nullable(st.BoxNumber), nullable(st.MorningLineOdds),
	)
	for _, y := range st.Years {
		r = append(r, y.Starts, y.Wins, y.Places, y.Prize, y.WinPct, y.PlacePct)
	}
	r = append(r, st.Career.TotalStarts, st.Career.TotalWins, st.Career.WinPct, st.Career.RoiApprox)
	for _, slot := range st.Form {
		if !slot.Valid {
			r = append(r, nil, nil, nil, nil, nil, nil, nil, nil)
			continue
		}
		e := slot.V
		r = append(r, e.Date, e.Venue, e.Place, e.Weight, e.Distance, e.Prize, e.Odds, e.Jockey)
	}
	f := st.Features
	r = append(r,
		nullable(f.DaysSinceLastRun), nullable(f.AvgPlaceLast5), nullable(f.DistanceDiffM),
		nullable(f.WeightDiffKg), f.VenueRepeat, nullable(f.JockeyChange), f.TrainerJockeyCombo,
	)
	return r
}

// Records flattens every starter in order
func (s Schema) Records(starters []Starter) []Record {
	out := make([]Record, 0, len(starters))
	for _, st := range starters {
		out = append(out, s.Record(st))
	}
	return out
}

// Map keys the row by column name
func (s Schema) Map(r Record) map[string]any {
	m := make(map[string]any, len(s.columns))
	for i, c := range s.columns {
		if i < len(r) {
			m[c] = r[i]
		}
	}
	return m
}

// Strings formats the row for text sinks; absent values become ""
func (r Record) Strings() []string {
	out := make([]string, len(r))
	for i, v := range r {
		out[i] = FormatValue(v)
	}
	return out
}

// FormatValue renders one record value as text
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

func nullable[T any](n sql.Null[T]) any {
	if !n.Valid {
		return nil
	}
	return n.V
}
