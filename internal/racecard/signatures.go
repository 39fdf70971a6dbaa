package racecard

import "regexp"

// SignatureVersion identifies the race-card layout the patterns below were
// written against. Bump it whenever a pattern or label changes.
const SignatureVersion = "wettstar-2026.2"

// Literal labels of the source layout
const (
	LabelBox         = "Box:"
	LabelMorningLine = "ML:"
	LabelTrainer     = "Trainer:"
	LabelOwner       = "Besitzer:"
	LabelBreeder     = "Züchter:"
	LabelRacePrice   = "Rennpreis:"

	// UnplacedToken is the place token of a form entry that finished out of
	// the placings.
	UnplacedToken = "-"

	// UnplacedPlace is the sentinel stored for UnplacedToken.
	UnplacedPlace = 99

	// FormSlots is the fixed number of recent-form slots per starter.
	FormSlots = 5

	// ComboSeparator joins trainer and jockey in the combo key.
	ComboSeparator = "|"
)

const letters = `A-Za-zÄÖÜäöüß`

var (
	// meetingHeaderPattern: "01.02.2026 - Dortmund" or "2026-02-01 - Dortmund".
	// The venue is one token, matching the form lines, so a trailing
	// "Rennen # 1" is not part of it.
	meetingHeaderPattern = regexp.MustCompile(
		`(\d{2}\.\d{2}\.\d{4}|\d{4}-\d{2}-\d{2})[ \t]*-[ \t]*([` + letters + `](?:[` + letters + `\-]*[` + letters + `])?)`)

	// raceHeaderPattern: number / time / distance / prize / surface / title,
	// one per line. The race-price label is checked separately.
	raceHeaderPattern = regexp.MustCompile(
		`(?m)^[ \t]*(\d{1,2})[ \t]*\n` +
			`[ \t]*(\d{1,2}:\d{2})[ \t]*\n` +
			`[ \t]*(\d{3,5})[ \t]*m[ \t]*\n` +
			`[ \t]*(\d{1,3}(?:\.\d{3})*(?:,\d{2})?)[ \t]*€[ \t]*\n` +
			`[ \t]*([^\n]+?)[ \t]*\n` +
			`[ \t]*([^\n]+?)[ \t]*$`)

	// starterHeaderPattern: "3" / optional "N" / "Box: 5"
	starterHeaderPattern = regexp.MustCompile(
		`(?m)^[ \t]*(\d{1,2})[ \t]*\n(?:[ \t]*([A-Z])[ \t]*\n)?[ \t]*Box:[ \t]*(\d{1,2})\b`)

	morningLinePattern = regexp.MustCompile(`(?m)^[ \t]*ML:[ \t]*(\d+(?:[.,]\d+)?)`)
	weightPattern      = regexp.MustCompile(`(?m)^[ \t]*(\d{2}[.,]\d{1,2})[ \t]+Besitzer:`)
	pedigreePattern    = regexp.MustCompile(
		`(?m)^[ \t]*(\d{1,2})j\.[ \t]+(\S+)[ \t]+([A-Z])[ \t]+\(([^)]+?)[ \t]+-[ \t]+([^)]+?)\)`)
	horseNamePattern = regexp.MustCompile(
		`(?m)^[ \t]*([A-ZÄÖÜ][^\n]*?)[ \t]*\n[ \t]*\d{1,2}j\.`)

	// yearStatsPattern: "2025: 7 Starts - 2 Siege - 3 Plätze 12.400 €"
	yearStatsPattern = regexp.MustCompile(
		`(\d{4}):[ \t]*(\d+)[ \t]+Starts?[ \t]*-[ \t]*(\d+)[ \t]+Sieg(?:e)?[ \t]*-[ \t]*(\d+)[ \t]+(?:Plätze|Platz)[ \t]*(\d{1,3}(?:\.\d{3})*(?:,\d{2})?)[ \t]*€`)

	// formEntryPattern is the fixed part of a recent-form tuple; the jockey
	// text that follows runs to the next tuple or end of line.
	// A date glued to a longer number ("128.12") is not a tuple start.
	formEntryPattern = regexp.MustCompile(
		`(?:^|[^\d.])(\d{2})\.(\d{2})[ \t]+([` + letters + `][` + letters + `\-]*)[ \t]+` +
			`(\d{1,2}|-)[ \t]+` +
			`(\d{2}[.,]\d{1,2})[ \t]+` +
			`(\d{3,5})[ \t]+` +
			`(\d{1,3}(?:\.\d{3})*)[ \t]+` +
			`(\d+,\d+)`)
)

func labelPattern(label string) *regexp.Regexp {
	return regexp.MustCompile(`(?m)` + regexp.QuoteMeta(label) + `[ \t]*([^\n]*?)[ \t]*$`)
}

var (
	trainerPattern = labelPattern(LabelTrainer)
	ownerPattern   = labelPattern(LabelOwner)
	breederPattern = labelPattern(LabelBreeder)
)
