package racecard

import "strings"

// ExtractDocument runs the whole pipeline over one document's text. Missing
// headers yield an empty document, never an error.
func (e *Extractor) ExtractDocument(text string) Document {
	text = normalizeNewlines(text)

	doc := Document{Meta: ExtractMeta(text)}
	if doc.Meta.Date == "" {
		doc.Meta.Date = e.fallbackDate
	}

	for _, rs := range SegmentRaces(text) {
		doc.Races = append(doc.Races, rs.Race)
		rc := RaceContext{Meeting: doc.Meta, Race: rs.Race}
		for _, ss := range SegmentStarters(rs.Text) {
			doc.Starters = append(doc.Starters, e.ExtractStarter(ss, rc))
		}
	}

	// second pass, only after every starter of the meeting is known
	BackfillFieldSize(doc.Starters)
	backfillRaces(doc.Races, doc.Starters)
	return doc
}

var newlineReplacer = strings.NewReplacer("\r\n", "\n", "\r", "\n")

func normalizeNewlines(text string) string {
	return newlineReplacer.Replace(text)
}
