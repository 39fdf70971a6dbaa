package racecard

import (
	"regexp"
	"strconv"
	"strings"
)

// RaceSegment is one race header and the text it owns
type RaceSegment struct {
	Race  Race
	Start int
	End   int
	Text  string
}

// StarterSegment is one starter header and the text it owns
type StarterSegment struct {
	StartNumber int
	Remark      string
	BoxNumber   int
	Start       int
	End         int
	Text        string
}

// anchor is a header match accepted by a segmenter
type anchor struct {
	start  int
	groups []string
}

// slicer walks accepted anchors in order and cuts the text between them.
// Each segment runs from its anchor to the next anchor or the end of text,
// so segments are contiguous, never overlap, and text before the first
// anchor is dropped.
type slicer struct {
	text    string
	anchors []anchor
	pos     int
}

func (s *slicer) next() (anchor, int, bool) {
	if s.pos >= len(s.anchors) {
		return anchor{}, 0, false
	}
	cur := s.anchors[s.pos]
	s.pos++
	end := len(s.text)
	if s.pos < len(s.anchors) {
		end = s.anchors[s.pos].start
	}
	return cur, end, true
}

// findAnchors collects every non-overlapping match of pattern with its
// submatch strings
func findAnchors(pattern *regexp.Regexp, text string) []anchor {
	var anchors []anchor
	for _, loc := range pattern.FindAllStringSubmatchIndex(text, -1) {
		groups := make([]string, len(loc)/2)
		for i := range groups {
			if loc[2*i] >= 0 {
				groups[i] = text[loc[2*i]:loc[2*i+1]]
			}
		}
		anchors = append(anchors, anchor{start: loc[0], groups: groups})
	}
	return anchors
}

// SegmentRaces splits a document into race segments. A header candidate
// only opens a race when the race-price label follows it before the next
// candidate; otherwise it stays inside the preceding segment.
func SegmentRaces(text string) []RaceSegment {
	candidates := findAnchors(raceHeaderPattern, text)

	var accepted []anchor
	for i, c := range candidates {
		limit := len(text)
		if i+1 < len(candidates) {
			limit = candidates[i+1].start
		}
		if strings.Contains(text[c.start:limit], LabelRacePrice) {
			accepted = append(accepted, c)
		}
	}

	var segments []RaceSegment
	s := &slicer{text: text, anchors: accepted}
	for {
		a, end, ok := s.next()
		if !ok {
			break
		}
		segments = append(segments, RaceSegment{
			Race:  raceFromHeader(a.groups),
			Start: a.start,
			End:   end,
			Text:  text[a.start:end],
		})
	}
	return segments
}

func raceFromHeader(g []string) Race {
	number, _ := strconv.Atoi(g[1])
	distance, _ := strconv.Atoi(g[3])
	return Race{
		Number:   number,
		Time:     g[2],
		Distance: distance,
		Prize:    parseAmount(g[4]),
		Surface:  strings.TrimSpace(g[5]),
		Name:     strings.TrimSpace(g[6]),
	}
}

// SegmentStarters splits one race segment into starter segments
func SegmentStarters(text string) []StarterSegment {
	var segments []StarterSegment
	s := &slicer{text: text, anchors: findAnchors(starterHeaderPattern, text)}
	for {
		a, end, ok := s.next()
		if !ok {
			break
		}
		number, _ := strconv.Atoi(a.groups[1])
		box, _ := strconv.Atoi(a.groups[3])
		segments = append(segments, StarterSegment{
			StartNumber: number,
			Remark:      a.groups[2],
			BoxNumber:   box,
			Start:       a.start,
			End:         end,
			Text:        text[a.start:end],
		})
	}
	return segments
}

// parseAmount turns "5.100,00" or "5.100" into 5100, dropping minor units
func parseAmount(s string) int {
	if i := strings.IndexByte(s, ','); i >= 0 {
		s = s[:i]
	}
	n, err := strconv.Atoi(strings.ReplaceAll(strings.TrimSpace(s), ".", ""))
	if err != nil {
		return 0
	}
	return n
}

// parseDecimal parses a number that may use a comma as decimal separator
func parseDecimal(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", "."), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
