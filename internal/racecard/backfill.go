package racecard

// BackfillFieldSize counts the starters of each race number and writes the
// count into every starter of that race. It must run once the complete
// starter set of a meeting is known; running it again on the same set gives
// the same counts.
func BackfillFieldSize(starters []Starter) {
	counts := make(map[int]int)
	for _, s := range starters {
		counts[s.Race.Number]++
	}
	for i := range starters {
		starters[i].Race.FieldSize = counts[starters[i].Race.Number]
	}
}

// backfillRaces copies the counts onto the race list of a document
func backfillRaces(races []Race, starters []Starter) {
	counts := make(map[int]int)
	for _, s := range starters {
		counts[s.Race.Number] = s.Race.FieldSize
	}
	for i := range races {
		races[i].FieldSize = counts[races[i].Number]
	}
}
