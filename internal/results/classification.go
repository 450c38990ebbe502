package results

import (
	"sort"
	"strings"

	"f1league/internal/models"
	"f1league/internal/normalize"

	"github.com/rs/zerolog/log"
)

// GridSize is the sentinel worst position. An unclassified car scores
// as last place for prediction purposes, and a roster driver missing
// from the feed is assumed to have finished there too.
const GridSize = 20

// Classification is the structured per-event result snapshot that the
// scorer consumes. All keys are normalized names.
type Classification struct {
	// DriverPositions maps driver name to DNF-overridden finishing
	// position.
	DriverPositions map[string]int
	// ConstructorRanks maps constructor key to its derived rank,
	// standard competition ranking over summed driver positions.
	ConstructorRanks map[string]int
	// RaceLosers holds every driver with the maximal position loss
	// versus the starting grid.
	RaceLosers map[string]bool
	// SprintGainers and SprintLosers are the analogous sets for the
	// sprint session, empty on non-sprint weekends.
	SprintGainers map[string]bool
	SprintLosers  map[string]bool
	HasSprint     bool
}

// dnfStatusPrefixes marks a car as unclassified. Matched as a prefix of
// the lowercased status text, so "Collision damage" counts.
var dnfStatusPrefixes = []string{
	"retired",
	"accident",
	"collision",
	"disqualified",
}

// Build assembles a Classification from the raw race entries, an
// optional sprint entry list, and the constructor roster.
func Build(race, sprint []models.ResultEntry, roster models.Roster) *Classification {
	cls := &Classification{
		DriverPositions: driverPositions(race),
		RaceLosers:      dropSet(race),
		SprintGainers:   map[string]bool{},
		SprintLosers:    map[string]bool{},
	}
	cls.ConstructorRanks = constructorRanks(cls.DriverPositions, roster)

	if len(sprint) > 0 {
		cls.HasSprint = true
		cls.SprintGainers = gainSet(sprint)
		cls.SprintLosers = dropSet(sprint)
	}

	for _, e := range race {
		if _, ok := roster[normalize.Constructor(e.Constructor)]; !ok {
			log.Warn().
				Str("constructor", e.Constructor).
				Str("driver", e.DriverName()).
				Msg("Constructor not matched against roster")
		}
	}

	return cls
}

// finishPosition applies the DNF override: retirement, collision,
// accident or disqualification forces last place regardless of the
// reported classification position.
func finishPosition(e *models.ResultEntry) int {
	status := strings.ToLower(strings.TrimSpace(e.Status))
	for _, prefix := range dnfStatusPrefixes {
		if strings.HasPrefix(status, prefix) {
			return GridSize
		}
	}
	switch strings.ToUpper(strings.TrimSpace(e.PositionText)) {
	case "R", "D":
		return GridSize
	}
	return e.Position
}

func driverPositions(entries []models.ResultEntry) map[string]int {
	positions := make(map[string]int, len(entries))
	for i := range entries {
		e := &entries[i]
		positions[normalize.Name(e.DriverName())] = finishPosition(e)
	}
	return positions
}

// constructorRanks sums the (overridden) positions of each roster
// constructor's drivers and assigns competition ranks: tied sums share
// a rank, the next distinct sum advances by the run length.
func constructorRanks(positions map[string]int, roster models.Roster) map[string]int {
	type entry struct {
		key string
		sum int
	}

	sums := make([]entry, 0, len(roster))
	for key, drivers := range roster {
		total := 0
		for _, d := range drivers {
			pos, ok := positions[normalize.Name(d)]
			if !ok {
				pos = GridSize
			}
			total += pos
		}
		sums = append(sums, entry{key: key, sum: total})
	}

	sort.Slice(sums, func(i, j int) bool {
		if sums[i].sum != sums[j].sum {
			return sums[i].sum < sums[j].sum
		}
		return sums[i].key < sums[j].key
	})

	ranks := make(map[string]int, len(sums))
	for i, e := range sums {
		if i > 0 && e.sum == sums[i-1].sum {
			ranks[e.key] = ranks[sums[i-1].key]
			continue
		}
		ranks[e.key] = i + 1
	}
	return ranks
}

// dropSet returns every driver achieving the maximal position loss
// versus the grid. Entries without a valid grid slot are skipped.
func dropSet(entries []models.ResultEntry) map[string]bool {
	return extremeSet(entries, func(e *models.ResultEntry) int {
		return finishPosition(e) - e.Grid
	})
}

// gainSet is the symmetric computation for the sprint gainer wildcard.
func gainSet(entries []models.ResultEntry) map[string]bool {
	return extremeSet(entries, func(e *models.ResultEntry) int {
		return e.Grid - finishPosition(e)
	})
}

func extremeSet(entries []models.ResultEntry, delta func(*models.ResultEntry) int) map[string]bool {
	set := map[string]bool{}
	best := 0
	found := false
	for i := range entries {
		e := &entries[i]
		if e.Grid <= 0 {
			continue
		}
		d := delta(e)
		if !found || d > best {
			best = d
			found = true
			set = map[string]bool{normalize.Name(e.DriverName()): true}
			continue
		}
		if d == best {
			set[normalize.Name(e.DriverName())] = true
		}
	}
	return set
}
