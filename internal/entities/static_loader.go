package entities

import "time"

// StaticLoader is an in-memory Loader, built directly from Go values
// instead of a database round trip. Tests across this module build one
// in-process rather than standing up a database per case.
type StaticLoader struct {
	ClubsData       map[string]Club
	GymnasiumsData  map[string]Gymnasium
	Teams           []RawTeam
	Windows         map[string]Window
	HistoryData     map[PairKey]Reception
	SharedPairs     []SharedRosterPair
	ClosedGyms      map[string]map[time.Time]bool
	PreExistingData map[string][]Match
}

func (l *StaticLoader) Clubs() map[string]Club                { return l.ClubsData }
func (l *StaticLoader) Gymnasiums() map[string]Gymnasium      { return l.GymnasiumsData }
func (l *StaticLoader) TeamsRaw() []RawTeam                    { return l.Teams }
func (l *StaticLoader) CompetitionWindows() map[string]Window { return l.Windows }

func (l *StaticLoader) History(cutoff time.Time) map[PairKey]Reception {
	if l.HistoryData == nil {
		return map[PairKey]Reception{}
	}
	return l.HistoryData
}

func (l *StaticLoader) SharedRosterPairs(ratio float64) []SharedRosterPair {
	var out []SharedRosterPair
	for _, p := range l.SharedPairs {
		if p.Ratio >= ratio {
			out = append(out, p)
		}
	}
	return out
}

func (l *StaticLoader) GymAvailable(gymID string, d time.Time) bool {
	if l.ClosedGyms == nil {
		return true
	}
	closed, ok := l.ClosedGyms[gymID]
	if !ok {
		return true
	}
	return !closed[d]
}

func (l *StaticLoader) PreExistingMatches(competitionCode string) []Match {
	if l.PreExistingData == nil {
		return nil
	}
	return l.PreExistingData[competitionCode]
}
