// Package strategy classifies a competition code into the time-slot
// loading regime it follows. Kept as a small, named factory-by-string
// resolver, the same shape as a round-robin scheduler's own matchup
// strategy selection, generalized from picking a pairing generator to
// picking a slot-loading regime per the federation's Regular/Cup/Knockout
// competition kinds.
package strategy

// Kind distinguishes the three ways a competition's teams get their
// standing weekly time slots.
type Kind int

const (
	// Regular reads a team's own slots straight from its reception-window
	// registration: the 'm', 'f', and 'mo' competition codes.
	Regular Kind = iota
	// Cup reuses the men's-competition slots, filtered down to teams that
	// separately registered for the cup: competition code 'c'.
	Cup
	// Knockout (the knockout-hybrid code 'kh') reads up to two
	// (gymnasium, weekday, time) slots from a dedicated registration form,
	// defaulting a missing time to 20:00.
	Knockout
)

func (k Kind) String() string {
	switch k {
	case Cup:
		return "cup"
	case Knockout:
		return "knockout"
	default:
		return "regular"
	}
}

// Get resolves a competition code to its slot-loading kind.
func Get(competitionCode string) Kind {
	switch competitionCode {
	case "kh":
		return Knockout
	case "c":
		return Cup
	default:
		return Regular
	}
}
