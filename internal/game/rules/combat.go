package rules

import "github.com/stratego-online/stratego-server-go/internal/game/pieces"

// Outcome is the result of one attack.
type Outcome int

const (
	AttackerWins Outcome = iota
	DefenderWins
	Draw
)

var outcomeNames = map[Outcome]string{
	AttackerWins: "ATTACKER_WINS",
	DefenderWins: "DEFENDER_WINS",
	Draw:         "DRAW",
}

func (o Outcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return "UNKNOWN"
}

// combatRule is one entry of the priority list. The first rule whose match
// returns true decides the fight.
type combatRule struct {
	name    string
	matches func(attacker, defender pieces.Rank) bool
	resolve func(attacker, defender pieces.Rank) Outcome
}

func always(o Outcome) func(pieces.Rank, pieces.Rank) Outcome {
	return func(pieces.Rank, pieces.Rank) Outcome { return o }
}

var combatRules = []combatRule{
	{
		name:    "bomb",
		matches: func(_, d pieces.Rank) bool { return d == pieces.Bomb },
		resolve: func(a, _ pieces.Rank) Outcome {
			if a == pieces.Miner {
				return AttackerWins
			}
			return DefenderWins
		},
	},
	{
		name:    "flag",
		matches: func(_, d pieces.Rank) bool { return d == pieces.Flag },
		resolve: always(AttackerWins),
	},
	{
		name:    "spy-marshal",
		matches: func(a, d pieces.Rank) bool { return a == pieces.Spy && d == pieces.Marshal },
		resolve: always(AttackerWins),
	},
	{
		name:    "equal",
		matches: func(a, d pieces.Rank) bool { return a == d },
		resolve: always(Draw),
	},
	{
		name:    "ordinal",
		matches: func(_, _ pieces.Rank) bool { return true },
		resolve: func(a, d pieces.Rank) Outcome {
			if a > d {
				return AttackerWins
			}
			return DefenderWins
		},
	},
}

// Combat resolves an attack of attacker on defender. It is total over valid ranks.
func Combat(attacker, defender pieces.Rank) Outcome {
	outcome, _ := resolveCombat(attacker, defender)
	return outcome
}

// resolveCombat also returns the name of the deciding rule.
func resolveCombat(attacker, defender pieces.Rank) (Outcome, string) {
	for _, rule := range combatRules {
		if rule.matches(attacker, defender) {
			return rule.resolve(attacker, defender), rule.name
		}
	}
	// unreachable: the ordinal rule matches everything
	return Draw, ""
}
