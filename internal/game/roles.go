package game

import (
	"math/rand/v2"
)

// MaxCharadesWords caps how many words a charades round acts out.
const MaxCharadesWords = 5

// ValidRoleCount clamps a requested number of special roles (impostors,
// actors) for a round with totalPlayers players, host included. The result
// is never below minimum and never reaches totalPlayers, so at least one
// ordinary player always remains. Fewer than two players yields zero.
func ValidRoleCount(totalPlayers, requested, minimum int) int {
	if totalPlayers < 2 {
		return 0
	}

	upper := totalPlayers - 1
	lower := max(minimum, 0)

	return max(lower, min(requested, upper))
}

func ImpostorCount(totalPlayers, requested int) int {
	return ValidRoleCount(totalPlayers, requested, 0)
}

func ActorCount(totalPlayers, requested int) int {
	return ValidRoleCount(totalPlayers, requested, 1)
}

func CharadesWordCount(requested int) int {
	return max(1, min(requested, MaxCharadesWords))
}

// PickPlayers selects count distinct player indices from [0, totalPlayers)
// uniformly at random. The result is indexed by player.
func PickPlayers(rng *rand.Rand, totalPlayers, count int) []bool {
	picked := make([]bool, max(totalPlayers, 0))
	if count <= 0 || totalPlayers <= 0 {
		return picked
	}

	var perm []int
	if rng != nil {
		perm = rng.Perm(totalPlayers)
	} else {
		perm = rand.Perm(totalPlayers)
	}

	for _, idx := range perm[:min(count, totalPlayers)] {
		picked[idx] = true
	}

	return picked
}
