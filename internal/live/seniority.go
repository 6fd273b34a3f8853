package live

import (
	"math/rand"
	"sort"
)

// SeedSeniority assigns the initial seniority order by rolling one d6 per
// player. Lower rolls rank first; ties are re-rolled recursively among the
// tied players only. Every roll is logged so clients can replay the
// tie-break. The result is a pure function of the random stream and the
// player order.
func SeedSeniority(rng *rand.Rand, players []string) ([]string, []SeniorityRoll) {
	var log []SeniorityRoll
	order := resolveRolls(rng, players, 1, &log)
	return order, log
}

func resolveRolls(rng *rand.Rand, players []string, attempt int, log *[]SeniorityRoll) []string {
	if len(players) == 0 {
		return nil
	}

	type roll struct {
		player string
		value  int
	}
	rolls := make([]roll, 0, len(players))
	for _, player := range players {
		value := rng.Intn(6) + 1
		rolls = append(rolls, roll{player: player, value: value})
		*log = append(*log, SeniorityRoll{Attempt: attempt, PlayerID: player, Value: value})
	}

	sort.SliceStable(rolls, func(i, j int) bool {
		return rolls[i].value < rolls[j].value
	})

	var result []string
	for i := 0; i < len(rolls); {
		j := i + 1
		for j < len(rolls) && rolls[j].value == rolls[i].value {
			j++
		}
		if j-i == 1 {
			result = append(result, rolls[i].player)
		} else {
			tied := make([]string, 0, j-i)
			for _, r := range rolls[i:j] {
				tied = append(tied, r.player)
			}
			result = append(result, resolveRolls(rng, tied, attempt+1, log)...)
		}
		i = j
	}
	return result
}
