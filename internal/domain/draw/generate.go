package draw

import "math/rand/v2"

// maxRandomAttempts bounds the randomized strategy before falling back to the
// exact matching. Exclusion sets are sparse in practice, so the random path
// almost always wins well within the budget.
const maxRandomAttempts = 300

// Generate produces a complete giver-to-receiver assignment over the
// participants, avoiding self-pairs and excluded pairs. Callers must have
// confirmed feasibility with Validate for the same input first.
//
// When prior holds the previous round's pairing, candidates that give every
// giver a new receiver are preferred. The preference is soft: if the random
// attempt budget runs out, any constraint-valid candidate is kept.
//
// Two strategies back the one contract: uniformly random permutations with
// retry, then a deterministic perfect matching with shuffled vertex order.
// The fallback is what guarantees termination once feasibility is proven.
func Generate(participants []int64, exclusions []Pair, prior map[int64]int64, rng *rand.Rand) (map[int64]int64, error) {
	excluded, err := exclusionSet(participants, exclusions)
	if err != nil {
		return nil, err
	}

	n := len(participants)
	var accepted map[int64]int64

	for attempt := 0; attempt < maxRandomAttempts; attempt++ {
		candidate := randomCandidate(participants, excluded, rng)
		if candidate == nil {
			continue
		}
		if !repeatsPrior(candidate, prior) {
			return candidate, nil
		}
		if accepted == nil {
			accepted = candidate
		}
	}
	if accepted != nil {
		return accepted, nil
	}

	return matchingAssignment(participants, excluded, n, rng)
}

// randomCandidate samples one permutation and returns it as an assignment,
// or nil if it violates a hard constraint.
func randomCandidate(participants []int64, excluded map[Pair]bool, rng *rand.Rand) map[int64]int64 {
	perm := rng.Perm(len(participants))
	candidate := make(map[int64]int64, len(participants))
	for i, j := range perm {
		giver, receiver := participants[i], participants[j]
		if giver == receiver || excluded[NewPair(giver, receiver)] {
			return nil
		}
		candidate[giver] = receiver
	}
	return candidate
}

// repeatsPrior reports whether any giver keeps the receiver they had in the
// previous round.
func repeatsPrior(candidate, prior map[int64]int64) bool {
	for giver, receiver := range candidate {
		if prior[giver] == receiver {
			return true
		}
	}
	return false
}

// matchingAssignment derives an assignment from a perfect matching on the
// compatibility graph. Vertex and edge order are shuffled so the exact path
// does not always produce the same pairing.
func matchingAssignment(participants []int64, excluded map[Pair]bool, n int, rng *rand.Rand) (map[int64]int64, error) {
	adj := compatibility(participants, excluded)
	for i := range adj {
		rng.Shuffle(len(adj[i]), func(a, b int) {
			adj[i][a], adj[i][b] = adj[i][b], adj[i][a]
		})
	}

	matchedTo := maximumMatching(n, adj, rng.Perm(n))

	out := make(map[int64]int64, n)
	for receiver, giver := range matchedTo {
		if giver == -1 {
			return nil, ErrInfeasible
		}
		out[participants[giver]] = participants[receiver]
	}
	return out, nil
}
