// Package draw decides feasibility of and generates the constrained pairing
// for a round: a permutation of the participants with no fixed points and no
// excluded pairs in either direction.
package draw

// Pair is an unordered pair of member IDs that must not be matched.
type Pair struct {
	A int64
	B int64
}

// NewPair normalizes a pair so that A < B.
func NewPair(a, b int64) Pair {
	if b < a {
		a, b = b, a
	}
	return Pair{A: a, B: b}
}

// Validate reports whether a complete assignment exists for the given
// participants under the exclusion set. Existence is decided by computing a
// perfect matching on the giver/receiver compatibility graph; checking only
// that every member has at least one compatible receiver is not enough (e.g.
// participants {1,2,3} with the single exclusion {1,2} leave everyone with a
// candidate, yet admit no complete assignment).
func Validate(participants []int64, exclusions []Pair) error {
	excluded, err := exclusionSet(participants, exclusions)
	if err != nil {
		return err
	}

	n := len(participants)
	adj := compatibility(participants, excluded)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}

	matchedTo := maximumMatching(n, adj, order)
	for _, giver := range matchedTo {
		if giver == -1 {
			return ErrInfeasible
		}
	}
	return nil
}

func exclusionSet(participants []int64, exclusions []Pair) (map[Pair]bool, error) {
	index := make(map[int64]bool, len(participants))
	for _, id := range participants {
		index[id] = true
	}

	excluded := make(map[Pair]bool, len(exclusions))
	for _, p := range exclusions {
		if !index[p.A] || !index[p.B] {
			return nil, ErrUnknownMember
		}
		excluded[NewPair(p.A, p.B)] = true
	}
	return excluded, nil
}

// compatibility builds the bipartite adjacency list: givers on the left,
// receivers on the right, with an edge wherever giver != receiver and the
// pair is not excluded.
func compatibility(participants []int64, excluded map[Pair]bool) [][]int {
	n := len(participants)
	adj := make([][]int, n)
	for i, giver := range participants {
		for j, receiver := range participants {
			if i == j || excluded[NewPair(giver, receiver)] {
				continue
			}
			adj[i] = append(adj[i], j)
		}
	}
	return adj
}

// maximumMatching runs Kuhn's augmenting-path algorithm, visiting givers in
// the supplied order. The result maps receiver index to matched giver index,
// -1 where unmatched.
func maximumMatching(n int, adj [][]int, order []int) []int {
	matchedTo := make([]int, n)
	for i := range matchedTo {
		matchedTo[i] = -1
	}
	for _, giver := range order {
		visited := make([]bool, n)
		augment(giver, adj, matchedTo, visited)
	}
	return matchedTo
}

func augment(giver int, adj [][]int, matchedTo []int, visited []bool) bool {
	for _, receiver := range adj[giver] {
		if visited[receiver] {
			continue
		}
		visited[receiver] = true
		if matchedTo[receiver] == -1 || augment(matchedTo[receiver], adj, matchedTo, visited) {
			matchedTo[receiver] = giver
			return true
		}
	}
	return false
}
