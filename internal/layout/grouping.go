package layout

import "github.com/rendis/txlens/pkg/schema"

// Groups partitions a flat operation list into chronological groups.
// The first operation starts group 0. Every subsequent operation is compared
// against the immediately preceding operation only: sharing a participant or
// an asset identity joins it to the preceding operation's group, otherwise it
// starts a new group. Operations two or more positions apart never merge,
// even when they overlap.
func Groups(ops []schema.Operation) []int {
	if len(ops) == 0 {
		return nil
	}

	groups := make([]int, len(ops))
	current := 0
	for i := 1; i < len(ops); i++ {
		if !ops[i].SharesEntity(&ops[i-1]) {
			current++
		}
		groups[i] = current
	}
	return groups
}
