package resolve

// Plan is a category feed grouped into creation tiers. Every item of Tiers[i]
// has its in-feed parent in an earlier tier. Items whose parent key is not
// part of the feed are placed after the roots and must resolve their parent
// remotely.
// Cyclic holds items that sit on, or descend from, a parent cycle.
type Plan[T any] struct {
	Tiers  [][]T
	Cyclic []T
}

// Len returns the number of planned items, cyclic ones included.
func (p Plan[T]) Len() int {
	n := len(p.Cyclic)
	for _, tier := range p.Tiers {
		n += len(tier)
	}
	return n
}

const (
	unvisited = iota
	visiting
	done
	cyclic
)

// Tiers orders items parent before child. key and parent extract the local
// key and the parent key of an item; an empty parent key marks a root. When
// keys repeat, the first item with a key is the one children attach to.
// Input order is kept within each tier.
func Tiers[T any](items []T, key, parent func(T) string) Plan[T] {
	first := make(map[string]int, len(items))
	for i, it := range items {
		if _, ok := first[key(it)]; !ok {
			first[key(it)] = i
		}
	}

	state := make([]int, len(items))
	depth := make([]int, len(items))

	var visit func(i int) int
	visit = func(i int) int {
		switch state[i] {
		case done:
			return depth[i]
		case visiting, cyclic:
			state[i] = cyclic
			return -1
		}
		state[i] = visiting

		d := 0
		p := parent(items[i])
		switch j, inFeed := first[p]; {
		case p == "":
			d = 0
		case p == key(items[i]):
			state[i] = cyclic
			return -1
		case !inFeed:
			d = 1
		default:
			pd := visit(j)
			if pd < 0 {
				state[i] = cyclic
				return -1
			}
			d = pd + 1
		}

		state[i] = done
		depth[i] = d
		return d
	}

	var plan Plan[T]
	for i := range items {
		visit(i)
	}
	for i, it := range items {
		if state[i] == cyclic {
			plan.Cyclic = append(plan.Cyclic, it)
			continue
		}
		for len(plan.Tiers) <= depth[i] {
			plan.Tiers = append(plan.Tiers, nil)
		}
		plan.Tiers[depth[i]] = append(plan.Tiers[depth[i]], it)
	}

	// An external-parent item with no roots leaves tier 0 empty.
	tiers := plan.Tiers[:0]
	for _, tier := range plan.Tiers {
		if len(tier) > 0 {
			tiers = append(tiers, tier)
		}
	}
	plan.Tiers = tiers
	return plan
}
