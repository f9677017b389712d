package dedupe

// unionFind is a disjoint-set forest over indices into the canonically sorted
// article slice. Each root also tracks its members and its smallest index,
// which is the set's representative.
type unionFind struct {
	parent  []int
	size    []int
	rep     []int
	members [][]int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{
		parent:  make([]int, n),
		size:    make([]int, n),
		rep:     make([]int, n),
		members: make([][]int, n),
	}
	for i := range uf.parent {
		uf.parent[i] = i
		uf.size[i] = 1
		uf.rep[i] = i
		uf.members[i] = []int{i}
	}
	return uf
}

func (uf *unionFind) find(x int) int {
	root := x
	for uf.parent[root] != root {
		root = uf.parent[root]
	}
	for uf.parent[x] != root {
		next := uf.parent[x]
		uf.parent[x] = root
		x = next
	}
	return root
}

// admits reports whether every member of the union of roots a and b matches
// the union's representative.
func (uf *unionFind) admits(a, b int, match func(i, j int) bool) bool {
	rep := min(uf.rep[a], uf.rep[b])
	for _, set := range [][]int{uf.members[a], uf.members[b]} {
		for _, m := range set {
			if m != rep && !match(rep, m) {
				return false
			}
		}
	}
	return true
}

// union merges two roots by size and returns the new root.
func (uf *unionFind) union(a, b int) int {
	if uf.size[a] < uf.size[b] {
		a, b = b, a
	}
	uf.parent[b] = a
	uf.size[a] += uf.size[b]
	uf.rep[a] = min(uf.rep[a], uf.rep[b])
	uf.members[a] = append(uf.members[a], uf.members[b]...)
	uf.members[b] = nil
	return a
}
