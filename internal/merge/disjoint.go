package merge

// disjointSet is a union-find over positions in the pre-merge list.
type disjointSet struct {
	parent []int
	size   []int
}

func newDisjointSet(n int) *disjointSet {
	d := &disjointSet{parent: make([]int, n), size: make([]int, n)}
	for i := range d.parent {
		d.parent[i] = i
		d.size[i] = 1
	}
	return d
}

func (d *disjointSet) find(i int) int {
	root := i
	for d.parent[root] != root {
		root = d.parent[root]
	}
	for d.parent[i] != root {
		next := d.parent[i]
		d.parent[i] = root
		i = next
	}
	return root
}

func (d *disjointSet) union(a, b int) {
	ra, rb := d.find(a), d.find(b)
	if ra == rb {
		return
	}
	if d.size[ra] < d.size[rb] {
		ra, rb = rb, ra
	}
	d.parent[rb] = ra
	d.size[ra] += d.size[rb]
}

// pushGroup places every index of group in one set, joining any sets the
// indices already belong to.
func (d *disjointSet) pushGroup(group []int) {
	for i := 1; i < len(group); i++ {
		d.union(group[0], group[i])
	}
}

// groups returns every set with two or more members. Members are in
// ascending index order and groups are ordered by their lowest member.
func (d *disjointSet) groups() [][]int {
	byRoot := make(map[int][]int)
	var roots []int
	for i := range d.parent {
		r := d.find(i)
		if d.size[r] < 2 {
			continue
		}
		if _, ok := byRoot[r]; !ok {
			roots = append(roots, r)
		}
		byRoot[r] = append(byRoot[r], i)
	}
	out := make([][]int, 0, len(roots))
	for _, r := range roots {
		out = append(out, byRoot[r])
	}
	return out
}
