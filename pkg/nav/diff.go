package nav

import "github.com/strada-dev/strada/pkg/router"

// reusedPair links a future snapshot to the current snapshot whose handle it
// keeps.
type reusedPair struct {
	future  *router.Snapshot
	current *router.Snapshot
}

// treeDiff is the positional comparison of the future snapshot tree against
// the currently activated one, as decided by a ReuseStrategy.
type treeDiff struct {
	// reused pairs keep their handles, ordered root to leaf.
	reused []reusedPair

	// entered are future nodes needing instantiation, depth-first order.
	entered []*router.Snapshot

	// destroyed are displaced current nodes, deepest first so leave guards
	// and disposal run children before parents.
	destroyed []*router.Snapshot
}

// diffTrees walks both trees from the synthetic roots, pairing children by
// outlet. A pair the strategy reuses recurses; any other divergence enters
// the whole future subtree and destroys the whole current subtree. A nil
// current tree enters everything.
func diffTrees(future, current *router.SnapshotTree, strategy ReuseStrategy) *treeDiff {
	d := &treeDiff{}
	var curRoot *router.Snapshot
	if current != nil {
		curRoot = current.Root
	}
	d.pair(future.Root, curRoot, strategy)
	return d
}

func (d *treeDiff) pair(future, current *router.Snapshot, strategy ReuseStrategy) {
	var curChildren []*router.Snapshot
	if current != nil {
		curChildren = current.Children()
	}
	matched := make([]bool, len(curChildren))

	for _, fc := range future.Children() {
		var cc *router.Snapshot
		for i, c := range curChildren {
			if !matched[i] && c.Outlet == fc.Outlet {
				matched[i] = true
				cc = c
				break
			}
		}
		if cc != nil && strategy.ShouldReuse(fc, cc) {
			d.reused = append(d.reused, reusedPair{future: fc, current: cc})
			d.pair(fc, cc, strategy)
			continue
		}
		d.enterSubtree(fc)
		if cc != nil {
			d.destroySubtree(cc)
		}
	}

	for i, c := range curChildren {
		if !matched[i] {
			d.destroySubtree(c)
		}
	}
}

func (d *treeDiff) enterSubtree(n *router.Snapshot) {
	d.entered = append(d.entered, n)
	for _, c := range n.Children() {
		d.enterSubtree(c)
	}
}

// destroySubtree appends in post-order, children before parents.
func (d *treeDiff) destroySubtree(n *router.Snapshot) {
	for _, c := range n.Children() {
		d.destroySubtree(c)
	}
	d.destroyed = append(d.destroyed, n)
}

// enteredSet reports membership for the entered nodes.
func (d *treeDiff) enteredSet() map[*router.Snapshot]bool {
	set := make(map[*router.Snapshot]bool, len(d.entered))
	for _, n := range d.entered {
		set[n] = true
	}
	return set
}
