package drift

// A plan is the per-action scheduling artifact for a Dataset DAG: reference
// counts for every reachable node, plus the stage list obtained by splitting
// the graph at shuffle boundaries. Plans are rebuilt for every action, never
// persisted.
type plan struct {
	target *Dataset
	refs   map[string]int
	stages []*stage
}

// createPlan walks parent references backward from the action's target
// Dataset, building the stage graph
func createPlan(target *Dataset) *plan {
	p := &plan{target: target, refs: countRefs(target)}
	p.addStages(target, make(map[string]bool))
	return p
}

// countRefs computes, for each node reachable from target, the number of
// downstream nodes referencing it. Nodes referenced more than once become
// stage boundaries so shared subgraphs are computed once per action, not once
// per downstream use.
func countRefs(target *Dataset) map[string]int {
	refs := map[string]int{target.id: 1}
	visited := make(map[string]bool)
	var walk func(d *Dataset)
	walk = func(d *Dataset) {
		if visited[d.id] {
			return
		}
		visited[d.id] = true
		for _, parent := range []*Dataset{d.parent, d.other} {
			if parent == nil {
				continue
			}
			refs[parent.id]++
			walk(parent)
		}
	}
	walk(target)
	return refs
}

// isBoundary returns true iff d always heads a stage: sources introduce
// partitions, unions merge two partition sets, and shuffle operators need
// every upstream partition before redistributing
func (p *plan) isBoundary(d *Dataset) bool {
	return d.kind == SourceOp || d.kind == UnionOp || d.kind.isShuffle()
}

// stageFor returns the maximal run of narrow operators ending at d, walking
// backward until it meets a boundary operator, a node shared by multiple
// downstream chains, or a cache point
func (p *plan) stageFor(d *Dataset) *stage {
	if p.isBoundary(d) {
		return &stage{boundary: d}
	}
	var frames []*Dataset
	cur := d
	for {
		frames = append([]*Dataset{cur}, frames...)
		parent := cur.parent
		if p.isBoundary(parent) || p.refs[parent.id] > 1 || parent.cached {
			return &stage{boundary: parent, frames: frames}
		}
		cur = parent
	}
}

// addStages appends, in dependency order, the stages needed to produce d
func (p *plan) addStages(d *Dataset, seen map[string]bool) {
	st := p.stageFor(d)
	b := st.boundary
	if !seen[b.id] {
		seen[b.id] = true
		switch {
		case b.kind == SourceOp:
		case p.isBoundary(b):
			p.addStages(b.parent, seen)
			if b.other != nil {
				p.addStages(b.other, seen)
			}
		default:
			// a shared or cached narrow node heads its own stage
			p.addStages(b, seen)
		}
	}
	st.id = len(p.stages)
	p.stages = append(p.stages, st)
}

// size returns the number of stages in this plan
func (p *plan) size() int {
	return len(p.stages)
}
