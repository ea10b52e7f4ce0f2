package materializer

import (
	"fmt"
	"sort"
	"strings"
)

// topologicalSort orders task ids so that every task appears after its
// parent, using Kahn's algorithm, grounded on the dependency-graph sort in
// other_examples/f679ffb4_EmundoT-git-vendor__internal-core-cascade_service.go.go's
// TopologicalSort, adapted from "project depends on project" to "task's
// branch forks from parent task's branch" (spec.md §4.6 step 2).
//
// edges maps childTaskID -> parentTaskID for every parent that is itself
// part of this batch; tasks whose parent is outside the batch (or absent)
// have no entry and are treated as roots.
func topologicalSort(taskIDs []string, edges map[string]string) ([]string, error) {
	inDegree := make(map[string]int, len(taskIDs))
	children := make(map[string][]string)

	for _, id := range taskIDs {
		inDegree[id] = 0
	}
	for child, parent := range edges {
		if _, ok := inDegree[child]; !ok {
			continue
		}
		if _, ok := inDegree[parent]; !ok {
			continue
		}
		inDegree[child]++
		children[parent] = append(children[parent], child)
	}

	var queue []string
	for id, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, id)
		}
	}
	sort.Strings(queue)

	var order []string
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)

		deps := children[id]
		sort.Strings(deps)
		for _, child := range deps {
			inDegree[child]--
			if inDegree[child] == 0 {
				queue = append(queue, child)
			}
		}
	}

	if len(order) != len(taskIDs) {
		var stuck []string
		for id, deg := range inDegree {
			if deg > 0 {
				stuck = append(stuck, id)
			}
		}
		sort.Strings(stuck)
		return nil, fmt.Errorf("materializer: dependency cycle detected among tasks: %s", strings.Join(stuck, ", "))
	}
	return order, nil
}
