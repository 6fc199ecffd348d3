package analyzer

import (
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/multi"
	"gonum.org/v1/gonum/graph/topo"
)

type taskNode struct {
	id   int64
	task *Task
}

func (n *taskNode) ID() int64 { return n.id }

type resourceNode struct {
	id       int64
	resource *Resource
}

func (n *resourceNode) ID() int64 { return n.id }

// accessGraph links every task to the resources it declares. Tasks and
// resources share one id space: tasks first, then resources.
type accessGraph struct {
	g         *multi.DirectedGraph
	tasks     []*taskNode
	resources []*resourceNode
}

func newAccessGraph(tasks []*Task, resources []*Resource) *accessGraph {
	ag := &accessGraph{g: multi.NewDirectedGraph()}
	for i, task := range tasks {
		node := &taskNode{id: int64(i), task: task}
		ag.tasks = append(ag.tasks, node)
		ag.g.AddNode(node)
	}
	for i, resource := range resources {
		node := &resourceNode{id: int64(len(tasks) + i), resource: resource}
		ag.resources = append(ag.resources, node)
		ag.g.AddNode(node)
	}
	return ag
}

func (ag *accessGraph) addAccess(task *Task, resource *Resource) {
	from := ag.tasks[task.ID]
	to := ag.resources[resource.index]
	ag.g.SetLine(ag.g.NewLine(from, to))
}

// accessors returns the distinct tasks that access the resource, in
// declaration order.
func (ag *accessGraph) accessors(resource *Resource) []*Task {
	seen := make(map[int64]bool)
	for it := ag.g.To(ag.resources[resource.index].id); it.Next(); {
		seen[it.Node().ID()] = true
	}

	var tasks []*Task
	for _, node := range ag.tasks {
		if seen[node.id] {
			tasks = append(tasks, node.task)
		}
	}
	return tasks
}

// spawnCycles returns the groups of tasks that can spawn each other
// transitively. A task that spawns itself forms a group of one.
func spawnCycles(tasks []*Task) [][]string {
	g := multi.NewDirectedGraph()
	nodes := make([]*taskNode, len(tasks))
	for i, task := range tasks {
		nodes[i] = &taskNode{id: int64(i), task: task}
		g.AddNode(nodes[i])
	}

	var cycles [][]string
	for _, task := range tasks {
		for _, target := range task.Spawns {
			if target == task {
				cycles = append(cycles, []string{task.Name})
				continue
			}
			g.SetLine(g.NewLine(nodes[task.ID], nodes[target.ID]))
		}
	}

	for _, component := range topo.TarjanSCC(g) {
		if len(component) < 2 {
			continue
		}
		cycles = append(cycles, componentNames(component))
	}
	return cycles
}

func componentNames(component []graph.Node) []string {
	ids := make([]int, len(component))
	byID := make(map[int]string, len(component))
	for i, node := range component {
		n := node.(*taskNode)
		ids[i] = int(n.id)
		byID[ids[i]] = n.task.Name
	}
	slices.Sort(ids)

	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = byID[id]
	}
	return names
}
