// Copyright 2024 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

// Code to find the strongly connected components of a graph using
// Kosaraju's algorithm.

package util

// inputs: nodes in some graph
// edges: returns the nodes that a node has an edge to
// Returns the strongly connected components in topological order.
// Edges to nodes not in 'inputs' are ignored.

func StronglyConnectedComponents[K comparable](inputs []K, edges func(K) []K) [][]K {
	nodes := make([]*nodeT, len(inputs))
	lookup := map[K]*nodeT{}
	for i, input := range inputs {
		nodes[i] = &nodeT{index: i}
		lookup[input] = nodes[i]
	}
	for i, parent := range inputs {
		parentNode := nodes[i]
		for _, child := range edges(parent) {
			childNode, found := lookup[child]
			if !found {
				continue
			}
			parentNode.children = append(parentNode.children, childNode)
			childNode.parents = append(childNode.parents, parentNode)
		}
	}
	var stack StackT[visitFrameT]
	order := make([]*nodeT, 0, len(nodes))
	for _, node := range nodes {
		visitPostorder(node, false, &stack, func(n *nodeT) { order = append(order, n) })
	}
	for _, node := range nodes {
		node.seen = false
	}
	result := [][]K{}
	for i := len(order) - 1; 0 <= i; i-- {
		component := []K{}
		visitPostorder(order[i], true, &stack, func(n *nodeT) { component = append(component, inputs[n.index]) })
		if 0 < len(component) {
			result = append(result, component)
		}
	}
	return result
}

type nodeT struct {
	index    int // index of the corresponding input node
	seen     bool
	children []*nodeT
	parents  []*nodeT
}

type visitFrameT struct {
	node *nodeT
	next int
}

// Iterative, as the graphs can be deep.

func visitPostorder(start *nodeT, up bool, stack *StackT[visitFrameT], visit func(*nodeT)) {
	if start.seen {
		return
	}
	start.seen = true
	stack.Reset()
	stack.Push(visitFrameT{node: start})
	for !stack.Empty() {
		frame := stack.TopRef()
		next := frame.node.children
		if up {
			next = frame.node.parents
		}
		if frame.next < len(next) {
			node := next[frame.next]
			frame.next += 1
			if !node.seen {
				node.seen = true
				stack.Push(visitFrameT{node: node})
			}
		} else {
			visit(frame.node)
			stack.Pop()
		}
	}
}
