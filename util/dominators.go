// Copyright 2025 Richard Kelsey. All rights reserved.
// See file LICENSE for notices and license.

package util

import (
	"slices"
)

// Cooper, Keith D.; Harvey, Timothy J; Kennedy, Ken (2001).
// "A Simple, Fast Dominance Algorithm"
//
// Calls setResult(node, idom) for every node reachable from rootNode.
// The root is its own immediate dominator.

func FindDominators[T comparable](rootNode T, succ func(T) []T, setResult func(T, T)) {
	nodes := []T{}
	seen := NewSet[T]()
	var findNodes func(node T)
	findNodes = func(node T) {
		seen.Add(node)
		for _, child := range succ(node) {
			if !seen.Contains(child) {
				findNodes(child)
			}
		}
		nodes = append(nodes, node)
	}
	findNodes(rootNode)
	// Nodes are indexed postorder, so the start node has the highest index.
	indexes := make(map[T]int, len(nodes))
	for i, node := range nodes {
		indexes[node] = i
	}
	predecessors := make([][]int, len(nodes))
	for i, node := range nodes {
		for _, successor := range succ(node) {
			index := indexes[successor]
			predecessors[index] = append(predecessors[index], i)
		}
	}
	// Higher postorder index first means that a node's first processed
	// predecessor comes first.
	for _, preds := range predecessors {
		slices.Sort(preds)
		slices.Reverse(preds)
	}
	root := len(nodes) - 1
	doms := make([]int, len(nodes))
	for i := range doms {
		doms[i] = -1
	}
	doms[root] = root
	intersect := func(x int, y int) int {
		for x != y {
			for x < y {
				x = doms[x]
			}
			for y < x {
				y = doms[y]
			}
		}
		return x
	}
	changed := true
	for changed {
		changed = false
		for i := root - 1; 0 <= i; i-- {
			newIdom := -1
			for _, other := range predecessors[i] {
				if doms[other] == -1 {
					continue
				}
				if newIdom == -1 {
					newIdom = other
				} else {
					newIdom = intersect(other, newIdom)
				}
			}
			if doms[i] != newIdom {
				doms[i] = newIdom
				changed = true
			}
		}
	}
	for i, node := range nodes {
		setResult(node, nodes[doms[i]])
	}
}
