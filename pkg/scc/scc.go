// Package scc finds strongly connected components of a directed graph and
// formats them for cycle diagnostics.
//
// Graphs are given as adjacency lists: outs[i] holds the successors of node i.
// Components are returned in topological order of the condensation, so the
// first component has no incoming edges from any later one.
package scc

import (
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"
)

// Components returns the strongly connected components of the graph in
// topological order. Members of each component are sorted ascending.
func Components(outs [][]int) [][]int {
	n := len(outs)
	ins := make([][]int, n)
	for a, bs := range outs {
		for _, b := range bs {
			ins[b] = append(ins[b], a)
		}
	}

	// Finish order of a DFS over the forward graph.
	finish := make([]int, 0, n)
	visited := make([]bool, n)
	type frame struct{ node, next int }
	for root := range n {
		if visited[root] {
			continue
		}
		visited[root] = true
		stack := []frame{{root, 0}}
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next < len(outs[top.node]) {
				b := outs[top.node][top.next]
				top.next++
				if !visited[b] {
					visited[b] = true
					stack = append(stack, frame{b, 0})
				}
				continue
			}
			finish = append(finish, top.node)
			stack = stack[:len(stack)-1]
		}
	}

	// Sweep the reversed graph in decreasing finish time.
	comp := make([]int, n)
	for i := range comp {
		comp[i] = -1
	}
	var components [][]int
	for i := n - 1; i >= 0; i-- {
		root := finish[i]
		if comp[root] >= 0 {
			continue
		}
		id := len(components)
		members := []int{root}
		comp[root] = id
		for j := 0; j < len(members); j++ {
			for _, a := range ins[members[j]] {
				if comp[a] < 0 {
					comp[a] = id
					members = append(members, a)
				}
			}
		}
		slices.Sort(members)
		components = append(components, members)
	}
	return components
}

// NonTrivial returns the components with more than one member, in
// topological order.
func NonTrivial(outs [][]int) [][]int {
	var out [][]int
	for _, c := range Components(outs) {
		if len(c) > 1 {
			out = append(out, c)
		}
	}
	return out
}

// Summary describes every non-trivial component: one row per member with its
// name, its address and its successors inside the component. names may be
// nil, in which case addresses are used.
func Summary(outs [][]int, names []string) string {
	var sb strings.Builder
	for i, members := range NonTrivial(outs) {
		fmt.Fprintf(&sb, "\n\nStrongly Connected Component #%d:\n", i)
		tw := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "Op\tAddress\tOuts in component")
		fmt.Fprintln(tw, "--\t-------\t-----------------")
		for _, a := range members {
			var inside []string
			for _, b := range outs[a] {
				if _, found := slices.BinarySearch(members, b); found {
					inside = append(inside, fmt.Sprint(b))
				}
			}
			name := fmt.Sprint(a)
			if a < len(names) && names[a] != "" {
				name = names[a]
			}
			fmt.Fprintf(tw, "%s\t%d\t(%s)\n", name, a, strings.Join(inside, " "))
		}
		tw.Flush()
	}
	return sb.String()
}
