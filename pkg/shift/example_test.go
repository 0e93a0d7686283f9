package shift_test

import (
	"fmt"

	"github.com/matzehuels/shiftsched/pkg/shift"
)

func ExampleSchedule() {
	// A → B → C → D, with one buffer written by A and read by D.
	g := shift.NewGraph()
	ops := g.InsertOps([]string{"A", "B", "C", "D"})
	_ = g.InsertConstraints([][2]shift.OpAddress{{ops[0], ops[1]}, {ops[1], ops[2]}, {ops[2], ops[3]}})
	buf := g.InsertAlloc(shift.NewWeight(1))
	_ = g.InsertOpAlloc([]shift.OpAddress{ops[0], ops[3]}, buf)

	res, err := shift.Schedule(g, shift.DefaultSettings())
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println("Order:", res.Order)
	fmt.Println("Sum liveness:", res.Summary.FinalSumLiveness)
	fmt.Println("Rotations:", res.Summary.NRotations)
	// Output:
	// Order: [0 1 2 3]
	// Sum liveness: 4
	// Rotations: 0
}

func ExampleGraph_InsertLink() {
	g := shift.NewGraph()
	g.InsertOps([]string{"load", "use", "other"})
	_ = g.InsertLink(0, 1)

	m := g.Merge()
	fmt.Println(m.Graph.Names())
	// Output:
	// [(load use) other]
}

func ExampleLiveness() {
	g := shift.NewGraph()
	a, b := g.InsertOp("A"), g.InsertOp("B")
	big := g.InsertAlloc(shift.NewWeight(10))
	small := g.InsertAlloc(shift.NewWeight(1))
	_ = g.InsertOpAlloc([]shift.OpAddress{a}, big)
	_ = g.InsertOpAlloc([]shift.OpAddress{a, b}, small)

	fmt.Println(shift.Liveness(g, []shift.OpAddress{a, b}))
	fmt.Println(shift.SumLiveness(g, []shift.OpAddress{b, a}))
	// Output:
	// [11 1]
	// 12
}
