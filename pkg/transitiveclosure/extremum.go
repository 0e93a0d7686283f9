package transitiveclosure

// Extremum is a three-valued answer to "is this node first (or final)".
type Extremum int

const (
	No Extremum = iota
	Maybe
	Yes
)

func (e Extremum) String() string {
	switch e {
	case No:
		return "no"
	case Maybe:
		return "maybe"
	case Yes:
		return "yes"
	}
	return "unknown"
}

// Status classifies one node of a set as the first and the final node of
// that set across all topological orders.
type Status struct {
	First Extremum
	Final Extremum
}

// ExtremumStatuses returns the status of every node in ids relative to the
// other nodes in ids. Duplicates in ids are not allowed.
func (c *Closure) ExtremumStatuses(ids []int) []Status {
	out := make([]Status, len(ids))
	for i, id0 := range ids {
		out[i] = c.status(id0, ids)
	}
	return out
}

// ExtremumStatus returns the status of id relative to the nodes in ids.
// id itself may or may not be present in ids.
func (c *Closure) ExtremumStatus(id int, ids []int) Status {
	return c.status(id, ids)
}

func (c *Closure) status(id0 int, ids []int) Status {
	s := Status{First: Yes, Final: Yes}
	for _, id1 := range ids {
		if id1 == id0 {
			continue
		}
		switch {
		case c.Constrained(id0, id1):
			s.Final = No
		case c.Constrained(id1, id0):
			s.First = No
		default:
			if s.First != No {
				s.First = Maybe
			}
			if s.Final != No {
				s.Final = Maybe
			}
		}
		if s.First == No && s.Final == No {
			break
		}
	}
	return s
}
