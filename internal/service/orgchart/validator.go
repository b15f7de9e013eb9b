package orgchart

import (
	"fmt"
	"strings"
)

// Node is one (employee, manager) edge of a company's reporting graph.
// A nil ManagerID marks a root.
type Node struct {
	EmployeeID string
	ManagerID  *string
}

// CycleError names the member ids of a reporting cycle, in walk order.
type CycleError struct {
	Members []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cyclic manager graph: %s", strings.Join(e.Members, " -> "))
}

// UnknownManagerError - an employee points at a manager that is not part
// of the roster, e.g. a manager from another company.
type UnknownManagerError struct {
	EmployeeID string
	ManagerID  string
}

func (e *UnknownManagerError) Error() string {
	return fmt.Sprintf("employee %s reports to unknown manager %s", e.EmployeeID, e.ManagerID)
}

// Forest is the validated reporting hierarchy. Roots and direct reports
// preserve roster insertion order so fan-out stays deterministic.
type Forest struct {
	roots   []string
	reports map[string][]string
}

func (f *Forest) Roots() []string {
	return f.roots
}

func (f *Forest) DirectReports(managerID string) []string {
	return f.reports[managerID]
}

// TraversalOrder returns every employee id in breadth-first order from
// the roots. Item creation during a payroll run follows this order.
func (f *Forest) TraversalOrder() []string {
	order := make([]string, 0, len(f.reports)+len(f.roots))
	queue := append([]string(nil), f.roots...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)
		queue = append(queue, f.reports[id]...)
	}
	return order
}

const (
	unvisited = iota
	visiting
	done
)

// Validate confirms the manager relation forms a forest. It walks each
// node's manager chain with a visited set; a node revisited before a nil
// root is a cycle (self-reference included). O(n) time and space; no side
// effects, safe to call concurrently.
func Validate(nodes []Node) (*Forest, error) {
	managers := make(map[string]*string, len(nodes))
	for _, n := range nodes {
		managers[n.EmployeeID] = n.ManagerID
	}

	state := make(map[string]int, len(nodes))
	for _, n := range nodes {
		if state[n.EmployeeID] == done {
			continue
		}

		var path []string
		id := n.EmployeeID
		for {
			if state[id] == visiting {
				// Trim the path to the cycle itself.
				for i, member := range path {
					if member == id {
						return nil, &CycleError{Members: path[i:]}
					}
				}
				return nil, &CycleError{Members: []string{id}}
			}
			if state[id] == done {
				break
			}

			state[id] = visiting
			path = append(path, id)

			mgr := managers[id]
			if mgr == nil {
				break
			}
			if _, ok := managers[*mgr]; !ok {
				return nil, &UnknownManagerError{EmployeeID: id, ManagerID: *mgr}
			}
			id = *mgr
		}

		for _, member := range path {
			state[member] = done
		}
	}

	forest := &Forest{reports: make(map[string][]string, len(nodes))}
	for _, n := range nodes {
		if n.ManagerID == nil {
			forest.roots = append(forest.roots, n.EmployeeID)
			continue
		}
		forest.reports[*n.ManagerID] = append(forest.reports[*n.ManagerID], n.EmployeeID)
	}

	return forest, nil
}
