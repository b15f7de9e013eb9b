package orgchart

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(s string) *string { return &s }

func TestValidate_Forest_Success(t *testing.T) {
	t.Parallel()

	nodes := []Node{
		{EmployeeID: "ceo"},
		{EmployeeID: "cto", ManagerID: ptr("ceo")},
		{EmployeeID: "cfo", ManagerID: ptr("ceo")},
		{EmployeeID: "dev-1", ManagerID: ptr("cto")},
		{EmployeeID: "dev-2", ManagerID: ptr("cto")},
		{EmployeeID: "contractor"},
	}

	// Act
	forest, err := Validate(nodes)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []string{"ceo", "contractor"}, forest.Roots())
	assert.Equal(t, []string{"cto", "cfo"}, forest.DirectReports("ceo"))
	assert.Equal(t, []string{"dev-1", "dev-2"}, forest.DirectReports("cto"))
	assert.Empty(t, forest.DirectReports("dev-1"))
}

func TestValidate_TraversalOrder_BreadthFirst(t *testing.T) {
	t.Parallel()

	nodes := []Node{
		{EmployeeID: "root"},
		{EmployeeID: "a", ManagerID: ptr("root")},
		{EmployeeID: "b", ManagerID: ptr("root")},
		{EmployeeID: "a1", ManagerID: ptr("a")},
		{EmployeeID: "b1", ManagerID: ptr("b")},
	}

	forest, err := Validate(nodes)
	require.NoError(t, err)

	// Act
	order := forest.TraversalOrder()

	// Assert
	assert.Equal(t, []string{"root", "a", "b", "a1", "b1"}, order)
}

func TestValidate_SelfReference_IsCycle(t *testing.T) {
	t.Parallel()

	nodes := []Node{
		{EmployeeID: "boss", ManagerID: ptr("boss")},
	}

	// Act
	_, err := Validate(nodes)

	// Assert
	var cycleErr *CycleError
	require.ErrorAs(t, err, &cycleErr)
	assert.Equal(t, []string{"boss"}, cycleErr.Members)
}

func TestValidate_TwoNodeCycle_NamesBothMembers(t *testing.T) {
	t.Parallel()

	nodes := []Node{
		{EmployeeID: "a", ManagerID: ptr("b")},
		{EmployeeID: "b", ManagerID: ptr("a")},
	}

	// Act
	_, err := Validate(nodes)

	// Assert
	var cycleErr *CycleError
	require.ErrorAs(t, err, &cycleErr)
	assert.ElementsMatch(t, []string{"a", "b"}, cycleErr.Members)
}

func TestValidate_CycleBelowValidChain_TrimsPathToCycle(t *testing.T) {
	t.Parallel()

	// head reports into a 3-cycle; head itself is not a cycle member.
	nodes := []Node{
		{EmployeeID: "head", ManagerID: ptr("x")},
		{EmployeeID: "x", ManagerID: ptr("y")},
		{EmployeeID: "y", ManagerID: ptr("z")},
		{EmployeeID: "z", ManagerID: ptr("x")},
	}

	// Act
	_, err := Validate(nodes)

	// Assert
	var cycleErr *CycleError
	require.ErrorAs(t, err, &cycleErr)
	assert.ElementsMatch(t, []string{"x", "y", "z"}, cycleErr.Members)
	assert.NotContains(t, cycleErr.Members, "head")
}

func TestValidate_UnknownManager_Fails(t *testing.T) {
	t.Parallel()

	nodes := []Node{
		{EmployeeID: "emp", ManagerID: ptr("missing")},
	}

	// Act
	_, err := Validate(nodes)

	// Assert
	var unknownErr *UnknownManagerError
	require.ErrorAs(t, err, &unknownErr)
	assert.Equal(t, "emp", unknownErr.EmployeeID)
	assert.Equal(t, "missing", unknownErr.ManagerID)
}

func TestValidate_DeepChain_NoFalseCycle(t *testing.T) {
	t.Parallel()

	// A 500-deep straight chain must validate; the chain walk marks done
	// nodes and never revisits them.
	nodes := []Node{{EmployeeID: "n0"}}
	for i := 1; i < 500; i++ {
		nodes = append(nodes, Node{
			EmployeeID: fmt.Sprintf("n%d", i),
			ManagerID:  ptr(fmt.Sprintf("n%d", i-1)),
		})
	}

	// Act
	forest, err := Validate(nodes)

	// Assert
	require.NoError(t, err)
	assert.Len(t, forest.TraversalOrder(), 500)
}

func TestValidate_EmptyRoster(t *testing.T) {
	t.Parallel()

	forest, err := Validate(nil)

	require.NoError(t, err)
	assert.Empty(t, forest.Roots())
	assert.Empty(t, forest.TraversalOrder())
}
