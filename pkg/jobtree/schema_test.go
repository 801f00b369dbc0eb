package jobtree

import (
	"strings"
	"testing"
)

// TestNodeKey tests node key generation
func TestNodeKey(t *testing.T) {
	key := NodeKey("JobsTree", `["tree1","job2",1,2,3]`)

	expected := `JobsTree:Node:["tree1","job2",1,2,3]`
	if key != expected {
		t.Errorf("NodeKey() = %q, expected %q", key, expected)
	}
	if !strings.HasPrefix(key, NodeKeyPrefix("JobsTree")) {
		t.Error("node key should start with the node key prefix")
	}
}

// TestParentsKey tests parent linkage key generation
func TestParentsKey(t *testing.T) {
	nodeKey := `JobsTree:Node:["tree1","job2",1,2,3]`

	key := ParentsKey("JobsTree", nodeKey)

	expected := `JobsTree:Node:Parents:JobsTree:Node:["tree1","job2",1,2,3]`
	if key != expected {
		t.Errorf("ParentsKey() = %q, expected %q", key, expected)
	}
	if !strings.HasPrefix(key, ParentsKeyPrefix("JobsTree")) {
		t.Error("parents key should start with the parents key prefix")
	}
}

// TestChildrenKeys tests the set keys hanging off a node key
func TestChildrenKeys(t *testing.T) {
	nodeKey := `JobsTree:Node:["tree1","job1"]`

	if got := ChildrenKey(nodeKey); got != nodeKey+":children" {
		t.Errorf("ChildrenKey() = %q", got)
	}
	if got := FinishedChildrenKey(nodeKey); got != nodeKey+":finished_children" {
		t.Errorf("FinishedChildrenKey() = %q", got)
	}
}

// TestTreeKeys tests tree registry key generation
func TestTreeKeys(t *testing.T) {
	if got := LaunchedTreesKey("JobsTree"); got != "JobsTree:Tree:Launched" {
		t.Errorf("LaunchedTreesKey() = %q", got)
	}
	if got := TreeKey("JobsTree", `["tree1",1]`); got != `JobsTree:Tree:["tree1",1]` {
		t.Errorf("TreeKey() = %q", got)
	}
}

// TestNamespaceIsolation verifies different namespaces never share keys
func TestNamespaceIsolation(t *testing.T) {
	a := NodeKey("a", `["t","j"]`)
	b := NodeKey("b", `["t","j"]`)
	if a == b {
		t.Error("node keys of different namespaces should differ")
	}
	if LaunchedTreesKey("a") == LaunchedTreesKey("b") {
		t.Error("launched tree keys of different namespaces should differ")
	}
}
