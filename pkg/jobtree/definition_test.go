package jobtree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTreeDefinition(t *testing.T) {
	def := threeLevelTree()

	assert.Equal(t, "tree1", def.Name())
	assert.Equal(t, "job1", def.Root().Name())
	assert.True(t, def.Root().IsRoot())
	assert.False(t, def.Root().IsLeaf())

	job3, err := def.Find("job3")
	require.NoError(t, err)
	assert.True(t, job3.IsLeaf())
	assert.Equal(t, "job2", job3.Parent().Name())
	assert.Same(t, def, job3.Tree())

	_, err = def.Find("job4")
	assert.True(t, IsUnknownJob(err))

	var names []string
	for _, j := range def.Jobs() {
		names = append(names, j.Name())
	}
	assert.Equal(t, []string{"job1", "job2", "job3"}, names)
}

func TestTreeDefinition_DuplicateJobPanics(t *testing.T) {
	def := NewTree("tree1", "job1")
	def.Root().Node("job2")

	assert.Panics(t, func() { def.Root().Node("job2") })
}

func TestJobDefinition_ChildSpecs(t *testing.T) {
	def := NewTree("tree1", "job1", WithChildren(func(r Resources) []ChildSpec {
		specs := make([]ChildSpec, 0, len(r))
		for _, v := range r {
			specs = append(specs, ChildSpec{Job: "job2", Append: []any{v}})
		}
		return specs
	}))
	leaf := def.Root().Node("job2")

	specs := def.Root().ChildSpecs(Resources{"a", "b"})
	assert.Len(t, specs, 2)
	assert.Nil(t, leaf.ChildSpecs(Resources{"a"}), "no rule means no children")
}

func TestCatalog(t *testing.T) {
	other := NewTree("tree2", "root")
	catalog, err := NewCatalog(threeLevelTree(), other)
	require.NoError(t, err)

	job, err := catalog.LookupJob("tree1", "job2")
	require.NoError(t, err)
	assert.Equal(t, "job2", job.Name())

	_, err = catalog.LookupJob("tree3", "job2")
	assert.True(t, IsUnknownJob(err))

	assert.Len(t, catalog.Trees(), 2)
	assert.Equal(t, "tree1", catalog.Trees()[0].Name())

	_, err = NewCatalog(other, NewTree("tree2", "x"))
	assert.Error(t, err)
}
