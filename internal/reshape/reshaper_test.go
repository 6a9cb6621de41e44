package reshape

import (
	"errors"
	"fmt"
	"testing"

	"github.com/agentic-research/kgtab/internal/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func person() *resource.Tree {
	return resource.FromPairs("id", "123", "type", "Type", "p1", "v1a", "p2", "v2a")
}

func nested() *resource.Tree {
	return resource.FromPairs("id", "678", "type", "Other", "p3", "v3c", "p4", person())
}

func TestReshape_KeepsSelectedFields(t *testing.T) {
	r := New("{x.id}-v1")

	got, err := r.Reshape(person(), []string{"type", "p1"}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"type", "p1"}, got.Keys())
	assert.True(t, resource.FromPairs("type", "Type", "p1", "v1a").Equal(got))
}

func TestReshape_RootsInFirstSeenOrder(t *testing.T) {
	got, err := New("").Reshape(nested(), []string{"p4.p2", "id", "p4.p1", "id"}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"p4", "id"}, got.Keys())

	p4, _ := got.Get("p4")
	assert.Equal(t, []string{"p2", "p1"}, p4.(*resource.Tree).Keys())
}

func TestReshape_Nested(t *testing.T) {
	r := New("")

	t.Run("with leaves", func(t *testing.T) {
		got, err := r.Reshape(nested(), []string{"id", "p4.p1"}, false)
		require.NoError(t, err)
		want := resource.FromPairs("id", "678", "p4", resource.FromPairs("p1", "v1a"))
		assert.True(t, want.Equal(got))
	})

	t.Run("bare root narrowed by leaves", func(t *testing.T) {
		got, err := r.Reshape(nested(), []string{"p4", "p4.p1"}, false)
		require.NoError(t, err)
		assert.True(t, resource.FromPairs("p4", resource.FromPairs("p1", "v1a")).Equal(got))
	})

	t.Run("without leaves is a shallow copy", func(t *testing.T) {
		src := nested()
		inner, _ := src.Get("p4")
		inner.(*resource.Tree).StoreMetadata = resource.FromPairs("_rev", 2)
		inner.(*resource.Tree).Synchronized = true

		got, err := r.Reshape(src, []string{"p4"}, false)
		require.NoError(t, err)
		p4, _ := got.Get("p4")
		copied := p4.(*resource.Tree)
		assert.True(t, person().Equal(copied))
		assert.NotSame(t, inner, copied)
		assert.False(t, copied.Synchronized)
		assert.Nil(t, copied.StoreMetadata)
	})

	t.Run("deep", func(t *testing.T) {
		deep := resource.FromPairs("a", resource.FromPairs("b", resource.FromPairs("c", "x", "d", "y")))
		got, err := r.Reshape(deep, []string{"a.b.c"}, false)
		require.NoError(t, err)
		want := resource.FromPairs("a", resource.FromPairs("b", resource.FromPairs("c", "x")))
		assert.True(t, want.Equal(got))
	})

	t.Run("leaves under a scalar are ignored", func(t *testing.T) {
		got, err := r.Reshape(person(), []string{"p1.sub"}, false)
		require.NoError(t, err)
		assert.True(t, resource.FromPairs("p1", "v1a").Equal(got))
	})
}

func TestReshape_Arrays(t *testing.T) {
	r := New("")
	src := resource.FromPairs(
		"id", "1",
		"members", resource.Array{person(), resource.FromPairs("id", "345", "p1", "v1b")},
		"tags", resource.Array{resource.String("a"), resource.String("b")},
	)

	t.Run("elements reshaped with leaves", func(t *testing.T) {
		got, err := r.Reshape(src, []string{"members.id"}, false)
		require.NoError(t, err)
		want := resource.FromPairs("members", resource.Array{
			resource.FromPairs("id", "123"),
			resource.FromPairs("id", "345"),
		})
		assert.True(t, want.Equal(got))
	})

	t.Run("tree elements emptied without leaves", func(t *testing.T) {
		got, err := r.Reshape(src, []string{"members", "tags"}, false)
		require.NoError(t, err)
		members, _ := got.Get("members")
		require.Len(t, members.(resource.Array), 2)
		for _, m := range members.(resource.Array) {
			assert.Equal(t, 0, m.(*resource.Tree).Len())
		}
		tags, _ := got.Get("tags")
		assert.True(t, resource.Equal(resource.Array{resource.String("a"), resource.String("b")}, tags))
	})

	t.Run("nested arrays without leaves", func(t *testing.T) {
		grid := resource.FromPairs("rows", resource.Array{
			resource.Array{person(), resource.String("s")},
		})
		got, err := r.Reshape(grid, []string{"rows"}, false)
		require.NoError(t, err)
		want := resource.FromPairs("rows", resource.Array{
			resource.Array{resource.New(), resource.String("s")},
		})
		assert.True(t, want.Equal(got))
	})

	t.Run("missing leaf in an element", func(t *testing.T) {
		_, err := r.Reshape(src, []string{"members.p2"}, false)
		assert.ErrorIs(t, err, ErrUnknownField)
	})

	t.Run("leaves under scalar elements", func(t *testing.T) {
		_, err := r.Reshape(src, []string{"tags.x"}, false)
		var uf *UnknownFieldError
		require.True(t, errors.As(err, &uf))
		assert.Equal(t, "tags.x", uf.Path)
	})
}

func TestReshape_Versioned(t *testing.T) {
	r := New("{x.id}-v1")

	got, err := r.Reshape(person(), []string{"id", "p1"}, true)
	require.NoError(t, err)
	id, _ := got.Get("id")
	assert.True(t, resource.Equal(resource.String("123-v1"), id))

	t.Run("unversioned keeps id", func(t *testing.T) {
		got, err := r.Reshape(person(), []string{"id"}, false)
		require.NoError(t, err)
		assert.Equal(t, "123", got.ID())
	})

	t.Run("nested ids use their own tree", func(t *testing.T) {
		got, err := r.Reshape(nested(), []string{"id", "p4.id"}, true)
		require.NoError(t, err)
		assert.Equal(t, "678-v1", got.ID())
		p4, _ := got.Get("p4")
		assert.Equal(t, "123-v1", p4.(*resource.Tree).ID())
	})

	t.Run("store metadata in template", func(t *testing.T) {
		src := person()
		src.StoreMetadata = resource.FromPairs("_rev", 4)
		got, err := New("{x.id}?rev={x._store_metadata._rev}").Reshape(src, []string{"id"}, true)
		require.NoError(t, err)
		assert.Equal(t, "123?rev=4", got.ID())
	})

	t.Run("template field missing", func(t *testing.T) {
		_, err := New("{x.id}?rev={x._store_metadata._rev}").Reshape(person(), []string{"id"}, true)
		assert.Error(t, err)
	})

	t.Run("malformed template", func(t *testing.T) {
		r := New("{x.id")
		_, err := r.Reshape(person(), []string{"p1"}, true)
		require.NoError(t, err)
		_, err = r.Reshape(person(), []string{"id"}, true)
		assert.Error(t, err)
	})
}

func TestReshape_UnknownField(t *testing.T) {
	r := New("")

	_, err := r.Reshape(person(), []string{"p1", "p9"}, false)
	require.ErrorIs(t, err, ErrUnknownField)
	var uf *UnknownFieldError
	require.True(t, errors.As(err, &uf))
	assert.Equal(t, "p9", uf.Field)

	_, err = r.Reshape(nested(), []string{"p4.p9"}, false)
	require.True(t, errors.As(err, &uf))
	assert.Equal(t, "p4.p9", uf.Path)
	assert.Contains(t, err.Error(), "p4.p9")
}

func TestReshape_PathSyntax(t *testing.T) {
	_, err := New("").Reshape(person(), []string{"", "p1", "p4."}, false)
	require.ErrorIs(t, err, ErrPathSyntax)
	assert.Contains(t, err.Error(), "keep[0]")
	assert.Contains(t, err.Error(), "keep[2]")
}

func TestReshape_MetadataReset(t *testing.T) {
	src := person()
	src.Synchronized = true
	src.Validated = true
	src.LastAction = &resource.Action{Operation: "register", Succeeded: true}
	src.StoreMetadata = resource.FromPairs("_rev", 1)

	got, err := New("").Reshape(src, []string{"id"}, false)
	require.NoError(t, err)
	assert.False(t, got.Synchronized)
	assert.False(t, got.Validated)
	assert.Nil(t, got.LastAction)
	assert.Nil(t, got.StoreMetadata)
}

func TestReshape_Idempotent(t *testing.T) {
	r := New("")
	for _, keep := range [][]string{
		{"id"},
		{"id", "p4.p1"},
		{"p3", "p4"},
		{"p4.p2", "type"},
	} {
		t.Run(fmt.Sprint(keep), func(t *testing.T) {
			once, err := r.Reshape(nested(), keep, false)
			require.NoError(t, err)
			twice, err := r.Reshape(once, keep, false)
			require.NoError(t, err)
			assert.True(t, once.Equal(twice))
		})
	}
}

func TestReshape_DoesNotMutateInput(t *testing.T) {
	src := nested()
	before := src.Clone()
	_, err := New("{x.id}-v1").Reshape(src, []string{"id", "p4.id"}, true)
	require.NoError(t, err)
	assert.True(t, before.Equal(src))
}

func TestReshapeMany(t *testing.T) {
	r := New("{x.id}-v1")
	got, err := r.ReshapeMany([]*resource.Tree{person(), nested()}, []string{"id", "type"}, true)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "123-v1", got[0].ID())
	assert.Equal(t, "678-v1", got[1].ID())

	_, err = r.ReshapeMany([]*resource.Tree{person(), nested()}, []string{"p1"}, false)
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestReshapeValue(t *testing.T) {
	r := New("")

	v, err := r.ReshapeValue(person(), []string{"id"}, false)
	require.NoError(t, err)
	assert.Equal(t, resource.KindTree, v.Kind())

	v, err = r.ReshapeValue(resource.Array{person(), nested()}, []string{"id"}, false)
	require.NoError(t, err)
	require.Len(t, v.(resource.Array), 2)

	_, err = r.ReshapeValue(resource.String("x"), []string{"id"}, false)
	assert.Error(t, err)
	_, err = r.ReshapeValue(resource.Array{resource.String("x")}, []string{"id"}, false)
	assert.Error(t, err)
}

func TestParsePathSpec(t *testing.T) {
	spec, err := ParsePathSpec([]string{"a.b.c", "d", "a.e"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "d"}, spec.Roots())
	assert.Nil(t, spec.Leaves("d"))
	assert.Equal(t, []string{"b", "e"}, spec.Leaves("a").Roots())
	assert.Equal(t, []string{"c"}, spec.Leaves("a").Leaves("b").Roots())

	empty, err := ParsePathSpec(nil)
	require.NoError(t, err)
	assert.True(t, empty.Empty())
}

func TestReshaper_CachesPathSpecs(t *testing.T) {
	r := New("")
	a, err := r.pathSpec([]string{"id", "p4.p1"})
	require.NoError(t, err)
	b, err := r.pathSpec([]string{"id", "p4.p1"})
	require.NoError(t, err)
	assert.Same(t, a, b)

	c, err := r.pathSpec([]string{"id"})
	require.NoError(t, err)
	assert.NotSame(t, a, c)

	_, err = r.pathSpec([]string{""})
	assert.ErrorIs(t, err, ErrPathSyntax)
	assert.Equal(t, 2, r.specs.Len())
}
