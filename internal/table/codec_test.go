package table

import (
	"errors"
	"math"
	"testing"

	"github.com/agentic-research/kgtab/internal/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func r1() *resource.Tree {
	return resource.FromPairs("id", "123", "type", "Type", "p1", "v1a", "p2", "v2a")
}

func r2() *resource.Tree {
	return resource.FromPairs("id", "345", "type", "Type", "p1", "v1b", "p2", "v2b")
}

func r3() *resource.Tree {
	return resource.FromPairs("id", "678", "type", "Other", "p3", "v3c", "p4", r1())
}

func r4() *resource.Tree {
	return resource.FromPairs("id", "912", "type", "Other", "p3", "v3d", "p4", r2())
}

func cellString(t *testing.T, tbl *Table, col string, row int) string {
	t.Helper()
	c := tbl.Column(col)
	require.NotNil(t, c, "column %q", col)
	v, ok := c.Cell(row)
	require.True(t, ok, "column %q row %d is NA", col, row)
	s, ok := v.(resource.Scalar).Str()
	require.True(t, ok)
	return s
}

func TestToTable_Basic(t *testing.T) {
	tbl, err := ToTable([]*resource.Tree{r1(), r2()}, ToOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "type", "p1", "p2"}, tbl.Names())
	assert.Equal(t, 2, tbl.NumRows())
	assert.Equal(t, "345", cellString(t, tbl, "id", 1))
	assert.Equal(t, "v2a", cellString(t, tbl, "p2", 0))
}

func TestToTable_Expanded(t *testing.T) {
	tbl, err := ToTable([]*resource.Tree{r3()}, ToOptions{Expanded: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"@id", "@type", "p3", "p4.@id", "p4.@type", "p4.p1", "p4.p2"}, tbl.Names())
}

func TestToTable_Empty(t *testing.T) {
	tbl, err := ToTable(nil, ToOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.NumRows())
	assert.Equal(t, 0, tbl.NumColumns())
}

func TestToTable_StoreMetadata(t *testing.T) {
	a, b := r1(), r2()
	a.StoreMetadata = resource.FromPairs("version", 1, "deprecated", false)
	b.StoreMetadata = resource.FromPairs("version", 4, "deprecated", true, "updatedBy", "me")

	tbl, err := ToTable([]*resource.Tree{a, b}, ToOptions{StoreMetadata: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "type", "p1", "p2", "version", "deprecated", "updatedBy"}, tbl.Names())
	assert.True(t, tbl.Column("updatedBy").IsNA(0))

	v, ok := tbl.Column("version").Cell(1)
	require.True(t, ok)
	assert.True(t, resource.Equal(resource.Int(4), v))

	t.Run("without flag", func(t *testing.T) {
		tbl, err := ToTable([]*resource.Tree{a, b}, ToOptions{})
		require.NoError(t, err)
		assert.Nil(t, tbl.Column("version"))
	})

	t.Run("collision with data column", func(t *testing.T) {
		c := r1()
		c.Set("version", resource.String("x"))
		c.StoreMetadata = resource.FromPairs("version", 1)
		_, err := ToTable([]*resource.Tree{c}, ToOptions{StoreMetadata: true})
		assert.ErrorIs(t, err, ErrShapeConflict)
	})
}

func TestToTable_Missing(t *testing.T) {
	a := r1()
	a.Set("p2", resource.Null())
	b := r2()
	b.Set("p1", resource.Float(math.NaN()))

	tbl, err := ToTable([]*resource.Tree{a, b}, ToOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "type", "p1", "p2"}, tbl.Names())
	assert.True(t, tbl.Column("p2").IsNA(0))
	assert.True(t, tbl.Column("p1").IsNA(1))
	assert.Equal(t, 1, tbl.Column("p1").NACount())
}

func TestToTable_NASentinels(t *testing.T) {
	a := r1()
	a.Set("p2", resource.String("n/a"))
	b := r2()
	b.Set("p1", resource.String("unknown"))

	tests := []struct {
		name string
		na   []resource.Value
		p2NA bool
		p1NA bool
	}{
		{name: "none", na: nil},
		{name: "single", na: resource.Strings("n/a"), p2NA: true},
		{name: "many", na: resource.Strings("n/a", "unknown"), p2NA: true, p1NA: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := ToTable([]*resource.Tree{a, b}, ToOptions{NA: tt.na})
			require.NoError(t, err)
			assert.Equal(t, tt.p2NA, tbl.Column("p2").IsNA(0))
			assert.Equal(t, tt.p1NA, tbl.Column("p1").IsNA(1))
		})
	}
}

func TestToTable_Nesting(t *testing.T) {
	t.Run("depth 1", func(t *testing.T) {
		tbl, err := ToTable([]*resource.Tree{r3(), r4()}, ToOptions{})
		require.NoError(t, err)
		assert.Equal(t, []string{"id", "type", "p3", "p4.id", "p4.type", "p4.p1", "p4.p2"}, tbl.Names())
		assert.Equal(t, "v1b", cellString(t, tbl, "p4.p1", 1))
	})

	t.Run("depth 2", func(t *testing.T) {
		deep := resource.FromPairs("id", "1", "p5", r3())
		tbl, err := ToTable([]*resource.Tree{deep}, ToOptions{})
		require.NoError(t, err)
		assert.Equal(t, []string{"id", "p5.id", "p5.type", "p5.p3", "p5.p4.id", "p5.p4.type", "p5.p4.p1", "p5.p4.p2"}, tbl.Names())
	})

	t.Run("custom delimiter", func(t *testing.T) {
		tbl, err := ToTable([]*resource.Tree{r3()}, ToOptions{Delimiter: "__"})
		require.NoError(t, err)
		assert.Equal(t, []string{"id", "type", "p3", "p4__id", "p4__type", "p4__p1", "p4__p2"}, tbl.Names())
	})

	t.Run("empty nested tree adds no column", func(t *testing.T) {
		tr := resource.FromPairs("id", "1", "p4", resource.New())
		tbl, err := ToTable([]*resource.Tree{tr}, ToOptions{})
		require.NoError(t, err)
		assert.Equal(t, []string{"id"}, tbl.Names())
	})

	t.Run("arrays stay single cells", func(t *testing.T) {
		tr := resource.FromPairs("id", "1", "tags", resource.Array{resource.String("a"), resource.FromPairs("k", "v")})
		tbl, err := ToTable([]*resource.Tree{tr}, ToOptions{})
		require.NoError(t, err)
		assert.Equal(t, []string{"id", "tags"}, tbl.Names())
	})
}

func TestToTable_ColumnUnion(t *testing.T) {
	tbl, err := ToTable([]*resource.Tree{
		resource.FromPairs("a", 1),
		resource.FromPairs("b", 2, "a", 3),
		resource.FromPairs("c", 4),
	}, ToOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c"}, tbl.Names())
	assert.True(t, tbl.Column("b").IsNA(0))
	assert.True(t, tbl.Column("c").IsNA(0))
	assert.True(t, tbl.Column("c").IsNA(1))
	assert.True(t, tbl.Column("a").IsNA(2))
	for _, c := range tbl.Columns() {
		assert.Equal(t, 3, c.Len())
	}
}

func TestToTable_DuplicateColumn(t *testing.T) {
	tr := resource.FromPairs("a.b", 1, "a", resource.FromPairs("b", 2))
	_, err := ToTable([]*resource.Tree{tr}, ToOptions{})
	require.Error(t, err)

	var sc *ShapeConflictError
	require.True(t, errors.As(err, &sc))
	assert.Equal(t, "a.b", sc.Column)
	assert.Equal(t, 0, sc.Row)
}

func TestFromTable_Basic(t *testing.T) {
	tbl := New("@id", "@type", "p1", "p2")
	require.NoError(t, tbl.AppendRow(S("123"), S("Type"), S("v1a"), S("v2a")))
	require.NoError(t, tbl.AppendRow(S("345"), S("Type"), S("v1b"), S("v2b")))

	trees, err := FromTable(tbl, FromOptions{})
	require.NoError(t, err)
	require.Len(t, trees, 2)
	assert.True(t, r1().Equal(trees[0]))
	assert.True(t, r2().Equal(trees[1]))
	assert.Equal(t, []string{"id", "type", "p1", "p2"}, trees[0].Keys())
	assert.False(t, trees[0].Synchronized)
	assert.Nil(t, trees[0].StoreMetadata)
}

func TestFromTable_Nesting(t *testing.T) {
	tests := []struct {
		name  string
		delim string
		cols  []string
	}{
		{name: "dot", cols: []string{"id", "type", "p3", "p4.id", "p4.type", "p4.p1", "p4.p2"}},
		{name: "double underscore", delim: "__", cols: []string{"id", "type", "p3", "p4__id", "p4__type", "p4__p1", "p4__p2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := New(tt.cols...)
			require.NoError(t, tbl.AppendRow(S("678"), S("Other"), S("v3c"), S("123"), S("Type"), S("v1a"), S("v2a")))
			require.NoError(t, tbl.AppendRow(S("912"), S("Other"), S("v3d"), S("345"), S("Type"), S("v1b"), S("v2b")))

			trees, err := FromTable(tbl, FromOptions{Delimiter: tt.delim})
			require.NoError(t, err)
			require.Len(t, trees, 2)
			assert.True(t, r3().Equal(trees[0]))
			assert.True(t, r4().Equal(trees[1]))
		})
	}
}

func TestFromTable_Deep(t *testing.T) {
	tbl := New("a.b.c")
	require.NoError(t, tbl.AppendRow(S("x")))

	trees, err := FromTable(tbl, FromOptions{})
	require.NoError(t, err)
	want := resource.FromPairs("a", resource.FromPairs("b", resource.FromPairs("c", "x")))
	assert.True(t, want.Equal(trees[0]))
}

func TestFromTable_NestedNA(t *testing.T) {
	tbl := New("id", "p4.p1", "p4.p2.p5")
	require.NoError(t, tbl.AppendRow(S("1"), S("a"), S("b")))
	require.NoError(t, tbl.AppendRow(S("2"), S("c"), NA))
	require.NoError(t, tbl.AppendRow(S("3"), NA, NA))
	require.NoError(t, tbl.AppendRow(S("4"), S("none"), S("d")))

	trees, err := FromTable(tbl, FromOptions{NA: resource.Strings("none")})
	require.NoError(t, err)
	require.Len(t, trees, 4)

	assert.True(t, resource.FromPairs("id", "1", "p4", resource.FromPairs("p1", "a", "p2", resource.FromPairs("p5", "b"))).Equal(trees[0]))
	assert.True(t, resource.FromPairs("id", "2", "p4", resource.FromPairs("p1", "c")).Equal(trees[1]))
	assert.True(t, resource.FromPairs("id", "3").Equal(trees[2]))
	assert.True(t, resource.FromPairs("id", "4", "p4", resource.FromPairs("p2", resource.FromPairs("p5", "d"))).Equal(trees[3]))
}

func TestFromTable_SeveralSentinels(t *testing.T) {
	tbl := New("id", "p1", "p4.p1", "p4.p2")
	require.NoError(t, tbl.AppendRow(S("1"), S("NA"), S("(missing)"), S("v2")))
	require.NoError(t, tbl.AppendRow(S("2"), S("(missing)"), S("NA"), NA))
	require.NoError(t, tbl.AppendRow(S("3"), S("v1"), S("v3"), S("NA")))

	trees, err := FromTable(tbl, FromOptions{NA: resource.Strings("NA", "(missing)")})
	require.NoError(t, err)
	require.Len(t, trees, 3)

	assert.True(t, resource.FromPairs("id", "1", "p4", resource.FromPairs("p2", "v2")).Equal(trees[0]))
	assert.True(t, resource.FromPairs("id", "2").Equal(trees[1]))
	assert.True(t, resource.FromPairs("id", "3", "p1", "v1", "p4", resource.FromPairs("p1", "v3")).Equal(trees[2]))
}

func TestFromTable_NullCellIsNA(t *testing.T) {
	tbl := New("id", "p1")
	require.NoError(t, tbl.AppendRow(S("1"), V(resource.Null())))
	require.NoError(t, tbl.AppendRow(S("2"), V(resource.Float(math.NaN()))))

	trees, err := FromTable(tbl, FromOptions{})
	require.NoError(t, err)
	for _, tr := range trees {
		assert.False(t, tr.Has("p1"))
	}
}

func TestFromTable_ShapeConflict(t *testing.T) {
	t.Run("scalar then nested", func(t *testing.T) {
		tbl := New("a", "a.b")
		require.NoError(t, tbl.AppendRow(S("x"), S("y")))
		_, err := FromTable(tbl, FromOptions{})
		require.ErrorIs(t, err, ErrShapeConflict)

		var sc *ShapeConflictError
		require.True(t, errors.As(err, &sc))
		assert.Equal(t, "a.b", sc.Column)
		assert.Equal(t, "a", sc.Path)
	})

	t.Run("nested then scalar", func(t *testing.T) {
		tbl := New("a.b", "a")
		require.NoError(t, tbl.AppendRow(S("y"), S("x")))
		_, err := FromTable(tbl, FromOptions{})
		assert.ErrorIs(t, err, ErrShapeConflict)
	})

	t.Run("same field twice", func(t *testing.T) {
		tbl := New("id", "@id")
		require.NoError(t, tbl.AppendRow(S("1"), S("2")))
		_, err := FromTable(tbl, FromOptions{})
		assert.ErrorIs(t, err, ErrShapeConflict)
	})

	t.Run("no conflict when one side is NA", func(t *testing.T) {
		tbl := New("a", "a.b")
		require.NoError(t, tbl.AppendRow(S("x"), NA))
		require.NoError(t, tbl.AppendRow(NA, S("y")))
		trees, err := FromTable(tbl, FromOptions{})
		require.NoError(t, err)
		assert.True(t, resource.FromPairs("a", "x").Equal(trees[0]))
		assert.True(t, resource.FromPairs("a", resource.FromPairs("b", "y")).Equal(trees[1]))
	})
}

func TestFromTable_BadColumnName(t *testing.T) {
	for _, name := range []string{"p4.", ".p1", "a..b"} {
		t.Run(name, func(t *testing.T) {
			tbl := New(name)
			require.NoError(t, tbl.AppendRow(S("x")))
			_, err := FromTable(tbl, FromOptions{})
			assert.ErrorIs(t, err, resource.ErrPathSyntax)
		})
	}
}

func TestRoundTrip_TableFirst(t *testing.T) {
	tbl := New("id", "type", "p1", "p2")
	require.NoError(t, tbl.AppendRow(S("123"), S("Type"), S("v1a"), S("v2a")))
	require.NoError(t, tbl.AppendRow(S("345"), S("Type"), S("v1b"), S("v2b")))

	trees, err := FromTable(tbl, FromOptions{})
	require.NoError(t, err)
	back, err := ToTable(trees, ToOptions{})
	require.NoError(t, err)
	assert.True(t, tbl.Equal(back))
}

func TestRoundTrip_TreesFirst(t *testing.T) {
	batches := map[string][]*resource.Tree{
		"flat":          {r1(), r2()},
		"nested":        {r3(), r4()},
		"heterogeneous": {r1(), r3(), resource.FromPairs("p5", "v5e", "p6", "v6e")},
		"mixed shapes":  {resource.FromPairs("a", "x"), resource.FromPairs("a", resource.FromPairs("b", "y"))},
	}
	for name, trees := range batches {
		t.Run(name, func(t *testing.T) {
			for _, delim := range []string{"", "__"} {
				tbl, err := ToTable(trees, ToOptions{Delimiter: delim})
				require.NoError(t, err)
				back, err := FromTable(tbl, FromOptions{Delimiter: delim})
				require.NoError(t, err)
				require.Len(t, back, len(trees))
				for i := range trees {
					assert.True(t, trees[i].Equal(back[i]), "row %d", i)
				}
			}
		})
	}
}

func TestToTable_Deterministic(t *testing.T) {
	trees := []*resource.Tree{r3(), r1(), r4()}
	a, err := ToTable(trees, ToOptions{})
	require.NoError(t, err)
	b, err := ToTable(trees, ToOptions{})
	require.NoError(t, err)
	assert.True(t, a.Equal(b))
}
