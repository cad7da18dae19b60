package generator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newGolden(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestScanNames(t *testing.T) {
	models, err := ScanNames("testdata/models")
	require.NoError(t, err)
	assert.Equal(t, []string{"Person", "Post"}, models)

	_, err = ScanNames("testdata/missing")
	assert.Error(t, err)
}

func TestParseRelation(t *testing.T) {
	rels, err := ParseRelation("Person_FOLLOWS_Person", []string{"Person", "Post"})
	require.NoError(t, err)
	assert.Equal(t, []Relation{{
		Source: "Person_FOLLOWS_Person", Name: "Person_FOLLOWS_Person",
		StartLabel: "Person", EndLabel: "Person", RelationType: "Person_FOLLOWS_Person",
	}}, rels)

	rels, err = ParseRelation("X_LIKES_Post", []string{"Person", "Post"})
	require.NoError(t, err)
	require.Len(t, rels, 2)
	assert.Equal(t, "Person_LIKES_Post", rels[0].Name)
	assert.Equal(t, "Person", rels[0].StartLabel)
	assert.Equal(t, "Post_LIKES_Post", rels[1].RelationType)
	assert.Equal(t, "X_LIKES_Post", rels[1].Source)

	// 关系类型中间可以带下划线
	rels, err = ParseRelation("Person_WORKS_AT_Company", nil)
	require.NoError(t, err)
	assert.Equal(t, "Company", rels[0].EndLabel)

	_, err = ParseRelation("FOLLOWS", nil)
	assert.ErrorIs(t, err, ErrInvalidName)
	_, err = ParseRelation("Person__Post", nil)
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestRender_Sid(t *testing.T) {
	src, err := Render(Options{
		ModelsImport:    "example.com/app/models",
		RelationsImport: "example.com/app/relations",
		Package:         "library",
		Sid:             true,
	}, []string{"Person", "Post"}, []string{"Person_FOLLOWS_Person", "X_LIKES_Post"})
	require.NoError(t, err)
	newGolden(t).Assert(t, "library_sid", src)
}

func TestRender_Scd(t *testing.T) {
	src, err := Render(Options{
		ModelsImport:    "example.com/app/models",
		RelationsImport: "example.com/app/relations",
		Package:         "graphlib",
		Scd:             true,
	}, []string{"Person", "Post"}, []string{"Person_WORKS_AT_Company"})
	require.NoError(t, err)
	newGolden(t).Assert(t, "library_scd", src)
}

func TestRender_Errors(t *testing.T) {
	opts := Options{ModelsImport: "m", RelationsImport: "r", Package: "library"}

	_, err := Render(opts, nil, nil)
	assert.ErrorIs(t, err, ErrNothingToGenerate)

	_, err = Render(opts, []string{"bad-name"}, nil)
	assert.ErrorIs(t, err, ErrInvalidName)

	_, err = Render(Options{Package: "library"}, []string{"Person"}, nil)
	assert.ErrorContains(t, err, "models import")

	_, err = Render(Options{Package: "library", ModelsImport: "m"}, []string{"Person"}, []string{"Person_KNOWS_Person"})
	assert.ErrorContains(t, err, "relations import")

	// 非法的包名导致格式化失败
	_, err = Render(Options{ModelsImport: "m", Package: "not a package"}, []string{"Person"}, nil)
	assert.ErrorContains(t, err, "format")
}

func TestGenerate(t *testing.T) {
	out := filepath.Join(t.TempDir(), "gen")
	path, err := Generate(Options{
		DirModel:        "testdata/models",
		DirRelation:     "testdata/relations",
		ModelsImport:    "example.com/app/models",
		RelationsImport: "example.com/app/relations",
		WriteTo:         out,
		FileName:        "library",
		Package:         "library",
		Sid:             true,
	}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "library.go"), path)

	written, err := os.ReadFile(path)
	require.NoError(t, err)
	newGolden(t).Assert(t, "library_sid", written)
}
