package neo4jdal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryBuilder_EmptyBuild(t *testing.T) {
	q := NewQueryBuilder().Build()
	assert.Equal(t, "", q.Cypher)
	assert.NotNil(t, q.Params)
	assert.Empty(t, q.Params)
}

func TestQueryBuilder_RenderAllClauseKinds(t *testing.T) {
	tests := []struct {
		name string
		b    QueryBuilder
		want string
	}{
		{"select", NewQueryBuilder().Select("a", "b"), "WITH a, b "},
		{"match 单片段", NewQueryBuilder().Match("(n:Person)"), "MATCH (n:Person) "},
		{"match 多片段", NewQueryBuilder().Match("(a:Person)", "(b:Person)"), "MATCH (a:Person), (b:Person) "},
		{"where", NewQueryBuilder().Where("n.name = $name"), "WHERE n.name = $name "},
		{"set", NewQueryBuilder().Set("n += $node"), "SET n += $node "},
		{"create", NewQueryBuilder().Create("(n:Person $props)"), "CREATE (n:Person $props) "},
		{"delete", NewQueryBuilder().Delete("n", "r"), "DELETE n, r "},
		{"detach delete", NewQueryBuilder().DetachDelete("n"), "DETACH DELETE n "},
		{"return", NewQueryBuilder().Return("n", "id(n) AS id"), "RETURN n, id(n) AS id "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.b.Build().Cypher)
		})
	}
}

func TestQueryBuilder_AccumulationOrder(t *testing.T) {
	q := NewQueryBuilder().
		Match("(n:Person)").
		Where("n.name = $value", map[string]any{"value": "Ada"}).
		Set("n += $node", map[string]any{"node": map[string]any{"age": 36}}).
		Return("n").
		Build()

	assert.Equal(t, "MATCH (n:Person) WHERE n.name = $value SET n += $node RETURN n ", q.Cypher)
	assert.Equal(t, map[string]any{
		"value": "Ada",
		"node":  map[string]any{"age": 36},
	}, q.Params)
}

func TestQueryBuilder_RepeatedMatchProducesIndependentClauses(t *testing.T) {
	b := NewQueryBuilder().Match("(a:Person)", "(b:Person)").Match("(c:City)")
	clauses := b.Clauses()
	require.Len(t, clauses, 2)
	assert.Equal(t, KindMatch, clauses[0].Kind)
	assert.Equal(t, "MATCH (a:Person), (b:Person)", clauses[0].Text)
	assert.Equal(t, "MATCH (c:City)", clauses[1].Text)
}

func TestQueryBuilder_BuildIsDeterministic(t *testing.T) {
	b := NewQueryBuilder().
		Match("(n:Person)").
		Where("id(n) = toInteger($id)", map[string]any{"id": "7"}).
		Return("n")
	first := b.Build()
	second := b.Build()
	assert.Equal(t, first, second)
}

func TestQueryBuilder_AppendDoesNotMutateReceiver(t *testing.T) {
	b1 := NewQueryBuilder().Match("(n:Person)")
	before := b1.Build()

	b2 := b1.Where("n.name = $name", map[string]any{"name": "Ada"})
	b3 := b1.Return("n")

	assert.Equal(t, before, b1.Build())
	assert.Equal(t, "MATCH (n:Person) WHERE n.name = $name ", b2.Build().Cypher)
	assert.Equal(t, "MATCH (n:Person) RETURN n ", b3.Build().Cypher)
	assert.Equal(t, 1, b1.Len())
}

func TestQueryBuilder_SiblingBuildersDoNotShareBackingArray(t *testing.T) {
	base := NewQueryBuilder().Match("(a)").Match("(b)").Match("(c)")
	left := base.Return("a")
	right := base.Return("b")
	assert.Equal(t, "MATCH (a) MATCH (b) MATCH (c) RETURN a ", left.Build().Cypher)
	assert.Equal(t, "MATCH (a) MATCH (b) MATCH (c) RETURN b ", right.Build().Cypher)
}

func TestQueryBuilder_ParamsAreCopiedOnAppend(t *testing.T) {
	params := map[string]any{"id": "1"}
	b := NewQueryBuilder().Match("(n)").Where("id(n) = toInteger($id)", params)
	params["id"] = "2"
	params["extra"] = true

	assert.Equal(t, map[string]any{"id": "1"}, b.Build().Params)
}

func TestQueryBuilder_ParamMergeLastWriteWins(t *testing.T) {
	q := NewQueryBuilder().
		Match("(n)").
		Where("id(n) = $id", map[string]any{"id": "first"}).
		Match("(m)").
		Where("id(m) = $id", map[string]any{"id": "second"}).
		Build()
	assert.Equal(t, "second", q.Params["id"])
	assert.Len(t, q.Params, 1)
}

func TestQueryBuilder_Validate(t *testing.T) {
	tests := []struct {
		name    string
		b       QueryBuilder
		wantErr bool
	}{
		{"空计划", NewQueryBuilder(), false},
		{"match-where-return", NewQueryBuilder().Match("(n)").Where("n.a = 1").Return("n"), false},
		{"match-where-set-return", NewQueryBuilder().Match("(n)").Where("x").Set("n.a = 1").Return("n"), false},
		{"match-where-create-return", NewQueryBuilder().Match("(a)", "(b)").Where("x").Create("(a)-[:R]->(b)").Return("a"), false},
		{"match-where-delete", NewQueryBuilder().Match("(n)").Where("x").Delete("n"), false},
		{"create 开头", NewQueryBuilder().Create("(n:Person)").Return("n"), false},
		{"with 管道后 match", NewQueryBuilder().Create("(n)").Select("n").Match("(m)").Return("m"), false},
		{"where 开头", NewQueryBuilder().Where("x"), true},
		{"set 开头", NewQueryBuilder().Set("n.a = 1"), true},
		{"where 跟在 set 后", NewQueryBuilder().Match("(n)").Set("n.a = 1").Where("x"), true},
		{"create 后直接 match", NewQueryBuilder().Create("(n)").Match("(m)"), true},
		{"return 之后还有片段", NewQueryBuilder().Match("(n)").Return("n").Delete("n"), true},
		{"delete 紧跟 return 之前无 match", NewQueryBuilder().Delete("n"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.b.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidClauseOrder)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestClauseKind_String(t *testing.T) {
	assert.Equal(t, "MATCH", KindMatch.String())
	assert.Equal(t, "RETURN", KindReturn.String())
	assert.Equal(t, "ClauseKind(42)", ClauseKind(42).String())
}

func TestValidIdentifier(t *testing.T) {
	for _, name := range []string{"Person", "FOLLOWS", "_x", "created_at", "A1"} {
		assert.True(t, ValidIdentifier(name), name)
	}
	for _, name := range []string{"", "1A", "a-b", "a b", "n) DETACH DELETE (m", "`x`"} {
		assert.False(t, ValidIdentifier(name), name)
	}
}
