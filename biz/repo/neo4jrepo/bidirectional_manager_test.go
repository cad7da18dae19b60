package neo4jrepo_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"neo4jorm/biz/dal/neo4jdal"
	"neo4jorm/biz/dal/neo4jdal/neo4jdaltest"
	"neo4jorm/biz/repo/neo4jrepo"
)

func cypherFor(relType string) any {
	return mock.MatchedBy(func(cypher string) bool {
		return strings.Contains(cypher, "[r:"+relType)
	})
}

func relRecord(relType string, id, start, end int64, props map[string]any) *neo4j.Record {
	return neo4jdaltest.Record(
		"type", relType,
		"properties", props,
		"id", id,
		"startNodeId", start,
		"endNodeId", end,
	)
}

func newFriendship(t *testing.T, opts ...neo4jrepo.Option) *neo4jrepo.BidirectionalManager[Follows, Follows] {
	t.Helper()
	forward, err := neo4jrepo.NewSidRelationManager[Follows]("Person", "Person", "FOLLOWS")
	require.NoError(t, err)
	reverse, err := neo4jrepo.NewSidRelationManager[Follows]("Person", "Person", "FOLLOWED_BY")
	require.NoError(t, err)
	return neo4jrepo.NewBidirectionalManager[Follows, Follows](forward, reverse, opts...)
}

func TestBidirectionalManager_CreateSwapsEndpoints(t *testing.T) {
	ctx := context.Background()
	session := new(neo4jdaltest.MockSession)
	session.On("Run", ctx, cypherFor("FOLLOWS"), mock.MatchedBy(func(p map[string]any) bool {
		return p["startNodeId"] == "1" && p["endNodeId"] == "2"
	})).Return(neo4jdaltest.NewResult(relRecord("FOLLOWS", 10, 1, 2, map[string]any{"sid": "s"})), nil).Once()
	session.On("Run", ctx, cypherFor("FOLLOWED_BY"), mock.MatchedBy(func(p map[string]any) bool {
		return p["startNodeId"] == "2" && p["endNodeId"] == "1"
	})).Return(neo4jdaltest.NewResult(relRecord("FOLLOWED_BY", 20, 2, 1, map[string]any{"sid": "s"})), nil).Once()

	pair, err := newFriendship(t).Create(ctx, session, "1", "2", Follows{Since: "2020"}, Follows{Since: "2020"})
	require.NoError(t, err)
	assert.Equal(t, pair.Forward.StartNodeID, pair.Reverse.EndNodeID)
	assert.Equal(t, pair.Forward.EndNodeID, pair.Reverse.StartNodeID)
	assert.Equal(t, "FOLLOWS", pair.Forward.Type)
	assert.Equal(t, "FOLLOWED_BY", pair.Reverse.Type)
	session.AssertExpectations(t)
}

func TestBidirectionalManager_CreatePartialCommit(t *testing.T) {
	ctx := context.Background()
	reverseErr := errors.New("reverse write rejected")
	session := new(neo4jdaltest.MockSession)
	session.On("Run", ctx, cypherFor("FOLLOWS"), mock.Anything).
		Return(neo4jdaltest.NewResult(relRecord("FOLLOWS", 10, 1, 2, map[string]any{"sid": "s-1"})), nil).Once()
	session.On("Run", ctx, cypherFor("FOLLOWED_BY"), mock.Anything).Return(nil, reverseErr).Once()

	var notified *neo4jrepo.PartialCommitError
	m := newFriendship(t, neo4jrepo.WithPartialCommitHandler(func(_ context.Context, err *neo4jrepo.PartialCommitError) {
		notified = err
	}))

	pair, err := m.Create(ctx, session, "1", "2", Follows{}, Follows{})
	assert.ErrorIs(t, err, neo4jrepo.ErrPartialCommit)
	assert.ErrorIs(t, err, reverseErr)
	var pce *neo4jrepo.PartialCommitError
	require.ErrorAs(t, err, &pce)
	assert.Equal(t, "create", pce.Op)
	assert.Equal(t, neo4jrepo.DirectionForward, pce.Committed)
	assert.Equal(t, "s-1", pce.Keys["forwardSid"])
	// 已提交的正向边仍然返回给调用方
	assert.Equal(t, "FOLLOWS", pair.Forward.Type)
	require.NotNil(t, notified)
	assert.Same(t, pce, notified)
}

func TestBidirectionalManager_ForwardFailureIsNotPartial(t *testing.T) {
	ctx := context.Background()
	forwardErr := errors.New("forward failed")
	session := new(neo4jdaltest.MockSession)
	session.On("Run", ctx, cypherFor("FOLLOWS"), mock.Anything).Return(nil, forwardErr).Once()

	_, err := newFriendship(t).Create(ctx, session, "1", "2", Follows{}, Follows{})
	assert.ErrorIs(t, err, forwardErr)
	assert.NotErrorIs(t, err, neo4jrepo.ErrPartialCommit)
	session.AssertNotCalled(t, "Run", ctx, cypherFor("FOLLOWED_BY"), mock.Anything)
}

func TestBidirectionalManager_FindAllSwapsReverseEndpoints(t *testing.T) {
	ctx := context.Background()
	session := new(neo4jdaltest.MockSession)
	session.On("Run", ctx, cypherFor("FOLLOWS"), mock.Anything).
		Return(neo4jdaltest.NewResult(relRecord("FOLLOWS", 10, 1, 2, map[string]any{})), nil).Once()
	session.On("Run", ctx, cypherFor("FOLLOWED_BY"), mock.Anything).
		Return(neo4jdaltest.NewResult(relRecord("FOLLOWED_BY", 20, 2, 1, map[string]any{})), nil).Once()

	kp, err := newFriendship(t).FindAll(ctx, session)
	require.NoError(t, err)
	require.Len(t, kp.Forward, 1)
	require.Len(t, kp.Reverse, 1)
	// 原始反向边是 2->1，结果中互换为 1->2
	assert.Equal(t, "1", kp.Reverse[0].StartNodeID)
	assert.Equal(t, "2", kp.Reverse[0].EndNodeID)
	assert.Equal(t, kp.Forward[0].StartNodeID, kp.Reverse[0].StartNodeID)
}

func TestBidirectionalManager_FindBySidAndID(t *testing.T) {
	ctx := context.Background()

	t.Run("FindBySid", func(t *testing.T) {
		session := new(neo4jdaltest.MockSession)
		session.On("Run", ctx, cypherFor("FOLLOWS"), map[string]any{"sid": "s-1"}).
			Return(neo4jdaltest.NewResult(relRecord("FOLLOWS", 10, 1, 2, map[string]any{"sid": "s-1"})), nil).Once()
		session.On("Run", ctx, cypherFor("FOLLOWED_BY"), map[string]any{"sid": "s-1"}).
			Return(neo4jdaltest.NewResult(relRecord("FOLLOWED_BY", 20, 2, 1, map[string]any{"sid": "s-1"})), nil).Once()

		pair, err := newFriendship(t).FindBySid(ctx, session, "s-1")
		require.NoError(t, err)
		assert.Equal(t, "10", pair.Forward.Properties.ID)
		assert.Equal(t, "20", pair.Reverse.Properties.ID)
	})

	t.Run("FindByID 反向缺失", func(t *testing.T) {
		session := new(neo4jdaltest.MockSession)
		session.On("Run", ctx, cypherFor("FOLLOWS"), map[string]any{"id": "10"}).
			Return(neo4jdaltest.NewResult(relRecord("FOLLOWS", 10, 1, 2, map[string]any{})), nil).Once()
		session.On("Run", ctx, cypherFor("FOLLOWED_BY"), map[string]any{"id": "20"}).
			Return(neo4jdaltest.NewResult(), nil).Once()

		_, err := newFriendship(t).FindByID(ctx, session, "10", "20")
		assert.ErrorIs(t, err, neo4jdal.ErrNotFound)
		assert.NotErrorIs(t, err, neo4jrepo.ErrPartialCommit)
	})
}

func TestBidirectionalManager_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("UpdateBySid", func(t *testing.T) {
		session := new(neo4jdaltest.MockSession)
		session.On("Run", ctx, cypherFor("FOLLOWS"), mock.Anything).
			Return(neo4jdaltest.NewResult(relRecord("FOLLOWS", 10, 1, 2, map[string]any{"since": "2024"})), nil).Once()
		session.On("Run", ctx, cypherFor("FOLLOWED_BY"), mock.Anything).
			Return(neo4jdaltest.NewResult(relRecord("FOLLOWED_BY", 20, 2, 1, map[string]any{"since": "2025"})), nil).Once()

		pair, err := newFriendship(t).UpdateBySid(ctx, session, "s-1",
			map[string]any{"since": "2024"}, map[string]any{"since": "2025"})
		require.NoError(t, err)
		assert.Equal(t, "2024", pair.Forward.Properties.Since)
		assert.Equal(t, "2025", pair.Reverse.Properties.Since)
	})

	t.Run("UpdateByID 反向失败", func(t *testing.T) {
		session := new(neo4jdaltest.MockSession)
		session.On("Run", ctx, cypherFor("FOLLOWS"), mock.Anything).
			Return(neo4jdaltest.NewResult(relRecord("FOLLOWS", 10, 1, 2, map[string]any{})), nil).Once()
		session.On("Run", ctx, cypherFor("FOLLOWED_BY"), mock.Anything).
			Return(neo4jdaltest.NewResult(), nil).Once()

		_, err := newFriendship(t).UpdateByID(ctx, session, "10", "20", map[string]any{}, map[string]any{})
		var pce *neo4jrepo.PartialCommitError
		require.ErrorAs(t, err, &pce)
		assert.Equal(t, "updateById", pce.Op)
		assert.Equal(t, map[string]string{"forwardId": "10", "reverseId": "20"}, pce.Keys)
		assert.ErrorIs(t, err, neo4jdal.ErrNotFound)
	})

	t.Run("DeleteByID", func(t *testing.T) {
		session := new(neo4jdaltest.MockSession)
		session.On("Run", ctx, cypherFor("FOLLOWS"), map[string]any{"id": "10"}).Return(neo4jdaltest.NewResult(), nil).Once()
		session.On("Run", ctx, cypherFor("FOLLOWED_BY"), map[string]any{"id": "20"}).Return(neo4jdaltest.NewResult(), nil).Once()

		require.NoError(t, newFriendship(t).DeleteByID(ctx, session, "10", "20"))
		session.AssertExpectations(t)
	})

	t.Run("DeleteBySid 反向失败", func(t *testing.T) {
		runErr := errors.New("lock timeout")
		session := new(neo4jdaltest.MockSession)
		session.On("Run", ctx, cypherFor("FOLLOWS"), mock.Anything).Return(neo4jdaltest.NewResult(), nil).Once()
		session.On("Run", ctx, cypherFor("FOLLOWED_BY"), mock.Anything).Return(nil, runErr).Once()

		err := newFriendship(t).DeleteBySid(ctx, session, "s-1")
		assert.ErrorIs(t, err, neo4jrepo.ErrPartialCommit)
		assert.ErrorIs(t, err, runErr)
	})
}

func TestTxBidirectionalManager(t *testing.T) {
	ctx := context.Background()

	t.Run("两步在同一事务中提交", func(t *testing.T) {
		tx := new(neo4jdaltest.MockTransaction)
		tx.On("Run", ctx, cypherFor("FOLLOWS"), mock.Anything).
			Return(neo4jdaltest.NewResult(relRecord("FOLLOWS", 10, 1, 2, map[string]any{})), nil).Once()
		tx.On("Run", ctx, cypherFor("FOLLOWED_BY"), mock.Anything).
			Return(neo4jdaltest.NewResult(relRecord("FOLLOWED_BY", 20, 2, 1, map[string]any{})), nil).Once()
		tx.On("Commit", ctx).Return(nil).Once()
		session := new(neo4jdaltest.MockSession)
		session.On("BeginTransaction", ctx).Return(tx, nil).Once()

		txm, err := newFriendship(t).Transactional()
		require.NoError(t, err)
		pair, err := txm.Create(ctx, session, "1", "2", Follows{}, Follows{})
		require.NoError(t, err)
		assert.Equal(t, "2", pair.Reverse.StartNodeID)
		tx.AssertExpectations(t)
		session.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("反向失败时整体回滚，不产生部分提交", func(t *testing.T) {
		runErr := errors.New("reverse failed")
		tx := new(neo4jdaltest.MockTransaction)
		tx.On("Run", ctx, cypherFor("FOLLOWS"), mock.Anything).
			Return(neo4jdaltest.NewResult(relRecord("FOLLOWS", 10, 1, 2, map[string]any{})), nil).Once()
		tx.On("Run", ctx, cypherFor("FOLLOWED_BY"), mock.Anything).Return(nil, runErr).Once()
		tx.On("Rollback", ctx).Return(nil).Once()
		session := new(neo4jdaltest.MockSession)
		session.On("BeginTransaction", ctx).Return(tx, nil).Once()

		txm, err := newFriendship(t).Transactional()
		require.NoError(t, err)
		err = txm.DeleteByID(ctx, session, "10", "20")
		assert.ErrorIs(t, err, runErr)
		assert.NotErrorIs(t, err, neo4jrepo.ErrPartialCommit)
		tx.AssertNotCalled(t, "Commit", mock.Anything)
		tx.AssertExpectations(t)
	})
}

func TestTransactional_RejectsTransactionalManagers(t *testing.T) {
	plain, err := neo4jrepo.NewSidRelationManager[Follows]("Person", "Person", "FOLLOWED_BY")
	require.NoError(t, err)
	txd, err := neo4jrepo.NewSidRelationManager[Follows]("Person", "Person", "FOLLOWS", neo4jrepo.WithTransaction(true))
	require.NoError(t, err)
	assert.True(t, txd.UsesTransaction())
	assert.False(t, plain.UsesTransaction())

	_, err = neo4jrepo.NewBidirectionalManager[Follows, Follows](txd, plain).Transactional()
	assert.ErrorIs(t, err, neo4jdal.ErrNestedTransaction)

	_, err = neo4jrepo.NewBidirectionalManager[Follows, Follows](plain, txd).Transactional()
	assert.ErrorIs(t, err, neo4jdal.ErrNestedTransaction)

	// 不开启事务的管理器之间仍可组合
	_, err = neo4jrepo.NewBidirectionalManager[Follows, Follows](plain, plain).Transactional()
	assert.NoError(t, err)
}
