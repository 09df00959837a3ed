package repository

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/aras-services/goframe/internal/orm/ormmock"
)

// newMockBoundRepo binds a Base directly to gomock doubles, bypassing the
// Synthesizer so a test can assert the exact Open/Begin/Exec/Commit/Rollback
// sequence withTx drives, the thing the hand-rolled ormtest.Adapter fake
// (used by the entity package's integration-style tests) deliberately
// hides behind SQL emulation instead of exposing as call expectations.
func newMockBoundRepo(ctrl *gomock.Controller) (*testUserRepository, *ormmock.MockAdapter, *ormmock.MockSession, *ormmock.MockTx) {
	adapter := ormmock.NewMockAdapter(ctrl)
	session := ormmock.NewMockSession(ctrl)
	tx := ormmock.NewMockTx(ctrl)

	repo := &testUserRepository{}
	repo.Bind(adapter, Describe(reflect.TypeOf(testUser{})))
	return repo, adapter, session, tx
}

func TestBaseWithTxCommitsOnSuccess(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo, adapter, session, tx := newMockBoundRepo(ctrl)
	ctx := context.Background()

	adapter.EXPECT().Open(ctx).Return(session, nil)
	session.EXPECT().Begin(ctx).Return(tx, nil)
	tx.EXPECT().Exec(ctx, gomock.Any(), gomock.Any()).Return(int64(1), nil)
	tx.EXPECT().Commit(ctx).Return(nil)
	session.EXPECT().Close()

	err := repo.DeleteByID(ctx, int64(7))
	require.NoError(t, err)
}

func TestBaseWithTxRollsBackOnExecFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo, adapter, session, tx := newMockBoundRepo(ctrl)
	ctx := context.Background()

	execErr := errors.New("connection reset")

	adapter.EXPECT().Open(ctx).Return(session, nil)
	session.EXPECT().Begin(ctx).Return(tx, nil)
	tx.EXPECT().Exec(ctx, gomock.Any(), gomock.Any()).Return(int64(0), execErr)
	tx.EXPECT().Rollback(ctx).Return(nil)
	session.EXPECT().Close()

	err := repo.DeleteByID(ctx, int64(7))
	require.Error(t, err)
	assert.ErrorIs(t, err, execErr)
	assert.Contains(t, err.Error(), "repository failure")
}

func TestBaseWithTxSurfacesRollbackFailureAlongsideOriginalError(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo, adapter, session, tx := newMockBoundRepo(ctrl)
	ctx := context.Background()

	execErr := errors.New("unique violation")
	rollbackErr := errors.New("connection already closed")

	adapter.EXPECT().Open(ctx).Return(session, nil)
	session.EXPECT().Begin(ctx).Return(tx, nil)
	tx.EXPECT().Exec(ctx, gomock.Any(), gomock.Any()).Return(int64(0), execErr)
	tx.EXPECT().Rollback(ctx).Return(rollbackErr)
	session.EXPECT().Close()

	err := repo.DeleteByID(ctx, int64(7))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rollback also failed")
}

func TestBaseWithTxPropagatesBeginFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo, adapter, session, _ := newMockBoundRepo(ctrl)
	ctx := context.Background()

	beginErr := errors.New("pool exhausted")

	adapter.EXPECT().Open(ctx).Return(session, nil)
	session.EXPECT().Begin(ctx).Return(nil, beginErr)
	session.EXPECT().Close()

	err := repo.DeleteByID(ctx, int64(7))
	require.Error(t, err)
	assert.ErrorIs(t, err, beginErr)
}
