package dao_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/jbweber/homelab/dao"
	"github.com/jbweber/homelab/dao/internal/memory"
	"github.com/jbweber/homelab/dao/internal/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_SoftOperationsReportFailureAsFalse(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStringStore(ctrl)
	ctx := context.Background()
	failure := dao.Wrap("test", errors.New("disk on fire"))

	store.EXPECT().Update(ctx, int32(1), "Alice").Return(failure)
	store.EXPECT().Add(ctx, "Bob").Return(int32(0), failure)
	store.EXPECT().Delete(ctx, int32(2)).Return(failure)

	d := dao.New[string](store)
	assert.False(t, d.UpdateValue(ctx, 1, "Alice"))
	assert.False(t, d.AddValue(ctx, "Bob"))
	assert.False(t, d.DeleteValue(ctx, 2))
}

func TestNew_SoftOperationsReportSuccessAsTrue(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStringStore(ctrl)
	ctx := context.Background()

	store.EXPECT().Update(ctx, int32(1), "Alice").Return(nil)
	store.EXPECT().Add(ctx, "Bob").Return(int32(7), nil)
	store.EXPECT().Delete(ctx, int32(7)).Return(nil)

	d := dao.New[string](store)
	assert.True(t, d.UpdateValue(ctx, 1, "Alice"))
	assert.True(t, d.AddValue(ctx, "Bob"))
	assert.True(t, d.DeleteValue(ctx, 7))
}

func TestNew_StrictOperationsPassThrough(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStringStore(ctrl)
	ctx := context.Background()
	failure := dao.Wrap("get", errors.New("boom"))

	store.EXPECT().Get(ctx, int32(3)).Return("", false, failure)
	store.EXPECT().GetMapping(ctx, int32(4)).Return(dao.Mapping[string]{ID: 4, Value: "Dan"}, true, nil)
	store.EXPECT().AddAll(ctx, []string{"a", "b"}).Return(nil)
	store.EXPECT().Close().Return(nil)

	d := dao.New[string](store)

	_, ok, err := d.Get(ctx, 3)
	assert.False(t, ok)
	assert.Same(t, failure, err)

	m, ok, err := d.GetMapping(ctx, 4)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Dan", m.Value)

	assert.NoError(t, d.AddAll(ctx, []string{"a", "b"}))
	assert.NoError(t, d.Close())
}

func TestWithLogger_DiscardedErrorsAreLogged(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStringStore(ctrl)
	ctx := context.Background()

	store.EXPECT().Delete(ctx, int32(9)).Return(dao.Wrap("delete", dao.ErrNotFound))

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	d := dao.New[string](store, dao.WithLogger(logger))
	assert.False(t, d.DeleteValue(ctx, 9))
	assert.Contains(t, buf.String(), "soft operation failed")
	assert.Contains(t, buf.String(), dao.ErrNotFound.Error())
}

func TestNew_RewrapsExistingDAO(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	inner := dao.New[string](memory.New[string]())
	outer := dao.New[string](inner, dao.WithLogger(logger))

	assert.True(t, outer.AddValue(ctx, "Alice"))
	exists, err := inner.Exists(ctx, 1)
	require.NoError(t, err)
	assert.True(t, exists, "both wrappers share one store")

	assert.False(t, outer.DeleteValue(ctx, 5))
	assert.Contains(t, buf.String(), "soft operation failed")
}

func TestNew_ClosePolicy(t *testing.T) {
	ctx := context.Background()
	d := dao.New[string](memory.New[string]())

	require.NoError(t, d.Close())
	assert.False(t, d.AddValue(ctx, "Alice"))
	assert.False(t, d.UpdateValue(ctx, 1, "Alice"))
	assert.False(t, d.DeleteValue(ctx, 1))

	_, err := d.Exists(ctx, 1)
	assert.ErrorIs(t, err, dao.ErrClosed)
	assert.True(t, dao.IsAccessError(err))
}
