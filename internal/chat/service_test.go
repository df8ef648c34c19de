package chat

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	channels []*Channel
}

func (f *fakeRepo) GetByPair(ctx context.Context, userA, userB int64) (*Channel, error) {
	u1, u2 := CanonicalPair(userA, userB)
	for _, c := range f.channels {
		if c.User1ID == u1 && c.User2ID == u2 {
			return c, nil
		}
	}
	return nil, ErrChannelNotFound
}

func (f *fakeRepo) ListForUser(ctx context.Context, userID int64) ([]*Channel, error) {
	var out []*Channel
	for _, c := range f.channels {
		if c.User1ID == userID || c.User2ID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeRepo) EnsureTx(ctx context.Context, tx *sqlx.Tx, userA, userB int64) (*Channel, error) {
	if c, err := f.GetByPair(ctx, userA, userB); err == nil {
		return c, nil
	}
	u1, u2 := CanonicalPair(userA, userB)
	c := &Channel{ID: int64(len(f.channels) + 1), User1ID: u1, User2ID: u2}
	f.channels = append(f.channels, c)
	return c, nil
}

func (f *fakeRepo) UpgradeTx(ctx context.Context, tx *sqlx.Tx, channelID, matchID int64) error {
	for _, c := range f.channels {
		if c.ID == channelID {
			c.IsMutual = true
			c.RelatedMatchID = &matchID
			return nil
		}
	}
	return ErrChannelNotFound
}

func TestCanonicalPair(t *testing.T) {
	for _, tc := range [][4]int64{
		{1, 2, 1, 2},
		{2, 1, 1, 2},
		{7, 7, 7, 7},
	} {
		u1, u2 := CanonicalPair(tc[0], tc[1])
		assert.Equal(t, tc[2], u1)
		assert.Equal(t, tc[3], u2)
	}
}

func TestChannelOther(t *testing.T) {
	c := &Channel{User1ID: 3, User2ID: 9}
	assert.Equal(t, int64(9), c.Other(3))
	assert.Equal(t, int64(3), c.Other(9))
}

func TestServiceValidation(t *testing.T) {
	svc := NewService(&fakeRepo{})
	ctx := context.Background()

	_, err := svc.ListChannels(ctx, 0)
	assert.ErrorIs(t, err, ErrInvalidUser)

	_, err = svc.GetChannelForPair(ctx, 1, 1)
	assert.ErrorIs(t, err, ErrInvalidUser)

	_, err = svc.GetChannelForPair(ctx, 1, -2)
	assert.ErrorIs(t, err, ErrInvalidUser)
}

func TestGetChannelForPairEitherOrder(t *testing.T) {
	repo := &fakeRepo{}
	ch, err := repo.EnsureTx(context.Background(), nil, 5, 2)
	require.NoError(t, err)

	svc := NewService(repo)

	got, err := svc.GetChannelForPair(context.Background(), 2, 5)
	require.NoError(t, err)
	assert.Equal(t, ch.ID, got.ID)

	got, err = svc.GetChannelForPair(context.Background(), 5, 2)
	require.NoError(t, err)
	assert.Equal(t, ch.ID, got.ID)
}

func TestEnsureIsIdempotentAndUpgradeInPlace(t *testing.T) {
	repo := &fakeRepo{}
	ctx := context.Background()

	first, err := repo.EnsureTx(ctx, nil, 4, 1)
	require.NoError(t, err)
	second, err := repo.EnsureTx(ctx, nil, 1, 4)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, repo.channels, 1)

	require.NoError(t, repo.UpgradeTx(ctx, nil, first.ID, 99))
	assert.True(t, first.IsMutual)
	require.NotNil(t, first.RelatedMatchID)
	assert.Equal(t, int64(99), *first.RelatedMatchID)
}
