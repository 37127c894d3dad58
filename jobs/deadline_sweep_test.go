package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeSweepRepo struct {
	flipped int64
	err     error
	calls   int
}

func (f *fakeSweepRepo) SweepOverdue(context.Context) (int64, error) {
	f.calls++
	return f.flipped, f.err
}

type fakeBumper struct {
	bumps int
}

func (f *fakeBumper) Bump(context.Context) error {
	f.bumps++
	return nil
}

func TestHandleDeadlineSweepBumpsCacheWhenRowsFlip(t *testing.T) {
	repo := &fakeSweepRepo{flipped: 2}
	cache := &fakeBumper{}
	sweeper := NewSweeper(repo, cache, nil, nil)

	err := sweeper.HandleDeadlineSweep(context.Background(), NewDeadlineSweepTask())
	require.NoError(t, err)
	require.Equal(t, 1, repo.calls)
	require.Equal(t, 1, cache.bumps)
}

func TestHandleDeadlineSweepSkipsBumpWhenNothingFlipped(t *testing.T) {
	repo := &fakeSweepRepo{flipped: 0}
	cache := &fakeBumper{}
	sweeper := NewSweeper(repo, cache, nil, nil)

	err := sweeper.HandleDeadlineSweep(context.Background(), NewDeadlineSweepTask())
	require.NoError(t, err)
	require.Equal(t, 0, cache.bumps)
}

func TestHandleDeadlineSweepPropagatesError(t *testing.T) {
	repo := &fakeSweepRepo{err: errors.New("db down")}
	sweeper := NewSweeper(repo, nil, nil, nil)

	err := sweeper.HandleDeadlineSweep(context.Background(), NewDeadlineSweepTask())
	require.Error(t, err)
}
