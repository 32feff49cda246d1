package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdmissionReadOnlyRejectsWritesBeforeAcquiringAPermit(t *testing.T) {
	a := newAdmission(1, func() bool { return true })

	_, err := a.acquire(context.Background(), opWrite)
	require.Error(t, err)
	assert.Equal(t, ErrAccessDenied, CodeOf(err))

	release, err := a.acquire(context.Background(), opRead)
	require.NoError(t, err)
	release()
}

func TestAdmissionLimitsConcurrency(t *testing.T) {
	a := newAdmission(1, func() bool { return false })

	release1, err := a.acquire(context.Background(), opWrite)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = a.acquire(ctx, opWrite)
	require.Error(t, err)

	release1()
	release2, err := a.acquire(context.Background(), opWrite)
	require.NoError(t, err)
	release2()
}

func TestAdmissionReleaseIsIdempotent(t *testing.T) {
	a := newAdmission(1, func() bool { return false })

	release, err := a.acquire(context.Background(), opWrite)
	require.NoError(t, err)
	release()
	release()

	release2, err := a.acquire(context.Background(), opWrite)
	require.NoError(t, err)
	release2()
}

func TestAdmissionDefaultsLimitWhenNonPositive(t *testing.T) {
	a := newAdmission(0, nil)
	assert.Equal(t, 16, cap(a.permits))
}
