package memory

import (
	"testing"
	"time"

	"podcast-studio-be/internal/composer"
	"podcast-studio-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRepository(t *testing.T) {
	repo := NewSessionRepository(time.Minute)
	s := composer.NewSession("s-1", "u-1", nil, logger.NewNopLogger(), composer.SessionOptions{})
	repo.Save(s)

	got, ok := repo.Get("s-1")
	require.True(t, ok)
	assert.Same(t, s, got)
	assert.Equal(t, 1, repo.CountByUser("u-1"))
	assert.Zero(t, repo.CountByUser("u-2"))

	repo.Delete("s-1")
	_, ok = repo.Get("s-1")
	assert.False(t, ok)
	assert.True(t, s.Closed(), "deleting a session closes it")
}

func TestSessionRepositoryExpiry(t *testing.T) {
	repo := NewSessionRepository(20 * time.Millisecond)
	s := composer.NewSession("s-1", "u-1", nil, logger.NewNopLogger(), composer.SessionOptions{})
	repo.Save(s)

	assert.Eventually(t, func() bool { return s.Closed() }, time.Second, 10*time.Millisecond)
	_, ok := repo.Get("s-1")
	assert.False(t, ok)
}
