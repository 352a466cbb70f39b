package session

import (
	"context"
	"testing"
	"time"

	"aggregator/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogin(t *testing.T) {
	ctx := context.Background()
	s := New(core.SessionConfig{Secret: "s3cret", Issuer: "aggregator", Capacity: 16})

	token, err := s.Issue("alice", time.Hour)
	require.Nil(t, err)

	for i := 0; i < 2; i++ {
		user, err := s.Login(ctx, token)
		require.Nil(t, err)
		assert.Equal(t, "alice", user)
	}

	other := New(core.SessionConfig{Secret: "other", Issuer: "aggregator"})
	_, err = other.Login(ctx, token)
	assert.NotNil(t, err)

	foreign := New(core.SessionConfig{Secret: "s3cret", Issuer: "someone"})
	_, err = foreign.Login(ctx, token)
	assert.NotNil(t, err)

	expired, err := s.Issue("bob", -time.Minute)
	require.Nil(t, err)
	_, err = s.Login(ctx, expired)
	assert.NotNil(t, err)

	_, err = s.Issue("", time.Hour)
	assert.NotNil(t, err)
}
