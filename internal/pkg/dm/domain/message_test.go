package dm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPending_TrimsBody(t *testing.T) {
	m, err := NewPending("c1", "u1", "  hi there \n")
	require.NoError(t, err)
	assert.Equal(t, "hi there", m.Body)
	assert.False(t, m.Confirmed())
	assert.False(t, m.CreatedAt.IsZero())

	token, ok := m.PendingToken()
	require.True(t, ok)
	assert.NotEmpty(t, string(token))
}

func TestNewPending_RejectsEmptyBody(t *testing.T) {
	for _, body := range []string{"", "   ", "\n\t"} {
		_, err := NewPending("c1", "u1", body)
		assert.ErrorIs(t, err, ErrEmptyBody)
	}
}

func TestNewPending_RequiresIdentifiers(t *testing.T) {
	_, err := NewPending("", "u1", "hi")
	assert.ErrorIs(t, err, ErrInvalidParticipants)

	_, err = NewPending("c1", "", "hi")
	assert.ErrorIs(t, err, ErrInvalidParticipants)
}

func TestNewPending_TokensAreUnique(t *testing.T) {
	a, err := NewPending("c1", "u1", "one")
	require.NoError(t, err)
	b, err := NewPending("c1", "u1", "two")
	require.NoError(t, err)

	ta, _ := a.PendingToken()
	tb, _ := b.PendingToken()
	assert.NotEqual(t, ta, tb)
}

func TestIdentitySpacesAreDisjoint(t *testing.T) {
	p, err := NewPending("c1", "u1", "hi")
	require.NoError(t, err)
	c := NewConfirmed("m1", "c1", "u1", "hi", time.Now())

	_, ok := p.ConfirmedID()
	assert.False(t, ok)
	_, ok = c.PendingToken()
	assert.False(t, ok)

	assert.True(t, c.Confirmed())
	id, ok := c.ConfirmedID()
	require.True(t, ok)
	assert.Equal(t, ServerID("m1"), id)
}
