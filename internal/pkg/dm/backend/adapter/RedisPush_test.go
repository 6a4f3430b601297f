package adapter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dm "go-duet/internal/pkg/dm/domain"
)

func TestPushChannel_ScopedPerConversation(t *testing.T) {
	assert.Equal(t, "dm:conversation:c1:inserts", pushChannel("c1"))
	assert.NotEqual(t, pushChannel("c1"), pushChannel("c2"))
}

func TestPushEnvelope_RoundTrip(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	in := dm.NewConfirmed("m1", "c1", "u1", "hello", at)

	payload, err := encodePushEnvelope(in)
	require.NoError(t, err)

	out, err := decodePushEnvelope(payload)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestEncodePushEnvelope_RefusesPending(t *testing.T) {
	p, err := dm.NewPending("c1", "u1", "hello")
	require.NoError(t, err)

	_, err = encodePushEnvelope(p)
	assert.Error(t, err)
}

func TestDecodePushEnvelope_RejectsGarbage(t *testing.T) {
	_, err := decodePushEnvelope([]byte("not json"))
	assert.Error(t, err)

	_, err = decodePushEnvelope([]byte(`{"body":"no identity"}`))
	assert.Error(t, err)
}
