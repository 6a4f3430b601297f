package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseQueueWeights(t *testing.T) {
	assert.Equal(t, map[string]int{"dm": 2, "default": 1}, parseQueueWeights("dm=2,default=1"))
	assert.Equal(t, map[string]int{"dm": 1}, parseQueueWeights("dm"))
	assert.Equal(t, map[string]int{"dm": 3}, parseQueueWeights(" dm = 3 , "))
	assert.Empty(t, parseQueueWeights(""))
	assert.Equal(t, map[string]int{"dm": 1}, parseQueueWeights("dm=bogus"))
}
