package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMeaningCoversRange(t *testing.T) {
	for n := 1; n <= 90; n++ {
		assert.NotEmpty(t, smorfia[n], "missing meaning for %d", n)
	}
	assert.Equal(t, "'A paura (la paura)", Meaning(90))
	assert.Equal(t, "Numero 91 - Buona fortuna!", Meaning(91))
}
