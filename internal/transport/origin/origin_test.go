package origin

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowList_Allows(t *testing.T) {
	list := AllowList{"http://localhost:3000", "https://crosszero.example.com/"}

	t.Run("Listed origin", func(t *testing.T) {
		assert.True(t, list.Allows("http://localhost:3000"))
	})

	t.Run("Trailing slash in config is ignored", func(t *testing.T) {
		assert.True(t, list.Allows("https://crosszero.example.com"))
	})

	t.Run("Unlisted origin", func(t *testing.T) {
		assert.False(t, list.Allows("https://evil.example.com"))
	})

	t.Run("Missing origin header", func(t *testing.T) {
		assert.True(t, list.Allows(""))
	})

	t.Run("Wildcard", func(t *testing.T) {
		assert.True(t, AllowList{Wildcard}.Allows("https://anything.example.com"))
	})
}
