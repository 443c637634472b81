package personality

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadBuiltin(t *testing.T) {
	c, err := LoadBuiltin("crab")
	require.NoError(t, err)

	assert.Equal(t, []string{"crab", "robot"}, c.Names())
	assert.True(t, c.Has("robot"))
	assert.False(t, c.Has("pirate"))
	assert.Equal(t, "crab", c.Default())
	assert.NotEqual(t, "No description available", c.Description("crab"))
	assert.Equal(t, "No description available", c.Description("pirate"))
}

func TestLoadBuiltin_UnknownDefault(t *testing.T) {
	_, err := LoadBuiltin("pirate")
	assert.Error(t, err)
}

func TestRender(t *testing.T) {
	c, err := LoadBuiltin("crab")
	require.NoError(t, err)

	t.Run("substitutes params", func(t *testing.T) {
		text := c.Render("crab", "errors.quota_exceeded", Params{"kudos_needed": 3, "remaining": 2})
		assert.Contains(t, text, "send 3 kudos")
		assert.Contains(t, text, "only have 2 left")
	})

	t.Run("unknown personality falls back to default", func(t *testing.T) {
		text := c.Render("pirate", "errors.self_kudos", nil)
		assert.Equal(t, c.Render("crab", "errors.self_kudos", nil), text)
	})

	t.Run("slot missing in personality falls back to default", func(t *testing.T) {
		// у robot нет секции status
		text := c.Render("robot", "status.total", Params{"total": "1,234"})
		assert.Contains(t, text, "1,234")
	})

	t.Run("unknown slot gives fallback text", func(t *testing.T) {
		assert.Equal(t, fallbackText, c.Render("crab", "errors.nope", nil))
	})

	t.Run("conditional template", func(t *testing.T) {
		line := c.Render("crab", "status.config_line", Params{"channel": "<#C1>", "personality": "crab"})
		assert.Equal(t, "• <#C1>: crab", line)

		line = c.Render("crab", "status.config_line", Params{"channel": "<#C1>", "personality": "crab", "quota": 5})
		assert.Equal(t, "• <#C1>: crab, quota: 5", line)
	})
}

func TestLoad_CustomFS(t *testing.T) {
	fsys := fstest.MapFS{
		"p/pirate.toml": {Data: []byte(`
description = "Arr"
[errors]
self_kudos = "Arr {{.who}}"
`)},
		"p/readme.md": {Data: []byte("ignored")},
	}

	c, err := Load(fsys, "p", "pirate")
	require.NoError(t, err)
	assert.Equal(t, []string{"pirate"}, c.Names())
	assert.Equal(t, "Arr", c.Description("pirate"))
	assert.Equal(t, "Arr me", c.Render("pirate", "errors.self_kudos", Params{"who": "me"}))
}

func TestLoad_BadTemplate(t *testing.T) {
	fsys := fstest.MapFS{
		"p/bad.toml": {Data: []byte(`[errors]
self_kudos = "{{.unclosed"
`)},
	}
	_, err := Load(fsys, "p", "bad")
	assert.Error(t, err)
}
