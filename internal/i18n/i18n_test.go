package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestCatalog_Label(t *testing.T) {
	c, err := NewCatalog("zh-CN", Default)
	require.NoError(t, err)

	assert.Equal(t, "删除", c.Label("basic.Delete"))
	assert.Equal(t, "存储桶名称", c.Label("meta.Nodes.COS.BucketName"))
}

func TestCatalog_UnknownKeyPassesThrough(t *testing.T) {
	c, err := NewCatalog("en", Default)
	require.NoError(t, err)

	assert.Equal(t, "Bucket name", c.Label("meta.Nodes.COS.BucketName"))
	assert.Equal(t, "Literal label", c.Label("Literal label"))
}

func TestCatalog_FallsBackToEnglish(t *testing.T) {
	c, err := NewCatalog("fr", Translations{
		"greeting": {language.English: "Hello"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello", c.Label("greeting"))
}

func TestCatalog_InvalidLocale(t *testing.T) {
	_, err := NewCatalog("!!", Default)
	assert.Error(t, err)
}

func TestIdentity(t *testing.T) {
	assert.Equal(t, "meta.X", Identity{}.Label("meta.X"))
}
