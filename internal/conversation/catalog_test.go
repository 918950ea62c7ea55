package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogFor(t *testing.T) {
	c, err := CatalogFor("")
	require.NoError(t, err)
	assert.Equal(t, "en", c.Locale)

	c, err = CatalogFor("RU")
	require.NoError(t, err)
	assert.Equal(t, "ru", c.Locale)

	_, err = CatalogFor("de")
	assert.ErrorIs(t, err, ErrUnknownLocale)
}

func TestBuiltinCatalogsValidate(t *testing.T) {
	assert.NoError(t, English.Validate())
	assert.NoError(t, Russian.Validate())
}

func TestCatalogValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Catalog)
		want   string
	}{
		{"state code keyword", func(c *Catalog) { c.BackKeyword = "OK" }, "collides with state code"},
		{"lowercase state code keyword", func(c *Catalog) { c.AddKeyword = "go" }, "collides with state code"},
		{"blank", func(c *Catalog) { c.CountsKeyword = "" }, "blank keyword"},
		{"padded", func(c *Catalog) { c.CountsKeyword = " Counts" }, "whitespace"},
		{"duplicate", func(c *Catalog) { c.TakeKeyword = c.AddKeyword }, "duplicate keyword"},
		{"delimiter", func(c *Catalog) { c.AddKeyword = "Add & go" }, "batch delimiter"},
		{"start command", func(c *Catalog) { c.BackKeyword = StartCommand }, "reserved"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := English
			tc.mutate(&c)
			assert.ErrorContains(t, c.Validate(), tc.want)
		})
	}
}

func TestMainMenu(t *testing.T) {
	assert.Equal(t, []string{"Take email", "Add email", "Email counts"}, English.MainMenu())
}
