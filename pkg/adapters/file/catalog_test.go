package file_test

import (
	"path/filepath"
	"testing"

	"github.com/aretw0/chatflow/pkg/adapters/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	write(t, path, `
- id: p1
  name: Margherita
  price: 9.5
  category: pizza
  image_url: https://example.com/p1.png
- id: p2
  name: Lemonade
  price: "3"
  category: drinks
`)

	items, err := file.LoadCatalog(path)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Margherita", items[0].Name)
	assert.Equal(t, 9.5, items[0].Price)
	assert.Equal(t, "https://example.com/p1.png", items[0].ImageURL)
	assert.Equal(t, 3.0, items[1].Price)
	assert.Equal(t, "drinks", items[1].Category)
}

func TestLoadCatalog_Invalid(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
	}{
		{"Missing Name", "- id: p1\n"},
		{"Not A List", "id: p1\nname: x\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "c.yaml")
			write(t, path, tt.content)
			_, err := file.LoadCatalog(path)
			assert.Error(t, err)
		})
	}

	_, err := file.LoadCatalog(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
