package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/chatflow/pkg/adapters/file"
	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const welcomeYAML = `
id: welcome
name: Welcome
status: active
priority: 1
trigger:
  type: new_conversation
nodes:
  - id: start
    type: trigger
  - id: pick
    type: button_choice
    config:
      text: "What do you need?"
      variable: topic
      buttons:
        - label: Menu
        - label: Hours
          value: opening_hours
edges:
  - id: e1
    source: start
    target: pick
`

const menuJSON = `{
  "id": "menu",
  "tenant_id": "acme",
  "status": "draft",
  "trigger": {"type": "keyword", "keywords": ["menu"]},
  "nodes": [{"id": "hello", "type": "send_message", "config": {"text": "Here is our menu"}}],
  "edges": []
}`

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestRepository_Load(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "acme", "welcome.yaml"), welcomeYAML)
	write(t, filepath.Join(root, "acme", "menu.json"), menuJSON)
	write(t, filepath.Join(root, "acme", "README.md"), "ignored")

	repo, err := file.Open(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"acme"}, repo.Tenants())

	active, err := repo.ActiveFlows(context.Background(), "acme")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "welcome", active[0].ID)
	assert.Equal(t, "acme", active[0].TenantID)

	var cfg domain.ButtonChoiceConfig
	node, ok := domain.FindNode(&active[0], "pick")
	require.True(t, ok)
	require.NoError(t, node.Decode(&cfg))
	require.Len(t, cfg.Buttons, 2)
	assert.Equal(t, "opening_hours", cfg.Buttons[1].Answer())

	menu, err := repo.GetFlow(context.Background(), "acme", "menu")
	require.NoError(t, err)
	assert.Equal(t, domain.FlowDraft, menu.Status)

	_, err = repo.GetFlow(context.Background(), "acme", "nope")
	assert.ErrorIs(t, err, domain.ErrFlowNotFound)

	all := repo.All("acme")
	require.Len(t, all, 2)
	assert.Equal(t, "menu", all[0].ID)
	assert.Empty(t, repo.All("globex"))
}

func TestRepository_InvalidFlow(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "acme", "broken.yaml"), `
id: broken
trigger:
  type: keyword
nodes:
  - id: a
    type: send_message
edges:
  - source: a
    target: missing
`)
	_, err := file.Open(root)
	assert.ErrorIs(t, err, domain.ErrInvalidFlow)
}

func TestRepository_Reload(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "acme", "welcome.yaml"), welcomeYAML)
	repo, err := file.Open(root)
	require.NoError(t, err)

	write(t, filepath.Join(root, "globex", "menu.json"), `{"id":"menu","trigger":{"type":"keyword","keywords":["menu"]},"nodes":[{"id":"a","type":"end"}]}`)
	require.NoError(t, repo.Reload())

	flows, err := repo.ActiveFlows(context.Background(), "globex")
	require.NoError(t, err)
	assert.Len(t, flows, 1)
}
