package delivery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NicolasYMonteiro/ProspectingAutomation/internal/model"
)

func TestRender_DefaultSubstitutesPlaceholders(t *testing.T) {
	reg := DefaultTemplates()
	body := reg.Render(model.Lead{Name: "Pizzaria do Porto", Niche: "pizzaria"})
	assert.Contains(t, body, "Pizzaria do Porto")
	assert.Contains(t, body, "pizzaria")
	assert.NotContains(t, body, "{name}")
	assert.NotContains(t, body, "{niche}")
}

func TestLoadTemplates_NicheOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.yaml")
	yaml := `
default: "Olá {name}!"
niches:
  Pizzaria: "Oi {name}, sua pizzaria merece um site."
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	reg, err := LoadTemplates(path)
	require.NoError(t, err)

	// Niche match is case-insensitive.
	body := reg.Render(model.Lead{Name: "A", Niche: "pizzaria"})
	assert.Equal(t, "Oi A, sua pizzaria merece um site.", body)

	body = reg.Render(model.Lead{Name: "B", Niche: "delivery"})
	assert.Equal(t, "Olá B!", body)
}

func TestLoadTemplates_MissingFile(t *testing.T) {
	_, err := LoadTemplates(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadTemplates_EmptyDefaultKeepsBuiltin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`niches: {}`), 0o644))

	reg, err := LoadTemplates(path)
	require.NoError(t, err)
	assert.NotEmpty(t, reg.Render(model.Lead{Name: "X", Niche: "y"}))
}
