package delivery

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/NicolasYMonteiro/ProspectingAutomation/internal/model"
)

// defaultTemplate is the fallback pitch when no niche-specific template is
// configured. Placeholders: {name}, {niche}.
const defaultTemplate = `Bom dia, tudo bem?

Vi que o {name} ainda não tem um site e acredito que posso ajudar.
Criamos sites rápidos e funcionais para negócios de {niche}, entregues em poucos dias.

Posso te mostrar alguns trabalhos recentes?`

// TemplateRegistry resolves the message body for a lead, by niche with a
// default fallback.
type TemplateRegistry struct {
	def     string
	byNiche map[string]string
}

type templateFile struct {
	Default string            `yaml:"default"`
	Niches  map[string]string `yaml:"niches"`
}

// DefaultTemplates returns a registry with only the built-in template.
func DefaultTemplates() *TemplateRegistry {
	return &TemplateRegistry{def: defaultTemplate, byNiche: map[string]string{}}
}

// LoadTemplates reads a yaml template file with a default body and optional
// per-niche overrides.
func LoadTemplates(path string) (*TemplateRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "delivery: read templates %s", path)
	}

	var tf templateFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, eris.Wrapf(err, "delivery: parse templates %s", path)
	}

	reg := DefaultTemplates()
	if tf.Default != "" {
		reg.def = tf.Default
	}
	for niche, body := range tf.Niches {
		if body != "" {
			reg.byNiche[strings.ToLower(niche)] = body
		}
	}
	return reg, nil
}

// Render produces the message body for a lead, substituting placeholders.
func (r *TemplateRegistry) Render(lead model.Lead) string {
	body := r.def
	if t, ok := r.byNiche[strings.ToLower(lead.Niche)]; ok {
		body = t
	}
	return strings.NewReplacer(
		"{name}", lead.Name,
		"{niche}", lead.Niche,
	).Replace(body)
}
