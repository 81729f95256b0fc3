package forms

import (
	"fmt"
	"io/fs"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultSeedFile is the embedded seed path inside the assets filesystem.
const DefaultSeedFile = "assets/seed/forms.yaml"

// LoadSeed reads a YAML list of forms. Every form needs an id; question and
// choice ids are kept as written. Missing settings get the defaults.
func LoadSeed(fsys fs.FS, name string) ([]Form, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("cannot read seed forms: %w", err)
	}
	return ParseSeed(data)
}

type seedForm struct {
	ID          string     `yaml:"id"`
	Title       string     `yaml:"title"`
	Description string     `yaml:"description"`
	Questions   []Question `yaml:"questions"`
	Settings    *Settings  `yaml:"settings"`
	CreatedAt   time.Time  `yaml:"createdAt"`
	UpdatedAt   time.Time  `yaml:"updatedAt"`
}

// ParseSeed decodes and checks seed forms.
func ParseSeed(data []byte) ([]Form, error) {
	var raw []seedForm
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("cannot parse seed forms: %w", err)
	}

	forms := make([]Form, 0, len(raw))
	for i, r := range raw {
		f := Form{
			ID:          r.ID,
			Title:       r.Title,
			Description: r.Description,
			Questions:   r.Questions,
			Settings:    DefaultSettings(),
			CreatedAt:   r.CreatedAt,
			UpdatedAt:   r.UpdatedAt,
		}
		if r.Settings != nil {
			f.Settings = *r.Settings
		}
		if f.Questions == nil {
			f.Questions = []Question{}
		}
		for j := range f.Questions {
			assignIDs(&f.Questions[j])
		}
		if err := Validate(&f); err != nil {
			return nil, fmt.Errorf("invalid seed form #%d: %w", i, err)
		}
		forms = append(forms, f)
	}
	return forms, nil
}
