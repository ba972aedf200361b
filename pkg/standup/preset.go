package standup

import "github.com/crimson-sun/standup/internal/prompt"

// Preset is a built-in instruction template.
type Preset struct {
	Name        string
	Description string
	Template    string
}

// Presets returns the built-in presets sorted by name. Read-only: pass a
// name to WithPreset, or a modified template to WithInstruction.
func Presets() []Preset {
	src := prompt.Presets()
	out := make([]Preset, len(src))
	for i, p := range src {
		out[i] = Preset{Name: p.Name, Description: p.Description, Template: p.Template}
	}
	return out
}
