package prompt

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed presets.yaml
var presetsYAML []byte

// Preset is a named, built-in instruction template.
type Preset struct {
	Name        string
	Description string `yaml:"description"`
	Template    string `yaml:"template"`
}

var (
	presetsOnce sync.Once
	presets     map[string]Preset
	presetsErr  error
)

func loadPresets() (map[string]Preset, error) {
	presetsOnce.Do(func() {
		presets, presetsErr = parsePresets(presetsYAML)
	})
	return presets, presetsErr
}

func parsePresets(data []byte) (map[string]Preset, error) {
	var raw map[string]Preset
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse presets: %w", err)
	}
	for name, p := range raw {
		if strings.TrimSpace(p.Template) == "" {
			return nil, fmt.Errorf("preset %q: empty template", name)
		}
		p.Name = name
		raw[name] = p
	}
	return raw, nil
}

// Presets returns the built-in presets sorted by name.
func Presets() []Preset {
	m, err := loadPresets()
	if err != nil {
		return nil
	}
	out := make([]Preset, 0, len(m))
	for _, p := range m {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// LookupPreset returns the preset with the given name.
func LookupPreset(name string) (Preset, error) {
	m, err := loadPresets()
	if err != nil {
		return Preset{}, err
	}
	p, ok := m[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		names := make([]string, 0, len(m))
		for n := range m {
			names = append(names, n)
		}
		sort.Strings(names)
		return Preset{}, fmt.Errorf("unknown preset %q (available: %s)", name, strings.Join(names, ", "))
	}
	return p, nil
}

// Instruction picks the template for a run: an explicit instruction wins,
// otherwise the named preset.
func Instruction(instruction, preset string) (string, error) {
	if strings.TrimSpace(instruction) != "" {
		return instruction, nil
	}
	p, err := LookupPreset(preset)
	if err != nil {
		return "", err
	}
	return p.Template, nil
}
