package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Source is one layer of configuration values.
type Source interface {
	Lookup(key string) (string, bool)
}

// Resolve returns the first non-empty value for key, trying sources in order.
func Resolve(key string, sources ...Source) (string, bool) {
	for _, s := range sources {
		if s == nil {
			continue
		}
		if v, ok := s.Lookup(key); ok && v != "" {
			return v, true
		}
	}
	return "", false
}

// secretAliases maps secret keys to the bare variable names users already
// export for those tools.
var secretAliases = map[string][]string{
	keyJiraAPIKey:       {"JIRA_API_KEY"},
	keyGitHubToken:      {"GITHUB_TOKEN"},
	keyGitHubPrivateKey: {"PRIVATE_KEY_PATH"},
	keyGeminiAPIKey:     {"GEMINI_API_KEY"},
}

// EnvNames returns the variable names that carry key, in lookup order:
// bare aliases first, then STANDUP_<KEY> with dots mapped to underscores.
func EnvNames(key string) []string {
	names := append([]string(nil), secretAliases[key]...)
	return append(names, "STANDUP_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")))
}

// EnvSource reads the process environment. LookupEnv defaults to os.LookupEnv.
type EnvSource struct {
	LookupEnv func(string) (string, bool)
}

func (s EnvSource) Lookup(key string) (string, bool) {
	lookup := s.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	for _, name := range EnvNames(key) {
		if v, ok := lookup(name); ok && v != "" {
			return v, true
		}
	}
	return "", false
}

// MapSource serves values from a dotenv-style map keyed by variable name.
type MapSource map[string]string

func (s MapSource) Lookup(key string) (string, bool) {
	for _, name := range EnvNames(key) {
		if v, ok := s[name]; ok && v != "" {
			return v, true
		}
	}
	return "", false
}

// viperSource serves config-file values and defaults. Lists are joined with commas.
type viperSource struct {
	v *viper.Viper
}

func (s viperSource) Lookup(key string) (string, bool) {
	raw := s.v.Get(key)
	switch val := raw.(type) {
	case nil:
		return "", false
	case string:
		return val, val != ""
	case []string:
		return strings.Join(val, ","), len(val) > 0
	case []any:
		parts := make([]string, 0, len(val))
		for _, p := range val {
			parts = append(parts, fmt.Sprint(p))
		}
		return strings.Join(parts, ","), len(parts) > 0
	default:
		return fmt.Sprint(val), true
	}
}

// splitList splits a comma or newline separated list, dropping blanks.
func splitList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '\n' })
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
