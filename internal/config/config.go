package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/crimson-sun/standup/internal/model"
)

// Setting keys. Nested keys use dots, matching the config file layout.
const (
	keyProjectID        = "project_id"
	keyLocation         = "location"
	keyBackend          = "backend"
	keyModel            = "model"
	keyInstruction      = "instruction"
	keyPreset           = "preset"
	keyPriority         = "priority"
	keyReaders          = "readers"
	keyNotesDir         = "notes_dir"
	keyNotesPath        = "notes_path"
	keyRepos            = "repos"
	keyGitAuthor        = "git_author"
	keyTimewBinary      = "timewarrior.binary"
	keyJiraDomain       = "jira.domain"
	keyJiraEmail        = "jira.email"
	keyJiraAPIKey       = "jira.api_key"
	keyJiraJQL          = "jira.jql"
	keyJiraEndpoint     = "jira.endpoint"
	keyGitHubEnabled    = "github.enabled"
	keyGitHubUsername   = "github.username"
	keyGitHubOrg        = "github.org"
	keyGitHubToken      = "github.token"
	keyGitHubAppID      = "github.app_id"
	keyGitHubInstallID  = "github.installation_id"
	keyGitHubPrivateKey = "github.private_key_path"
	keyGitHubEndpoint   = "github.endpoint"
	keyCSEnabled        = "context_switcher.enabled"
	keyCSURL            = "context_switcher.url"
	keyGeminiAPIKey     = "gemini.api_key"
	keyGeminiEndpoint   = "gemini.endpoint"
	keyVertexEndpoint   = "vertex.endpoint"
	keyHTTPTimeout      = "http.timeout"
	keyHTTPRetries      = "http.retries"
	keyLogLevel         = "log.level"
	keyLogFormat        = "log.format"
	keyWebhookURL       = "output.webhook_url"
	keyOutputFile       = "output.file"
	keySecretsDir       = "secrets_dir"
)

// DefaultReaders lists every connector enabled when "readers" is not set.
var DefaultReaders = []string{"jira", "git", "github", "timewarrior", "contextswitcher", "notes"}

// Config holds all standup configuration. It is built once by Load and
// passed explicitly to every component.
type Config struct {
	ProjectID   string
	Location    string
	Backend     string // "vertex" or "gemini"
	Model       string
	Instruction string // overrides Preset when set
	Preset      string
	Priority    []model.Source
	Readers     []string

	Notes           NotesConfig
	Git             GitConfig
	Timewarrior     TimewarriorConfig
	Jira            JiraConfig
	GitHub          GitHubConfig
	ContextSwitcher ContextSwitcherConfig
	Gemini          GeminiConfig
	Vertex          VertexConfig
	HTTP            HTTPConfig
	Log             LogConfig
	Output          OutputConfig

	// ConfigFile is the file that was read, empty when none was found.
	ConfigFile string
}

// NotesConfig locates daily note files.
type NotesConfig struct {
	Dir          string
	PathTemplate string // e.g. "{dir}/YYYY/MM/DD.txt"
}

// GitConfig selects the repositories scanned for commits.
type GitConfig struct {
	Author string
	Repos  []string
}

// TimewarriorConfig locates the timew binary.
type TimewarriorConfig struct {
	Binary string
}

// JiraConfig holds issue-tracker settings.
type JiraConfig struct {
	Domain   string
	Email    string
	APIKey   string
	JQL      string
	Endpoint string // overrides https://<domain>, used by tests and proxies
}

// GitHubConfig holds the optional hosting integration. Either Token or the
// App triple (AppID, InstallationID, PrivateKeyPath) authenticates it.
type GitHubConfig struct {
	Enabled        bool
	Username       string
	Org            string
	Token          string
	AppID          string
	InstallationID string
	PrivateKeyPath string
	Endpoint       string
}

// ContextSwitcherConfig holds the optional context-switcher API reader.
type ContextSwitcherConfig struct {
	Enabled bool
	URL     string
}

// GeminiConfig holds Generative Language API settings.
type GeminiConfig struct {
	APIKey   string
	Endpoint string
}

// VertexConfig holds Vertex AI overrides.
type VertexConfig struct {
	Endpoint string
}

// HTTPConfig tunes the shared HTTP client.
type HTTPConfig struct {
	Timeout time.Duration
	Retries int
}

// LogConfig controls slog output.
type LogConfig struct {
	Level  string
	Format string // "text" or "json"
}

// OutputConfig controls where the summary goes.
type OutputConfig struct {
	WebhookURL string
	File       string // latest summary is written here when set
}

// ConfigurationError reports settings that must be present before any network activity.
type ConfigurationError struct {
	Missing []string
	Invalid []string
}

func (e *ConfigurationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid "+strings.Join(e.Invalid, ", "))
	}
	return "configuration error: " + strings.Join(parts, "; ")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(keyBackend, "vertex")
	v.SetDefault(keyModel, "gemini-2.5-flash")
	v.SetDefault(keyLocation, "us-central1")
	v.SetDefault(keyPreset, "default")
	v.SetDefault(keyNotesPath, "{dir}/YYYY/MM/DD.txt")
	v.SetDefault(keyTimewBinary, "timew")
	v.SetDefault(keyCSURL, "http://127.0.0.1:5000")
	v.SetDefault(keyHTTPTimeout, "30s")
	v.SetDefault(keyHTTPRetries, "0")
	v.SetDefault(keyLogLevel, "info")
	v.SetDefault(keyLogFormat, "text")
	v.SetDefault(keySecretsDir, "./secrets")
}

// Load reads configuration with precedence: environment > secrets file > config file > defaults.
// path selects an explicit config file; when empty, standup.{yaml,toml,json,ini} is searched
// in the working directory and the user config directory. A missing file is not an error.
func Load(path string) (*Config, error) {
	return load(path, EnvSource{})
}

func load(path string, env Source) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("standup")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "standup"))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read %s: %w", orDefault(path, "standup config"), err)
		}
	}

	file := viperSource{v: v}

	// The secrets directory itself may come from env or the config file.
	secretsDir, _ := Resolve(keySecretsDir, env, file)
	secrets, err := readSecrets(filepath.Join(secretsDir, "secrets.env"))
	if err != nil {
		return nil, err
	}

	r := resolver{sources: []Source{env, MapSource(secrets), file}}

	cfg := &Config{
		ProjectID:   r.str(keyProjectID),
		Location:    r.str(keyLocation),
		Backend:     strings.ToLower(r.str(keyBackend)),
		Model:       r.str(keyModel),
		Instruction: r.str(keyInstruction),
		Preset:      r.str(keyPreset),
		Readers:     r.list(keyReaders),
		Notes: NotesConfig{
			Dir:          r.str(keyNotesDir),
			PathTemplate: r.str(keyNotesPath),
		},
		Git: GitConfig{
			Author: r.str(keyGitAuthor),
			Repos:  r.list(keyRepos),
		},
		Timewarrior: TimewarriorConfig{Binary: r.str(keyTimewBinary)},
		Jira: JiraConfig{
			Domain:   r.str(keyJiraDomain),
			Email:    r.str(keyJiraEmail),
			APIKey:   r.str(keyJiraAPIKey),
			JQL:      r.str(keyJiraJQL),
			Endpoint: r.str(keyJiraEndpoint),
		},
		GitHub: GitHubConfig{
			Enabled:        r.flag(keyGitHubEnabled),
			Username:       r.str(keyGitHubUsername),
			Org:            r.str(keyGitHubOrg),
			Token:          r.str(keyGitHubToken),
			AppID:          r.str(keyGitHubAppID),
			InstallationID: r.str(keyGitHubInstallID),
			PrivateKeyPath: r.str(keyGitHubPrivateKey),
			Endpoint:       r.str(keyGitHubEndpoint),
		},
		ContextSwitcher: ContextSwitcherConfig{
			Enabled: r.flag(keyCSEnabled),
			URL:     r.str(keyCSURL),
		},
		Gemini: GeminiConfig{
			APIKey:   r.str(keyGeminiAPIKey),
			Endpoint: r.str(keyGeminiEndpoint),
		},
		Vertex: VertexConfig{Endpoint: r.str(keyVertexEndpoint)},
		HTTP: HTTPConfig{
			Timeout: r.duration(keyHTTPTimeout),
			Retries: r.number(keyHTTPRetries),
		},
		Log: LogConfig{
			Level:  r.str(keyLogLevel),
			Format: r.str(keyLogFormat),
		},
		Output: OutputConfig{
			WebhookURL: r.str(keyWebhookURL),
			File:       r.str(keyOutputFile),
		},
		ConfigFile: v.ConfigFileUsed(),
	}
	if len(cfg.Readers) == 0 {
		cfg.Readers = append([]string(nil), DefaultReaders...)
	}

	cfg.Priority, err = parsePriority(r.list(keyPriority))
	if err != nil {
		return nil, err
	}
	if len(r.errs) > 0 {
		return nil, &ConfigurationError{Invalid: r.errs}
	}
	return cfg, nil
}

// Validate checks the settings required before any network activity.
// Connector settings are not checked here: an unconfigured connector is disabled, not fatal.
func (c *Config) Validate() error {
	e := &ConfigurationError{}
	if c.Model == "" {
		e.Missing = append(e.Missing, keyModel)
	}
	switch c.Backend {
	case "vertex":
		if c.ProjectID == "" {
			e.Missing = append(e.Missing, keyProjectID)
		}
		if c.Location == "" {
			e.Missing = append(e.Missing, keyLocation)
		}
	case "gemini":
		if c.Gemini.APIKey == "" {
			e.Missing = append(e.Missing, "GEMINI_API_KEY")
		}
	default:
		e.Invalid = append(e.Invalid, fmt.Sprintf("%s %q (want vertex or gemini)", keyBackend, c.Backend))
	}
	c.checkPrompt(e)
	return e.orNil()
}

// ValidatePrompt checks only what rendering a prompt needs. A dry run uses
// it so the prompt can be previewed before generator credentials exist.
func (c *Config) ValidatePrompt() error {
	e := &ConfigurationError{}
	c.checkPrompt(e)
	return e.orNil()
}

func (c *Config) checkPrompt(e *ConfigurationError) {
	if c.Instruction == "" && c.Preset == "" {
		e.Missing = append(e.Missing, keyInstruction+" or "+keyPreset)
	}
}

func (e *ConfigurationError) orNil() error {
	if len(e.Missing) > 0 || len(e.Invalid) > 0 {
		return e
	}
	return nil
}

// LogValue implements slog.LogValuer. Secrets are reported only as set/unset.
func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("config_file", c.ConfigFile),
		slog.String("backend", c.Backend),
		slog.String("model", c.Model),
		slog.String("project_id", c.ProjectID),
		slog.Any("readers", c.Readers),
		slog.Int("repos", len(c.Git.Repos)),
		slog.String("jira_api_key", redact(c.Jira.APIKey)),
		slog.String("github_token", redact(c.GitHub.Token)),
		slog.String("gemini_api_key", redact(c.Gemini.APIKey)),
	)
}

func redact(s string) string {
	if s == "" {
		return "unset"
	}
	return "set"
}

// readSecrets parses a dotenv file without touching the process environment.
func readSecrets(path string) (map[string]string, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	m, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("config: read secrets %s: %w", path, err)
	}
	return m, nil
}

func parsePriority(names []string) ([]model.Source, error) {
	if len(names) == 0 {
		return append([]model.Source(nil), model.Sources...), nil
	}
	out := make([]model.Source, 0, len(names))
	for _, n := range names {
		src, err := model.ParseSource(n)
		if err != nil {
			return nil, &ConfigurationError{Invalid: []string{keyPriority + ": " + err.Error()}}
		}
		out = append(out, src)
	}
	return out, nil
}

// resolver reads typed values through Resolve, collecting parse errors.
type resolver struct {
	sources []Source
	errs    []string
}

func (r *resolver) str(key string) string {
	v, _ := Resolve(key, r.sources...)
	return strings.TrimSpace(v)
}

func (r *resolver) list(key string) []string {
	return splitList(r.str(key))
}

func (r *resolver) flag(key string) bool {
	s := r.str(key)
	if s == "" {
		return false
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		r.errs = append(r.errs, fmt.Sprintf("%s %q", key, s))
	}
	return b
}

func (r *resolver) number(key string) int {
	s := r.str(key)
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		r.errs = append(r.errs, fmt.Sprintf("%s %q", key, s))
	}
	return n
}

func (r *resolver) duration(key string) time.Duration {
	s := r.str(key)
	if s == "" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		r.errs = append(r.errs, fmt.Sprintf("%s %q", key, s))
	}
	return d
}

func orDefault(val, fallback string) string {
	if val == "" {
		return fallback
	}
	return val
}
