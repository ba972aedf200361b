package notes

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/crimson-sun/standup/internal/config"
	"github.com/crimson-sun/standup/internal/connector"
	"github.com/crimson-sun/standup/internal/model"
)

const name = "notes"

// DefaultTemplate is used when notes_path is empty.
const DefaultTemplate = "{dir}/YYYY/MM/DD.txt"

// leadingTime matches "9:30 -", "10:15am -" and similar prefixes.
var leadingTime = regexp.MustCompile(`^\d{1,2}:\d{2}\s*(?i:am|pm)?\s*-\s*`)

func init() {
	connector.Register(name, func(cfg *config.Config) (connector.Connector, error) {
		c, err := New(cfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	})
}

// Connector reads one plain-text file per day.
type Connector struct {
	dir      string
	template string
}

// New builds a notes connector from notes_dir and notes_path.
func New(cfg *config.Config) (*Connector, error) {
	tmpl := cfg.Notes.PathTemplate
	if tmpl == "" {
		tmpl = DefaultTemplate
	}
	if strings.Contains(tmpl, "{dir}") && cfg.Notes.Dir == "" {
		return nil, connector.Disabled(name, "notes_dir not set")
	}
	return &Connector{dir: cfg.Notes.Dir, template: tmpl}, nil
}

func (c *Connector) Name() string { return name }

// Path returns the notes file for d.
func (c *Connector) Path(d model.Date) string {
	p := strings.NewReplacer(
		"YYYY", fmt.Sprintf("%04d", d.Year),
		"MM", fmt.Sprintf("%02d", int(d.Month)),
		"DD", fmt.Sprintf("%02d", d.Day),
	).Replace(c.template)
	return filepath.Clean(strings.ReplaceAll(p, "{dir}", c.dir))
}

// Fetch reads the notes file of every day in r. Days without a file yield nothing.
func (c *Connector) Fetch(ctx context.Context, r model.DateRange) ([]model.Record, error) {
	var results []model.Record
	for _, d := range r.Days() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := c.Path(d)
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, connector.Unavailable(name, err)
		}

		file := c.label(path)
		for _, line := range Lines(data) {
			results = append(results, model.NewRecord(model.SourceNote, d, "", line, map[string]string{"file": file}))
		}
	}
	return results, nil
}

// label shortens path to be relative to the notes directory when possible.
func (c *Connector) label(path string) string {
	if c.dir != "" {
		if rel, err := filepath.Rel(c.dir, path); err == nil && !strings.HasPrefix(rel, "..") {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.Base(path)
}

// Lines splits note content into cleaned, non-blank lines.
func Lines(data []byte) []string {
	var out []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if line := Clean(sc.Text()); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// Clean strips a leading clock time, collapses whitespace and normalizes to NFC.
func Clean(line string) string {
	line = strings.TrimSpace(line)
	line = leadingTime.ReplaceAllString(line, "")
	line = strings.Join(strings.Fields(line), " ")
	return norm.NFC.String(line)
}
