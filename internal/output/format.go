package output

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/crimson-sun/standup/internal/model"
)

// Formats accepted by Format.
const (
	FormatText = "text"
	FormatJSON = "json"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).
	Border(lipgloss.RoundedBorder(), false, false, true, false).BorderForeground(lipgloss.Color("8"))

var footerStyle = lipgloss.NewStyle().Faint(true)

// ParseFormat validates an output format name. Empty means text.
func ParseFormat(s string) (string, error) {
	switch strings.ToLower(s) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text or json)", s)
	}
}

// Format serializes a summary. Text is the bare summary unless pretty is set,
// which adds a styled header and footer. JSON is indented when pretty is set.
func Format(s model.Summary, format string, pretty bool) ([]byte, error) {
	switch format {
	case FormatJSON:
		var (
			b   []byte
			err error
		)
		if pretty {
			b, err = json.MarshalIndent(s, "", "  ")
		} else {
			b, err = json.Marshal(s)
		}
		if err != nil {
			return nil, err
		}
		return append(b, '\n'), nil
	case FormatText, "":
		if !pretty {
			return []byte(strings.TrimRight(s.Text, "\n") + "\n"), nil
		}
		var sb strings.Builder
		sb.WriteString(headerStyle.Render("Standup " + s.Range))
		sb.WriteString("\n\n")
		sb.WriteString(strings.TrimRight(s.Text, "\n"))
		sb.WriteString("\n\n")
		sb.WriteString(footerStyle.Render(fmt.Sprintf("%s, run %s", s.Model, s.RunID)))
		sb.WriteString("\n")
		return []byte(sb.String()), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}
