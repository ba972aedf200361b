package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/crimson-sun/standup/internal/connector/httpclient"
)

// Request and response shapes shared by the Vertex AI and Generative Language
// generateContent endpoints.

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// generateContent makes a single generateContent call and returns the trimmed text
// of the first candidate. Any failure is a *GenerationError.
func generateContent(ctx context.Context, backend string, client *httpclient.Client, path, prompt string) (string, error) {
	req := generateRequest{Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}}}

	var resp generateResponse
	if err := client.PostJSON(ctx, path, req, &resp); err != nil {
		return "", &GenerationError{Backend: backend, Err: err}
	}

	text := strings.TrimSpace(resp.text())
	if text == "" {
		err := errEmptyResponse
		if reason := resp.PromptFeedback.BlockReason; reason != "" {
			err = fmt.Errorf("%w: prompt blocked (%s)", errEmptyResponse, reason)
		} else if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != "" {
			err = fmt.Errorf("%w: finish reason %s", errEmptyResponse, resp.Candidates[0].FinishReason)
		}
		return "", &GenerationError{Backend: backend, Err: err}
	}
	return text, nil
}

func (r *generateResponse) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String()
}

// IsEmptyResponse reports whether err is a generation failure caused by an empty reply.
func IsEmptyResponse(err error) bool {
	return errors.Is(err, errEmptyResponse)
}
