package ollama

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/okolin/scribe/internal/core/ports"
)

type Client struct {
	baseURL    string
	genModel   string
	httpClient *http.Client
}

func New(baseURL, genModel string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		genModel:   genModel,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// Drafter produces prose drafts through the Ollama generate endpoint.
type Drafter struct {
	client *Client
}

func NewDrafter(client *Client) *Drafter {
	return &Drafter{client: client}
}

func (d *Drafter) Draft(ctx context.Context, spec ports.DraftSpec) (string, error) {
	return d.client.generateText(ctx, buildDraftPrompt(spec), "draft")
}

func (d *Drafter) Revise(ctx context.Context, draft string, reasons []string, spec ports.DraftSpec) (string, error) {
	return d.client.generateText(ctx, buildRevisionPrompt(draft, reasons, spec), "revise")
}

func (c *Client) generateText(ctx context.Context, prompt, operation string) (string, error) {
	reqBody := map[string]any{
		"model":  c.genModel,
		"prompt": prompt,
		"stream": false,
	}

	var response struct {
		Response string `json:"response"`
	}
	if err := c.postJSON(ctx, "/api/generate", reqBody, &response, operation); err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Response), nil
}
