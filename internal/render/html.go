// SPDX-License-Identifier: AGPL-3.0-only

// Package render turns an assistant text reply into a safe HTML fragment
// for web clients. The transform is best-effort: any failure degrades to
// escaping the raw text, never to an error.
package render

import (
	"context"
	"strings"

	"github.com/RakeshReddy1602/m.s.organics-agent/internal/logging"
	"github.com/RakeshReddy1602/m.s.organics-agent/internal/prompt"
	"google.golang.org/genai"
)

// EmptyMessage is shown when the assistant produced no reply at all.
const EmptyMessage = "There is nothing to show for this request."

// Transformer converts assistant text into an HTML fragment.
type Transformer interface {
	// ToHTML never fails; on any internal error it returns the escaped
	// fallback markup.
	ToHTML(ctx context.Context, text string) string
}

// textGenerator is the slice of the GenAI client the transformer uses.
// Tests substitute a fake.
type textGenerator func(ctx context.Context, system, text string) (string, error)

// HTMLTransformer renders replies through a Gemini model.
type HTMLTransformer struct {
	generate textGenerator
	logger   *logging.Logger
}

// NewHTMLTransformer creates a Gemini-backed transformer using the render
// model configured for the deployment.
func NewHTMLTransformer(apiKey, modelName string, logger *logging.Logger) (*HTMLTransformer, error) {
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	gen := func(ctx context.Context, system, text string) (string, error) {
		resp, err := client.Models.GenerateContent(ctx, modelName,
			[]*genai.Content{genai.NewContentFromText(text, genai.RoleUser)},
			&genai.GenerateContentConfig{
				SystemInstruction: &genai.Content{
					Parts: []*genai.Part{genai.NewPartFromText(system)},
				},
			})
		if err != nil {
			return "", err
		}
		return resp.Text(), nil
	}
	return &HTMLTransformer{generate: gen, logger: logger}, nil
}

// NewHTMLTransformerWithGenerator builds a transformer around a custom
// generation function.
func NewHTMLTransformerWithGenerator(gen func(ctx context.Context, system, text string) (string, error), logger *logging.Logger) *HTMLTransformer {
	return &HTMLTransformer{generate: gen, logger: logger}
}

// ToHTML converts the reply into an HTML fragment. Empty input renders a
// fixed placeholder; a model failure or empty model output falls back to
// escaping the raw text.
func (t *HTMLTransformer) ToHTML(ctx context.Context, text string) string {
	if strings.TrimSpace(text) == "" {
		return "<div><p>" + EmptyMessage + "</p></div>"
	}
	out, err := t.generate(ctx, prompt.HTMLTransform, text)
	if err != nil {
		t.logger.Warnf("HTML transform failed, falling back to escaped text: %v", err)
		return Fallback(text)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "<div></div>"
	}
	return out
}

// Fallback wraps the raw reply in minimal markup with the HTML-significant
// characters escaped.
func Fallback(text string) string {
	escaped := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
	).Replace(text)
	return "<div><p>" + escaped + "</p></div>"
}
