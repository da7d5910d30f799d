package llm_test

import (
	"context"

	"github.com/xhad/seek/pkg/prompt"
)

type generateCall struct {
	template    prompt.Template
	vars        map[string]any
	temperature float64
	rendered    string
}

type fakeGenerator struct {
	reply string
	err   error
	calls []generateCall
}

func (g *fakeGenerator) Generate(_ context.Context, tmpl prompt.Template, vars map[string]any, temperature float64) (string, error) {
	rendered, renderErr := tmpl.Render(vars)
	g.calls = append(g.calls, generateCall{
		template:    tmpl,
		vars:        vars,
		temperature: temperature,
		rendered:    rendered,
	})
	if renderErr != nil {
		return "", renderErr
	}
	if g.err != nil {
		return "", g.err
	}
	return g.reply, nil
}
