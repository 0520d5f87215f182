// Package convert runs the full text-to-affiliate pipeline shared by the
// bot, the HTTP API and the CLI.
package convert

import (
	"context"

	"github.com/MrSnakeDoc/linkwrap/internal/affiliate"
	"github.com/MrSnakeDoc/linkwrap/internal/dispatch"
	"github.com/MrSnakeDoc/linkwrap/internal/domain"
)

// Conversion is the outcome for one piece of text.
type Conversion struct {
	URLs         []string
	Result       dispatch.Result
	Descriptions []string
	Buttons      []affiliate.Button
}

// Converter extracts, dispatches and builds.
type Converter struct {
	engine  *dispatch.Engine
	builder *affiliate.Builder
}

func New(engine *dispatch.Engine, builder *affiliate.Builder) *Converter {
	return &Converter{engine: engine, builder: builder}
}

// Resolve extracts the URLs of text and dispatches them. It does not build
// links, so callers can gate on the result first.
func (c *Converter) Resolve(ctx context.Context, text string) Conversion {
	urls := domain.ExtractURLs(text)
	conv := Conversion{URLs: urls}
	if len(urls) == 0 {
		return conv
	}
	conv.Result = c.engine.ProcessAll(ctx, urls)
	return conv
}

// Build fills in descriptions and buttons for an accepted conversion.
func (c *Converter) Build(conv Conversion) Conversion {
	if !conv.Result.Accepted() {
		return conv
	}
	conv.Descriptions, conv.Buttons = c.builder.Build(conv.Result.Valid)
	return conv
}

// Convert is Resolve followed by Build.
func (c *Converter) Convert(ctx context.Context, text string) Conversion {
	return c.Build(c.Resolve(ctx, text))
}
