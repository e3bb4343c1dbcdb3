package extract

import (
	"log/slog"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
)

// Renderer converts LMS page bodies (rich-content-editor HTML, tables and
// embedded media included) to markdown.
type Renderer struct {
	policy *bluemonday.Policy
	conv   *converter.Converter
	logger *slog.Logger
}

// NewRenderer builds a Renderer. A nil logger uses slog.Default().
func NewRenderer(logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	policy := bluemonday.UGCPolicy().
		AllowElements("iframe").
		AllowAttrs("src", "title").OnElements("iframe")
	return &Renderer{
		policy: policy,
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
		logger: logger,
	}
}

// Render sanitises body and converts it to markdown, resolving relative
// links against baseURL. If the converter fails the regex converter is
// used instead.
func (r *Renderer) Render(body, baseURL string) string {
	if strings.TrimSpace(body) == "" {
		return ""
	}
	clean := r.policy.Sanitize(body)

	var md string
	var err error
	if baseURL != "" {
		md, err = r.conv.ConvertString(clean, converter.WithDomain(baseURL))
	} else {
		md, err = r.conv.ConvertString(clean)
	}
	if err != nil || strings.TrimSpace(md) == "" {
		r.logger.Debug("extract: markdown conversion failed, using fallback", "error", err)
		return HTMLToMarkdown(clean)
	}
	return excessNewlines.ReplaceAllString(strings.TrimSpace(md), "\n\n")
}
