package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/nugget/hacheck/internal/validate"
)

// Format selects an output rendering.
type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// ParseFormat accepts a format name, case-insensitively. "md" is an
// alias for markdown and the empty string means text.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "html":
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("unknown output format %q (valid: text, json, markdown, html)", s)
	}
}

// Document is everything a rendering shows.
type Document struct {
	Result  validate.Result
	Files   []validate.FileResult
	Domains []DomainSummary
}

// Status is the one-line verdict for a result.
func Status(r validate.Result) string {
	switch {
	case len(r.Errors) == 0 && len(r.Warnings) == 0:
		return "✅ All entity/device references are valid!"
	case len(r.Errors) == 0:
		return "✅ Entity/device references are valid (with warnings)"
	default:
		return "❌ Invalid entity/device references found"
	}
}

// Write renders doc to w in format f.
func Write(w io.Writer, f Format, doc Document) error {
	switch f {
	case FormatText, "":
		return writeText(w, doc)
	case FormatJSON:
		return writeJSON(w, doc)
	case FormatMarkdown:
		_, err := io.WriteString(w, Markdown(doc))
		return err
	case FormatHTML:
		return writeHTML(w, doc)
	default:
		return fmt.Errorf("unknown output format %q", f)
	}
}

func writeText(w io.Writer, doc Document) error {
	var b strings.Builder
	if len(doc.Result.Errors) > 0 {
		b.WriteString("ERRORS:\n")
		for _, e := range doc.Result.Errors {
			fmt.Fprintf(&b, "  ❌ %s\n", e)
		}
		b.WriteString("\n")
	}
	if len(doc.Result.Warnings) > 0 {
		b.WriteString("WARNINGS:\n")
		for _, warn := range doc.Result.Warnings {
			fmt.Fprintf(&b, "  ⚠️  %s\n", warn)
		}
		b.WriteString("\n")
	}
	if len(doc.Domains) > 0 {
		b.WriteString("AVAILABLE ENTITIES BY DOMAIN:\n")
		for _, d := range doc.Domains {
			fmt.Fprintf(&b, "  %s: %d enabled, %d disabled\n", d.Domain, d.Enabled, d.Disabled)
			if len(d.Examples) > 0 {
				fmt.Fprintf(&b, "    Examples: %s\n", strings.Join(d.Examples, ", "))
			}
		}
		b.WriteString("\n")
	}
	b.WriteString(Status(doc.Result))
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}

type jsonDocument struct {
	OK       bool                  `json:"ok"`
	Errors   []string              `json:"errors"`
	Warnings []string              `json:"warnings"`
	Files    []validate.FileResult `json:"files,omitempty"`
	Domains  []DomainSummary       `json:"entities_by_domain"`
}

func writeJSON(w io.Writer, doc Document) error {
	out := jsonDocument{
		OK:       doc.Result.OK(),
		Errors:   nonNil(doc.Result.Errors),
		Warnings: nonNil(doc.Result.Warnings),
		Files:    doc.Files,
		Domains:  doc.Domains,
	}
	if out.Domains == nil {
		out.Domains = []DomainSummary{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(out)
}

// Markdown renders doc as a markdown report.
func Markdown(doc Document) string {
	var b strings.Builder
	b.WriteString("# Reference check\n\n")
	b.WriteString(Status(doc.Result))
	b.WriteString("\n")

	section := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		fmt.Fprintf(&b, "\n## %s (%d)\n\n", title, len(items))
		for _, it := range items {
			fmt.Fprintf(&b, "- %s\n", escapeMarkdown(it))
		}
	}
	section("Errors", doc.Result.Errors)
	section("Warnings", doc.Result.Warnings)

	if len(doc.Domains) > 0 {
		b.WriteString("\n## Entities by domain\n\n")
		b.WriteString("| Domain | Enabled | Disabled | Examples |\n")
		b.WriteString("|---|---:|---:|---|\n")
		for _, d := range doc.Domains {
			examples := make([]string, len(d.Examples))
			for i, e := range d.Examples {
				examples[i] = "`" + e + "`"
			}
			fmt.Fprintf(&b, "| %s | %d | %d | %s |\n",
				escapeMarkdown(d.Domain), d.Enabled, d.Disabled, strings.Join(examples, ", "))
		}
	}
	return b.String()
}

func writeHTML(w io.Writer, doc Document) error {
	return renderHTML(w, Markdown(doc))
}

// renderHTML converts markdown to a standalone HTML page.
func renderHTML(w io.Writer, markdown string) error {
	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	var body bytes.Buffer
	if err := md.Convert([]byte(markdown), &body); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	_, err := fmt.Fprintf(w, `<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>hacheck report</title></head>
<body style="font-family: sans-serif; font-size: 14px; line-height: 1.5;">
%s
</body></html>
`, body.String())
	return err
}

// WriteDomains renders only the entity-by-domain summary.
func WriteDomains(w io.Writer, f Format, domains []DomainSummary) error {
	if domains == nil {
		domains = []DomainSummary{}
	}
	switch f {
	case FormatText, "":
		var b strings.Builder
		if len(domains) == 0 {
			b.WriteString("No entities registered.\n")
		}
		for _, d := range domains {
			fmt.Fprintf(&b, "%s: %d enabled, %d disabled\n", d.Domain, d.Enabled, d.Disabled)
			if len(d.Examples) > 0 {
				fmt.Fprintf(&b, "  Examples: %s\n", strings.Join(d.Examples, ", "))
			}
		}
		_, err := io.WriteString(w, b.String())
		return err
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(domains)
	case FormatMarkdown, FormatHTML:
		md := Markdown(Document{Domains: domains})
		if i := strings.Index(md, "## Entities by domain"); i >= 0 {
			md = md[i:]
		} else {
			md = "No entities registered.\n"
		}
		if f == FormatMarkdown {
			_, err := io.WriteString(w, md)
			return err
		}
		return renderHTML(w, md)
	default:
		return fmt.Errorf("unknown output format %q", f)
	}
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"`", "\\`",
	"*", `\*`,
	"_", `\_`,
	"[", `\[`,
	"]", `\]`,
	"<", `\<`,
	">", `\>`,
	"|", `\|`,
	"#", `\#`,
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
