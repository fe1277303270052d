package digest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/newsitem"
	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/render"
)

const headerDateLayout = "January 2, 2006"

// Markdown renders the report as a Hugo page: YAML front matter, one
// section per category in the fixed category order, then a summary table.
func Markdown(rep Report) (string, error) {
	counts := rep.Categories()
	var present []string
	for _, c := range newsitem.Categories {
		if counts[c.Name] > 0 {
			present = append(present, c.Name)
		}
	}
	fm := render.FrontMatter{
		Title:      fmt.Sprintf("Bioplastics News Digest %s", rep.Week),
		Date:       rep.To.Format(newsitem.DateLayout),
		Week:       rep.Week.String(),
		Categories: present,
	}
	header, err := yaml.Marshal(fm)
	if err != nil {
		return "", fmt.Errorf("front matter: %w", err)
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(header)
	b.WriteString("---\n\n")
	fmt.Fprintf(&b, "# Bioplastics News Digest\n\n")
	fmt.Fprintf(&b, "News published from %s to %s.\n\n", rep.From.Format(headerDateLayout), rep.To.Format(headerDateLayout))
	entries := rep.Published()
	if len(entries) == 0 {
		b.WriteString("No company news was found for this period.\n")
		return b.String(), nil
	}

	for _, cat := range present {
		fmt.Fprintf(&b, "## %s\n\n", cat)
		for _, e := range entries {
			if e.Category != cat {
				continue
			}
			name := e.Company
			if e.Matched != "" {
				name = e.Matched
			}
			fmt.Fprintf(&b, "### %s\n\n", mdEscape(headline(e)))
			fmt.Fprintf(&b, "**%s** | %s\n\n", mdEscape(name), e.Date)
			fmt.Fprintf(&b, "%s\n\n", strings.TrimSpace(e.Description))
			fmt.Fprintf(&b, "[Source](%s)\n\n", e.URL)
		}
	}

	b.WriteString("## Summary\n\n")
	b.WriteString("| Category | Items |\n|---|---|\n")
	for _, cat := range present {
		fmt.Fprintf(&b, "| %s | %d |\n", cat, counts[cat])
	}
	fmt.Fprintf(&b, "\nTotal items: %d\n", len(entries))
	return b.String(), nil
}

// WriteMarkdown writes the page into dir as <date>-bioplastics-news-digest.md.
func WriteMarkdown(dir string, rep Report) (string, error) {
	doc, err := Markdown(rep)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, rep.To.Format(newsitem.DateLayout)+"-bioplastics-news-digest.md")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(doc), 0o644); err != nil {
		return "", err
	}
	return path, os.Rename(tmp, path)
}

func headline(e Entry) string {
	if h := strings.TrimSpace(e.Headline); h != "" {
		return h
	}
	return e.Company
}

var mdReplacer = strings.NewReplacer("*", `\*`, "_", `\_`, "[", `\[`, "]", `\]`, "|", `\|`)

func mdEscape(s string) string { return mdReplacer.Replace(s) }
