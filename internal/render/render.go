// Package render turns a digest Markdown document into print-ready HTML
// and an A4 PDF through headless Chromium.
package render

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"html"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"gopkg.in/yaml.v3"
)

const DefaultTimeout = 30 * time.Second

// FrontMatter is the Hugo header of a digest page.
type FrontMatter struct {
	Title      string   `yaml:"title"`
	Date       string   `yaml:"date"`
	Week       string   `yaml:"week,omitempty"`
	Categories []string `yaml:"categories,omitempty"`
	Draft      bool     `yaml:"draft"`
}

var frontMatterRe = regexp.MustCompile(`(?s)\A---\r?\n(.*?)\r?\n---\r?\n?`)

// SplitFrontMatter separates a leading YAML block from the Markdown body.
// Documents without one return a zero FrontMatter and the input unchanged.
func SplitFrontMatter(doc string) (FrontMatter, string, error) {
	m := frontMatterRe.FindStringSubmatchIndex(doc)
	if m == nil {
		return FrontMatter{}, doc, nil
	}
	var fm FrontMatter
	if err := yaml.Unmarshal([]byte(doc[m[2]:m[3]]), &fm); err != nil {
		return FrontMatter{}, doc, fmt.Errorf("front matter: %w", err)
	}
	return fm, doc[m[1]:], nil
}

type Renderer struct {
	chromePath string
	timeout    time.Duration
}

func NewRenderer() *Renderer {
	return &Renderer{chromePath: detectChromePath(), timeout: DefaultTimeout}
}

// HTML converts doc (optionally carrying front matter) to a standalone page.
func (r *Renderer) HTML(doc string) (string, error) {
	fm, body, err := SplitFrontMatter(doc)
	if err != nil {
		return "", err
	}
	var content bytes.Buffer
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	if err := md.Convert([]byte(body), &content); err != nil {
		return "", fmt.Errorf("markdown convert: %w", err)
	}
	title := fm.Title
	if title == "" {
		title = "Bioplastics News Digest"
	}
	return "<!doctype html><html><head><meta charset='utf-8'><title>" + html.EscapeString(title) + "</title>" +
		"<style>" + printCSS + "</style></head><body><div class='digest'>" +
		"<div class='digest-meta'>" + metaHTML(fm) + "</div>" +
		applyPrintLayoutHooks(content.String()) +
		"</div></body></html>", nil
}

// PDF renders doc to an A4 PDF with page numbers in the footer.
func (r *Renderer) PDF(ctx context.Context, doc string) ([]byte, error) {
	htmlDoc, err := r.HTML(doc)
	if err != nil {
		return nil, err
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
	}
	if r.chromePath != "" {
		opts = append(opts, chromedp.ExecPath(r.chromePath))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(timeoutCtx, append(chromedp.DefaultExecAllocatorOptions[:], opts...)...)
	defer allocCancel()

	taskCtx, taskCancel := chromedp.NewContext(allocCtx)
	defer taskCancel()

	var pdf []byte
	dataURL := "data:text/html;base64," + base64.StdEncoding.EncodeToString([]byte(htmlDoc))
	if err := chromedp.Run(taskCtx,
		chromedp.Navigate(dataURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			footer := `<div style="width:100%;text-align:center;font-size:9px;color:#666;">` +
				`Page <span class="pageNumber"></span> of <span class="totalPages"></span></div>`
			out, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithDisplayHeaderFooter(true).
				WithHeaderTemplate(`<div></div>`).
				WithFooterTemplate(footer).
				WithPaperWidth(8.27).
				WithPaperHeight(11.69).
				WithMarginTop(0.5).
				WithMarginBottom(0.75).
				WithMarginLeft(0.5).
				WithMarginRight(0.5).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = out
			return nil
		}),
	); err != nil {
		return nil, fmt.Errorf("print pdf: %w", err)
	}
	return pdf, nil
}

const printCSS = "html,body,*{-webkit-print-color-adjust:exact !important;print-color-adjust:exact !important;} " +
	"body{font-family:Georgia,serif;color:#1c1917;background:#fff;padding:0.6rem;} " +
	".digest{max-width:900px;margin:0 auto;} " +
	".digest-meta{color:#44403c;font-size:0.85rem;margin-bottom:1rem;} " +
	".digest-meta strong{color:#1c1917;} " +
	".digest a{color:#1d4ed8;text-decoration:underline;} " +
	"h1{border-bottom:2px solid #166534;padding-bottom:0.3rem;} " +
	"h2[data-category='true']{color:#166534;border-left:4px solid #166534;padding-left:0.5rem;margin-top:1.6rem;} " +
	"h3{margin-bottom:0.2rem;} " +
	"table{width:100%;border-collapse:collapse;font-size:0.8rem;} " +
	"th,td{border:1px solid #a8a29e;padding:0.35rem 0.45rem;text-align:left;vertical-align:top;} " +
	"thead th{background:#f1f5f9;} " +
	`h2[data-page-break-before="true"]{break-before:page;page-break-before:always;} ` +
	"@media print{ @page{size:auto;margin:12mm;} body{padding:0;} }"

var (
	summaryHeadingRe = regexp.MustCompile(`(?i)<h2([^>]*)>\s*Summary\s*</h2>`)
	h2Re             = regexp.MustCompile(`<h2([^>]*)>`)
)

// applyPrintLayoutHooks marks category headings for styling and starts the
// closing summary on a fresh page.
func applyPrintLayoutHooks(contentHTML string) string {
	out := summaryHeadingRe.ReplaceAllString(contentHTML, `<h2$1 data-page-break-before="true">Summary</h2>`)
	return h2Re.ReplaceAllStringFunc(out, func(tag string) string {
		if strings.Contains(tag, "data-page-break-before") {
			return tag
		}
		return strings.TrimSuffix(tag, ">") + ` data-category="true">`
	})
}

func metaHTML(fm FrontMatter) string {
	var out strings.Builder
	if fm.Week != "" {
		out.WriteString("<div><strong>Week:</strong> " + html.EscapeString(fm.Week) + "</div>")
	}
	if fm.Date != "" {
		out.WriteString("<div><strong>Date:</strong> " + html.EscapeString(fm.Date) + "</div>")
	}
	if len(fm.Categories) > 0 {
		out.WriteString("<div><strong>Categories:</strong> " + html.EscapeString(strings.Join(fm.Categories, ", ")) + "</div>")
	}
	return out.String()
}

func detectChromePath() string {
	if p := strings.TrimSpace(os.Getenv("CHROME_PATH")); p != "" {
		return p
	}
	candidates := []string{
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/usr/bin/google-chrome",
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
