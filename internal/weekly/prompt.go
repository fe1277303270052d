package weekly

import (
	"fmt"
	"strings"

	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/batch"
	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/isoweek"
	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/llm"
	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/newsitem"
)

const SystemPrompt = "You are a bioplastics industry news researcher. Provide factual information with exact URLs and dates. Return results as valid JSON only."

const promptDateLayout = "January 02, 2006"

// PromptFor builds the batch prompt for one ISO week. Fill-in stages name
// only the companies still missing.
func PromptFor(w isoweek.Week) func(batch.Batch, []string) llm.Prompt {
	start, end := w.Range()
	return func(b batch.Batch, focus []string) llm.Prompt {
		var sb strings.Builder
		fmt.Fprintf(&sb, "Find bioplastic industry news published between %s and %s\n",
			start.Format(promptDateLayout), end.Format(promptDateLayout))
		names := b.Names()
		if len(focus) > 0 {
			names = focus
		}
		fmt.Fprintf(&sb, "about these companies: %s", strings.Join(names, ", "))
		if len(focus) > 0 {
			sb.WriteString("\n\nIMPORTANT: An earlier search found nothing for these companies. Search specifically for each of them.")
		}
		sb.WriteString("\n\nCRITICAL REQUIREMENTS:\n")
		sb.WriteString("- ONLY include news if publication date is within the specified date range\n")
		sb.WriteString("- Publication date must be confirmed from the source\n\n")
		sb.WriteString("For each news item found, categorize into ONE of these categories:\n")
		for _, c := range newsitem.Categories {
			fmt.Fprintf(&sb, "- %s (%s)\n", c.Name, c.Description)
		}
		sb.WriteString(`
Return results ONLY as a JSON array with this exact structure:
[
  {
    "date": "YYYY-MM-DD",
    "company": "Company Name",
    "category": "Category Name",
    "headline": "News Headline",
    "description": "50-word summary",
    "url": "https://..."
  }
]

If no news is found, return an empty array: []
`)
		return llm.Prompt{System: SystemPrompt, User: sb.String()}
	}
}
