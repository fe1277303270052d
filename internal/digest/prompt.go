package digest

import (
	"fmt"
	"strings"
	"time"

	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/llm"
	"github.com/Svenno76/bioplastic-website-newsgenerator/internal/newsitem"
)

const SystemPrompt = "You are a bioplastic industry news aggregator. Return only valid JSON arrays without any markdown formatting or additional text."

const promptDateLayout = "January 02, 2006"

// BuildPrompt asks for maxItems company news items published in [from, to]
// that are not at any of the excluded URLs.
func BuildPrompt(from, to time.Time, maxItems int, exclude []string) llm.Prompt {
	var sb strings.Builder
	sb.WriteString("Find the most recent bioplastic and biopolymer industry news from ACTUAL COMPANIES\n")
	fmt.Fprintf(&sb, "published between %s and %s.\n", from.Format(promptDateLayout), to.Format(promptDateLayout))
	if len(exclude) > 0 {
		sb.WriteString("\nEXCLUDE news from these URLs (already covered this week):\n")
		for _, u := range exclude {
			fmt.Fprintf(&sb, "- %s\n", u)
		}
	}
	sb.WriteString(`
CRITICAL REQUIREMENTS:
- ONLY search company websites, press release pages, and official company announcements
- PRIORITIZE news directly from company websites (not third-party news sites)
- Publication date MUST be within the specified date range
- ONLY include actual companies (producers, converters, compounders, equipment manufacturers)
- EXCLUDE: market reports, industry associations, news publications, analyst firms, research companies

Search for these types of news ONLY:
`)
	for i, c := range newsitem.Categories {
		fmt.Fprintf(&sb, "%d. %s - %s\n", i+1, c.Name, c.Description)
	}
	fmt.Fprintf(&sb, `
Return EXACTLY %d news items in valid JSON format as an array with these fields:
- Company: The ACTUAL COMPANY name (not "Market", not "Industry", not news sites)
- PublishingDate: The exact date in YYYY-MM-DD format (must be within date range)
- Headline: A concise headline (max 100 characters)
- Description: A 50-word summary of the news
- Category: ONE of the %d categories listed above (exact category name)
- SourceURL: The URL from the company website or press release

Example format:
[
  {
    "Company": "NatureWorks",
    "PublishingDate": "2025-10-25",
    "Headline": "NatureWorks expands Ingeo PLA production capacity",
    "Description": "NatureWorks announced an expansion of its Ingeo PLA biopolymer production capacity at its Blair facility.",
    "Category": "Plant Announcement",
    "SourceURL": "https://www.natureworksllc.com/news/press-releases/..."
  }
]

IMPORTANT: Return ONLY the JSON array with no markdown formatting, no explanatory text.
`, maxItems, len(newsitem.Categories))
	return llm.Prompt{System: SystemPrompt, User: sb.String()}
}
