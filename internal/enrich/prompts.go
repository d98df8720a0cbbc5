package enrich

import (
	"fmt"
	"strings"

	"github.com/ppiankov/horizon/internal/model"
	"github.com/ppiankov/horizon/internal/search"
	"github.com/ppiankov/horizon/internal/util"
)

const contentLimit = 1500

const conceptSystem = `You find the technical concepts in a news item that a reader might not know.
Return up to %d short web search queries, one per concept that needs explaining:
specific technologies, protocols, algorithms, tools or projects that are not widely known.
Skip well-known things such as "Python", "Linux" or "Google".
If the item explains itself, return an empty list.`

const synthesisSystem = `You are a technical writer who explains important news in context.

Given a news item, its content and web search results about its concepts, produce:
- whats_new: 1-2 sentences on what exactly happened or changed. Be specific: names, versions, numbers, dates.
- why_it_matters: 1-2 sentences on significance, impact and who is affected.
- key_details: 1-2 sentences of notable technical details, limitations or caveats.
- background: 2-4 sentences of background a non-expert needs, or an empty string if none is needed.
- community_discussion: 1-3 sentences summarizing sentiment and key viewpoints from the comments, or an empty string when no comments are given.

Only explain concepts that appear in the item. Base everything on the provided content and
search results; do not invent facts.`

func conceptPrompt(item *model.ContentItem) string {
	var sb strings.Builder
	sb.WriteString("Which concepts in this item might need explanation?\n\n")
	fmt.Fprintf(&sb, "Title: %s\n", item.Title)
	fmt.Fprintf(&sb, "Summary: %s\n", item.AISummary)
	fmt.Fprintf(&sb, "Tags: %s\n", strings.Join(item.AITags, ", "))
	fmt.Fprintf(&sb, "Content: %s\n\n", util.Truncate(strings.TrimSpace(item.Body), contentLimit))
	sb.WriteString(`Respond with valid JSON only:
{"queries": ["<search query>", "..."]}`)
	return sb.String()
}

// grounding is the search context collected for one concept
type grounding struct {
	concept string
	results []search.Result
}

func synthesisPrompt(item *model.ContentItem, grounded []grounding) string {
	var sb strings.Builder
	sb.WriteString("Provide a structured analysis of this news item.\n\n")

	sb.WriteString("News item:\n")
	fmt.Fprintf(&sb, "- Title: %s\n", item.Title)
	fmt.Fprintf(&sb, "- URL: %s\n", item.URL)
	fmt.Fprintf(&sb, "- Summary: %s\n", item.AISummary)
	fmt.Fprintf(&sb, "- Score: %.1f/10\n", item.Score())
	fmt.Fprintf(&sb, "- Reason: %s\n", item.AIReason)
	fmt.Fprintf(&sb, "- Tags: %s\n\n", strings.Join(item.AITags, ", "))

	body := strings.TrimSpace(item.Body)
	if body == "" {
		body = "(no content available)"
	}
	fmt.Fprintf(&sb, "Content:\n%s\n\n", util.Truncate(body, contentLimit))

	if len(item.Comments) > 0 {
		sb.WriteString("Community comments:\n")
		for _, c := range item.Comments {
			fmt.Fprintf(&sb, "- %s\n", util.Truncate(c, 300))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Web search results (for grounding):\n")
	if len(grounded) == 0 {
		sb.WriteString("No search results available.\n")
	}
	for _, g := range grounded {
		fmt.Fprintf(&sb, "Concept: %s\n", g.concept)
		if len(g.results) == 0 {
			sb.WriteString("- no results\n")
		}
		for _, r := range g.results {
			fmt.Fprintf(&sb, "- %s (%s): %s\n", r.Title, r.URL, r.Snippet)
		}
	}

	sb.WriteString(`
Respond with valid JSON only:
{
  "whats_new": "...",
  "why_it_matters": "...",
  "key_details": "...",
  "background": "...",
  "community_discussion": "..."
}`)
	return sb.String()
}
