package codegen

import (
	"fmt"
	"strings"
)

// Attachment is an opaque reference supplied with a request, typically a
// data URI or link the generated app should use.
type Attachment struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

const systemPrompt = `You are an expert front-end engineer. You write complete, production-quality single-page web applications.
Respond with raw HTML only: one self-contained document starting with <!DOCTYPE html>.
Inline all CSS and JavaScript. Do not wrap the answer in markdown code fences and do not add any commentary before or after the document.`

// BuildPrompt renders the user message for a task.
func BuildPrompt(task, brief string, attachments []Attachment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task: %s\n\n", task)
	b.WriteString("Build a single-page web application that satisfies this brief:\n\n")
	b.WriteString(strings.TrimSpace(brief))
	b.WriteString("\n\n")

	if len(attachments) > 0 {
		b.WriteString("The following attachments are available to the app; reference them by URL where relevant:\n")
		for _, a := range attachments {
			fmt.Fprintf(&b, "- %s: %s\n", a.Name, a.URL)
		}
		b.WriteString("\n")
	}

	b.WriteString(`Requirements:
- A complete, valid HTML5 document with a descriptive <title>.
- Modern, responsive styling that works on mobile and desktop.
- Interactive behaviour implemented in vanilla JavaScript.
- Handle empty and error states gracefully.
- No external build step; the file must work when served statically.`)
	return b.String()
}
