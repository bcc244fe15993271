package codegen

import (
	"fmt"
	"strings"
)

// BuildReadme synthesises the repository description document.
func BuildReadme(task, brief, title string) string {
	heading := title
	if heading == "" {
		heading = task
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", heading)
	b.WriteString("## Summary\n\n")
	if brief = strings.TrimSpace(brief); brief != "" {
		b.WriteString(brief)
	} else {
		b.WriteString("A generated single-page web application.")
	}
	b.WriteString("\n\n")

	b.WriteString("## Setup\n\n")
	b.WriteString("No build step is required. Open `index.html` in a browser, or serve the repository root with any static file server.\n\n")

	b.WriteString("## Usage\n\n")
	b.WriteString("The application is published with GitHub Pages from the default branch. All logic lives in `index.html`.\n\n")

	b.WriteString("## Code explanation\n\n")
	b.WriteString("`index.html` contains the markup, inline styles and inline scripts of the application.\n\n")

	fmt.Fprintf(&b, "## Task\n\n`%s`\n\n", task)

	b.WriteString("## License\n\nMIT, see `LICENSE`.\n")
	return b.String()
}
