package codegen

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

const fenceMarker = "```"

var markdown = goldmark.New()

type fencedBlock struct {
	lang string
	body string
}

// StripFences returns the markup contained in a model completion. When the
// page is delivered inside fenced code blocks, the first html-tagged block
// wins, else the largest one. A raw document is returned whole with fence
// marker lines removed, so fences inside its scripts never replace the page.
// The result never contains "```".
func StripFences(completion string) string {
	if fencedDelivery(completion) {
		if blocks := fencedBlocks(completion); len(blocks) > 0 {
			return removeMarkerLines(pickBlock(blocks).body)
		}
	}
	return removeMarkerLines(completion)
}

// fencedDelivery reports whether the completion opens with a fence or only
// starts its document inside one.
func fencedDelivery(completion string) bool {
	trimmed := strings.TrimSpace(completion)
	if strings.HasPrefix(trimmed, fenceMarker) {
		return true
	}
	head := trimmed
	if i := strings.Index(head, fenceMarker); i >= 0 {
		head = head[:i]
	}
	head = strings.ToLower(head)
	return !strings.Contains(head, "<!doctype") && !strings.Contains(head, "<html")
}

func fencedBlocks(completion string) []fencedBlock {
	src := []byte(completion)
	doc := markdown.Parser().Parse(text.NewReader(src))

	var blocks []fencedBlock
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fcb, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}
		var buf bytes.Buffer
		lines := fcb.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			buf.Write(seg.Value(src))
		}
		blocks = append(blocks, fencedBlock{
			lang: strings.ToLower(string(fcb.Language(src))),
			body: buf.String(),
		})
		return ast.WalkSkipChildren, nil
	})
	return blocks
}

func pickBlock(blocks []fencedBlock) fencedBlock {
	for _, b := range blocks {
		if b.lang == "html" || b.lang == "htm" {
			return b
		}
	}
	best := blocks[0]
	for _, b := range blocks[1:] {
		if len(b.body) > len(best.body) {
			best = b
		}
	}
	return best
}

func removeMarkerLines(s string) string {
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), fenceMarker) {
			continue
		}
		kept = append(kept, line)
	}
	out := strings.TrimSpace(strings.Join(kept, "\n"))
	return strings.ReplaceAll(out, fenceMarker, "")
}
