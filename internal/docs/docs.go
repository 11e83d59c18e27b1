// Package docs prepares doctest markdown for publishing.
//
// Process rewrites the body of every doctest fence for readers: hidden
// setup lines are removed, assertions are optionally removed, and the
// doctest marker is dropped from the info string so renderers highlight
// the block as ordinary code. Everything outside those fences is left
// byte-for-byte intact.
package docs

import (
	"bytes"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"github.com/harrison/accudoc/internal/extractor"
	"github.com/harrison/accudoc/internal/models"
)

var doctestLanguages = map[string]bool{
	models.LangJavaScript: true,
	models.LangJS:         true,
	models.LangTypeScript: true,
	models.LangTS:         true,
	models.LangTSX:        true,
	models.LangJSX:        true,
}

// Options controls Process
type Options struct {
	// StripAssertions removes assertion calls from doctest bodies
	StripAssertions bool
}

// Block describes a doctest fence found in a document
type Block struct {
	Line     int    // 1-based line of the opening fence
	Language string // Language tag of the fence
	Heading  string // Text of the closest heading above the fence
}

type edit struct {
	start, stop int
	text        string
}

func newMarkdown() goldmark.Markdown {
	return goldmark.New(goldmark.WithExtensions(extension.GFM))
}

// doctestInfo returns the language and remaining info words when info marks a doctest fence
func doctestInfo(info string) (string, []string, bool) {
	fields := strings.Fields(info)
	if len(fields) < 2 || fields[1] != extractor.Marker || !doctestLanguages[fields[0]] {
		return "", nil, false
	}
	return fields[0], fields[2:], true
}

func walkFences(src []byte, fn func(*ast.FencedCodeBlock, string, []string)) {
	doc := newMarkdown().Parser().Parse(text.NewReader(src))
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fenced, ok := n.(*ast.FencedCodeBlock)
		if !ok || fenced.Info == nil {
			return ast.WalkContinue, nil
		}
		if lang, rest, ok := doctestInfo(string(fenced.Info.Segment.Value(src))); ok {
			fn(fenced, lang, rest)
		}
		return ast.WalkSkipChildren, nil
	})
}

// Process returns src with every doctest fence rewritten for readers
func Process(src []byte, opts Options) []byte {
	var edits []edit

	walkFences(src, func(fenced *ast.FencedCodeBlock, lang string, rest []string) {
		info := fenced.Info.Segment
		stop := info.Start + len(strings.TrimRight(string(info.Value(src)), " \t\r"))
		edits = append(edits, edit{info.Start, stop, strings.Join(append([]string{lang}, rest...), " ")})

		lines := fenced.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			raw := src[seg.Start:seg.Stop]
			content := strings.TrimRight(string(raw), "\r\n")

			rewritten := extractor.StripHiddenLines(content)
			if opts.StripAssertions {
				rewritten = extractor.StripAssertions(rewritten)
			}

			switch {
			case rewritten == content:
			case rewritten == "":
				lineStart := bytes.LastIndexByte(src[:seg.Start], '\n') + 1
				edits = append(edits, edit{lineStart, seg.Stop, ""})
			default:
				edits = append(edits, edit{seg.Start, seg.Start + len(content), rewritten})
			}
		}
	})

	if len(edits) == 0 {
		return src
	}
	return apply(src, edits)
}

func apply(src []byte, edits []edit) []byte {
	sort.Slice(edits, func(i, j int) bool { return edits[i].start < edits[j].start })

	var out bytes.Buffer
	out.Grow(len(src))
	last := 0
	for _, e := range edits {
		out.Write(src[last:e.start])
		out.WriteString(e.text)
		last = e.stop
	}
	out.Write(src[last:])
	return out.Bytes()
}

// Blocks lists the doctest fences of src in document order
func Blocks(src []byte) []Block {
	var blocks []Block
	heading := ""
	doc := newMarkdown().Parser().Parse(text.NewReader(src))

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			heading = headingText(node, src)
			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock:
			if node.Info == nil {
				return ast.WalkSkipChildren, nil
			}
			info := node.Info.Segment
			if lang, _, ok := doctestInfo(string(info.Value(src))); ok {
				blocks = append(blocks, Block{
					Line:     bytes.Count(src[:info.Start], []byte("\n")) + 1,
					Language: lang,
					Heading:  heading,
				})
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return blocks
}

func headingText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Segment.Value(src))
			continue
		}
		buf.WriteString(headingText(c, src))
	}
	return strings.TrimSpace(buf.String())
}

// RenderHTML converts markdown to HTML
func RenderHTML(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := newMarkdown().Convert(src, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
