package editor

import (
	"fmt"
	"html"
	"strings"

	"sermonscribe/api/internal/document"
)

// RenderHTML renders the document body as HTML. Title, speaker and
// passage are left to the surrounding export template.
func RenderHTML(root *document.RootNode) string {
	if root == nil {
		return ""
	}
	var out strings.Builder
	for _, child := range root.Children {
		out.WriteString(renderNode(child))
	}
	return out.String()
}

func renderNode(n *document.Node) string {
	switch n.Type {
	case document.NodeParagraph:
		return fmt.Sprintf("<p>%s</p>\n", renderInline(n.Children))
	case document.NodeHeading:
		level := n.Level
		if level < 1 || level > 6 {
			level = 2
		}
		return fmt.Sprintf("<h%d>%s</h%d>\n", level, renderInline(n.Children), level)
	case document.NodeQuoteBlock:
		var cite string
		if meta := n.Metadata; meta != nil && meta.Reference.NormalizedReference != "" {
			label := meta.Reference.NormalizedReference
			if meta.Detection.Translation != "" {
				label += " (" + meta.Detection.Translation + ")"
			}
			cite = fmt.Sprintf("<cite>%s</cite>", html.EscapeString(label))
		}
		return fmt.Sprintf("<blockquote>\n<p>%s</p>\n%s</blockquote>\n", renderInline(n.Children), cite)
	case document.NodeText:
		return renderTextWithMarks(n.Content, n.Marks)
	case document.NodeInterjection:
		return fmt.Sprintf(`<em class="interjection">%s</em>`, html.EscapeString(n.Content))
	default:
		return ""
	}
}

func renderInline(children []*document.Node) string {
	var out strings.Builder
	for _, child := range children {
		out.WriteString(renderNode(child))
	}
	return out.String()
}

// renderTextWithMarks applies marks from outside in.
func renderTextWithMarks(text string, marks []document.Mark) string {
	if text == "" {
		return ""
	}
	htmlText := html.EscapeString(text)
	for i := len(marks) - 1; i >= 0; i-- {
		switch marks[i].Type {
		case "bold":
			htmlText = fmt.Sprintf("<strong>%s</strong>", htmlText)
		case "italic":
			htmlText = fmt.Sprintf("<em>%s</em>", htmlText)
		case "code":
			htmlText = fmt.Sprintf("<code>%s</code>", htmlText)
		case "strike":
			htmlText = fmt.Sprintf("<s>%s</s>", htmlText)
		case "underline":
			htmlText = fmt.Sprintf("<u>%s</u>", htmlText)
		case "link":
			href := ""
			if marks[i].Attrs != nil {
				href, _ = marks[i].Attrs["href"].(string)
			}
			htmlText = fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(href), htmlText)
		}
	}
	return htmlText
}
