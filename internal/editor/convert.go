package editor

import (
	"fmt"
	"strings"
	"time"

	"sermonscribe/api/internal/document"
)

// Synthetic metadata paragraphs are recognized on the way back by literal
// prefix match. This is fragile by construction: a user paragraph that
// starts with one of these exact prefixes will be absorbed as metadata.
const (
	prefixPrimaryReference = "Primary Reference:"
	prefixSpeaker          = "Speaker:"
	prefixTags             = "Tags:"
)

// interjectionMark wraps interjection text inside quote blocks on the
// editor side, carrying the node and metadata ids through the round-trip.
const interjectionMark = "interjection"

// Options controls id handling during conversion.
type Options struct {
	// PreserveIDs makes structural nodes reuse the id carried in editor
	// attributes. Text node ids are regenerated every round-trip
	// regardless; they are high churn and not worth stabilizing.
	PreserveIDs bool
	// ExistingRoot supplies root identity and metadata continuity, since
	// the editor tree itself carries no root id.
	ExistingRoot *document.RootNode
}

// DefaultOptions preserves structural ids.
func DefaultOptions() Options { return Options{PreserveIDs: true} }

// ToEditorTree maps the document AST to the editor's native tree. Root
// metadata becomes synthetic leading nodes (centered title heading,
// labeled metadata paragraphs) so the rich-text surface can edit it
// uniformly, followed by the document blocks and a trailing separator.
// Structural node ids ride along as nodeId attributes when
// opts.PreserveIDs is set; without it the editor mints its own.
func ToEditorTree(root *document.RootNode, opts Options) (Node, error) {
	if root == nil {
		return Node{}, fmt.Errorf("%w: nil root", ErrMalformedTree)
	}

	content := []Node{}
	if root.Title != "" {
		content = append(content, Node{
			Type:    "heading",
			Attrs:   map[string]any{"level": 1, "textAlign": "center"},
			Content: []Node{{Type: "text", Text: root.Title}},
		})
	}
	if root.BiblePassage != "" {
		content = append(content, labelParagraph(prefixPrimaryReference, root.BiblePassage))
	}
	if root.Speaker != "" {
		content = append(content, labelParagraph(prefixSpeaker, root.Speaker))
	}
	if len(root.Tags) > 0 {
		content = append(content, labelParagraph(prefixTags, strings.Join(root.Tags, ", ")))
	}

	for _, child := range root.Children {
		node, ok := nodeToEditor(child, opts)
		if ok {
			content = append(content, node)
		}
	}
	content = append(content, Node{Type: "horizontalRule"})

	return Node{Type: "doc", Content: content}, nil
}

func labelParagraph(prefix, value string) Node {
	return Node{
		Type:    "paragraph",
		Content: []Node{{Type: "text", Text: prefix + " " + value}},
	}
}

// nodeToEditor maps one AST node. The second return is false for nodes
// the editor format forbids, i.e. empty text leaves.
func nodeToEditor(n *document.Node, opts Options) (Node, bool) {
	switch n.Type {
	case document.NodeParagraph:
		return Node{Type: "paragraph", Attrs: structuralAttrs(n, opts), Content: childrenToEditor(n.Children, opts)}, true
	case document.NodeHeading:
		attrs := structuralAttrs(n, opts)
		attrs["level"] = n.Level
		return Node{
			Type:    "heading",
			Attrs:   attrs,
			Content: childrenToEditor(n.Children, opts),
		}, true
	case document.NodeQuoteBlock:
		return Node{
			Type:    "blockquote",
			Attrs:   quoteAttrs(n, opts),
			Content: childrenToEditor(n.Children, opts),
		}, true
	case document.NodeText:
		if n.Content == "" {
			return Node{}, false
		}
		return Node{Type: "text", Text: n.Content, Marks: marksToEditor(n.Marks)}, true
	case document.NodeInterjection:
		if n.Content == "" {
			return Node{}, false
		}
		return Node{
			Type: "text",
			Text: n.Content,
			Marks: []Mark{{
				Type:  interjectionMark,
				Attrs: map[string]any{"nodeId": n.ID, "metadataId": n.MetadataID},
			}},
		}, true
	default:
		return Node{}, false
	}
}

// childrenToEditor always returns a non-nil slice: the editor schema
// requires structural nodes to carry a content array even when empty.
func childrenToEditor(children []*document.Node, opts Options) []Node {
	out := []Node{}
	for _, child := range children {
		if node, ok := nodeToEditor(child, opts); ok {
			out = append(out, node)
		}
	}
	return out
}

func structuralAttrs(n *document.Node, opts Options) map[string]any {
	attrs := map[string]any{}
	if opts.PreserveIDs {
		attrs["nodeId"] = n.ID
	}
	return attrs
}

// quoteAttrs flattens quote metadata into editor node attributes.
func quoteAttrs(n *document.Node, opts Options) map[string]any {
	attrs := structuralAttrs(n, opts)
	meta := n.Metadata
	if meta == nil {
		return attrs
	}
	attrs["reference"] = meta.Reference.NormalizedReference
	attrs["book"] = meta.Reference.Book
	attrs["chapter"] = meta.Reference.Chapter
	attrs["verseStart"] = meta.Reference.VerseStart
	if meta.Reference.VerseEnd != nil {
		attrs["verseEnd"] = *meta.Reference.VerseEnd
	}
	attrs["confidence"] = meta.Detection.Confidence
	attrs["translation"] = meta.Detection.Translation
	attrs["userVerified"] = meta.UserVerified
	if meta.IsNonBiblical {
		attrs["isNonBiblical"] = true
	}
	if meta.Detection.VerseText != "" {
		attrs["verseText"] = meta.Detection.VerseText
	}
	return attrs
}

func marksToEditor(marks []document.Mark) []Mark {
	if len(marks) == 0 {
		return nil
	}
	out := make([]Mark, len(marks))
	for i, m := range marks {
		out[i] = Mark{Type: m.Type, Attrs: m.Attrs}
	}
	return out
}

// FromEditorTree maps an editor tree back to a document AST. Structural
// node ids survive when opts.PreserveIDs is set; text node ids are always
// minted fresh. A degenerate or empty tree succeeds with a warning,
// carrying metadata over from opts.ExistingRoot, because the editor can
// transiently emit an empty document during initialization.
func FromEditorTree(tree Node, opts Options) (*document.RootNode, []string, error) {
	if tree.Type != "doc" {
		return nil, nil, fmt.Errorf("%w: root node type %q, want doc", ErrMalformedTree, tree.Type)
	}

	root := &document.RootNode{
		ID:        document.NewRootID(),
		Version:   1,
		UpdatedAt: time.Now(),
		Children:  []*document.Node{},
	}
	existing := opts.ExistingRoot
	if existing != nil {
		root.ID = existing.ID
		root.Version = existing.Version + 1
	}

	var warnings []string
	if len(tree.Content) == 0 {
		if existing != nil {
			root.Title = existing.Title
			root.BiblePassage = existing.BiblePassage
			root.Speaker = existing.Speaker
			root.Tags = append([]string(nil), existing.Tags...)
		}
		warnings = append(warnings, "editor tree has no content; kept previous document metadata")
		return root, warnings, nil
	}

	for i, child := range tree.Content {
		switch child.Type {
		case "heading":
			// Only the synthetic title is absorbed: first node AND carrying
			// the center-alignment marker. A user-typed first heading stays
			// a heading.
			if i == 0 && attrString(child.Attrs, "textAlign") == "center" {
				root.Title = strings.TrimSpace(child.PlainText())
				continue
			}
		case "paragraph":
			text := strings.TrimSpace(child.PlainText())
			if value, ok := strings.CutPrefix(text, prefixPrimaryReference); ok {
				root.BiblePassage = strings.TrimSpace(value)
				continue
			}
			if value, ok := strings.CutPrefix(text, prefixSpeaker); ok {
				root.Speaker = strings.TrimSpace(value)
				continue
			}
			if value, ok := strings.CutPrefix(text, prefixTags); ok {
				root.Tags = splitTags(value)
				continue
			}
		case "horizontalRule":
			continue
		}

		block, err := blockFromEditor(child, opts)
		if err != nil {
			return nil, nil, err
		}
		if block != nil {
			root.Children = append(root.Children, block)
		}
	}
	return root, warnings, nil
}

func splitTags(value string) []string {
	var tags []string
	for _, part := range strings.Split(value, ",") {
		if tag := strings.TrimSpace(part); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

func blockFromEditor(n Node, opts Options) (*document.Node, error) {
	switch n.Type {
	case "paragraph":
		node := structuralNode(document.NodeParagraph, n.Attrs, opts)
		node.Children = inlineFromEditor(n.Content, opts)
		return node, nil
	case "heading":
		node := structuralNode(document.NodeHeading, n.Attrs, opts)
		node.Level = 1
		if level, ok := attrInt(n.Attrs, "level"); ok && level >= 1 && level <= 6 {
			node.Level = level
		}
		node.Children = inlineFromEditor(n.Content, opts)
		return node, nil
	case "blockquote":
		node := structuralNode(document.NodeQuoteBlock, n.Attrs, opts)
		node.Children = inlineFromEditor(n.Content, opts)
		node.Metadata = quoteMetadataFromAttrs(n.Attrs, node.Children)
		return node, nil
	case "text":
		// A bare text leaf at block level gets wrapped in a paragraph
		// rather than rejected; editors produce this transiently.
		para := structuralNode(document.NodeParagraph, nil, opts)
		para.Children = inlineFromEditor([]Node{n}, opts)
		return para, nil
	default:
		// Unknown block types are dropped, matching the tolerance the
		// renderer shows for unknown nodes.
		return nil, nil
	}
}

func structuralNode(nodeType document.NodeType, attrs map[string]any, opts Options) *document.Node {
	id := ""
	if opts.PreserveIDs {
		id = attrString(attrs, "nodeId")
	}
	if id == "" {
		id = document.NewNodeID()
	}
	node := &document.Node{ID: id, Type: nodeType, Version: 1, UpdatedAt: time.Now()}
	if prev := findExisting(opts.ExistingRoot, id); prev != nil {
		node.Version = prev.Version + 1
	}
	return node
}

func findExisting(root *document.RootNode, id string) *document.Node {
	if root == nil {
		return nil
	}
	return root.FindNode(id)
}

func inlineFromEditor(content []Node, opts Options) []*document.Node {
	out := []*document.Node{}
	for _, n := range content {
		if n.Type != "text" {
			// Nested blocks (headings hold them by convention) recurse.
			if block, err := blockFromEditor(n, opts); err == nil && block != nil {
				out = append(out, block)
			}
			continue
		}
		if n.Text == "" {
			continue
		}
		if mark, ok := findMark(n.Marks, interjectionMark); ok {
			id := ""
			if opts.PreserveIDs {
				id = attrString(mark.Attrs, "nodeId")
			}
			if id == "" {
				id = document.NewNodeID()
			}
			out = append(out, &document.Node{
				ID:         id,
				Type:       document.NodeInterjection,
				Version:    1,
				UpdatedAt:  time.Now(),
				Content:    n.Text,
				MetadataID: attrString(mark.Attrs, "metadataId"),
			})
			continue
		}
		text := document.NewText(n.Text)
		text.Marks = marksFromEditor(n.Marks)
		out = append(out, text)
	}
	return out
}

func findMark(marks []Mark, markType string) (Mark, bool) {
	for _, m := range marks {
		if m.Type == markType {
			return m, true
		}
	}
	return Mark{}, false
}

// marksFromEditor drops duplicate mark types, keeping the first occurrence
// to satisfy the model's no-duplicate-marks invariant.
func marksFromEditor(marks []Mark) []document.Mark {
	if len(marks) == 0 {
		return nil
	}
	seen := map[string]bool{}
	var out []document.Mark
	for _, m := range marks {
		if seen[m.Type] {
			continue
		}
		seen[m.Type] = true
		out = append(out, document.Mark{Type: m.Type, Attrs: m.Attrs})
	}
	return out
}

// quoteMetadataFromAttrs rebuilds quote metadata from the flattened
// blockquote attributes. Missing optional metadata falls back to defaults
// rather than failing; conversion only errors on structural problems.
func quoteMetadataFromAttrs(attrs map[string]any, children []*document.Node) *document.QuoteMetadata {
	meta := &document.QuoteMetadata{
		Reference: document.Reference{Book: "Unknown"},
		Detection: document.Detection{Confidence: 0.5, Translation: "KJV"},
	}
	if book := attrString(attrs, "book"); book != "" {
		meta.Reference.Book = book
	}
	if chapter, ok := attrInt(attrs, "chapter"); ok {
		meta.Reference.Chapter = chapter
	}
	if verse, ok := attrInt(attrs, "verseStart"); ok {
		meta.Reference.VerseStart = verse
	}
	if verseEnd, ok := attrInt(attrs, "verseEnd"); ok {
		meta.Reference.VerseEnd = &verseEnd
	}
	meta.Reference.NormalizedReference = attrString(attrs, "reference")
	if confidence, ok := attrFloat(attrs, "confidence"); ok {
		meta.Detection.Confidence = confidence
	}
	if translation := attrString(attrs, "translation"); translation != "" {
		meta.Detection.Translation = translation
	}
	meta.Detection.VerseText = attrString(attrs, "verseText")
	meta.UserVerified = attrBool(attrs, "userVerified")
	meta.IsNonBiblical = attrBool(attrs, "isNonBiblical")

	for _, child := range children {
		if child.Type == document.NodeInterjection {
			meta.Interjections = append(meta.Interjections, document.InterjectionMeta{
				ID:        child.MetadataID,
				Text:      child.Content,
				Confirmed: true,
			})
		}
	}
	return meta
}
