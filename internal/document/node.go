// Package document defines the canonical sermon document tree: the typed
// node schema, its identity and versioning rules, and validity predicates.
// Behavior beyond validity checks lives in the converter, reducer, and
// context packages; this is the data layer every other package agrees on.
package document

import (
	"fmt"
	"time"

	"sermonscribe/api/internal/util"
)

// NodeType tags the closed set of document node variants. Every traversal
// in this module switches exhaustively over these values.
type NodeType string

const (
	NodeParagraph    NodeType = "paragraph"
	NodeHeading      NodeType = "heading"
	NodeQuoteBlock   NodeType = "quote_block"
	NodeText         NodeType = "text"
	NodeInterjection NodeType = "interjection"
)

// Mark is an inline formatting annotation on a text node. Order is
// preserved; duplicate mark types on one node are invalid.
type Mark struct {
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// Reference identifies the scripture passage a quote claims to cite.
type Reference struct {
	Book                string `json:"book"`
	Chapter             int    `json:"chapter"`
	VerseStart          int    `json:"verseStart"`
	VerseEnd            *int   `json:"verseEnd"`
	OriginalText        string `json:"originalText,omitempty"`
	NormalizedReference string `json:"normalizedReference,omitempty"`
}

// Detection carries the confidence data produced when a quote candidate
// was identified, external to this core.
type Detection struct {
	Confidence              float64 `json:"confidence"`
	ConfidenceLevel         string  `json:"confidenceLevel,omitempty"`
	Translation             string  `json:"translation,omitempty"`
	TranslationAutoDetected bool    `json:"translationAutoDetected,omitempty"`
	VerseText               string  `json:"verseText,omitempty"`
	IsPartialMatch          bool    `json:"isPartialMatch,omitempty"`
}

// InterjectionMeta records one speaker-response span inside a quote and
// whether the user has confirmed it.
type InterjectionMeta struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Confirmed bool   `json:"confirmed"`
}

// QuoteMetadata is attached to every quote block node.
type QuoteMetadata struct {
	Reference     Reference          `json:"reference"`
	Detection     Detection          `json:"detection"`
	Interjections []InterjectionMeta `json:"interjections"`
	UserVerified  bool               `json:"userVerified"`
	IsNonBiblical bool               `json:"isNonBiblical,omitempty"`
}

// Node is one node of the document tree. The Type tag decides which
// fields are meaningful: Children for paragraph/heading/quote_block,
// Content (+Marks) for text, Content+MetadataID for interjection,
// Level for heading, Metadata for quote_block.
type Node struct {
	ID        string    `json:"id"`
	Type      NodeType  `json:"type"`
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updatedAt"`

	Children []*Node `json:"children,omitempty"`
	Level    int     `json:"level,omitempty"`

	Content    string `json:"content,omitempty"`
	Marks      []Mark `json:"marks,omitempty"`
	MetadataID string `json:"metadataId,omitempty"`

	Metadata *QuoteMetadata `json:"metadata,omitempty"`
}

// RootNode is the document. Its ID is stable for the life of one open
// document and must survive every save and round-trip.
type RootNode struct {
	ID           string    `json:"id"`
	Version      int       `json:"version"`
	UpdatedAt    time.Time `json:"updatedAt"`
	Title        string    `json:"title,omitempty"`
	BiblePassage string    `json:"biblePassage,omitempty"`
	Speaker      string    `json:"speaker,omitempty"`
	Tags         []string  `json:"tags,omitempty"`
	Children     []*Node   `json:"children"`
}

// NewNodeID mints an opaque node identifier.
func NewNodeID() string { return util.NewID("node") }

// NewRootID mints a document root identifier.
func NewRootID() string { return util.NewID("doc") }

// NewParagraph builds an empty paragraph node.
func NewParagraph(children ...*Node) *Node {
	return &Node{ID: NewNodeID(), Type: NodeParagraph, Version: 1, UpdatedAt: time.Now(), Children: children}
}

// NewText builds a text node with freshly minted id.
func NewText(content string, marks ...Mark) *Node {
	return &Node{ID: NewNodeID(), Type: NodeText, Version: 1, UpdatedAt: time.Now(), Content: content, Marks: marks}
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	out := *n
	if n.Marks != nil {
		out.Marks = make([]Mark, len(n.Marks))
		for i, m := range n.Marks {
			out.Marks[i] = m.clone()
		}
	}
	if n.Metadata != nil {
		meta := *n.Metadata
		if n.Metadata.Interjections != nil {
			meta.Interjections = append([]InterjectionMeta(nil), n.Metadata.Interjections...)
		}
		if n.Metadata.Reference.VerseEnd != nil {
			end := *n.Metadata.Reference.VerseEnd
			meta.Reference.VerseEnd = &end
		}
		out.Metadata = &meta
	}
	if n.Children != nil {
		out.Children = make([]*Node, len(n.Children))
		for i, child := range n.Children {
			out.Children[i] = child.Clone()
		}
	}
	return &out
}

func (m Mark) clone() Mark {
	out := Mark{Type: m.Type}
	if m.Attrs != nil {
		out.Attrs = make(map[string]any, len(m.Attrs))
		for k, v := range m.Attrs {
			out.Attrs[k] = v
		}
	}
	return out
}

// Clone returns a deep copy of the root and its subtree.
func (r *RootNode) Clone() *RootNode {
	if r == nil {
		return nil
	}
	out := *r
	if r.Tags != nil {
		out.Tags = append([]string(nil), r.Tags...)
	}
	out.Children = make([]*Node, len(r.Children))
	for i, child := range r.Children {
		out.Children[i] = child.Clone()
	}
	return &out
}

// PlainText renders the node subtree as plain text. Block nodes are
// separated by newlines; inline content is concatenated.
func (n *Node) PlainText() string {
	switch n.Type {
	case NodeText, NodeInterjection:
		return n.Content
	case NodeParagraph, NodeHeading, NodeQuoteBlock:
		var out string
		for _, child := range n.Children {
			out += child.PlainText()
		}
		return out
	default:
		return ""
	}
}

// PlainText renders the whole document as plain text, one block per line.
func (r *RootNode) PlainText() string {
	var out string
	for i, child := range r.Children {
		if i > 0 {
			out += "\n"
		}
		out += child.PlainText()
	}
	return out
}

// Walk visits every node in the subtree depth-first. Returning false from
// fn stops the walk.
func Walk(nodes []*Node, fn func(*Node) bool) bool {
	for _, n := range nodes {
		if !fn(n) {
			return false
		}
		if len(n.Children) > 0 {
			if !Walk(n.Children, fn) {
				return false
			}
		}
	}
	return true
}

// FindNode returns the node with the given id, or nil.
func (r *RootNode) FindNode(id string) *Node {
	var found *Node
	Walk(r.Children, func(n *Node) bool {
		if n.ID == id {
			found = n
			return false
		}
		return true
	})
	return found
}

// Touch bumps the node's version and timestamp after a mutation.
func (n *Node) Touch() {
	n.Version++
	n.UpdatedAt = time.Now()
}

// Validate checks structural invariants of the tree. Structural problems
// (duplicate ids, bad heading levels, illegal children, duplicate mark
// types) are returned as the error; semantically suspect but representable
// states come back as warnings, most notably a verified quote with neither
// a normalized reference nor a non-biblical flag.
func (r *RootNode) Validate() (warnings []string, err error) {
	if r.ID == "" {
		return nil, fmt.Errorf("document root has empty id")
	}
	seen := map[string]bool{}
	var verr error
	Walk(r.Children, func(n *Node) bool {
		if n.ID == "" {
			verr = fmt.Errorf("%s node has empty id", n.Type)
			return false
		}
		if seen[n.ID] {
			verr = fmt.Errorf("duplicate node id %s", n.ID)
			return false
		}
		seen[n.ID] = true

		switch n.Type {
		case NodeHeading:
			if n.Level < 1 || n.Level > 6 {
				verr = fmt.Errorf("heading %s has level %d, want 1..6", n.ID, n.Level)
				return false
			}
		case NodeQuoteBlock:
			if n.Metadata == nil {
				verr = fmt.Errorf("quote block %s has no metadata", n.ID)
				return false
			}
			for _, child := range n.Children {
				if child.Type != NodeText && child.Type != NodeInterjection {
					verr = fmt.Errorf("quote block %s contains %s child", n.ID, child.Type)
					return false
				}
			}
			meta := n.Metadata
			if meta.UserVerified && !meta.IsNonBiblical && meta.Reference.NormalizedReference == "" {
				warnings = append(warnings, fmt.Sprintf("quote %s is verified but has no reference and is not flagged non-biblical", n.ID))
			}
		case NodeText:
			markTypes := map[string]bool{}
			for _, m := range n.Marks {
				if markTypes[m.Type] {
					verr = fmt.Errorf("text node %s repeats mark type %q", n.ID, m.Type)
					return false
				}
				markTypes[m.Type] = true
			}
		case NodeParagraph, NodeInterjection:
			// no extra structural constraints
		default:
			verr = fmt.Errorf("unknown node type %q on %s", n.Type, n.ID)
			return false
		}
		return true
	})
	if verr != nil {
		return nil, verr
	}
	return warnings, nil
}
