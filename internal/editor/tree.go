// Package editor is the only code that understands the rich-text editor's
// native JSON tree. It maps that tree to and from the canonical document
// AST, and renders the AST to HTML for export.
package editor

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Node is one node of the editor's JSON document tree.
type Node struct {
	Type    string         `json:"type"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Content []Node         `json:"content,omitempty"`
	Text    string         `json:"text,omitempty"`
	Marks   []Mark         `json:"marks,omitempty"`
}

// Mark is an inline formatting mark on an editor text node.
type Mark struct {
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// ErrMalformedTree indicates structurally invalid editor input, e.g. a
// content field that is not an array. Missing optional metadata never
// produces this error.
var ErrMalformedTree = errors.New("malformed editor tree")

// ParseJSON decodes raw editor JSON into a Node, validating structure
// along the way. The editor can transiently emit an empty document during
// initialization; that parses fine and is handled by FromEditorTree.
func ParseJSON(raw []byte) (Node, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Node{}, fmt.Errorf("%w: %v", ErrMalformedTree, err)
	}
	if content, ok := fields["content"]; ok {
		var arr []json.RawMessage
		if err := json.Unmarshal(content, &arr); err != nil {
			return Node{}, fmt.Errorf("%w: content is not an array", ErrMalformedTree)
		}
	}
	var node Node
	if err := json.Unmarshal(raw, &node); err != nil {
		return Node{}, fmt.Errorf("%w: %v", ErrMalformedTree, err)
	}
	return node, nil
}

// PlainText concatenates the text leaves of the subtree.
func (n Node) PlainText() string {
	if n.Type == "text" {
		return n.Text
	}
	var out string
	for _, child := range n.Content {
		out += child.PlainText()
	}
	return out
}

func attrString(attrs map[string]any, key string) string {
	if attrs == nil {
		return ""
	}
	s, _ := attrs[key].(string)
	return s
}

// attrInt tolerates both int and float64 values, since attrs decoded from
// JSON arrive as float64.
func attrInt(attrs map[string]any, key string) (int, bool) {
	if attrs == nil {
		return 0, false
	}
	switch v := attrs[key].(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func attrFloat(attrs map[string]any, key string) (float64, bool) {
	if attrs == nil {
		return 0, false
	}
	switch v := attrs[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

func attrBool(attrs map[string]any, key string) bool {
	if attrs == nil {
		return false
	}
	b, _ := attrs[key].(bool)
	return b
}
