package capa

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"
)

// Node is one element of a parsed problem document. The problem markup is
// schema-less, so we keep a generic tree rather than per-tag structs.
type Node struct {
	Tag      string
	Attrs    map[string]string
	Children []*Node
	Text     string
}

// ParseXML parses a problem document into a node tree.
func ParseXML(data []byte) (*Node, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var root *Node
	var stack []*Node
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			n := &Node{Tag: t.Name.Local, Attrs: map[string]string{}}
			for _, a := range t.Attr {
				n.Attrs[a.Name.Local] = a.Value
			}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, n)
			} else if root == nil {
				root = n
			}
			stack = append(stack, n)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].Text += string(t)
			}
		}
	}
	return root, nil
}

// Attr returns the named attribute, or def if absent.
func (n *Node) Attr(name, def string) string {
	if v, ok := n.Attrs[name]; ok {
		return v
	}
	return def
}

// HasAttr reports whether the attribute is present, even if empty.
func (n *Node) HasAttr(name string) bool {
	_, ok := n.Attrs[name]
	return ok
}

// Find returns the first descendant with the given tag, depth-first, or nil.
func (n *Node) Find(tag string) *Node {
	for _, c := range n.Children {
		if c.Tag == tag {
			return c
		}
		if m := c.Find(tag); m != nil {
			return m
		}
	}
	return nil
}

// FindAll returns all descendants with the given tag in document order.
func (n *Node) FindAll(tag string) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Tag == tag {
			out = append(out, c)
		}
		out = append(out, c.FindAll(tag)...)
	}
	return out
}

// FindAny returns all descendants whose tag is in the given set, in
// document order.
func (n *Node) FindAny(tags map[string]bool) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if tags[c.Tag] {
			out = append(out, c)
		}
		out = append(out, c.FindAny(tags)...)
	}
	return out
}

// TrimmedText returns the node's own character data with surrounding
// whitespace removed.
func (n *Node) TrimmedText() string {
	return strings.TrimSpace(n.Text)
}
