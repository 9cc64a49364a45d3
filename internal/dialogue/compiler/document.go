package compiler

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// nodeKind tags the nodes of a parsed script document.
type nodeKind int

const (
	elementNode nodeKind = iota
	textNode
	piNode
	commentNode
	directiveNode
)

func (k nodeKind) String() string {
	switch k {
	case elementNode:
		return "element"
	case textNode:
		return "text"
	case piNode:
		return "processing instruction"
	case commentNode:
		return "comment"
	case directiveNode:
		return "directive"
	default:
		return "unknown"
	}
}

// node is one node of the document tree. name holds the element's local name
// or the PI target; data holds text, comment, directive or PI content.
type node struct {
	kind     nodeKind
	name     string
	attrs    []xml.Attr
	data     string
	children []*node
	line     int
	column   int
}

func (n *node) attr(name string) (string, bool) {
	for _, a := range n.attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

func (n *node) isWhitespace() bool {
	return strings.TrimSpace(n.data) == ""
}

// document is a parsed script: its root element plus the processing
// instructions found outside it.
type document struct {
	root    *node
	outside []*node
}

// parseDocument reads a whole XML document into a tree. Adjacent character
// data (text and CDATA) is merged into a single text node.
func parseDocument(r io.Reader) (*document, error) {
	d := xml.NewDecoder(r)
	d.Strict = true

	doc := &document{}
	var stack []*node

	for {
		line, column := d.InputPos()
		tok, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, malformed(err)
		}

		var n *node
		switch t := tok.(type) {
		case xml.StartElement:
			n = &node{kind: elementNode, name: t.Name.Local, attrs: t.Copy().Attr}
		case xml.EndElement:
			stack = stack[:len(stack)-1]
			continue
		case xml.CharData:
			if len(stack) == 0 {
				if strings.TrimSpace(string(t)) != "" {
					return nil, &Error{Kind: ErrMalformedXML, Line: line, Column: column, Msg: "text outside the root element"}
				}
				continue
			}
			parent := stack[len(stack)-1]
			if last := len(parent.children) - 1; last >= 0 && parent.children[last].kind == textNode {
				parent.children[last].data += string(t)
				continue
			}
			n = &node{kind: textNode, data: string(t)}
		case xml.Comment:
			n = &node{kind: commentNode, data: string(t)}
		case xml.ProcInst:
			n = &node{kind: piNode, name: t.Target, data: strings.TrimSpace(string(t.Inst))}
		case xml.Directive:
			n = &node{kind: directiveNode, data: string(t)}
		default:
			continue
		}
		n.line, n.column = line, column

		if len(stack) == 0 {
			switch n.kind {
			case elementNode:
				if doc.root != nil {
					return nil, &Error{Kind: ErrMalformedXML, Line: line, Column: column, Msg: "multiple root elements"}
				}
				doc.root = n
			case piNode:
				doc.outside = append(doc.outside, n)
			}
		} else {
			parent := stack[len(stack)-1]
			parent.children = append(parent.children, n)
		}

		if n.kind == elementNode {
			stack = append(stack, n)
		}
	}

	if doc.root == nil {
		return nil, &Error{Kind: ErrMalformedXML, Line: 1, Column: 1, Msg: "no root element"}
	}
	return doc, nil
}

func malformed(err error) error {
	var syntax *xml.SyntaxError
	if errors.As(err, &syntax) {
		return &Error{Kind: ErrMalformedXML, Line: syntax.Line, Msg: syntax.Msg, Err: err}
	}
	return &Error{Kind: ErrMalformedXML, Msg: fmt.Sprint(err), Err: err}
}
