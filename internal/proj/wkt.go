package proj

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
)

// wktNode is one bracketed element of a WKT coordinate-system descriptor,
// e.g. SPHEROID["GRS_1980",6378137.0,298.257222101].
type wktNode struct {
	keyword  string
	values   []string
	children []*wktNode
}

// child returns the first direct child with the given keyword.
func (n *wktNode) child(keyword string) *wktNode {
	for _, c := range n.children {
		if strings.EqualFold(c.keyword, keyword) {
			return c
		}
	}
	return nil
}

// childs returns all direct children with the given keyword.
func (n *wktNode) childs(keyword string) []*wktNode {
	var out []*wktNode
	for _, c := range n.children {
		if strings.EqualFold(c.keyword, keyword) {
			out = append(out, c)
		}
	}
	return out
}

// floatValue parses the i-th value of the node as a float.
func (n *wktNode) floatValue(i int) (float64, error) {
	if i >= len(n.values) {
		return 0, eris.Errorf("proj: %s has no value %d", n.keyword, i)
	}
	v, err := strconv.ParseFloat(n.values[i], 64)
	if err != nil {
		return 0, eris.Wrapf(err, "proj: %s value %q", n.keyword, n.values[i])
	}
	return v, nil
}

// parseWKT parses a full WKT descriptor into a node tree. The grammar is
// KEYWORD[value, value, NESTED[...], ...] with string values quoted and
// numbers bare. ESRI .prj files put everything on one line; whitespace
// between tokens is tolerated anyway.
func parseWKT(s string) (*wktNode, error) {
	p := &wktParser{input: s}
	node, err := p.parseNode()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.input) {
		return nil, eris.Errorf("proj: trailing data at offset %d", p.pos)
	}
	return node, nil
}

type wktParser struct {
	input string
	pos   int
}

func (p *wktParser) skipSpace() {
	for p.pos < len(p.input) && unicode.IsSpace(rune(p.input[p.pos])) {
		p.pos++
	}
}

func (p *wktParser) parseNode() (*wktNode, error) {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.input) && isKeywordChar(p.input[p.pos]) {
		p.pos++
	}
	if p.pos == start {
		return nil, eris.Errorf("proj: expected keyword at offset %d", start)
	}
	node := &wktNode{keyword: p.input[start:p.pos]}

	p.skipSpace()
	if p.pos >= len(p.input) || p.input[p.pos] != '[' {
		return nil, eris.Errorf("proj: expected '[' after %s", node.keyword)
	}
	p.pos++ // consume '['

	for {
		p.skipSpace()
		if p.pos >= len(p.input) {
			return nil, eris.Errorf("proj: unterminated %s", node.keyword)
		}
		switch ch := p.input[p.pos]; {
		case ch == ']':
			p.pos++
			return node, nil
		case ch == ',':
			p.pos++
		case ch == '"':
			v, err := p.parseQuoted()
			if err != nil {
				return nil, err
			}
			node.values = append(node.values, v)
		case isKeywordStart(ch):
			child, err := p.parseNode()
			if err != nil {
				return nil, err
			}
			node.children = append(node.children, child)
		default:
			v := p.parseBare()
			if v == "" {
				return nil, eris.Errorf("proj: unexpected character %q at offset %d", ch, p.pos)
			}
			node.values = append(node.values, v)
		}
	}
}

func (p *wktParser) parseQuoted() (string, error) {
	p.pos++ // consume opening quote
	start := p.pos
	for p.pos < len(p.input) && p.input[p.pos] != '"' {
		p.pos++
	}
	if p.pos >= len(p.input) {
		return "", eris.New("proj: unterminated string")
	}
	v := p.input[start:p.pos]
	p.pos++ // consume closing quote
	return v, nil
}

func (p *wktParser) parseBare() string {
	start := p.pos
	for p.pos < len(p.input) && isBareChar(p.input[p.pos]) {
		p.pos++
	}
	return p.input[start:p.pos]
}

func isKeywordStart(ch byte) bool {
	return (ch >= 'A' && ch <= 'Z') || (ch >= 'a' && ch <= 'z')
}

func isKeywordChar(ch byte) bool {
	return isKeywordStart(ch) || ch == '_' || (ch >= '0' && ch <= '9')
}

func isBareChar(ch byte) bool {
	return (ch >= '0' && ch <= '9') || ch == '.' || ch == '-' || ch == '+' || ch == 'e' || ch == 'E'
}
