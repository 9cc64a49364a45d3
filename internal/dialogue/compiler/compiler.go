// Package compiler turns XML dialogue scripts into chapter ASTs.
//
// A script looks like:
//
//	<chapter voice="universe">
//	    <line>The <s4>universe</s4> is silent</line><await/>
//	    <?play song/lowtide?>
//	    <line>It's <s1>you.</s1></line>
//	</chapter>
//
// The grammar is closed: unknown elements and processing instructions abort
// the compile. Unclassifiable nodes inside a line are skipped with a warning.
package compiler

import (
	"fmt"
	"io"
	"os"

	"chosenoffset.com/void/internal/dialogue/ast"
	"chosenoffset.com/void/internal/platform/logger"
)

// Props is a style scope opened by a style tag inside a line.
type Props interface {
	apply(tp *ast.TextProperties)
}

// SpeedProp sets the reveal speed of the text it encloses (<s0>..<s5>).
type SpeedProp uint32

func (s SpeedProp) apply(tp *ast.TextProperties) {
	tp.Speed = uint32(s)
}

// resolve flattens a scope stack, outermost first, so the innermost wins.
func resolve(scope []Props) ast.TextProperties {
	tp := ast.TextProperties{Speed: ast.DefaultSpeed}
	for _, p := range scope {
		p.apply(&tp)
	}
	return tp
}

// styleSpeed reports the speed of a style tag name such as "s4".
func styleSpeed(name string) (SpeedProp, bool) {
	if len(name) != 2 || name[0] != 's' || name[1] < '0' || name[1] > '5' {
		return 0, false
	}
	return SpeedProp(name[1] - '0'), true
}

// Result is the output of a successful compile.
type Result struct {
	Chapter  *ast.Chapter
	Warnings []Warning
}

// Compiler compiles dialogue scripts. It holds no per-script state and may be
// shared between goroutines.
type Compiler struct {
	log *logger.Logger
}

// New creates a compiler that reports warnings to log.
func New(log *logger.Logger) *Compiler {
	if log == nil {
		log = logger.Nop()
	}
	return &Compiler{log: log}
}

// Parse compiles the script read from r.
func (c *Compiler) Parse(r io.Reader) (*Result, error) {
	doc, err := parseDocument(r)
	if err != nil {
		return nil, err
	}

	p := &parser{log: c.log}
	for _, n := range doc.outside {
		if n.name == "xml" {
			continue
		}
		if _, err := p.instruction(n); err != nil {
			return nil, err
		}
		return nil, newError(ErrGrammar, n, "instruction <?%s?> must be inside the chapter", n.name)
	}

	ch, err := p.chapter(doc.root)
	if err != nil {
		return nil, err
	}
	return &Result{Chapter: ch, Warnings: p.warnings}, nil
}

// CompileFile compiles the script at src and writes its binary artifact to
// dst. Nothing is written if compilation fails.
func (c *Compiler) CompileFile(src, dst string) (*Result, error) {
	f, err := os.Open(src)
	if err != nil {
		return nil, fmt.Errorf("failed to open script: %w", err)
	}
	defer f.Close()

	log := c.log.With("script", src)
	res, err := (&Compiler{log: log}).Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", src, err)
	}
	if err := ast.WriteFile(dst, res.Chapter); err != nil {
		return nil, err
	}

	log.Info("compiled chapter",
		"voice", res.Chapter.Voice,
		"expressions", len(res.Chapter.Content),
		"warnings", len(res.Warnings),
		"out", dst)
	return res, nil
}

// parser walks one document. Style scopes are passed down the recursion
// explicitly; only warnings accumulate here.
type parser struct {
	log      *logger.Logger
	warnings []Warning
}

func (p *parser) chapter(n *node) (*ast.Chapter, error) {
	if n.name != "chapter" {
		return nil, newError(ErrGrammar, n, "root element must be <chapter>, found <%s>", n.name)
	}
	voice, ok := n.attr("voice")
	if !ok {
		return nil, newError(ErrGrammar, n, "<chapter> requires a voice attribute")
	}

	ch := &ast.Chapter{Voice: voice}
	for _, child := range n.children {
		expr, err := p.chExpr(child)
		if err != nil {
			return nil, err
		}
		if expr != nil {
			ch.Content = append(ch.Content, expr)
		}
	}
	return ch, nil
}

// chExpr returns nil for nodes that produce no expression.
func (p *parser) chExpr(n *node) (ast.ChExpr, error) {
	switch n.kind {
	case elementNode:
		switch n.name {
		case "line":
			content, err := p.lineChildren(n.children, nil, nil)
			if err != nil {
				return nil, err
			}
			return ast.Line{Content: content}, nil
		case "await":
			return ast.Await, nil
		}
		if _, ok := styleSpeed(n.name); ok {
			return nil, newError(ErrGrammar, n, "style <%s> must be inside a <line>", n.name)
		}
		return nil, newError(ErrUnknownElement, n, "<%s> not implemented", n.name)
	case piNode:
		return p.instruction(n)
	case textNode:
		if !n.isWhitespace() {
			return nil, newError(ErrGrammar, n, "text cannot be the child of a chapter")
		}
		return nil, nil
	case commentNode:
		return nil, nil
	default:
		return nil, newError(ErrGrammar, n, "illegal %s in chapter", n.kind)
	}
}

func (p *parser) lineChildren(nodes []*node, scope []Props, content []ast.LineChild) ([]ast.LineChild, error) {
	for _, n := range nodes {
		switch n.kind {
		case elementNode:
			speed, ok := styleSpeed(n.name)
			if !ok {
				if n.name == "line" || n.name == "await" {
					return nil, newError(ErrGrammar, n, "<%s> cannot appear inside a line", n.name)
				}
				return nil, newError(ErrUnknownElement, n, "<%s> not implemented", n.name)
			}
			var err error
			content, err = p.lineChildren(n.children, append(scope, speed), content)
			if err != nil {
				return nil, err
			}
		case piNode:
			in, err := p.instruction(n)
			if err != nil {
				return nil, err
			}
			content = append(content, in)
		case textNode:
			if n.isWhitespace() {
				continue
			}
			content = append(content, ast.Span{Text: n.data, Properties: resolve(scope)})
		default:
			p.warn(n, fmt.Sprintf("possibly malformed line, found %s", n.kind))
		}
	}
	return content, nil
}

func (p *parser) instruction(n *node) (ast.Instruction, error) {
	switch n.name {
	case "play":
		if n.data == "" {
			return nil, newError(ErrGrammar, n, "<?play?> requires a sound")
		}
		return ast.Play{Sound: n.data}, nil
	default:
		return nil, newError(ErrUnsupportedInstruction, n, "<?%s?>", n.name)
	}
}

func (p *parser) warn(n *node, msg string) {
	w := Warning{Line: n.line, Column: n.column, Msg: msg}
	p.warnings = append(p.warnings, w)
	p.log.Warn(msg, "line", n.line, "column", n.column)
}
