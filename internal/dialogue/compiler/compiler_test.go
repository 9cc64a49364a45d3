package compiler

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"chosenoffset.com/void/internal/dialogue/ast"
	"chosenoffset.com/void/internal/platform/logger"
)

const introScript = `<?xml version="1.0" encoding="UTF-8"?>
<chapter voice="universe">
    <line><s0>...</s0></line><await/>
    <line>The <s4>universe</s4> is silent</line><await/>
    <!-- the murmur starts here -->
    <line>What's <s4>that?</s4></line><await/>
    <?play song/lowtide?>
    <line>It's <s1>you.</s1></line>
</chapter>`

func parse(t *testing.T, src string) (*Result, error) {
	t.Helper()
	c := New(logger.Wrap(zaptest.NewLogger(t)))
	return c.Parse(strings.NewReader(src))
}

func span(text string, speed uint32) ast.Span {
	return ast.Span{Text: text, Properties: ast.TextProperties{Speed: speed}}
}

func TestParseChapter(t *testing.T) {
	res, err := parse(t, introScript)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	want := &ast.Chapter{
		Voice: "universe",
		Content: []ast.ChExpr{
			ast.Line{Content: []ast.LineChild{span("...", 0)}},
			ast.Await,
			ast.Line{Content: []ast.LineChild{span("The ", 3), span("universe", 4), span(" is silent", 3)}},
			ast.Await,
			ast.Line{Content: []ast.LineChild{span("What's ", 3), span("that?", 4)}},
			ast.Await,
			ast.Play{Sound: "song/lowtide"},
			ast.Line{Content: []ast.LineChild{span("It's ", 3), span("you.", 1)}},
		},
	}
	if !reflect.DeepEqual(res.Chapter, want) {
		t.Errorf("chapter mismatch:\n got  %#v\n want %#v", res.Chapter, want)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("Expected no warnings, got %v", res.Warnings)
	}
}

func TestParseLineChildren(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []ast.LineChild
	}{
		{"default speed", `<line>plain</line>`, []ast.LineChild{span("plain", 3)}},
		{"speed override", `<line><s1>fast</s1></line>`, []ast.LineChild{span("fast", 1)}},
		{"s5 allowed", `<line><s5>max</s5></line>`, []ast.LineChild{span("max", 5)}},
		{"whitespace dropped", `<line>  <s0>hi</s0>  </line>`, []ast.LineChild{span("hi", 0)}},
		{"innermost wins", `<line><s1>a<s4>b</s4>c</s1></line>`, []ast.LineChild{span("a", 1), span("b", 4), span("c", 1)}},
		{"no leak between siblings", `<line><s2><s5>x</s5></s2><s0>y</s0>z</line>`, []ast.LineChild{span("x", 5), span("y", 0), span("z", 3)}},
		{"inline instruction", `<line>knock<?play sfx/knock?><s4>knock</s4></line>`, []ast.LineChild{
			span("knock", 3), ast.Play{Sound: "sfx/knock"}, span("knock", 4),
		}},
		{"instruction only", `<line><?play sfx/door?></line>`, []ast.LineChild{ast.Play{Sound: "sfx/door"}}},
		{"cdata merged", `<line>a<![CDATA[ < b]]></line>`, []ast.LineChild{span("a < b", 3)}},
		{"entities decoded", `<line>fish &amp; chips</line>`, []ast.LineChild{span("fish & chips", 3)}},
		{"empty line", `<line></line>`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := parse(t, `<chapter voice="x">`+tt.line+`</chapter>`)
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if len(res.Chapter.Content) != 1 {
				t.Fatalf("Expected 1 expression, got %d", len(res.Chapter.Content))
			}
			line, ok := res.Chapter.Content[0].(ast.Line)
			if !ok {
				t.Fatalf("Expected ast.Line, got %T", res.Chapter.Content[0])
			}
			if !reflect.DeepEqual(line.Content, tt.want) {
				t.Errorf("line content = %#v, want %#v", line.Content, tt.want)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
	}{
		{"text under chapter", `<chapter voice="x">plain text</chapter>`, ErrGrammar},
		{"unknown element", `<chapter voice="x"><foo/></chapter>`, ErrUnknownElement},
		{"unknown element in line", `<chapter voice="x"><line><b>hi</b></line></chapter>`, ErrUnknownElement},
		{"unknown element in style", `<chapter voice="x"><line><s1><i>hi</i></s1></line></chapter>`, ErrUnknownElement},
		{"s6 is not a style", `<chapter voice="x"><line><s6>hi</s6></line></chapter>`, ErrUnknownElement},
		{"unknown pi in chapter", `<chapter voice="x"><?unknown val="x"?></chapter>`, ErrUnsupportedInstruction},
		{"unknown pi in line", `<chapter voice="x"><line><?shake 3?></line></chapter>`, ErrUnsupportedInstruction},
		{"unknown pi in prolog", `<?unknown val="x"?><chapter voice="x"/>`, ErrUnsupportedInstruction},
		{"play outside chapter", `<chapter voice="x"/><?play sfx/boom?>`, ErrGrammar},
		{"empty play", `<chapter voice="x"><?play ?></chapter>`, ErrGrammar},
		{"wrong root", `<scene voice="x"></scene>`, ErrGrammar},
		{"missing voice", `<chapter></chapter>`, ErrGrammar},
		{"style outside line", `<chapter voice="x"><s1>hi</s1></chapter>`, ErrGrammar},
		{"nested line", `<chapter voice="x"><line><line>hi</line></line></chapter>`, ErrGrammar},
		{"await in line", `<chapter voice="x"><line>hi<await/></line></chapter>`, ErrGrammar},
		{"unclosed tag", `<chapter voice="x"><line>hi</chapter>`, ErrMalformedXML},
		{"truncated", `<chapter voice="x"><line>hi`, ErrMalformedXML},
		{"empty input", ``, ErrMalformedXML},
		{"two roots", `<chapter voice="x"/><chapter voice="y"/>`, ErrMalformedXML},
		{"text after root", `<chapter voice="x"/>trailing`, ErrMalformedXML},
		{"unknown entity", `<chapter voice="x"><line>&nbsp;</line></chapter>`, ErrMalformedXML},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := parse(t, tt.src)
			if err == nil {
				t.Fatalf("Expected error, got chapter %#v", res.Chapter)
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
			if res != nil {
				t.Errorf("Expected no result on fatal error")
			}
			var cerr *Error
			if !errors.As(err, &cerr) {
				t.Errorf("Expected *Error, got %T", err)
			}
		})
	}
}

func TestErrorCarriesPosition(t *testing.T) {
	_, err := parse(t, "<chapter voice=\"x\">\n  <line>ok</line>\n  <foo/>\n</chapter>")
	var cerr *Error
	if !errors.As(err, &cerr) {
		t.Fatalf("Expected *Error, got %v", err)
	}
	if cerr.Line != 3 {
		t.Errorf("Expected error on line 3, got %d", cerr.Line)
	}
	if !strings.Contains(cerr.Error(), "<foo> not implemented") {
		t.Errorf("Expected message to name the element, got %q", cerr.Error())
	}
}

func TestMalformedLineContentWarns(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	c := New(logger.Wrap(zap.New(core)))

	res, err := c.Parse(strings.NewReader(`<chapter voice="x">
<line>before<!-- typo -->after</line>
<line>next</line>
</chapter>`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if len(res.Warnings) != 1 {
		t.Fatalf("Expected 1 warning, got %v", res.Warnings)
	}
	if res.Warnings[0].Line != 2 {
		t.Errorf("Expected warning on line 2, got %d", res.Warnings[0].Line)
	}
	if got := logs.FilterMessageSnippet("possibly malformed line").Len(); got != 1 {
		t.Errorf("Expected 1 logged warning, got %d", got)
	}

	want := []ast.ChExpr{
		ast.Line{Content: []ast.LineChild{span("before", 3), span("after", 3)}},
		ast.Line{Content: []ast.LineChild{span("next", 3)}},
	}
	if !reflect.DeepEqual(res.Chapter.Content, want) {
		t.Errorf("content = %#v, want %#v", res.Chapter.Content, want)
	}
}

func TestCompiledChapterRoundTrips(t *testing.T) {
	res, err := parse(t, introScript)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	data, err := ast.Encode(res.Chapter)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	got, err := ast.Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !reflect.DeepEqual(got, res.Chapter) {
		t.Errorf("decoded chapter differs from parsed chapter")
	}
}

func TestCompileFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "intro.xml")
	dst := filepath.Join(dir, "out", "intro.chap")
	if err := os.WriteFile(src, []byte(introScript), 0o644); err != nil {
		t.Fatal(err)
	}

	c := New(logger.Wrap(zaptest.NewLogger(t)))
	res, err := c.CompileFile(src, dst)
	if err != nil {
		t.Fatalf("CompileFile failed: %v", err)
	}

	got, err := ast.ReadFile(dst)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !reflect.DeepEqual(got, res.Chapter) {
		t.Errorf("artifact differs from compiled chapter")
	}
}

func TestCompileFileFailureWritesNothing(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "bad.xml")
	dst := filepath.Join(dir, "bad.chap")
	if err := os.WriteFile(src, []byte(`<chapter voice="x">oops</chapter>`), 0o644); err != nil {
		t.Fatal(err)
	}

	c := New(nil)
	if _, err := c.CompileFile(src, dst); !errors.Is(err, ErrGrammar) {
		t.Fatalf("Expected ErrGrammar, got %v", err)
	}
	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Errorf("Expected no artifact, stat returned %v", err)
	}
}
