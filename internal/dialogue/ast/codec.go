package ast

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"google.golang.org/protobuf/encoding/protowire"
)

// FormatVersion is bumped whenever the wire layout changes incompatibly.
const FormatVersion byte = 1

var magic = []byte("VDLG")

// ErrCorrupt is returned for artifacts that cannot be decoded.
var ErrCorrupt = errors.New("corrupt chapter artifact")

// Field numbers of the wire layout.
const (
	fieldChapterVoice   protowire.Number = 1
	fieldChapterContent protowire.Number = 2

	fieldExprAction      protowire.Number = 1
	fieldExprInstruction protowire.Number = 2
	fieldExprLine        protowire.Number = 3

	fieldInstructionPlay protowire.Number = 1
	fieldPlaySound       protowire.Number = 1

	fieldLineContent protowire.Number = 1

	fieldChildSpan        protowire.Number = 1
	fieldChildInstruction protowire.Number = 2

	fieldSpanText       protowire.Number = 1
	fieldSpanProperties protowire.Number = 2
	fieldPropsSpeed     protowire.Number = 1
)

// Encode serializes a chapter into its binary artifact form.
func Encode(c *Chapter) ([]byte, error) {
	if c == nil {
		return nil, errors.New("encode: nil chapter")
	}

	b := make([]byte, 0, 256)
	b = append(b, magic...)
	b = append(b, FormatVersion)

	b = protowire.AppendTag(b, fieldChapterVoice, protowire.BytesType)
	b = protowire.AppendString(b, c.Voice)
	for i, expr := range c.Content {
		msg, err := encodeExpr(expr)
		if err != nil {
			return nil, fmt.Errorf("encode: content[%d]: %w", i, err)
		}
		b = protowire.AppendTag(b, fieldChapterContent, protowire.BytesType)
		b = protowire.AppendBytes(b, msg)
	}
	return b, nil
}

func encodeExpr(expr ChExpr) ([]byte, error) {
	var b []byte
	switch e := expr.(type) {
	case Action:
		b = protowire.AppendTag(b, fieldExprAction, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(e))
	case Instruction:
		msg, err := encodeInstruction(e)
		if err != nil {
			return nil, err
		}
		b = protowire.AppendTag(b, fieldExprInstruction, protowire.BytesType)
		b = protowire.AppendBytes(b, msg)
	case Line:
		var line []byte
		for i, child := range e.Content {
			msg, err := encodeLineChild(child)
			if err != nil {
				return nil, fmt.Errorf("line child %d: %w", i, err)
			}
			line = protowire.AppendTag(line, fieldLineContent, protowire.BytesType)
			line = protowire.AppendBytes(line, msg)
		}
		b = protowire.AppendTag(b, fieldExprLine, protowire.BytesType)
		b = protowire.AppendBytes(b, line)
	default:
		return nil, fmt.Errorf("unknown expression %T", expr)
	}
	return b, nil
}

func encodeInstruction(in Instruction) ([]byte, error) {
	switch i := in.(type) {
	case Play:
		var play []byte
		play = protowire.AppendTag(play, fieldPlaySound, protowire.BytesType)
		play = protowire.AppendString(play, i.Sound)

		var b []byte
		b = protowire.AppendTag(b, fieldInstructionPlay, protowire.BytesType)
		return protowire.AppendBytes(b, play), nil
	default:
		return nil, fmt.Errorf("unknown instruction %T", in)
	}
}

func encodeLineChild(child LineChild) ([]byte, error) {
	var b []byte
	switch c := child.(type) {
	case Span:
		var props []byte
		props = protowire.AppendTag(props, fieldPropsSpeed, protowire.VarintType)
		props = protowire.AppendVarint(props, uint64(c.Properties.Speed))

		var span []byte
		span = protowire.AppendTag(span, fieldSpanText, protowire.BytesType)
		span = protowire.AppendString(span, c.Text)
		span = protowire.AppendTag(span, fieldSpanProperties, protowire.BytesType)
		span = protowire.AppendBytes(span, props)

		b = protowire.AppendTag(b, fieldChildSpan, protowire.BytesType)
		b = protowire.AppendBytes(b, span)
	case Instruction:
		msg, err := encodeInstruction(c)
		if err != nil {
			return nil, err
		}
		b = protowire.AppendTag(b, fieldChildInstruction, protowire.BytesType)
		b = protowire.AppendBytes(b, msg)
	default:
		return nil, fmt.Errorf("unknown line child %T", child)
	}
	return b, nil
}

// Decode parses a binary artifact produced by Encode.
func Decode(data []byte) (*Chapter, error) {
	if len(data) < len(magic)+1 || !bytes.Equal(data[:len(magic)], magic) {
		return nil, fmt.Errorf("%w: bad magic", ErrCorrupt)
	}
	if v := data[len(magic)]; v != FormatVersion {
		return nil, fmt.Errorf("%w: unsupported format version %d", ErrCorrupt, v)
	}

	c := &Chapter{}
	err := walkFields(data[len(magic)+1:], func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldChapterVoice:
			v, n := consumeBytes(typ, b)
			if n > 0 {
				c.Voice = string(v)
			}
			return n, nil
		case fieldChapterContent:
			msg, n := consumeBytes(typ, b)
			if n <= 0 {
				return n, nil
			}
			expr, err := decodeExpr(msg)
			if err != nil {
				return 0, fmt.Errorf("content[%d]: %w", len(c.Content), err)
			}
			c.Content = append(c.Content, expr)
			return n, nil
		}
		return 0, nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func decodeExpr(data []byte) (ChExpr, error) {
	var expr ChExpr
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldExprAction:
			if typ != protowire.VarintType {
				return 0, nil
			}
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return n, nil
			}
			if v > math.MaxUint32 || Action(v) != Await {
				return 0, fmt.Errorf("%w: unknown action %d", ErrCorrupt, v)
			}
			expr = Action(v)
			return n, nil
		case fieldExprInstruction:
			msg, n := consumeBytes(typ, b)
			if n <= 0 {
				return n, nil
			}
			in, err := decodeInstruction(msg)
			if err != nil {
				return 0, err
			}
			expr = in
			return n, nil
		case fieldExprLine:
			msg, n := consumeBytes(typ, b)
			if n <= 0 {
				return n, nil
			}
			line, err := decodeLine(msg)
			if err != nil {
				return 0, err
			}
			expr = line
			return n, nil
		}
		return 0, nil
	})
	if err != nil {
		return nil, err
	}
	if expr == nil {
		return nil, fmt.Errorf("%w: empty expression", ErrCorrupt)
	}
	return expr, nil
}

func decodeInstruction(data []byte) (Instruction, error) {
	var in Instruction
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num != fieldInstructionPlay {
			return 0, nil
		}
		msg, n := consumeBytes(typ, b)
		if n <= 0 {
			return n, nil
		}
		play := Play{}
		err := walkFields(msg, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
			if num != fieldPlaySound {
				return 0, nil
			}
			v, n := consumeBytes(typ, b)
			if n > 0 {
				play.Sound = string(v)
			}
			return n, nil
		})
		if err != nil {
			return 0, err
		}
		in = play
		return n, nil
	})
	if err != nil {
		return nil, err
	}
	if in == nil {
		return nil, fmt.Errorf("%w: empty instruction", ErrCorrupt)
	}
	return in, nil
}

func decodeLine(data []byte) (Line, error) {
	line := Line{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num != fieldLineContent {
			return 0, nil
		}
		msg, n := consumeBytes(typ, b)
		if n <= 0 {
			return n, nil
		}
		child, err := decodeLineChild(msg)
		if err != nil {
			return 0, err
		}
		line.Content = append(line.Content, child)
		return n, nil
	})
	return line, err
}

func decodeLineChild(data []byte) (LineChild, error) {
	var child LineChild
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldChildSpan:
			msg, n := consumeBytes(typ, b)
			if n <= 0 {
				return n, nil
			}
			span, err := decodeSpan(msg)
			if err != nil {
				return 0, err
			}
			child = span
			return n, nil
		case fieldChildInstruction:
			msg, n := consumeBytes(typ, b)
			if n <= 0 {
				return n, nil
			}
			in, err := decodeInstruction(msg)
			if err != nil {
				return 0, err
			}
			child = in
			return n, nil
		}
		return 0, nil
	})
	if err != nil {
		return nil, err
	}
	if child == nil {
		return nil, fmt.Errorf("%w: empty line child", ErrCorrupt)
	}
	return child, nil
}

func decodeSpan(data []byte) (Span, error) {
	span := Span{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldSpanText:
			v, n := consumeBytes(typ, b)
			if n > 0 {
				span.Text = string(v)
			}
			return n, nil
		case fieldSpanProperties:
			msg, n := consumeBytes(typ, b)
			if n <= 0 {
				return n, nil
			}
			err := walkFields(msg, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
				if num != fieldPropsSpeed || typ != protowire.VarintType {
					return 0, nil
				}
				v, n := protowire.ConsumeVarint(b)
				if n <= 0 {
					return n, nil
				}
				if v > math.MaxUint32 {
					return 0, fmt.Errorf("%w: speed %d out of range", ErrCorrupt, v)
				}
				span.Properties.Speed = uint32(v)
				return n, nil
			})
			if err != nil {
				return 0, err
			}
			return n, nil
		}
		return 0, nil
	})
	return span, err
}

// fieldFunc decodes one field whose tag has already been consumed. It returns
// the number of value bytes consumed, 0 to skip the field as unknown, or a
// negative protowire error code.
type fieldFunc func(num protowire.Number, typ protowire.Type, b []byte) (int, error)

func walkFields(b []byte, fn fieldFunc) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrCorrupt, protowire.ParseError(n))
		}
		b = b[n:]

		m, err := fn(num, typ, b)
		if err != nil {
			return err
		}
		if m == 0 {
			m = protowire.ConsumeFieldValue(num, typ, b)
		}
		if m < 0 {
			return fmt.Errorf("%w: field %d: %v", ErrCorrupt, num, protowire.ParseError(m))
		}
		b = b[m:]
	}
	return nil
}

// consumeBytes reads a length-delimited value. A wire type mismatch yields
// n == 0 so the caller skips the field.
func consumeBytes(typ protowire.Type, b []byte) ([]byte, int) {
	if typ != protowire.BytesType {
		return nil, 0
	}
	return protowire.ConsumeBytes(b)
}

// ReadFile loads and decodes a chapter artifact.
func ReadFile(path string) (*Chapter, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read chapter: %w", err)
	}
	c, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return c, nil
}

// WriteFile encodes a chapter and writes it atomically to path, creating
// parent directories as needed.
func WriteFile(path string, c *Chapter) error {
	data, err := Encode(c)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write chapter: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write chapter: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}
