package ast

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"
)

func sampleChapter() *Chapter {
	return &Chapter{
		Voice: "universe",
		Content: []ChExpr{
			Line{Content: []LineChild{
				Span{Text: "...", Properties: TextProperties{Speed: 0}},
			}},
			Await,
			Line{Content: []LineChild{
				Span{Text: "The ", Properties: TextProperties{Speed: DefaultSpeed}},
				Span{Text: "universe", Properties: TextProperties{Speed: 4}},
				Play{Sound: "sfx/hum"},
				Span{Text: " is silent", Properties: TextProperties{Speed: DefaultSpeed}},
			}},
			Await,
			Play{Sound: "song/lowtide"},
			Line{Content: []LineChild{Play{Sound: "sfx/knock"}}},
			Line{},
		},
	}
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		chapter *Chapter
	}{
		{"empty chapter", &Chapter{Voice: "nobody"}},
		{"no voice", &Chapter{Content: []ChExpr{Await}}},
		{"full chapter", sampleChapter()},
		{"unicode text", &Chapter{Voice: "ねこ", Content: []ChExpr{
			Line{Content: []LineChild{Span{Text: "にゃ… ok", Properties: TextProperties{Speed: 5}}}},
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Encode(tt.chapter)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			got, err := Decode(data)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if !reflect.DeepEqual(got, tt.chapter) {
				t.Errorf("round trip mismatch:\n got  %#v\n want %#v", got, tt.chapter)
			}
		})
	}
}

func TestEncodeRejectsNil(t *testing.T) {
	if _, err := Encode(nil); err == nil {
		t.Error("Expected error encoding nil chapter")
	}
}

func TestDecodeCorrupt(t *testing.T) {
	valid, err := Encode(sampleChapter())
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	badVersion := append([]byte(nil), valid...)
	badVersion[len(magic)] = FormatVersion + 1

	unknownAction := append(append([]byte(nil), magic...), FormatVersion,
		0x12, 0x02, // content, len 2
		0x08, 0x07, // action = 7
	)
	// Await plus 1<<32 would truncate to Await.
	wideAction := protowire.AppendTag(nil, fieldExprAction, protowire.VarintType)
	wideAction = protowire.AppendVarint(wideAction, 1<<32|uint64(Await))

	props := protowire.AppendTag(nil, fieldPropsSpeed, protowire.VarintType)
	props = protowire.AppendVarint(props, 1<<32|3)
	wideSpan := protowire.AppendTag(nil, fieldSpanText, protowire.BytesType)
	wideSpan = protowire.AppendString(wideSpan, "hi")
	wideSpan = protowire.AppendTag(wideSpan, fieldSpanProperties, protowire.BytesType)
	wideSpan = protowire.AppendBytes(wideSpan, props)
	wideLine := protowire.AppendTag(nil, fieldChildSpan, protowire.BytesType)
	wideLine = protowire.AppendBytes(wideLine, wideSpan)
	wideExpr := protowire.AppendTag(nil, fieldLineContent, protowire.BytesType)
	wideExpr = protowire.AppendBytes(wideExpr, wideLine)
	wideSpeed := protowire.AppendTag(nil, fieldExprLine, protowire.BytesType)
	wideSpeed = protowire.AppendBytes(wideSpeed, wideExpr)

	emptyExpr := append(append([]byte(nil), magic...), FormatVersion,
		0x12, 0x00, // content, len 0
	)

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"bad magic", []byte("NOPE\x01")},
		{"bad version", badVersion},
		{"truncated", valid[:len(valid)-3]},
		{"unknown action", unknownAction},
		{"empty expression", emptyExpr},
		{"action wider than 32 bits", withContent(wideAction)},
		{"speed wider than 32 bits", withContent(wideSpeed)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data)
			if !errors.Is(err, ErrCorrupt) {
				t.Errorf("Expected ErrCorrupt, got %v", err)
			}
		})
	}
}

// withContent wraps one encoded expression in a chapter artifact.
func withContent(expr []byte) []byte {
	b := append(append([]byte(nil), magic...), FormatVersion)
	b = protowire.AppendTag(b, fieldChapterContent, protowire.BytesType)
	return protowire.AppendBytes(b, expr)
}

func TestDecodeSkipsUnknownFields(t *testing.T) {
	data := append(append([]byte(nil), magic...), FormatVersion,
		0x0a, 0x01, 'x', // voice = "x"
		0x78, 0x2a, // field 15 varint 42, unknown
	)
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got.Voice != "x" || len(got.Content) != 0 {
		t.Errorf("Expected voice x with no content, got %#v", got)
	}
}

func TestWriteReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "en", "intro.chap")

	if err := WriteFile(path, sampleChapter()); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !reflect.DeepEqual(got, sampleChapter()) {
		t.Errorf("file round trip mismatch")
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected only the artifact in the output dir, found %d entries", len(entries))
	}
}

func TestReadFileMissing(t *testing.T) {
	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing.chap")); err == nil {
		t.Error("Expected error for missing file")
	}
}
