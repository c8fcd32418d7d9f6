package imap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const appleMailStructure = `* 123123 FETCH (BODYSTRUCTURE (("TEXT" "PLAIN" ("CHARSET" "utf-8") NIL NIL "QUOTED-PRINTABLE" 495 10 NIL NIL NIL)(("TEXT" "HTML" ("CHARSET" "utf-8") NIL NIL "QUOTED-PRINTABLE" 6328 127 NIL NIL NIL)("IMAGE" "PNG" ("NAME" "og-image.png" "X-UNIX-MODE" "0666") "<34A362DC-C052-41DA-B3C2-C6782B912403>" NIL "BASE64" 68590 NIL ("INLINE" ("FILENAME" "og-image.png")) NIL)("IMAGE" "PNG" ("NAME" "1*jtOTreOJuxO8FtLYyU9Uyw.png" "X-UNIX-MODE" "0666") "<E80B1254-3757-4EB9-AC92-C2E2EC312001>" NIL "BASE64" 180504 NIL ("INLINE" ("FILENAME" "1*jtOTreOJuxO8FtLYyU9Uyw.png")) NIL) "RELATED" ("BOUNDARY" "Apple-Mail=_A6722D8A-5BBB-478B-8940-7B14BCE39030" "TYPE" "text/html") NIL NIL) "ALTERNATIVE" ("BOUNDARY" "Apple-Mail=_D5EF70C3-5230-4B9A-A34D-20255319DA45") NIL NIL))` + "\r\n"

func TestParseBodyStructureNested(t *testing.T) {
	part, err := ParseBodyStructure(appleMailStructure)
	require.NoError(t, err)

	want := Multipart{
		Kind:     Alternative,
		Boundary: "Apple-Mail=_D5EF70C3-5230-4B9A-A34D-20255319DA45",
		Children: []BodyPart{
			PlainText{},
			Multipart{
				Kind:     Related,
				Boundary: "Apple-Mail=_A6722D8A-5BBB-478B-8940-7B14BCE39030",
				Children: []BodyPart{
					HTMLText{},
					Image{FileAttachment{MediaSubtype: "PNG", FileName: "og-image.png"}},
					Image{FileAttachment{MediaSubtype: "PNG", FileName: "1*jtOTreOJuxO8FtLYyU9Uyw.png"}},
				},
				Sections: []int{1, 2, 3},
			},
		},
		Sections: []int{1, 2},
	}
	assert.Equal(t, want, part)

	section, err := FindTextSection(part)
	require.NoError(t, err)
	assert.Equal(t, "1", section)
}

func TestParseBodyStructureSinglePart(t *testing.T) {
	part, err := ParseBodyStructure(`* 7 FETCH (BODYSTRUCTURE ("TEXT" "PLAIN" ("CHARSET" "us-ascii") NIL NIL "7BIT" 42 3 NIL NIL NIL NIL))`)
	require.NoError(t, err)
	assert.Equal(t, PlainText{}, part)

	section, err := FindTextSection(part)
	require.NoError(t, err)
	assert.Equal(t, "1", section)
}

func TestFindTextSectionNested(t *testing.T) {
	reply := `* 3 FETCH (BODYSTRUCTURE ((("TEXT" "HTML" NIL NIL NIL "7BIT" 10 1 NIL NIL NIL)("TEXT" "PLAIN" NIL NIL NIL "7BIT" 10 1 NIL NIL NIL) "ALTERNATIVE" ("BOUNDARY" "inner") NIL NIL)("APPLICATION" "PDF" ("NAME" "report.pdf") NIL NIL "BASE64" 2048 NIL NIL NIL) "MIXED" ("BOUNDARY" "outer") NIL NIL))`

	part, err := ParseBodyStructure(reply)
	require.NoError(t, err)

	root, ok := part.(Multipart)
	require.True(t, ok)
	assert.Equal(t, Mixed, root.Kind)
	require.Len(t, root.Children, 2)
	assert.Equal(t, Application{FileAttachment{MediaSubtype: "PDF", FileName: "report.pdf"}}, root.Children[1])

	section, err := FindTextSection(part)
	require.NoError(t, err)
	assert.Equal(t, "1.2", section)
}

func TestFindTextSectionKeepsServerNumbering(t *testing.T) {
	// The unnamed image is skipped but still occupies part 1.
	reply := `* 9 FETCH (BODYSTRUCTURE (("IMAGE" "GIF" NIL NIL NIL "BASE64" 100 NIL NIL NIL)("TEXT" "PLAIN" NIL NIL NIL "7BIT" 10 1 NIL NIL NIL) "MIXED" ("BOUNDARY" "b1") NIL NIL))`

	part, err := ParseBodyStructure(reply)
	require.NoError(t, err)

	root := part.(Multipart)
	assert.Equal(t, []BodyPart{PlainText{}}, root.Children)
	assert.Equal(t, []int{2}, root.Sections)

	section, err := FindTextSection(part)
	require.NoError(t, err)
	assert.Equal(t, "2", section)
}

func TestFindTextSectionHTMLOnly(t *testing.T) {
	part, err := ParseBodyStructure(`* 4 FETCH (BODYSTRUCTURE ("TEXT" "HTML" ("CHARSET" "utf-8") NIL NIL "7BIT" 100 4 NIL NIL NIL))`)
	require.NoError(t, err)
	assert.Equal(t, HTMLText{}, part)

	_, err = FindTextSection(part)
	assert.ErrorIs(t, err, ErrNoTextPart)
}

func TestFindTextSectionPositionalFallback(t *testing.T) {
	part := Multipart{
		Kind:     Alternative,
		Boundary: "x",
		Children: []BodyPart{HTMLText{}, PlainText{}},
	}
	section, err := FindTextSection(part)
	require.NoError(t, err)
	assert.Equal(t, "2", section)
}

func TestParseBodyStructureQuotedParens(t *testing.T) {
	reply := `* 5 FETCH (BODYSTRUCTURE (("TEXT" "PLAIN" NIL NIL NIL "7BIT" 1 1 NIL NIL NIL)("APPLICATION" "OCTET-STREAM" ("NAME" "odd (name) \"v2\".bin") NIL NIL "BASE64" 1 NIL NIL NIL) "MIXED" ("BOUNDARY" "=_)(") NIL NIL))`

	part, err := ParseBodyStructure(reply)
	require.NoError(t, err)

	root := part.(Multipart)
	assert.Equal(t, "=_)(", root.Boundary)
	require.Len(t, root.Children, 2)
	assert.Equal(t, `odd (name) "v2".bin`, root.Children[1].(Application).FileName)
}

func TestParseBodyStructureLiteral(t *testing.T) {
	reply := "* 6 FETCH (BODYSTRUCTURE ((\"TEXT\" \"PLAIN\" NIL NIL NIL \"7BIT\" 1 1 NIL NIL NIL)(\"IMAGE\" \"JPEG\" (\"NAME\" {9}\r\nphoto.jpg) NIL NIL \"BASE64\" 1 NIL NIL NIL) \"MIXED\" (\"BOUNDARY\" \"b\") NIL NIL))"

	part, err := ParseBodyStructure(reply)
	require.NoError(t, err)
	root := part.(Multipart)
	require.Len(t, root.Children, 2)
	assert.Equal(t, "photo.jpg", root.Children[1].(Image).FileName)
}

func TestParseBodyStructureErrors(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{
			name:  "missing boundary",
			reply: `* 1 FETCH (BODYSTRUCTURE (("TEXT" "PLAIN" NIL NIL NIL "7BIT" 1 1 NIL NIL NIL) "MIXED" NIL NIL NIL))`,
		},
		{
			name:  "unsupported multipart",
			reply: `* 1 FETCH (BODYSTRUCTURE (("TEXT" "PLAIN" NIL NIL NIL "7BIT" 1 1 NIL NIL NIL) "SIGNED" ("BOUNDARY" "b") NIL NIL))`,
		},
		{
			name:  "no bodystructure item",
			reply: `* 1 FETCH (FLAGS (\Seen))`,
		},
		{
			name:  "unterminated",
			reply: `* 1 FETCH (BODYSTRUCTURE (("TEXT" "PLAIN" NIL`,
		},
		{
			name:  "unrecognised root",
			reply: `* 1 FETCH (BODYSTRUCTURE ("AUDIO" "MPEG" NIL NIL NIL "BASE64" 1 NIL NIL NIL))`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBodyStructure(tt.reply)
			assert.ErrorIs(t, err, ErrMalformedBodyStructure)
		})
	}
}

func TestMultipartKindString(t *testing.T) {
	assert.Equal(t, "RELATED", Related.String())
	assert.Equal(t, "MultipartKind(9)", MultipartKind(9).String())
}
