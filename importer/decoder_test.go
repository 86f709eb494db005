package importer_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"catalog-service/importer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestDecoderFor(t *testing.T) {
	tests := []struct {
		ext  string
		want importer.Decoder
	}{
		{".csv", importer.CSVDecoder{}},
		{"CSV", importer.CSVDecoder{}},
		{".txt", importer.CSVDecoder{}},
		{"xlsx", importer.XLSXDecoder{}},
		{".JSON", importer.JSONDecoder{}},
	}
	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			d, err := importer.DecoderFor(tt.ext)
			require.NoError(t, err)
			assert.IsType(t, tt.want, d)
		})
	}

	for _, ext := range []string{".pdf", ".xls", ""} {
		_, err := importer.DecoderFor(ext)
		assert.True(t, errors.Is(err, importer.ErrUnsupportedFormat), ext)
	}
}

func TestCSVDecoder_HeaderBOMAndBlankRows(t *testing.T) {
	input := "\xEF\xBB\xBF Title ,Category,Images\n" +
		"Mic A,Audio,http://x/a.jpg\n" +
		",,\n" +
		"\"Mic, B\",Audio\n"

	records, err := importer.Decode(strings.NewReader(input), ".csv")
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, []string{"title", "category", "images"}, records[0].Keys())
	assert.Equal(t, 2, records[0].Line)
	assert.Equal(t, "Mic A", records[0].Text("title"))
	assert.Equal(t, "http://x/a.jpg", records[0].Text("images"))

	assert.Equal(t, 4, records[1].Line)
	assert.Equal(t, "Mic, B", records[1].Text("title"))
	v, ok := records[1].Get("images")
	assert.True(t, ok)
	assert.Equal(t, importer.KindString, v.Kind)
	assert.Equal(t, "", v.Str)
}

func TestCSVDecoder_Empty(t *testing.T) {
	records, err := importer.Decode(strings.NewReader(""), ".csv")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestXLSXDecoder_FirstSheet(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"Title", "Article", "Category"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"Mic A", 1001, "Audio"}))
	require.NoError(t, f.SetSheetRow(sheet, "A4", &[]interface{}{"Mic B", "B-2", "Audio"}))
	_, err := f.NewSheet("Other")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Other", "A1", &[]interface{}{"ignored"}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	records, err := importer.Decode(bytes.NewReader(buf.Bytes()), ".xlsx")
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, 2, records[0].Line)
	assert.Equal(t, "Mic A", records[0].Text("title"))
	assert.Equal(t, "1001", records[0].Text("article"))
	assert.Equal(t, 4, records[1].Line)
	assert.Equal(t, "B-2", records[1].Text("article"))
}

func TestXLSXDecoder_NotAWorkbook(t *testing.T) {
	_, err := importer.Decode(strings.NewReader("plain text"), ".xlsx")
	var decErr *importer.DecodeError
	require.True(t, errors.As(err, &decErr))
	assert.Equal(t, "xlsx", decErr.Format)
}

func TestJSONDecoder_Array(t *testing.T) {
	input := `[
		{"Title": "Mic A", "article": 1001, "active": true, "images": ["http://x/a.jpg", "http://x/b.jpg"], "price": null},
		{"title": "Mic B", "images": "http://x/c.jpg"}
	]`

	records, err := importer.Decode(strings.NewReader(input), ".json")
	require.NoError(t, err)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, 2, first.Line)
	assert.Equal(t, []string{"title", "article", "active", "images", "price"}, first.Keys())
	assert.Equal(t, "1001", first.Text("article"))

	active, _ := first.Get("active")
	assert.Equal(t, importer.KindBool, active.Kind)
	images, _ := first.Get("images")
	assert.Equal(t, importer.KindList, images.Kind)
	assert.Equal(t, []string{"http://x/a.jpg", "http://x/b.jpg"}, images.List)
	price, _ := first.Get("price")
	assert.Equal(t, importer.KindNull, price.Kind)

	second := records[1]
	assert.Equal(t, 3, second.Line)
	single, _ := second.Get("images")
	assert.Equal(t, importer.KindString, single.Kind)
}

func TestJSONDecoder_SingleObjectPromoted(t *testing.T) {
	records, err := importer.Decode(strings.NewReader(`{"title": "Mic A"}`), ".json")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Mic A", records[0].Text("title"))
}

func TestJSONDecoder_Invalid(t *testing.T) {
	for _, input := range []string{`"text"`, `[1, 2]`, `[{"title": "a"}`, `not json`} {
		_, err := importer.Decode(strings.NewReader(input), ".json")
		var decErr *importer.DecodeError
		assert.True(t, errors.As(err, &decErr), input)
	}
}

func TestRawRecord_MarshalJSONKeepsOrder(t *testing.T) {
	rec := importer.NewRawRecord(2)
	rec.Set("title", importer.StringValue("Mic A"))
	rec.Set("article", importer.NumberValue(7))
	rec.Set("images", importer.ListValue(nil))
	rec.Set("title", importer.StringValue("Mic B"))

	b, err := rec.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"title":"Mic B","article":7,"images":[]}`, string(b))
}
