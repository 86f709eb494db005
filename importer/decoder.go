package importer

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Decoder turns a file stream into ordered raw records.
type Decoder interface {
	Decode(r io.Reader) ([]*RawRecord, error)
}

// DecoderFor selects the decoder for a file extension such as ".csv" or "xlsx".
func DecoderFor(ext string) (Decoder, error) {
	switch NormalizeExt(ext) {
	case ".csv", ".txt":
		return CSVDecoder{}, nil
	case ".xlsx":
		return XLSXDecoder{}, nil
	case ".json":
		return JSONDecoder{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// Decode is a shortcut for DecoderFor(ext).Decode(r).
func Decode(r io.Reader, ext string) ([]*RawRecord, error) {
	d, err := DecoderFor(ext)
	if err != nil {
		return nil, err
	}
	return d.Decode(r)
}

// NormalizeExt lowercases an extension and makes sure it starts with a dot.
func NormalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func normalizeHeader(h []string) []string {
	out := make([]string, len(h))
	for i, name := range h {
		name = strings.TrimPrefix(name, string(utf8BOM))
		out[i] = strings.ToLower(strings.TrimSpace(name))
	}
	return out
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// recordFromCells maps cells onto header names; missing cells become empty strings.
func recordFromCells(header, cells []string, line int) *RawRecord {
	rec := NewRawRecord(line)
	for i, name := range header {
		if name == "" {
			continue
		}
		val := ""
		if i < len(cells) {
			val = cells[i]
		}
		rec.Set(name, StringValue(val))
	}
	return rec
}

// CSVDecoder reads delimited text with a header row.
type CSVDecoder struct{}

func (CSVDecoder) Decode(r io.Reader) ([]*RawRecord, error) {
	br := bufio.NewReader(r)
	if b, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(b, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return []*RawRecord{}, nil
	}
	if err != nil {
		return nil, &DecodeError{Format: "csv", Err: err}
	}
	header = normalizeHeader(header)

	records := []*RawRecord{}
	for {
		cells, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &DecodeError{Format: "csv", Err: err}
		}
		line, _ := reader.FieldPos(0)
		if blank(cells) {
			continue
		}
		records = append(records, recordFromCells(header, cells, line))
	}
	return records, nil
}

// XLSXDecoder reads the first sheet of a workbook; row 1 is the header.
type XLSXDecoder struct{}

func (XLSXDecoder) Decode(r io.Reader) ([]*RawRecord, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &DecodeError{Format: "xlsx", Err: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return []*RawRecord{}, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, &DecodeError{Format: "xlsx", Err: err}
	}
	if len(rows) == 0 {
		return []*RawRecord{}, nil
	}

	header := normalizeHeader(rows[0])
	records := make([]*RawRecord, 0, len(rows)-1)
	for i, cells := range rows[1:] {
		if blank(cells) {
			continue
		}
		records = append(records, recordFromCells(header, cells, i+2))
	}
	return records, nil
}

// JSONDecoder reads an array of objects, or one object treated as a one-element array.
type JSONDecoder struct{}

func (JSONDecoder) Decode(r io.Reader) ([]*RawRecord, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, &DecodeError{Format: "json", Err: err}
	}

	switch tok {
	case json.Delim('{'):
		rec, err := decodeObject(dec, 2)
		if err != nil {
			return nil, &DecodeError{Format: "json", Err: err}
		}
		return []*RawRecord{rec}, nil
	case json.Delim('['):
		records := []*RawRecord{}
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return nil, &DecodeError{Format: "json", Err: err}
			}
			if tok != json.Delim('{') {
				return nil, &DecodeError{Format: "json", Err: fmt.Errorf("element %d is not an object", len(records)+1)}
			}
			rec, err := decodeObject(dec, len(records)+2)
			if err != nil {
				return nil, &DecodeError{Format: "json", Err: err}
			}
			records = append(records, rec)
		}
		if _, err := dec.Token(); err != nil {
			return nil, &DecodeError{Format: "json", Err: err}
		}
		return records, nil
	default:
		return nil, &DecodeError{Format: "json", Err: errors.New("expected an object or an array of objects")}
	}
}

// decodeObject reads key/value pairs after an opening brace up to and including the closing one.
func decodeObject(dec *json.Decoder, line int) (*RawRecord, error) {
	rec := NewRawRecord(line)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected key %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		v, err := jsonValue(raw)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		rec.Set(strings.ToLower(strings.TrimSpace(key)), v)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return rec, nil
}

func jsonValue(raw json.RawMessage) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return Value{}, err
	}
	switch t := v.(type) {
	case nil:
		return NullValue(), nil
	case string:
		return StringValue(t), nil
	case bool:
		return BoolValue(t), nil
	case json.Number:
		f, err := strconv.ParseFloat(t.String(), 64)
		if err != nil {
			return StringValue(t.String()), nil
		}
		return NumberValue(f), nil
	case []interface{}:
		list := make([]string, 0, len(t))
		for _, item := range t {
			list = append(list, scalarText(item))
		}
		return ListValue(list), nil
	default:
		return StringValue(string(raw)), nil
	}
}

func scalarText(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}
