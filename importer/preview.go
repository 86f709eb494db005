package importer

import "io"

const previewLimit = 10

// PreviewResult is the head of a decoded file, shown before an import is started.
type PreviewResult struct {
	Rows      []*RawRecord `json:"preview"`
	Columns   []string     `json:"columns"`
	TotalRows int          `json:"total_rows"`
}

// Preview decodes the file and returns its first rows. Columns come from the first row.
func Preview(r io.Reader, ext string) (*PreviewResult, error) {
	records, err := Decode(r, ext)
	if err != nil {
		return nil, err
	}

	res := &PreviewResult{
		Rows:      records,
		Columns:   []string{},
		TotalRows: len(records),
	}
	if len(res.Rows) > previewLimit {
		res.Rows = res.Rows[:previewLimit]
	}
	if len(res.Rows) > 0 {
		res.Columns = res.Rows[0].Keys()
	}
	return res, nil
}
