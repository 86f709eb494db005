package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	code := execute(context.Background(), root, args)
	return code, stdout.String(), stderr.String()
}

func TestTemplateCmd_Stdout(t *testing.T) {
	code, out, _ := runCLI(t, "template")
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, "title,article,category,price")
}

func TestTemplateCmd_XLSXFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "template.xlsx")
	code, out, _ := runCLI(t, "template", "--out", path)
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, path)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "title", rows[0][0])
}

func TestTemplateCmd_BadExtension(t *testing.T) {
	code, _, errOut := runCLI(t, "template", "--out", filepath.Join(t.TempDir(), "template.pdf"))
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, errOut, ".csv or .xlsx")
}

func TestPreviewCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.csv")
	require.NoError(t, os.WriteFile(path, []byte("title,category\nMic,Audio\nAmp,Audio\n"), 0o644))

	code, out, _ := runCLI(t, "preview", "--file", path)
	require.Equal(t, exitOK, code)

	var res struct {
		Columns   []string `json:"columns"`
		TotalRows int      `json:"total_rows"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 2, res.TotalRows)
	assert.Equal(t, "title,category", strings.Join(res.Columns, ","))
}

func TestPreviewCmd_Errors(t *testing.T) {
	dir := t.TempDir()

	code, _, _ := runCLI(t, "preview", "--file", filepath.Join(dir, "missing.csv"))
	assert.Equal(t, exitUsage, code)

	code, _, _ = runCLI(t, "preview", "--file", filepath.Join(dir, "catalog.pdf"))
	assert.Equal(t, exitUsage, code)

	broken := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte(`{"title": `), 0o644))
	code, _, _ = runCLI(t, "preview", "--file", broken)
	assert.Equal(t, exitFailure, code)
}

func TestRunCmd_Validation(t *testing.T) {
	code, _, _ := runCLI(t, "run")
	assert.Equal(t, exitFailure, code)

	path := filepath.Join(t.TempDir(), "catalog.csv")
	require.NoError(t, os.WriteFile(path, []byte("title\nMic\n"), 0o644))

	code, _, errOut := runCLI(t, "run", "--file", path, "--category", "not-a-uuid")
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, errOut, "invalid --category")

	code, _, errOut = runCLI(t, "run", "--file", path, "--backend", "sqlite")
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, errOut, "unknown --backend")
}
