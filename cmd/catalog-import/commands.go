package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"catalog-service/importer"
	"catalog-service/models"
	aws_pkg "catalog-service/pkg/aws"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type runOptions struct {
	file           string
	backend        string
	updateExisting bool
	deleteMissing  bool
	category       string
	fetchTimeout   time.Duration
	jsonOutput     bool
}

func newRunCmd() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Import a file into the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.file, "file", "", "Path to a .csv, .txt, .xlsx or .json file (required)")
	cmd.Flags().StringVar(&opts.backend, "backend", envOr("CATALOG_BACKEND", "postgres"), "Catalog store: postgres or dynamodb")
	cmd.Flags().BoolVar(&opts.updateExisting, "update-existing", false, "Update products whose title already exists")
	cmd.Flags().BoolVar(&opts.deleteMissing, "delete-missing", false, "Delete products of --category that are absent from the file")
	cmd.Flags().StringVar(&opts.category, "category", "", "Category UUID assigned to every row")
	cmd.Flags().DurationVar(&opts.fetchTimeout, "fetch-timeout", importer.DefaultFetchTimeout, "Timeout for each image download")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Print the result as JSON instead of a summary")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runImport(cmd *cobra.Command, opts runOptions) error {
	ctx := cmd.Context()

	importOpts := models.ImportOptions{
		UpdateExisting: opts.updateExisting,
		DeleteMissing:  opts.deleteMissing,
	}
	if opts.category != "" {
		id, err := uuid.Parse(strings.TrimSpace(opts.category))
		if err != nil {
			return withCode(exitUsage, fmt.Errorf("invalid --category: %w", err))
		}
		importOpts.CategoryOverrideID = &id
	}

	f, ext, err := openInput(opts.file)
	if err != nil {
		return err
	}
	defer f.Close()

	st, err := openStores(ctx, opts.backend)
	if err != nil {
		return err
	}
	defer st.Close()

	deps := importer.Deps{
		Products:   st.products,
		Categories: st.categories,
		Fetcher:    importer.NewFetcher(opts.fetchTimeout, nil),
		Logger:     zap.L(),
	}
	if os.Getenv("AWS_S3_BUCKET") != "" {
		awsCfg, err := aws_pkg.LoadAWSConfig(ctx)
		if err != nil {
			return err
		}
		store, err := aws_pkg.NewObjectStore(awsCfg)
		if err != nil {
			return err
		}
		deps.Images = store
	}

	res, runErr := importer.New(deps).Run(ctx, "", f, ext, importOpts)
	if res != nil {
		if err := printResult(cmd.OutOrStdout(), res, opts.jsonOutput); err != nil {
			return err
		}
	}
	return runErr
}

func printResult(w io.Writer, res *models.JobResult, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	_, err := fmt.Fprintln(w, importer.Summary(res))
	return err
}

func newPreviewCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Show the first rows of a file as the importer reads them",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, ext, err := openInput(file)
			if err != nil {
				return err
			}
			defer f.Close()

			res, err := importer.Preview(f, ext)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Path to the file to preview (required)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newTemplateCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "template",
		Short: "Write an example import file (.csv or .xlsx, chosen by --out)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" || out == "-" {
				return importer.WriteTemplateCSV(cmd.OutOrStdout())
			}

			var write func(io.Writer) error
			switch strings.ToLower(filepath.Ext(out)) {
			case ".csv":
				write = importer.WriteTemplateCSV
			case ".xlsx":
				write = importer.WriteTemplateXLSX
			default:
				return withCode(exitUsage, fmt.Errorf("--out must end in .csv or .xlsx"))
			}

			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := write(f); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "template written to", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "Destination path; stdout (CSV) when empty")
	return cmd
}

// openInput opens a file and checks that its extension has a decoder.
func openInput(path string) (*os.File, string, error) {
	ext := importer.NormalizeExt(filepath.Ext(path))
	if _, err := importer.DecoderFor(ext); err != nil {
		return nil, "", withCode(exitUsage, err)
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", withCode(exitUsage, err)
		}
		return nil, "", err
	}
	return f, ext, nil
}
