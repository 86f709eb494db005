package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"catalog-service/models"
	"catalog-service/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const warnCancelled = "import cancelled by user"

// ImageStore persists a downloaded image and returns the URL to save on the product.
type ImageStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// ImageFetcher downloads one remote image.
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) (*Image, error)
}

// Deps are the collaborators of an Importer. Products and Categories are required.
type Deps struct {
	Products   repository.ProductRepo
	Categories repository.CategoryRepo
	Fetcher    ImageFetcher
	Images     ImageStore
	Registry   *ProgressRegistry
	Metrics    *Metrics
	Logger     *zap.Logger
}

// Importer runs import jobs one at a time against the catalog store.
type Importer struct {
	products   repository.ProductRepo
	categories repository.CategoryRepo
	fetcher    ImageFetcher
	images     ImageStore
	registry   *ProgressRegistry
	metrics    *Metrics
	log        *zap.Logger
}

func New(d Deps) *Importer {
	im := &Importer{
		products:   d.Products,
		categories: d.Categories,
		fetcher:    d.Fetcher,
		images:     d.Images,
		registry:   d.Registry,
		metrics:    d.Metrics,
		log:        d.Logger,
	}
	if im.registry == nil {
		im.registry = NewProgressRegistry()
	}
	if im.log == nil {
		im.log = zap.L()
	}
	if im.fetcher == nil {
		im.fetcher = NewFetcher(DefaultFetchTimeout, im.metrics)
	}
	return im
}

func (im *Importer) Registry() *ProgressRegistry {
	return im.registry
}

// Run executes one import. Row and image problems are collected in the result;
// the returned error is set only when the job failed as a whole (unsupported
// format, unreadable file, unreachable store) or could not start because
// another job is running. A failed job still returns its partial result.
func (im *Importer) Run(ctx context.Context, jobID string, r io.Reader, ext string, opts models.ImportOptions) (*models.JobResult, error) {
	if jobID == "" {
		jobID = uuid.NewString()
	}
	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := im.registry.TryStart(jobID, cancel); err != nil {
		return nil, err
	}

	j := &job{
		im:       im,
		opts:     opts,
		state:    models.JobStatusRunning,
		seen:     make(map[string]struct{}),
		resolver: NewResolver(im.categories, 0),
		log:      im.log.With(zap.String("job_id", jobID)),
		result: &models.JobResult{
			JobID:     jobID,
			Errors:    []string{},
			Warnings:  []string{},
			StartedAt: time.Now().UTC(),
		},
	}
	j.log.Info("Import started",
		zap.String("extension", ext),
		zap.Bool("update_existing", opts.UpdateExisting),
		zap.Bool("delete_missing", opts.DeleteMissing),
		zap.Bool("category_override", opts.CategoryOverrideID != nil),
	)

	err := j.execute(jobCtx, r, ext)
	j.finish(err)
	return j.result, err
}

// job is the state of a single run: Running, then Completed, Cancelled or Failed.
type job struct {
	im       *Importer
	opts     models.ImportOptions
	state    models.JobStatus
	seen     map[string]struct{}
	resolver *Resolver
	result   *models.JobResult
	log      *zap.Logger
}

func (j *job) execute(ctx context.Context, r io.Reader, ext string) (err error) {
	defer func() {
		if p := recover(); p != nil {
			j.log.Error("Import aborted by panic", zap.Any("panic", p))
			err = fmt.Errorf("unexpected error: %v", p)
		}
	}()

	decoder, err := DecoderFor(ext)
	if err != nil {
		return err
	}

	// Store calls are not interrupted by cancellation; only new work is.
	storeCtx := context.WithoutCancel(ctx)
	if err := j.im.products.Ping(storeCtx); err != nil {
		return err
	}

	records, err := decoder.Decode(r)
	if err != nil {
		return err
	}
	j.im.registry.SetTotal(len(records))

	for i, rec := range records {
		if j.cancelRequested(ctx) {
			j.warn(warnCancelled)
			j.state = models.JobStatusCancelled
			j.log.Info("Import cancelled", zap.Int("processed_rows", i), zap.Int("total_rows", len(records)))
			return nil
		}
		if err := j.processRow(ctx, storeCtx, rec, i); err != nil {
			return err
		}
		j.im.registry.Advance()
	}

	if j.opts.DeleteMissing {
		if err := j.deleteMissing(storeCtx); err != nil {
			return err
		}
	}
	j.state = models.JobStatusCompleted
	return nil
}

func (j *job) cancelRequested(ctx context.Context) bool {
	return j.im.registry.Cancelled() || ctx.Err() != nil
}

// processRow handles one record. Only store unavailability escapes as an error;
// everything else, panics included, becomes a warning or a row error.
func (j *job) processRow(ctx, storeCtx context.Context, rec *RawRecord, index int) (fatal error) {
	defer func() {
		if p := recover(); p != nil {
			rowNum := rowNumber(rec, index)
			j.log.Error("Panic while importing row", zap.Int("row", rowNum), zap.Any("panic", p))
			j.rowFailed(fmt.Sprintf("row %d: unexpected error: %v", rowNum, p))
			fatal = nil
		}
	}()

	row, skip := Normalize(rec, index)
	if skip != nil {
		j.skip(skip)
		return nil
	}
	j.seen[row.Title] = struct{}{}

	category, skip, err := j.resolver.Resolve(storeCtx, j.opts, row)
	if err != nil {
		return j.rowError(row, err)
	}
	if skip != nil {
		j.skip(skip)
		return nil
	}

	product, err := j.im.products.FindByTitle(storeCtx, row.Title)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		product, err = j.create(storeCtx, row, category)
		if err != nil {
			return j.rowError(row, err)
		}
		j.result.ImportedCount++
		j.im.metrics.IncRow("imported")
	case err != nil:
		return j.rowError(row, err)
	case !j.opts.UpdateExisting:
		j.skip(&Skip{Row: row.Row, Reason: fmt.Sprintf("product %q already exists", row.Title)})
		return nil
	default:
		if err := j.update(storeCtx, product, row, category); err != nil {
			return j.rowError(row, err)
		}
		j.result.UpdatedCount++
		j.im.metrics.IncRow("updated")
	}

	return j.attachImages(ctx, storeCtx, product, row)
}

func (j *job) create(ctx context.Context, row CanonicalRow, category *models.Category) (*models.Product, error) {
	slug, err := GenerateSlug(ctx, row.Title, row.Article, j.im.products.SlugExists)
	if err != nil {
		return nil, err
	}
	product := &models.Product{
		Title:        row.Title,
		Article:      row.Article,
		Slug:         slug,
		CategoryID:   category.ID,
		Description:  row.Description,
		Details:      models.DetailsFromMap(row.Details()),
		Availability: row.Availability(),
		IsActive:     true,
	}
	if err := j.im.products.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("create product %q: %w", row.Title, err)
	}
	return product, nil
}

// update overwrites the mutable fields and drops the old images. The slug is kept.
func (j *job) update(ctx context.Context, product *models.Product, row CanonicalRow, category *models.Category) error {
	product.Article = row.Article
	product.Description = row.Description
	product.Details = models.DetailsFromMap(row.Details())
	product.CategoryID = category.ID
	product.Availability = row.Availability()
	product.IsActive = true
	if err := j.im.products.Update(ctx, product); err != nil {
		return fmt.Errorf("update product %q: %w", row.Title, err)
	}
	if err := j.im.products.ClearImages(ctx, product.ID); err != nil {
		return fmt.Errorf("clear images of %q: %w", row.Title, err)
	}
	product.PreviewImage = ""
	product.Images = nil
	return nil
}

// attachImages stores the first URL as the preview and the rest as the gallery,
// ordered from 1. Failures are warnings.
func (j *job) attachImages(ctx, storeCtx context.Context, product *models.Product, row CanonicalRow) error {
	if len(row.ImageURLs) == 0 {
		return nil
	}
	if j.im.images == nil {
		j.warn(fmt.Sprintf("row %d: images ignored, image storage is not configured", row.Row))
		return nil
	}

	for i, imageURL := range row.ImageURLs {
		img, err := j.im.fetcher.Fetch(ctx, imageURL)
		if err != nil {
			var fe *FetchError
			if errors.As(err, &fe) && fe.Kind == FailureCancelled {
				return nil
			}
			j.warn(fmt.Sprintf("row %d: %v", row.Row, err))
			continue
		}

		key := fmt.Sprintf("%s/%02d_%s", product.Slug, i, img.Filename)
		stored, err := j.im.images.Put(storeCtx, key, img.Data, img.ContentType)
		if err != nil {
			j.warn(fmt.Sprintf("row %d: store image %s: %v", row.Row, imageURL, err))
			continue
		}

		if i == 0 {
			err = j.im.products.SetPreviewImage(storeCtx, product.ID, stored)
			if err == nil {
				product.PreviewImage = stored
			}
		} else {
			image := &models.ProductImage{
				ProductID: product.ID,
				Image:     stored,
				Alt:       product.Title,
				Order:     i,
			}
			err = j.im.products.AddImage(storeCtx, image)
			if err == nil {
				product.Images = append(product.Images, *image)
			}
		}
		if err != nil {
			if errors.Is(err, repository.ErrStoreUnavailable) {
				return err
			}
			j.warn(fmt.Sprintf("row %d: attach image %s: %v", row.Row, imageURL, err))
		}
	}
	return nil
}

// deleteMissing removes products of the override category that the file did not mention.
// Without an override nothing is deleted.
func (j *job) deleteMissing(ctx context.Context) error {
	if j.opts.CategoryOverrideID == nil {
		j.warn("delete missing skipped: no category selected for the import")
		return nil
	}

	existing, err := j.im.products.FindByCategory(ctx, *j.opts.CategoryOverrideID)
	if err != nil {
		return j.jobStepError("list category products", err)
	}
	var stale []uuid.UUID
	for _, p := range existing {
		if _, ok := j.seen[p.Title]; !ok {
			stale = append(stale, p.ID)
		}
	}
	if len(stale) > 0 {
		if err := j.im.products.DeleteMany(ctx, stale); err != nil {
			return j.jobStepError("delete missing products", err)
		}
		j.result.DeletedCount = len(stale)
	}
	j.warn(fmt.Sprintf("deleted %d products missing from the import file", len(stale)))
	j.log.Info("Deleted products missing from import", zap.Int("count", len(stale)))
	return nil
}

func (j *job) jobStepError(step string, err error) error {
	if errors.Is(err, repository.ErrStoreUnavailable) {
		return err
	}
	j.rowFailed(fmt.Sprintf("%s: %v", step, err))
	return nil
}

// rowError records a row failure, or returns err when the store is gone.
func (j *job) rowError(row CanonicalRow, err error) error {
	if errors.Is(err, repository.ErrStoreUnavailable) {
		return err
	}
	j.rowFailed(fmt.Sprintf("row %d: %v", row.Row, err))
	return nil
}

func (j *job) rowFailed(msg string) {
	j.result.Errors = append(j.result.Errors, msg)
	j.im.metrics.IncRow("error")
}

func (j *job) skip(s *Skip) {
	j.result.SkippedCount++
	j.warn(s.Error())
	j.im.metrics.IncRow("skipped")
}

func (j *job) warn(msg string) {
	j.result.Warnings = append(j.result.Warnings, msg)
}

func (j *job) finish(err error) {
	if err != nil {
		j.state = models.JobStatusFailed
		j.result.Errors = append(j.result.Errors, err.Error())
	}
	j.result.Status = j.state
	j.result.Success = j.state == models.JobStatusCompleted || j.state == models.JobStatusCancelled
	j.result.FinishedAt = time.Now().UTC()
	j.result.Message = Summary(j.result)

	j.im.registry.Finish(j.state)
	j.im.metrics.IncJob(string(j.state))
	j.im.metrics.ObserveJob(j.result.FinishedAt.Sub(j.result.StartedAt))

	fields := []zap.Field{
		zap.String("status", string(j.state)),
		zap.Int("imported", j.result.ImportedCount),
		zap.Int("updated", j.result.UpdatedCount),
		zap.Int("skipped", j.result.SkippedCount),
		zap.Int("errors", len(j.result.Errors)),
		zap.Int("warnings", len(j.result.Warnings)),
	}
	if err != nil {
		j.log.Error("Import failed", append(fields, zap.Error(err))...)
		return
	}
	j.log.Info("Import finished", fields...)
}
