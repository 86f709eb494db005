package importer

import (
	"context"
	"errors"
	"fmt"

	"catalog-service/models"
	"catalog-service/repository"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultResolverCacheSize = 256

// Resolver finds the category for a row. Categories are never created here;
// they must exist before the import or be chosen as the job override.
type Resolver struct {
	categories repository.CategoryRepo
	byID       *lru.Cache[uuid.UUID, *models.Category]
	byName     *lru.Cache[string, *models.Category]
}

func NewResolver(categories repository.CategoryRepo, size int) *Resolver {
	if size <= 0 {
		size = defaultResolverCacheSize
	}
	byID, _ := lru.New[uuid.UUID, *models.Category](size)
	byName, _ := lru.New[string, *models.Category](size)
	return &Resolver{categories: categories, byID: byID, byName: byName}
}

// Resolve returns the row category, a Skip for soft misses, or an error.
// A missing override category is an ErrOverrideNotFound error; a missing
// category name is only a Skip.
func (r *Resolver) Resolve(ctx context.Context, opts models.ImportOptions, row CanonicalRow) (*models.Category, *Skip, error) {
	if opts.CategoryOverrideID != nil {
		cat, err := r.lookupID(ctx, *opts.CategoryOverrideID)
		if err != nil {
			return nil, nil, fmt.Errorf("category with id %s: %w", *opts.CategoryOverrideID, err)
		}
		return cat, nil, nil
	}

	if row.CategoryName == "" {
		return nil, &Skip{Row: row.Row, Reason: "no category specified"}, nil
	}

	cat, err := r.lookupName(ctx, row.CategoryName)
	if err != nil {
		return nil, nil, fmt.Errorf("category %q: %w", row.CategoryName, err)
	}
	if cat == nil {
		return nil, &Skip{Row: row.Row, Reason: fmt.Sprintf("category %q not found", row.CategoryName)}, nil
	}
	return cat, nil, nil
}

func (r *Resolver) lookupID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	if cat, ok := r.byID.Get(id); ok {
		if cat == nil {
			return nil, ErrOverrideNotFound
		}
		return cat, nil
	}
	cat, err := r.categories.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		r.byID.Add(id, nil)
		return nil, ErrOverrideNotFound
	}
	if err != nil {
		return nil, err
	}
	r.byID.Add(id, cat)
	return cat, nil
}

// lookupName returns nil without error when no category has that name.
func (r *Resolver) lookupName(ctx context.Context, name string) (*models.Category, error) {
	if cat, ok := r.byName.Get(name); ok {
		return cat, nil
	}
	cat, err := r.categories.FindByName(ctx, name)
	if errors.Is(err, repository.ErrNotFound) {
		r.byName.Add(name, nil)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.byName.Add(name, cat)
	return cat, nil
}
