package importer_test

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"catalog-service/importer"
	"catalog-service/models"
	"catalog-service/repository"

	"github.com/google/uuid"
)

// --- Mock Product Repository ---

type memProducts struct {
	mu       sync.Mutex
	byID     map[uuid.UUID]*models.Product
	pingErr  error
	createFn func(p *models.Product) error
}

func newMemProducts() *memProducts {
	return &memProducts{byID: make(map[uuid.UUID]*models.Product)}
}

func (m *memProducts) Ping(_ context.Context) error {
	return m.pingErr
}

func (m *memProducts) FindByTitle(_ context.Context, title string) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.byID {
		if p.Title == title {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memProducts) SlugExists(_ context.Context, slug string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.byID {
		if p.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (m *memProducts) Create(_ context.Context, p *models.Product) error {
	if m.createFn != nil {
		if err := m.createFn(p); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = uuid.New()
	cp := *p
	cp.Images = nil
	m.byID[p.ID] = &cp
	return nil
}

func (m *memProducts) Update(_ context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.byID[p.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.Article = p.Article
	stored.Description = p.Description
	stored.Details = p.Details
	stored.CategoryID = p.CategoryID
	stored.Availability = p.Availability
	stored.IsActive = p.IsActive
	return nil
}

func (m *memProducts) ClearImages(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.byID[id]; ok {
		p.Images = nil
		p.PreviewImage = ""
	}
	return nil
}

func (m *memProducts) AddImage(_ context.Context, img *models.ProductImage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[img.ProductID]
	if !ok {
		return repository.ErrNotFound
	}
	img.ID = uuid.New()
	p.Images = append(p.Images, *img)
	return nil
}

func (m *memProducts) SetPreviewImage(_ context.Context, id uuid.UUID, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.PreviewImage = url
	return nil
}

func (m *memProducts) FindByCategory(_ context.Context, categoryID uuid.UUID) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Product
	for _, p := range m.byID {
		if p.CategoryID == categoryID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memProducts) DeleteMany(_ context.Context, ids []uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.byID, id)
	}
	return nil
}

func (m *memProducts) get(title string) *models.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.byID {
		if p.Title == title {
			return p
		}
	}
	return nil
}

func (m *memProducts) titles() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, p := range m.byID {
		out = append(out, p.Title)
	}
	sort.Strings(out)
	return out
}

// --- Mock Category Repository ---

type memCategories struct {
	items       []models.Category
	findByIDErr error
	lookups     int
}

func (m *memCategories) add(name string) models.Category {
	c := models.Category{ID: uuid.New(), Name: name, Slug: importer.Slugify(name), IsActive: true}
	m.items = append(m.items, c)
	return c
}

func (m *memCategories) FindByID(_ context.Context, id uuid.UUID) (*models.Category, error) {
	m.lookups++
	if m.findByIDErr != nil {
		return nil, m.findByIDErr
	}
	for i := range m.items {
		if m.items[i].ID == id {
			c := m.items[i]
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memCategories) FindByName(_ context.Context, name string) (*models.Category, error) {
	m.lookups++
	for i := range m.items {
		if m.items[i].Name == name {
			c := m.items[i]
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memCategories) FindAll(_ context.Context) ([]models.Category, error) {
	return m.items, nil
}

// --- Mock Fetcher and Image Store ---

type stubFetcher struct {
	failing map[string]bool
	calls   []string
	onFetch func(url string)
}

func (f *stubFetcher) Fetch(ctx context.Context, url string) (*importer.Image, error) {
	if ctx.Err() != nil {
		return nil, &importer.FetchError{URL: url, Kind: importer.FailureCancelled, Err: ctx.Err()}
	}
	f.calls = append(f.calls, url)
	if f.onFetch != nil {
		f.onFetch(url)
	}
	if f.failing[url] {
		return nil, &importer.FetchError{URL: url, Kind: importer.FailureStatus, Status: 404}
	}
	return &importer.Image{
		URL:         url,
		Filename:    importer.ImageFilename(url, "image/jpeg"),
		ContentType: "image/jpeg",
		Data:        []byte("img:" + url),
	}, nil
}

type memImageStore struct {
	objects map[string][]byte
}

func newMemImageStore() *memImageStore {
	return &memImageStore{objects: make(map[string][]byte)}
}

func (s *memImageStore) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	s.objects[key] = data
	return fmt.Sprintf("https://cdn.test/%s", key), nil
}
