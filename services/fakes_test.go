package services_test

import (
	"context"
	"io"
	"sync"
	"time"

	"catalog-service/importer"
	"catalog-service/models"
	"catalog-service/services"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
)

// --- Mock Runner ---

type fakeRunner struct {
	registry *importer.ProgressRegistry
	result   *models.JobResult
	err      error
	calls    int
	lastID   string
	lastExt  string
	lastBody string
	lastOpts models.ImportOptions
}

func newFakeRunner(result *models.JobResult, err error) *fakeRunner {
	return &fakeRunner{registry: importer.NewProgressRegistry(), result: result, err: err}
}

func (r *fakeRunner) Run(_ context.Context, jobID string, body io.Reader, ext string, opts models.ImportOptions) (*models.JobResult, error) {
	r.calls++
	r.lastID = jobID
	r.lastExt = ext
	r.lastOpts = opts
	b, _ := io.ReadAll(body)
	r.lastBody = string(b)
	if r.result != nil && r.result.JobID == "" {
		r.result.JobID = jobID
	}
	return r.result, r.err
}

func (r *fakeRunner) Registry() *importer.ProgressRegistry {
	return r.registry
}

// --- Mock Queue ---

type memQueue struct {
	mu      sync.Mutex
	records map[string]*models.ImportJobRecord
	list    []string
	history []models.JobStatus
	failPut error
}

func newMemQueue() *memQueue {
	return &memQueue{records: make(map[string]*models.ImportJobRecord)}
}

func (q *memQueue) Enqueue(ctx context.Context, rec *models.ImportJobRecord) error {
	if q.failPut != nil {
		return q.failPut
	}
	if err := q.Save(ctx, rec); err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.list = append(q.list, rec.ID)
	return nil
}

func (q *memQueue) Dequeue(_ context.Context, _ time.Duration) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.list) == 0 {
		return "", nil
	}
	id := q.list[0]
	q.list = q.list[1:]
	return id, nil
}

func (q *memQueue) Requeue(_ context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.list = append([]string{id}, q.list...)
	return nil
}

func (q *memQueue) Get(_ context.Context, id string) (*models.ImportJobRecord, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	rec, ok := q.records[id]
	if !ok {
		return nil, services.ErrJobNotFound
	}
	cp := *rec
	return &cp, nil
}

func (q *memQueue) Save(_ context.Context, rec *models.ImportJobRecord) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	cp := *rec
	q.records[rec.ID] = &cp
	q.history = append(q.history, rec.Status)
	return nil
}

// --- Mock Cache ---

type fakeCache struct {
	calls int
	err   error
}

func (c *fakeCache) Invalidate(_ context.Context) error {
	c.calls++
	return c.err
}

// --- Mock Publisher ---

type publishedEvent struct {
	topic     string
	eventType string
	event     interface{}
}

type fakePublisher struct {
	events []publishedEvent
}

func (p *fakePublisher) PublishEvent(_ context.Context, topicArn, eventType string, event interface{}) error {
	p.events = append(p.events, publishedEvent{topic: topicArn, eventType: eventType, event: event})
	return nil
}

// --- Mock CloudWatch ---

type fakeCloudWatch struct {
	inputs []*cloudwatch.PutMetricDataInput
	err    error
}

func (f *fakeCloudWatch) PutMetricData(_ context.Context, in *cloudwatch.PutMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	return &cloudwatch.PutMetricDataOutput{}, nil
}

func (f *fakeCloudWatch) metricNames() []string {
	var names []string
	for _, in := range f.inputs {
		for _, d := range in.MetricData {
			names = append(names, *d.MetricName)
		}
	}
	return names
}
