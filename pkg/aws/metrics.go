package aws

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// PutMetricDataAPI is the subset of the CloudWatch client used by MetricsClient.
type PutMetricDataAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// MetricsClient wraps AWS CloudWatch Metrics operations
type MetricsClient struct {
	client    PutMetricDataAPI
	namespace string
	enabled   bool
}

// NewMetricsClient creates a CloudWatch Metrics client. Nothing is sent unless
// CLOUDWATCH_ENABLED=true.
func NewMetricsClient(ctx context.Context) (*MetricsClient, error) {
	enabled := os.Getenv("CLOUDWATCH_ENABLED") == "true"

	cfg, err := LoadAWSConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	namespace := os.Getenv("CLOUDWATCH_NAMESPACE")
	if namespace == "" {
		namespace = "Catalog"
	}

	return NewMetricsClientWithAPI(cloudwatch.NewFromConfig(cfg), namespace, enabled), nil
}

func NewMetricsClientWithAPI(api PutMetricDataAPI, namespace string, enabled bool) *MetricsClient {
	return &MetricsClient{client: api, namespace: namespace, enabled: enabled}
}

// PutMetric sends a single metric data point to CloudWatch
func (m *MetricsClient) PutMetric(ctx context.Context, metricName string, value float64, unit types.StandardUnit, dimensions map[string]string) error {
	if m == nil || !m.enabled {
		return nil
	}

	_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: []types.MetricDatum{datum(metricName, value, unit, dimensions)},
	})
	if err != nil {
		return fmt.Errorf("failed to put metric: %w", err)
	}
	return nil
}

// PutMetricBatch sends multiple metric data points, 20 per request.
func (m *MetricsClient) PutMetricBatch(ctx context.Context, metrics []types.MetricDatum) error {
	if m == nil || !m.enabled || len(metrics) == 0 {
		return nil
	}

	batchSize := 20
	for i := 0; i < len(metrics); i += batchSize {
		end := i + batchSize
		if end > len(metrics) {
			end = len(metrics)
		}

		_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(m.namespace),
			MetricData: metrics[i:end],
		})
		if err != nil {
			return fmt.Errorf("failed to put metric batch: %w", err)
		}
	}

	return nil
}

// RecordCount increments a counter metric
func (m *MetricsClient) RecordCount(ctx context.Context, metricName string, dimensions map[string]string) error {
	return m.PutMetric(ctx, metricName, 1, types.StandardUnitCount, dimensions)
}

// RecordCounts sends several counters in one batch. Zero counts are skipped.
func (m *MetricsClient) RecordCounts(ctx context.Context, counts map[string]int, dimensions map[string]string) error {
	names := make([]string, 0, len(counts))
	for name, n := range counts {
		if n > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	data := make([]types.MetricDatum, 0, len(names))
	for _, name := range names {
		data = append(data, datum(name, float64(counts[name]), types.StandardUnitCount, dimensions))
	}
	return m.PutMetricBatch(ctx, data)
}

// RecordLatency records a latency/duration metric in milliseconds
func (m *MetricsClient) RecordLatency(ctx context.Context, metricName string, duration time.Duration, dimensions map[string]string) error {
	return m.PutMetric(ctx, metricName, float64(duration.Milliseconds()), types.StandardUnitMilliseconds, dimensions)
}

// IsEnabled returns whether CloudWatch metrics are enabled
func (m *MetricsClient) IsEnabled() bool {
	return m != nil && m.enabled
}

func datum(name string, value float64, unit types.StandardUnit, dimensions map[string]string) types.MetricDatum {
	keys := make([]string, 0, len(dimensions))
	for k := range dimensions {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	dims := make([]types.Dimension, 0, len(keys))
	for _, k := range keys {
		dims = append(dims, types.Dimension{
			Name:  aws.String(k),
			Value: aws.String(dimensions[k]),
		})
	}
	return types.MetricDatum{
		MetricName: aws.String(name),
		Value:      aws.Float64(value),
		Unit:       unit,
		Timestamp:  aws.Time(time.Now()),
		Dimensions: dims,
	}
}

// Common metric names for standardization
const (
	// HTTP metrics
	MetricHTTPRequests = "HTTPRequests"
	MetricHTTPLatency  = "HTTPLatency"
	MetricHTTP4xx      = "HTTP4xxErrors"
	MetricHTTP5xx      = "HTTP5xxErrors"

	// Import metrics
	MetricProductsImported  = "ProductsImported"
	MetricProductsUpdated   = "ProductsUpdated"
	MetricProductsDeleted   = "ProductsDeleted"
	MetricImportRowsSkipped = "ImportRowsSkipped"
	MetricImportRowErrors   = "ImportRowErrors"
	MetricImportFailures    = "ImportFailures"
	MetricImportDuration    = "ImportDuration"
)
