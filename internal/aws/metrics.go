package aws

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// Metrics publishes business counters to CloudWatch. A nil client or empty
// namespace turns every call into a no-op.
type Metrics struct {
	CloudWatch CloudWatchAPI
	Namespace  string
	nowFunc    func() time.Time
}

func NewMetrics(client CloudWatchAPI, namespace string) *Metrics {
	return &Metrics{CloudWatch: client, Namespace: namespace, nowFunc: time.Now}
}

// Count records value with unit Count.
func (m *Metrics) Count(ctx context.Context, name string, value float64, dims map[string]string) error {
	return m.put(ctx, name, value, cwtypes.StandardUnitCount, dims)
}

// Amount records a monetary value (unit None).
func (m *Metrics) Amount(ctx context.Context, name string, value float64, dims map[string]string) error {
	return m.put(ctx, name, value, cwtypes.StandardUnitNone, dims)
}

func (m *Metrics) put(ctx context.Context, name string, value float64, unit cwtypes.StandardUnit, dims map[string]string) error {
	if m == nil || m.CloudWatch == nil || m.Namespace == "" {
		return nil
	}
	now := m.nowFunc()
	datum := cwtypes.MetricDatum{
		MetricName: String(name),
		Value:      &value,
		Unit:       unit,
		Timestamp:  &now,
	}
	for k, v := range dims {
		datum.Dimensions = append(datum.Dimensions, cwtypes.Dimension{Name: String(k), Value: String(v)})
	}
	_, err := m.CloudWatch.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  String(m.Namespace),
		MetricData: []cwtypes.MetricDatum{datum},
	})
	if err != nil {
		return fmt.Errorf("put metric %s: %w", name, err)
	}
	return nil
}
