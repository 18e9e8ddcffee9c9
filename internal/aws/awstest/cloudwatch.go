package awstest

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// CloudWatch records PutMetricData calls.
type CloudWatch struct {
	mu    sync.Mutex
	Data  []cwtypes.MetricDatum
	Space []string
}

func (c *CloudWatch) PutMetricData(ctx context.Context, in *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Data = append(c.Data, in.MetricData...)
	c.Space = append(c.Space, *in.Namespace)
	return &cloudwatch.PutMetricDataOutput{}, nil
}

// Sum adds up every datum recorded under name.
func (c *CloudWatch) Sum(name string) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	var total float64
	for _, d := range c.Data {
		if d.MetricName != nil && *d.MetricName == name && d.Value != nil {
			total += *d.Value
		}
	}
	return total
}
