package aws

import (
	"context"
	"errors"
	"testing"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCloudWatch struct {
	inputs []*cloudwatch.PutMetricDataInput
	err    error
}

func (f *fakeCloudWatch) PutMetricData(_ context.Context, in *cloudwatch.PutMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	f.inputs = append(f.inputs, in)
	return &cloudwatch.PutMetricDataOutput{}, f.err
}

func TestMetricsClient_RecordLatency(t *testing.T) {
	fake := &fakeCloudWatch{}
	m := NewMetricsClientWithAPI(fake, "", true)

	err := m.RecordLatency(context.Background(), MetricImportDuration, 1500*time.Millisecond,
		map[string]string{"Operation": "full", "Store": "", "Resource": "products"})
	require.NoError(t, err)

	require.Len(t, fake.inputs, 1)
	in := fake.inputs[0]
	assert.Equal(t, "CatalogImport", sdkaws.ToString(in.Namespace))
	datum := in.MetricData[0]
	assert.Equal(t, MetricImportDuration, sdkaws.ToString(datum.MetricName))
	assert.Equal(t, 1500.0, sdkaws.ToFloat64(datum.Value))
	assert.Equal(t, types.StandardUnitMilliseconds, datum.Unit)
	require.Len(t, datum.Dimensions, 2)
	assert.Equal(t, "Operation", sdkaws.ToString(datum.Dimensions[0].Name))
	assert.Equal(t, "Resource", sdkaws.ToString(datum.Dimensions[1].Name))
}

func TestMetricsClient_DisabledAndNil(t *testing.T) {
	fake := &fakeCloudWatch{}
	require.NoError(t, NewMetricsClientWithAPI(fake, "ns", false).RecordCount(context.Background(), MetricJobsProcessed, 1, nil))
	assert.Empty(t, fake.inputs)

	var nilClient *MetricsClient
	assert.False(t, nilClient.IsEnabled())
	assert.NoError(t, nilClient.RecordCount(context.Background(), MetricJobsProcessed, 1, nil))
}

func TestMetricsClient_WrapsError(t *testing.T) {
	m := NewMetricsClientWithAPI(&fakeCloudWatch{err: errors.New("denied")}, "ns", true)
	err := m.RecordCount(context.Background(), MetricRecordsFailed, 2, nil)
	assert.EqualError(t, err, "put metric ImportRecordsFailed: denied")
}
