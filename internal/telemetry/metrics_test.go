package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusinessMetrics_NilIsNoop(t *testing.T) {
	var m *BusinessMetrics
	assert.NotPanics(t, func() {
		m.RecordCartMutation("add")
		m.RecordCouponAttempt("applied")
		m.RecordOrder("card", 1000)
		m.RecordOrdersExpired(3)
		m.WebsocketOpened()
	})
}

func TestBusinessMetrics_Records(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBusinessMetrics("test", reg)

	m.RecordCartMutation("add")
	m.RecordCartMutation("add")
	m.RecordOrder("cod", 4200)

	families, err := reg.Gather()
	require.NoError(t, err)

	values := map[string]float64{}
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			if c := metric.GetCounter(); c != nil {
				values[mf.GetName()] += c.GetValue()
			}
		}
	}
	assert.Equal(t, float64(2), values["test_business_cart_mutations_total"])
	assert.Equal(t, float64(1), values["test_business_orders_created_total"])
}
