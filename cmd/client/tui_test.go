package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yitech/harbinger/oracle"
)

func TestModel_Record(t *testing.T) {
	m := newModel(&oracle.Info{AssetNames: []string{"BTC-USD", "XTZ-USD"}}, 2, nil)

	m.record(&oracle.Response{Timestamp: 60, Prices: map[string]string{"XTZ-USD": "1.5"}})
	m.record(&oracle.Response{Timestamp: 60, Prices: map[string]string{"XTZ-USD": "1.6"}})
	m.record(&oracle.Response{Timestamp: 120, Prices: map[string]string{"XTZ-USD": "1.7", "BTC-USD": "bad"}})
	m.record(&oracle.Response{Timestamp: 180, Prices: map[string]string{"XTZ-USD": "1.8"}})

	assert.Equal(t, []point{{120, 1.7}, {180, 1.8}}, m.history["XTZ-USD"])
	assert.Empty(t, m.history["BTC-USD"])
}

func TestPriceToRow(t *testing.T) {
	assert.Equal(t, 0, priceToRow(10, 5, 10, 0))
	assert.Equal(t, 4, priceToRow(0, 5, 10, 0))
	assert.Equal(t, 2, priceToRow(5, 5, 10, 0))
	assert.Equal(t, 4, priceToRow(-3, 5, 10, 0))
	assert.InDelta(t, 5.0, rowToPrice(2, 5, 10, 0), 1e-9)
}
