//
//  Copyright 2023 PayPal Inc.
//
//  Licensed to the Apache Software Foundation (ASF) under one or more
//  contributor license agreements.  See the NOTICE file distributed with
//  this work for additional information regarding copyright ownership.
//  The ASF licenses this file to You under the Apache License, Version 2.0
//  (the "License"); you may not use this file except in compliance with
//  the License.  You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
//  Unless required by applicable law or agreed to in writing, software
//  distributed under the License is distributed on an "AS IS" BASIS,
//  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//  See the License for the specific language governing permissions and
//  limitations under the License.
//

package otel

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gootel "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	otelCfg "fmclient/pkg/logging/otel/config"
)

var reader *sdkmetric.ManualReader

func TestMain(m *testing.M) {
	c := &otelCfg.Config{AppName: "fmclient-test"}
	c.Validate()
	reader = sdkmetric.NewManualReader()
	gootel.SetMeterProvider(newMeterProvider(c, reader))
	os.Exit(m.Run())
}

func collect(t *testing.T, name string) *metricdata.Metrics {
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestRecordCommand(t *testing.T) {
	RecordCommand("PA", "GetTable", StatusSuccess, 12*time.Millisecond)
	RecordCommand("PA", "GetTable", StatusSuccess, 700*time.Millisecond)

	m := collect(t, "fm.client.command")
	require.NotNil(t, m)
	assert.Equal(t, "ms", m.Unit)
	hist, ok := m.Data.(metricdata.Histogram[int64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	dp := hist.DataPoints[0]
	assert.Equal(t, uint64(2), dp.Count)
	assert.Equal(t, int64(712), dp.Sum)

	c := &otelCfg.Config{}
	c.SetDefaultIfNotDefined()
	assert.Equal(t, c.HistogramBuckets.Command, dp.Bounds)

	v, found := dp.Attributes.Value(attribute.Key(Class))
	assert.True(t, found)
	assert.Equal(t, "PA", v.AsString())
}

func TestRecordCounters(t *testing.T) {
	RecordTimeout("fabric-a")
	RecordTimeout("fabric-a")
	RecordNotice("fabric-a", 128)

	m := collect(t, "fm.client.timeout")
	require.NotNil(t, m)
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(2), sum.DataPoints[0].Value)

	m = collect(t, "fm.client.notice")
	require.NotNil(t, m)
	sum = m.Data.(metricdata.Sum[int64])
	require.Len(t, sum.DataPoints, 1)
	v, _ := sum.DataPoints[0].Attributes.Value(attribute.Key(TrapNum))
	assert.Equal(t, "128", v.AsString())
}

func TestUnknownMetric(t *testing.T) {
	_, err := getCounter(Command)
	assert.Error(t, err)
	_, err = getHistogram(Timeout)
	assert.Error(t, err)
}

func TestInitializeArgs(t *testing.T) {
	assert.Error(t, Initialize())
	assert.Error(t, Initialize("bad"))
	assert.NoError(t, Initialize(&otelCfg.Config{Enabled: false}))
	assert.False(t, IsEnabled())
}
