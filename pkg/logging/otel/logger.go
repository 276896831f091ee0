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
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang/glog"
	gootel "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/instrumentation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"

	otelCfg "fmclient/pkg/logging/otel/config"
)

// Initialize is registered with initmgr. It expects a *config.Config.
func Initialize(args ...interface{}) (err error) {
	if len(args) < 1 {
		err = fmt.Errorf("otel config argument not as expected")
		glog.Error(err)
		return
	}
	c, ok := args[0].(*otelCfg.Config)
	if !ok {
		err = fmt.Errorf("wrong argument type")
		glog.Error(err)
		return
	}
	c.Validate()
	if glog.V(2) {
		c.Dump()
	}
	if c.Enabled {
		err = InitMetricProvider(c)
	}
	return
}

func Finalize() {
	if err := Shutdown(context.Background()); err != nil {
		glog.Warningf("otel shutdown: %s", err)
	}
}

func InitMetricProvider(config *otelCfg.Config) error {
	providerMu.Lock()
	defer providerMu.Unlock()
	if meterProvider != nil {
		glog.Info("meter provider already initialized")
		return nil
	}
	config.SetDefaultIfNotDefined()

	ctx := context.Background()
	exp, err := NewHTTPExporter(ctx, config)
	if err != nil {
		return err
	}
	reader := sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(time.Duration(config.Resolution)*time.Second))
	meterProvider = newMeterProvider(config, reader)
	gootel.SetMeterProvider(meterProvider)
	glog.Infof("otel metrics exported to %s:%d", config.Host, config.Port)
	return nil
}

func newMeterProvider(config *otelCfg.Config, reader sdkmetric.Reader) *sdkmetric.MeterProvider {
	return sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(getResourceInfo(config)),
		sdkmetric.WithReader(reader),
		sdkmetric.WithView(bucketViews(config)...),
	)
}

func bucketViews(config *otelCfg.Config) []sdkmetric.View {
	view := func(m CMetric, boundaries []float64) sdkmetric.View {
		return sdkmetric.NewView(
			sdkmetric.Instrument{
				Name:  histMetricMap[m].metricName,
				Scope: instrumentation.Scope{Name: MeterName},
			},
			sdkmetric.Stream{
				Aggregation: sdkmetric.AggregationExplicitBucketHistogram{Boundaries: boundaries},
			})
	}
	return []sdkmetric.View{
		view(Command, config.HistogramBuckets.Command),
		view(Connect, config.HistogramBuckets.Connect),
		view(Failover, config.HistogramBuckets.Failover),
	}
}

func NewHTTPExporter(ctx context.Context, config *otelCfg.Config) (sdkmetric.Exporter, error) {
	deltaTemporalitySelector := func(sdkmetric.InstrumentKind) metricdata.Temporality { return metricdata.DeltaTemporality }
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(fmt.Sprintf("%s:%d", config.Host, config.Port)),
		otlpmetrichttp.WithURLPath(config.UrlPath),
		otlpmetrichttp.WithTimeout(7 * time.Second),
		otlpmetrichttp.WithCompression(otlpmetrichttp.NoCompression),
		otlpmetrichttp.WithTemporalitySelector(deltaTemporalitySelector),
		otlpmetrichttp.WithRetry(otlpmetrichttp.RetryConfig{
			Enabled:         true,
			InitialInterval: 1 * time.Second,
			MaxInterval:     10 * time.Second,
			MaxElapsedTime:  240 * time.Second,
		}),
	}
	if !config.UseTls {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	return otlpmetrichttp.New(ctx, opts...)
}

// Shutdown flushes and stops the provider installed by InitMetricProvider.
func Shutdown(ctx context.Context) error {
	providerMu.Lock()
	defer providerMu.Unlock()
	if meterProvider == nil {
		return nil
	}
	err := meterProvider.Shutdown(ctx)
	meterProvider = nil
	return err
}

func IsEnabled() bool {
	providerMu.Lock()
	defer providerMu.Unlock()
	return meterProvider != nil
}

func getHistogram(m CMetric) (metric.Int64Histogram, error) {
	h, ok := histMetricMap[m]
	if !ok {
		return nil, errors.New("no such histogram exists")
	}
	var err error
	h.createHistogram.Do(func() {
		meter := gootel.Meter(MeterName)
		h.histogram, err = meter.Int64Histogram(
			h.metricName,
			metric.WithDescription(h.metricDesc),
			metric.WithUnit(h.metricUnit),
		)
	})
	if h.histogram == nil {
		if err == nil {
			err = errors.New("histogram object not ready")
		}
		return nil, err
	}
	return h.histogram, nil
}

func getCounter(m CMetric) (metric.Int64Counter, error) {
	c, ok := countMetricMap[m]
	if !ok {
		return nil, errors.New("no such counter exists")
	}
	c.createCounter.Do(func() {
		meter := gootel.Meter(MeterName)
		c.counter, _ = meter.Int64Counter(
			PopulateFmMetricNamePrefix(c.metricName),
			metric.WithDescription(c.metricDesc),
		)
	})
	if c.counter == nil {
		return nil, errors.New("counter object not ready")
	}
	return c.counter, nil
}

func recordHistogram(m CMetric, latency time.Duration, attrs ...attribute.KeyValue) {
	if h, err := getHistogram(m); err == nil {
		h.Record(context.Background(), latency.Milliseconds(), metric.WithAttributes(attrs...))
	} else {
		glog.Error(err)
	}
}

// RecordCommand records one management command round trip.
func RecordCommand(class string, method string, status string, latency time.Duration) {
	recordHistogram(Command, latency,
		attribute.String(Class, class),
		attribute.String(Method, method),
		attribute.String(Status, status),
	)
}

func RecordConnect(endpoint string, status string, latency time.Duration) {
	recordHistogram(Connect, latency,
		attribute.String(Endpoint, endpoint),
		attribute.String(Status, status),
	)
}

func RecordFailover(subnet string, status string, latency time.Duration) {
	recordHistogram(Failover, latency,
		attribute.String(Subnet, subnet),
		attribute.String(Status, status),
	)
}

func RecordCount(counterName CMetric, tags []Tags) {
	counter, err := getCounter(counterName)
	if err != nil {
		glog.Error(err)
		return
	}
	if len(tags) != 0 {
		counter.Add(context.Background(), 1, metric.WithAttributes(covertTagsToOTELAttributes(tags)...))
	} else {
		counter.Add(context.Background(), 1)
	}
}

func RecordTimeout(subnet string) {
	RecordCount(Timeout, []Tags{{Subnet, subnet}})
}

func RecordRecovery(outcome string) {
	RecordCount(Recovery, []Tags{{Outcome, outcome}})
}

func RecordNotice(subnet string, trap uint16) {
	RecordCount(Notice, []Tags{{Subnet, subnet}, {TrapNum, fmt.Sprint(trap)}})
}

func RecordBounce(subnet string) {
	RecordCount(Bounce, []Tags{{Subnet, subnet}})
}

func covertTagsToOTELAttributes(tags []Tags) (attr []attribute.KeyValue) {
	attr = make([]attribute.KeyValue, len(tags))
	for i := 0; i < len(tags); i++ {
		attr[i] = attribute.String(tags[i].TagName, tags[i].TagValue)
	}
	return
}

func PopulateFmMetricNamePrefix(metricName string) string {
	return FM_METRIC_PREFIX + metricName
}

func getResourceInfo(config *otelCfg.Config) *resource.Resource {
	hostname, _ := os.Hostname()
	return resource.NewSchemaless(
		attribute.String("host.name", hostname),
		attribute.String("service.name", config.AppName),
		attribute.String("environment", config.Environment),
		attribute.String("application", config.AppName),
	)
}
