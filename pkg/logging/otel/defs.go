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
	"sync"

	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

//*************************** Constants ****************************

const (
	Command CMetric = CMetric(iota)
	Connect
	Failover
	Timeout
	Recovery
	Notice
	Bounce
)

const (
	Endpoint  = string("endpoint")
	Subnet    = string("subnet")
	Class     = string("mgmt_class")
	Method    = string("method")
	Status    = string("status")
	Outcome   = string("outcome")
	TrapNum   = string("trap")
	Operation = string("operation")
)

// OTEl Status
const (
	StatusSuccess string = "SUCCESS"
	StatusFatal   string = "FATAL"
	StatusError   string = "ERROR"
	StatusWarning string = "WARNING"
	StatusTimeout string = "TIMEOUT"
	StatusUnknown string = "UNKNOWN"
)

const FM_METRIC_PREFIX = "fm.client."
const MeterName = "fm-client-meter"

//****************************** variables ***************************

var (
	commandHistogramOnce  sync.Once
	connectHistogramOnce  sync.Once
	failoverHistogramOnce sync.Once
	timeoutCounterOnce    sync.Once
	recoveryCounterOnce   sync.Once
	noticeCounterOnce     sync.Once
	bounceCounterOnce     sync.Once
)

var countMetricMap map[CMetric]*countMetric = map[CMetric]*countMetric{
	Timeout:  {"timeout", "Statement waits that timed out", nil, &timeoutCounterOnce},
	Recovery: {"recovery", "Recovery manager decisions", nil, &recoveryCounterOnce},
	Notice:   {"notice", "Unsolicited notices received from the subnet manager", nil, &noticeCounterOnce},
	Bounce:   {"bounce", "Requests rejected while no connection was available", nil, &bounceCounterOnce},
}

var histMetricMap map[CMetric]*histogramMetric = map[CMetric]*histogramMetric{
	Command:  {PopulateFmMetricNamePrefix("command"), "Histogram for management command round trips", "ms", nil, &commandHistogramOnce},
	Connect:  {PopulateFmMetricNamePrefix("connect"), "Histogram for subnet manager connects", "ms", nil, &connectHistogramOnce},
	Failover: {PopulateFmMetricNamePrefix("failover"), "Histogram for failover attempts", "ms", nil, &failoverHistogramOnce},
}

var (
	meterProvider *sdkmetric.MeterProvider
	providerMu    sync.Mutex
)

// ************************************ Types ****************************
type CMetric int

type Tags struct {
	TagName  string
	TagValue string
}

type countMetric struct {
	metricName    string
	metricDesc    string
	counter       metric.Int64Counter
	createCounter *sync.Once
}

type histogramMetric struct {
	metricName      string
	metricDesc      string
	metricUnit      string
	histogram       metric.Int64Histogram
	createHistogram *sync.Once
}
