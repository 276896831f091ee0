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

package io

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"go.uber.org/atomic"
)

const (
	kMinLatencyUs = 1
	kMaxLatencyUs = int64(60 * time.Second / time.Microsecond)
)

// dispatcherStats keeps reply latencies in microseconds.
type dispatcherStats struct {
	mu       sync.Mutex
	latency  *hdrhistogram.Histogram
	errors   atomic.Uint64
	timeouts atomic.Uint64
}

func newDispatcherStats() *dispatcherStats {
	return &dispatcherStats{
		latency: hdrhistogram.New(kMinLatencyUs, kMaxLatencyUs, 3),
	}
}

func (s *dispatcherStats) record(d time.Duration) {
	us := d.Microseconds()
	if us < kMinLatencyUs {
		us = kMinLatencyUs
	} else if us > kMaxLatencyUs {
		us = kMaxLatencyUs
	}
	s.mu.Lock()
	s.latency.RecordValue(us)
	s.mu.Unlock()
}

type LatencySummary struct {
	Count uint64
	Mean  time.Duration
	P50   time.Duration
	P95   time.Duration
	P99   time.Duration
	Max   time.Duration
}

func (s *dispatcherStats) summary() LatencySummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	us := func(v int64) time.Duration { return time.Duration(v) * time.Microsecond }
	return LatencySummary{
		Count: uint64(s.latency.TotalCount()),
		Mean:  time.Duration(s.latency.Mean() * float64(time.Microsecond)),
		P50:   us(s.latency.ValueAtQuantile(50)),
		P95:   us(s.latency.ValueAtQuantile(95)),
		P99:   us(s.latency.ValueAtQuantile(99)),
		Max:   us(s.latency.Max()),
	}
}

// GetLatencySummary returns the reply latency distribution since start.
func (p *Dispatcher) GetLatencySummary() LatencySummary {
	return p.stats.summary()
}

func (p *Dispatcher) WriteStats(w io.Writer, indent int) {
	indentStr := strings.Repeat(" ", indent)
	sum := p.stats.summary()

	fmt.Fprintf(w, "%ssubnet %s\n", indentStr, p.Name())
	fmt.Fprintf(w, "%s  current host:      %s\n", indentStr, p.GetCurrentHost().GetConnString())
	fmt.Fprintf(w, "%s  active conns:      %d\n", indentStr, p.GetNumConnections())
	fmt.Fprintf(w, "%s  failing over:      %t\n", indentStr, p.IsFailingOver())
	fmt.Fprintf(w, "%s  queued requests:   %d\n", indentStr, len(p.reqCh))
	fmt.Fprintf(w, "%s  pending requests:  %d\n", indentStr, p.tracker.Size())
	fmt.Fprintf(w, "%s  error replies:     %d\n", indentStr, p.stats.errors.Load())
	fmt.Fprintf(w, "%s  timeouts:          %d\n", indentStr, p.stats.timeouts.Load())
	fmt.Fprintf(w, "%s  replies:           %d\n", indentStr, sum.Count)
	if sum.Count != 0 {
		fmt.Fprintf(w, "%s  latency p50/p95/p99/max: %s/%s/%s/%s\n",
			indentStr, sum.P50, sum.P95, sum.P99, sum.Max)
	}
}
