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
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/golang/glog"
	pkgerrors "github.com/pkg/errors"

	"fmclient/pkg/errors"
	"fmclient/pkg/logging/otel"
)

type failoverResult struct {
	host ServiceEndpoint
	conn Conn
	err  error
}

// FailoverManager looks for a reachable Subnet Manager among the hosts of a
// subnet. At most one attempt runs at a time.
type FailoverManager struct {
	name   string
	config *OutboundConfig

	mu        sync.Mutex
	cancel    context.CancelFunc
	cancelled bool
}

func NewFailoverManager(name string, config *OutboundConfig) *FailoverManager {
	return &FailoverManager{name: name, config: config}
}

// Failover tries the hosts after start in order, wrapping around to start
// last, until one connects or FailoverTimeout passes. Passes over the host
// list are separated by an exponential back-off.
func (m *FailoverManager) Failover(ctx context.Context, hosts []ServiceEndpoint, start int) (index int, conn Conn, err error) {
	if len(hosts) == 0 {
		return -1, nil, errors.ErrNoHost
	}
	ctx, cancel := context.WithTimeout(ctx, m.config.FailoverTimeout.Duration)
	defer cancel()

	m.mu.Lock()
	if m.cancel != nil {
		m.mu.Unlock()
		return -1, nil, pkgerrors.Wrap(errors.ErrFailoverFailed, "failover already running")
	}
	m.cancel = cancel
	m.cancelled = false
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.cancel = nil
		m.mu.Unlock()
	}()

	timeStart := time.Now()
	glog.Warningf("subnet %s: failover started from %s", m.name, hosts[normIndex(start, len(hosts))].GetConnString())

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Duration(m.config.ReconnectIntervalBase) * time.Millisecond
	b.MaxInterval = time.Duration(m.config.ReconnectIntervalMax) * time.Millisecond
	b.MaxElapsedTime = 0

	index = -1
	pass := func() error {
		for i := 1; i <= len(hosts); i++ {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			idx := normIndex(start+i, len(hosts))
			c, cerr := ConnectTo(&hosts[idx], m.connectTimeout(ctx))
			if cerr == nil {
				index, conn = idx, c
				return nil
			}
			if glog.V(2) {
				glog.Infof("subnet %s: failover to %s: %v", m.name, hosts[idx].GetConnString(), cerr)
			}
		}
		return errors.ErrFailoverFailed
	}
	notify := func(err error, next time.Duration) {
		glog.Warningf("subnet %s: no Subnet Manager reachable, next pass in %s", m.name, next)
	}
	err = backoff.RetryNotify(pass, backoff.WithContext(b, ctx), notify)

	status := otel.StatusSuccess
	if err != nil {
		m.mu.Lock()
		cancelled := m.cancelled
		m.mu.Unlock()
		if cancelled {
			err = errors.ErrFailoverCancelled
			status = otel.StatusWarning
		} else {
			err = pkgerrors.Wrapf(errors.ErrFailoverFailed, "subnet %s after %s", m.name, time.Since(timeStart))
			status = otel.StatusError
		}
		glog.Errorf("subnet %s: failover: %v", m.name, err)
	} else {
		glog.Infof("subnet %s: failed over to %s", m.name, hosts[index].GetConnString())
	}
	otel.RecordFailover(m.name, status, time.Since(timeStart))
	return
}

func (m *FailoverManager) connectTimeout(ctx context.Context) time.Duration {
	timeout := m.config.ConnectTimeout.Duration
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
		if timeout <= 0 {
			timeout = time.Millisecond
		}
	}
	return timeout
}

// Cancel aborts a running attempt. It is a no-op when none is running.
func (m *FailoverManager) Cancel() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel == nil {
		return false
	}
	m.cancelled = true
	m.cancel()
	return true
}

func (m *FailoverManager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancel != nil
}

func normIndex(i int, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}
