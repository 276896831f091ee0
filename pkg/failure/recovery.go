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

package failure

import (
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/panjf2000/ants/v2"
	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/atomic"

	"fmclient/pkg/logging/otel"
)

const (
	OutcomeRetry     = "retry"
	OutcomeFatal     = "fatal"
	OutcomeRecovered = "recovered"
	OutcomeIgnored   = "ignored"
)

type failureItem struct {
	count int
	last  time.Time
}

type decision int

const (
	decideIgnore decision = iota
	decideRetry
	decideFatal
)

// RecoveryManager counts recoverable failures per task id within a memory
// window and either retries the task or escalates it to its fatal handler.
//
// Retries scheduled by Submit run one at a time on a single pool worker.
// Evaluate retries on the calling goroutine. Both share the failure memory.
type RecoveryManager struct {
	conf      Config
	evaluator *FailureEvaluator
	memory    *xsync.MapOf[string, failureItem]

	pool     *ants.Pool
	timers   *xsync.MapOf[uint64, *time.Timer]
	timerSeq atomic.Uint64
	pending  sync.WaitGroup

	mu     sync.RWMutex
	closed atomic.Bool
	done   chan struct{}
}

func NewRecoveryManager(conf Config, evaluator *FailureEvaluator) (*RecoveryManager, error) {
	conf.SetDefaultIfNotDefined()
	if evaluator == nil {
		evaluator = DefaultFailureEvaluator()
	}
	pool, err := ants.NewPool(1, ants.WithPanicHandler(func(p interface{}) {
		glog.Errorf("recovery task panic: %v", p)
	}))
	if err != nil {
		return nil, err
	}
	return &RecoveryManager{
		conf:      conf,
		evaluator: evaluator,
		memory:    xsync.NewMapOf[string, failureItem](),
		pool:      pool,
		timers:    xsync.NewMapOf[uint64, *time.Timer](),
		done:      make(chan struct{}),
	}, nil
}

func (m *RecoveryManager) GetEvaluator() *FailureEvaluator {
	return m.evaluator
}

func (m *RecoveryManager) GetConfig() Config {
	return m.conf
}

// FailureCount returns the remembered failure count of a task id.
func (m *RecoveryManager) FailureCount(id string) int {
	if item, ok := m.memory.Load(id); ok {
		return item.count
	}
	return 0
}

// Submit records the failure and returns without waiting for any retry.
func (m *RecoveryManager) Submit(task ITaskFailure, err error) {
	if m.closed.Load() {
		glog.V(2).Infof("recovery manager closed, dropping failure of %s: %v", task.TaskId(), err)
		return
	}
	switch m.decide(task, err) {
	case decideFatal:
		m.fatal(task, err)
	case decideRetry:
		if t := task.Task(); t != nil {
			m.schedule(task, t)
		}
	}
}

// Evaluate is the blocking variant of Submit. It returns the result of the
// first successful retry. Once the failure is fatal, exhausted or not
// retryable, it returns nil with the last error.
func (m *RecoveryManager) Evaluate(task ITaskFailure, err error) (interface{}, error) {
	for {
		if m.closed.Load() {
			return nil, err
		}
		switch m.decide(task, err) {
		case decideIgnore:
			return nil, err
		case decideFatal:
			m.fatal(task, err)
			return nil, err
		}
		t := task.Task()
		if t == nil {
			return nil, err
		}
		timer := time.NewTimer(m.conf.RetryInterval.Duration)
		select {
		case <-timer.C:
		case <-m.done:
			timer.Stop()
			return nil, err
		}
		result, rerr := t()
		if rerr == nil {
			m.recovered(task)
			return result, nil
		}
		glog.V(2).Infof("retry of %s failed: %v", task.TaskId(), rerr)
		err = rerr
	}
}

func (m *RecoveryManager) decide(task ITaskFailure, err error) decision {
	now := time.Now()
	m.pruneStale(now)

	id := task.TaskId()
	switch m.evaluator.Classify(err) {
	case Unrecoverable:
		m.memory.Delete(id)
		return decideFatal
	case Recoverable:
		fatal := false
		item, _ := m.memory.Compute(id, func(old failureItem, loaded bool) (failureItem, bool) {
			old.count++
			old.last = now
			if old.count >= m.conf.Tolerance {
				fatal = true
				return old, true
			}
			return old, false
		})
		if fatal {
			glog.Warningf("task %s reached failure tolerance %d", id, m.conf.Tolerance)
			return decideFatal
		}
		if glog.V(2) {
			glog.Infof("task %s failure %d/%d: %v", id, item.count, m.conf.Tolerance, err)
		}
		otel.RecordRecovery(OutcomeRetry)
		return decideRetry
	}
	if err != nil {
		otel.RecordRecovery(OutcomeIgnored)
	}
	return decideIgnore
}

func (m *RecoveryManager) pruneStale(now time.Time) {
	var keys []string
	m.memory.Range(func(key string, item failureItem) bool {
		if now.Sub(item.last) > m.conf.MemoryWindow.Duration {
			keys = append(keys, key)
		}
		return true
	})
	for _, key := range keys {
		m.memory.Compute(key, func(old failureItem, loaded bool) (failureItem, bool) {
			return old, !loaded || now.Sub(old.last) > m.conf.MemoryWindow.Duration
		})
	}
}

func (m *RecoveryManager) fatal(task ITaskFailure, err error) {
	glog.Warningf("task %s failed: %v", task.TaskId(), err)
	otel.RecordRecovery(OutcomeFatal)
	task.OnFatal(err)
}

func (m *RecoveryManager) recovered(task ITaskFailure) {
	m.memory.Delete(task.TaskId())
	otel.RecordRecovery(OutcomeRecovered)
	glog.V(2).Infof("task %s recovered", task.TaskId())
}

func (m *RecoveryManager) schedule(task ITaskFailure, t Task) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed.Load() {
		return
	}
	seq := m.timerSeq.Inc()
	m.pending.Add(1)
	armed := make(chan struct{})
	timer := time.AfterFunc(m.conf.RetryInterval.Duration, func() {
		<-armed
		m.timers.Delete(seq)
		if err := m.pool.Submit(func() {
			defer m.pending.Done()
			m.runRetry(task, t)
		}); err != nil {
			m.pending.Done()
			glog.Warningf("retry of %s not run: %v", task.TaskId(), err)
		}
	})
	m.timers.Store(seq, timer)
	close(armed)
}

func (m *RecoveryManager) runRetry(task ITaskFailure, t Task) {
	result, err := t()
	if err != nil {
		glog.V(2).Infof("retry of %s failed: %v", task.TaskId(), err)
		m.Submit(task, err)
		return
	}
	m.recovered(task)
	if l, ok := task.(IRecoveryListener); ok {
		l.OnRecovered(result)
	}
}

// Cleanup stops accepting failures, gives scheduled retries up to
// CleanupTimeout to finish, then cancels the rest and releases the worker.
func (m *RecoveryManager) Cleanup() {
	m.mu.Lock()
	if m.closed.Load() {
		m.mu.Unlock()
		return
	}
	m.closed.Store(true)
	close(m.done)
	m.mu.Unlock()

	waitCh := make(chan struct{})
	go func() {
		m.pending.Wait()
		close(waitCh)
	}()
	select {
	case <-waitCh:
	case <-time.After(m.conf.CleanupTimeout.Duration):
		cancelled := 0
		m.timers.Range(func(seq uint64, timer *time.Timer) bool {
			if timer.Stop() {
				m.pending.Done()
				cancelled++
			}
			m.timers.Delete(seq)
			return true
		})
		glog.Infof("recovery manager cancelled %d scheduled retries", cancelled)
	}
	if err := m.pool.ReleaseTimeout(m.conf.CleanupTimeout.Duration); err != nil {
		glog.Warningf("recovery pool release: %v", err)
	}
	m.memory.Clear()
}
