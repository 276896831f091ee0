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
	goerrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"fmclient/pkg/errors"
	"fmclient/pkg/util"
)

func testConfig() Config {
	return Config{
		Tolerance:      3,
		MemoryWindow:   util.NewDuration(1000 * time.Millisecond),
		RetryInterval:  util.NewDuration(10 * time.Millisecond),
		CleanupTimeout: util.NewDuration(100 * time.Millisecond),
	}
}

func newManager(t *testing.T, conf Config) *RecoveryManager {
	m, err := NewRecoveryManager(conf, nil)
	require.NoError(t, err)
	t.Cleanup(m.Cleanup)
	return m
}

type listeningTask struct {
	*TaskFailure
	recovered chan interface{}
}

func (l *listeningTask) OnRecovered(result interface{}) {
	l.recovered <- result
}

func TestRetryEscalation(t *testing.T) {
	m := newManager(t, testConfig())
	fatal := atomic.NewInt32(0)
	task := NewTaskFailure("T", nil, func(error) { fatal.Inc() })

	m.Submit(task, errors.ErrTimeout)
	assert.Equal(t, 1, m.FailureCount("T"))
	m.Submit(task, errors.ErrTimeout)
	assert.Equal(t, 2, m.FailureCount("T"))
	assert.Equal(t, int32(0), fatal.Load())

	m.Submit(task, errors.ErrTimeout)
	assert.Equal(t, int32(1), fatal.Load())
	assert.Equal(t, 0, m.FailureCount("T"))

	m.Submit(task, errors.ErrTimeout)
	assert.Equal(t, 1, m.FailureCount("T"))
	assert.Equal(t, int32(1), fatal.Load())
}

func TestUnrecoverableShortCircuit(t *testing.T) {
	m := newManager(t, testConfig())
	var got error
	task := NewTaskFailure("U", func() (interface{}, error) {
		t.Error("unrecoverable task must not be retried")
		return nil, nil
	}, func(err error) { got = err })

	m.Submit(task, errors.ErrClosed)
	assert.True(t, goerrors.Is(got, errors.ErrClosed))
	assert.Equal(t, 0, m.FailureCount("U"))
}

func TestUnrecoverableDropsMemory(t *testing.T) {
	m := newManager(t, testConfig())
	task := NewTaskFailure("D", nil, nil)
	m.Submit(task, errors.ErrTimeout)
	require.Equal(t, 1, m.FailureCount("D"))
	m.Submit(task, errors.ErrShutdown)
	assert.Equal(t, 0, m.FailureCount("D"))
}

func TestStalePruning(t *testing.T) {
	conf := testConfig()
	conf.MemoryWindow = util.NewDuration(50 * time.Millisecond)
	m := newManager(t, conf)
	task := NewTaskFailure("S", nil, nil)

	m.Submit(task, errors.ErrTimeout)
	m.Submit(task, errors.ErrTimeout)
	require.Equal(t, 2, m.FailureCount("S"))

	time.Sleep(80 * time.Millisecond)
	m.Submit(task, errors.ErrTimeout)
	assert.Equal(t, 1, m.FailureCount("S"))
}

func TestIgnoredError(t *testing.T) {
	m := newManager(t, testConfig())
	task := NewTaskFailure("I", nil, func(error) { t.Error("ignored error escalated") })
	m.Submit(task, nil)
	m.Submit(task, goerrors.New("not a transport problem"))
	assert.Equal(t, 0, m.FailureCount("I"))
}

func TestBackgroundRetryRecovers(t *testing.T) {
	m := newManager(t, testConfig())
	task := &listeningTask{
		TaskFailure: NewTaskFailure("R", func() (interface{}, error) { return "ok", nil }, nil),
		recovered:   make(chan interface{}, 1),
	}
	m.Submit(task, errors.ErrNoConnection)

	select {
	case v := <-task.recovered:
		assert.Equal(t, "ok", v)
	case <-time.After(2 * time.Second):
		t.Fatal("retry did not run")
	}
	assert.Equal(t, 0, m.FailureCount("R"))
}

func TestBackgroundRetryExhausts(t *testing.T) {
	m := newManager(t, testConfig())
	attempts := atomic.NewInt32(0)
	fatal := make(chan error, 1)
	task := NewTaskFailure("X", func() (interface{}, error) {
		attempts.Inc()
		return nil, errors.ErrTimeout
	}, func(err error) { fatal <- err })

	m.Submit(task, errors.ErrTimeout)
	select {
	case err := <-fatal:
		assert.True(t, goerrors.Is(err, errors.ErrTimeout))
	case <-time.After(2 * time.Second):
		t.Fatal("tolerance not reached")
	}
	assert.Equal(t, int32(2), attempts.Load())
	assert.Equal(t, 0, m.FailureCount("X"))
}

func TestEvaluate(t *testing.T) {
	m := newManager(t, testConfig())

	calls := 0
	flaky := NewTaskFailure("E1", func() (interface{}, error) {
		calls++
		if calls < 2 {
			return nil, errors.ErrBusy
		}
		return 42, nil
	}, nil)
	v, err := m.Evaluate(flaky, errors.ErrTimeout)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 0, m.FailureCount("E1"))

	fatal := 0
	broken := NewTaskFailure("E2", func() (interface{}, error) {
		return nil, errors.ErrTimeout
	}, func(error) { fatal++ })
	v, err = m.Evaluate(broken, errors.ErrTimeout)
	assert.Nil(t, v)
	assert.True(t, goerrors.Is(err, errors.ErrTimeout))
	assert.Equal(t, 1, fatal)

	v, err = m.Evaluate(broken, nil)
	assert.Nil(t, v)
	assert.NoError(t, err)

	v, err = m.Evaluate(NewTaskFailure("E3", nil, nil), errors.ErrTimeout)
	assert.Nil(t, v)
	assert.Error(t, err)
	assert.Equal(t, 1, m.FailureCount("E3"))
}

func TestSubmitAndEvaluateShareMemory(t *testing.T) {
	m := newManager(t, testConfig())
	fatal := 0
	task := NewTaskFailure("M", nil, func(error) { fatal++ })
	m.Submit(task, errors.ErrTimeout)
	m.Submit(task, errors.ErrTimeout)
	_, err := m.Evaluate(task, errors.ErrTimeout)
	assert.Error(t, err)
	assert.Equal(t, 1, fatal)
}

func TestCleanupCancelsScheduledRetries(t *testing.T) {
	conf := testConfig()
	conf.RetryInterval = util.NewDuration(time.Second)
	conf.CleanupTimeout = util.NewDuration(20 * time.Millisecond)
	m, err := NewRecoveryManager(conf, nil)
	require.NoError(t, err)

	ran := atomic.NewBool(false)
	task := NewTaskFailure("C", func() (interface{}, error) {
		ran.Store(true)
		return nil, nil
	}, nil)
	m.Submit(task, errors.ErrTimeout)
	require.Equal(t, 1, m.FailureCount("C"))

	start := time.Now()
	m.Cleanup()
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, 0, m.FailureCount("C"))

	m.Submit(task, errors.ErrTimeout)
	assert.Equal(t, 0, m.FailureCount("C"))
	m.Cleanup()

	time.Sleep(1200 * time.Millisecond)
	assert.False(t, ran.Load())
}

func TestShortRetryIntervalLeavesNoTimers(t *testing.T) {
	conf := testConfig()
	conf.Tolerance = 100
	conf.RetryInterval = util.NewDuration(time.Nanosecond)
	m := newManager(t, conf)

	const n = 50
	recovered := make(chan interface{}, n)
	for i := 0; i < n; i++ {
		task := &listeningTask{
			TaskFailure: NewTaskFailure(fmt.Sprintf("R%d", i), func() (interface{}, error) {
				return nil, nil
			}, nil),
			recovered: recovered,
		}
		m.Submit(task, errors.ErrTimeout)
	}
	for i := 0; i < n; i++ {
		select {
		case <-recovered:
		case <-time.After(5 * time.Second):
			t.Fatalf("%d of %d retries recovered", i, n)
		}
	}
	assert.Equal(t, 0, m.timers.Size())
}
