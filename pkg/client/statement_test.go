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

package client

import (
	"context"
	goerrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fmclient/internal/fmtest"
	"fmclient/pkg/errors"
	"fmclient/pkg/failure"
	"fmclient/pkg/io"
	"fmclient/pkg/proto"
	"fmclient/pkg/util"
)

func newTestRecovery(t *testing.T) *failure.RecoveryManager {
	rm, err := failure.NewRecoveryManager(failure.Config{
		Tolerance:      3,
		MemoryWindow:   util.NewDuration(time.Second),
		RetryInterval:  util.NewDuration(10 * time.Millisecond),
		CleanupTimeout: util.NewDuration(100 * time.Millisecond),
	}, nil)
	require.NoError(t, err)
	t.Cleanup(rm.Cleanup)
	return rm
}

func newTestStatement(t *testing.T, d *fakeDispatcher, rm *failure.RecoveryManager) *Statement {
	s := NewSession(d, rm, testTimeout)
	st, err := s.CreateStatement()
	require.NoError(t, err)
	return st
}

func TestExecuteRoundTrip(t *testing.T) {
	d := &fakeDispatcher{answer: always}
	st := newTestStatement(t, d, nil)

	values, err := st.Execute(NewGroupListCommand())
	require.NoError(t, err)
	require.Len(t, values, len(fmtest.DefaultGroups))
	for i, name := range fmtest.DefaultGroups {
		assert.Equal(t, name, values[i])
	}

	req := d.request(0)
	assert.False(t, req.GetPacket().ExpireTime().IsZero())
	assert.Equal(t, st.session.GetId(), req.GetOwner())
}

func TestExecuteTimeoutRetriesOnce(t *testing.T) {
	d := &fakeDispatcher{retryOnTimeout: true}
	st := newTestStatement(t, d, newTestRecovery(t))

	cmd := NewClassPortInfoCommand(proto.MgmtClassSubnAdm)
	_, err := st.Execute(cmd)
	assert.ErrorIs(t, err, errors.ErrTimeout)
	assert.Contains(t, err.Error(), fmt.Sprintf("tid=%#x", cmd.GetTransactionId()))

	require.Equal(t, 2, d.numRequests())
	assert.Equal(t, cmd.GetTransactionId(), d.request(0).GetTransactionId())
	assert.NotEqual(t, cmd.GetTransactionId(), d.request(1).GetTransactionId())
	assert.Len(t, d.timeouts, 2)
	assert.Equal(t, 0, st.session.recovery.FailureCount(st.session.taskId(cmd)))
}

func startSilentDispatcher(t *testing.T) (*io.Dispatcher, *fmtest.FakeSM) {
	sm, err := fmtest.NewFakeSM(nil)
	require.NoError(t, err)
	t.Cleanup(sm.Close)
	sm.SetSilent(true)

	desc, err := io.NewSubnetDescription("fab1", sm.Addr())
	require.NoError(t, err)
	d, err := io.NewDispatcher(desc, &io.OutboundConfig{
		ConnectTimeout:                 util.NewDuration(200 * time.Millisecond),
		GracefulShutdownTime:           util.NewDuration(20 * time.Millisecond),
		SweepInterval:                  util.NewDuration(time.Minute),
		ConsecutiveTimeoutsForFailover: 100,
	})
	require.NoError(t, err)
	require.NoError(t, d.Start(context.Background()))
	t.Cleanup(func() { d.Shutdown() })
	return d, sm
}

func TestExecuteTimeoutCompletesResponses(t *testing.T) {
	d, sm := startSilentDispatcher(t)
	s := NewSession(d, nil, testTimeout)
	st, err := s.CreateStatement()
	require.NoError(t, err)

	cmd := NewClassPortInfoCommand(proto.MgmtClassSubnAdm)
	_, err = st.Execute(cmd)
	assert.ErrorIs(t, err, errors.ErrTimeout)
	require.Eventually(t, func() bool { return sm.NumRequests() == 2 }, 5*time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool { return st.responses.Size() == 0 }, 5*time.Second, 5*time.Millisecond)
	resp := cmd.GetResponse()
	assert.True(t, resp.IsDone())
	_, err = resp.Get(time.Millisecond)
	assert.ErrorIs(t, err, errors.ErrTimeout)
}

func TestSessionCloseAfterTimeoutCompletesResponses(t *testing.T) {
	d, sm := startSilentDispatcher(t)
	s := NewSession(d, nil, testTimeout)
	st, err := s.CreateStatement()
	require.NoError(t, err)
	_, err = st.Execute(NewGroupListCommand())
	assert.ErrorIs(t, err, errors.ErrTimeout)

	long, err := s.CreateStatementWithTimeout(time.Minute)
	require.NoError(t, err)
	pending, err := long.Submit(NewNoticeCommand())
	require.NoError(t, err)
	require.Eventually(t, func() bool { return sm.NumRequests() == 3 }, 5*time.Second, 5*time.Millisecond)

	require.NoError(t, s.Close())
	select {
	case <-pending.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("pending response not completed")
	}
	_, err = pending.Get(time.Millisecond)
	assert.ErrorIs(t, err, errors.ErrClosed)
	assert.Equal(t, 0, st.responses.Size())
	assert.Equal(t, 0, long.responses.Size())
}

func TestExecuteTimeoutRetrySucceeds(t *testing.T) {
	d := &fakeDispatcher{retryOnTimeout: true, answer: func(n int) bool { return n == 2 }}
	st := newTestStatement(t, d, nil)

	values, err := st.Execute(NewClassPortInfoCommand(proto.MgmtClassSubnAdm))
	require.NoError(t, err)
	require.Len(t, values, 1)
	cpi, ok := values[0].(*proto.ClassPortInfo)
	require.True(t, ok)
	assert.Equal(t, fmtest.DefaultClassPortInfo.RespTimeValue, cpi.RespTimeValue)
}

func TestExecuteTimeoutNoRetry(t *testing.T) {
	d := &fakeDispatcher{retryOnTimeout: false}
	st := newTestStatement(t, d, nil)

	_, err := st.Execute(NewNoticeCommand())
	assert.ErrorIs(t, err, errors.ErrTimeout)
	assert.Equal(t, 1, d.numRequests())
}

func TestExecuteRecoversThroughRecoveryManager(t *testing.T) {
	d := &fakeDispatcher{answer: always, queueErrs: []error{errors.ErrBusy}}
	rm := newTestRecovery(t)
	st := newTestStatement(t, d, rm)

	cmd := NewNoticeCommand()
	values, err := st.Execute(cmd)
	require.NoError(t, err)
	require.Len(t, values, 1)
	n := values[0].(*proto.Notice)
	assert.Equal(t, proto.TrapGidNowInService, n.TrapNumber)
	assert.Equal(t, 0, rm.FailureCount(st.session.taskId(cmd)))
}

func TestExecuteEscalatesAfterTolerance(t *testing.T) {
	d := &fakeDispatcher{
		answer:    always,
		queueErrs: []error{errors.ErrBusy, errors.ErrBusy, errors.ErrBusy, errors.ErrBusy},
	}
	rm := newTestRecovery(t)
	st := newTestStatement(t, d, rm)

	_, err := st.Execute(NewGroupListCommand())
	assert.ErrorIs(t, err, errors.ErrBusy)
	assert.Equal(t, 0, d.numRequests())
}

func TestExecuteMadStatusIsNotRetried(t *testing.T) {
	d := &fakeDispatcher{answer: always, status: proto.MadStatusPaNoGroup}
	st := newTestStatement(t, d, newTestRecovery(t))

	_, err := st.Execute(NewGroupListCommand())
	var st2 *errors.MadStatusError
	require.True(t, goerrors.As(err, &st2))
	assert.Equal(t, proto.MadStatusPaNoGroup, st2.Status)
	assert.Equal(t, 1, d.numRequests())
}

func TestClosedStatementRejectsSubmit(t *testing.T) {
	d := &fakeDispatcher{answer: always}
	st := newTestStatement(t, d, newTestRecovery(t))

	require.NoError(t, st.Close())
	require.NoError(t, st.Close())
	assert.True(t, st.IsClosed())

	_, err := st.Submit(NewGroupListCommand())
	assert.ErrorIs(t, err, errors.ErrClosed)
	_, err = st.Execute(NewGroupListCommand())
	assert.ErrorIs(t, err, errors.ErrClosed)
	assert.Equal(t, 0, d.numRequests())
	assert.Equal(t, 0, st.session.NumStatements())
}

func TestResponseResolvesAfterClose(t *testing.T) {
	d := &fakeDispatcher{}
	st := newTestStatement(t, d, nil)

	resp, err := st.Submit(NewGroupListCommand())
	require.NoError(t, err)
	require.NoError(t, st.Close())

	reply(d.request(0), proto.MadStatusSuccess)
	select {
	case <-resp.Done():
	case <-time.After(time.Second):
		t.Fatal("response not completed")
	}
	_, err = resp.Get(time.Second)
	assert.ErrorIs(t, err, errors.ErrClosed)
}

func TestSessionCloseClosesStatements(t *testing.T) {
	d := &fakeDispatcher{}
	s := NewSession(d, nil, testTimeout)

	var sts []*Statement
	for i := 0; i < 3; i++ {
		st, err := s.CreateStatementWithTimeout(time.Duration(i+1) * time.Second)
		require.NoError(t, err)
		sts = append(sts, st)
	}
	assert.Equal(t, 2*time.Second, sts[1].GetTimeout())
	require.NoError(t, sts[0].Close())
	assert.Equal(t, 2, s.NumStatements())

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	for _, st := range sts {
		assert.True(t, st.IsClosed())
	}
	assert.Equal(t, 0, s.NumStatements())
	assert.Equal(t, []string{s.GetId()}, d.released)

	_, err := s.CreateStatement()
	assert.ErrorIs(t, err, errors.ErrClosed)
	_, err = s.GetPAHelper()
	assert.ErrorIs(t, err, errors.ErrClosed)
}

func TestSessionHelpers(t *testing.T) {
	d := &fakeDispatcher{answer: always}
	s := NewSession(d, nil, time.Second)

	pa, err := s.GetPAHelper()
	require.NoError(t, err)
	pa2, err := s.GetPAHelper()
	require.NoError(t, err)
	assert.Same(t, pa, pa2)

	groups, err := pa.GetGroupList()
	require.NoError(t, err)
	assert.Equal(t, fmtest.DefaultGroups, groups)
	cpi, err := pa.GetClassPortInfo()
	require.NoError(t, err)
	assert.Equal(t, fmtest.DefaultClassPortInfo.CapMask, cpi.CapMask)

	sa, err := s.GetSAHelper()
	require.NoError(t, err)
	notices, err := sa.GetNotices()
	require.NoError(t, err)
	require.Len(t, notices, 1)
	assert.Equal(t, proto.TrapGidNowInService, notices[0].TrapNumber)
	assert.Equal(t, 2, s.NumStatements())
}
