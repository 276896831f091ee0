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
	goerrors "errors"
	"time"

	"github.com/golang/glog"
	"github.com/puzpuzpuz/xsync/v3"
	uuid "github.com/satori/go.uuid"
	"go.uber.org/atomic"

	"fmclient/pkg/errors"
	"fmclient/pkg/failure"
	"fmclient/pkg/io"
)

// Statement submits commands for a session with one per-request timeout.
type Statement struct {
	id        string
	session   *Session
	timeout   time.Duration
	closed    atomic.Bool
	responses *xsync.MapOf[uint64, *Response]
}

func newStatement(s *Session, timeout time.Duration) *Statement {
	return &Statement{
		id:        uuid.NewV4().String(),
		session:   s,
		timeout:   timeout,
		responses: xsync.NewMapOf[uint64, *Response](),
	}
}

func (s *Statement) GetId() string {
	return s.id
}

func (s *Statement) GetTimeout() time.Duration {
	return s.timeout
}

func (s *Statement) IsClosed() bool {
	return s.closed.Load()
}

// Submit queues cmd and returns its Response without waiting.
func (s *Statement) Submit(cmd ICommand) (*Response, error) {
	if s.closed.Load() {
		return nil, errors.ErrClosed
	}
	pkt, err := cmd.BuildPacket()
	if err != nil {
		return nil, err
	}
	pkt.SetExpireTime(time.Now().Add(s.timeout))

	tid := cmd.GetTransactionId()
	resp := cmd.GetResponse()
	req := io.NewRequestContext(tid, pkt, s.session.GetId(), func(payload []byte, err error) {
		s.responses.Delete(tid)
		if err != nil {
			resp.fail(err)
			return
		}
		values, derr := cmd.Decode(payload)
		if derr != nil {
			resp.fail(derr)
			return
		}
		resp.complete(values)
	})
	s.responses.Store(tid, resp)
	if err = s.session.dispatcher.QueueCmd(req); err != nil {
		s.responses.Delete(tid)
		return nil, err
	}
	if glog.V(3) {
		glog.Infof("statement %s submitted %s", s.id, cmd)
	}
	return resp, nil
}

// Execute submits cmd and waits for its result. A timeout is retried once
// with a renewed command; if that times out too the first timeout error is
// returned. Other failures go to the session's recovery manager.
func (s *Statement) Execute(cmd ICommand) ([]interface{}, error) {
	values, err := s.execute(cmd)
	if err == nil || goerrors.Is(err, errors.ErrTimeout) {
		return values, err
	}

	rm := s.session.recovery
	if rm == nil {
		return nil, err
	}
	task := failure.NewTaskFailure(s.session.taskId(cmd), func() (interface{}, error) {
		return s.execute(cmd.Renew())
	}, func(ferr error) {
		glog.Warningf("statement %s: %s failed: %v", s.id, cmd, ferr)
	})
	result, err := rm.Evaluate(task, err)
	if err != nil {
		return nil, err
	}
	values, _ = result.([]interface{})
	return values, nil
}

func (s *Statement) execute(cmd ICommand) ([]interface{}, error) {
	resp, err := s.Submit(cmd)
	if err != nil {
		return nil, err
	}
	values, err := resp.Get(s.timeout)
	if err == nil || !goerrors.Is(err, errors.ErrTimeout) {
		return values, err
	}

	if !s.session.onStatementTimeout(cmd.GetTransactionId()) {
		return nil, err
	}
	retry := cmd.Renew()
	glog.Warningf("statement %s: %v, retrying as %s", s.id, err, retry)
	resp2, rerr := s.Submit(retry)
	if rerr != nil {
		return nil, rerr
	}
	values, rerr = resp2.Get(s.timeout)
	if rerr == nil {
		return values, nil
	}
	if goerrors.Is(rerr, errors.ErrTimeout) {
		s.session.onStatementTimeout(retry.GetTransactionId())
		return nil, err
	}
	return nil, rerr
}

// Close is idempotent. Responses still outstanding report ErrClosed to
// their readers.
func (s *Statement) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.responses.Range(func(_ uint64, r *Response) bool {
		r.markClosed()
		return true
	})
	s.session.removeStatement(s.id)
	return nil
}
