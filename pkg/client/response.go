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
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
	"go.uber.org/atomic"

	"fmclient/pkg/errors"
)

// Response is filled once, by the reply or by a failure. Readers block
// until then. After the owning statement closes, reads return ErrClosed
// while the dispatcher can still complete it.
type Response struct {
	tid    uint64
	doneCh chan struct{}
	once   sync.Once
	values []interface{}
	err    error
	closed atomic.Bool
}

func newResponse(tid uint64) *Response {
	return &Response{tid: tid, doneCh: make(chan struct{})}
}

func (r *Response) GetTransactionId() uint64 {
	return r.tid
}

func (r *Response) complete(values []interface{}) (ok bool) {
	r.once.Do(func() {
		r.values = values
		close(r.doneCh)
		ok = true
	})
	return
}

func (r *Response) fail(err error) (ok bool) {
	r.once.Do(func() {
		r.err = err
		close(r.doneCh)
		ok = true
	})
	return
}

func (r *Response) markClosed() {
	r.closed.Store(true)
}

func (r *Response) Done() <-chan struct{} {
	return r.doneCh
}

func (r *Response) IsDone() bool {
	select {
	case <-r.doneCh:
		return true
	default:
		return false
	}
}

// Get waits up to timeout. A timeout error wraps errors.ErrTimeout.
func (r *Response) Get(timeout time.Duration) ([]interface{}, error) {
	if r.closed.Load() {
		return nil, errors.ErrClosed
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-r.doneCh:
		if r.closed.Load() {
			return nil, errors.ErrClosed
		}
		return r.values, r.err
	case <-timer.C:
		return nil, pkgerrors.Wrapf(errors.ErrTimeout, "tid=%#x no reply in %s", r.tid, timeout)
	}
}
