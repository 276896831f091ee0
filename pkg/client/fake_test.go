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

	"fmclient/internal/fmtest"
	"fmclient/pkg/datagram"
	"fmclient/pkg/errors"
	"fmclient/pkg/io"
	"fmclient/pkg/proto"
)

// fakeDispatcher records requests and answers the ones answer selects
// with the fake Subnet Manager's handler.
type fakeDispatcher struct {
	mu             sync.Mutex
	reqs           []io.IRequestContext
	timeouts       []uint64
	released       []string
	queueErrs      []error
	retryOnTimeout bool
	answer         func(n int) bool
	status         uint16
}

func (f *fakeDispatcher) Name() string {
	return "fab1"
}

func (f *fakeDispatcher) QueueCmd(req io.IRequestContext) error {
	f.mu.Lock()
	if len(f.queueErrs) > 0 {
		err := f.queueErrs[0]
		f.queueErrs = f.queueErrs[1:]
		f.mu.Unlock()
		return err
	}
	f.reqs = append(f.reqs, req)
	n := len(f.reqs)
	answer := f.answer != nil && f.answer(n)
	status := f.status
	f.mu.Unlock()

	if answer {
		go reply(req, status)
	}
	return nil
}

// OnRequestTimeout fails the request with ErrTimeout like io.Dispatcher.
func (f *fakeDispatcher) OnRequestTimeout(tid uint64) bool {
	f.mu.Lock()
	f.timeouts = append(f.timeouts, tid)
	var timedOut io.IRequestContext
	for _, req := range f.reqs {
		if req.GetTransactionId() == tid {
			timedOut = req
		}
	}
	retry := f.retryOnTimeout
	f.mu.Unlock()

	if timedOut != nil {
		timedOut.ReplyError(errors.ErrTimeout)
	}
	return retry
}

func (f *fakeDispatcher) ReleaseOwner(owner string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released = append(f.released, owner)
	return 0
}

func (f *fakeDispatcher) numRequests() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reqs)
}

func (f *fakeDispatcher) request(i int) io.IRequestContext {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reqs[i]
}

func reply(req io.IRequestContext, status uint16) {
	b, err := datagram.Bytes(req.GetPacket())
	if err != nil {
		req.ReplyError(err)
		return
	}
	if status != proto.MadStatusSuccess {
		req.ReplyError(errors.NewMadStatusError(status, proto.MadStatusText(status)))
		return
	}
	payload := b[proto.OobHeaderSize:]
	cm, err := proto.PeekCommonMad(payload)
	if err != nil {
		req.ReplyError(err)
		return
	}
	req.Reply(fmtest.DefaultHandler(cm, payload))
}

func always(int) bool { return true }

const testTimeout = 30 * time.Millisecond
