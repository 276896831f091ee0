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
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

type pendingRequest struct {
	reqCtx   IRequestContext
	connId   int
	timeSent time.Time
}

// PendingTracker correlates written requests with their replies by
// transaction id. It is shared by every connector of a dispatcher.
type PendingTracker struct {
	mapRequestsSent *xsync.MapOf[uint64, *pendingRequest]
}

func newPendingTracker() *PendingTracker {
	return &PendingTracker{
		mapRequestsSent: xsync.NewMapOf[uint64, *pendingRequest](),
	}
}

// OnRequestSent returns false if the transaction id is already in flight.
func (p *PendingTracker) OnRequestSent(reqCtx IRequestContext, connId int) bool {
	_, loaded := p.mapRequestsSent.LoadOrStore(reqCtx.GetTransactionId(), &pendingRequest{
		reqCtx:   reqCtx,
		connId:   connId,
		timeSent: time.Now(),
	})
	return !loaded
}

// OnResponseReceived removes and returns the request matching tid.
func (p *PendingTracker) OnResponseReceived(tid uint64) (*pendingRequest, bool) {
	return p.mapRequestsSent.LoadAndDelete(tid)
}

func (p *PendingTracker) Forget(tid uint64) bool {
	_, found := p.mapRequestsSent.LoadAndDelete(tid)
	return found
}

// Expire removes the request matching tid and fails it with err.
func (p *PendingTracker) Expire(tid uint64, err error) bool {
	pr, found := p.mapRequestsSent.LoadAndDelete(tid)
	if found {
		pr.reqCtx.ReplyError(err)
	}
	return found
}

// OnTimeout fails in-flight requests whose packet has expired.
func (p *PendingTracker) OnTimeout(now time.Time, err error) (n int) {
	return p.failIf(err, func(pr *pendingRequest) bool {
		return pr.reqCtx.GetPacket().IsExpired(now)
	})
}

func (p *PendingTracker) ClearConnector(connId int, err error) int {
	return p.failIf(err, func(pr *pendingRequest) bool {
		return pr.connId == connId
	})
}

func (p *PendingTracker) ClearOwner(owner string, err error) int {
	return p.failIf(err, func(pr *pendingRequest) bool {
		return pr.reqCtx.GetOwner() == owner
	})
}

func (p *PendingTracker) ClearOnError(err error) int {
	return p.failIf(err, func(*pendingRequest) bool { return true })
}

func (p *PendingTracker) failIf(err error, pred func(*pendingRequest) bool) (n int) {
	var tids []uint64
	p.mapRequestsSent.Range(func(tid uint64, pr *pendingRequest) bool {
		if pred(pr) {
			tids = append(tids, tid)
		}
		return true
	})
	for _, tid := range tids {
		if pr, found := p.mapRequestsSent.LoadAndDelete(tid); found {
			pr.reqCtx.ReplyError(err)
			n++
		}
	}
	return
}

func (p *PendingTracker) Size() int {
	return p.mapRequestsSent.Size()
}
