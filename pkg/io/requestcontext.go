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
	"sync"
	"time"

	"fmclient/pkg/proto"
)

type (
	// IRequestContext is one outbound MAD waiting for the reply with the
	// same transaction id. Reply and ReplyError take effect once.
	IRequestContext interface {
		GetTransactionId() uint64
		GetPacket() *proto.OobPacket
		// GetOwner returns the id of the session the request belongs to.
		GetOwner() string
		Reply(payload []byte)
		ReplyError(err error)
	}

	// ReplyFunc receives either the OOB payload of the reply or an error.
	ReplyFunc func(payload []byte, err error)

	RequestContext struct {
		tid          uint64
		packet       *proto.OobPacket
		owner        string
		onReply      ReplyFunc
		replyOnce    sync.Once
		timeReceived time.Time
	}
)

var _ IRequestContext = (*RequestContext)(nil)

func NewRequestContext(tid uint64, packet *proto.OobPacket, owner string, onReply ReplyFunc) *RequestContext {
	return &RequestContext{
		tid:          tid,
		packet:       packet,
		owner:        owner,
		onReply:      onReply,
		timeReceived: time.Now(),
	}
}

func (r *RequestContext) GetTransactionId() uint64 {
	return r.tid
}

func (r *RequestContext) GetPacket() *proto.OobPacket {
	return r.packet
}

func (r *RequestContext) GetOwner() string {
	return r.owner
}

func (r *RequestContext) GetReceiveTime() time.Time {
	return r.timeReceived
}

func (r *RequestContext) Reply(payload []byte) {
	r.replyOnce.Do(func() {
		if r.onReply != nil {
			r.onReply(payload, nil)
		}
	})
}

func (r *RequestContext) ReplyError(err error) {
	r.replyOnce.Do(func() {
		if r.onReply != nil {
			r.onReply(nil, err)
		}
	})
}
