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

// Package fmtest runs an in-process Subnet Manager for tests. It speaks
// the OOB framing over TCP and answers requests through a Handler.
package fmtest

import (
	"bufio"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/golang/glog"
	"go.uber.org/atomic"
	"golang.org/x/net/netutil"

	"fmclient/pkg/datagram"
	"fmclient/pkg/proto"
)

const (
	kMaxConns = 64
)

// Handler returns the reply MAD for a request, nil to leave it unanswered.
type Handler func(req *proto.CommonMad, payload []byte) []byte

type FakeSM struct {
	listener net.Listener
	conns    connManager
	wg       sync.WaitGroup

	mu      sync.RWMutex
	handler Handler

	silent   atomic.Bool
	delay    atomic.Duration
	requests atomic.Int32
	closed   atomic.Bool
}

// NewFakeSM listens on a loopback port. A nil handler uses DefaultHandler.
func NewFakeSM(handler Handler) (*FakeSM, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	if handler == nil {
		handler = DefaultHandler
	}
	s := &FakeSM{
		listener: netutil.LimitListener(ln, kMaxConns),
		handler:  handler,
	}
	s.wg.Add(1)
	go s.acceptLoop()
	return s, nil
}

func (s *FakeSM) Addr() string {
	return s.listener.Addr().String()
}

func (s *FakeSM) SetHandler(h Handler) {
	s.mu.Lock()
	s.handler = h
	s.mu.Unlock()
}

// SetSilent makes the manager read requests without answering them.
func (s *FakeSM) SetSilent(silent bool) {
	s.silent.Store(silent)
}

// SetDelay holds every reply back for d.
func (s *FakeSM) SetDelay(d time.Duration) {
	s.delay.Store(d)
}

func (s *FakeSM) NumRequests() int {
	return int(s.requests.Load())
}

func (s *FakeSM) NumActiveConnections() int {
	return s.conns.numActive()
}

// DropConnections closes every accepted connection but keeps listening.
func (s *FakeSM) DropConnections() {
	s.conns.closeAll()
}

// SendNotice pushes a notice as an SA Report to every connection.
func (s *FakeSM) SendNotice(n *proto.Notice) error {
	mad := proto.NewMadPacket(proto.LayoutSa, proto.NoticeSize)
	mad.Mad.SetMgmtClass(proto.MgmtClassSubnAdm)
	mad.Mad.SetMethod(proto.MethodReport)
	mad.Mad.SetAttributeId(proto.AttrNotice)
	mad.Mad.Initialize(proto.NextTransactionId())
	mad.Data.PutBytes(0, proto.EncodeNotice(n))
	b, err := datagram.Bytes(mad)
	if err != nil {
		return err
	}
	return s.conns.forEach(func(c *fakeConn) error {
		return c.send(b)
	})
}

// Close stops the listener and every connection and waits for them.
func (s *FakeSM) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.listener.Close()
	s.conns.closeAll()
	s.wg.Wait()
	s.conns.waitForShutdown(time.Second)
}

func (s *FakeSM) getHandler() Handler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.handler
}

func (s *FakeSM) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if !s.closed.Load() {
				glog.Errorf("fake SM accept: %v", err)
			}
			return
		}
		c := &fakeConn{conn: conn}
		s.conns.track(c, true)
		go s.serve(c)
	}
}

func (s *FakeSM) serve(c *fakeConn) {
	defer func() {
		c.conn.Close()
		s.conns.track(c, false)
	}()

	reader := bufio.NewReader(c.conn)
	for {
		_, payload, err := proto.ReadOobFrame(reader, proto.MaxMadSize)
		if err != nil {
			return
		}
		s.requests.Inc()
		cm, err := proto.PeekCommonMad(payload)
		if err != nil || s.silent.Load() {
			continue
		}
		reply := s.getHandler()(cm, payload)
		if reply == nil {
			continue
		}
		if d := s.delay.Load(); d > 0 {
			time.Sleep(d)
		}
		if err = c.send(reply); err != nil {
			return
		}
	}
}

type fakeConn struct {
	conn net.Conn
	wmu  sync.Mutex
}

func (c *fakeConn) send(payload []byte) error {
	body := datagram.NewSimpleDatagram(len(payload))
	if _, err := body.Wrap(payload, 0); err != nil {
		return err
	}
	pkt := proto.NewOobPacket(body)
	pkt.Build(false)
	if err := pkt.FillPayloadSize(); err != nil {
		return err
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_, err := datagram.WriteTo(c.conn, pkt)
	return err
}

// Respond builds a reply to req carrying data in the class's layout.
func Respond(req *proto.CommonMad, status uint16, data []byte) []byte {
	layout := proto.LayoutOf(req.MgmtClass())
	mad := proto.NewMadPacket(layout, len(data))
	mad.Mad.SetMgmtClass(req.MgmtClass())
	mad.Mad.SetMethod(req.Method() | proto.MethodResponseMask)
	mad.Mad.SetAttributeId(req.AttributeId())
	mad.Mad.SetAttributeModifier(req.AttributeModifier())
	mad.Mad.Initialize(req.TransactionId())
	mad.Mad.SetStatus(status)
	if mad.Data != nil {
		mad.Data.PutBytes(0, data)
	}
	if mad.Sa != nil && req.Method() == proto.MethodGetTable {
		switch req.AttributeId() {
		case proto.AttrPaGroupList:
			mad.Sa.SetAttributeOffset(proto.GroupNameSize / 8)
		case proto.AttrNotice:
			mad.Sa.SetAttributeOffset(proto.NoticeSize / 8)
		}
	}
	b, err := datagram.Bytes(mad)
	if err != nil {
		panic(fmt.Sprintf("fake SM reply: %v", err))
	}
	return b
}

var (
	DefaultGroups = []string{"All", "HFIs", "SWs"}

	DefaultClassPortInfo = proto.ClassPortInfo{
		BaseVersion:   proto.StlBaseVersion,
		ClassVersion:  proto.StlClassVersion,
		CapMask:       0x0201,
		RespTimeValue: 18,
	}
)

// DefaultHandler answers ClassPortInfo, the PA group list and the SA
// notice table. Anything else gets a bad method/attribute status.
func DefaultHandler(req *proto.CommonMad, _ []byte) []byte {
	switch req.AttributeId() {
	case proto.AttrClassPortInfo:
		return Respond(req, proto.MadStatusSuccess, DefaultClassPortInfo.Encode())
	case proto.AttrPaGroupList:
		return Respond(req, proto.MadStatusSuccess, proto.EncodeGroupList(DefaultGroups))
	case proto.AttrNotice:
		return Respond(req, proto.MadStatusSuccess, proto.EncodeNotice(DefaultNotice()))
	}
	return Respond(req, proto.MadStatusBadMethodAttr, nil)
}

// DefaultNotice is a GID-in-service trap.
func DefaultNotice() *proto.Notice {
	n := &proto.Notice{
		IsGeneric:    true,
		Type:         proto.NoticeTypeInfo,
		ProducerType: proto.ProducerClassManager,
		TrapNumber:   proto.TrapGidNowInService,
		IssuerLid:    1,
	}
	for i := range n.Data[:16] {
		n.Data[i] = byte(0xF0 + i)
	}
	return n
}
