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
	"bufio"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/golang/glog"
	pkgerrors "github.com/pkg/errors"

	"fmclient/pkg/datagram"
	"fmclient/pkg/errors"
	"fmclient/pkg/io/ioutil"
	"fmclient/pkg/proto"
	"fmclient/pkg/util"
)

const (
	kReadBufferSize = 64 * 1024
)

type frameHandler interface {
	onFrame(connId int, payload []byte)
}

// OutboundConnector owns one connection to the Subnet Manager. It runs a
// write loop taking requests off the dispatcher's shared channel and a read
// loop handing every inbound frame to the dispatcher.
type OutboundConnector struct {
	id      int
	gen     uint64
	conn    Conn
	netConn net.Conn
	reader  *bufio.Reader

	reqCh     chan IRequestContext
	monitorCh chan *OutboundConnector
	procDone  <-chan struct{}
	tracker   *PendingTracker
	handler   frameHandler
	config    *OutboundConfig

	doneCh      chan struct{}
	wg          sync.WaitGroup
	closeOnce   sync.Once
	displayName string
}

func newOutboundConnector(id int, gen uint64, c Conn, p *Dispatcher) *OutboundConnector {
	netConn := c.GetNetConn()
	connector := &OutboundConnector{
		id:        id,
		gen:       gen,
		conn:      c,
		netConn:   netConn,
		reader:    bufio.NewReaderSize(netConn, kReadBufferSize),
		reqCh:     p.reqCh,
		monitorCh: p.monitorCh,
		procDone:  p.doneCh,
		tracker:   p.tracker,
		handler:   p,
		config:    p.config,
		doneCh:    make(chan struct{}),
	}
	connector.displayName = fmt.Sprintf("id=%d laddr=%s raddr=%s tls=%t",
		id, netConn.LocalAddr(), netConn.RemoteAddr(), c.IsTLS())
	return connector
}

func (p *OutboundConnector) Start() {
	p.wg.Add(2)
	go p.writeLoop()
	go p.readLoop()
}

// Close stops both loops and reports the connector to the dispatcher once.
func (p *OutboundConnector) Close() {
	p.closeOnce.Do(func() {
		if glog.V(2) {
			glog.Infof("connector %s closed", p.displayName)
		}
		close(p.doneCh)
		p.netConn.Close()
		select {
		case p.monitorCh <- p:
		case <-p.procDone:
		}
	})
}

// Shutdown closes the connector and waits for its loops to exit.
func (p *OutboundConnector) Shutdown() {
	p.Close()
	p.wg.Wait()
}

func (p *OutboundConnector) GetId() int {
	return p.id
}

func (p *OutboundConnector) writeLoop() {
	defer func() {
		p.Close()
		p.wg.Done()
		if glog.V(2) {
			glog.Infof("connector %s write loop exit", p.displayName)
		}
	}()

	for {
		select {
		case <-p.doneCh:
			return
		case req, ok := <-p.reqCh:
			if !ok {
				return
			}
			if err := p.write(req); err != nil {
				ioutil.LogError(err)
				return
			}
		}
	}
}

func (p *OutboundConnector) write(req IRequestContext) error {
	tid := req.GetTransactionId()
	pkt := req.GetPacket()
	if pkt.IsExpired(time.Now()) {
		req.ReplyError(errors.ErrTimeout)
		return nil
	}
	if !p.tracker.OnRequestSent(req, p.id) {
		req.ReplyError(fmt.Errorf("transaction id %#x already in flight", tid))
		return nil
	}
	if p.config.NetworkDebug {
		if b, err := datagram.Bytes(pkt); err == nil {
			glog.Infof("connector %s send tid=%#x\n%s", p.displayName, tid, util.HexDump(b))
		}
	}
	if _, err := datagram.WriteTo(p.netConn, pkt); err != nil {
		p.tracker.Forget(tid)
		werr := pkgerrors.Wrapf(err, "connector %s write tid=%#x", p.displayName, tid)
		req.ReplyError(werr)
		return werr
	}
	if glog.V(3) {
		glog.Infof("connector %s sent tid=%#x", p.displayName, tid)
	}
	return nil
}

func (p *OutboundConnector) readLoop() {
	defer func() {
		p.Close()
		p.wg.Done()
		if glog.V(2) {
			glog.Infof("connector %s read loop exit", p.displayName)
		}
	}()

	for {
		hdr, payload, err := proto.ReadOobFrame(p.reader, p.config.MaxPayloadSize)
		if err != nil {
			select {
			case <-p.doneCh:
			default:
				ioutil.LogError(pkgerrors.Wrapf(err, "connector %s read", p.displayName))
			}
			return
		}
		if p.config.NetworkDebug {
			glog.Infof("connector %s recv version=%d len=%d\n%s",
				p.displayName, hdr.Version(), hdr.PayloadLength(), util.HexDump(payload))
		}
		p.handler.onFrame(p.id, payload)
	}
}
