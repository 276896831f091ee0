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
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"
	pkgerrors "github.com/pkg/errors"
	"go.uber.org/atomic"

	"fmclient/pkg/errors"
	"fmclient/pkg/logging/otel"
	"fmclient/pkg/proto"
	"fmclient/pkg/util"
)

// INoticeHandler receives the notices a Subnet Manager sends unsolicited.
type INoticeHandler interface {
	OnNotice(subnet string, notice *proto.Notice)
}

// Dispatcher sends the requests of one subnet over a pool of connectors to
// its current Subnet Manager and matches replies by transaction id. When
// every connector is lost it fails over to the other hosts of the subnet.
type Dispatcher struct {
	name   string
	config *OutboundConfig

	mu            sync.RWMutex
	desc          SubnetDescription
	current       int
	currentHost   ServiceEndpoint
	noticeHandler INoticeHandler

	// owned by the run loop once started
	connectors []*OutboundConnector
	numActive  atomic.Int32
	gen        atomic.Uint64

	reqCh      chan IRequestContext
	connCh     chan *OutboundConnector
	monitorCh  chan *OutboundConnector
	failoverCh chan failoverResult
	forceCh    chan struct{}
	doneCh     chan struct{}
	ctx        context.Context
	cancelCtx  context.CancelFunc

	stateMu  sync.RWMutex
	started  bool
	shutdown bool

	failingOver atomic.Bool
	timeouts    atomic.Int32
	tracker     *PendingTracker
	failover    *FailoverManager
	stats       *dispatcherStats
	wg          sync.WaitGroup
}

func NewDispatcher(desc SubnetDescription, config *OutboundConfig) (*Dispatcher, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	conf := DefaultOutboundConfig
	if config != nil {
		conf = *config
	}
	conf.SetDefaultIfNotDefined()
	numConns := conf.NumInitialConnections

	p := &Dispatcher{
		name:        desc.Name,
		config:      &conf,
		desc:        desc.Clone(),
		current:     0,
		currentHost: desc.Hosts[0],
		connectors:  make([]*OutboundConnector, numConns),
		reqCh:       make(chan IRequestContext, conf.ReqChanBufSize),
		connCh:      make(chan *OutboundConnector, numConns),
		monitorCh:   make(chan *OutboundConnector, 2*numConns+2),
		failoverCh:  make(chan failoverResult, 1),
		forceCh:     make(chan struct{}, 1),
		doneCh:      make(chan struct{}),
		tracker:     newPendingTracker(),
		failover:    NewFailoverManager(desc.Name, &conf),
		stats:       newDispatcherStats(),
	}
	p.ctx, p.cancelCtx = context.WithCancel(context.Background())
	return p, nil
}

func (p *Dispatcher) Name() string {
	return p.name
}

func (p *Dispatcher) GetConfig() OutboundConfig {
	return *p.config
}

// Start connects NumInitialConnections connectors before returning. If the
// primary host cannot be reached the other hosts are tried first.
func (p *Dispatcher) Start(ctx context.Context) (err error) {
	p.stateMu.Lock()
	if p.shutdown {
		p.stateMu.Unlock()
		return errors.ErrShutdown
	}
	if p.started {
		p.stateMu.Unlock()
		return fmt.Errorf("dispatcher %s already started", p.Name())
	}
	p.stateMu.Unlock()

	ep := p.GetCurrentHost()
	conn, err := ConnectTo(&ep, p.config.ConnectTimeout.Duration)
	if err != nil {
		hosts, cur := p.snapshotHosts()
		var idx int
		if idx, conn, err = p.failover.Failover(ctx, hosts, cur); err != nil {
			return
		}
		p.setCurrentHost(hosts[idx])
	}

	gen := p.gen.Inc()
	p.install(newOutboundConnector(0, gen, conn, p))
	for i := 1; i < len(p.connectors); i++ {
		ep = p.GetCurrentHost()
		if c, cerr := ConnectTo(&ep, p.config.ConnectTimeout.Duration); cerr == nil {
			p.install(newOutboundConnector(i, gen, c, p))
		} else {
			p.wg.Add(1)
			go p.connect(i, gen)
		}
	}

	p.stateMu.Lock()
	p.started = true
	p.stateMu.Unlock()

	p.wg.Add(1)
	go p.run()
	glog.Infof("dispatcher %s started with %d connection(s) to %s",
		p.Name(), p.numActive.Load(), p.GetCurrentHost().GetConnString())
	return nil
}

func (p *Dispatcher) install(c *OutboundConnector) {
	p.connectors[c.GetId()] = c
	p.numActive.Inc()
	c.Start()
}

// QueueCmd hands a request to the connectors without blocking.
func (p *Dispatcher) QueueCmd(req IRequestContext) error {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()
	if p.shutdown {
		return errors.ErrShutdown
	}
	if !p.started || (p.numActive.Load() <= 0 && !p.failingOver.Load()) {
		otel.RecordBounce(p.Name())
		return errors.ErrNoConnection
	}
	select {
	case p.reqCh <- req:
		return nil
	default:
		return errors.ErrBusy
	}
}

// OnRequestTimeout fails a request its caller stopped waiting for with
// ErrTimeout. A request still queued is failed by its connector once its
// packet has expired. It returns false when the dispatcher is shut down and
// a retry is pointless. Enough timeouts in a row make the dispatcher fail
// over.
func (p *Dispatcher) OnRequestTimeout(tid uint64) bool {
	p.tracker.Expire(tid, errors.ErrTimeout)
	otel.RecordTimeout(p.Name())
	p.stats.timeouts.Inc()

	p.stateMu.RLock()
	shutdown := p.shutdown
	p.stateMu.RUnlock()
	if shutdown {
		return false
	}
	if n := p.timeouts.Inc(); int(n) >= p.config.ConsecutiveTimeoutsForFailover && !p.failingOver.Load() {
		p.timeouts.Store(0)
		glog.Warningf("dispatcher %s: %d consecutive timeouts", p.Name(), n)
		select {
		case p.forceCh <- struct{}{}:
		default:
		}
	}
	return true
}

// ReleaseOwner fails the in-flight requests of a closed session.
func (p *Dispatcher) ReleaseOwner(owner string) int {
	return p.tracker.ClearOwner(owner, errors.ErrClosed)
}

// RefreshSubnetDescription replaces the host list. Live connections and
// in-flight requests are kept.
func (p *Dispatcher) RefreshSubnetDescription(desc SubnetDescription) error {
	if err := desc.Validate(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.desc = desc.Clone()
	p.current = p.desc.IndexOf(p.currentHost)
	glog.Infof("dispatcher %s: %d host(s), current %s at %d",
		p.name, len(p.desc.Hosts), p.currentHost.GetConnString(), p.current)
	return nil
}

func (p *Dispatcher) GetSubnetDescription() SubnetDescription {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.desc.Clone()
}

// CancelFailover aborts a running failover, if any.
func (p *Dispatcher) CancelFailover() bool {
	return p.failover.Cancel()
}

func (p *Dispatcher) IsFailingOver() bool {
	return p.failingOver.Load()
}

func (p *Dispatcher) GetCurrentHost() ServiceEndpoint {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.currentHost
}

func (p *Dispatcher) GetNumConnections() int {
	return int(p.numActive.Load())
}

func (p *Dispatcher) SetNoticeHandler(h INoticeHandler) {
	p.mu.Lock()
	p.noticeHandler = h
	p.mu.Unlock()
}

func (p *Dispatcher) getNoticeHandler() INoticeHandler {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.noticeHandler
}

func (p *Dispatcher) snapshotHosts() ([]ServiceEndpoint, int) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]ServiceEndpoint(nil), p.desc.Hosts...), p.current
}

// setCurrentHost records the host a failover connected to. The host list
// may have been refreshed while the failover ran, so its index is looked up
// again and is -1 if the host has been dropped.
func (p *Dispatcher) setCurrentHost(ep ServiceEndpoint) {
	p.mu.Lock()
	p.currentHost = ep
	p.current = p.desc.IndexOf(ep)
	p.mu.Unlock()
}

// Shutdown lets in-flight requests finish for up to GracefulShutdownTime,
// then stops the connectors and fails whatever is left with ErrShutdown.
func (p *Dispatcher) Shutdown() error {
	p.stateMu.Lock()
	if p.shutdown {
		p.stateMu.Unlock()
		return errors.ErrShutdown
	}
	p.shutdown = true
	p.stateMu.Unlock()

	deadline := time.Now().Add(p.config.GracefulShutdownTime.Duration)
	for (p.tracker.Size() > 0 || len(p.reqCh) > 0) && p.numActive.Load() > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	p.cancelCtx()
	p.failover.Cancel()
	close(p.doneCh)
	p.wg.Wait()

	n := 0
	for done := false; !done; {
		select {
		case req := <-p.reqCh:
			req.ReplyError(errors.ErrShutdown)
			n++
		default:
			done = true
		}
	}
	n += p.tracker.ClearOnError(errors.ErrShutdown)
	glog.Infof("dispatcher %s shut down, %d request(s) failed", p.Name(), n)
	return nil
}

func (p *Dispatcher) run() {
	defer p.wg.Done()

	sweep := time.NewTicker(p.config.SweepInterval.Duration)
	defer sweep.Stop()
	retryTimer := util.NewTimerWrapper(time.Duration(p.config.ReconnectIntervalBase) * time.Millisecond)
	defer retryTimer.Stop()
	interval := p.config.ReconnectIntervalBase
	var bounceErr error = errors.ErrNoConnection

	for {
		// bounceCh is reqCh only when no connector is up and no failover runs
		var bounceCh chan IRequestContext
		if p.numActive.Load() <= 0 && !p.failingOver.Load() {
			bounceCh = p.reqCh
		}

		select {
		case <-p.doneCh:
			p.closeConnectors()
			return

		case c := <-p.connCh:
			if c.gen != p.gen.Load() || p.connectors[c.GetId()] != nil {
				go c.Shutdown()
				continue
			}
			p.install(c)
			if glog.V(2) {
				glog.Infof("dispatcher %s: connector %s started", p.Name(), c.displayName)
			}

		case c := <-p.monitorCh:
			if p.connectors[c.GetId()] != c {
				continue
			}
			p.connectors[c.GetId()] = nil
			n := p.numActive.Dec()
			cleared := p.tracker.ClearConnector(c.GetId(),
				pkgerrors.Wrapf(errors.ErrNoConnection, "connector %s lost", c.displayName))
			glog.Warningf("dispatcher %s: connector %s down, %d active, %d request(s) failed",
				p.Name(), c.displayName, n, cleared)
			if n > 0 {
				p.wg.Add(1)
				go p.connect(c.GetId(), c.gen)
			} else if !p.failingOver.Load() {
				p.startFailover()
			}

		case <-p.forceCh:
			if p.failingOver.Load() {
				continue
			}
			for i, c := range p.connectors {
				if c == nil {
					continue
				}
				p.connectors[i] = nil
				p.numActive.Dec()
				p.tracker.ClearConnector(i, pkgerrors.Wrapf(errors.ErrTimeout, "connector %s unresponsive", c.displayName))
				go c.Shutdown()
			}
			p.startFailover()

		case res := <-p.failoverCh:
			if res.err != nil {
				p.failingOver.Store(false)
				if p.numActive.Load() > 0 {
					continue
				}
				bounceErr = res.err
				retryTimer.Reset(time.Duration(interval) * time.Millisecond)
				if interval < p.config.ReconnectIntervalMax {
					interval = 2 * interval
				}
				continue
			}
			interval = p.config.ReconnectIntervalBase
			bounceErr = errors.ErrNoConnection
			p.setCurrentHost(res.host)
			gen := p.gen.Inc()
			p.install(newOutboundConnector(0, gen, res.conn, p))
			p.failingOver.Store(false)
			for i := 1; i < len(p.connectors); i++ {
				if p.connectors[i] == nil {
					p.wg.Add(1)
					go p.connect(i, gen)
				}
			}

		case <-retryTimer.GetTimeoutCh():
			retryTimer.Fired()
			if p.numActive.Load() <= 0 && !p.failingOver.Load() {
				p.startFailover()
			}

		case now := <-sweep.C:
			if n := p.tracker.OnTimeout(now, errors.ErrTimeout); n > 0 && glog.V(2) {
				glog.Infof("dispatcher %s: %d expired request(s)", p.Name(), n)
			}

		case req, ok := <-bounceCh:
			if ok && req != nil {
				otel.RecordBounce(p.Name())
				req.ReplyError(bounceErr)
			}
		}
	}
}

func (p *Dispatcher) startFailover() {
	p.failingOver.Store(true)
	p.gen.Inc()
	hosts, cur := p.snapshotHosts()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		idx, conn, err := p.failover.Failover(p.ctx, hosts, cur)
		res := failoverResult{conn: conn, err: err}
		if err == nil {
			res.host = hosts[idx]
		}
		select {
		case p.failoverCh <- res:
		case <-p.doneCh:
			if conn != nil {
				conn.GetNetConn().Close()
			}
		}
	}()
}

// connect re-establishes one connector slot to the current host until it
// succeeds or the connector generation moves on.
func (p *Dispatcher) connect(id int, gen uint64) {
	defer p.wg.Done()

	interval := p.config.ReconnectIntervalBase
	timer := util.NewTimerWrapper(time.Duration(interval) * time.Millisecond)
	timer.Reset(time.Duration(interval) * time.Millisecond)
	defer timer.Stop()

	for {
		select {
		case <-p.doneCh:
			return

		case <-timer.GetTimeoutCh():
			timer.Fired()
			if p.gen.Load() != gen {
				return
			}
			ep := p.GetCurrentHost()
			conn, err := ConnectTo(&ep, p.config.ConnectTimeout.Duration)
			if err == nil {
				select {
				case p.connCh <- newOutboundConnector(id, gen, conn, p):
				case <-p.doneCh:
					conn.GetNetConn().Close()
				}
				return
			}
			if interval < p.config.ReconnectIntervalMax {
				interval = 2 * interval
			}
			timer.Reset(time.Duration(interval) * time.Millisecond)
		}
	}
}

func (p *Dispatcher) closeConnectors() {
	for i, c := range p.connectors {
		if c != nil {
			p.connectors[i] = nil
			p.numActive.Dec()
			c.Shutdown()
		}
	}
}

func (p *Dispatcher) onFrame(connId int, payload []byte) {
	cm, err := proto.PeekCommonMad(payload)
	if err != nil {
		glog.Warningf("dispatcher %s: connector %d: bad MAD: %v", p.Name(), connId, err)
		return
	}
	if cm.Method().IsUnsolicited() {
		p.onNotice(payload)
		return
	}

	tid := cm.TransactionId()
	pending, found := p.tracker.OnResponseReceived(tid)
	if !found {
		if glog.V(2) {
			glog.Infof("dispatcher %s: no pending request for tid=%#x method=%s", p.Name(), tid, cm.Method())
		}
		return
	}
	p.timeouts.Store(0)
	latency := time.Since(pending.timeSent)
	p.stats.record(latency)

	if status := cm.Status(); status != proto.MadStatusSuccess {
		p.stats.errors.Inc()
		otel.RecordCommand(cm.MgmtClass().String(), cm.Method().String(), otel.StatusError, latency)
		pending.reqCtx.ReplyError(errors.NewMadStatusError(status, proto.MadStatusText(status)))
		return
	}
	otel.RecordCommand(cm.MgmtClass().String(), cm.Method().String(), otel.StatusSuccess, latency)
	pending.reqCtx.Reply(payload)
}

func (p *Dispatcher) onNotice(payload []byte) {
	mad, err := proto.DecodeMadPacket(payload, proto.LayoutSa)
	if err != nil {
		glog.Warningf("dispatcher %s: bad notice: %v", p.Name(), err)
		return
	}
	notice, err := proto.DecodeNotice(mad.DataBytes())
	if err != nil {
		glog.Warningf("dispatcher %s: bad notice: %v", p.Name(), err)
		return
	}
	otel.RecordNotice(p.Name(), notice.TrapNumber)
	if h := p.getNoticeHandler(); h != nil {
		h.OnNotice(p.Name(), notice)
	} else {
		glog.Infof("dispatcher %s: %s", p.Name(), notice)
	}
}
