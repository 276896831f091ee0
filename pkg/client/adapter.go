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
	"fmt"
	"sync"

	"github.com/golang/glog"
	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"fmclient/pkg/cfg"
	"fmclient/pkg/errors"
	"fmclient/pkg/failure"
	"fmclient/pkg/io"
	"fmclient/pkg/proto"
	"fmclient/pkg/sec"
)

type subnetEntry struct {
	dispatcher *io.Dispatcher
	mu         sync.Mutex
	session    *Session
}

// Adapter owns one dispatcher per subnet and the recovery manager shared
// by every session it hands out.
type Adapter struct {
	mu        sync.RWMutex
	conf      Config
	assistant sec.ICertAssistant

	subnets  *xsync.MapOf[string, *subnetEntry]
	group    singleflight.Group
	recovery *failure.RecoveryManager

	tempMu   sync.Mutex
	temp     *io.Dispatcher
	shutdown atomic.Bool
	noticeH  io.INoticeHandler
}

func NewAdapter(conf Config) (*Adapter, error) {
	conf.SetDefaultIfNotDefined()
	if err := conf.validate(); err != nil {
		return nil, err
	}
	rm, err := failure.NewRecoveryManager(conf.Failure, nil)
	if err != nil {
		return nil, err
	}
	return &Adapter{
		conf:     conf,
		subnets:  xsync.NewMapOf[string, *subnetEntry](),
		recovery: rm,
	}, nil
}

// SetCertAssistant overrides where Initialize reads TLS material from.
func (a *Adapter) SetCertAssistant(assistant sec.ICertAssistant) {
	a.mu.Lock()
	a.assistant = assistant
	a.mu.Unlock()
}

// SetNoticeHandler is installed on dispatchers created afterwards.
func (a *Adapter) SetNoticeHandler(h io.INoticeHandler) {
	a.mu.Lock()
	a.noticeH = h
	a.mu.Unlock()
}

// Initialize applies the [Adapter] settings, FailoverTimeout and
// NetworkDebug in particular, and sets up TLS when an [Adapter.Sec] table
// is present.
func (a *Adapter) Initialize(settings *cfg.Config) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if settings != nil {
		if err := settings.WriteSectionTo("Adapter", &a.conf); err != nil {
			return err
		}
		a.conf.Outbound.FailoverTimeout.Duration = settings.GetDuration("Adapter.FailoverTimeout",
			a.conf.Outbound.FailoverTimeout.Duration)
		a.conf.Outbound.NetworkDebug = settings.GetBool("Adapter.NetworkDebug", a.conf.Outbound.NetworkDebug)
		a.conf.SetDefaultIfNotDefined()
		if err := a.conf.validate(); err != nil {
			return err
		}
	}
	if settings != nil && settings.GetValue("Adapter.Sec") != nil && !sec.IsInitialized() {
		if err := sec.Initialize(&a.conf.Sec, a.assistant); err != nil {
			return err
		}
	}
	if glog.V(2) {
		a.conf.Dump()
	}
	return nil
}

func (a *Adapter) GetConfig() Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.conf
}

// GetSession returns the open session of a subnet, starting its
// dispatcher on first use. Concurrent first calls share one start.
func (a *Adapter) GetSession(desc io.SubnetDescription) (*Session, error) {
	if a.shutdown.Load() {
		return nil, errors.ErrShutdown
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	key := desc.Key()
	entry, ok := a.subnets.Load(key)
	if !ok {
		v, err, _ := a.group.Do(key, func() (interface{}, error) {
			if e, found := a.subnets.Load(key); found {
				return e, nil
			}
			e, err := a.startSubnet(context.Background(), desc)
			if err != nil {
				return nil, err
			}
			a.subnets.Store(key, e)
			return e, nil
		})
		if err != nil {
			return nil, err
		}
		entry = v.(*subnetEntry)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.session == nil || entry.session.IsClosed() {
		conf := a.GetConfig()
		entry.session = NewSession(entry.dispatcher, a.recovery, conf.StatementTimeout.Duration)
	}
	return entry.session, nil
}

// Connect starts the dispatchers of several subnets at once.
func (a *Adapter) Connect(ctx context.Context, descs ...io.SubnetDescription) error {
	g, _ := errgroup.WithContext(ctx)
	for i := range descs {
		desc := descs[i]
		g.Go(func() error {
			_, err := a.GetSession(desc)
			return err
		})
	}
	return g.Wait()
}

func (a *Adapter) startSubnet(ctx context.Context, desc io.SubnetDescription) (*subnetEntry, error) {
	conf := a.GetConfig()
	d, err := io.NewDispatcher(desc, &conf.Outbound)
	if err != nil {
		return nil, err
	}
	a.mu.RLock()
	if a.noticeH != nil {
		d.SetNoticeHandler(a.noticeH)
	}
	a.mu.RUnlock()
	if err = d.Start(ctx); err != nil {
		return nil, err
	}
	return &subnetEntry{dispatcher: d}, nil
}

// GetDispatcher returns the dispatcher of a subnet already in use.
func (a *Adapter) GetDispatcher(desc io.SubnetDescription) (*io.Dispatcher, bool) {
	if e, ok := a.subnets.Load(desc.Key()); ok {
		return e.dispatcher, true
	}
	return nil, false
}

// TestConnection reads the SA ClassPortInfo of host over a temporary
// dispatcher.
func (a *Adapter) TestConnection(host io.ServiceEndpoint) (*proto.ClassPortInfo, error) {
	if a.shutdown.Load() {
		return nil, errors.ErrShutdown
	}
	conf := a.GetConfig()
	outbound := conf.Outbound
	outbound.NumInitialConnections = 1
	outbound.FailoverTimeout = conf.TestConnectionTimeout

	desc := io.SubnetDescription{Name: "test:" + host.GetConnString(), Hosts: []io.ServiceEndpoint{host}}
	d, err := io.NewDispatcher(desc, &outbound)
	if err != nil {
		return nil, err
	}

	a.tempMu.Lock()
	if a.temp != nil {
		a.tempMu.Unlock()
		return nil, fmt.Errorf("connection test to %s already running", a.temp.GetCurrentHost())
	}
	a.temp = d
	a.tempMu.Unlock()
	defer func() {
		a.tempMu.Lock()
		if a.temp == d {
			a.temp = nil
		}
		a.tempMu.Unlock()
		d.Shutdown()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), conf.TestConnectionTimeout.Duration)
	defer cancel()
	if err = d.Start(ctx); err != nil {
		return nil, err
	}
	s := NewSession(d, nil, conf.TestConnectionTimeout.Duration)
	defer s.Close()
	h, err := s.GetSAHelper()
	if err != nil {
		return nil, err
	}
	return h.GetClassPortInfo()
}

// RefreshSubnetDescription hands a new host list to the dispatchers of
// the subnet with the same name.
func (a *Adapter) RefreshSubnetDescription(desc io.SubnetDescription) error {
	if err := desc.Validate(); err != nil {
		return err
	}
	found := false
	var err error
	a.subnets.Range(func(_ string, e *subnetEntry) bool {
		if e.dispatcher.Name() == desc.Name {
			found = true
			if rerr := e.dispatcher.RefreshSubnetDescription(desc); rerr != nil {
				err = rerr
				return false
			}
		}
		return true
	})
	if err == nil && !found {
		glog.V(2).Infof("subnet %s not in use, refresh ignored", desc.Name)
	}
	return err
}

func (a *Adapter) GetFailureManager() *failure.RecoveryManager {
	return a.recovery
}

func (a *Adapter) GetFailureEvaluator() *failure.FailureEvaluator {
	return a.recovery.GetEvaluator()
}

// Shutdown stops the temporary dispatcher first, then every subnet
// dispatcher. Individual errors are logged only.
func (a *Adapter) Shutdown() {
	if !a.shutdown.CompareAndSwap(false, true) {
		return
	}
	a.tempMu.Lock()
	if a.temp != nil {
		if err := a.temp.Shutdown(); err != nil {
			glog.Warningf("shutdown of temporary dispatcher: %v", err)
		}
	}
	a.tempMu.Unlock()

	var g errgroup.Group
	a.subnets.Range(func(key string, e *subnetEntry) bool {
		g.Go(func() error {
			e.mu.Lock()
			if e.session != nil {
				e.session.Close()
			}
			e.mu.Unlock()
			if err := e.dispatcher.Shutdown(); err != nil {
				glog.Warningf("shutdown of subnet %s: %v", key, err)
			}
			return nil
		})
		return true
	})
	g.Wait()
	a.subnets.Clear()
	a.recovery.Cleanup()
	glog.Infof("adapter shut down")
}
