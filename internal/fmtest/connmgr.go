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

package fmtest

import (
	"sync"
	"time"

	"github.com/golang/glog"
)

type connManager struct {
	mtx         sync.Mutex
	activeConns map[*fakeConn]struct{}
	wg          sync.WaitGroup
}

func (m *connManager) track(c *fakeConn, add bool) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if m.activeConns == nil {
		m.activeConns = make(map[*fakeConn]struct{})
	}

	if add {
		m.activeConns[c] = struct{}{}
		m.wg.Add(1)
		if glog.V(3) {
			glog.Infof("fake SM: add active conns: %d", len(m.activeConns))
		}
	} else {
		delete(m.activeConns, c)
		m.wg.Done()
		if glog.V(3) {
			glog.Infof("fake SM: remove active conns: %d", len(m.activeConns))
		}
	}
}

func (m *connManager) closeAll() {
	m.mtx.Lock()
	for c := range m.activeConns {
		c.conn.Close()
	}
	m.mtx.Unlock()
}

func (m *connManager) forEach(f func(c *fakeConn) error) error {
	m.mtx.Lock()
	conns := make([]*fakeConn, 0, len(m.activeConns))
	for c := range m.activeConns {
		conns = append(conns, c)
	}
	m.mtx.Unlock()

	for _, c := range conns {
		if err := f(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *connManager) waitForShutdown(timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
	}
}

func (m *connManager) numActive() int {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	return len(m.activeConns)
}
