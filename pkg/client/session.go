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
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/puzpuzpuz/xsync/v3"
	uuid "github.com/satori/go.uuid"
	"go.uber.org/atomic"

	"fmclient/pkg/errors"
	"fmclient/pkg/failure"
	"fmclient/pkg/io"
)

// Dispatcher is the part of io.Dispatcher a Session uses.
type Dispatcher interface {
	Name() string
	QueueCmd(req io.IRequestContext) error
	OnRequestTimeout(tid uint64) bool
	ReleaseOwner(owner string) int
}

var _ Dispatcher = (*io.Dispatcher)(nil)

// Session groups the statements one user opened against a subnet.
type Session struct {
	id             string
	dispatcher     Dispatcher
	recovery       *failure.RecoveryManager
	defaultTimeout time.Duration
	statements     *xsync.MapOf[string, *Statement]
	closed         atomic.Bool

	helperMu sync.Mutex
	sa       *SAHelper
	pa       *PAHelper
}

func NewSession(d Dispatcher, recovery *failure.RecoveryManager, defaultTimeout time.Duration) *Session {
	if defaultTimeout <= 0 {
		defaultTimeout = DefaultConfig.StatementTimeout.Duration
	}
	return &Session{
		id:             uuid.NewV4().String(),
		dispatcher:     d,
		recovery:       recovery,
		defaultTimeout: defaultTimeout,
		statements:     xsync.NewMapOf[string, *Statement](),
	}
}

func (s *Session) GetId() string {
	return s.id
}

func (s *Session) GetSubnet() string {
	return s.dispatcher.Name()
}

func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

func (s *Session) NumStatements() int {
	return s.statements.Size()
}

func (s *Session) CreateStatement() (*Statement, error) {
	return s.CreateStatementWithTimeout(s.defaultTimeout)
}

func (s *Session) CreateStatementWithTimeout(timeout time.Duration) (*Statement, error) {
	if s.closed.Load() {
		return nil, errors.ErrClosed
	}
	if timeout <= 0 {
		timeout = s.defaultTimeout
	}
	st := newStatement(s, timeout)
	s.statements.Store(st.id, st)
	return st, nil
}

// Close closes every open statement and fails the session's requests still
// in flight with ErrClosed.
func (s *Session) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	var open []*Statement
	s.statements.Range(func(_ string, st *Statement) bool {
		open = append(open, st)
		return true
	})
	for _, st := range open {
		if err := st.Close(); err != nil {
			glog.Warningf("session %s: close statement %s: %v", s.id, st.id, err)
		}
	}
	n := s.dispatcher.ReleaseOwner(s.id)
	glog.Infof("session %s on %s closed, %d statement(s), %d request(s) released",
		s.id, s.GetSubnet(), len(open), n)
	return nil
}

func (s *Session) removeStatement(id string) {
	s.statements.Delete(id)
}

// onStatementTimeout tells the dispatcher a request went unanswered and
// reports whether another attempt makes sense.
func (s *Session) onStatementTimeout(tid uint64) bool {
	if s.closed.Load() {
		return false
	}
	return s.dispatcher.OnRequestTimeout(tid)
}

func (s *Session) taskId(cmd ICommand) string {
	if mc, ok := cmd.(*MadCommand); ok {
		return fmt.Sprintf("%s/%s.%s(%#04x)", s.GetSubnet(), mc.class, mc.method, mc.attrId)
	}
	return fmt.Sprintf("%s/%T", s.GetSubnet(), cmd)
}

// GetSAHelper returns the session's SA helper, creating it on first use.
func (s *Session) GetSAHelper() (*SAHelper, error) {
	s.helperMu.Lock()
	defer s.helperMu.Unlock()
	if s.sa == nil || s.sa.st.IsClosed() {
		st, err := s.CreateStatement()
		if err != nil {
			return nil, err
		}
		s.sa = &SAHelper{st: st}
	}
	return s.sa, nil
}

// GetPAHelper returns the session's PA helper, creating it on first use.
func (s *Session) GetPAHelper() (*PAHelper, error) {
	s.helperMu.Lock()
	defer s.helperMu.Unlock()
	if s.pa == nil || s.pa.st.IsClosed() {
		st, err := s.CreateStatement()
		if err != nil {
			return nil, err
		}
		s.pa = &PAHelper{st: st}
	}
	return s.pa, nil
}
