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

package failure

import (
	"crypto/tls"
	"crypto/x509"
	goerrors "errors"
	"io"
	"net"
	"sync"
	"syscall"

	"fmclient/pkg/errors"
	"fmclient/pkg/proto"
)

type Classification int

const (
	Ignore Classification = iota
	Recoverable
	Unrecoverable
)

func (c Classification) String() string {
	switch c {
	case Recoverable:
		return "recoverable"
	case Unrecoverable:
		return "unrecoverable"
	}
	return "ignore"
}

// ErrorMatcher reports whether err, or anything it wraps, belongs to a
// registered failure kind.
type ErrorMatcher func(err error) bool

// Is matches errors for which errors.Is(err, target) holds.
func Is(target error) ErrorMatcher {
	return func(err error) bool {
		return goerrors.Is(err, target)
	}
}

// IsType matches errors with an error of type T in their chain.
func IsType[T error]() ErrorMatcher {
	return func(err error) bool {
		var t T
		return goerrors.As(err, &t)
	}
}

// Func adapts an arbitrary predicate.
func Func(pred func(error) bool) ErrorMatcher {
	return ErrorMatcher(pred)
}

// FailureEvaluator classifies errors against two registered sets.
// Unrecoverable matchers are consulted first.
type FailureEvaluator struct {
	mu            sync.RWMutex
	recoverable   []ErrorMatcher
	unrecoverable []ErrorMatcher
}

func NewFailureEvaluator() *FailureEvaluator {
	return &FailureEvaluator{}
}

func (e *FailureEvaluator) AddRecoverable(m ...ErrorMatcher) *FailureEvaluator {
	e.mu.Lock()
	e.recoverable = append(e.recoverable, m...)
	e.mu.Unlock()
	return e
}

func (e *FailureEvaluator) AddUnrecoverable(m ...ErrorMatcher) *FailureEvaluator {
	e.mu.Lock()
	e.unrecoverable = append(e.unrecoverable, m...)
	e.mu.Unlock()
	return e
}

func (e *FailureEvaluator) Classify(err error) Classification {
	if err == nil {
		return Ignore
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, m := range e.unrecoverable {
		if m(err) {
			return Unrecoverable
		}
	}
	for _, m := range e.recoverable {
		if m(err) {
			return Recoverable
		}
	}
	return Ignore
}

func isMadBusy(err error) bool {
	var st *errors.MadStatusError
	if goerrors.As(err, &st) {
		return st.Status == proto.MadStatusBusy || st.Status == proto.MadStatusSaNoResources
	}
	return false
}

// DefaultFailureEvaluator treats closed or shut down targets and TLS trust
// failures as fatal, and transport and timeout conditions as retryable.
func DefaultFailureEvaluator() *FailureEvaluator {
	return NewFailureEvaluator().
		AddUnrecoverable(
			Is(errors.ErrClosed),
			Is(errors.ErrShutdown),
			Is(errors.ErrFailoverCancelled),
			Is(net.ErrClosed),
			IsType[x509.UnknownAuthorityError](),
			IsType[x509.CertificateInvalidError](),
			IsType[x509.HostnameError](),
			IsType[*tls.CertificateVerificationError](),
			IsType[tls.RecordHeaderError](),
		).
		AddRecoverable(
			Is(errors.ErrTimeout),
			Is(errors.ErrNoConnection),
			Is(errors.ErrBusy),
			Is(errors.ErrFailoverFailed),
			Is(io.EOF),
			Is(io.ErrUnexpectedEOF),
			Is(syscall.ECONNREFUSED),
			Is(syscall.ECONNRESET),
			Is(syscall.EPIPE),
			IsType[net.Error](),
			Func(isMadBusy),
		)
}
