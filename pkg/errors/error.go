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

// Package errors defines the errno-coded errors shared by the codec,
// the dispatcher and the client.
package errors

import (
	"fmt"
)

const (
	KErrNoConnection uint32 = iota + 1
	KErrBusy
	KErrTimeout
	KErrClosed
	KErrShutdown
	KErrNotBuilt
	KErrMixedByteOrder
	KErrShortBuffer
	KErrFailoverCancelled
	KErrFailoverFailed
	KErrNoHost
	KErrUnexpectedResponse
	KErrMadStatus
)

var (
	ErrNoConnection       = &Error{what: "no connection", errno: KErrNoConnection}
	ErrBusy               = &Error{what: "busy", errno: KErrBusy}
	ErrTimeout            = &Error{what: "request timed out", errno: KErrTimeout}
	ErrClosed             = &Error{what: "closed", errno: KErrClosed}
	ErrShutdown           = &Error{what: "dispatcher shut down", errno: KErrShutdown}
	ErrNotBuilt           = &Error{what: "datagram has no buffer", errno: KErrNotBuilt}
	ErrMixedByteOrder     = &Error{what: "inconsistent byte order", errno: KErrMixedByteOrder}
	ErrShortBuffer        = &Error{what: "buffer too short", errno: KErrShortBuffer}
	ErrFailoverCancelled  = &Error{what: "failover cancelled", errno: KErrFailoverCancelled}
	ErrFailoverFailed     = &Error{what: "failover failed", errno: KErrFailoverFailed}
	ErrNoHost             = &Error{what: "no host configured", errno: KErrNoHost}
	ErrUnexpectedResponse = &Error{what: "unexpected response", errno: KErrUnexpectedResponse}
)

type Error struct {
	what  string
	errno uint32
}

func NewError(what string, errno uint32) *Error {
	return &Error{what: what, errno: errno}
}

func (e *Error) Error() string {
	return fmt.Sprintf("error: %s (%d) ", e.what, e.errno)
}

func (e *Error) ErrNo() uint32 {
	return e.errno
}

// Is matches any *Error carrying the same errno.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return t.errno == e.errno
	}
	return false
}

// MadStatusError is returned when a reply carries a non-success MAD status.
type MadStatusError struct {
	Status uint16
	Text   string
}

func NewMadStatusError(status uint16, text string) *MadStatusError {
	return &MadStatusError{Status: status, Text: text}
}

func (e *MadStatusError) Error() string {
	if e.Text != "" {
		return fmt.Sprintf("error: mad status 0x%04x %s (%d) ", e.Status, e.Text, KErrMadStatus)
	}
	return fmt.Sprintf("error: mad status 0x%04x (%d) ", e.Status, KErrMadStatus)
}

func (e *MadStatusError) ErrNo() uint32 {
	return KErrMadStatus
}
