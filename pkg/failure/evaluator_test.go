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
	"crypto/x509"
	"io"
	"net"
	"syscall"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"fmclient/pkg/errors"
	"fmclient/pkg/proto"
)

func TestDefaultClassification(t *testing.T) {
	e := DefaultFailureEvaluator()
	tests := []struct {
		name string
		err  error
		want Classification
	}{
		{"nil", nil, Ignore},
		{"unknown", io.ErrShortWrite, Ignore},
		{"closed", errors.ErrClosed, Unrecoverable},
		{"wrapped shutdown", pkgerrors.Wrapf(errors.ErrShutdown, "dispatcher %s", "a"), Unrecoverable},
		{"net closed", &net.OpError{Op: "read", Err: net.ErrClosed}, Unrecoverable},
		{"untrusted cert", x509.UnknownAuthorityError{}, Unrecoverable},
		{"timeout", errors.ErrTimeout, Recoverable},
		{"eof", pkgerrors.Wrap(io.EOF, "read frame"), Recoverable},
		{"refused", &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}, Recoverable},
		{"mad busy", errors.NewMadStatusError(proto.MadStatusBusy, "busy"), Recoverable},
		{"mad invalid", errors.NewMadStatusError(proto.MadStatusBadAttrValue, "invalid"), Ignore},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, e.Classify(tc.err))
		})
	}
}

func TestUnrecoverableDominates(t *testing.T) {
	e := NewFailureEvaluator().
		AddRecoverable(Is(errors.ErrTimeout)).
		AddUnrecoverable(Func(func(err error) bool { return err == errors.ErrTimeout }))
	assert.Equal(t, Unrecoverable, e.Classify(errors.ErrTimeout))
	assert.Equal(t, "unrecoverable", Unrecoverable.String())
}
