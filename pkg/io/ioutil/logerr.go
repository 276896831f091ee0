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

package ioutil

import (
	goerrors "errors"
	"io"
	"net"
	"syscall"

	"github.com/golang/glog"
)

// LogError logs connection errors, keeping peer disconnects and local
// closes at debug level.
func LogError(err error) {
	if err == nil {
		return
	}

	if nerr, ok := err.(net.Error); ok && nerr.Timeout() {
		glog.WarningDepth(1, err)
		return
	}

	if IsDisconnect(err) {
		if glog.V(2) {
			glog.InfoDepth(1, err)
		}
		return
	}
	glog.WarningDepth(1, err)
}

func IsDisconnect(err error) bool {
	return goerrors.Is(err, io.EOF) ||
		goerrors.Is(err, io.ErrUnexpectedEOF) ||
		goerrors.Is(err, net.ErrClosed) ||
		goerrors.Is(err, syscall.ECONNRESET) ||
		goerrors.Is(err, syscall.EPIPE)
}
