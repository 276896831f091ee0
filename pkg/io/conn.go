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
	"net"
	"time"

	"github.com/golang/glog"

	"fmclient/pkg/logging/otel"
	"fmclient/pkg/sec"
)

type Conn interface {
	GetStateString() string
	GetNetConn() net.Conn
	IsTLS() bool
}

type Connection struct {
	conn net.Conn
}

func (c *Connection) GetStateString() string {
	return ""
}

func (c *Connection) GetNetConn() net.Conn {
	return c.conn
}

func (c *Connection) IsTLS() bool {
	return false
}

// ConnectTo dials the endpoint, over TLS when it is SSL enabled.
func ConnectTo(endpoint *ServiceEndpoint, connectTimeout time.Duration) (conn Conn, err error) {
	timeStart := time.Now()
	if endpoint.SSLEnabled {
		var sslconn sec.Conn

		if sslconn, err = sec.Dial(endpoint.Addr, connectTimeout); err == nil {
			conn = sslconn
			if glog.V(2) {
				glog.InfoDepth(1, "connected to ", endpoint.GetConnString(), " ssl=", sslconn.GetStateString())
			}
		} else {
			glog.ErrorDepth(1, "fail to connect ", endpoint.GetConnString(), " error: ", err)
		}
	} else {
		var connection Connection
		if connection.conn, err = net.DialTimeout("tcp", endpoint.Addr, connectTimeout); err == nil {
			conn = &connection
			if glog.V(2) {
				glog.InfoDepth(1, "connected to ", endpoint.GetConnString())
			}
		} else {
			glog.ErrorDepth(1, "fail to connect ", endpoint.GetConnString(), " error: ", err)
		}
	}

	status := otel.StatusSuccess
	if err != nil {
		status = otel.StatusError
	}
	otel.RecordConnect(endpoint.GetConnString(), status, time.Since(timeStart))
	return
}
