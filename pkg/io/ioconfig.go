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
	"time"

	"fmclient/pkg/proto"
	"fmclient/pkg/util"
)

var (
	DefaultOutboundConfig = OutboundConfig{
		ConnectTimeout:                 util.NewDuration(1 * time.Second),
		FailoverTimeout:                util.NewDuration(30 * time.Second),
		GracefulShutdownTime:           util.NewDuration(200 * time.Millisecond),
		SweepInterval:                  util.NewDuration(100 * time.Millisecond),
		ReqChanBufSize:                 1024,
		NumInitialConnections:          1,
		ReconnectIntervalBase:          100,   // 100ms
		ReconnectIntervalMax:           20000, // 20 seconds
		MaxPayloadSize:                 proto.MaxMadSize,
		ConsecutiveTimeoutsForFailover: 3,
	}
)

type (
	// OutboundConfig controls the connections a Dispatcher keeps to the
	// Subnet Manager of one subnet.
	OutboundConfig struct {
		ConnectTimeout       util.Duration
		FailoverTimeout      util.Duration
		GracefulShutdownTime util.Duration
		// Interval of the sweep failing expired in-flight requests.
		SweepInterval         util.Duration
		ReqChanBufSize        int
		NumInitialConnections int
		ReconnectIntervalBase int
		ReconnectIntervalMax  int
		MaxPayloadSize        uint32
		// Hex dump every packet sent and received.
		NetworkDebug bool
		// Statement timeouts in a row, with no reply in between, that make a
		// live connection fail over. Zero or less uses the default.
		ConsecutiveTimeoutsForFailover int
	}
)

func (conf *OutboundConfig) SetDefaultIfNotDefined() (set bool) {
	if conf.ConnectTimeout.Duration == 0 {
		set = true
		conf.ConnectTimeout = DefaultOutboundConfig.ConnectTimeout
	}
	if conf.FailoverTimeout.Duration == 0 {
		set = true
		conf.FailoverTimeout = DefaultOutboundConfig.FailoverTimeout
	}
	if conf.GracefulShutdownTime.Duration == 0 {
		set = true
		conf.GracefulShutdownTime = DefaultOutboundConfig.GracefulShutdownTime
	}
	if conf.SweepInterval.Duration == 0 {
		set = true
		conf.SweepInterval = DefaultOutboundConfig.SweepInterval
	}
	if conf.ReqChanBufSize == 0 {
		set = true
		conf.ReqChanBufSize = DefaultOutboundConfig.ReqChanBufSize
	}
	if conf.NumInitialConnections <= 0 {
		set = true
		conf.NumInitialConnections = DefaultOutboundConfig.NumInitialConnections
	}
	if conf.ReconnectIntervalBase == 0 {
		set = true
		conf.ReconnectIntervalBase = DefaultOutboundConfig.ReconnectIntervalBase
	}
	if conf.ReconnectIntervalMax == 0 {
		set = true
		conf.ReconnectIntervalMax = DefaultOutboundConfig.ReconnectIntervalMax
	}
	if conf.ReconnectIntervalMax < conf.ReconnectIntervalBase {
		set = true
		conf.ReconnectIntervalMax = conf.ReconnectIntervalBase
	}
	if conf.MaxPayloadSize == 0 {
		set = true
		conf.MaxPayloadSize = DefaultOutboundConfig.MaxPayloadSize
	}
	if conf.ConsecutiveTimeoutsForFailover <= 0 {
		set = true
		conf.ConsecutiveTimeoutsForFailover = DefaultOutboundConfig.ConsecutiveTimeoutsForFailover
	}
	return
}
