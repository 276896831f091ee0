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
	"time"

	"github.com/golang/glog"

	"fmclient/pkg/failure"
	"fmclient/pkg/io"
	"fmclient/pkg/sec"
	"fmclient/pkg/util"
)

// Config is the [Adapter] table of the client settings.
type Config struct {
	StatementTimeout util.Duration
	// Timeout of the dispatcher TestConnection creates.
	TestConnectionTimeout util.Duration
	FailoverTimeout       util.Duration
	NetworkDebug          bool

	Outbound io.OutboundConfig
	Failure  failure.Config
	Sec      sec.Config
}

var DefaultConfig = Config{
	StatementTimeout:      util.NewDuration(5 * time.Second),
	TestConnectionTimeout: util.NewDuration(3 * time.Second),
	Outbound:              io.DefaultOutboundConfig,
	Failure:               failure.DefaultConfig,
	Sec:                   sec.DefaultConfig,
}

func (c *Config) SetDefaultIfNotDefined() {
	if c.StatementTimeout.Duration <= 0 {
		c.StatementTimeout = DefaultConfig.StatementTimeout
	}
	if c.TestConnectionTimeout.Duration <= 0 {
		c.TestConnectionTimeout = DefaultConfig.TestConnectionTimeout
	}
	if c.FailoverTimeout.Duration > 0 {
		c.Outbound.FailoverTimeout = c.FailoverTimeout
	}
	if c.NetworkDebug {
		c.Outbound.NetworkDebug = true
	}
	c.Outbound.SetDefaultIfNotDefined()
	c.Failure.SetDefaultIfNotDefined()
	c.Sec.SetDefaultIfNotDefined()
}

func (c *Config) validate() error {
	if c.StatementTimeout.Duration <= 0 {
		return fmt.Errorf("Config.StatementTimeout must be positive")
	}
	if c.Failure.Tolerance <= 0 {
		return fmt.Errorf("Config.Failure.Tolerance must be positive")
	}
	return nil
}

func (c *Config) Dump() {
	glog.Infof("StatementTimeout : %s", c.StatementTimeout.Duration)
	glog.Infof("FailoverTimeout : %s", c.Outbound.FailoverTimeout.Duration)
	glog.Infof("NumInitialConnections : %d", c.Outbound.NumInitialConnections)
	glog.Infof("NetworkDebug : %t", c.Outbound.NetworkDebug)
	glog.Infof("Failure : tolerance=%d window=%s retry=%s", c.Failure.Tolerance,
		c.Failure.MemoryWindow.Duration, c.Failure.RetryInterval.Duration)
}
