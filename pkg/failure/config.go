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
	"time"

	"fmclient/pkg/util"
)

type Config struct {
	// Tolerance is the number of recoverable failures of one task id that
	// escalates to fatal.
	Tolerance      int
	MemoryWindow   util.Duration
	RetryInterval  util.Duration
	CleanupTimeout util.Duration
}

var DefaultConfig = Config{
	Tolerance:      3,
	MemoryWindow:   util.NewDuration(10 * time.Second),
	RetryInterval:  util.NewDuration(2 * time.Second),
	CleanupTimeout: util.NewDuration(time.Second),
}

func (c *Config) SetDefaultIfNotDefined() {
	if c.Tolerance <= 0 {
		c.Tolerance = DefaultConfig.Tolerance
	}
	if c.MemoryWindow.Duration <= 0 {
		c.MemoryWindow = DefaultConfig.MemoryWindow
	}
	if c.RetryInterval.Duration <= 0 {
		c.RetryInterval = DefaultConfig.RetryInterval
	}
	if c.CleanupTimeout.Duration <= 0 {
		c.CleanupTimeout = DefaultConfig.CleanupTimeout
	}
}
