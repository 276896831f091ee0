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

/*
Package util implements some utility functions.
*/
package util

import (
	"os"
	"strconv"
	"time"

	"github.com/spaolacci/murmur3"
)

// Duration reads TOML strings such as "500ms" or "2s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d Duration) MarshalText() (text []byte, err error) {
	text = []byte(d.Duration.String())
	return
}

func NewDuration(d time.Duration) Duration {
	return Duration{Duration: d}
}

func Murmur3Hash(data []byte) uint32 {
	return murmur3.Sum32(data)
}

// ProcessSeed hashes the host name, pid and start time into 32 bits.
func ProcessSeed(now time.Time) uint32 {
	host, _ := os.Hostname()
	b := make([]byte, 0, len(host)+32)
	b = append(b, host...)
	b = strconv.AppendInt(b, int64(os.Getpid()), 10)
	b = strconv.AppendInt(b, now.UnixNano(), 10)
	return Murmur3Hash(b)
}
