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

package etcd

import (
	"sync"

	"github.com/golang/glog"
)

var (
	cli     *EtcdClient
	rw      *EtcdReadWriter
	connErr error
	once    sync.Once
)

// Connect sets up the process wide client of scope. Later calls return
// the result of the first.
func Connect(cfg *Config, scope string) error {
	once.Do(func() {
		glog.Infof("Setting up etcd.")
		cli, connErr = NewEtcdClient(cfg, scope)
		if connErr == nil {
			rw = NewEtcdReadWriter(cli)
		}
	})
	return connErr
}

func Close() {
	if cli != nil {
		glog.Infof("Closing etcd.")
		cli.Close()
	}
}

func GetClsReadWriter() *EtcdReadWriter {
	return rw
}

func GetEtcdCli() *EtcdClient {
	return cli
}
