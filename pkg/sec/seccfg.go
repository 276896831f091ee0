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

package sec

import (
	"fmt"

	"github.com/golang/glog"
)

var (
	DefaultConfig = Config{
		AppName: "fmclient",
	}
)

// Config names the PEM files used for connections to the Subnet Manager.
type Config struct {
	AppName string
	// Present CertPemFilePath/KeyPemFilePath to the server.
	ClientAuth         bool
	CertPemFilePath    string
	KeyPemFilePath     string
	CAFilePath         string
	ServerName         string
	InsecureSkipVerify bool
}

func (c *Config) SetDefaultIfNotDefined() {
	if len(c.AppName) == 0 {
		c.AppName = DefaultConfig.AppName
	}
}

func (c *Config) Validate() error {
	if c.ClientAuth && (len(c.CertPemFilePath) == 0 || len(c.KeyPemFilePath) == 0) {
		return fmt.Errorf("client auth requires CertPemFilePath and KeyPemFilePath")
	}
	if len(c.CAFilePath) == 0 && !c.InsecureSkipVerify {
		glog.Infof("%s: no CAFilePath, using system roots only", c.AppName)
	}
	return nil
}

func (c *Config) Dump() {
	glog.Infof("AppName : %s", c.AppName)
	glog.Infof("ClientAuth : %t", c.ClientAuth)
	glog.Infof("CertPemFilePath : %s", c.CertPemFilePath)
	glog.Infof("KeyPemFilePath : %s", c.KeyPemFilePath)
	glog.Infof("CAFilePath : %s", c.CAFilePath)
	glog.Infof("InsecureSkipVerify : %t", c.InsecureSkipVerify)
}
