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
	"sync"

	"github.com/golang/glog"

	"fmclient/pkg/initmgr"
)

var (
	Initializer initmgr.IInitializer = initmgr.NewInitializer(Initialize, Finalize)
)

var (
	gRwCtxMtx  sync.RWMutex
	gCliTlsCtx tlsContextI
)

/*
Initialize sets up the client TLS context. It is done once per process.

	arg 0: *Config
	arg 1: ICertAssistant (optional, PEM files named by the config otherwise)
*/
func Initialize(args ...interface{}) (err error) {
	var cfg *Config
	var assistant ICertAssistant = &localFileProtectedT{}
	var ok bool

	if len(args) < 1 {
		err = fmt.Errorf("*Config argument required")
		return
	}
	if cfg, ok = args[0].(*Config); !ok {
		err = fmt.Errorf("*Config argument expected")
		return
	}
	if len(args) > 1 && args[1] != nil {
		if assistant, ok = args[1].(ICertAssistant); !ok {
			err = fmt.Errorf("ICertAssistant argument expected")
			return
		}
	}

	gRwCtxMtx.Lock()
	defer gRwCtxMtx.Unlock()
	if gCliTlsCtx != nil {
		return fmt.Errorf("sec config had been initialized before")
	}
	if gCliTlsCtx, err = newClientContext(cfg, assistant); err != nil {
		glog.Errorln(err)
		return
	}
	glog.Infof("%s: client TLS context ready", cfg.AppName)
	return
}

func newClientContext(cfg *Config, assistant ICertAssistant) (ctx tlsContextI, err error) {
	cfg.SetDefaultIfNotDefined()
	if err = cfg.Validate(); err != nil {
		return
	}
	var certPEMBlock, keyPEMBlock, caPEMBlock []byte
	if certPEMBlock, keyPEMBlock, err = assistant.GetCertAndKeyPemBlock(cfg); err != nil {
		return
	}
	if caPEMBlock, err = assistant.GetCAPemBlock(cfg); err != nil {
		return
	}
	return newGoTlsContext(cfg, certPEMBlock, keyPEMBlock, caPEMBlock)
}

func Finalize() {
	gRwCtxMtx.Lock()
	gCliTlsCtx = nil
	gRwCtxMtx.Unlock()
}
