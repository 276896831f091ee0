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
	"os"

	"github.com/golang/glog"
)

// ICertAssistant supplies the PEM material a client TLS context is built
// from. Applications that keep certificates outside of plain files register
// their own.
type ICertAssistant interface {
	GetCertAndKeyPemBlock(cfg *Config) (certPEMBlock []byte, keyPEMBlock []byte, err error)
	GetCAPemBlock(cfg *Config) ([]byte, error)
}

type localFileProtectedT struct{}

var _ ICertAssistant = (*localFileProtectedT)(nil)

func (p *localFileProtectedT) GetCertAndKeyPemBlock(cfg *Config) (certPEMBlock []byte, keyPEMBlock []byte, err error) {
	if !cfg.ClientAuth {
		return
	}
	if certPEMBlock, err = os.ReadFile(cfg.CertPemFilePath); err != nil {
		return
	}
	keyPEMBlock, err = os.ReadFile(cfg.KeyPemFilePath)
	return
}

func (p *localFileProtectedT) GetCAPemBlock(cfg *Config) (caPEMBlock []byte, err error) {
	if len(cfg.CAFilePath) == 0 {
		return
	}
	if _, err = os.Stat(cfg.CAFilePath); err != nil {
		glog.Infof("os.Stat(cfg.CAFilePath) returns %v for filePath: %v", err, cfg.CAFilePath)
		return
	}
	return os.ReadFile(cfg.CAFilePath)
}
