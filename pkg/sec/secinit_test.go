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
	"crypto/tls"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memAssistant struct {
	ca []byte
}

func (m *memAssistant) GetCertAndKeyPemBlock(cfg *Config) ([]byte, []byte, error) {
	return nil, nil, nil
}

func (m *memAssistant) GetCAPemBlock(cfg *Config) ([]byte, error) {
	return m.ca, nil
}

func startTlsEcho(t *testing.T, pki *testPki) string {
	cert, err := tls.X509KeyPair(pki.certPem, pki.keyPem)
	require.NoError(t, err)
	ln, err := tls.Listen("tcp", "127.0.0.1:0", &tls.Config{Certificates: []tls.Certificate{cert}})
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer c.Close()
				io.Copy(c, c)
			}()
		}
	}()
	return ln.Addr().String()
}

func TestInitializeArgs(t *testing.T) {
	assert.Error(t, Initialize())
	assert.Error(t, Initialize("config"))
	assert.Error(t, Initialize(&Config{}, "assistant"))
}

func TestDialWithAssistant(t *testing.T) {
	defer Finalize()
	pki := newTestPki(t)
	addr := startTlsEcho(t, pki)

	_, err := Dial(addr, time.Second)
	assert.Error(t, err)
	assert.False(t, IsInitialized())

	require.NoError(t, Initialize(&Config{ServerName: "localhost"}, &memAssistant{ca: pki.certPem}))
	assert.True(t, IsInitialized())
	assert.Error(t, Initialize(&Config{}))

	conn, err := Dial(addr, time.Second)
	require.NoError(t, err)
	defer conn.GetNetConn().Close()
	require.NoError(t, conn.Handshake())
	assert.True(t, conn.IsTLS())
	assert.Contains(t, []string{"TLSv1.2", "TLSv1.3"}, conn.GetTLSVersion())
	assert.Contains(t, conn.GetStateString(), "GoTLS:")

	_, err = conn.GetNetConn().Write([]byte("ping"))
	require.NoError(t, err)
	buf := make([]byte, 4)
	_, err = io.ReadFull(conn.GetNetConn(), buf)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(buf))
}

func TestDialUntrusted(t *testing.T) {
	defer Finalize()
	pki := newTestPki(t)
	addr := startTlsEcho(t, pki)

	require.NoError(t, Initialize(&Config{ServerName: "localhost"}, &memAssistant{}))
	_, err := Dial(addr, time.Second)
	assert.Error(t, err)
}
