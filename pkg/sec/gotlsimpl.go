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
	"crypto/x509"
	"fmt"
	"net"
	"time"
)

type (
	TlsConn struct {
		conn *tls.Conn
	}
	tlsContextT struct {
		config *tls.Config
	}
)

func (c *TlsConn) IsTLS() bool {
	return true
}

func (c *TlsConn) GetStateString() string {
	statStr := "GoTLS:"
	if c.conn != nil {
		stat := c.conn.ConnectionState()
		statStr += ":" + GetVersionName(stat.Version)
		statStr += ":" + GetCipherName(stat.CipherSuite)

		if stat.DidResume {
			statStr += ":ssl_r=1"
		} else {
			statStr += ":ssl_r=0"
		}
	}
	return statStr
}

func (c *TlsConn) GetTLSVersion() string {
	if c.conn != nil {
		return GetVersionName(c.conn.ConnectionState().Version)
	}
	return "none"
}

func GetVersionName(ver uint16) string {
	switch ver {
	case tls.VersionTLS10:
		return "TLSv1"
	case tls.VersionTLS11:
		return "TLSv1.1"
	case tls.VersionTLS12:
		return "TLSv1.2"
	case tls.VersionTLS13:
		return "TLSv1.3"
	default:
		return ""
	}
}

func (c *TlsConn) GetCipherName() string {
	if c.conn != nil {
		return GetCipherName(c.conn.ConnectionState().CipherSuite)
	}
	return "none"
}

func GetCipherName(cipher uint16) string {
	return tls.CipherSuiteName(cipher)
}

func (c *TlsConn) DidResume() string {
	if c.conn != nil && c.conn.ConnectionState().DidResume {
		return "Yes"
	}
	return "No"
}

func (c *TlsConn) Handshake() error {
	if c.conn != nil {
		return c.conn.Handshake()
	}
	return fmt.Errorf("nil tls connection")
}

func (c *TlsConn) GetNetConn() net.Conn {
	return c.conn
}

func newGoTlsContext(cfg *Config, certPEMBlock []byte, keyPEMBlock []byte, caPEMBlock []byte) (ctx tlsContextI, err error) {
	rootCAs, _ := x509.SystemCertPool()
	if rootCAs == nil {
		rootCAs = x509.NewCertPool()
	}
	if len(caPEMBlock) != 0 && !rootCAs.AppendCertsFromPEM(caPEMBlock) {
		err = fmt.Errorf("fail to append certificate to the rootCA")
		return
	}

	tlscfg := &tls.Config{
		RootCAs:            rootCAs,
		ServerName:         cfg.ServerName,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
		ClientSessionCache: tls.NewLRUClientSessionCache(0),
		MinVersion:         tls.VersionTLS12,
	}
	if cfg.ClientAuth {
		var cert tls.Certificate
		if cert, err = tls.X509KeyPair(certPEMBlock, keyPEMBlock); err != nil {
			return
		}
		tlscfg.Certificates = []tls.Certificate{cert}
	}
	ctx = &tlsContextT{config: tlscfg}
	return
}

func (ctx *tlsContextT) dial(target string, timeout time.Duration) (conn Conn, err error) {
	if ctx.config == nil {
		err = fmt.Errorf("nil config")
		return
	}
	dialer := &net.Dialer{Timeout: timeout}
	var tlsconn *tls.Conn

	tlsconn, err = tls.DialWithDialer(dialer, "tcp", target, ctx.config)
	if err == nil {
		conn = &TlsConn{conn: tlsconn}
	}
	return
}
