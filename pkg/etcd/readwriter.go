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
	"fmt"
	goio "io"

	"github.com/golang/glog"

	"fmclient/pkg/io"
)

type IKVWriter interface {
	PutValue(key string, value string) (err error)
	DeleteKeyWithPrefix(key string, isPrefix bool) (err error)
}

type SubnetReader struct {
	etcdcli *EtcdClient
}

// Read returns the valid subnet descriptions under the scope and the
// revision they were read at. Invalid entries are logged and skipped.
func (r *SubnetReader) Read() (descs []io.SubnetDescription, rev int64, err error) {
	resp, err := r.etcdcli.getWithPrefix(TagSubnetPrefix + TagCompDelimiter)
	if err != nil {
		return
	}
	rev = resp.Header.GetRevision()
	for _, kv := range resp.Kvs {
		desc, derr := DecodeSubnet(string(kv.Key), kv.Value)
		if derr != nil {
			glog.Warningf("etcd: skip %s%s: %v", r.etcdcli.keyPrefix, kv.Key, derr)
			continue
		}
		descs = append(descs, desc)
	}
	return
}

type SubnetWriter struct {
	kvwriter IKVWriter
}

func (w *SubnetWriter) Write(desc io.SubnetDescription) error {
	if err := desc.Validate(); err != nil {
		return err
	}
	val, err := EncodeSubnet(desc)
	if err != nil {
		return err
	}
	return w.kvwriter.PutValue(KeySubnet(desc.Name), val)
}

func (w *SubnetWriter) Remove(name string) error {
	return w.kvwriter.DeleteKeyWithPrefix(KeySubnet(name), false)
}

type EtcdReadWriter struct {
	SubnetReader
	SubnetWriter
}

func NewEtcdReadWriter(cli *EtcdClient) *EtcdReadWriter {
	return &EtcdReadWriter{
		SubnetReader: SubnetReader{etcdcli: cli},
		SubnetWriter: SubnetWriter{kvwriter: cli},
	}
}

// StdoutWriter prints the writes it is given instead of applying them.
type StdoutWriter struct {
	keyPrefix string
	out       goio.Writer
}

func NewStdoutWriter(keyPrefix string, out goio.Writer) *StdoutWriter {
	return &StdoutWriter{keyPrefix: keyPrefix, out: out}
}

func (w *StdoutWriter) PutValue(key string, value string) (err error) {
	_, err = fmt.Fprintf(w.out, "put %s%s\n%s", w.keyPrefix, key, value)
	return
}

func (w *StdoutWriter) DeleteKeyWithPrefix(key string, isPrefix bool) (err error) {
	_, err = fmt.Fprintf(w.out, "delete %s%s prefix=%t\n", w.keyPrefix, key, isPrefix)
	return
}

// NewDryRunWriter writes subnet descriptions to out in the form they would
// take under scope.
func NewDryRunWriter(cfg *Config, scope string, out goio.Writer) *SubnetWriter {
	prefix := cfg.EtcdKeyPrefix
	if len(prefix) == 0 {
		prefix = defaultConfig.EtcdKeyPrefix
	}
	return &SubnetWriter{kvwriter: NewStdoutWriter(prefix+scope+TagCompDelimiter, out)}
}
