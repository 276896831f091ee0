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
	"bytes"
	"fmt"

	"github.com/BurntSushi/toml"

	"fmclient/pkg/io"
)

// subnetRecord is the TOML value stored under KeySubnet(name):
//
//	Hosts = ["10.1.0.1:3245", "ssl:10.1.0.2:3245"]
type subnetRecord struct {
	Name  string   `toml:",omitempty"`
	Hosts []string
}

// DecodeSubnet parses the value stored under key. The name recorded in the
// value, if any, must match the one in the key.
func DecodeSubnet(key string, value []byte) (desc io.SubnetDescription, err error) {
	name, ok := SubnetNameOf(key)
	if !ok {
		err = fmt.Errorf("'%s' is not a subnet key", key)
		return
	}
	var rec subnetRecord
	if _, err = toml.Decode(string(value), &rec); err != nil {
		err = fmt.Errorf("subnet %s: %w", name, err)
		return
	}
	if len(rec.Name) != 0 && rec.Name != name {
		err = fmt.Errorf("subnet %s: value names subnet %s", name, rec.Name)
		return
	}
	return io.NewSubnetDescription(name, rec.Hosts...)
}

func EncodeSubnet(desc io.SubnetDescription) (string, error) {
	rec := subnetRecord{Hosts: make([]string, len(desc.Hosts))}
	for i := range desc.Hosts {
		rec.Hosts[i] = desc.Hosts[i].GetConnString()
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(rec); err != nil {
		return "", err
	}
	return buf.String(), nil
}
