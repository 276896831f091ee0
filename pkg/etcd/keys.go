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
	"strings"
)

const (
	TagCompDelimiter = "_"
	TagSubnetPrefix  = "subnet"
)

func Key(prefix string, list ...string) string {
	key := prefix
	for _, c := range list {
		key += TagCompDelimiter + c
	}
	return key
}

// KeySubnet is the key, relative to the scope prefix, of the description
// of subnet name.
func KeySubnet(name string) string {
	return Key(TagSubnetPrefix, name)
}

// SubnetNameOf returns the subnet name of a key written by KeySubnet.
func SubnetNameOf(key string) (name string, ok bool) {
	prefix := TagSubnetPrefix + TagCompDelimiter
	if !strings.HasPrefix(key, prefix) || len(key) == len(prefix) {
		return "", false
	}
	return key[len(prefix):], true
}
