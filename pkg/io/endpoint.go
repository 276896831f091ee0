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

package io

import (
	"fmt"
	"strings"
)

type ServiceEndpoint struct {
	Addr       string
	SSLEnabled bool
}

func (p *ServiceEndpoint) Validate() (err error) {
	if len(p.Addr) == 0 {
		err = fmt.Errorf("ServiceEndpoint.Addr not specified")
	}
	return
}

func (p ServiceEndpoint) GetConnString() (str string) {
	if p.SSLEnabled {
		str = "ssl:"
	}
	if strings.Contains(p.Addr, ":") {
		str += p.Addr
	} else {
		str += ":" + p.Addr
	}
	return
}

// SetFromConnString parses "[ssl:]host:port". A bare port means localhost.
func (p *ServiceEndpoint) SetFromConnString(connStr string) error {
	str := strings.TrimSpace(connStr)
	if strings.HasPrefix(strings.ToLower(str), "ssl:") {
		str = str[len("ssl:"):]
		p.SSLEnabled = true
	}
	if len(str) == 0 {
		return fmt.Errorf("empty connection string")
	}
	if !strings.Contains(str, ":") {
		p.Addr = ":" + str
	} else {
		p.Addr = str
	}
	return nil
}

func (p ServiceEndpoint) String() string {
	return p.GetConnString()
}

// SubnetDescription names a subnet and the Subnet Manager hosts serving it,
// primary first.
type SubnetDescription struct {
	Name  string
	Hosts []ServiceEndpoint
}

func NewSubnetDescription(name string, connStrs ...string) (desc SubnetDescription, err error) {
	desc.Name = name
	for _, s := range connStrs {
		var ep ServiceEndpoint
		if err = ep.SetFromConnString(s); err != nil {
			return
		}
		desc.Hosts = append(desc.Hosts, ep)
	}
	err = desc.Validate()
	return
}

func (d *SubnetDescription) Validate() error {
	if len(d.Name) == 0 {
		return fmt.Errorf("subnet name not specified")
	}
	if len(d.Hosts) == 0 {
		return fmt.Errorf("subnet %s has no host", d.Name)
	}
	for i := range d.Hosts {
		if err := d.Hosts[i].Validate(); err != nil {
			return fmt.Errorf("subnet %s: %w", d.Name, err)
		}
	}
	return nil
}

// Key identifies the connection target of the subnet.
func (d *SubnetDescription) Key() string {
	if len(d.Hosts) == 0 {
		return d.Name
	}
	return d.Name + "@" + d.Hosts[0].GetConnString()
}

func (d *SubnetDescription) Clone() SubnetDescription {
	c := SubnetDescription{Name: d.Name}
	c.Hosts = append(c.Hosts, d.Hosts...)
	return c
}

// IndexOf returns the position of a host with the same address, -1 if none.
func (d *SubnetDescription) IndexOf(ep ServiceEndpoint) int {
	for i := range d.Hosts {
		if d.Hosts[i].Addr == ep.Addr {
			return i
		}
	}
	return -1
}
