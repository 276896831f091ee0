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

package proto

import (
	"bytes"

	"fmclient/pkg/datagram"
)

const (
	ClassPortInfoSize = 80
	GroupNameSize     = 64
)

// ClassPortInfo describes a management class agent.
type ClassPortInfo struct {
	BaseVersion   uint8
	ClassVersion  uint8
	CapMask       uint16
	CapMask2      uint32
	RespTimeValue uint8
	RedirectGid   GID
	RedirectLid   uint32
	RedirectQP    uint32
	RedirectQKey  uint32
	TrapGid       GID
	TrapLid       uint32
	TrapQP        uint32
	TrapQKey      uint32
	TrapPKey      uint16
	RedirectPKey  uint16
}

func DecodeClassPortInfo(buf []byte) (*ClassPortInfo, error) {
	d := datagram.NewSimpleDatagram(ClassPortInfoSize)
	if _, err := d.Wrap(buf, 0); err != nil {
		return nil, err
	}
	cap2 := d.Uint32(4)
	return &ClassPortInfo{
		BaseVersion:   d.Uint8(0),
		ClassVersion:  d.Uint8(1),
		CapMask:       d.Uint16(2),
		CapMask2:      cap2 >> 5,
		RespTimeValue: uint8(cap2 & 0x1f),
		RedirectGid:   gidAt(d, 8),
		RedirectLid:   d.Uint32(28),
		RedirectQP:    d.Uint32(32) & 0xffffff,
		RedirectQKey:  d.Uint32(36),
		TrapGid:       gidAt(d, 40),
		TrapLid:       d.Uint32(60),
		TrapQP:        d.Uint32(64) & 0xffffff,
		TrapQKey:      d.Uint32(68),
		TrapPKey:      d.Uint16(72),
		RedirectPKey:  d.Uint16(74),
	}, nil
}

// Encode writes the fields DecodeClassPortInfo reads.
func (c *ClassPortInfo) Encode() []byte {
	d := datagram.NewSimpleDatagram(ClassPortInfoSize)
	d.Build(false)
	d.PutUint8(0, c.BaseVersion)
	d.PutUint8(1, c.ClassVersion)
	d.PutUint16(2, c.CapMask)
	d.PutUint32(4, c.CapMask2<<5|uint32(c.RespTimeValue&0x1f))
	d.PutBytes(8, c.RedirectGid[:])
	d.PutUint32(28, c.RedirectLid)
	d.PutUint32(32, c.RedirectQP&0xffffff)
	d.PutUint32(36, c.RedirectQKey)
	d.PutBytes(40, c.TrapGid[:])
	d.PutUint32(60, c.TrapLid)
	d.PutUint32(64, c.TrapQP&0xffffff)
	d.PutUint32(68, c.TrapQKey)
	d.PutUint16(72, c.TrapPKey)
	d.PutUint16(74, c.RedirectPKey)
	return d.Raw()
}

// DecodeGroupName reads one NUL padded group name record.
func DecodeGroupName(rec []byte) string {
	if i := bytes.IndexByte(rec, 0); i >= 0 {
		rec = rec[:i]
	}
	return string(rec)
}

// EncodeGroupList lays out names as fixed-size group name records.
func EncodeGroupList(names []string) []byte {
	out := make([]byte, len(names)*GroupNameSize)
	for i, name := range names {
		copy(out[i*GroupNameSize:(i+1)*GroupNameSize-1], name)
	}
	return out
}
