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
	"encoding/binary"
	"fmt"

	"fmclient/pkg/datagram"
	"fmclient/pkg/errors"
)

/*
Notice (96 bytes)

	  ------+---+-----------+---------------------------------------------+
	      0 |G  | type      | producer type (generic) / vendor id         |
	  ------+---+-----------+-------------------+-------------------------+
	      4 | trap number / device id           |T| count                 |
	  ------+-----------------------------------+-------------------------+
	      8 | issuer LID                                                  |
	  ------+-------------------------------------------------------------+
	     12 | reserved                                                    |
	  ------+-------------------------------------------------------------+
	     16 | issuer GID (16 bytes)                                       |
	  ------+-------------------------------------------------------------+
	     32 | data details (64 bytes)                                     |
	  ------+-------------------------------------------------------------+
*/

const (
	NoticeSize       = 96
	NoticeDataOffset = 32
	NoticeDataSize   = 64
)

type NoticeType uint8

const (
	NoticeTypeFatal      NoticeType = 0
	NoticeTypeUrgent     NoticeType = 1
	NoticeTypeSecurity   NoticeType = 2
	NoticeTypeSubnetMgmt NoticeType = 3
	NoticeTypeInfo       NoticeType = 4
)

func (t NoticeType) String() string {
	switch t {
	case NoticeTypeFatal:
		return "fatal"
	case NoticeTypeUrgent:
		return "urgent"
	case NoticeTypeSecurity:
		return "security"
	case NoticeTypeSubnetMgmt:
		return "subnet management"
	case NoticeTypeInfo:
		return "info"
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

type ProducerType uint32

const (
	ProducerCA           ProducerType = 1
	ProducerSwitch       ProducerType = 2
	ProducerRouter       ProducerType = 3
	ProducerClassManager ProducerType = 4
)

// GID is a 128-bit global identifier: 64-bit subnet prefix then 64-bit
// interface id.
type GID [16]byte

func (g GID) Prefix() uint64 {
	return binary.BigEndian.Uint64(g[0:8])
}

func (g GID) InterfaceId() uint64 {
	return binary.BigEndian.Uint64(g[8:16])
}

func (g GID) String() string {
	return fmt.Sprintf("0x%016x:0x%016x", g.Prefix(), g.InterfaceId())
}

func gidAt(d *datagram.SimpleDatagram, off int) (g GID) {
	copy(g[:], d.Slice(off, 16))
	return
}

// Notice is a decoded trap or report. Detail is nil for trap numbers
// without a decoder.
type Notice struct {
	IsGeneric    bool
	Type         NoticeType
	ProducerType ProducerType
	TrapNumber   uint16
	Toggle       bool
	Count        uint16
	IssuerLid    uint32
	IssuerGid    GID
	Data         [NoticeDataSize]byte
	Detail       TrapDetail
}

// VendorId aliases the producer type field of a vendor notice.
func (n *Notice) VendorId() uint32 {
	return uint32(n.ProducerType)
}

// DeviceId aliases the trap number field of a vendor notice.
func (n *Notice) DeviceId() uint16 {
	return n.TrapNumber
}

func (n *Notice) String() string {
	if n.Detail != nil {
		return fmt.Sprintf("notice{trap:%d type:%s issuer:%#x %v}", n.TrapNumber, n.Type, n.IssuerLid, n.Detail)
	}
	return fmt.Sprintf("notice{trap:%d type:%s issuer:%#x}", n.TrapNumber, n.Type, n.IssuerLid)
}

// DecodeNotice decodes a notice record and, for generic notices, its trap
// details. An unknown trap number is not an error.
func DecodeNotice(buf []byte) (*Notice, error) {
	d := datagram.NewSimpleDatagram(NoticeSize)
	if _, err := d.Wrap(buf, 0); err != nil {
		return nil, err
	}
	attr := d.Uint32(0)
	n := &Notice{
		IsGeneric:    attr&0x80000000 != 0,
		Type:         NoticeType(attr >> 24 & 0x7f),
		ProducerType: ProducerType(attr & 0xffffff),
		TrapNumber:   d.Uint16(4),
		Toggle:       d.Uint16(6)&0x8000 != 0,
		Count:        d.Uint16(6) & 0x7fff,
		IssuerLid:    d.Uint32(8),
		IssuerGid:    gidAt(d, 16),
	}
	copy(n.Data[:], d.Slice(NoticeDataOffset, NoticeDataSize))
	if n.IsGeneric {
		detail, err := DecodeTrapDetail(n.TrapNumber, n.Data[:])
		if err != nil && err != errUnknownTrap {
			return nil, err
		}
		n.Detail = detail
	}
	return n, nil
}

// EncodeNotice is the inverse of DecodeNotice for the header fields and
// raw data. Detail is not consulted.
func EncodeNotice(n *Notice) []byte {
	d := datagram.NewSimpleDatagram(NoticeSize)
	d.Build(false)
	attr := uint32(n.Type&0x7f)<<24 | uint32(n.ProducerType)&0xffffff
	if n.IsGeneric {
		attr |= 0x80000000
	}
	d.PutUint32(0, attr)
	d.PutUint16(4, n.TrapNumber)
	tc := n.Count & 0x7fff
	if n.Toggle {
		tc |= 0x8000
	}
	d.PutUint16(6, tc)
	d.PutUint32(8, n.IssuerLid)
	d.PutBytes(16, n.IssuerGid[:])
	d.PutBytes(NoticeDataOffset, n.Data[:])
	return d.Raw()
}

var errUnknownTrap = errors.NewError("unknown trap number", errors.KErrUnexpectedResponse)
