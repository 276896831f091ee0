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
	"fmt"

	"fmclient/pkg/datagram"
)

// Generic trap numbers with a decoder.
const (
	TrapGidNowInService      uint16 = 64
	TrapGidOutOfService      uint16 = 65
	TrapMcastGroupCreated    uint16 = 66
	TrapMcastGroupDeleted    uint16 = 67
	TrapLinkStateChange      uint16 = 128
	TrapLinkIntegrity        uint16 = 129
	TrapBufferOverrun        uint16 = 130
	TrapFlowControlWatchdog  uint16 = 131
	TrapCapabilityMaskChange uint16 = 144
	TrapSystemImageGuid      uint16 = 145
	TrapBadMKey              uint16 = 256
	TrapBadPKey              uint16 = 257
	TrapBadQKey              uint16 = 258
	TrapSwitchBadPKey        uint16 = 259
)

// TrapDetail is the decoded data details of a generic notice. All
// implementations are immutable values.
type TrapDetail interface {
	TrapNumber() uint16
}

// GidTrap covers the GID and multicast group traps, 64 to 67.
type GidTrap struct {
	Trap uint16
	Gid  GID
}

func (t GidTrap) TrapNumber() uint16 { return t.Trap }

func (t GidTrap) String() string {
	return fmt.Sprintf("gid:%s", t.Gid)
}

// LinkTrap covers link state and port error traps, 128 to 131. Port is
// zero for trap 128, which carries only the switch LID.
type LinkTrap struct {
	Trap uint16
	Lid  uint32
	Port uint8
}

func (t LinkTrap) TrapNumber() uint16 { return t.Trap }

func (t LinkTrap) String() string {
	return fmt.Sprintf("lid:%#x port:%d", t.Lid, t.Port)
}

// CapabilityTrap is trap 144.
type CapabilityTrap struct {
	Lid                       uint32
	CapabilityMask            uint32
	CapabilityMask3           uint16
	NodeDescChanged           bool
	LinkWidthEnabledChanged   bool
	LinkSpeedEnabledChanged   bool
	LinkWidthDowngradeChanged bool
}

func (t CapabilityTrap) TrapNumber() uint16 { return TrapCapabilityMaskChange }

func (t CapabilityTrap) String() string {
	return fmt.Sprintf("lid:%#x capmask:%#x capmask3:%#x", t.Lid, t.CapabilityMask, t.CapabilityMask3)
}

// SysGuidTrap is trap 145.
type SysGuidTrap struct {
	Lid             uint32
	SystemImageGuid uint64
}

func (t SysGuidTrap) TrapNumber() uint16 { return TrapSystemImageGuid }

func (t SysGuidTrap) String() string {
	return fmt.Sprintf("lid:%#x sysguid:%#016x", t.Lid, t.SystemImageGuid)
}

// MKeyTrap is trap 256.
type MKeyTrap struct {
	Lid             uint32
	DrSLid          uint32
	Method          Method
	AttributeId     uint16
	AttributeMod    uint32
	MKey            uint64
	DrNotice        bool
	DrPathTruncated bool
	DrHopCount      uint8
}

func (t MKeyTrap) TrapNumber() uint16 { return TrapBadMKey }

func (t MKeyTrap) String() string {
	return fmt.Sprintf("lid:%#x method:%s attr:%#x mkey:%#x", t.Lid, t.Method, t.AttributeId, t.MKey)
}

// KeyTrap covers the bad P_Key and Q_Key traps, 257 and 258.
type KeyTrap struct {
	Trap uint16
	Lid1 uint32
	Lid2 uint32
	Key  uint32
	SL   uint8
	QP1  uint32
	QP2  uint32
	Gid1 GID
	Gid2 GID
}

func (t KeyTrap) TrapNumber() uint16 { return t.Trap }

func (t KeyTrap) String() string {
	return fmt.Sprintf("lid1:%#x lid2:%#x key:%#x sl:%d", t.Lid1, t.Lid2, t.Key, t.SL)
}

// SwitchPKeyTrap is trap 259. Valid holds the data-valid bits; the
// remaining fields are meaningful only where the matching bit is set.
type SwitchPKeyTrap struct {
	Valid uint16
	PKey  uint16
	SL    uint8
	Lid1  uint32
	Lid2  uint32
	QP1   uint32
	QP2   uint32
	Gid1  GID
	Gid2  GID
	SwLid uint32
	Port  uint8
}

func (t SwitchPKeyTrap) TrapNumber() uint16 { return TrapSwitchBadPKey }

func (t SwitchPKeyTrap) String() string {
	return fmt.Sprintf("swlid:%#x port:%d pkey:%#x valid:%#x", t.SwLid, t.Port, t.PKey, t.Valid)
}

func wrapTrapData(data []byte) (*datagram.SimpleDatagram, error) {
	d := datagram.NewSimpleDatagram(NoticeDataSize)
	if _, err := d.Wrap(data, 0); err != nil {
		return nil, err
	}
	return d, nil
}

func DecodeGidTrap(trap uint16, data []byte) (GidTrap, error) {
	d, err := wrapTrapData(data)
	if err != nil {
		return GidTrap{}, err
	}
	return GidTrap{Trap: trap, Gid: gidAt(d, 0)}, nil
}

func DecodeLinkTrap(trap uint16, data []byte) (LinkTrap, error) {
	d, err := wrapTrapData(data)
	if err != nil {
		return LinkTrap{}, err
	}
	t := LinkTrap{Trap: trap, Lid: d.Uint32(0)}
	if trap != TrapLinkStateChange {
		t.Port = d.Uint8(4)
	}
	return t, nil
}

func DecodeCapabilityTrap(data []byte) (CapabilityTrap, error) {
	d, err := wrapTrapData(data)
	if err != nil {
		return CapabilityTrap{}, err
	}
	flags := d.Uint16(12)
	return CapabilityTrap{
		Lid:                       d.Uint32(0),
		CapabilityMask:            d.Uint32(4),
		CapabilityMask3:           d.Uint16(10),
		NodeDescChanged:           flags&0x1 != 0,
		LinkWidthEnabledChanged:   flags&0x2 != 0,
		LinkSpeedEnabledChanged:   flags&0x4 != 0,
		LinkWidthDowngradeChanged: flags&0x8 != 0,
	}, nil
}

func DecodeSysGuidTrap(data []byte) (SysGuidTrap, error) {
	d, err := wrapTrapData(data)
	if err != nil {
		return SysGuidTrap{}, err
	}
	return SysGuidTrap{Lid: d.Uint32(0), SystemImageGuid: d.Uint64(8)}, nil
}

func DecodeMKeyTrap(data []byte) (MKeyTrap, error) {
	d, err := wrapTrapData(data)
	if err != nil {
		return MKeyTrap{}, err
	}
	dr := d.Uint8(24)
	return MKeyTrap{
		Lid:             d.Uint32(0),
		DrSLid:          d.Uint32(4),
		Method:          Method(d.Uint8(8)),
		AttributeId:     d.Uint16(10),
		AttributeMod:    d.Uint32(12),
		MKey:            d.Uint64(16),
		DrNotice:        dr&0x80 != 0,
		DrPathTruncated: dr&0x40 != 0,
		DrHopCount:      dr & 0x3f,
	}, nil
}

func DecodeKeyTrap(trap uint16, data []byte) (KeyTrap, error) {
	d, err := wrapTrapData(data)
	if err != nil {
		return KeyTrap{}, err
	}
	return KeyTrap{
		Trap: trap,
		Lid1: d.Uint32(0),
		Lid2: d.Uint32(4),
		Key:  d.Uint32(8),
		SL:   d.Uint8(12) >> 3 & 0x1f,
		QP1:  d.Uint32(16) & 0xffffff,
		QP2:  d.Uint32(20) & 0xffffff,
		Gid1: gidAt(d, 24),
		Gid2: gidAt(d, 40),
	}, nil
}

func DecodeSwitchPKeyTrap(data []byte) (SwitchPKeyTrap, error) {
	d, err := wrapTrapData(data)
	if err != nil {
		return SwitchPKeyTrap{}, err
	}
	return SwitchPKeyTrap{
		Valid: d.Uint16(0),
		PKey:  d.Uint16(2),
		SL:    d.Uint8(4) >> 3 & 0x1f,
		Lid1:  d.Uint32(8),
		Lid2:  d.Uint32(12),
		QP1:   d.Uint32(16) & 0xffffff,
		QP2:   d.Uint32(20) & 0xffffff,
		Gid1:  gidAt(d, 24),
		Gid2:  gidAt(d, 40),
		SwLid: d.Uint32(56),
		Port:  d.Uint8(60),
	}, nil
}

// DecodeTrapDetail decodes the 64-byte data details of a generic notice.
func DecodeTrapDetail(trap uint16, data []byte) (TrapDetail, error) {
	switch trap {
	case TrapGidNowInService, TrapGidOutOfService, TrapMcastGroupCreated, TrapMcastGroupDeleted:
		return DecodeGidTrap(trap, data)
	case TrapLinkStateChange, TrapLinkIntegrity, TrapBufferOverrun, TrapFlowControlWatchdog:
		return DecodeLinkTrap(trap, data)
	case TrapCapabilityMaskChange:
		return DecodeCapabilityTrap(data)
	case TrapSystemImageGuid:
		return DecodeSysGuidTrap(data)
	case TrapBadMKey:
		return DecodeMKeyTrap(data)
	case TrapBadPKey, TrapBadQKey:
		return DecodeKeyTrap(trap, data)
	case TrapSwitchBadPKey:
		return DecodeSwitchPKeyTrap(data)
	}
	return nil, errUnknownTrap
}
