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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGid(b byte) (g GID) {
	for i := range g {
		g[i] = b + byte(i)
	}
	return
}

func genericNotice(trap uint16, data []byte) *Notice {
	n := &Notice{
		IsGeneric:    true,
		Type:         NoticeTypeInfo,
		ProducerType: ProducerClassManager,
		TrapNumber:   trap,
		Toggle:       true,
		Count:        3,
		IssuerLid:    0x1,
		IssuerGid:    testGid(0xA0),
	}
	copy(n.Data[:], data)
	return n
}

func TestDecodeNoticeHeader(t *testing.T) {
	raw := EncodeNotice(genericNotice(9999, nil))
	n, err := DecodeNotice(raw)
	require.NoError(t, err)
	assert.True(t, n.IsGeneric)
	assert.Equal(t, NoticeTypeInfo, n.Type)
	assert.Equal(t, ProducerClassManager, n.ProducerType)
	assert.Equal(t, uint16(9999), n.TrapNumber)
	assert.True(t, n.Toggle)
	assert.Equal(t, uint16(3), n.Count)
	assert.Equal(t, testGid(0xA0), n.IssuerGid)
	assert.Nil(t, n.Detail)

	_, err = DecodeNotice(raw[:NoticeSize-1])
	assert.Error(t, err)
}

func TestVendorNoticeHasNoDetail(t *testing.T) {
	in := genericNotice(TrapBadMKey, nil)
	in.IsGeneric = false
	in.ProducerType = 0x001175
	n, err := DecodeNotice(EncodeNotice(in))
	require.NoError(t, err)
	assert.Nil(t, n.Detail)
	assert.Equal(t, uint32(0x001175), n.VendorId())
	assert.Equal(t, TrapBadMKey, n.DeviceId())
}

func TestTrapDetails(t *testing.T) {
	gid1 := testGid(0x10)
	gid2 := testGid(0x40)

	gidData := make([]byte, NoticeDataSize)
	copy(gidData, gid1[:])

	linkData := make([]byte, NoticeDataSize)
	binary.BigEndian.PutUint32(linkData[0:], 0x2A)
	linkData[4] = 7

	capData := make([]byte, NoticeDataSize)
	binary.BigEndian.PutUint32(capData[0:], 0x11)
	binary.BigEndian.PutUint32(capData[4:], 0x00100200)
	binary.BigEndian.PutUint16(capData[10:], 0x0003)
	binary.BigEndian.PutUint16(capData[12:], 0x0005)

	sysData := make([]byte, NoticeDataSize)
	binary.BigEndian.PutUint32(sysData[0:], 0x12)
	binary.BigEndian.PutUint64(sysData[8:], 0x0011750101000001)

	mkeyData := make([]byte, NoticeDataSize)
	binary.BigEndian.PutUint32(mkeyData[0:], 0x13)
	binary.BigEndian.PutUint32(mkeyData[4:], 0x14)
	mkeyData[8] = byte(MethodSet)
	binary.BigEndian.PutUint16(mkeyData[10:], 0x0015)
	binary.BigEndian.PutUint32(mkeyData[12:], 0x16)
	binary.BigEndian.PutUint64(mkeyData[16:], 0xDEADBEEF)
	mkeyData[24] = 0x80 | 0x40 | 5

	keyData := make([]byte, NoticeDataSize)
	binary.BigEndian.PutUint32(keyData[0:], 0x21)
	binary.BigEndian.PutUint32(keyData[4:], 0x22)
	binary.BigEndian.PutUint32(keyData[8:], 0x8001)
	keyData[12] = 9 << 3
	binary.BigEndian.PutUint32(keyData[16:], 0xFF000011)
	binary.BigEndian.PutUint32(keyData[20:], 0x00000012)
	copy(keyData[24:], gid1[:])
	copy(keyData[40:], gid2[:])

	swData := make([]byte, NoticeDataSize)
	binary.BigEndian.PutUint16(swData[0:], 0xE000)
	binary.BigEndian.PutUint16(swData[2:], 0x7FFF)
	swData[4] = 3 << 3
	binary.BigEndian.PutUint32(swData[8:], 0x31)
	binary.BigEndian.PutUint32(swData[12:], 0x32)
	binary.BigEndian.PutUint32(swData[16:], 0x33)
	binary.BigEndian.PutUint32(swData[20:], 0x34)
	copy(swData[24:], gid1[:])
	copy(swData[40:], gid2[:])
	binary.BigEndian.PutUint32(swData[56:], 0x35)
	swData[60] = 12

	tests := []struct {
		name string
		trap uint16
		data []byte
		want TrapDetail
	}{
		{"gid in service", TrapGidNowInService, gidData, GidTrap{Trap: TrapGidNowInService, Gid: gid1}},
		{"mcast deleted", TrapMcastGroupDeleted, gidData, GidTrap{Trap: TrapMcastGroupDeleted, Gid: gid1}},
		{"link state", TrapLinkStateChange, linkData, LinkTrap{Trap: TrapLinkStateChange, Lid: 0x2A}},
		{"link integrity", TrapLinkIntegrity, linkData, LinkTrap{Trap: TrapLinkIntegrity, Lid: 0x2A, Port: 7}},
		{"capability", TrapCapabilityMaskChange, capData, CapabilityTrap{
			Lid: 0x11, CapabilityMask: 0x00100200, CapabilityMask3: 3,
			NodeDescChanged: true, LinkSpeedEnabledChanged: true,
		}},
		{"sysguid", TrapSystemImageGuid, sysData, SysGuidTrap{Lid: 0x12, SystemImageGuid: 0x0011750101000001}},
		{"mkey", TrapBadMKey, mkeyData, MKeyTrap{
			Lid: 0x13, DrSLid: 0x14, Method: MethodSet, AttributeId: 0x15, AttributeMod: 0x16,
			MKey: 0xDEADBEEF, DrNotice: true, DrPathTruncated: true, DrHopCount: 5,
		}},
		{"pkey", TrapBadPKey, keyData, KeyTrap{
			Trap: TrapBadPKey, Lid1: 0x21, Lid2: 0x22, Key: 0x8001, SL: 9,
			QP1: 0x11, QP2: 0x12, Gid1: gid1, Gid2: gid2,
		}},
		{"switch pkey", TrapSwitchBadPKey, swData, SwitchPKeyTrap{
			Valid: 0xE000, PKey: 0x7FFF, SL: 3, Lid1: 0x31, Lid2: 0x32, QP1: 0x33, QP2: 0x34,
			Gid1: gid1, Gid2: gid2, SwLid: 0x35, Port: 12,
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			n, err := DecodeNotice(EncodeNotice(genericNotice(tc.trap, tc.data)))
			require.NoError(t, err)
			assert.Equal(t, tc.want, n.Detail)
			assert.Equal(t, tc.trap, n.Detail.TrapNumber())
		})
	}
}

func TestDecodeTrapDetailUnknown(t *testing.T) {
	d, err := DecodeTrapDetail(1, make([]byte, NoticeDataSize))
	assert.Nil(t, d)
	assert.Error(t, err)

	_, err = DecodeCapabilityTrap(make([]byte, 10))
	assert.Error(t, err)
}
