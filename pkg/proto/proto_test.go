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
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fmclient/pkg/datagram"
)

func TestFillPayloadSize(t *testing.T) {
	tests := []struct {
		layout   MadLayout
		dataSize int
	}{
		{LayoutPlain, 0},
		{LayoutPlain, ClassPortInfoSize},
		{LayoutRmpp, 8},
		{LayoutSa, 64},
	}
	for _, tc := range tests {
		mad := NewMadPacket(tc.layout, tc.dataSize)
		pkt := NewOobPacket(mad)
		pkt.Build(false)
		require.NoError(t, pkt.FillPayloadSize())

		total, err := pkt.Length()
		require.NoError(t, err)
		assert.Equal(t, tc.layout.HeaderSize()+tc.dataSize+OobHeaderSize, total)
		assert.Equal(t, uint32(total-OobHeaderSize), pkt.Header().PayloadLength())
		assert.Equal(t, OobVersion, pkt.Header().Version())
	}
}

func TestFillPayloadSizeUnbuilt(t *testing.T) {
	pkt := NewOobPacket(datagram.NewSimpleDatagram(24))
	assert.Error(t, pkt.FillPayloadSize())
}

func TestInitializeSetsTidAndStatus(t *testing.T) {
	mad := NewMadPacket(LayoutPlain, 0)
	mad.Mad.SetStatus(MadStatusBusy)
	mad.Mad.Initialize(0x1122334455667788)
	assert.Equal(t, uint64(0x1122334455667788), mad.Mad.TransactionId())
	assert.Equal(t, MadStatusSuccess, mad.Mad.Status())
	assert.Equal(t, StlBaseVersion, mad.Mad.BaseVersion())

	raw := mad.Mad.Raw()
	assert.Equal(t, []byte{0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88}, raw[8:16])
}

func TestRmppSingleSegment(t *testing.T) {
	mad := NewMadPacket(LayoutSa, 128)
	assert.Equal(t, uint32(128+SaHeaderSize), mad.Rmpp.PayloadLength())
	assert.Equal(t, RmppFlagActive|RmppFlagFirst|RmppFlagLast, mad.Rmpp.Flags())
	assert.Equal(t, uint8(0), mad.Rmpp.RespTime())
	assert.Equal(t, uint32(1), mad.Rmpp.SegmentNum())

	mad.Rmpp.SetRespTimeAndFlags(0x12, RmppFlagActive)
	assert.Equal(t, uint8(0x12), mad.Rmpp.RespTime())
	assert.Equal(t, RmppFlagActive, mad.Rmpp.Flags())
}

func TestReadOobFrameAndDecode(t *testing.T) {
	mad := NewMadPacket(LayoutSa, 2*GroupNameSize)
	mad.Mad.SetMgmtClass(MgmtClassPerfAdm)
	mad.Mad.SetMethod(MethodGetTableResp)
	mad.Mad.Initialize(77)
	mad.Sa.SetAttributeOffset(GroupNameSize / 8)
	mad.Data.PutBytes(0, EncodeGroupList([]string{"All", "HFIs"}))
	pkt := NewOobPacket(mad)
	pkt.Build(false)
	require.NoError(t, pkt.FillPayloadSize())

	var wire bytes.Buffer
	_, err := datagram.WriteTo(&wire, pkt)
	require.NoError(t, err)

	hdr, payload, err := ReadOobFrame(&wire, MaxMadSize)
	require.NoError(t, err)
	assert.Equal(t, uint32(len(payload)), hdr.PayloadLength())

	cm, err := PeekCommonMad(payload)
	require.NoError(t, err)
	assert.Equal(t, uint64(77), cm.TransactionId())
	assert.True(t, cm.Method().IsResponse())

	decoded, err := DecodeMadPacket(payload, LayoutSa)
	require.NoError(t, err)
	recs := decoded.Records(GroupNameSize)
	require.Len(t, recs, 2)
	assert.Equal(t, "All", DecodeGroupName(recs[0]))
	assert.Equal(t, "HFIs", DecodeGroupName(recs[1]))
}

func TestReadOobFrameTooLarge(t *testing.T) {
	hdr := make([]byte, OobHeaderSize)
	binary.BigEndian.PutUint32(hdr[4:], 1024)
	_, _, err := ReadOobFrame(bytes.NewReader(hdr), 512)
	assert.Error(t, err)
}

func TestDecodeMadPacketShort(t *testing.T) {
	_, err := DecodeMadPacket(make([]byte, 30), LayoutSa)
	assert.Error(t, err)
}

func TestTransactionIds(t *testing.T) {
	g := NewTransactionIdGeneratorWithSeed(0xCAFE)
	seen := make(map[uint64]bool)
	for i := 0; i < 1000; i++ {
		tid := g.Next()
		assert.NotZero(t, tid)
		assert.Equal(t, uint64(0xCAFE), tid>>32)
		assert.False(t, seen[tid])
		seen[tid] = true
	}

	zero := NewTransactionIdGeneratorWithSeed(0)
	assert.Equal(t, uint64(1), zero.Next())
	assert.NotZero(t, NextTransactionId())
}

func TestOobPacketExpiry(t *testing.T) {
	pkt := NewOobPacket()
	now := time.Now()
	assert.False(t, pkt.IsExpired(now))
	pkt.SetExpireTime(now.Add(time.Second))
	assert.False(t, pkt.IsExpired(now))
	assert.True(t, pkt.IsExpired(now.Add(2*time.Second)))
}

func TestClassPortInfo(t *testing.T) {
	in := &ClassPortInfo{
		BaseVersion:   StlBaseVersion,
		ClassVersion:  StlClassVersion,
		CapMask:       0x0201,
		CapMask2:      0x1234,
		RespTimeValue: 18,
		TrapLid:       0xC001,
		TrapQP:        1,
		TrapPKey:      0x7fff,
	}
	out, err := DecodeClassPortInfo(in.Encode())
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = DecodeClassPortInfo(make([]byte, ClassPortInfoSize-1))
	assert.Error(t, err)
}

func TestMethodAndStatusText(t *testing.T) {
	assert.Equal(t, "GetTableResp", MethodGetTableResp.String())
	assert.True(t, MethodTrap.IsUnsolicited())
	assert.False(t, MethodGetResp.IsUnsolicited())
	assert.Equal(t, "busy", MadStatusText(MadStatusBusy))
	assert.Equal(t, "status(0x7777)", MadStatusText(0x7777))
	assert.Equal(t, "PA", MgmtClassPerfAdm.String())
}

func TestLayoutOf(t *testing.T) {
	assert.Equal(t, LayoutSa, LayoutOf(MgmtClassSubnAdm))
	assert.Equal(t, LayoutSa, LayoutOf(MgmtClassPerfAdm))
	assert.Equal(t, LayoutPlain, LayoutOf(MgmtClassPerfMgt))
	assert.Equal(t, 56, LayoutOf(MgmtClassPerfAdm).HeaderSize())
}
