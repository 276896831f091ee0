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
	"io"

	"fmclient/pkg/datagram"
)

type (
	OobHeader struct {
		*datagram.SimpleDatagram
	}

	CommonMad struct {
		*datagram.SimpleDatagram
	}

	RmppHeader struct {
		*datagram.SimpleDatagram
	}

	SaHeader struct {
		*datagram.SimpleDatagram
	}
)

const (
	RmppVersion uint8 = 1

	RmppTypeData  uint8 = 1
	RmppTypeAck   uint8 = 2
	RmppTypeStop  uint8 = 3
	RmppTypeAbort uint8 = 4

	RmppFlagActive uint8 = 0x1
	RmppFlagFirst  uint8 = 0x2
	RmppFlagLast   uint8 = 0x4
)

func NewOobHeader() *OobHeader {
	return &OobHeader{datagram.NewSimpleDatagram(OobHeaderSize)}
}

func (h *OobHeader) Version() uint32 {
	return h.Uint32(0)
}

func (h *OobHeader) SetVersion(v uint32) {
	h.PutUint32(0, v)
}

func (h *OobHeader) PayloadLength() uint32 {
	return h.Uint32(4)
}

func (h *OobHeader) SetPayloadLength(n uint32) {
	h.PutUint32(4, n)
}

func NewCommonMad() *CommonMad {
	return &CommonMad{datagram.NewSimpleDatagram(CommonMadSize)}
}

// Initialize stamps a fresh transaction id and a success status.
func (m *CommonMad) Initialize(tid uint64) {
	m.SetTransactionId(tid)
	m.SetStatus(MadStatusSuccess)
}

func (m *CommonMad) BaseVersion() uint8            { return m.Uint8(0) }
func (m *CommonMad) SetBaseVersion(v uint8)        { m.PutUint8(0, v) }
func (m *CommonMad) MgmtClass() MgmtClass          { return MgmtClass(m.Uint8(1)) }
func (m *CommonMad) SetMgmtClass(c MgmtClass)      { m.PutUint8(1, uint8(c)) }
func (m *CommonMad) ClassVersion() uint8           { return m.Uint8(2) }
func (m *CommonMad) SetClassVersion(v uint8)       { m.PutUint8(2, v) }
func (m *CommonMad) Method() Method                { return Method(m.Uint8(3)) }
func (m *CommonMad) SetMethod(v Method)            { m.PutUint8(3, uint8(v)) }
func (m *CommonMad) Status() uint16                { return m.Uint16(4) }
func (m *CommonMad) SetStatus(v uint16)            { m.PutUint16(4, v) }
func (m *CommonMad) HopPointer() uint8             { return m.Uint8(6) }
func (m *CommonMad) SetHopPointer(v uint8)         { m.PutUint8(6, v) }
func (m *CommonMad) HopCount() uint8               { return m.Uint8(7) }
func (m *CommonMad) SetHopCount(v uint8)           { m.PutUint8(7, v) }
func (m *CommonMad) TransactionId() uint64         { return m.Uint64(8) }
func (m *CommonMad) SetTransactionId(v uint64)     { m.PutUint64(8, v) }
func (m *CommonMad) AttributeId() uint16           { return m.Uint16(16) }
func (m *CommonMad) SetAttributeId(v uint16)       { m.PutUint16(16, v) }
func (m *CommonMad) AttributeModifier() uint32     { return m.Uint32(20) }
func (m *CommonMad) SetAttributeModifier(v uint32) { m.PutUint32(20, v) }

// DrStatus is the directed-route view of the status field.
func (m *CommonMad) DrStatus() uint16 {
	return m.Status() & 0x7fff
}

func (m *CommonMad) PrettyPrint(w io.Writer) {
	fmt.Fprintln(w, "MAD:")
	fmt.Fprintf(w, "  BaseVersion\t:%#x\n", m.BaseVersion())
	fmt.Fprintf(w, "  MgmtClass\t:%s\n", m.MgmtClass())
	fmt.Fprintf(w, "  ClassVersion\t:%#x\n", m.ClassVersion())
	fmt.Fprintf(w, "  Method\t:%s\n", m.Method())
	fmt.Fprintf(w, "  Status\t:%s\n", MadStatusText(m.Status()))
	fmt.Fprintf(w, "  Tid\t\t:%#x\n", m.TransactionId())
	fmt.Fprintf(w, "  AttrId\t:%#x\n", m.AttributeId())
	fmt.Fprintf(w, "  AttrMod\t:%#x\n", m.AttributeModifier())
}

func NewRmppHeader() *RmppHeader {
	return &RmppHeader{datagram.NewSimpleDatagram(RmppHeaderSize)}
}

func (h *RmppHeader) Version() uint8         { return h.Uint8(0) }
func (h *RmppHeader) SetVersion(v uint8)     { h.PutUint8(0, v) }
func (h *RmppHeader) Type() uint8            { return h.Uint8(1) }
func (h *RmppHeader) SetType(v uint8)        { h.PutUint8(1, v) }
func (h *RmppHeader) Status() uint8          { return h.Uint8(3) }
func (h *RmppHeader) SetStatus(v uint8)      { h.PutUint8(3, v) }
func (h *RmppHeader) SegmentNum() uint32     { return h.Uint32(4) }
func (h *RmppHeader) SetSegmentNum(v uint32) { h.PutUint32(4, v) }

// RespTime is the upper five bits of the flags byte.
func (h *RmppHeader) RespTime() uint8 {
	return h.Uint8(2) >> 3
}

func (h *RmppHeader) Flags() uint8 {
	return h.Uint8(2) & 0x7
}

func (h *RmppHeader) SetRespTimeAndFlags(respTime uint8, flags uint8) {
	h.PutUint8(2, respTime<<3|flags&0x7)
}

// PayloadLength doubles as NewWindowLast in ACK segments.
func (h *RmppHeader) PayloadLength() uint32 {
	return h.Uint32(8)
}

func (h *RmppHeader) SetPayloadLength(v uint32) {
	h.PutUint32(8, v)
}

// InitSingleSegment marks the header as the only DATA segment of a transfer
// carrying payloadLen bytes.
func (h *RmppHeader) InitSingleSegment(payloadLen uint32) {
	h.SetVersion(RmppVersion)
	h.SetType(RmppTypeData)
	h.SetRespTimeAndFlags(0, RmppFlagActive|RmppFlagFirst|RmppFlagLast)
	h.SetStatus(0)
	h.SetSegmentNum(1)
	h.SetPayloadLength(payloadLen)
}

func NewSaHeader() *SaHeader {
	return &SaHeader{datagram.NewSimpleDatagram(SaHeaderSize)}
}

func (h *SaHeader) SmKey() uint64             { return h.Uint64(0) }
func (h *SaHeader) SetSmKey(v uint64)         { h.PutUint64(0, v) }
func (h *SaHeader) ComponentMask() uint64     { return h.Uint64(12) }
func (h *SaHeader) SetComponentMask(v uint64) { h.PutUint64(12, v) }

// AttributeOffset is the record stride in 8-byte units.
func (h *SaHeader) AttributeOffset() uint16 {
	return h.Uint16(8)
}

func (h *SaHeader) SetAttributeOffset(v uint16) {
	h.PutUint16(8, v)
}

// RecordSize returns the record stride in bytes.
func (h *SaHeader) RecordSize() int {
	return int(h.AttributeOffset()) * 8
}
