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
	"time"

	"fmclient/pkg/datagram"
	"fmclient/pkg/errors"
)

// OobPacket is an OOB header followed by the payload datagrams. The
// expire time is local bookkeeping and is never encoded.
type OobPacket struct {
	*datagram.ComposedDatagram
	header     *OobHeader
	expireTime time.Time
}

func NewOobPacket(payload ...datagram.IDatagram) *OobPacket {
	p := &OobPacket{
		ComposedDatagram: datagram.NewComposedDatagram(),
		header:           NewOobHeader(),
	}
	p.AddDatagram(p.header)
	for _, d := range payload {
		p.AddDatagram(d)
	}
	return p
}

func (p *OobPacket) Header() *OobHeader {
	return p.header
}

// FillPayloadSize sets the header's payload length to the encoded length
// minus the OOB header.
func (p *OobPacket) FillPayloadSize() error {
	n, err := p.Length()
	if err != nil {
		return err
	}
	p.header.SetVersion(OobVersion)
	p.header.SetPayloadLength(uint32(n - OobHeaderSize))
	return nil
}

func (p *OobPacket) SetExpireTime(t time.Time) {
	p.expireTime = t
}

func (p *OobPacket) ExpireTime() time.Time {
	return p.expireTime
}

// IsExpired is false for a packet with no expire time.
func (p *OobPacket) IsExpired(now time.Time) bool {
	return !p.expireTime.IsZero() && now.After(p.expireTime)
}

// ReadOobFrame reads one header and its payload from r.
func ReadOobFrame(r io.Reader, maxPayload uint32) (*OobHeader, []byte, error) {
	hdr := NewOobHeader()
	hdr.Build(false)
	if _, err := io.ReadFull(r, hdr.Raw()); err != nil {
		return nil, nil, err
	}
	sz := hdr.PayloadLength()
	if sz > maxPayload {
		return nil, nil, fmt.Errorf("oob payload length %d exceeds %d", sz, maxPayload)
	}
	payload := make([]byte, sz)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, nil, err
	}
	return hdr, payload, nil
}

// MadLayout selects the optional headers between the common MAD header and
// the class data.
type MadLayout struct {
	Rmpp bool
	Sa   bool
}

var (
	LayoutPlain = MadLayout{}
	LayoutSa    = MadLayout{Rmpp: true, Sa: true}
	LayoutRmpp  = MadLayout{Rmpp: true}
)

// LayoutOf returns the header layout MADs of a management class use. The
// SA and PA classes carry RMPP and SA headers, others a bare common MAD.
func LayoutOf(class MgmtClass) MadLayout {
	switch class {
	case MgmtClassSubnAdm, MgmtClassPerfAdm:
		return LayoutSa
	}
	return LayoutPlain
}

func (l MadLayout) HeaderSize() int {
	sz := CommonMadSize
	if l.Rmpp {
		sz += RmppHeaderSize
	}
	if l.Sa {
		sz += SaHeaderSize
	}
	return sz
}

// MadPacket is a MAD with its optional headers and class data. Rmpp, Sa
// and Data are nil when absent.
type MadPacket struct {
	*datagram.ComposedDatagram
	Mad  *CommonMad
	Rmpp *RmppHeader
	Sa   *SaHeader
	Data *datagram.SimpleDatagram
}

func newMadPacket(layout MadLayout, dataSize int) *MadPacket {
	p := &MadPacket{
		ComposedDatagram: datagram.NewComposedDatagram(),
		Mad:              NewCommonMad(),
	}
	p.AddDatagram(p.Mad)
	if layout.Rmpp {
		p.Rmpp = NewRmppHeader()
		p.AddDatagram(p.Rmpp)
	}
	if layout.Sa {
		p.Sa = NewSaHeader()
		p.AddDatagram(p.Sa)
	}
	if dataSize > 0 {
		p.Data = datagram.NewSimpleDatagram(dataSize)
		p.AddDatagram(p.Data)
	}
	return p
}

// NewMadPacket returns a built packet with dataSize bytes of zeroed class
// data. The RMPP header, if any, describes a single DATA segment.
func NewMadPacket(layout MadLayout, dataSize int) *MadPacket {
	p := newMadPacket(layout, dataSize)
	p.Build(false)
	p.Mad.SetBaseVersion(StlBaseVersion)
	p.Mad.SetClassVersion(StlClassVersion)
	if p.Rmpp != nil {
		sz := dataSize
		if p.Sa != nil {
			sz += SaHeaderSize
		}
		p.Rmpp.InitSingleSegment(uint32(sz))
	}
	return p
}

// DecodeMadPacket wraps buf without copying.
func DecodeMadPacket(buf []byte, layout MadLayout) (*MadPacket, error) {
	if len(buf) < layout.HeaderSize() {
		return nil, errors.ErrShortBuffer
	}
	p := newMadPacket(layout, len(buf)-layout.HeaderSize())
	if _, err := p.Wrap(buf, 0); err != nil {
		return nil, err
	}
	return p, nil
}

// PeekCommonMad wraps the common header at the front of an OOB payload.
func PeekCommonMad(payload []byte) (*CommonMad, error) {
	m := NewCommonMad()
	if _, err := m.Wrap(payload, 0); err != nil {
		return nil, err
	}
	return m, nil
}

// DataBytes returns the class data, nil when there is none.
func (p *MadPacket) DataBytes() []byte {
	if p.Data == nil {
		return nil
	}
	return p.Data.Raw()
}

// Records splits the class data into SA records. The stride comes from the
// SA header's attribute offset, falling back to defaultSize.
func (p *MadPacket) Records(defaultSize int) [][]byte {
	data := p.DataBytes()
	sz := defaultSize
	if p.Sa != nil && p.Sa.RecordSize() > 0 {
		sz = p.Sa.RecordSize()
	}
	if sz <= 0 {
		return nil
	}
	var out [][]byte
	for off := 0; off+sz <= len(data); off += sz {
		out = append(out, data[off:off+sz])
	}
	return out
}
