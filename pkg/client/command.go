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

package client

import (
	"fmt"

	pkgerrors "github.com/pkg/errors"

	"fmclient/pkg/errors"
	"fmclient/pkg/proto"
)

// ICommand is one request MAD and the Response it fills. A command is not
// modified after submission. A retry uses Renew to get a fresh pair.
type ICommand interface {
	GetTransactionId() uint64
	GetResponse() *Response
	BuildPacket() (*proto.OobPacket, error)
	Decode(payload []byte) ([]interface{}, error)
	Renew() ICommand
	String() string
}

// Decoder turns the reply MAD into result values.
type Decoder func(mad *proto.MadPacket) ([]interface{}, error)

type MadCommand struct {
	tid      uint64
	class    proto.MgmtClass
	method   proto.Method
	attrId   uint16
	attrMod  uint32
	layout   proto.MadLayout
	payload  []byte
	decoder  Decoder
	response *Response
}

var _ ICommand = (*MadCommand)(nil)

// NewMadCommand uses the header layout of the management class.
func NewMadCommand(class proto.MgmtClass, method proto.Method, attrId uint16, attrMod uint32,
	payload []byte, decoder Decoder) *MadCommand {
	tid := proto.NextTransactionId()
	return &MadCommand{
		tid:      tid,
		class:    class,
		method:   method,
		attrId:   attrId,
		attrMod:  attrMod,
		layout:   proto.LayoutOf(class),
		payload:  payload,
		decoder:  decoder,
		response: newResponse(tid),
	}
}

func (c *MadCommand) GetTransactionId() uint64 {
	return c.tid
}

func (c *MadCommand) GetResponse() *Response {
	return c.response
}

func (c *MadCommand) BuildPacket() (*proto.OobPacket, error) {
	mad := proto.NewMadPacket(c.layout, len(c.payload))
	mad.Mad.SetMgmtClass(c.class)
	mad.Mad.SetMethod(c.method)
	mad.Mad.SetAttributeId(c.attrId)
	mad.Mad.SetAttributeModifier(c.attrMod)
	mad.Mad.Initialize(c.tid)
	if mad.Data != nil {
		mad.Data.PutBytes(0, c.payload)
	}
	pkt := proto.NewOobPacket(mad)
	pkt.Build(false)
	if err := pkt.FillPayloadSize(); err != nil {
		return nil, err
	}
	return pkt, nil
}

func (c *MadCommand) Decode(payload []byte) ([]interface{}, error) {
	mad, err := proto.DecodeMadPacket(payload, c.layout)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "%s: decode reply", c)
	}
	if tid := mad.Mad.TransactionId(); tid != c.tid || !mad.Mad.Method().IsResponse() {
		return nil, pkgerrors.Wrapf(errors.ErrUnexpectedResponse, "%s: got %s tid=%#x", c, mad.Mad.Method(), tid)
	}
	if c.decoder == nil {
		return nil, nil
	}
	return c.decoder(mad)
}

func (c *MadCommand) Renew() ICommand {
	n := *c
	n.tid = proto.NextTransactionId()
	n.response = newResponse(n.tid)
	return &n
}

func (c *MadCommand) String() string {
	return fmt.Sprintf("%s.%s(%#04x) tid=%#x", c.class, c.method, c.attrId, c.tid)
}

// NewClassPortInfoCommand reads the ClassPortInfo of a management class
// agent.
func NewClassPortInfoCommand(class proto.MgmtClass) *MadCommand {
	return NewMadCommand(class, proto.MethodGet, proto.AttrClassPortInfo, 0, nil, decodeClassPortInfo)
}

// NewGroupListCommand lists the PA port group names.
func NewGroupListCommand() *MadCommand {
	return NewMadCommand(proto.MgmtClassPerfAdm, proto.MethodGetTable, proto.AttrPaGroupList, 0, nil, decodeGroupList)
}

// NewNoticeCommand reads the notices queued at the SA.
func NewNoticeCommand() *MadCommand {
	return NewMadCommand(proto.MgmtClassSubnAdm, proto.MethodGetTable, proto.AttrNotice, 0, nil, decodeNotices)
}

func decodeClassPortInfo(mad *proto.MadPacket) ([]interface{}, error) {
	cpi, err := proto.DecodeClassPortInfo(mad.DataBytes())
	if err != nil {
		return nil, err
	}
	return []interface{}{cpi}, nil
}

func decodeGroupList(mad *proto.MadPacket) ([]interface{}, error) {
	recs := mad.Records(proto.GroupNameSize)
	out := make([]interface{}, 0, len(recs))
	for _, rec := range recs {
		if name := proto.DecodeGroupName(rec); name != "" {
			out = append(out, name)
		}
	}
	return out, nil
}

func decodeNotices(mad *proto.MadPacket) ([]interface{}, error) {
	recs := mad.Records(proto.NoticeSize)
	out := make([]interface{}, 0, len(recs))
	for _, rec := range recs {
		n, err := proto.DecodeNotice(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}
