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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fmclient/internal/fmtest"
	"fmclient/pkg/datagram"
	"fmclient/pkg/errors"
	"fmclient/pkg/proto"
)

func TestBuildPacket(t *testing.T) {
	tests := []struct {
		name string
		cmd  *MadCommand
		size int
	}{
		{"pa group list", NewGroupListCommand(), proto.OobHeaderSize + proto.LayoutSa.HeaderSize()},
		{"pm class port info", NewClassPortInfoCommand(proto.MgmtClassPerfMgt), proto.OobHeaderSize + proto.CommonMadSize},
		{"with payload", NewMadCommand(proto.MgmtClassPerfAdm, proto.MethodGet, proto.AttrPaGroupInfo, 0,
			proto.EncodeGroupList([]string{"All"}), nil), proto.OobHeaderSize + proto.LayoutSa.HeaderSize() + proto.GroupNameSize},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pkt, err := tc.cmd.BuildPacket()
			require.NoError(t, err)
			b, err := datagram.Bytes(pkt)
			require.NoError(t, err)
			assert.Len(t, b, tc.size)
			assert.Equal(t, uint32(tc.size-proto.OobHeaderSize), pkt.Header().PayloadLength())

			cm, err := proto.PeekCommonMad(b[proto.OobHeaderSize:])
			require.NoError(t, err)
			assert.Equal(t, tc.cmd.GetTransactionId(), cm.TransactionId())
			assert.Equal(t, tc.cmd.class, cm.MgmtClass())
			assert.Equal(t, proto.StlBaseVersion, cm.BaseVersion())
		})
	}
}

func TestDecodeChecksReply(t *testing.T) {
	cmd := NewGroupListCommand()
	other := NewGroupListCommand()

	reqOf := func(c *MadCommand) *proto.CommonMad {
		pkt, err := c.BuildPacket()
		require.NoError(t, err)
		b, err := datagram.Bytes(pkt)
		require.NoError(t, err)
		cm, err := proto.PeekCommonMad(b[proto.OobHeaderSize:])
		require.NoError(t, err)
		return cm
	}

	_, err := cmd.Decode(fmtest.DefaultHandler(reqOf(other), nil))
	assert.ErrorIs(t, err, errors.ErrUnexpectedResponse)

	_, err = cmd.Decode(make([]byte, 10))
	assert.ErrorIs(t, err, errors.ErrShortBuffer)

	values, err := cmd.Decode(fmtest.DefaultHandler(reqOf(cmd), nil))
	require.NoError(t, err)
	assert.Len(t, values, len(fmtest.DefaultGroups))
}

func TestRenew(t *testing.T) {
	cmd := NewNoticeCommand()
	r := cmd.Renew().(*MadCommand)
	assert.NotEqual(t, cmd.GetTransactionId(), r.GetTransactionId())
	assert.NotSame(t, cmd.GetResponse(), r.GetResponse())
	assert.Equal(t, r.GetTransactionId(), r.GetResponse().GetTransactionId())
	assert.Equal(t, cmd.attrId, r.attrId)
	assert.Contains(t, r.String(), "SA.GetTable")
}

func TestResponseCompletesOnce(t *testing.T) {
	r := newResponse(1)
	assert.False(t, r.IsDone())
	assert.True(t, r.complete([]interface{}{"a"}))
	assert.False(t, r.fail(errors.ErrTimeout))
	assert.True(t, r.IsDone())

	values, err := r.Get(time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"a"}, values)

	r.markClosed()
	_, err = r.Get(time.Millisecond)
	assert.ErrorIs(t, err, errors.ErrClosed)
}

func TestResponseGetTimeout(t *testing.T) {
	r := newResponse(0x42)
	_, err := r.Get(5 * time.Millisecond)
	assert.ErrorIs(t, err, errors.ErrTimeout)
	assert.Contains(t, err.Error(), "tid=0x42")

	assert.True(t, r.fail(errors.ErrShutdown))
	_, err = r.Get(time.Millisecond)
	assert.ErrorIs(t, err, errors.ErrShutdown)
}
