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

package datagram

import (
	"bytes"
	"encoding/binary"
	goerrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fmclient/pkg/errors"
)

func TestSimpleBuildAndAccess(t *testing.T) {
	d := NewSimpleDatagram(16)
	assert.False(t, d.HasBuffer())
	_, err := d.Length()
	assert.True(t, goerrors.Is(err, errors.ErrNotBuilt))
	_, err = d.ByteOrder()
	assert.True(t, goerrors.Is(err, errors.ErrNotBuilt))
	_, err = d.Buffers()
	assert.True(t, goerrors.Is(err, errors.ErrNotBuilt))

	assert.Equal(t, 16, d.Build(false))
	order, err := d.ByteOrder()
	require.NoError(t, err)
	assert.Equal(t, binary.BigEndian, order)
	d.PutUint8(0, 0xAB)
	d.PutUint16(2, 0x0102)
	d.PutUint32(4, 0x03040506)
	d.PutUint64(8, 0x0708090A0B0C0D0E)
	assert.Equal(t, []byte{0xAB, 0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14}, d.Raw())

	// Build without force keeps the content
	d.Build(false)
	assert.Equal(t, uint8(0xAB), d.Uint8(0))
	d.Build(true)
	assert.Equal(t, uint8(0), d.Uint8(0))
}

func TestSimpleLittleEndian(t *testing.T) {
	d := NewSimpleDatagram(4)
	d.SetByteOrder(binary.LittleEndian)
	d.Build(false)
	d.PutUint32(0, 0x01020304)
	assert.Equal(t, []byte{4, 3, 2, 1}, d.Raw())
}

func TestSimpleWrapIsView(t *testing.T) {
	buf := make([]byte, 10)
	d := NewSimpleDatagram(4)
	next, err := d.Wrap(buf, 3)
	require.NoError(t, err)
	assert.Equal(t, 7, next)
	d.PutUint16(0, 0xBEEF)
	assert.Equal(t, []byte{0xBE, 0xEF}, buf[3:5])

	_, err = d.Wrap(buf, 8)
	assert.True(t, goerrors.Is(err, errors.ErrShortBuffer))
}

func TestComposedLength(t *testing.T) {
	tests := []struct {
		sizes []int
		want  int
	}{
		{nil, 0},
		{[]int{16}, 16},
		{[]int{16, 24, 12}, 52},
		{[]int{1, 2, 3, 4}, 10},
	}
	for _, tc := range tests {
		c := NewComposedDatagram()
		for _, sz := range tc.sizes {
			d := NewSimpleDatagram(sz)
			d.Build(false)
			c.AddDatagram(d)
		}
		n, err := c.Length()
		require.NoError(t, err)
		assert.Equal(t, tc.want, n)
		bufs, err := c.Buffers()
		require.NoError(t, err)
		assert.Len(t, bufs, len(tc.sizes))
	}
}

func TestComposedByteOrder(t *testing.T) {
	a := NewSimpleDatagram(4)
	b := NewSimpleDatagram(4)
	a.Build(false)
	b.Build(false)
	c := NewComposedDatagram(a, b)
	order, err := c.ByteOrder()
	require.NoError(t, err)
	assert.Equal(t, binary.BigEndian, order)

	le := NewSimpleDatagram(2)
	le.SetByteOrder(binary.LittleEndian)
	le.Build(false)
	c.AddDatagram(le)
	_, err = c.ByteOrder()
	assert.True(t, goerrors.Is(err, errors.ErrMixedByteOrder))

	// nested mixed composition poisons the parent
	parent := NewComposedDatagram(c)
	_, err = parent.ByteOrder()
	assert.True(t, goerrors.Is(err, errors.ErrMixedByteOrder))

	assert.True(t, c.RemoveDatagram(le))
	order, err = c.ByteOrder()
	require.NoError(t, err)
	assert.Equal(t, binary.BigEndian, order)
	n, _ := c.Length()
	assert.Equal(t, 8, n)
}

func TestComposedWrapAdvancesOffset(t *testing.T) {
	buf := make([]byte, 200)
	c := NewComposedDatagram(NewSimpleDatagram(16), NewSimpleDatagram(24), NewSimpleDatagram(12))
	assert.False(t, c.HasBuffer())

	next, err := c.Wrap(buf, 100)
	require.NoError(t, err)
	assert.Equal(t, 152, next)
	n, err := c.Length()
	require.NoError(t, err)
	assert.Equal(t, 52, n)

	_, err = NewComposedDatagram(NewSimpleDatagram(16), NewSimpleDatagram(24)).Wrap(buf, 180)
	assert.True(t, goerrors.Is(err, errors.ErrShortBuffer))
}

func TestComposedDirtyChild(t *testing.T) {
	built := NewSimpleDatagram(8)
	built.Build(false)
	lazy := NewSimpleDatagram(4)
	c := NewComposedDatagram(built, lazy)

	_, err := c.Length()
	assert.True(t, goerrors.Is(err, errors.ErrNotBuilt))
	_, err = Bytes(c)
	assert.True(t, goerrors.Is(err, errors.ErrNotBuilt))

	lazy.Build(false)
	n, err := c.Length()
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	assert.True(t, c.RemoveDatagram(built))
	assert.False(t, c.RemoveDatagram(built))
	n, err = c.Length()
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestBytesAndWriteTo(t *testing.T) {
	a := NewSimpleDatagram(2)
	b := NewSimpleDatagram(3)
	c := NewComposedDatagram(a, b)
	assert.Equal(t, 5, c.Build(false))
	a.PutUint16(0, 0x0102)
	b.PutBytes(0, []byte{3, 4, 5})

	out, err := Bytes(c)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4, 5}, out)

	var w bytes.Buffer
	n, err := WriteTo(&w, c)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
	assert.Equal(t, out, w.Bytes())

	// the internal buffer list survives a vectored write
	again, err := Bytes(c)
	require.NoError(t, err)
	assert.Equal(t, out, again)
}
