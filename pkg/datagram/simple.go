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
	"encoding/binary"

	"fmclient/pkg/errors"
)

// SimpleDatagram is a fixed-size record over one buffer. Field accessors
// take byte offsets relative to the start of the record and panic if the
// datagram has no buffer, like slice indexing does.
type SimpleDatagram struct {
	size  int
	buf   []byte
	order binary.ByteOrder
}

var _ IDatagram = (*SimpleDatagram)(nil)

// NewSimpleDatagram returns an unbuilt big-endian datagram of size bytes.
func NewSimpleDatagram(size int) *SimpleDatagram {
	return &SimpleDatagram{size: size, order: binary.BigEndian}
}

// SetByteOrder changes the order used by the field accessors.
func (d *SimpleDatagram) SetByteOrder(order binary.ByteOrder) {
	d.order = order
}

// Size is the static size in bytes, available before Build or Wrap.
func (d *SimpleDatagram) Size() int {
	return d.size
}

func (d *SimpleDatagram) Build(force bool) int {
	if d.buf == nil || force {
		d.buf = make([]byte, d.size)
	}
	return d.size
}

func (d *SimpleDatagram) Wrap(buf []byte, offset int) (int, error) {
	if offset < 0 || len(buf)-offset < d.size {
		return offset, errors.ErrShortBuffer
	}
	end := offset + d.size
	d.buf = buf[offset:end:end]
	return end, nil
}

func (d *SimpleDatagram) HasBuffer() bool {
	return d.buf != nil
}

func (d *SimpleDatagram) Length() (int, error) {
	if d.buf == nil {
		return 0, errors.ErrNotBuilt
	}
	return d.size, nil
}

func (d *SimpleDatagram) ByteOrder() (binary.ByteOrder, error) {
	if d.buf == nil {
		return nil, errors.ErrNotBuilt
	}
	return d.order, nil
}

func (d *SimpleDatagram) Buffers() ([][]byte, error) {
	if d.buf == nil {
		return nil, errors.ErrNotBuilt
	}
	return [][]byte{d.buf}, nil
}

// Raw returns the backing buffer, nil if unbuilt.
func (d *SimpleDatagram) Raw() []byte {
	return d.buf
}

func (d *SimpleDatagram) Uint8(off int) uint8 {
	return d.buf[off]
}

func (d *SimpleDatagram) PutUint8(off int, v uint8) {
	d.buf[off] = v
}

func (d *SimpleDatagram) Uint16(off int) uint16 {
	return d.order.Uint16(d.buf[off:])
}

func (d *SimpleDatagram) PutUint16(off int, v uint16) {
	d.order.PutUint16(d.buf[off:], v)
}

func (d *SimpleDatagram) Uint32(off int) uint32 {
	return d.order.Uint32(d.buf[off:])
}

func (d *SimpleDatagram) PutUint32(off int, v uint32) {
	d.order.PutUint32(d.buf[off:], v)
}

func (d *SimpleDatagram) Uint64(off int) uint64 {
	return d.order.Uint64(d.buf[off:])
}

func (d *SimpleDatagram) PutUint64(off int, v uint64) {
	d.order.PutUint64(d.buf[off:], v)
}

// Slice returns n bytes at off without copying.
func (d *SimpleDatagram) Slice(off int, n int) []byte {
	return d.buf[off : off+n]
}

// PutBytes copies b at off, truncated to the datagram's end.
func (d *SimpleDatagram) PutBytes(off int, b []byte) int {
	return copy(d.buf[off:], b)
}
