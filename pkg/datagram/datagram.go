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

/*
Package datagram implements fixed-layout binary records (SimpleDatagram) and
ordered compositions of them (ComposedDatagram). A datagram either owns a
buffer created by Build or is a view over caller memory created by Wrap.
*/
package datagram

import (
	"encoding/binary"
	"io"
	"net"
)

// IDatagram is a binary layout that can be materialized in memory.
type IDatagram interface {
	// Build allocates zeroed storage. Existing storage is kept unless force
	// is true. Returns the length in bytes.
	Build(force bool) int
	// Wrap makes the datagram a view over buf starting at offset and
	// returns the offset just past it.
	Wrap(buf []byte, offset int) (int, error)
	HasBuffer() bool
	Length() (int, error)
	ByteOrder() (binary.ByteOrder, error)
	// Buffers returns the backing slices in layout order.
	Buffers() ([][]byte, error)
}

// Bytes returns the contiguous encoding of d. A datagram over a single
// buffer is returned without copying.
func Bytes(d IDatagram) ([]byte, error) {
	bufs, err := d.Buffers()
	if err != nil {
		return nil, err
	}
	if len(bufs) == 1 {
		return bufs[0], nil
	}
	sz := 0
	for _, b := range bufs {
		sz += len(b)
	}
	out := make([]byte, 0, sz)
	for _, b := range bufs {
		out = append(out, b...)
	}
	return out, nil
}

// WriteTo writes d to w with a single vectored write where the platform
// supports it.
func WriteTo(w io.Writer, d IDatagram) (int64, error) {
	bufs, err := d.Buffers()
	if err != nil {
		return 0, err
	}
	nb := net.Buffers(bufs)
	return nb.WriteTo(w)
}

func sameOrder(a, b binary.ByteOrder) bool {
	return a.String() == b.String()
}
