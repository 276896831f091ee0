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

// ComposedDatagram is an ordered list of child datagrams laid out back to
// back. Its length is the sum of the children's lengths and its buffers are
// the children's buffers flattened in registration order. A composition
// whose children disagree on byte order has no byte order.
//
// Adding a child that has no buffer yet marks the aggregate dirty. It is
// recomputed on the next Build, Wrap or read.
type ComposedDatagram struct {
	children []IDatagram
	length   int
	buffers  [][]byte
	order    binary.ByteOrder
	mixed    bool
	dirty    bool
}

var _ IDatagram = (*ComposedDatagram)(nil)

func NewComposedDatagram(children ...IDatagram) *ComposedDatagram {
	c := &ComposedDatagram{}
	for _, d := range children {
		c.AddDatagram(d)
	}
	return c
}

func (c *ComposedDatagram) AddDatagram(d IDatagram) {
	c.children = append(c.children, d)
	if c.dirty || !d.HasBuffer() {
		c.dirty = true
		return
	}
	c.absorb(d)
}

// RemoveDatagram removes the first occurrence of d. It reports whether d
// was a child.
func (c *ComposedDatagram) RemoveDatagram(d IDatagram) bool {
	idx := -1
	for i, child := range c.children {
		if child == d {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	c.children = append(c.children[:idx], c.children[idx+1:]...)
	if c.dirty {
		return true
	}
	if !d.HasBuffer() {
		// d was built after it was added; the aggregate never saw it
		c.dirty = true
		return true
	}
	if n, err := d.Length(); err == nil {
		c.length -= n
	}
	c.rebuildBuffers()
	if c.mixed {
		c.recomputeOrder()
	}
	return true
}

func (c *ComposedDatagram) Children() []IDatagram {
	return c.children
}

func (c *ComposedDatagram) Build(force bool) int {
	for _, d := range c.children {
		d.Build(force)
	}
	c.recompute()
	return c.length
}

func (c *ComposedDatagram) Wrap(buf []byte, offset int) (int, error) {
	var err error
	for _, d := range c.children {
		if offset, err = d.Wrap(buf, offset); err != nil {
			c.dirty = true
			return offset, err
		}
	}
	c.recompute()
	return offset, nil
}

func (c *ComposedDatagram) HasBuffer() bool {
	for _, d := range c.children {
		if !d.HasBuffer() {
			return false
		}
	}
	return true
}

func (c *ComposedDatagram) Length() (int, error) {
	if err := c.refresh(); err != nil {
		return 0, err
	}
	return c.length, nil
}

func (c *ComposedDatagram) ByteOrder() (binary.ByteOrder, error) {
	if err := c.refresh(); err != nil {
		return nil, err
	}
	if c.mixed {
		return nil, errors.ErrMixedByteOrder
	}
	if c.order == nil {
		return binary.BigEndian, nil
	}
	return c.order, nil
}

func (c *ComposedDatagram) Buffers() ([][]byte, error) {
	if err := c.refresh(); err != nil {
		return nil, err
	}
	out := make([][]byte, len(c.buffers))
	copy(out, c.buffers)
	return out, nil
}

func (c *ComposedDatagram) refresh() error {
	if !c.dirty {
		return nil
	}
	if !c.HasBuffer() {
		return errors.ErrNotBuilt
	}
	c.recompute()
	return nil
}

func (c *ComposedDatagram) recompute() {
	c.length = 0
	c.buffers = c.buffers[:0]
	c.order = nil
	c.mixed = false
	c.dirty = false
	for _, d := range c.children {
		if !d.HasBuffer() {
			c.dirty = true
			continue
		}
		c.absorb(d)
	}
}

func (c *ComposedDatagram) absorb(d IDatagram) {
	if n, err := d.Length(); err == nil {
		c.length += n
	}
	if bufs, err := d.Buffers(); err == nil {
		c.buffers = append(c.buffers, bufs...)
	}
	c.mergeOrder(d)
}

func (c *ComposedDatagram) mergeOrder(d IDatagram) {
	o, err := d.ByteOrder()
	if err != nil {
		c.mixed = true
		return
	}
	if c.order == nil {
		c.order = o
	} else if !sameOrder(c.order, o) {
		c.mixed = true
	}
}

func (c *ComposedDatagram) rebuildBuffers() {
	c.buffers = c.buffers[:0]
	for _, d := range c.children {
		if bufs, err := d.Buffers(); err == nil {
			c.buffers = append(c.buffers, bufs...)
		}
	}
}

func (c *ComposedDatagram) recomputeOrder() {
	c.order = nil
	c.mixed = false
	for _, d := range c.children {
		if d.HasBuffer() {
			c.mergeOrder(d)
		}
	}
}
