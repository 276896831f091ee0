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
	"time"

	"go.uber.org/atomic"

	"fmclient/pkg/util"
)

// TransactionIdGenerator hands out transaction ids whose upper 32 bits
// identify the process and whose lower 32 bits count. Zero is never issued.
type TransactionIdGenerator struct {
	seed    uint64
	counter *atomic.Uint32
}

func NewTransactionIdGenerator() *TransactionIdGenerator {
	return NewTransactionIdGeneratorWithSeed(util.ProcessSeed(time.Now()))
}

func NewTransactionIdGeneratorWithSeed(seed uint32) *TransactionIdGenerator {
	return &TransactionIdGenerator{
		seed:    uint64(seed) << 32,
		counter: atomic.NewUint32(0),
	}
}

func (g *TransactionIdGenerator) Next() uint64 {
	for {
		tid := g.seed | uint64(g.counter.Inc())
		if tid != 0 {
			return tid
		}
	}
}

var defaultTidGenerator = NewTransactionIdGenerator()

// NextTransactionId draws from the process-wide generator.
func NextTransactionId() uint64 {
	return defaultTidGenerator.Next()
}
