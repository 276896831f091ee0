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

package util

import (
	"strings"
	"testing"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDurationFromToml(t *testing.T) {
	var c struct {
		Timeout Duration
	}
	_, err := toml.Decode(`Timeout = "1500ms"`, &c)
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, c.Timeout.Duration)

	text, err := c.Timeout.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1.5s", string(text))
}

func TestTimerWrapper(t *testing.T) {
	tw := NewTimerWrapper(time.Hour)
	assert.True(t, tw.IsStopped())
	assert.Nil(t, tw.GetTimeoutCh())

	tw.Reset(5 * time.Millisecond)
	assert.False(t, tw.IsStopped())
	select {
	case <-tw.GetTimeoutCh():
		tw.Fired()
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}
	assert.True(t, tw.IsStopped())

	tw.Reset(time.Hour)
	tw.Stop()
	assert.Nil(t, tw.GetTimeoutCh())
}

func TestHexDump(t *testing.T) {
	tests := []struct {
		data  []byte
		lines int
	}{
		{nil, 0},
		{[]byte("abc"), 1},
		{make([]byte, 16), 1},
		{make([]byte, 17), 2},
	}
	for _, tc := range tests {
		out := HexDump(tc.data)
		assert.Equal(t, tc.lines, strings.Count(out, "\n"))
	}
	assert.Contains(t, HexDump([]byte("abc")), "61 62 63")
}

func TestProcessSeedVaries(t *testing.T) {
	now := time.Now()
	assert.NotEqual(t, ProcessSeed(now), ProcessSeed(now.Add(time.Nanosecond)))
}
