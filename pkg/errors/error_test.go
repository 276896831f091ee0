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

package errors

import (
	goerrors "errors"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorIs(t *testing.T) {
	wrapped := pkgerrors.Wrapf(ErrTimeout, "tid %d", 42)
	assert.True(t, goerrors.Is(wrapped, ErrTimeout))
	assert.False(t, goerrors.Is(wrapped, ErrClosed))

	same := NewError("another timeout", KErrTimeout)
	assert.True(t, goerrors.Is(same, ErrTimeout))
	assert.Equal(t, KErrTimeout, same.ErrNo())
}

func TestMadStatusError(t *testing.T) {
	err := pkgerrors.Wrap(NewMadStatusError(0x0100, "busy"), "get")
	var st *MadStatusError
	if assert.True(t, goerrors.As(err, &st)) {
		assert.Equal(t, uint16(0x0100), st.Status)
	}
	assert.Contains(t, err.Error(), "0x0100")
}
