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

	"fmclient/pkg/proto"
)

// SAHelper issues Subnet Administration queries on one statement.
type SAHelper struct {
	st *Statement
}

func (h *SAHelper) GetClassPortInfo() (*proto.ClassPortInfo, error) {
	return executeClassPortInfo(h.st, proto.MgmtClassSubnAdm)
}

// GetNotices returns the notices the SA holds.
func (h *SAHelper) GetNotices() ([]*proto.Notice, error) {
	values, err := h.st.Execute(NewNoticeCommand())
	if err != nil {
		return nil, err
	}
	out := make([]*proto.Notice, 0, len(values))
	for _, v := range values {
		if n, ok := v.(*proto.Notice); ok {
			out = append(out, n)
		}
	}
	return out, nil
}

// PAHelper issues Performance Administration queries on one statement.
type PAHelper struct {
	st *Statement
}

func (h *PAHelper) GetClassPortInfo() (*proto.ClassPortInfo, error) {
	return executeClassPortInfo(h.st, proto.MgmtClassPerfAdm)
}

func (h *PAHelper) GetGroupList() ([]string, error) {
	values, err := h.st.Execute(NewGroupListCommand())
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func executeClassPortInfo(st *Statement, class proto.MgmtClass) (*proto.ClassPortInfo, error) {
	values, err := st.Execute(NewClassPortInfoCommand(class))
	if err != nil {
		return nil, err
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("%s ClassPortInfo: %d values", class, len(values))
	}
	cpi, ok := values[0].(*proto.ClassPortInfo)
	if !ok {
		return nil, fmt.Errorf("%s ClassPortInfo: unexpected %T", class, values[0])
	}
	return cpi, nil
}
