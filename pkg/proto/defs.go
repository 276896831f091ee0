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
	"fmt"
)

const (
	OobHeaderSize  = 16
	CommonMadSize  = 24
	RmppHeaderSize = 12
	SaHeaderSize   = 20

	// MaxMadSize bounds one reassembled OOB payload.
	MaxMadSize = 4 * 1024 * 1024

	OobVersion      uint32 = 1
	StlBaseVersion  uint8  = 0x80
	StlClassVersion uint8  = 0x80
)

type MgmtClass uint8

const (
	MgmtClassSubnAdm  MgmtClass = 0x03
	MgmtClassPerfMgt  MgmtClass = 0x04
	MgmtClassPerfAdm  MgmtClass = 0x32
	MgmtClassVendorFe MgmtClass = 0x0A
)

var mgmtClassNames = map[MgmtClass]string{
	MgmtClassSubnAdm:  "SA",
	MgmtClassPerfMgt:  "PM",
	MgmtClassPerfAdm:  "PA",
	MgmtClassVendorFe: "FE",
}

func (c MgmtClass) String() string {
	if s, ok := mgmtClassNames[c]; ok {
		return s
	}
	return fmt.Sprintf("class(0x%02x)", uint8(c))
}

type Method uint8

const (
	MethodGet          Method = 0x01
	MethodSet          Method = 0x02
	MethodSend         Method = 0x03
	MethodTrap         Method = 0x05
	MethodReport       Method = 0x06
	MethodTrapRepress  Method = 0x07
	MethodGetTable     Method = 0x12
	MethodDelete       Method = 0x15
	MethodResponseMask Method = 0x80

	MethodGetResp      = MethodGet | MethodResponseMask
	MethodReportResp   = MethodReport | MethodResponseMask
	MethodGetTableResp = MethodGetTable | MethodResponseMask
)

func (m Method) IsResponse() bool {
	return m&MethodResponseMask != 0
}

// IsUnsolicited reports whether a frame with this method is pushed by the
// manager rather than answering a request.
func (m Method) IsUnsolicited() bool {
	return m == MethodTrap || m == MethodReport
}

func (m Method) String() string {
	switch m {
	case MethodGet:
		return "Get"
	case MethodSet:
		return "Set"
	case MethodSend:
		return "Send"
	case MethodTrap:
		return "Trap"
	case MethodReport:
		return "Report"
	case MethodTrapRepress:
		return "TrapRepress"
	case MethodGetTable:
		return "GetTable"
	case MethodDelete:
		return "Delete"
	case MethodGetResp:
		return "GetResp"
	case MethodReportResp:
		return "ReportResp"
	case MethodGetTableResp:
		return "GetTableResp"
	}
	return fmt.Sprintf("method(0x%02x)", uint8(m))
}

const (
	AttrClassPortInfo uint16 = 0x0001
	AttrNotice        uint16 = 0x0002
	AttrInformInfo    uint16 = 0x0003

	AttrPaGroupList uint16 = 0x00A0
	AttrPaGroupInfo uint16 = 0x00A1
	AttrPaGroupCfg  uint16 = 0x00A2
	AttrPaPortCntrs uint16 = 0x00A3
	AttrPaImageInfo uint16 = 0x00A7
	AttrPaVfList    uint16 = 0x00B0
	AttrPaVfInfo    uint16 = 0x00B1
)

// MAD status values. The low byte is common to all classes, the high byte
// is class specific.
const (
	MadStatusSuccess           uint16 = 0x0000
	MadStatusBusy              uint16 = 0x0001
	MadStatusRedirect          uint16 = 0x0002
	MadStatusBadClassVersion   uint16 = 0x0004
	MadStatusBadMethod         uint16 = 0x0008
	MadStatusBadMethodAttr     uint16 = 0x000C
	MadStatusBadAttrValue      uint16 = 0x001C
	MadStatusSaNoResources     uint16 = 0x0100
	MadStatusSaReqInvalid      uint16 = 0x0200
	MadStatusSaNoRecords       uint16 = 0x0300
	MadStatusSaTooManyRecords  uint16 = 0x0400
	MadStatusSaReqInvalidGid   uint16 = 0x0500
	MadStatusSaReqInsufficient uint16 = 0x0600
	MadStatusPaUnavailable     uint16 = 0x0A00
	MadStatusPaNoGroup         uint16 = 0x0B00
	MadStatusPaNoPort          uint16 = 0x0C00
	MadStatusPaNoImage         uint16 = 0x0D00
)

var madStatusText = map[uint16]string{
	MadStatusSuccess:           "success",
	MadStatusBusy:              "busy",
	MadStatusRedirect:          "redirect required",
	MadStatusBadClassVersion:   "bad class or version",
	MadStatusBadMethod:         "method not supported",
	MadStatusBadMethodAttr:     "method/attribute combination not supported",
	MadStatusBadAttrValue:      "invalid attribute value or modifier",
	MadStatusSaNoResources:     "insufficient resources",
	MadStatusSaReqInvalid:      "invalid request",
	MadStatusSaNoRecords:       "no records",
	MadStatusSaTooManyRecords:  "too many records",
	MadStatusSaReqInvalidGid:   "invalid GID",
	MadStatusSaReqInsufficient: "insufficient components",
	MadStatusPaUnavailable:     "PA engine unavailable",
	MadStatusPaNoGroup:         "no such group",
	MadStatusPaNoPort:          "no such port",
	MadStatusPaNoImage:         "no such image",
}

func MadStatusText(status uint16) string {
	if s, ok := madStatusText[status]; ok {
		return s
	}
	return fmt.Sprintf("status(0x%04x)", status)
}
