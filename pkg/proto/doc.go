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
Package proto implements the management datagram (MAD) frames exchanged
with a Subnet Manager over an out-of-band (OOB) TCP connection.

All multi-byte fields are big-endian.

OOB Header (16 bytes)

	  ------+---------------------------------------------------------------+
	  Byte  | 0             | 1             | 2             | 3             |
	  ------+---------------------------------------------------------------+
	      0 | version                                                       |
	  ------+---------------------------------------------------------------+
	      4 | payload length (bytes following this header)                  |
	  ------+---------------------------------------------------------------+
	      8 | reserved                                                      |
	     12 |                                                               |
	  ------+---------------------------------------------------------------+

MAD Common Header (24 bytes)

	  ------+---------------+---------------+---------------+---------------+
	      0 | base version  | mgmt class    | class version | method        |
	  ------+---------------+---------------+---------------+---------------+
	      4 | status                        | hop pointer   | hop count     |
	  ------+-------------------------------+---------------+---------------+
	      8 | transaction id                                                |
	     12 |                                                               |
	  ------+-------------------------------+-------------------------------+
	     16 | attribute id                  | reserved                      |
	  ------+-------------------------------+-------------------------------+
	     20 | attribute modifier                                            |
	  ------+---------------------------------------------------------------+

RMPP Header (12 bytes)

	  ------+---------------+---------------+---------------+---------------+
	      0 | rmpp version  | rmpp type     | resptime|flags| rmpp status   |
	  ------+---------------+---------------+---------------+---------------+
	      4 | segment number                                                |
	  ------+---------------------------------------------------------------+
	      8 | payload length / new window last                              |
	  ------+---------------------------------------------------------------+

SA Header (20 bytes), used by the SA and PA classes after the RMPP header

	  ------+-------------------------------+-------------------------------+
	      0 | SM key                                                        |
	      4 |                                                               |
	  ------+-------------------------------+-------------------------------+
	      8 | attribute offset (8B units)   | reserved                      |
	  ------+-------------------------------+-------------------------------+
	     12 | component mask                                                |
	     16 |                                                               |
	  ------+---------------------------------------------------------------+
*/
package proto
