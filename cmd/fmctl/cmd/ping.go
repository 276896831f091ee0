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

package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"fmclient/pkg/io"
)

func newPingCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ping [[ssl:]host:port ...]",
		Short: "Read the SA ClassPortInfo of each host",
		Long: `ping connects to each host on its own and reads its SA ClassPortInfo.
Without arguments the hosts of the selected subnet are used. It fails if no
host answers.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var hosts []io.ServiceEndpoint
			if len(args) != 0 {
				for _, s := range args {
					var ep io.ServiceEndpoint
					if err := ep.SetFromConnString(s); err != nil {
						return err
					}
					ep.SSLEnabled = ep.SSLEnabled || a.opts.ssl
					hosts = append(hosts, ep)
				}
			} else {
				desc, err := a.subnetDescription()
				if err != nil {
					return err
				}
				hosts = desc.Hosts
			}

			out := cmd.OutOrStdout()
			numOk := 0
			for _, h := range hosts {
				start := time.Now()
				cpi, err := a.adapter.TestConnection(h)
				if err != nil {
					fmt.Fprintf(out, "%s: %v\n", h, err)
					continue
				}
				numOk++
				fmt.Fprintf(out, "%s: ok in %s base=%d class=%d capmask=%#04x resptime=%d\n",
					h, time.Since(start).Round(time.Microsecond), cpi.BaseVersion, cpi.ClassVersion,
					cpi.CapMask, cpi.RespTimeValue)
			}
			if numOk == 0 {
				return fmt.Errorf("no host answered")
			}
			return nil
		},
	}
}
