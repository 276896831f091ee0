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
	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"fmclient/pkg/client"
)

func newConfigCommand(a *app) *cobra.Command {
	var kv bool
	c := &cobra.Command{
		Use:   "config",
		Short: "Print the effective adapter configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if kv {
				a.settings.WriteToKVList(out)
				return nil
			}
			return toml.NewEncoder(out).Encode(struct {
				Adapter client.Config
			}{a.adapter.GetConfig()})
		},
	}
	c.Flags().BoolVar(&kv, "kv", false, "print the settings read as key value pairs instead")
	return c
}
