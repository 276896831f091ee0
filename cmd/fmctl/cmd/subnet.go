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

	"github.com/spf13/cobra"

	"fmclient/pkg/etcd"
	"fmclient/pkg/io"
)

func newSubnetCommand(a *app) *cobra.Command {
	var dryRun bool
	c := &cobra.Command{
		Use:   "subnet",
		Short: "Manage subnet descriptions kept in etcd",
	}
	c.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "print the etcd writes instead of applying them")

	writer := func(cmd *cobra.Command) (*etcd.SubnetWriter, error) {
		if dryRun {
			return etcd.NewDryRunWriter(&a.etcdConf, a.opts.etcdScope, cmd.OutOrStdout()), nil
		}
		rw, err := a.connectEtcd()
		if err != nil {
			return nil, err
		}
		return &rw.SubnetWriter, nil
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List subnet descriptions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rw, err := a.connectEtcd()
			if err != nil {
				return err
			}
			descs, rev, err := rw.Read()
			if err != nil {
				return err
			}
			for _, d := range descs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%v\n", d.Name, d.Hosts)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "(revision %d)\n", rev)
			return nil
		},
	}
	put := &cobra.Command{
		Use:   "put <name> <[ssl:]host:port> ...",
		Short: "Store the host list of a subnet",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			desc, err := io.NewSubnetDescription(args[0], args[1:]...)
			if err != nil {
				return err
			}
			w, err := writer(cmd)
			if err != nil {
				return err
			}
			return w.Write(desc)
		},
	}
	del := &cobra.Command{
		Use:   "delete <name>",
		Short: "Remove the description of a subnet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := writer(cmd)
			if err != nil {
				return err
			}
			return w.Remove(args[0])
		},
	}
	c.AddCommand(list, put, del)
	return c
}
