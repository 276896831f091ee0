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
	goio "io"
	"os/signal"
	"sync"
	"syscall"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"fmclient/pkg/etcd"
	"fmclient/pkg/proto"
)

type noticePrinter struct {
	mu  sync.Mutex
	out goio.Writer
}

func (p *noticePrinter) OnNotice(subnet string, n *proto.Notice) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "%s: %s\n", subnet, n)
}

func newNoticesCommand(a *app) *cobra.Command {
	var follow bool
	c := &cobra.Command{
		Use:   "notices",
		Short: "Show the notices queued at the SA",
		Long: `notices prints the notices the SA holds. With --follow it keeps the
session open and prints reports as they are pushed until interrupted. Host
list changes made in etcd are applied while following.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			printer := &noticePrinter{out: cmd.OutOrStdout()}
			if follow {
				a.adapter.SetNoticeHandler(printer)
			}
			s, err := a.session()
			if err != nil {
				return err
			}
			defer s.Close()
			sa, err := s.GetSAHelper()
			if err != nil {
				return err
			}
			notices, err := sa.GetNotices()
			if err != nil {
				return fmt.Errorf("failed to get notices: %w", err)
			}
			for _, n := range notices {
				printer.OnNotice(s.GetSubnet(), n)
			}
			if !follow {
				return nil
			}

			if len(a.etcdConf.Endpoints) != 0 {
				if _, err = a.connectEtcd(); err != nil {
					return err
				}
				w := etcd.NewSubnetWatcher(etcd.GetEtcdCli(), a.adapter.RefreshSubnetDescription)
				if err = w.Start(); err != nil {
					return err
				}
				defer w.Stop()
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			glog.V(1).Infof("following notices of %s", s.GetSubnet())
			<-ctx.Done()
			return nil
		},
	}
	c.Flags().BoolVarP(&follow, "follow", "f", false, "keep printing reported notices")
	return c
}
