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
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"fmclient/pkg/cfg"
	"fmclient/pkg/client"
	"fmclient/pkg/etcd"
	"fmclient/pkg/initmgr"
	"fmclient/pkg/io"
	"fmclient/pkg/logging/otel"
	otelCfg "fmclient/pkg/logging/otel/config"
)

type options struct {
	cfgFile         string
	subnet          string
	hosts           []string
	ssl             bool
	caFile          string
	certFile        string
	keyFile         string
	serverName      string
	insecure        bool
	timeout         time.Duration
	failoverTimeout time.Duration
	networkDebug    bool
	etcdEndpoints   []string
	etcdScope       string
}

// app carries the state one command line invocation sets up.
type app struct {
	opts     options
	settings cfg.Config
	registry initmgr.Registry
	adapter  *client.Adapter
	etcdConf etcd.Config
}

// NewRootCommand builds the fmctl command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "fmctl",
		Short: "Query fabric Subnet Managers",
		Long: `fmctl talks to the Subnet Managers of a fabric over their out-of-band
interface. Hosts are taken from --hosts, the [Subnet] table of the config
file, or the subnet descriptions kept in etcd.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.teardown()
		},
	}

	f := root.PersistentFlags()
	f.StringVarP(&a.opts.cfgFile, "config", "c", "", "TOML config file")
	f.StringVarP(&a.opts.subnet, "subnet", "s", "fabric", "subnet name")
	f.StringSliceVarP(&a.opts.hosts, "hosts", "H", nil, "Subnet Manager hosts, primary first ([ssl:]host:port)")
	f.BoolVar(&a.opts.ssl, "ssl", false, "use TLS for every host")
	f.StringVar(&a.opts.caFile, "ca", "", "CA certificate PEM file")
	f.StringVar(&a.opts.certFile, "cert", "", "client certificate PEM file")
	f.StringVar(&a.opts.keyFile, "key", "", "client key PEM file")
	f.StringVar(&a.opts.serverName, "server-name", "", "expected server name in the certificate")
	f.BoolVar(&a.opts.insecure, "insecure", false, "skip server certificate verification")
	f.DurationVarP(&a.opts.timeout, "timeout", "t", 0, "statement timeout")
	f.DurationVar(&a.opts.failoverTimeout, "failover-timeout", 0, "failover timeout")
	f.BoolVar(&a.opts.networkDebug, "network-debug", false, "dump frames sent and received")
	f.StringSliceVar(&a.opts.etcdEndpoints, "etcd", nil, "etcd endpoints holding subnet descriptions")
	f.StringVar(&a.opts.etcdScope, "etcd-scope", "default", "etcd key scope")
	// glog flags: --v, --logtostderr, ...
	f.AddGoFlagSet(flag.CommandLine)

	root.AddCommand(
		newPingCommand(a),
		newGroupsCommand(a),
		newNoticesCommand(a),
		newConfigCommand(a),
		newSubnetCommand(a),
		newVersionCommand(),
	)
	return root
}

// Execute runs fmctl with the process arguments.
func Execute() {
	err := NewRootCommand().ExecuteContext(context.Background())
	glog.Flush()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func (a *app) setup(cmd *cobra.Command) (err error) {
	if len(a.opts.cfgFile) != 0 {
		if err = a.settings.ReadFromTomlFile(a.opts.cfgFile); err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
	}
	a.applyFlags(cmd)

	if a.settings.GetValue("OTEL") != nil {
		oc := &otelCfg.Config{}
		if err = a.settings.WriteSectionTo("OTEL", oc); err != nil {
			return err
		}
		a.registry.Register(initmgr.NewNamedInitializer("otel", otel.Initialize, otel.Finalize), oc)
	}
	if err = a.registry.Init(); err != nil {
		return err
	}

	a.etcdConf = etcd.DefaultConfig()
	if a.settings.GetValue("Etcd") != nil {
		if err = a.settings.WriteSectionTo("Etcd", &a.etcdConf); err != nil {
			return err
		}
	}
	if len(a.opts.etcdEndpoints) != 0 {
		a.etcdConf.Endpoints = a.opts.etcdEndpoints
	}

	if a.adapter, err = client.NewAdapter(client.DefaultConfig); err != nil {
		return err
	}
	return a.adapter.Initialize(&a.settings)
}

// applyFlags overrides config file settings with the flags given.
func (a *app) applyFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	set := func(name string, key string, v interface{}) {
		if f.Changed(name) {
			a.settings.SetKeyValue(key, v)
		}
	}
	set("timeout", "Adapter.StatementTimeout", a.opts.timeout.String())
	set("failover-timeout", "Adapter.FailoverTimeout", a.opts.failoverTimeout.String())
	set("network-debug", "Adapter.NetworkDebug", a.opts.networkDebug)
	set("ca", "Adapter.Sec.CAFilePath", a.opts.caFile)
	set("cert", "Adapter.Sec.CertPemFilePath", a.opts.certFile)
	set("key", "Adapter.Sec.KeyPemFilePath", a.opts.keyFile)
	set("server-name", "Adapter.Sec.ServerName", a.opts.serverName)
	set("insecure", "Adapter.Sec.InsecureSkipVerify", a.opts.insecure)
	if f.Changed("cert") {
		a.settings.SetKeyValue("Adapter.Sec.ClientAuth", true)
	}
	if a.opts.ssl {
		a.settings.SetKeyValue("Adapter.Sec.AppName", "fmctl")
	}
}

func (a *app) teardown() {
	if a.adapter != nil {
		a.adapter.Shutdown()
	}
	etcd.Close()
	a.registry.Finalize()
}

type subnetSection struct {
	Name  string
	Hosts []string
}

// subnetDescription resolves the hosts of the selected subnet.
func (a *app) subnetDescription() (desc io.SubnetDescription, err error) {
	switch {
	case len(a.opts.hosts) != 0:
		desc, err = io.NewSubnetDescription(a.opts.subnet, a.opts.hosts...)
	case a.settings.GetValue("Subnet") != nil:
		var s subnetSection
		if err = a.settings.WriteSectionTo("Subnet", &s); err != nil {
			return
		}
		if len(s.Name) == 0 {
			s.Name = a.opts.subnet
		}
		desc, err = io.NewSubnetDescription(s.Name, s.Hosts...)
	case len(a.etcdConf.Endpoints) != 0:
		desc, err = a.subnetFromEtcd()
	default:
		err = fmt.Errorf("no Subnet Manager host given, use --hosts")
	}
	if err == nil && a.opts.ssl {
		for i := range desc.Hosts {
			desc.Hosts[i].SSLEnabled = true
		}
	}
	return
}

func (a *app) connectEtcd() (*etcd.EtcdReadWriter, error) {
	if len(a.etcdConf.Endpoints) == 0 {
		return nil, fmt.Errorf("no etcd endpoint given, use --etcd")
	}
	if err := etcd.Connect(&a.etcdConf, a.opts.etcdScope); err != nil {
		return nil, err
	}
	return etcd.GetClsReadWriter(), nil
}

func (a *app) subnetFromEtcd() (desc io.SubnetDescription, err error) {
	rw, err := a.connectEtcd()
	if err != nil {
		return
	}
	descs, _, err := rw.Read()
	if err != nil {
		return
	}
	for _, d := range descs {
		if d.Name == a.opts.subnet {
			return d, nil
		}
	}
	err = fmt.Errorf("subnet %s not found in etcd scope %s", a.opts.subnet, a.opts.etcdScope)
	return
}

func (a *app) session() (*client.Session, error) {
	desc, err := a.subnetDescription()
	if err != nil {
		return nil, err
	}
	return a.adapter.GetSession(desc)
}
