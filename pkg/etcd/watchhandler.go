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

package etcd

import (
	"context"
	"reflect"
	"sort"
	"sync"

	"github.com/golang/glog"
	clientv3 "go.etcd.io/etcd/client/v3"

	"fmclient/pkg/io"
)

type IWatchHandler interface {
	OnEvent(e ...*clientv3.Event)
}

// RefreshFunc receives every new or changed subnet description.
type RefreshFunc func(desc io.SubnetDescription) error

// SubnetWatcher keeps the subnet descriptions of one scope and hands
// changes to a RefreshFunc.
type SubnetWatcher struct {
	cli     *EtcdClient
	refresh RefreshFunc

	mu      sync.Mutex
	subnets map[string]io.SubnetDescription
	cancel  context.CancelFunc
}

var _ IWatchHandler = (*SubnetWatcher)(nil)

func NewSubnetWatcher(cli *EtcdClient, refresh RefreshFunc) *SubnetWatcher {
	return &SubnetWatcher{
		cli:     cli,
		refresh: refresh,
		subnets: make(map[string]io.SubnetDescription),
	}
}

// Start loads the current descriptions, refreshing each, then watches for
// changes made after the load.
func (w *SubnetWatcher) Start() error {
	reader := SubnetReader{etcdcli: w.cli}
	descs, rev, err := reader.Read()
	if err != nil {
		return err
	}
	for _, d := range descs {
		w.apply(d)
	}
	cancel, err := w.cli.Watch(TagSubnetPrefix+TagCompDelimiter, w,
		clientv3.WithPrefix(), clientv3.WithRev(rev+1))
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.cancel = cancel
	w.mu.Unlock()
	glog.Infof("etcd: %d subnet(s) loaded at revision %d", len(descs), rev)
	return nil
}

func (w *SubnetWatcher) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	w.cancel = nil
	w.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (w *SubnetWatcher) OnEvent(events ...*clientv3.Event) {
	for _, ev := range events {
		if ev.Kv == nil {
			continue
		}
		key := string(ev.Kv.Key)
		if ev.Type == clientv3.EventTypeDelete {
			if name, ok := SubnetNameOf(key); ok {
				w.mu.Lock()
				delete(w.subnets, name)
				w.mu.Unlock()
				// Dispatchers already running keep their last host list.
				glog.Warningf("etcd: subnet %s removed", name)
			}
			continue
		}
		desc, err := DecodeSubnet(key, ev.Kv.Value)
		if err != nil {
			glog.Warningf("etcd: ignore %s: %v", key, err)
			continue
		}
		w.apply(desc)
	}
}

func (w *SubnetWatcher) apply(desc io.SubnetDescription) {
	w.mu.Lock()
	if prev, ok := w.subnets[desc.Name]; ok && reflect.DeepEqual(prev.Hosts, desc.Hosts) {
		w.mu.Unlock()
		return
	}
	w.subnets[desc.Name] = desc.Clone()
	w.mu.Unlock()

	if w.refresh == nil {
		return
	}
	if err := w.refresh(desc); err != nil {
		glog.Errorf("etcd: refresh subnet %s: %v", desc.Name, err)
	} else if glog.V(1) {
		glog.Infof("etcd: subnet %s refreshed with %d host(s)", desc.Name, len(desc.Hosts))
	}
}

// Subnets returns the known descriptions sorted by name.
func (w *SubnetWatcher) Subnets() []io.SubnetDescription {
	w.mu.Lock()
	descs := make([]io.SubnetDescription, 0, len(w.subnets))
	for _, d := range w.subnets {
		descs = append(descs, d.Clone())
	}
	w.mu.Unlock()
	sort.Slice(descs, func(i, j int) bool { return descs[i].Name < descs[j].Name })
	return descs
}
