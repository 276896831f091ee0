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
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/golang/glog"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/client/v3/namespace"

	"fmclient/pkg/errors"
)

// etcd client wrapper. Keys are relative to EtcdKeyPrefix + scope + "_".
type EtcdClient struct {
	config    Config
	keyPrefix string
	client    *clientv3.Client
	closeOnce sync.Once
	doneCh    chan struct{}
	wg        sync.WaitGroup
}

const NotFound = "NotFound"

func NewEtcdClient(cfg *Config, scope string) (*EtcdClient, error) {
	conf := *cfg
	conf.SetDefaultIfNotDefined()
	if len(conf.Endpoints) == 0 {
		return nil, fmt.Errorf("etcd: no endpoint configured")
	}

	var client *clientv3.Client
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = time.Duration(conf.MaxConnectBackoff) * time.Second
	connect := func() (err error) {
		client, err = clientv3.New(conf.Config)
		return
	}
	notify := func(err error, next time.Duration) {
		glog.Warningf("etcd: %v. Retry in %s ...", err, next)
	}
	err := backoff.RetryNotify(connect, backoff.WithMaxRetries(b, uint64(conf.MaxConnectAttempts-1)), notify)
	if err != nil {
		glog.Warningf("etcd: %v.", err)
		return nil, err
	}

	e := &EtcdClient{
		client:    client,
		config:    conf,
		keyPrefix: conf.EtcdKeyPrefix + scope + TagCompDelimiter,
		doneCh:    make(chan struct{}),
	}
	e.client.KV = namespace.NewKV(client.KV, e.keyPrefix)
	e.client.Watcher = namespace.NewWatcher(client.Watcher, e.keyPrefix)
	return e, nil
}

// Close stops every watcher and closes the underlying client.
func (e *EtcdClient) Close() {
	e.closeOnce.Do(func() {
		close(e.doneCh)
		e.wg.Wait()
		if e.client != nil {
			e.client.Close()
		}
	})
}

func (e *EtcdClient) GetKeyPrefix() string {
	return e.keyPrefix
}

func (e *EtcdClient) GetValue(k string) (value string, err error) {
	var resp *clientv3.GetResponse
	resp, err = e.get(k)
	if err != nil {
		return
	}
	switch len(resp.Kvs) {
	case 1:
		value = string(resp.Kvs[0].Value)
	case 0:
		err = fmt.Errorf("key '%s%s' not found", e.keyPrefix, k)
		value = NotFound
	default:
		err = fmt.Errorf("unexpected response. %s", k)
	}
	return
}

func (e *EtcdClient) PutValue(key string, val string) (err error) {
	if e.client == nil {
		return errors.ErrNotBuilt
	}
	if glog.V(2) {
		valStr := val
		if len(val) >= 50 {
			valStr = val[:50] + " ..."
		}
		glog.Infof("etcd put: key=%s%s val=%s", e.keyPrefix, key, valStr)
	}
	ctx, cancel := context.WithTimeout(context.Background(), e.config.RequestTimeout.Duration)
	_, err = e.client.Put(ctx, key, val)
	cancel()
	if err != nil {
		glog.Errorf("etcd put: %v", err)
	}
	return
}

func (e *EtcdClient) DeleteKeyWithPrefix(key string, isPrefix bool) (err error) {
	if e.client == nil {
		return errors.ErrNotBuilt
	}
	ctx, cancel := context.WithTimeout(context.Background(), e.config.RequestTimeout.Duration)
	defer cancel()

	glog.Infof("etcd delete: key=%s%s isPrefix=%v", e.keyPrefix, key, isPrefix)
	if isPrefix {
		_, err = e.client.Delete(ctx, key, clientv3.WithPrefix())
	} else {
		_, err = e.client.Delete(ctx, key)
	}
	if err != nil {
		glog.Errorf("etcd delete: %v", err)
	}
	return
}

// Watch runs handler on every batch of events under key until the
// returned cancel is called or the client is closed.
func (e *EtcdClient) Watch(key string, handler IWatchHandler, opts ...clientv3.OpOption) (cancel context.CancelFunc, err error) {
	if e.client == nil {
		err = errors.ErrNotBuilt
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	ch := e.client.Watch(ctx, key, opts...)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer cancel()
		glog.V(2).Infof("etcd: watching %s%s", e.keyPrefix, key)
		for {
			select {
			case r, ok := <-ch:
				if !ok {
					glog.Warningf("etcd: watch channel of %s%s closed", e.keyPrefix, key)
					return
				}
				if err := r.Err(); err != nil {
					glog.Warningf("etcd watch: %v", err)
					continue
				}
				handler.OnEvent(r.Events...)
			case <-ctx.Done():
				return
			case <-e.doneCh:
				return
			}
		}
	}()
	return cancel, nil
}

func (e *EtcdClient) get(key string, opts ...clientv3.OpOption) (resp *clientv3.GetResponse, err error) {
	if e.client == nil {
		err = errors.ErrNotBuilt
		return
	}
	const maxTries = 2
	for i := 0; i < maxTries; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), e.config.RequestTimeout.Duration)
		resp, err = e.client.KV.Get(ctx, key, opts...)
		cancel()
		if err == nil {
			return
		}
		glog.Warningf("etcd get: %v. Retry ...", err)
		time.Sleep(time.Second)
	}
	glog.Errorf("etcd get: key=%s%s err=%v", e.keyPrefix, key, err)
	return
}

// getWithPrefix returns every key under key, in ascending order.
func (e *EtcdClient) getWithPrefix(key string) (*clientv3.GetResponse, error) {
	return e.get(key, clientv3.WithPrefix(), clientv3.WithSort(clientv3.SortByKey, clientv3.SortAscend))
}
