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

// Package initmgr runs registered initializers in weight order and
// finalizes them in reverse.
package initmgr

import (
	"fmt"
	"reflect"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/golang/glog"
)

var (
	defaultRegistry = &Registry{}
)

type entryT struct {
	initializer  IInitializer
	weight       int
	args         []interface{}
	initOnce     *sync.Once
	finalizeOnce *sync.Once
}

type initEntriesT []entryT

type IInitializer interface {
	Name() string
	Initialize(args ...interface{}) error
	Finalize()
}

func (rs initEntriesT) Len() int {
	return len(rs)
}

func (rs initEntriesT) Less(i, j int) bool {
	return rs[i].weight < rs[j].weight
}

func (rs initEntriesT) Swap(i, j int) {
	rs[i], rs[j] = rs[j], rs[i]
}

type Registry struct {
	mu           sync.Mutex
	initializers initEntriesT
	initialized  int
}

// Init runs every initializer once. On the first failure the ones already
// initialized are finalized in reverse and the error is returned.
func (r *Registry) Init() (err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sort.Stable(r.initializers)

	for i := range r.initializers {
		e := &r.initializers[i]
		e.initOnce.Do(func() {
			name := e.initializer.Name()
			if err = e.initializer.Initialize(e.args...); err == nil {
				glog.V(2).Infof("initmgr.initialize %s [ok]", name)
			} else {
				glog.Errorf("initmgr.initialize %s [fail] (error: %s)", name, err)
				err = fmt.Errorf("initialize %s: %w", name, err)
			}
		})
		if err != nil {
			r.finalizeBackwardsFrom(i - 1)
			return
		}
		r.initialized = i + 1
	}
	return
}

func (r *Registry) finalizeBackwardsFrom(i int) {
	for ; i >= 0; i-- {
		e := &r.initializers[i]
		e.finalizeOnce.Do(func() {
			glog.V(2).Infof("initmgr.finalize %s", e.initializer.Name())
			e.initializer.Finalize()
		})
	}
}

func (r *Registry) Finalize() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finalizeBackwardsFrom(r.initialized - 1)
}

func (r *Registry) RegisterWithWeight(rc IInitializer, weight int, args ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.initializers = append(r.initializers, entryT{
		initializer:  rc,
		weight:       weight,
		args:         args,
		initOnce:     &sync.Once{},
		finalizeOnce: &sync.Once{},
	})
}

func (r *Registry) Register(rc IInitializer, args ...interface{}) {
	r.mu.Lock()
	weight := len(r.initializers)
	r.mu.Unlock()
	r.RegisterWithWeight(rc, weight, args...)
}

func Init() error {
	return defaultRegistry.Init()
}

func Finalize() {
	defaultRegistry.Finalize()
}

func Register(rc IInitializer, args ...interface{}) {
	defaultRegistry.Register(rc, args...)
}

func RegisterWithFuncs(initializeFunc func(args ...interface{}) error, finalizeFunc func(), args ...interface{}) {
	Register(NewInitializer(initializeFunc, finalizeFunc), args...)
}

func RegisterWithWeight(rc IInitializer, weight int, args ...interface{}) {
	defaultRegistry.RegisterWithWeight(rc, weight, args...)
}

type Initializer struct {
	name           string
	InitializeFunc func(args ...interface{}) error
	FinalizeFunc   func()
}

func (i *Initializer) Name() string {
	return i.name
}

func (i *Initializer) Initialize(args ...interface{}) (err error) {
	if i.InitializeFunc != nil {
		err = i.InitializeFunc(args...)
	}
	return
}

func (i *Initializer) Finalize() {
	if i.FinalizeFunc != nil {
		i.FinalizeFunc()
	}
}

func NewInitializer(initializeFunc func(args ...interface{}) error, finalizeFunc func()) IInitializer {
	name := runtime.FuncForPC(reflect.ValueOf(initializeFunc).Pointer()).Name()
	i := strings.LastIndex(name, ".")
	if i == -1 {
		name = "unknown package"
	} else {
		name = name[0:i]
	}
	return &Initializer{name, initializeFunc, finalizeFunc}
}

func NewNamedInitializer(name string, initializeFunc func(args ...interface{}) error, finalizeFunc func()) IInitializer {
	return &Initializer{name, initializeFunc, finalizeFunc}
}
