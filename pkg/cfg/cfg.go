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

// Package cfg keeps a TOML document as a case-insensitive tree addressed by
// dot-delimited keys such as "Adapter.FailoverTimeout".
package cfg

import (
	"bytes"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/golang/glog"
)

type (
	// Config is safe for concurrent use. Keys compare case-insensitively and
	// keep the spelling they were first set with.
	Config struct {
		mu    sync.RWMutex
		kvMap map[string]keyValue
	}
	keyValue struct {
		key   string
		value interface{}
	}
)

// ReadFrom replaces the settings with those of i, a struct or a map.
func (c *Config) ReadFrom(i interface{}) (err error) {
	var buf bytes.Buffer
	if i != nil {
		if err = toml.NewEncoder(&buf).Encode(i); err != nil {
			return
		}
	}
	return c.ReadFromToml(&buf)
}

func (c *Config) ReadFromToml(r io.Reader) (err error) {
	m := make(map[string]interface{})
	if _, err = toml.NewDecoder(r).Decode(&m); err == nil {
		c.setFrom(m)
	}
	return
}

func (c *Config) ReadFromTomlBytes(b []byte) error {
	return c.ReadFromToml(bytes.NewReader(b))
}

func (c *Config) ReadFromTomlFile(file string) (err error) {
	m := make(map[string]interface{})
	if _, err = toml.DecodeFile(file, &m); err == nil {
		c.setFrom(m)
	}
	return
}

func (c *Config) WriteToToml(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c.toMap())
}

// WriteTo decodes the settings into v, a pointer to a struct or a map.
func (c *Config) WriteTo(v interface{}) (err error) {
	var buf bytes.Buffer
	if err = c.WriteToToml(&buf); err != nil {
		return
	}
	_, err = toml.Decode(buf.String(), v)
	return
}

// WriteSectionTo decodes the table under a dot-delimited key into v. A
// missing table leaves v untouched.
func (c *Config) WriteSectionTo(dotDelimitedKey string, v interface{}) error {
	section, err := c.GetConfig(dotDelimitedKey)
	if err != nil {
		return err
	}
	return section.WriteTo(v)
}

// Merge copies every setting of overrides over c. Tables merge key by key,
// other values are replaced when the types agree.
func (c *Config) Merge(overrides *Config) error {
	from := overrides.toKvMap()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.kvMap == nil {
		c.kvMap = make(map[string]keyValue)
	}
	return merge(c.kvMap, from)
}

// WriteToKVList writes one "dotted.key=value" line per leaf, sorted.
func (c *Config) WriteToKVList(w io.Writer) {
	c.mu.RLock()
	var lines []string
	for _, v := range c.kvMap {
		lines = appendKeyValues(lines, v.key, &v)
	}
	c.mu.RUnlock()
	sort.Strings(lines)
	for _, l := range lines {
		fmt.Fprintln(w, l)
	}
}

// GetValue returns the value under a dot-delimited key, nil if not set.
// Tables come back as map[string]interface{}.
func (c *Config) GetValue(dotDelimitedKey string) interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return getValueFromMap(c.kvMap, strings.Split(dotDelimitedKey, "."))
}

// GetConfig returns the table under a dot-delimited key as its own Config.
func (c *Config) GetConfig(dotDelimitedKey string) (*Config, error) {
	conf := &Config{}
	switch v := c.GetValue(dotDelimitedKey).(type) {
	case nil:
	case map[string]interface{}:
		if err := conf.ReadFrom(v); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%s is not a table", dotDelimitedKey)
	}
	return conf, nil
}

func (c *Config) SetKeyValue(dotDelimitedKey string, v interface{}) {
	strs := strings.Split(dotDelimitedKey, ".")
	tmap := make(map[string]keyValue)
	cm := tmap
	for len(strs) > 1 {
		nmap := make(map[string]keyValue)
		cm[strings.ToLower(strs[0])] = keyValue{strs[0], nmap}
		cm = nmap
		strs = strs[1:]
	}
	cm[strings.ToLower(strs[0])] = keyValue{strs[0], v}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.kvMap == nil {
		c.kvMap = make(map[string]keyValue)
	}
	if err := merge(c.kvMap, tmap); err != nil {
		glog.Warningf("set %s: %v", dotDelimitedKey, err)
	}
}

// GetString formats any scalar value. It returns def when the key is unset.
func (c *Config) GetString(dotDelimitedKey string, def string) string {
	switch v := c.GetValue(dotDelimitedKey).(type) {
	case nil:
		return def
	case string:
		return v
	case map[string]interface{}:
		return def
	default:
		return fmt.Sprint(v)
	}
}

func (c *Config) GetInt(dotDelimitedKey string, def int) int {
	switch v := c.GetValue(dotDelimitedKey).(type) {
	case int64:
		return int(v)
	case int:
		return v
	case float64:
		return int(v)
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return i
		}
	}
	return def
}

func (c *Config) GetBool(dotDelimitedKey string, def bool) bool {
	switch v := c.GetValue(dotDelimitedKey).(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return def
}

// GetDuration accepts a duration string ("1500ms") or a bare integer taken
// as milliseconds.
func (c *Config) GetDuration(dotDelimitedKey string, def time.Duration) time.Duration {
	switch v := c.GetValue(dotDelimitedKey).(type) {
	case string:
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return d
		}
		glog.Warningf("%s: bad duration %q", dotDelimitedKey, v)
	case int64:
		return time.Duration(v) * time.Millisecond
	case int:
		return time.Duration(v) * time.Millisecond
	case time.Duration:
		return v
	}
	return def
}

func (c *Config) setFrom(m map[string]interface{}) {
	kv := make(map[string]keyValue)
	setKvMap(kv, m)
	c.mu.Lock()
	c.kvMap = kv
	c.mu.Unlock()
}

func (c *Config) toMap() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m := make(map[string]interface{})
	setMap(m, c.kvMap)
	return m
}

func (c *Config) toKvMap() map[string]keyValue {
	kv := make(map[string]keyValue)
	setKvMap(kv, c.toMap())
	return kv
}

func appendKeyValues(lines []string, k string, v *keyValue) []string {
	if vm, ok := v.value.(map[string]keyValue); ok {
		for _, sv := range vm {
			lines = appendKeyValues(lines, k+"."+sv.key, &sv)
		}
		return lines
	}
	return append(lines, fmt.Sprintf("%s=%v", k, v.value))
}

func merge(to, from map[string]keyValue) error {
	for k, v := range from {
		vm, vIsMap := v.value.(map[string]keyValue)

		toV, found := to[k]
		if !found {
			if vIsMap {
				nmap := make(map[string]keyValue)
				to[k] = keyValue{v.key, nmap}
				if err := merge(nmap, vm); err != nil {
					return err
				}
			} else {
				to[k] = v
			}
			continue
		}
		toMap, toIsMap := toV.value.(map[string]keyValue)
		if toIsMap && vIsMap {
			if err := merge(toMap, vm); err != nil {
				return err
			}
			continue
		}
		tto := reflect.TypeOf(toV.value)
		tfrom := reflect.TypeOf(v.value)
		if tto != tfrom {
			return fmt.Errorf("%s: type mismatch. target: %v source: %v", v.key, tto, tfrom)
		}
		to[k] = keyValue{toV.key, v.value}
	}
	return nil
}

func getValueFromMap(imap map[string]keyValue, keys []string) interface{} {
	if len(keys) == 0 {
		return nil
	}
	v, ok := imap[strings.ToLower(keys[0])]
	if !ok {
		return nil
	}
	vm, isMap := v.value.(map[string]keyValue)
	if len(keys) > 1 {
		if !isMap {
			return nil
		}
		return getValueFromMap(vm, keys[1:])
	}
	if isMap {
		nmap := make(map[string]interface{})
		setMap(nmap, vm)
		return nmap
	}
	return v.value
}

func setKvMap(to map[string]keyValue, from map[string]interface{}) {
	for k, v := range from {
		lkey := strings.ToLower(k)
		if _, found := to[lkey]; found {
			glog.Warningf("key: %s found, skip", k)
			continue
		}
		if vm, ok := v.(map[string]interface{}); ok {
			kvmap := make(map[string]keyValue)
			to[lkey] = keyValue{key: k, value: kvmap}
			setKvMap(kvmap, vm)
		} else {
			to[lkey] = keyValue{k, v}
		}
	}
}

func setMap(to map[string]interface{}, from map[string]keyValue) {
	for _, v := range from {
		if vm, ok := v.value.(map[string]keyValue); ok {
			nmap := make(map[string]interface{})
			to[v.key] = nmap
			setMap(nmap, vm)
		} else {
			to[v.key] = v.value
		}
	}
}
