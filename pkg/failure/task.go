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

package failure

// Task is a retryable unit of work.
type Task func() (interface{}, error)

// ITaskFailure identifies a failure-prone operation to the RecoveryManager.
// Failures are counted per TaskId.
type ITaskFailure interface {
	TaskId() string
	// Task returns the unit to re-run, nil if the operation cannot be retried.
	Task() Task
	// OnFatal runs once the failure is unrecoverable or tolerance is exhausted.
	OnFatal(err error)
}

// IRecoveryListener is optionally implemented by an ITaskFailure that wants
// the result of a successful background retry.
type IRecoveryListener interface {
	OnRecovered(result interface{})
}

type TaskFailure struct {
	id      string
	task    Task
	onFatal func(error)
}

var _ ITaskFailure = (*TaskFailure)(nil)

func NewTaskFailure(id string, task Task, onFatal func(error)) *TaskFailure {
	return &TaskFailure{id: id, task: task, onFatal: onFatal}
}

func (t *TaskFailure) TaskId() string {
	return t.id
}

func (t *TaskFailure) Task() Task {
	return t.task
}

func (t *TaskFailure) OnFatal(err error) {
	if t.onFatal != nil {
		t.onFatal(err)
	}
}
