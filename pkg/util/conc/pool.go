// Licensed to the LF AI & Data foundation under one
// or more contributor license agreements. See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership. The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package conc

import (
	"fmt"
	"sync"

	ants "github.com/panjf2000/ants/v2"

	"github.com/lk2023060901/ringercore-go/pkg/util/hardware"
	"github.com/lk2023060901/ringercore-go/pkg/util/merr"
)

// Pool 是对 ants 协程池的泛型封装，任务结果通过 Future 返回。
type Pool[T any] struct {
	inner *ants.Pool
	opt   *poolOption
}

// NewPool 返回一个容量为 cap 的协程池。
// 注意：Pool 不支持动态扩容。
func NewPool[T any](cap int, opts ...PoolOption) *Pool[T] {
	opt := defaultPoolOption()
	for _, o := range opts {
		o(opt)
	}

	pool, err := ants.NewPool(cap, opt.antsOptions()...)
	if err != nil {
		panic(err)
	}

	return &Pool[T]{
		inner: pool,
		opt:   opt,
	}
}

// NewDefaultPool 返回容量为 CPU 核心数的协程池。
func NewDefaultPool[T any]() *Pool[T] {
	return NewPool[T](hardware.GetCPUNum(), WithPreAlloc(true))
}

// Submit 提交一个任务，返回持有结果的 Future。
// 非阻塞模式下池已满时，Future 直接携带提交失败的错误。
func (pool *Pool[T]) Submit(method func() (T, error)) *Future[T] {
	future := newFuture[T]()
	err := pool.inner.Submit(func() {
		defer close(future.ch)
		defer func() {
			if x := recover(); x != nil {
				future.err = fmt.Errorf("panicked with error: %v", x)
				panic(x) // 交给 ants 的 panic handler 处理
			}
		}()
		if pool.opt.preHandler != nil {
			pool.opt.preHandler()
		}
		res, err := method()
		if err != nil {
			future.err = err
		} else {
			future.value = res
		}
	})
	if err != nil {
		future.err = merr.Combine(merr.WrapErrOperationNotSupported("submit task"), err)
		close(future.ch)
	}

	return future
}

func (pool *Pool[T]) Cap() int {
	return pool.inner.Cap()
}

func (pool *Pool[T]) Running() int {
	return pool.inner.Running()
}

func (pool *Pool[T]) Free() int {
	return pool.inner.Free()
}

func (pool *Pool[T]) Release() {
	pool.inner.Release()
}

// Map 在协程池中对每个元素执行 fn，结果与输入一一对应。
// 返回第一个失败元素的错误，所有任务都会执行完毕后才返回。
func Map[In, Out any](pool *Pool[Out], items []In, fn func(int, In) (Out, error)) ([]Out, error) {
	futures := make([]*Future[Out], len(items))
	for i, item := range items {
		futures[i] = pool.Submit(func() (Out, error) {
			return fn(i, item)
		})
	}
	if err := AwaitAll(futures...); err != nil {
		return nil, err
	}
	out := make([]Out, len(futures))
	for i, f := range futures {
		out[i] = f.Value()
	}
	return out, nil
}

var (
	defaultPoolOnce sync.Once
	defaultPool     *Pool[any]
)

// DefaultPool 返回进程级共享协程池。
func DefaultPool() *Pool[any] {
	defaultPoolOnce.Do(func() {
		defaultPool = NewDefaultPool[any]()
	})
	return defaultPool
}
