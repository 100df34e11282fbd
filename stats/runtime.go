// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stats

import (
	"runtime"
	"time"

	"github.com/kelindar/process"
)

// 创建时间
var (
	StartingTime = time.Now()
)

// Proc 进程信息统计
type Proc struct {
	CPU    float64 `json:"cpu"`    // cpu使用情况
	Priv   int32   `json:"priv"`   // 私有内存 KB
	Virt   int32   `json:"virt"`   // 虚拟内存 KB
	Uptime int32   `json:"uptime"` // 运行时间 S
}

// Runtime Go 运行时统计
type Runtime struct {
	Heap struct {
		Inuse   int32 `json:"inuse"`   // KB
		Sys     int32 `json:"sys"`     // KB
		Objects int32 `json:"objects"` // = MemStats.HeapObjects
	} `json:"heap"`
	GC struct {
		CPU float64 `json:"cpu"`
		Sys int32   `json:"sys"` // KB
	} `json:"gc"`
	Go struct {
		Count int32 `json:"count"` // runtime.NumGoroutine()
		Procs int32 `json:"procs"` // runtime.NumCPU()
		Sys   int32 `json:"sys"`   // KB
	} `json:"go"`
}

// MeasureProc 获取进程信息。
func MeasureProc() Proc {
	defer recover()
	var memoryPriv, memoryVirtual int64
	var cpu float64
	process.ProcUsage(&cpu, &memoryPriv, &memoryVirtual)
	return Proc{
		CPU:    cpu,
		Priv:   toKB(uint64(memoryPriv)),
		Virt:   toKB(uint64(memoryVirtual)),
		Uptime: int32(time.Now().Sub(StartingTime).Seconds()),
	}
}

// MeasureRuntime 获取运行时信息。
func MeasureRuntime() *Runtime {
	var memory runtime.MemStats
	runtime.ReadMemStats(&memory)

	rt := new(Runtime)
	rt.Heap.Inuse = toKB(memory.HeapInuse)
	rt.Heap.Sys = toKB(memory.HeapSys)
	rt.Heap.Objects = int32(memory.HeapObjects)
	rt.GC.CPU = memory.GCCPUFraction
	rt.GC.Sys = toKB(memory.GCSys)
	rt.Go.Count = int32(runtime.NumGoroutine())
	rt.Go.Procs = int32(runtime.NumCPU())
	rt.Go.Sys = toKB(memory.Sys)
	return rt
}

// Converts the memory in bytes to KBs, otherwise it would overflow our int32
func toKB(v uint64) int32 {
	return int32(v / 1024)
}
