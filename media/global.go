// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package media

import (
	"sort"
	"sync"
)

// 全局变量
var (
	streams sync.Map // 流集合 string->*Stream
)

// Regist 注册流；同路径的旧流被关闭替换。
func Regist(s *Stream) {
	oldSI, ok := streams.Load(s.path)
	if ok && s == oldSI.(*Stream) { // 如果是同一个源
		return
	}

	streams.Store(s.path, s)

	if ok {
		oldSI.(*Stream).Close()
	}
}

// Unregist 取消注册
func Unregist(s *Stream) {
	si, ok := streams.Load(s.path)
	if ok && si.(*Stream) == s {
		streams.Delete(s.path)
	}
	s.Close()
}

// UnregistAll 取消全部注册的流
func UnregistAll() {
	streams.Range(func(key, value interface{}) bool {
		streams.Delete(key)
		value.(*Stream).Close()
		return true
	})
}

// Get 获取路径对应的流
func Get(path string) *Stream {
	if si, ok := streams.Load(path); ok {
		return si.(*Stream)
	}
	return nil
}

// Count 流和消费者总数
func Count() (sc, cc int) {
	streams.Range(func(key, value interface{}) bool {
		sc++
		cc += value.(*Stream).ConsumerCount()
		return true
	})
	return
}

// Infos 全部流的信息，按路径排序。
func Infos(includeConsumptions bool) []StreamInfo {
	var infos []StreamInfo
	streams.Range(func(key, value interface{}) bool {
		infos = append(infos, value.(*Stream).Info(includeConsumptions))
		return true
	})

	sort.Slice(infos, func(i, j int) bool { return infos[i].Path < infos[j].Path })
	return infos
}
