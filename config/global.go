// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	cfg "github.com/cnotch/loader"
	"github.com/cnotch/xlog"
)

// 服务名
const (
	Vendor  = "CAOHONGJU"
	Name    = "avcenc"
	Version = "V1.0.0"
)

var (
	globalC *config
)

// InitConfig 初始化 Config
func InitConfig() {
	exe, err := os.Executable()
	if err != nil {
		xlog.Panic(err.Error())
	}

	configPath := filepath.Join(filepath.Dir(exe), Name+".conf")

	globalC = new(config)
	globalC.initFlags()

	// 创建或加载配置文件
	if err := cfg.Load(globalC,
		&cfg.JSONLoader{Path: configPath, CreatedIfNonExsit: true},
		&cfg.EnvLoader{Prefix: strings.ToUpper(Name)},
		&cfg.FlagLoader{}); err != nil {
		// 异常，直接退出
		xlog.Panic(err.Error())
	}

	// 初始化日志
	globalC.Log.initLogger()
}

// Input 输入文件
func Input() string {
	if globalC == nil {
		return ""
	}
	return globalC.Input
}

// Output 输出文件
func Output() string {
	if globalC == nil {
		return ""
	}
	return globalC.Output
}

// Serve 是否启动推送服务
func Serve() bool {
	if globalC == nil {
		return false
	}
	return globalC.Serve
}

// Addr HTTP listen addr
func Addr() string {
	if globalC == nil {
		return ":8000"
	}
	return globalC.ListenAddr
}

// RawAddr 原始码流推送的侦听地址
func RawAddr() string {
	if globalC == nil {
		return ":8554"
	}
	return globalC.RawAddr
}

// StreamPath 流注册路径
func StreamPath() string {
	if globalC == nil || globalC.StreamPath == "" {
		return "live/main"
	}
	return globalC.StreamPath
}

// RtpTarget RTP 推送目标
func RtpTarget() string {
	if globalC == nil {
		return ""
	}
	return globalC.RtpTarget
}

// FrameRate 服务模式的缺省帧率
func FrameRate() int {
	if globalC == nil || globalC.FrameRate <= 0 {
		return 25
	}
	return globalC.FrameRate
}

// Profile 是否启动 Http Profile
func Profile() bool {
	if globalC == nil {
		return false
	}
	return globalC.Profile
}

// NetTimeout 返回网络超时设置
func NetTimeout() time.Duration {
	return time.Second * 45
}

// NetBufferSize 网络通讯时的BufferSize
func NetBufferSize() int {
	return 128 * 1024
}

// NetFlushRate 网络刷新频率
func NetFlushRate() int {
	return 30
}
