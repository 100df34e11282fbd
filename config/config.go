// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"flag"
)

// config 服务配置
type config struct {
	Input      string    `json:"input"`                // 输入 y4m 文件
	Output     string    `json:"output,omitempty"`     // 输出 .h264 文件
	Serve      bool      `json:"serve"`                // 是否启动推送服务
	ListenAddr string    `json:"listen"`               // HTTP/WS 服务侦听地址和端口
	RawAddr    string    `json:"raw_listen"`           // 原始 Annex B 推送的 TCP 侦听地址
	StreamPath string    `json:"stream_path"`          // 流注册路径
	RtpTarget  string    `json:"rtp_target,omitempty"` // RTP/UDP 推送目标 host:port
	FrameRate  int       `json:"frame_rate"`           // 推送时的帧率（y4m 头缺失时使用）
	Profile    bool      `json:"profile"`              // 是否启动Profile
	Log        LogConfig `json:"log"`                  // 日志配置
}

func (c *config) initFlags() {
	flag.StringVar(&c.Input, "input", "", "Set the input .y4m file")
	flag.StringVar(&c.Output, "output", "", "Set the output .h264 file")
	flag.BoolVar(&c.Serve, "serve", false,
		"Determines if the encoded stream should be served to network consumers")
	flag.StringVar(&c.ListenAddr, "listen", ":8000", "Set http server listen address")
	flag.StringVar(&c.RawAddr, "raw-listen", ":8554",
		"Set the raw Annex B push server listen address")
	flag.StringVar(&c.StreamPath, "path", "live/main", "Set the stream path")
	flag.StringVar(&c.RtpTarget, "rtp-target", "",
		"Set the RTP over UDP push target, e.g. 239.0.0.1:5004")
	flag.IntVar(&c.FrameRate, "framerate", 25,
		"Set the serving frame rate if the input does not declare one")
	flag.BoolVar(&c.Profile, "pprof", false,
		"Determines if profile enabled")

	// 初始化日志配置
	c.Log.initFlags()
}
