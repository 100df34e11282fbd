// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cnotch/avcenc/av/codec/h264"
	"github.com/cnotch/avcenc/av/format/rtp"
	"github.com/cnotch/avcenc/av/format/y4m"
	"github.com/cnotch/avcenc/config"
	"github.com/cnotch/avcenc/media"
	"github.com/cnotch/avcenc/service"
	"github.com/cnotch/scheduler"
	"github.com/cnotch/xlog"
)

func main() {
	// 初始化配置
	config.InitConfig()
	// 初始化全局计划任务
	scheduler.SetPanicHandler(func(job *scheduler.ManagedJob, r interface{}) {
		xlog.Errorf("scheduler task panic. tag: %v, recover: %v", job.Tag, r)
	})

	if config.Input() == "" {
		xlog.Panic("no input file, use -input file.y4m")
	}

	in, err := os.Open(config.Input())
	if err != nil {
		xlog.Panic(err.Error())
	}
	defer in.Close()

	reader, err := y4m.NewReader(in)
	if err != nil {
		xlog.Panic(err.Error())
	}
	xlog.Infof("input %s: %dx%d %dbit %s",
		config.Input(), reader.Spec().Width, reader.Spec().Height,
		reader.Spec().BitDepth, reader.Spec().ChromaFormat.String())

	if !config.Serve() {
		encodeToFile(reader)
		return
	}

	serve(reader)
}

// 单纯转码：input.y4m -> output.h264
func encodeToFile(reader *y4m.Reader) {
	if config.Output() == "" {
		xlog.Panic("no output file, use -output file.h264")
	}

	out, err := os.Create(config.Output())
	if err != nil {
		xlog.Panic(err.Error())
	}
	defer out.Close()

	encoder, err := h264.NewEncoder(reader.Spec())
	if err != nil {
		xlog.Panic(err.Error())
	}

	frames := 0
	start := time.Now()
	for {
		frame, err := reader.ReadFrame()
		if err == io.EOF {
			break
		}
		if err != nil {
			xlog.Panic(err.Error())
		}

		if err = encoder.EncodeFrame(frame, out); err != nil {
			xlog.Panic(err.Error())
		}
		frames++
	}
	encoder.Finish()

	xlog.Infof("encoded %d frames to %s in %s",
		frames, config.Output(), time.Since(start).Round(time.Millisecond))
}

// 服务模式：按帧率把编码流推给网络消费者
func serve(reader *y4m.Reader) {
	stream, err := media.NewStream(config.StreamPath(), reader.Spec())
	if err != nil {
		xlog.Panic(err.Error())
	}
	media.Regist(stream)

	// 文件消费者
	if config.Output() != "" {
		out, err := os.Create(config.Output())
		if err != nil {
			xlog.Panic(err.Error())
		}
		stream.StartConsume(&fileConsumer{f: out}, media.FileConsumer, config.Output())
	}

	// RTP/UDP 消费者
	if target := config.RtpTarget(); target != "" {
		conn, err := net.Dial("udp", target)
		if err != nil {
			xlog.Panic(err.Error())
		}
		ticks := uint32(rtp.VideoClockRate / frameRate(reader))
		stream.StartConsume(rtp.NewConsumer(conn, uint32(os.Getpid()), ticks), media.RTPConsumer, target)
	}

	// 按帧率循环送帧
	go feedFrames(reader, stream)

	svc, err := service.NewService(context.Background(), xlog.L())
	if err != nil {
		xlog.L().Panic(err.Error())
	}

	// Listen and serve
	svc.Listen()
}

func feedFrames(reader *y4m.Reader, stream *media.Stream) {
	interval := time.Second / time.Duration(frameRate(reader))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		frame, err := reader.ReadFrame()
		if err == io.EOF {
			xlog.Info("input drained, stream stays open for consumers")
			return
		}
		if err != nil {
			xlog.Errorf("read frame error: %s", err.Error())
			return
		}

		if err = stream.WriteFrame(frame); err != nil {
			xlog.Warn(err.Error())
			return
		}
	}
}

// y4m 头的 F 参数优先，否则用配置
func frameRate(reader *y4m.Reader) int {
	fr := reader.FrameRate()
	if i := strings.IndexByte(fr, ':'); i > 0 {
		num, err1 := strconv.Atoi(fr[:i])
		den, err2 := strconv.Atoi(fr[i+1:])
		if err1 == nil && err2 == nil && den > 0 && num/den > 0 {
			return num / den
		}
	}
	return config.FrameRate()
}

// fileConsumer 把码流写入文件
type fileConsumer struct {
	f *os.File
}

func (c *fileConsumer) Consume(pack media.Pack) {
	if _, err := c.f.Write(pack); err != nil {
		xlog.Errorf("file consumer write error: %s", err.Error())
	}
}

func (c *fileConsumer) Close() error {
	return c.f.Close()
}
