// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package service

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cnotch/avcenc/config"
	"github.com/cnotch/avcenc/media"
	"github.com/cnotch/scheduler"
	"github.com/cnotch/xlog"
	"github.com/emitter-io/address"
	"github.com/kelindar/tcp"
)

// Service 网络服务对象(服务的入口)
// 将编码流推送给 TCP、WebSocket 和 RTP 消费者。
type Service struct {
	context context.Context
	cancel  context.CancelFunc
	logger  *xlog.Logger
	http    *http.Server
	raw     *tcp.Server
}

// NewService 创建服务
func NewService(ctx context.Context, l *xlog.Logger) (s *Service, err error) {
	ctx, cancel := context.WithCancel(ctx)
	s = &Service{
		context: ctx,
		cancel:  cancel,
		logger:  l,
		http:    new(http.Server),
		raw:     new(tcp.Server),
	}

	// 设置 http 的Handler
	mux := http.NewServeMux()

	if config.Profile() {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	s.initApis(mux)
	s.initWebsocket(mux)
	s.http.Handler = mux

	// 设置原始码流 AcceptHandler
	s.raw.OnAccept = CreateRawAcceptHandler()

	// 定时输出流统计
	scheduler.PeriodFunc(time.Minute, time.Minute, func() {
		for _, info := range media.Infos(false) {
			s.logger.Infof("stream %s: frames in %d, bytes out %d, consumers %d",
				info.Path, info.Flow.InFrames, info.Flow.OutBytes, info.ConsumerCnt)
		}
	}, "The task of periodic stream statistics logging(1minute)")

	s.logger.Info("service configured")
	return s, nil
}

// Listen starts the service.
func (s *Service) Listen() (err error) {
	defer s.Close()
	s.hookSignals()

	// http ws
	httpAddr, err := address.Parse(config.Addr(), 8000)
	if err != nil {
		s.logger.Panic(err.Error())
	}
	httpL, err := net.Listen("tcp", httpAddr.String())
	if err != nil {
		s.logger.Panic(err.Error())
	}
	s.logger.Infof("starting the http listener, addr = %s.", httpAddr.String())
	go func() {
		if err := s.http.Serve(httpL); err != nil && err != http.ErrServerClosed {
			xlog.Warn(err.Error())
		}
	}()

	// raw annex b push
	rawAddr, err := address.Parse(config.RawAddr(), 8554)
	if err != nil {
		s.logger.Panic(err.Error())
	}
	rawL, err := net.Listen("tcp", rawAddr.String())
	if err != nil {
		s.logger.Panic(err.Error())
	}
	s.logger.Infof("starting the raw stream listener, addr = %s.", rawAddr.String())
	go func() {
		if err := s.raw.Serve(rawL); err != nil {
			xlog.Warn(err.Error())
		}
	}()

	s.logger.Infof("service started(%s).", config.Version)
	s.logger = xlog.L()
	// Block
	<-s.context.Done()
	return nil
}

// Close closes gracefully the service.
func (s *Service) Close() {
	if s.cancel != nil {
		s.cancel()
	}

	// 停止计划任务
	jobs := scheduler.Jobs()
	for _, job := range jobs {
		job.Cancel()
	}

	s.http.Close()

	// 清空注册
	media.UnregistAll()
}

// 挂接系统信号
func (s *Service) hookSignals() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		for sig := range c {
			s.onSignal(sig)
		}
	}()
}

// OnSignal will be called when a OS-level signal is received.
func (s *Service) onSignal(sig os.Signal) {
	switch sig {
	case syscall.SIGTERM:
		fallthrough
	case syscall.SIGINT:
		s.logger.Warn(fmt.Sprintf("received signal %s, exiting...", sig.String()))
		s.Close()
		os.Exit(0)
	}
}
