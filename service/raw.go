// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package service

import (
	"io"
	"io/ioutil"
	"net"

	"github.com/cnotch/avcenc/config"
	"github.com/cnotch/avcenc/media"
	"github.com/cnotch/avcenc/network/socket/buffered"
	"github.com/cnotch/xlog"
	"github.com/kelindar/tcp"
)

// rawServer 原始 Annex B 码流的 TCP 推送服务。
// 客户端连接后立即开始接收配置流的码流，如:
//
//	nc host 8554 > out.h264
type rawServer struct {
	logger *xlog.Logger
}

// CreateRawAcceptHandler 创建连接接入处理器
func CreateRawAcceptHandler() tcp.OnAccept {
	svr := &rawServer{
		logger: xlog.L(),
	}
	return svr.onAcceptConn
}

// onAcceptConn 当新连接接入时触发
func (svr *rawServer) onAcceptConn(c net.Conn) {
	stream := media.Get(config.StreamPath())
	if stream == nil {
		svr.logger.Warnf("raw: stream %s not found, refuse %s",
			config.StreamPath(), c.RemoteAddr().String())
		c.Close()
		return
	}

	conn := buffered.NewConn(c,
		buffered.FlushRate(config.NetFlushRate()),
		buffered.BufferSize(config.NetBufferSize()))

	sess := &rawSession{
		conn:   conn,
		stream: stream,
		logger: svr.logger.With(xlog.Fields(xlog.F("addr", c.RemoteAddr().String()))),
	}
	sess.cid = stream.StartConsume(sess, media.RawConsumer, c.RemoteAddr().String())
	sess.logger.Info("raw: consumer attached")

	go sess.readLoop()
}

// rawSession 一个 TCP 消费会话
type rawSession struct {
	conn   *buffered.Conn
	stream *media.Stream
	cid    media.CID
	logger *xlog.Logger
}

// Consume 实现 media.Consumer。
func (s *rawSession) Consume(pack media.Pack) {
	if _, err := s.conn.Write(pack); err != nil {
		s.logger.Warnf("raw: write error: %s", err.Error())
		s.stream.StopConsume(s.cid)
	}
}

// Close 实现 media.Consumer。
func (s *rawSession) Close() error {
	return s.conn.Close()
}

// 推送是单向的，读仅用于感知客户端断开。
func (s *rawSession) readLoop() {
	_, err := io.Copy(ioutil.Discard, s.conn)
	if err != nil {
		s.logger.Debugf("raw: read loop end: %s", err.Error())
	}

	outBytes, flushes := s.conn.Stats()
	s.logger.Infof("raw: consumer detached, pushed %d bytes in %d flushes", outBytes, flushes)
	s.stream.StopConsume(s.cid)
}
