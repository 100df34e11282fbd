// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package service

import (
	"net/http"
	"strings"
	"time"

	"github.com/cnotch/avcenc/media"
	"github.com/cnotch/xlog"
	"github.com/gorilla/websocket"
)

const wsWriteWait = 10 * time.Second

var upgrader = &websocket.Upgrader{
	ReadBufferSize:  4 * 1024,
	WriteBufferSize: 64 * 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// initWebsocket 注册 /ws/{path} 端点，按二进制消息推送每帧码流。
func (s *Service) initWebsocket(mux *http.ServeMux) {
	mux.HandleFunc("/ws/", s.onWebsocket)
}

func (s *Service) onWebsocket(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/ws/")
	stream := media.Get(path)
	if stream == nil {
		http.NotFound(w, r)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnf("ws: upgrade failed: %s", err.Error())
		return
	}

	sess := &wsSession{
		ws:     ws,
		stream: stream,
		logger: s.logger.With(xlog.Fields(xlog.F("addr", ws.RemoteAddr().String()))),
	}
	sess.cid = stream.StartConsume(sess, media.WSConsumer, ws.RemoteAddr().String())
	sess.logger.Info("ws: consumer attached")

	go sess.readLoop()
}

// wsSession 一个 WebSocket 消费会话
type wsSession struct {
	ws     *websocket.Conn
	stream *media.Stream
	cid    media.CID
	logger *xlog.Logger
}

// Consume 实现 media.Consumer。
func (s *wsSession) Consume(pack media.Pack) {
	s.ws.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := s.ws.WriteMessage(websocket.BinaryMessage, pack); err != nil {
		s.logger.Warnf("ws: write error: %s", err.Error())
		s.stream.StopConsume(s.cid)
	}
}

// Close 实现 media.Consumer。
func (s *wsSession) Close() error {
	return s.ws.Close()
}

// 读仅用于处理控制帧和感知客户端断开。
func (s *wsSession) readLoop() {
	for {
		if _, _, err := s.ws.ReadMessage(); err != nil {
			break
		}
	}
	s.logger.Info("ws: consumer detached")
	s.stream.StopConsume(s.cid)
}
