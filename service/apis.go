// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package service

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cnotch/apirouter"
	"github.com/cnotch/avcenc/av/format/sdp"
	"github.com/cnotch/avcenc/config"
	"github.com/cnotch/avcenc/media"
	"github.com/cnotch/avcenc/stats"
)

var buffers = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, 1024*2))
	},
}

func (s *Service) initApis(mux *http.ServeMux) {
	api := apirouter.NewForGRPC(
		// 系统信息类API
		apirouter.GET("/api/v1/runtime", s.onGetRuntime),

		// 流管理API
		apirouter.GET("/api/v1/streams", s.onListStreams),
		apirouter.GET("/api/v1/streams/{path=**}", s.onGetStreamInfo),
		apirouter.DELETE("/api/v1/streams/{path=**}:consumer", s.onStopConsumer),

		// RTP 会话描述
		apirouter.GET("/api/v1/sdp/{path=**}", s.onGetSdp),
	)

	// api add to mux
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		api.ServeHTTP(w, r)
	})
}

// 运行时信息
func (s *Service) onGetRuntime(w http.ResponseWriter, r *http.Request, pathParams apirouter.Params) {
	type sccc struct {
		SC int `json:"sources"`
		CC int `json:"consumers"`
	}
	type runtimeInfo struct {
		On      string         `json:"on"`
		Proc    stats.Proc     `json:"proc"`
		Streams sccc           `json:"streams"`
		Extra   *stats.Runtime `json:"extra,omitempty"`
	}

	sc, cc := media.Count()
	rt := runtimeInfo{
		On:      time.Now().Format(time.RFC3339Nano),
		Proc:    stats.MeasureProc(),
		Streams: sccc{SC: sc, CC: cc},
	}
	if r.URL.Query().Get("extra") != "" {
		rt.Extra = stats.MeasureRuntime()
	}

	if err := jsonTo(w, &rt); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// 流列表
func (s *Service) onListStreams(w http.ResponseWriter, r *http.Request, pathParams apirouter.Params) {
	includeCs := r.URL.Query().Get("consumers") != ""
	if err := jsonTo(w, media.Infos(includeCs)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// 单个流信息
func (s *Service) onGetStreamInfo(w http.ResponseWriter, r *http.Request, pathParams apirouter.Params) {
	path := pathParams.ByName("path")
	stream := media.Get(path)
	if stream == nil {
		http.Error(w, "stream not found: "+path, http.StatusNotFound)
		return
	}

	if err := jsonTo(w, stream.Info(true)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// 停止某个消费者
func (s *Service) onStopConsumer(w http.ResponseWriter, r *http.Request, pathParams apirouter.Params) {
	path := pathParams.ByName("path")
	stream := media.Get(path)
	if stream == nil {
		http.Error(w, "stream not found: "+path, http.StatusNotFound)
		return
	}

	cid, err := strconv.ParseUint(r.URL.Query().Get("cid"), 10, 32)
	if err != nil {
		http.Error(w, "invalid cid", http.StatusBadRequest)
		return
	}

	stream.StopConsume(media.CID(cid))
	w.WriteHeader(http.StatusNoContent)
}

// 流的 SDP 描述
func (s *Service) onGetSdp(w http.ResponseWriter, r *http.Request, pathParams apirouter.Params) {
	path := pathParams.ByName("path")
	stream := media.Get(path)
	if stream == nil {
		http.Error(w, "stream not found: "+path, http.StatusNotFound)
		return
	}

	// 目标地址缺省用 rtp_target 配置
	addr, port := "0.0.0.0", 5004
	if target := config.RtpTarget(); target != "" {
		if i := strings.LastIndexByte(target, ':'); i > 0 {
			addr = target[:i]
			if p, err := strconv.Atoi(target[i+1:]); err == nil {
				port = p
			}
		}
	}

	spsNal, ppsNal := stream.ParameterSets()
	w.Header().Set("Content-Type", "application/sdp")
	io.WriteString(w, sdp.Describe(stream.Path(), addr, port, spsNal, ppsNal))
}

func jsonTo(w io.Writer, o interface{}) error {
	formatted := buffers.Get().(*bytes.Buffer)
	formatted.Reset()
	defer buffers.Put(formatted)

	body, err := json.Marshal(o)
	if err != nil {
		return err
	}

	if err := json.Indent(formatted, body, "", "\t"); err != nil {
		return err
	}

	_, err = w.Write(formatted.Bytes())
	return err
}
