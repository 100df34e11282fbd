// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package media

import (
	"errors"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cnotch/avcenc/av/codec/h264"
	"github.com/cnotch/avcenc/provider/security"
	"github.com/cnotch/avcenc/stats"
	"github.com/cnotch/queue"
	"github.com/cnotch/xlog"
)

// 流状态
const (
	StreamOK     int32 = iota
	StreamClosed       // 流已关闭
)

// Pack 一帧编码后的 Annex B 码流
type Pack []byte

// Size .
func (p Pack) Size() int { return len(p) }

// Stream 一路无损编码流。
// 输入帧经编码后扇出给所有已注册的消费者。
type Stream struct {
	startOn   time.Time
	path      string
	encoder   *h264.Encoder
	recvQueue *queue.SyncQueue
	status    int32
	logger    *xlog.Logger

	Flow stats.Flow // 流量统计

	consumerSequenceSeed uint32
	consumptions         sync.Map // CID -> *consumption
}

// NewStream 创建编码流。
// 写入 Stream 的帧所有权移交给流，调用方不得再修改。
func NewStream(path string, spec h264.FrameSpec) (*Stream, error) {
	encoder, err := h264.NewEncoder(spec)
	if err != nil {
		return nil, err
	}

	s := &Stream{
		startOn:   time.Now(),
		path:      path,
		encoder:   encoder,
		recvQueue: queue.NewSyncQueue(),
		status:    StreamOK,
		logger:    xlog.L().With(xlog.Fields(xlog.F("path", path))),
		Flow:      stats.NewFlow(),
	}

	go s.pump()
	return s, nil
}

// Path 流路径
func (s *Stream) Path() string { return s.path }

// Spec 流的帧描述
func (s *Stream) Spec() h264.FrameSpec { return s.encoder.Spec() }

// ParameterSets 流的 SPS/PPS NAL 单元。
func (s *Stream) ParameterSets() (sps, pps *h264.NalUnit) {
	return s.encoder.ParameterSets()
}

// WriteFrame 送入一帧等待编码。
func (s *Stream) WriteFrame(frame *h264.Frame) error {
	if atomic.LoadInt32(&s.status) != StreamOK {
		return errors.New("media: stream is closed")
	}
	s.recvQueue.Push(frame)
	return nil
}

// 编码并扇出
func (s *Stream) pump() {
	defer func() {
		defer func() { // 避免 handler 再 panic
			recover()
		}()

		if r := recover(); r != nil {
			s.logger.Errorf("stream pump routine panic; r = %v \n %s", r, debug.Stack())
		}

		// 尽早通知GC，回收内存
		s.recvQueue.Reset()
	}()

	for atomic.LoadInt32(&s.status) == StreamOK {
		f := s.recvQueue.Pop()
		if f == nil {
			if atomic.LoadInt32(&s.status) == StreamOK {
				s.logger.Warn("stream: receive nil frame")
			}
			continue
		}

		frame := f.(*h264.Frame)
		s.Flow.AddInFrame(int64(len(frame.Y) + len(frame.Cb) + len(frame.Cr)))

		nals, err := s.encoder.Encode(frame)
		if err != nil {
			s.logger.Errorf("stream: encode frame error: %s", err.Error())
			continue
		}

		var pack Pack
		for _, nal := range nals {
			pack = append(pack, nal.AnnexB()...)
		}
		s.Flow.AddOut(int64(pack.Size()))

		s.consumptions.Range(func(key, value interface{}) bool {
			c := value.(*consumption)
			c.send(pack)
			return true
		})
	}
}

// StartConsume 开始消费，返回消费ID。
func (s *Stream) StartConsume(consumer Consumer, consumerType ConsumerType, extra string) CID {
	cid := NewCID(consumerType, &s.consumerSequenceSeed)
	c := &consumption{
		startOn:   time.Now(),
		stream:    s,
		cid:       cid,
		session:   security.NextSessionID().Token(s.path),
		consumer:  consumer,
		extra:     extra,
		recvQueue: queue.NewSyncQueue(),
		Flow:      stats.NewChildFlow(s.Flow),
		logger:    s.logger,
	}
	s.consumptions.Store(cid, c)

	go c.consume()
	return cid
}

// StopConsume 停止消费。
func (s *Stream) StopConsume(cid CID) {
	if v, ok := s.consumptions.Load(cid); ok {
		s.consumptions.Delete(cid)
		v.(*consumption).Close()
	}
}

// ConsumerCount 当前消费者数量。
func (s *Stream) ConsumerCount() (count int) {
	s.consumptions.Range(func(key, value interface{}) bool {
		count++
		return true
	})
	return
}

// Close 关闭流并停止全部消费。
func (s *Stream) Close() error {
	if !atomic.CompareAndSwapInt32(&s.status, StreamOK, StreamClosed) {
		return nil
	}

	s.recvQueue.Signal()

	s.consumptions.Range(func(key, value interface{}) bool {
		s.consumptions.Delete(key)
		value.(*consumption).Close()
		return true
	})
	return nil
}

// StreamInfo 流信息
type StreamInfo struct {
	Path         string            `json:"path"`
	StartOn      string            `json:"start_on"`
	Spec         h264.FrameSpec    `json:"spec"`
	Flow         stats.FlowSample  `json:"flow"`
	ConsumerCnt  int               `json:"consumer_count"`
	Consumptions []ConsumptionInfo `json:"consumptions,omitempty"`
}

// Info 获取流信息。
func (s *Stream) Info(includeConsumptions bool) StreamInfo {
	info := StreamInfo{
		Path:        s.path,
		StartOn:     s.startOn.Format(time.RFC3339Nano),
		Spec:        s.encoder.Spec(),
		Flow:        s.Flow.GetSample(),
		ConsumerCnt: s.ConsumerCount(),
	}

	if includeConsumptions {
		s.consumptions.Range(func(key, value interface{}) bool {
			info.Consumptions = append(info.Consumptions, value.(*consumption).Info())
			return true
		})
	}
	return info
}
