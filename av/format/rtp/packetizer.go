// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package rtp 按 RFC6184 把编码输出打包为 RTP 包。
package rtp

import (
	"errors"
	"io"

	"github.com/cnotch/avcenc/av/codec/h264"
	"github.com/cnotch/avcenc/media"
	"github.com/pion/rtp"
)

// RFC6184 打包常量
const (
	DefaultPayloadType = 96    // 动态负载类型
	VideoClockRate     = 90000 // H.264 的 RTP 时钟
	DefaultMtu         = 1400

	fuaType       = 28 // FU-A
	fuaHeaderSize = 2
)

// Packetizer 把 NAL 单元流打包为 RTP 包。
// 不超过 MTU 的 NAL 按单一 NAL 模式，超出的按 FU-A 分片。
type Packetizer struct {
	mtu  int
	pt   uint8
	ssrc uint32
	seq  uint16
}

// NewPacketizer retruns a new Packetizer.
func NewPacketizer(pt uint8, ssrc uint32, mtu int) *Packetizer {
	if mtu < fuaHeaderSize+1 {
		mtu = DefaultMtu
	}
	return &Packetizer{
		mtu:  mtu,
		pt:   pt,
		ssrc: ssrc,
	}
}

// PacketizeNalu 打包单个 NAL（不含起始码）。
// marker 指示本 NAL 是否为一帧的最后一个。
func (p *Packetizer) PacketizeNalu(nalu []byte, timestamp uint32, marker bool) ([][]byte, error) {
	if len(nalu) == 0 {
		return nil, errors.New("rtp: empty nal unit")
	}

	var payloads [][]byte
	if len(nalu) <= p.mtu {
		payload := make([]byte, len(nalu))
		copy(payload, nalu)
		payloads = append(payloads, payload)
	} else {
		// FU-A：indicator 继承 NRI，分片携带原始类型
		indicator := nalu[0]&0xe0 | fuaType
		naluType := nalu[0] & h264.NalTypeBitmask

		data := nalu[1:]
		first := true
		for len(data) > 0 {
			n := p.mtu - fuaHeaderSize
			if n > len(data) {
				n = len(data)
			}

			fu := make([]byte, fuaHeaderSize+n)
			fu[0] = indicator
			fu[1] = naluType
			if first {
				fu[1] |= 0x80 // S bit
				first = false
			}
			if n == len(data) {
				fu[1] |= 0x40 // E bit
			}
			copy(fu[fuaHeaderSize:], data[:n])

			payloads = append(payloads, fu)
			data = data[n:]
		}
	}

	packets := make([][]byte, 0, len(payloads))
	for i, payload := range payloads {
		p.seq++
		pkt := &rtp.Packet{
			Header: rtp.Header{
				Version:        2,
				Marker:         marker && i == len(payloads)-1,
				PayloadType:    p.pt,
				SequenceNumber: p.seq,
				Timestamp:      timestamp,
				SSRC:           p.ssrc,
			},
			Payload: payload,
		}
		raw, err := pkt.Marshal()
		if err != nil {
			return nil, err
		}
		packets = append(packets, raw)
	}
	return packets, nil
}

// PacketizePack 打包一帧的 Annex B 码流，最后一个包置 Marker。
func (p *Packetizer) PacketizePack(pack []byte, timestamp uint32) ([][]byte, error) {
	nalus, err := h264.SplitAnnexB(pack)
	if err != nil {
		return nil, err
	}

	var packets [][]byte
	for i, nalu := range nalus {
		pkts, err := p.PacketizeNalu(nalu, timestamp, i == len(nalus)-1)
		if err != nil {
			return nil, err
		}
		packets = append(packets, pkts...)
	}
	return packets, nil
}

// Consumer 把流的编码输出打包后写入 w（如 UDP 连接）。
type Consumer struct {
	packetizer    *Packetizer
	w             io.Writer
	ticksPerFrame uint32
	timestamp     uint32
	err           error
}

// NewConsumer retruns a new Consumer.
// ticksPerFrame 为每帧的时钟步进，如 30fps 对应 3000。
func NewConsumer(w io.Writer, ssrc uint32, ticksPerFrame uint32) *Consumer {
	if ticksPerFrame == 0 {
		ticksPerFrame = VideoClockRate / 30
	}
	return &Consumer{
		packetizer:    NewPacketizer(DefaultPayloadType, ssrc, DefaultMtu),
		w:             w,
		ticksPerFrame: ticksPerFrame,
	}
}

// Consume 实现 media.Consumer。
func (c *Consumer) Consume(pack media.Pack) {
	if c.err != nil {
		return
	}

	packets, err := c.packetizer.PacketizePack(pack, c.timestamp)
	if err != nil {
		c.err = err
		return
	}
	c.timestamp += c.ticksPerFrame

	for _, pkt := range packets {
		if _, err := c.w.Write(pkt); err != nil {
			c.err = err
			return
		}
	}
}

// Close 实现 media.Consumer。
func (c *Consumer) Close() error {
	if closer, ok := c.w.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
