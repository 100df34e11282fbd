// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtp

import (
	"bytes"
	"testing"

	"github.com/cnotch/avcenc/av/codec/h264"
	"github.com/pion/rtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacketizer_SingleNal(t *testing.T) {
	p := NewPacketizer(DefaultPayloadType, 0x1234, DefaultMtu)

	nalu := []byte{0x67, 0x64, 0x00, 0x0a, 0xfa, 0xd3, 0x88}
	packets, err := p.PacketizeNalu(nalu, 9000, true)
	require.NoError(t, err)
	require.Len(t, packets, 1)

	var pkt rtp.Packet
	require.NoError(t, pkt.Unmarshal(packets[0]))
	assert.Equal(t, uint8(2), pkt.Version)
	assert.Equal(t, uint8(DefaultPayloadType), pkt.PayloadType)
	assert.Equal(t, uint32(0x1234), pkt.SSRC)
	assert.Equal(t, uint32(9000), pkt.Timestamp)
	assert.True(t, pkt.Marker)
	assert.Equal(t, nalu, pkt.Payload)
}

func TestPacketizer_FuA(t *testing.T) {
	const mtu = 100
	p := NewPacketizer(DefaultPayloadType, 1, mtu)

	nalu := make([]byte, 1+300)
	nalu[0] = 0x65 // IDR, nal_ref_idc=3
	for i := 1; i < len(nalu); i++ {
		nalu[i] = byte(i)
	}

	packets, err := p.PacketizeNalu(nalu, 0, true)
	require.NoError(t, err)
	require.True(t, len(packets) > 1)

	var rebuilt []byte
	for i, raw := range packets {
		var pkt rtp.Packet
		require.NoError(t, pkt.Unmarshal(raw))
		assert.True(t, len(pkt.Payload) <= mtu)

		// FU indicator：NRI 继承，类型 28
		assert.Equal(t, byte(0x7c), pkt.Payload[0])

		fuHeader := pkt.Payload[1]
		assert.Equal(t, byte(h264.NalIdrSlice), fuHeader&0x1f)
		assert.Equal(t, i == 0, fuHeader&0x80 != 0, "S bit")
		assert.Equal(t, i == len(packets)-1, fuHeader&0x40 != 0, "E bit")
		assert.Equal(t, i == len(packets)-1, pkt.Marker)

		rebuilt = append(rebuilt, pkt.Payload[2:]...)
	}

	// 去掉 FU 头后重组还原原始 NAL 负载
	assert.Equal(t, nalu[1:], rebuilt)
}

func TestPacketizer_Pack(t *testing.T) {
	enc, err := h264.NewEncoder(h264.FrameSpec{
		Width: 16, Height: 16, BitDepth: 8, ChromaFormat: h264.Monochrome400,
	})
	require.NoError(t, err)

	var stream bytes.Buffer
	require.NoError(t, enc.EncodeFrame(&h264.Frame{Y: make([]byte, 256)}, &stream))

	p := NewPacketizer(DefaultPayloadType, 7, DefaultMtu)
	packets, err := p.PacketizePack(stream.Bytes(), 0)
	require.NoError(t, err)
	require.Len(t, packets, 3) // SPS、PPS、IDR 各一个包

	var last rtp.Packet
	require.NoError(t, last.Unmarshal(packets[2]))
	assert.True(t, last.Marker)

	var first rtp.Packet
	require.NoError(t, first.Unmarshal(packets[0]))
	assert.False(t, first.Marker)
	assert.True(t, h264.IsSps(first.Payload[0]))
}

func TestConsumer(t *testing.T) {
	var sink bytes.Buffer
	c := NewConsumer(&sink, 42, 3000)

	enc, err := h264.NewEncoder(h264.FrameSpec{
		Width: 16, Height: 16, BitDepth: 8, ChromaFormat: h264.Monochrome400,
	})
	require.NoError(t, err)

	var stream bytes.Buffer
	require.NoError(t, enc.EncodeFrame(&h264.Frame{Y: make([]byte, 256)}, &stream))

	c.Consume(stream.Bytes())
	assert.True(t, sink.Len() > 0)
	assert.NoError(t, c.Close())
}
