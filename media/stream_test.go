// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package media

import (
	"bytes"
	"testing"
	"time"

	"github.com/cnotch/avcenc/av/codec/h264"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chanConsumer struct {
	packs chan Pack
}

func (c *chanConsumer) Consume(pack Pack) { c.packs <- pack }
func (c *chanConsumer) Close() error      { return nil }

func testSpec() h264.FrameSpec {
	return h264.FrameSpec{Width: 16, Height: 16, BitDepth: 8, ChromaFormat: h264.Monochrome400}
}

func TestStream_Consume(t *testing.T) {
	s, err := NewStream("test/mono", testSpec())
	require.NoError(t, err)
	defer s.Close()

	consumer := &chanConsumer{packs: make(chan Pack, 4)}
	cid := s.StartConsume(consumer, RawConsumer, "unit test")
	assert.Equal(t, RawConsumer, cid.Type())

	// 每个消费会话携带不可预测的令牌
	info := s.Info(true)
	require.Len(t, info.Consumptions, 1)
	assert.NotEmpty(t, info.Consumptions[0].Session)

	require.NoError(t, s.WriteFrame(&h264.Frame{Y: bytes.Repeat([]byte{0x55}, 256)}))

	select {
	case pack := <-consumer.packs:
		nalus, err := h264.SplitAnnexB(pack)
		require.NoError(t, err)
		require.Len(t, nalus, 3) // 首帧 SPS+PPS+IDR
		assert.True(t, h264.IsSps(nalus[0][0]))
		assert.True(t, h264.IsPps(nalus[1][0]))
		assert.True(t, h264.IsIdrSlice(nalus[2][0]))
	case <-time.After(3 * time.Second):
		t.Fatal("no pack received")
	}

	// 第二帧只有 IDR
	require.NoError(t, s.WriteFrame(&h264.Frame{Y: bytes.Repeat([]byte{0xaa}, 256)}))
	select {
	case pack := <-consumer.packs:
		nalus, err := h264.SplitAnnexB(pack)
		require.NoError(t, err)
		require.Len(t, nalus, 1)
		assert.True(t, h264.IsIdrSlice(nalus[0][0]))
	case <-time.After(3 * time.Second):
		t.Fatal("no pack received")
	}

	s.StopConsume(cid)
	assert.Equal(t, 0, s.ConsumerCount())
}

func TestStream_Regist(t *testing.T) {
	s1, err := NewStream("test/regist", testSpec())
	require.NoError(t, err)
	Regist(s1)
	defer UnregistAll()

	assert.Equal(t, s1, Get("test/regist"))
	assert.Nil(t, Get("test/missing"))

	sc, _ := Count()
	assert.Equal(t, 1, sc)

	// 同路径替换
	s2, err := NewStream("test/regist", testSpec())
	require.NoError(t, err)
	Regist(s2)
	assert.Equal(t, s2, Get("test/regist"))

	Unregist(s2)
	assert.Nil(t, Get("test/regist"))
}
