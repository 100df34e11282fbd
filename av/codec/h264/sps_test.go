// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package h264

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRawSPS_Encode(t *testing.T) {
	// 16x16 mono 8bit：High profile，level 10，无裁剪
	spec := FrameSpec{Width: 16, Height: 16, BitDepth: 8, ChromaFormat: Monochrome400}
	sps := NewSPS(spec)

	assert.Equal(t, uint8(ProfileHigh), sps.ProfileIdc)
	assert.Equal(t, uint8(10), sps.LevelIdc)
	assert.Equal(t, []byte{0x64, 0x00, 0x0a, 0xfa, 0xd3, 0x88}, sps.Rbsp())
	assert.Equal(t,
		[]byte{0x00, 0x00, 0x00, 0x01, 0x67, 0x64, 0x00, 0x0a, 0xfa, 0xd3, 0x88},
		sps.NalUnit().AnnexB())
}

func TestRawSPS_Roundtrip(t *testing.T) {
	tests := []struct {
		name string
		spec FrameSpec
	}{
		{"mono8_16x16", FrameSpec{16, 16, 8, Monochrome400}},
		{"mono8_17x17", FrameSpec{17, 17, 8, Monochrome400}},
		{"mono12_32x16", FrameSpec{32, 16, 12, Monochrome400}},
		{"yuv420_16x16", FrameSpec{16, 16, 8, Yuv420}},
		{"yuv420_1280x720", FrameSpec{1280, 720, 8, Yuv420}},
		{"yuv420_1920x1080", FrameSpec{1920, 1080, 8, Yuv420}},
		{"yuv420_12bit", FrameSpec{640, 480, 12, Yuv420}},
		{"mono8_354x288", FrameSpec{354, 288, 8, Monochrome400}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sps := NewSPS(tt.spec)

			var decoded RawSPS
			err := decoded.Decode(sps.NalUnit().Naked())
			assert.NoError(t, err)

			assert.Equal(t, tt.spec.Width, decoded.Width())
			assert.Equal(t, tt.spec.Height, decoded.Height())
			assert.Equal(t, tt.spec.BitDepth, decoded.BitDepth())
			assert.Equal(t, uint8(tt.spec.ChromaFormat), decoded.ChromaFormatIdc)
			assert.Equal(t, *sps, decoded)
		})
	}
}

func TestRawSPS_Cropping(t *testing.T) {
	// 17x17 mono：宏块对齐到 32x32，右/下各裁 15 像素（mono 的 CropUnit 为 1）
	sps := NewSPS(FrameSpec{Width: 17, Height: 17, BitDepth: 8, ChromaFormat: Monochrome400})
	assert.Equal(t, uint8(1), sps.FrameCroppingFlag)
	assert.Equal(t, uint16(0), sps.FrameCropLeftOffset)
	assert.Equal(t, uint16(15), sps.FrameCropRightOffset)
	assert.Equal(t, uint16(0), sps.FrameCropTopOffset)
	assert.Equal(t, uint16(15), sps.FrameCropBottomOffset)

	// 1280x720 4:2:0：720 是 16 的倍数，无需裁剪
	sps = NewSPS(FrameSpec{Width: 1280, Height: 720, BitDepth: 8, ChromaFormat: Yuv420})
	assert.Equal(t, uint8(0), sps.FrameCroppingFlag)

	// 1280x714 4:2:0：714 非 16 倍数，裁剪单位为 2
	sps = NewSPS(FrameSpec{Width: 1280, Height: 714, BitDepth: 8, ChromaFormat: Yuv420})
	assert.Equal(t, uint8(1), sps.FrameCroppingFlag)
	assert.Equal(t, uint16(3), sps.FrameCropBottomOffset) // (720-714)/2
	assert.Equal(t, 714, sps.Height())
}

func TestRawSPS_Level(t *testing.T) {
	tests := []struct {
		w, h  int
		level uint8
	}{
		{144, 96, 10},    // 9x6=54 MBs
		{352, 288, 11},   // 396
		{640, 480, 22},   // 1200
		{1280, 720, 31},  // 3600
		{1920, 1080, 40}, // 8160
		{3840, 2160, 51}, // 32400
	}
	for _, tt := range tests {
		spec := FrameSpec{Width: tt.w, Height: tt.h, BitDepth: 8, ChromaFormat: Yuv420}
		assert.Equal(t, tt.level, NewSPS(spec).LevelIdc, "%dx%d", tt.w, tt.h)
	}
}

func TestRawSPS_HighBitDepthProfile(t *testing.T) {
	sps := NewSPS(FrameSpec{Width: 32, Height: 16, BitDepth: 12, ChromaFormat: Monochrome400})
	assert.Equal(t, uint8(ProfileHigh444Pp), sps.ProfileIdc)
	assert.Equal(t, uint8(4), sps.BitDepthLumaMinus8)
	assert.Equal(t, uint8(4), sps.BitDepthChromaMinus8)
}

func TestRawPPS_Encode(t *testing.T) {
	pps := NewPPS()
	// 经典的最小 PPS：68 ce 38 80
	assert.Equal(t, []byte{0xce, 0x38, 0x80}, pps.Rbsp())
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x01, 0x68, 0xce, 0x38, 0x80}, pps.NalUnit().AnnexB())
}

func TestRawPPS_Roundtrip(t *testing.T) {
	pps := NewPPS()

	var decoded RawPPS
	assert.NoError(t, decoded.Decode(pps.NalUnit().Naked()))
	assert.Equal(t, *pps, decoded)
}
