// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package h264

/*
 * Table 7-1 – NAL unit type codes, syntax element categories, and NAL unit type classes in
 * T-REC-H.264-201704
 */
// H264 NAL 单元类型
const (
	NalUnspecified = 0
	NalSlice       = 1 // 不分区非IDR图像的片
	NalIdrSlice    = 5 // IDR图像中的片（I帧）
	NalSei         = 6 // 补充增强信息单元
	NalSps         = 7 // 序列参数集
	NalPps         = 8 // 图像参数集
	NalAud         = 9 // 分界符
	NalFillerData  = 12

	NalTypeBitmask = 0x1F
)

// A.2 profile_idc
const (
	ProfileBaseline  = 66
	ProfileMain      = 77
	ProfileHigh      = 100
	ProfileHigh10    = 110
	ProfileHigh422   = 122
	ProfileHigh444Pp = 244 // High 4:4:4 Predictive，12bit 采样和无损路径需要
)

// chroma_format_idc
const (
	ChromaFormatMonochrome = 0 // 4:0:0
	ChromaFormat420        = 1 // 4:2:0
	ChromaFormat422        = 2
	ChromaFormat444        = 3
)

// 宏块尺寸（亮度）
const MbSize = 16

// StartCode Annex B 起始码（统一使用 4 字节形式）
var StartCode = []byte{0x00, 0x00, 0x00, 0x01}

// NalType 获取 NAL 字节的类型部分
func NalType(nt byte) byte {
	return nt & NalTypeBitmask
}

// IsSps .
func IsSps(nt byte) bool {
	return nt&NalTypeBitmask == NalSps
}

// IsPps .
func IsPps(nt byte) bool {
	return nt&NalTypeBitmask == NalPps
}

// IsIdrSlice .
func IsIdrSlice(nt byte) bool {
	return nt&NalTypeBitmask == NalIdrSlice
}

// Table A-1 级别限制中的 MaxFS（单位宏块）。
// 仅按帧面积选择，帧率未知时的常规做法。
var levelMaxFs = []struct {
	levelIdc uint8
	maxFs    int
}{
	{10, 99},
	{11, 396},
	{21, 792},
	{22, 1620},
	{31, 3600},
	{32, 5120},
	{40, 8192},
	{42, 8704},
	{50, 22080},
	{51, 36864},
}

// LevelFor 返回容纳 mbWidth x mbHeight 图像的最小级别。
func LevelFor(mbWidth, mbHeight int) uint8 {
	fs := mbWidth * mbHeight
	for _, l := range levelMaxFs {
		if fs <= l.maxFs {
			return l.levelIdc
		}
	}
	return 51
}
