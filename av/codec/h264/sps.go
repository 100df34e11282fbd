// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
//
// Field order follows 7.3.2.1.1 seq_parameter_set_data in T-REC-H.264-201704
package h264

import (
	"errors"
	"fmt"

	"github.com/cnotch/avcenc/utils/bits"
)

// RawSPS 序列参数集（本编码器生成的子集）
type RawSPS struct {
	ProfileIdc         uint8
	ConstraintSetFlags uint8 // constraint_set0..5_flag + reserved_zero_2bits
	LevelIdc           uint8

	SeqParameterSetID uint8

	ChromaFormatIdc                 uint8
	BitDepthLumaMinus8              uint8
	BitDepthChromaMinus8            uint8
	QpprimeYZeroTransformBypassFlag uint8

	// MaxFrameNum = 2^(Log2MaxFrameNumMinus4 + 4)
	Log2MaxFrameNumMinus4 uint8
	// 全 IDR 流使用 2：POC 由 frame_num 推导，省去 poc_lsb 字段
	PicOrderCntType uint8

	MaxNumRefFrames           uint8
	GapsInFrameNumAllowedFlag uint8

	// PicWidthInSamples = (PicWidthInMbsMinus1 + 1) * 16
	PicWidthInMbsMinus1       uint16
	PicHeightInMapUnitsMinus1 uint16

	FrameMbsOnlyFlag       uint8
	Direct8x8InferenceFlag uint8

	// 宽高不是 16 倍数时置 1，偏移以 CropUnit 为单位
	FrameCroppingFlag     uint8
	FrameCropLeftOffset   uint16
	FrameCropRightOffset  uint16
	FrameCropTopOffset    uint16
	FrameCropBottomOffset uint16

	VuiParametersPresentFlag uint8
}

// NewSPS 依据流描述构造 SPS。
func NewSPS(spec FrameSpec) *RawSPS {
	sps := &RawSPS{
		LevelIdc:                        LevelFor(spec.MbWidth(), spec.MbHeight()),
		ChromaFormatIdc:                 uint8(spec.ChromaFormat),
		BitDepthLumaMinus8:              uint8(spec.BitDepth - 8),
		BitDepthChromaMinus8:            uint8(spec.BitDepth - 8),
		QpprimeYZeroTransformBypassFlag: 1,
		MaxNumRefFrames:                 1,
		PicOrderCntType:                 2,
		PicWidthInMbsMinus1:             uint16(spec.MbWidth() - 1),
		PicHeightInMapUnitsMinus1:       uint16(spec.MbHeight() - 1),
		FrameMbsOnlyFlag:                1,
	}

	// 8bit 用 High；12bit 采样只有 High 4:4:4 Predictive 允许
	if spec.BitDepth == 12 {
		sps.ProfileIdc = ProfileHigh444Pp
	} else {
		sps.ProfileIdc = ProfileHigh
	}

	padW := spec.MbWidth()*MbSize - spec.Width
	padH := spec.MbHeight()*MbSize - spec.Height
	if padW != 0 || padH != 0 {
		cropUnitX, cropUnitY := spec.cropUnits()
		sps.FrameCroppingFlag = 1
		sps.FrameCropRightOffset = uint16(padW / cropUnitX)
		sps.FrameCropBottomOffset = uint16(padH / cropUnitY)
	}
	return sps
}

// Width 视频宽度（像素）
func (sps *RawSPS) Width() int {
	cropUnitX := sps.cropUnitX()
	w := int(sps.PicWidthInMbsMinus1+1)*MbSize -
		int(sps.FrameCropLeftOffset+sps.FrameCropRightOffset)*cropUnitX
	return w
}

// Height 视频高度（像素）
func (sps *RawSPS) Height() int {
	cropUnitY := sps.cropUnitY()
	h := (2-int(sps.FrameMbsOnlyFlag))*int(sps.PicHeightInMapUnitsMinus1+1)*MbSize -
		int(sps.FrameCropTopOffset+sps.FrameCropBottomOffset)*cropUnitY
	return h
}

// BitDepth 亮度位深
func (sps *RawSPS) BitDepth() int {
	return int(sps.BitDepthLumaMinus8) + 8
}

func (sps *RawSPS) cropUnitX() int {
	if sps.ChromaFormatIdc == ChromaFormatMonochrome {
		return 1
	}
	return 2
}

func (sps *RawSPS) cropUnitY() int {
	u := 1
	if sps.ChromaFormatIdc != ChromaFormatMonochrome {
		u = 2
	}
	return u * (2 - int(sps.FrameMbsOnlyFlag))
}

// 带色度语法分支的 profile 集合，7.3.2.1.1 的条件判断
func hasChromaInfo(profileIdc uint8) bool {
	switch profileIdc {
	case 100, 110, 122, 244, 44, 83, 86, 118, 128:
		return true
	}
	return false
}

// EncodeTo 按语法序写出 seq_parameter_set_data（不含 trailing bits）。
func (sps *RawSPS) EncodeTo(w *bits.Writer) {
	w.WriteBits(uint64(sps.ProfileIdc), 8)
	w.WriteBits(uint64(sps.ConstraintSetFlags), 8)
	w.WriteBits(uint64(sps.LevelIdc), 8)

	w.WriteUe(uint32(sps.SeqParameterSetID))

	if hasChromaInfo(sps.ProfileIdc) {
		w.WriteUe(uint32(sps.ChromaFormatIdc))
		if sps.ChromaFormatIdc == ChromaFormat444 {
			w.WriteBit(0) // separate_colour_plane_flag
		}
		// bit_depth_chroma_minus8 即使 4:0:0 也要写出
		w.WriteUe(uint32(sps.BitDepthLumaMinus8))
		w.WriteUe(uint32(sps.BitDepthChromaMinus8))
		w.WriteBit(sps.QpprimeYZeroTransformBypassFlag)
		w.WriteBit(0) // seq_scaling_matrix_present_flag
	}

	w.WriteUe(uint32(sps.Log2MaxFrameNumMinus4))

	w.WriteUe(uint32(sps.PicOrderCntType))
	// pic_order_cnt_type == 2 无附加字段

	w.WriteUe(uint32(sps.MaxNumRefFrames))
	w.WriteBit(sps.GapsInFrameNumAllowedFlag)

	w.WriteUe(uint32(sps.PicWidthInMbsMinus1))
	w.WriteUe(uint32(sps.PicHeightInMapUnitsMinus1))

	w.WriteBit(sps.FrameMbsOnlyFlag)
	// frame_mbs_only_flag == 1 时无 mb_adaptive_frame_field_flag
	w.WriteBit(sps.Direct8x8InferenceFlag)

	w.WriteBit(sps.FrameCroppingFlag)
	if sps.FrameCroppingFlag == 1 {
		w.WriteUe(uint32(sps.FrameCropLeftOffset))
		w.WriteUe(uint32(sps.FrameCropRightOffset))
		w.WriteUe(uint32(sps.FrameCropTopOffset))
		w.WriteUe(uint32(sps.FrameCropBottomOffset))
	}

	w.WriteBit(sps.VuiParametersPresentFlag)
}

// Rbsp 返回完整的 SPS RBSP（含 trailing bits，未插入竞争防止字节）。
func (sps *RawSPS) Rbsp() []byte {
	w := bits.NewWriterSize(32)
	sps.EncodeTo(w)
	w.WriteTrailingBits()
	return w.Bytes()
}

// NalUnit 封装成 NAL 单元。
func (sps *RawSPS) NalUnit() *NalUnit {
	return NewNalUnit(3, NalSps, sps.Rbsp())
}

// Decode 从 NAL 字节序列（含单元头，可带起始码）解码 SPS。
// 仅支持本编码器产生的语法子集。
func (sps *RawSPS) Decode(data []byte) (err error) {
	rbsp := UnescapeRbsp(RemoveStartCode(data))
	if len(rbsp) < 5 {
		return errors.New("h264: sps data is not enough")
	}

	if !IsSps(rbsp[0]) {
		return errors.New("h264: not a sps NAL unit")
	}

	r := bits.NewReader(rbsp[1:])

	sps.ProfileIdc = r.ReadUint8(8)
	sps.ConstraintSetFlags = r.ReadUint8(8)
	sps.LevelIdc = r.ReadUint8(8)

	sps.SeqParameterSetID = r.ReadUe8()

	if hasChromaInfo(sps.ProfileIdc) {
		sps.ChromaFormatIdc = r.ReadUe8()
		if sps.ChromaFormatIdc == ChromaFormat444 {
			r.Skip(1) // separate_colour_plane_flag
		}
		sps.BitDepthLumaMinus8 = r.ReadUe8()
		sps.BitDepthChromaMinus8 = r.ReadUe8()
		sps.QpprimeYZeroTransformBypassFlag = r.ReadBit()
		if r.ReadBool() {
			return errors.New("h264: scaling matrix not supported")
		}
	} else {
		sps.ChromaFormatIdc = ChromaFormat420
	}

	sps.Log2MaxFrameNumMinus4 = r.ReadUe8()

	sps.PicOrderCntType = r.ReadUe8()
	switch sps.PicOrderCntType {
	case 0:
		r.ReadUe() // log2_max_pic_order_cnt_lsb_minus4
	case 2:
	default:
		return fmt.Errorf("h264: pic_order_cnt_type %d not supported", sps.PicOrderCntType)
	}

	sps.MaxNumRefFrames = r.ReadUe8()
	sps.GapsInFrameNumAllowedFlag = r.ReadBit()

	sps.PicWidthInMbsMinus1 = r.ReadUe16()
	sps.PicHeightInMapUnitsMinus1 = r.ReadUe16()

	sps.FrameMbsOnlyFlag = r.ReadBit()
	if sps.FrameMbsOnlyFlag == 0 {
		r.Skip(1) // mb_adaptive_frame_field_flag
	}
	sps.Direct8x8InferenceFlag = r.ReadBit()

	sps.FrameCroppingFlag = r.ReadBit()
	if sps.FrameCroppingFlag == 1 {
		sps.FrameCropLeftOffset = r.ReadUe16()
		sps.FrameCropRightOffset = r.ReadUe16()
		sps.FrameCropTopOffset = r.ReadUe16()
		sps.FrameCropBottomOffset = r.ReadUe16()
	}

	sps.VuiParametersPresentFlag = r.ReadBit()
	if r.BitsLeft() < 0 {
		return errors.New("h264: sps truncated")
	}
	return nil
}
