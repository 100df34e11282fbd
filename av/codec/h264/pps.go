// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package h264

import (
	"errors"

	"github.com/cnotch/avcenc/utils/bits"
)

// RawPPS 图像参数集（本编码器生成的子集）
// 全部字段取缺省值：CAVLC、单 slice group、无加权预测、QP 26。
type RawPPS struct {
	PicParameterSetID uint8
	SeqParameterSetID uint8

	// I_PCM 宏块绕过熵编码，CAVLC/CABAC 的选择无关紧要，取 0
	EntropyCodingModeFlag uint8

	PicInitQpMinus26    int8
	PicInitQsMinus26    int8
	ChromaQpIndexOffset int8
}

// NewPPS retruns a new RawPPS.
func NewPPS() *RawPPS {
	return &RawPPS{}
}

// EncodeTo 按语法序写出 pic_parameter_set_rbsp 的负载（不含 trailing bits）。
func (pps *RawPPS) EncodeTo(w *bits.Writer) {
	w.WriteUe(uint32(pps.PicParameterSetID))
	w.WriteUe(uint32(pps.SeqParameterSetID))

	w.WriteBit(pps.EntropyCodingModeFlag)
	w.WriteBit(0) // bottom_field_pic_order_in_frame_present_flag

	w.WriteUe(0) // num_slice_groups_minus1

	w.WriteUe(0) // num_ref_idx_l0_default_active_minus1
	w.WriteUe(0) // num_ref_idx_l1_default_active_minus1

	w.WriteBit(0)     // weighted_pred_flag
	w.WriteBits(0, 2) // weighted_bipred_idc

	w.WriteSe(int32(pps.PicInitQpMinus26))
	w.WriteSe(int32(pps.PicInitQsMinus26))
	w.WriteSe(int32(pps.ChromaQpIndexOffset))

	w.WriteBit(0) // deblocking_filter_control_present_flag
	w.WriteBit(0) // constrained_intra_pred_flag
	w.WriteBit(0) // redundant_pic_cnt_present_flag
}

// Rbsp 返回完整的 PPS RBSP（含 trailing bits，未插入竞争防止字节）。
func (pps *RawPPS) Rbsp() []byte {
	w := bits.NewWriterSize(8)
	pps.EncodeTo(w)
	w.WriteTrailingBits()
	return w.Bytes()
}

// NalUnit 封装成 NAL 单元。
func (pps *RawPPS) NalUnit() *NalUnit {
	return NewNalUnit(3, NalPps, pps.Rbsp())
}

// Decode 从 NAL 字节序列（含单元头，可带起始码）解码 PPS。
// 仅支持本编码器产生的语法子集。
func (pps *RawPPS) Decode(data []byte) error {
	rbsp := UnescapeRbsp(RemoveStartCode(data))
	if len(rbsp) < 2 {
		return errors.New("h264: pps data is not enough")
	}

	if !IsPps(rbsp[0]) {
		return errors.New("h264: not a pps NAL unit")
	}

	r := bits.NewReader(rbsp[1:])
	pps.PicParameterSetID = r.ReadUe8()
	pps.SeqParameterSetID = r.ReadUe8()

	pps.EntropyCodingModeFlag = r.ReadBit()
	r.Skip(1) // bottom_field_pic_order_in_frame_present_flag

	if r.ReadUe() != 0 {
		return errors.New("h264: multiple slice groups not supported")
	}

	r.ReadUe() // num_ref_idx_l0_default_active_minus1
	r.ReadUe() // num_ref_idx_l1_default_active_minus1

	r.Skip(1) // weighted_pred_flag
	r.Skip(2) // weighted_bipred_idc

	pps.PicInitQpMinus26 = int8(r.ReadSe())
	pps.PicInitQsMinus26 = int8(r.ReadSe())
	pps.ChromaQpIndexOffset = int8(r.ReadSe())

	if r.BitsLeft() < 3 {
		return errors.New("h264: pps truncated")
	}
	return nil
}
