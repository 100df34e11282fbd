// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package h264

import (
	"bytes"
	"errors"
)

// NalUnit 一个尚未封装的 NAL 单元。
// Rbsp 为未插入竞争防止字节的原始负载（含 trailing bits）。
type NalUnit struct {
	RefIdc uint8 // nal_ref_idc [0,3]
	Type   uint8 // nal_unit_type [0,31]
	Rbsp   []byte
}

// NewNalUnit retruns a new NalUnit.
// IDR 片强制 RefIdc 非 0：7.4.1 要求 nal_unit_type 为 5 时 nal_ref_idc 不得为 0。
func NewNalUnit(refIdc, nalType uint8, rbsp []byte) *NalUnit {
	if nalType == NalIdrSlice && refIdc == 0 {
		refIdc = 3
	}
	return &NalUnit{RefIdc: refIdc & 0x3, Type: nalType & NalTypeBitmask, Rbsp: rbsp}
}

// Header NAL 单元头字节：forbidden_zero_bit(1) + nal_ref_idc(2) + nal_unit_type(5)
func (nal *NalUnit) Header() byte {
	return nal.RefIdc<<5 | nal.Type
}

// Naked 返回不带起始码的封装字节序列，供容器自行定界。
func (nal *NalUnit) Naked() []byte {
	ebsp := EscapeRbsp(nal.Rbsp)
	buf := make([]byte, 0, 1+len(ebsp))
	buf = append(buf, nal.Header())
	return append(buf, ebsp...)
}

// AnnexB 返回带 00 00 00 01 起始码的字节序列。
func (nal *NalUnit) AnnexB() []byte {
	ebsp := EscapeRbsp(nal.Rbsp)
	buf := make([]byte, 0, len(StartCode)+1+len(ebsp))
	buf = append(buf, StartCode...)
	buf = append(buf, nal.Header())
	return append(buf, ebsp...)
}

// EscapeRbsp 在 RBSP 中插入竞争防止字节：
// 连续两个 0x00 之后若跟随 <= 0x03 的字节，则在其前插入 0x03。
// 插入的 0x03 会打断零串，重叠匹配不会再次触发。
func EscapeRbsp(rbsp []byte) []byte {
	ebsp := make([]byte, 0, len(rbsp)+len(rbsp)/64+8)
	zeros := 0
	for _, b := range rbsp {
		if zeros >= 2 && b <= 0x03 {
			ebsp = append(ebsp, 0x03)
			zeros = 0
		}
		ebsp = append(ebsp, b)
		if b == 0x00 {
			zeros++
		} else {
			zeros = 0
		}
	}
	return ebsp
}

// UnescapeRbsp 移除竞争防止字节，EscapeRbsp 的逆运算。
// copy from live555
func UnescapeRbsp(ebsp []byte) []byte {
	rbsp := make([]byte, 0, len(ebsp))
	i := 0
	for i < len(ebsp) {
		if i+2 < len(ebsp) && ebsp[i] == 0x00 && ebsp[i+1] == 0x00 && ebsp[i+2] == 0x03 {
			rbsp = append(rbsp, 0x00, 0x00)
			i += 3
		} else {
			rbsp = append(rbsp, ebsp[i])
			i++
		}
	}
	return rbsp
}

// RemoveStartCode 移除 NALU 分隔符 0x00000001 或 0x000001
func RemoveStartCode(nalu []byte) []byte {
	if bytes.HasPrefix(nalu, []byte{0x0, 0x0, 0x0, 0x1}) {
		return nalu[4:]
	}
	if bytes.HasPrefix(nalu, []byte{0x0, 0x0, 0x1}) {
		return nalu[3:]
	}
	return nalu
}

// SplitAnnexB 按起始码切分 Annex B 字节流，返回各 NAL 单元（不含起始码）。
func SplitAnnexB(stream []byte) ([][]byte, error) {
	if !bytes.HasPrefix(stream, StartCode) && !bytes.HasPrefix(stream, StartCode[1:]) {
		return nil, errors.New("h264: missing leading start code")
	}

	var nalus [][]byte
	rest := stream
	for len(rest) > 0 {
		rest = RemoveStartCode(rest)
		next := bytes.Index(rest, StartCode[1:4]) // 00 00 01
		if next < 0 {
			nalus = append(nalus, rest)
			break
		}
		// 4 字节起始码时把前导 0 归入分隔符
		end := next
		if end > 0 && rest[end-1] == 0x00 {
			end--
		}
		nalus = append(nalus, rest[:end])
		rest = rest[next:]
	}
	return nalus, nil
}
