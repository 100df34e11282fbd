// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package h264

import (
	"errors"
	"fmt"
	"io"
)

// ChromaFormat 色度采样格式
type ChromaFormat uint8

// 支持的色度采样格式，值与 chroma_format_idc 一致
const (
	Monochrome400 ChromaFormat = ChromaFormatMonochrome // 仅亮度 4:0:0
	Yuv420        ChromaFormat = ChromaFormat420        // 4:2:0
)

// String .
func (cf ChromaFormat) String() string {
	switch cf {
	case Monochrome400:
		return "mono"
	case Yuv420:
		return "yuv420p"
	}
	return "unknown"
}

// 预定义错误
var (
	ErrDimensionMismatch  = errors.New("h264: frame dimensions do not match the stream spec")
	ErrBitDepthOutOfRange = errors.New("h264: sample value exceeds the declared bit depth")
)

// FrameSpec 流的不变描述：绑定到 Encoder 后不再改变。
type FrameSpec struct {
	Width        int          `json:"width"`
	Height       int          `json:"height"`
	BitDepth     int          `json:"bit_depth"`
	ChromaFormat ChromaFormat `json:"chroma_format"`
}

// Validate 校验流描述。
func (spec FrameSpec) Validate() error {
	if spec.Width <= 0 || spec.Height <= 0 {
		return fmt.Errorf("h264: invalid dimensions %dx%d", spec.Width, spec.Height)
	}
	if spec.Width > 0xffff || spec.Height > 0xffff {
		return fmt.Errorf("h264: dimensions %dx%d out of range", spec.Width, spec.Height)
	}
	if spec.BitDepth != 8 && spec.BitDepth != 12 {
		return fmt.Errorf("h264: unsupported bit depth %d", spec.BitDepth)
	}
	if spec.ChromaFormat != Monochrome400 && spec.ChromaFormat != Yuv420 {
		return fmt.Errorf("h264: unsupported chroma format %d", spec.ChromaFormat)
	}
	if spec.ChromaFormat == Yuv420 && (spec.Width%2 != 0 || spec.Height%2 != 0) {
		return fmt.Errorf("h264: 4:2:0 requires even dimensions, got %dx%d", spec.Width, spec.Height)
	}
	return nil
}

// MbWidth 图像宽度（宏块）
func (spec FrameSpec) MbWidth() int { return (spec.Width + MbSize - 1) / MbSize }

// MbHeight 图像高度（宏块）
func (spec FrameSpec) MbHeight() int { return (spec.Height + MbSize - 1) / MbSize }

// BytesPerSample 每采样字节数：8bit 1 字节，12bit 2 字节小端。
func (spec FrameSpec) BytesPerSample() int {
	if spec.BitDepth > 8 {
		return 2
	}
	return 1
}

// LumaSize 亮度平面的字节数（紧凑排列，无行对齐）。
func (spec FrameSpec) LumaSize() int {
	return spec.Width * spec.Height * spec.BytesPerSample()
}

// ChromaSize 单个色度平面的字节数；4:0:0 为 0。
func (spec FrameSpec) ChromaSize() int {
	if spec.ChromaFormat == Monochrome400 {
		return 0
	}
	return (spec.Width / 2) * (spec.Height / 2) * spec.BytesPerSample()
}

func (spec FrameSpec) cropUnits() (x, y int) {
	if spec.ChromaFormat == Monochrome400 {
		return 1, 1
	}
	return 2, 2
}

// Frame 一帧平面像素的借用视图，EncodeFrame 返回后不再保留。
// 平面紧凑排列：亮度 W*H，4:2:0 时色度各 (W/2)*(H/2)。
// 12bit 采样占 2 字节小端，高 4 位必须为 0。
type Frame struct {
	Y  []byte
	Cb []byte
	Cr []byte
}

func (f *Frame) check(spec FrameSpec) error {
	if len(f.Y) != spec.LumaSize() {
		return ErrDimensionMismatch
	}
	if spec.ChromaFormat == Yuv420 {
		if len(f.Cb) != spec.ChromaSize() || len(f.Cr) != spec.ChromaSize() {
			return ErrDimensionMismatch
		}
	}
	return nil
}

// Encoder 无损 H.264 编码器。
// 每帧产生一个 I_PCM 宏块构成的 IDR 片；首帧前先产出 SPS 和 PPS。
type Encoder struct {
	spec FrameSpec
	sps  *RawSPS
	pps  *RawPPS

	headersEmitted bool
	frameCount     uint32
}

// NewEncoder retruns a new Encoder.
func NewEncoder(spec FrameSpec) (*Encoder, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &Encoder{
		spec: spec,
		sps:  NewSPS(spec),
		pps:  NewPPS(),
	}, nil
}

// Spec 返回绑定的流描述。
func (e *Encoder) Spec() FrameSpec { return e.spec }

// ParameterSets 返回 SPS 和 PPS 的 NAL 单元，供 SDP 等带外传输使用。
func (e *Encoder) ParameterSets() (sps, pps *NalUnit) {
	return e.sps.NalUnit(), e.pps.NalUnit()
}

// Encode 编码一帧，返回本帧应写出的 NAL 单元序列。
// 首次调用时包含 SPS、PPS。
func (e *Encoder) Encode(frame *Frame) ([]*NalUnit, error) {
	if err := frame.check(e.spec); err != nil {
		return nil, err
	}

	rbsp, err := encodeIdrSlice(e.spec, frame, e.frameCount&0xffff)
	if err != nil {
		return nil, err
	}
	sliceNal := NewNalUnit(3, NalIdrSlice, rbsp)

	var nals []*NalUnit
	if !e.headersEmitted {
		nals = append(nals, e.sps.NalUnit(), e.pps.NalUnit())
		e.headersEmitted = true
	}
	nals = append(nals, sliceNal)
	e.frameCount++
	return nals, nil
}

// EncodeFrame 编码一帧并以 Annex B 格式写入 w。
// 每个 NAL 在完整形成后才写出，出错时不会产生部分 NAL。
func (e *Encoder) EncodeFrame(frame *Frame, w io.Writer) error {
	nals, err := e.Encode(frame)
	if err != nil {
		return err
	}
	for _, nal := range nals {
		if _, err := w.Write(nal.AnnexB()); err != nil {
			return err
		}
	}
	return nil
}

// Finish 结束编码。H.264 字节流没有终结符，这里只为接口完整。
func (e *Encoder) Finish() error { return nil }
