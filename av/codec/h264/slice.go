// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package h264

import (
	"github.com/cnotch/avcenc/utils/bits"
)

// I 片的 slice_type，7 表示整个图像只有 I 片
const sliceTypeIOnly = 7

// I_PCM 的 mb_type，表 7-11
const mbTypeIPcm = 25

var zeroRow [MbSize]byte

// encodeIdrSlice 产生一帧的 IDR 片 RBSP：
// 片头 + 光栅序的 I_PCM 宏块 + rbsp_slice_trailing_bits。
func encodeIdrSlice(spec FrameSpec, frame *Frame, idrPicID uint32) ([]byte, error) {
	mbw, mbh := spec.MbWidth(), spec.MbHeight()

	// 预估尺寸：片头 + 每宏块的头两字节和采样数据
	mbBytes := 2 + MbSize*MbSize*spec.BitDepth/8
	if spec.ChromaFormat == Yuv420 {
		mbBytes += 2 * 8 * 8 * spec.BitDepth / 8
	}
	w := bits.NewWriterSize(16 + mbw*mbh*mbBytes)

	w.WriteUe(0)              // first_mb_in_slice
	w.WriteUe(sliceTypeIOnly) // slice_type
	w.WriteUe(0)              // pic_parameter_set_id
	w.WriteBits(0, 4)         // frame_num：u(log2_max_frame_num)，IDR 图像恒为 0
	w.WriteUe(idrPicID)       // idr_pic_id
	// pic_order_cnt_type == 2，无 pic_order_cnt_lsb
	w.WriteBit(0) // no_output_of_prior_pics_flag
	w.WriteBit(0) // long_term_reference_flag
	w.WriteSe(0)  // slice_qp_delta

	for mby := 0; mby < mbh; mby++ {
		for mbx := 0; mbx < mbw; mbx++ {
			if err := writeMacroblock(w, spec, frame, mbx, mby); err != nil {
				return nil, err
			}
		}
	}

	w.WriteTrailingBits() // rbsp_slice_trailing_bits，CAVLC 无 cabac_zero_word
	return w.Bytes(), nil
}

func writeMacroblock(w *bits.Writer, spec FrameSpec, frame *Frame, mbx, mby int) error {
	w.WriteUe(mbTypeIPcm)

	// pcm_alignment_zero_bit
	for !w.Aligned() {
		w.WriteBit(0)
	}

	err := writePcmBlock(w, spec, frame.Y, spec.Width, spec.Height, mbx*MbSize, mby*MbSize, MbSize)
	if err != nil {
		return err
	}

	if spec.ChromaFormat == Yuv420 {
		cw, ch := spec.Width/2, spec.Height/2
		if err := writePcmBlock(w, spec, frame.Cb, cw, ch, mbx*8, mby*8, 8); err != nil {
			return err
		}
		if err := writePcmBlock(w, spec, frame.Cr, cw, ch, mbx*8, mby*8, 8); err != nil {
			return err
		}
	}
	return nil
}

// writePcmBlock 写出平面中 (x0,y0) 起的 size x size 采样块。
// 超出平面的 padding 采样补 0。
func writePcmBlock(w *bits.Writer, spec FrameSpec, plane []byte, planeW, planeH, x0, y0, size int) error {
	depth := spec.BitDepth
	wide := spec.BytesPerSample() == 2
	maxVal := uint64(1)<<uint(depth) - 1

	for j := 0; j < size; j++ {
		y := y0 + j

		if y >= planeH { // 整行 padding
			if !wide {
				w.WriteBytes(zeroRow[:size])
				continue
			}
			for i := 0; i < size; i++ {
				w.WriteBits(0, depth)
			}
			continue
		}

		if !wide && x0+size <= planeW { // 8bit 整行快速路径
			off := y*planeW + x0
			w.WriteBytes(plane[off : off+size])
			continue
		}

		for i := 0; i < size; i++ {
			x := x0 + i
			if x >= planeW {
				w.WriteBits(0, depth)
				continue
			}

			var v uint64
			if wide {
				off := (y*planeW + x) * 2
				v = uint64(plane[off]) | uint64(plane[off+1])<<8
				if v > maxVal {
					return ErrBitDepthOutOfRange
				}
			} else {
				v = uint64(plane[y*planeW+x])
			}
			w.WriteBits(v, depth)
		}
	}
	return nil
}
