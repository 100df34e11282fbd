// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package y4m 实现 YUV4MPEG2 非压缩视频文件的读取。
package y4m

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cnotch/avcenc/av/codec/h264"
)

const (
	streamMagic = "YUV4MPEG2"
	frameMagic  = "FRAME"
)

// Reader 从 YUV4MPEG2 字节流顺序读取帧。
type Reader struct {
	br   *bufio.Reader
	spec h264.FrameSpec

	frameRate string // 原样保留的 F 参数，如 30:1
}

// NewReader 解析流头并返回 Reader。
func NewReader(r io.Reader) (*Reader, error) {
	br := bufio.NewReaderSize(r, 64*1024)

	line, err := br.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("y4m: read stream header: %w", err)
	}
	line = strings.TrimSuffix(line, "\n")

	fields := strings.Split(line, " ")
	if fields[0] != streamMagic {
		return nil, errors.New("y4m: missing YUV4MPEG2 magic")
	}

	rd := &Reader{
		br: br,
		spec: h264.FrameSpec{
			BitDepth:     8,
			ChromaFormat: h264.Yuv420,
		},
	}

	for _, f := range fields[1:] {
		if f == "" {
			continue
		}
		switch f[0] {
		case 'W':
			if rd.spec.Width, err = strconv.Atoi(f[1:]); err != nil {
				return nil, fmt.Errorf("y4m: bad width %q", f)
			}
		case 'H':
			if rd.spec.Height, err = strconv.Atoi(f[1:]); err != nil {
				return nil, fmt.Errorf("y4m: bad height %q", f)
			}
		case 'F':
			rd.frameRate = f[1:]
		case 'C':
			if err = rd.parseColorSpace(f[1:]); err != nil {
				return nil, err
			}
		case 'I', 'A', 'X':
			// 隔行标志、样点比、注释：与编码无关，忽略
		default:
			return nil, fmt.Errorf("y4m: unknown stream parameter %q", f)
		}
	}

	if err := rd.spec.Validate(); err != nil {
		return nil, err
	}
	return rd, nil
}

func (r *Reader) parseColorSpace(cs string) error {
	switch cs {
	case "420", "420jpeg", "420mpeg2", "420paldv":
		r.spec.ChromaFormat = h264.Yuv420
		r.spec.BitDepth = 8
	case "420p12":
		r.spec.ChromaFormat = h264.Yuv420
		r.spec.BitDepth = 12
	case "mono":
		r.spec.ChromaFormat = h264.Monochrome400
		r.spec.BitDepth = 8
	case "mono12":
		r.spec.ChromaFormat = h264.Monochrome400
		r.spec.BitDepth = 12
	default:
		return fmt.Errorf("y4m: unsupported colour space C%s", cs)
	}
	return nil
}

// Spec 流的帧描述。
func (r *Reader) Spec() h264.FrameSpec { return r.spec }

// FrameRate 流头中的帧率参数，可能为空。
func (r *Reader) FrameRate() string { return r.frameRate }

// ReadFrame 读取下一帧；流结束返回 io.EOF。
func (r *Reader) ReadFrame() (*h264.Frame, error) {
	line, err := r.br.ReadString('\n')
	if err != nil {
		if err == io.EOF && line == "" {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("y4m: read frame header: %w", err)
	}
	line = strings.TrimSuffix(line, "\n")

	if line != frameMagic && !strings.HasPrefix(line, frameMagic+" ") {
		return nil, fmt.Errorf("y4m: bad frame header %q", line)
	}

	frame := &h264.Frame{Y: make([]byte, r.spec.LumaSize())}
	if _, err := io.ReadFull(r.br, frame.Y); err != nil {
		return nil, fmt.Errorf("y4m: read luma plane: %w", err)
	}

	if r.spec.ChromaFormat == h264.Yuv420 {
		frame.Cb = make([]byte, r.spec.ChromaSize())
		frame.Cr = make([]byte, r.spec.ChromaSize())
		if _, err := io.ReadFull(r.br, frame.Cb); err != nil {
			return nil, fmt.Errorf("y4m: read cb plane: %w", err)
		}
		if _, err := io.ReadFull(r.br, frame.Cr); err != nil {
			return nil, fmt.Errorf("y4m: read cr plane: %w", err)
		}
	}
	return frame, nil
}
