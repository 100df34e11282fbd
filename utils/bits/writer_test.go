// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package bits

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriter_WriteBits(t *testing.T) {
	w := NewWriter()
	w.WriteBits(0x4, 3)
	w.WriteBits(0x6, 3)
	w.WriteBits(0x2, 2)
	assert.Equal(t, []byte{0x9a}, w.Bytes())
	assert.True(t, w.Aligned())
	assert.Equal(t, 8, w.BitLen())

	w.WriteBits(0x464c5601, 32)
	assert.Equal(t, []byte{0x9a, 0x46, 0x4c, 0x56, 0x01}, w.Bytes())

	// 跨字节的非对齐写
	w2 := NewWriter()
	w2.WriteBits(0x1, 3)
	w2.WriteBits(0x1fff, 13)
	assert.Equal(t, []byte{0x3f, 0xff}, w2.Bytes())
	assert.Equal(t, 16, w2.BitLen())
}

func TestWriter_WriteBitsOutOfRange(t *testing.T) {
	w := NewWriter()
	assert.Panics(t, func() { w.WriteBits(0x4, 2) })
	assert.Panics(t, func() { w.WriteBits(1, 0) })
	assert.NotPanics(t, func() { w.WriteBits(0, 0) })
	assert.NotPanics(t, func() { w.WriteBits(^uint64(0), 64) })
}

func TestWriter_WriteUe(t *testing.T) {
	tests := []struct {
		v    uint32
		want []byte
		bits int
	}{
		{0, []byte{0x80}, 1},                // 1
		{1, []byte{0x40}, 3},                // 010
		{2, []byte{0x60}, 3},                // 011
		{3, []byte{0x20}, 5},                // 00100
		{4, []byte{0x28}, 5},                // 00101
		{5, []byte{0x30}, 5},                // 00110
		{6, []byte{0x38}, 5},                // 00111
		{7, []byte{0x10}, 7},                // 0001000
		{8, []byte{0x12}, 7},                // 0001001
		{25, []byte{0x0d, 0x00}, 9},         // I_PCM mb_type
		{255, []byte{0x00, 0x80, 0x00}, 17}, // 8 zeros, 1, 00000000
	}
	for _, tt := range tests {
		w := NewWriter()
		w.WriteUe(tt.v)
		assert.Equal(t, tt.bits, w.BitLen(), "ue(%d) length", tt.v)
		for !w.Aligned() {
			w.WriteBit(0)
		}
		assert.Equal(t, tt.want, w.Bytes(), "ue(%d)", tt.v)
	}
}

func TestWriter_WriteSe(t *testing.T) {
	tests := []struct {
		v    int32
		want uint32 // 期望映射到的 codeNum
	}{
		{0, 0}, {1, 1}, {-1, 2}, {2, 3}, {-2, 4}, {3, 5}, {-3, 6}, {4, 7}, {-4, 8},
	}
	for _, tt := range tests {
		w := NewWriter()
		w.WriteSe(tt.v)
		u := NewWriter()
		u.WriteUe(tt.want)
		for !w.Aligned() {
			w.WriteBit(0)
		}
		for !u.Aligned() {
			u.WriteBit(0)
		}
		assert.Equal(t, u.Bytes(), w.Bytes(), "se(%d)", tt.v)
	}
}

func TestWriter_GolombRoundtrip(t *testing.T) {
	w := NewWriter()
	for v := uint32(0); v < 10000; v++ {
		w.WriteUe(v)
	}
	for v := int32(-3000); v <= 3000; v++ {
		w.WriteSe(v)
	}
	w.WriteTrailingBits()

	r := NewReader(w.Bytes())
	for v := uint32(0); v < 10000; v++ {
		if got := r.ReadUe(); got != v {
			t.Fatalf("ReadUe() = %d, want %d", got, v)
		}
	}
	for v := int32(-3000); v <= 3000; v++ {
		if got := r.ReadSe(); got != v {
			t.Fatalf("ReadSe() = %d, want %d", got, v)
		}
	}
}

func TestWriter_WriteTrailingBits(t *testing.T) {
	w := NewWriter()
	w.WriteBits(0x15, 5)
	w.WriteTrailingBits()
	assert.True(t, w.Aligned())
	assert.Equal(t, []byte{0xac}, w.Bytes())

	// 对齐时占满一个新字节
	w.WriteTrailingBits()
	assert.Equal(t, []byte{0xac, 0x80}, w.Bytes())
}

func TestWriter_WriteBytes(t *testing.T) {
	w := NewWriter()
	w.WriteBytes([]byte{0x01, 0x02})
	w.WriteBits(0xf, 4)
	w.WriteBytes([]byte{0xab}) // 非对齐路径
	w.WriteBits(0x5, 4)
	assert.Equal(t, []byte{0x01, 0x02, 0xfa, 0xb5}, w.Bytes())
}

func BenchmarkWriteBits(b *testing.B) {
	w := NewWriterSize(1 << 20)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if i&0xffff == 0 {
			w.Reset()
		}
		w.WriteBits(0x5a5, 12)
	}
}

func BenchmarkWriteUe(b *testing.B) {
	w := NewWriterSize(1 << 20)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if i&0xffff == 0 {
			w.Reset()
		}
		w.WriteUe(uint32(i & 0x3ff))
	}
}
