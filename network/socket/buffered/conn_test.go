// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package buffered

import (
	"bytes"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn 内存中的 net.Conn，记录全部写入。
type fakeConn struct {
	out bytes.Buffer
}

func (f *fakeConn) Read(p []byte) (int, error)         { return 0, nil }
func (f *fakeConn) Write(p []byte) (int, error)        { return f.out.Write(p) }
func (f *fakeConn) Close() error                       { return nil }
func (f *fakeConn) LocalAddr() net.Addr                { return nil }
func (f *fakeConn) RemoteAddr() net.Addr               { return nil }
func (f *fakeConn) SetDeadline(t time.Time) error      { return nil }
func (f *fakeConn) SetReadDeadline(t time.Time) error  { return nil }
func (f *fakeConn) SetWriteDeadline(t time.Time) error { return nil }

func TestConn_LargeWritePassthrough(t *testing.T) {
	fake := &fakeConn{}
	conn := NewConn(fake)

	// 超过缓冲大小的写直接落到底层连接
	big := bytes.Repeat([]byte{0xab}, defaultBufferSize+1024)
	n, err := conn.Write(big)
	require.NoError(t, err)
	assert.Equal(t, len(big), n)
	assert.Equal(t, big, fake.out.Bytes())

	outBytes, _ := conn.Stats()
	assert.Equal(t, int64(len(big)), outBytes)
}

func TestConn_FlushDeliversBuffered(t *testing.T) {
	fake := &fakeConn{}
	conn := NewConn(fake, FlushRate(1), BufferSize(minBufferSize))

	payload := []byte{0x00, 0x00, 0x00, 0x01, 0x65, 0x88}
	_, err := conn.Write(payload)
	require.NoError(t, err)

	// 无论限速器是否缓冲了本次写，Flush 后数据都已送达
	_, err = conn.Flush()
	require.NoError(t, err)
	assert.Equal(t, payload, fake.out.Bytes())

	outBytes, _ := conn.Stats()
	assert.Equal(t, int64(len(payload)), outBytes)
	assert.Equal(t, 0, conn.Buffered())
}
