// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package buffered

import (
	"bufio"
	"bytes"
	"net"
	"sync/atomic"
	"time"

	"github.com/kelindar/rate"
)

const (
	defaultRate       = 50
	defaultBufferSize = 64 * 1024
	minBufferSize     = 8 * 1024
)

// Conn wraps a net.Conn and provides buffered, rate-limited writes.
// 码流推送场景下把小的 NAL 写合并成大块发送，
// 同时统计实际推送的字节数和刷新次数。
type Conn struct {
	socket     net.Conn      // The underlying network connection.
	reader     *bufio.Reader // The buffered reader
	writer     *bytes.Buffer // The buffered write queue.
	limit      *rate.Limiter // The write rate limiter.
	bufferSize int           // The read and write max buffer size

	outBytes int64 // 已写入底层连接的字节数
	flushes  int64 // 刷新次数
}

// NewConn creates a new buffered connection.
func NewConn(conn net.Conn, options ...Option) *Conn {
	c, ok := conn.(*Conn)
	if !ok {
		c = &Conn{
			socket: conn,
		}
	}

	for _, option := range options {
		option.apply(c)
	}

	// 设置默认刷新频率
	if c.limit == nil {
		c.limit = rate.New(defaultRate, time.Second)
	}

	if c.bufferSize <= 0 {
		c.bufferSize = defaultBufferSize
	}

	c.reader = bufio.NewReaderSize(c.socket, c.bufferSize)
	c.writer = bytes.NewBuffer(make([]byte, 0, c.bufferSize))
	return c
}

// Buffered returns the pending buffer size.
func (c *Conn) Buffered() (n int) {
	return c.writer.Len()
}

// Stats 返回已推送的字节数和刷新次数。
func (c *Conn) Stats() (outBytes, flushes int64) {
	return atomic.LoadInt64(&c.outBytes), atomic.LoadInt64(&c.flushes)
}

// Flush flushes the underlying buffer by writing into the underlying connection.
func (c *Conn) Flush() (n int, err error) {
	if c.Buffered() == 0 {
		return 0, nil
	}

	n, err = c.writeFull(c.writer.Bytes())
	c.writer.Reset()
	atomic.AddInt64(&c.flushes, 1)
	return
}

// Read reads the block of data from the underlying buffer.
func (c *Conn) Read(p []byte) (int, error) {
	return c.reader.Read(p)
}

// Write writes the block of data into the underlying buffer.
func (c *Conn) Write(p []byte) (nn int, err error) {
	var n int
	// 没有足够的空间容纳 p
	for len(p) > c.bufferSize-c.Buffered() && err == nil {
		if c.Buffered() == 0 {
			// Large write, empty buffer.
			// Write directly from p to avoid copy.
			n, err = c.writeFull(p)
		} else {
			// write buffer to full state, and flush
			n, err = c.writer.Write(p[:c.bufferSize-c.writer.Len()])
			_, err = c.Flush()
		}
		nn += n
		p = p[n:]
	}

	if err != nil {
		return nn, err
	}

	// 未到达刷新频率的间隔，直接写到缓存
	if c.limit.Limit() {
		n, err = c.writer.Write(p)
		return nn + n, err
	}

	// 缓存中有数据，flush
	if c.Buffered() > 0 {
		n, err = c.writer.Write(p)
		_, err = c.Flush()
		return nn + n, err
	}

	// 缓存中无数据，直接写避免内存拷贝
	n, err = c.writeFull(p)
	return nn + n, err
}

func (c *Conn) writeFull(p []byte) (nn int, err error) {
	var n int
	for len(p) > 0 && err == nil {
		n, err = c.socket.Write(p)
		nn += n
		p = p[n:]
	}
	atomic.AddInt64(&c.outBytes, int64(nn))
	return nn, err
}

// Close closes the connection. Any blocked Read or Write operations will be unblocked
// and return errors.
func (c *Conn) Close() error {
	return c.socket.Close()
}

// LocalAddr returns the local network address.
func (c *Conn) LocalAddr() net.Addr {
	return c.socket.LocalAddr()
}

// RemoteAddr returns the remote network address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.socket.RemoteAddr()
}

// SetDeadline sets the read and write deadlines associated
// with the connection.
func (c *Conn) SetDeadline(t time.Time) error {
	return c.socket.SetDeadline(t)
}

// SetReadDeadline sets the deadline for future Read calls
// and any currently-blocked Read call.
func (c *Conn) SetReadDeadline(t time.Time) error {
	return c.socket.SetReadDeadline(t)
}

// SetWriteDeadline sets the deadline for future Write calls
// and any currently-blocked Write call.
func (c *Conn) SetWriteDeadline(t time.Time) error {
	return c.socket.SetWriteDeadline(t)
}

// Option 配置 Conn 的选项接口
type Option interface {
	apply(*Conn)
}

type optionFunc func(*Conn)

func (f optionFunc) apply(c *Conn) {
	f(c)
}

// FlushRate Conn 写操作的每秒刷新频率
func FlushRate(r int) Option {
	return optionFunc(func(c *Conn) {
		if r < 1 {
			r = defaultRate
		}
		c.limit = rate.New(r, time.Second)
	})
}

// BufferSize Conn 缓冲大小
func BufferSize(bufferSize int) Option {
	return optionFunc(func(c *Conn) {
		if bufferSize < minBufferSize {
			bufferSize = minBufferSize
		}
		c.bufferSize = bufferSize
	})
}
