/**********************************************************************************
* Copyright (c) 2009-2017 Misakai Ltd.
* This program is free software: you can redistribute it and/or modify it under the
* terms of the GNU Affero General Public License as published by the  Free Software
* Foundation, either version 3 of the License, or(at your option) any later version.
*
* This program is distributed  in the hope that it  will be useful, but WITHOUT ANY
* WARRANTY;  without even  the implied warranty of MERCHANTABILITY or FITNESS FOR A
* PARTICULAR PURPOSE.  See the GNU Affero General Public License  for  more details.
*
* You should have  received a copy  of the  GNU Affero General Public License along
* with this program. If not, see<http://www.gnu.org/licenses/>.
************************************************************************************/
//
// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package security

import (
	"crypto/sha1"
	"encoding/base32"
	"encoding/binary"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/crypto/pbkdf2"
)

// SessionID 进程内唯一的消费会话标识。
type SessionID uint64

// next is the next identifier. We seed it with the time in seconds
// to avoid collisions of ids between process restarts.
var next = uint64(
	time.Now().Sub(time.Date(2017, 9, 17, 0, 0, 0, 0, time.UTC)).Seconds(),
)

// NextSessionID 产生新的进程内唯一会话标识。
func NextSessionID() SessionID {
	return SessionID(atomic.AddUint64(&next, 1))
}

// Token 基于 salt（如流路径）派生不可预测的会话令牌。
// 令牌用于对外暴露消费会话，避免泄漏内部的自增序号。
func (id SessionID) Token(salt string) string {
	var buffer [16]byte
	binary.BigEndian.PutUint64(buffer[:8], uint64(os.Getpid()))
	binary.BigEndian.PutUint64(buffer[8:], uint64(id))

	enc := pbkdf2.Key(buffer[:], []byte(salt), 4096, 12, sha1.New)
	return strings.TrimRight(base32.StdEncoding.EncodeToString(enc), "=")
}

// String converts the SessionID to a string representation.
func (id SessionID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}
