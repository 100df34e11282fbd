// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package sdp 为编码流生成 RTP 会话描述。
package sdp

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/cnotch/avcenc/av/codec/h264"
	"github.com/pixelbender/go-sdp/sdp"
)

// Describe 生成流的 SDP 描述。
// sprop-parameter-sets 携带带外的 SPS/PPS，接收端无需等待带内参数集。
func Describe(name, addr string, port int, sps, pps *h264.NalUnit) string {
	spsNaked := sps.Naked()
	ppsNaked := pps.Naked()

	// profile-level-id：SPS 的 profile_idc + constraint flags + level_idc
	profileLevelID := hex.EncodeToString(sps.Rbsp[:3])

	fmtp := fmt.Sprintf(
		"packetization-mode=1;profile-level-id=%s;sprop-parameter-sets=%s,%s",
		profileLevelID,
		base64.StdEncoding.EncodeToString(spsNaked),
		base64.StdEncoding.EncodeToString(ppsNaked))

	session := &sdp.Session{
		Origin: &sdp.Origin{
			Username: "-",
			Address:  addr,
		},
		Name: name,
		Connection: &sdp.Connection{
			Address: addr,
		},
		Media: []*sdp.Media{
			{
				Type:  "video",
				Port:  port,
				Proto: "RTP/AVP",
				Format: []*sdp.Format{
					{
						Payload:   96,
						Name:      "H264",
						ClockRate: 90000,
						Params:    []string{fmtp},
					},
				},
			},
		},
	}
	return session.String()
}
