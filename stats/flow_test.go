// Copyright (c) 2019,CAOHONGJU All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stats

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlow(t *testing.T) {
	f := NewFlow()
	f.AddInFrame(1024)
	f.AddInFrame(1024)
	f.AddOut(300)

	s := f.GetSample()
	assert.Equal(t, int64(2), s.InFrames)
	assert.Equal(t, int64(2048), s.InBytes)
	assert.Equal(t, int64(300), s.OutBytes)
}

func TestChildFlow(t *testing.T) {
	parent := NewFlow()
	c1 := NewChildFlow(parent)
	c2 := NewChildFlow(parent)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c1.AddInFrame(10)
				c2.AddOut(5)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(800), c1.GetSample().InFrames)
	assert.Equal(t, int64(800), parent.GetSample().InFrames)
	assert.Equal(t, int64(8000), parent.GetSample().InBytes)
	assert.Equal(t, int64(4000), parent.GetSample().OutBytes)
	assert.Equal(t, int64(0), c1.GetSample().OutBytes)
}
