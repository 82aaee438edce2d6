// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package abi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGroupOfBoundaries(t *testing.T) {
	g, ok := GroupOf(GETTIME)
	assert.True(t, ok)
	assert.Equal(t, Group0Inline, g)

	g, ok = GroupOf(MOUNT)
	assert.True(t, ok)
	assert.Equal(t, Group1FS, g)

	g, ok = GroupOf(NETIFUP)
	assert.True(t, ok)
	assert.Equal(t, Group2Net, g)

	_, ok = GroupOf(ID(group2Max))
	assert.False(t, ok, "id past the last known range must not classify")
}

func TestIoctlRoundTrip(t *testing.T) {
	v := Ioctl(IoctlGroupRW, 0x2A)

	g, n := IoctlDecode(v)

	assert.Equal(t, IoctlGroupRW, g)
	assert.Equal(t, uint16(0x2A), n)
}

func TestOpenFlagHas(t *testing.T) {
	f := O_WRONLY | O_CREATE | O_TRUNC

	assert.True(t, f.Has(O_CREATE))
	assert.False(t, f.Has(O_RDWR))
}
