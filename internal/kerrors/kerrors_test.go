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

package kerrors

import (
	"errors"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindErrno(t *testing.T) {
	testCases := []struct {
		name string
		kind Kind
		want syscall.Errno
	}{
		{"success", ESUCC, 0},
		{"not_found", ENOENT, syscall.ENOENT},
		{"exists", EEXIST, syscall.EEXIST},
		{"busy", EBUSY, syscall.EBUSY},
		{"fault", EFAULT, syscall.EFAULT},
		{"time", ETIME, syscall.ETIME},
		{"unknown_defaults_to_eio", Kind(999), syscall.EIO},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.kind.Errno())
		})
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "ENOENT", ENOENT.String())
	assert.Contains(t, Kind(999).String(), "999")
}

func TestOf(t *testing.T) {
	assert.Equal(t, ESUCC, Of(nil))
	assert.Equal(t, ENOENT, Of(ENOENT))
	assert.Equal(t, EINVAL, Of(errors.New("boom")))
}

func TestFatalProcessError(t *testing.T) {
	inner := errors.New("wanted MUTEX, got SEMAPHORE")
	err := &FatalProcessError{Err: inner}

	assert.Contains(t, err.Error(), "wanted MUTEX, got SEMAPHORE")
	assert.True(t, errors.Is(err, inner))
}
