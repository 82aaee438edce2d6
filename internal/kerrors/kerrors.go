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

// Package kerrors defines the small error-kind vocabulary that crosses the
// syscall boundary, per spec §7. Every handler returns a Kind instead of a
// raw Go error once it reaches the dispatcher; internal packages still wrap
// with fmt.Errorf("...: %w", err) the way the rest of this tree does.
package kerrors

import (
	"errors"
	"fmt"
	"syscall"
)

// Kind is the errno-equivalent the dispatcher writes into a syscall
// request's error slot.
type Kind int

const (
	ESUCC Kind = iota
	ENOENT
	EEXIST
	ENOTDIR
	EISDIR
	EBUSY
	ENOMEM
	ENOSPC
	EMFILE
	EPERM
	EINVAL
	EFAULT
	EROFS
	ETIME
	ESRCH
	ENOSYS
	EXDEV
	ENOTSUP
	ENETDOWN
	ENETUNREACH
	ECONNREFUSED
)

var names = map[Kind]string{
	ESUCC:        "ESUCC",
	ENOENT:       "ENOENT",
	EEXIST:       "EEXIST",
	ENOTDIR:      "ENOTDIR",
	EISDIR:       "EISDIR",
	EBUSY:        "EBUSY",
	ENOMEM:       "ENOMEM",
	ENOSPC:       "ENOSPC",
	EMFILE:       "EMFILE",
	EPERM:        "EPERM",
	EINVAL:       "EINVAL",
	EFAULT:       "EFAULT",
	EROFS:        "EROFS",
	ETIME:        "ETIME",
	ESRCH:        "ESRCH",
	ENOSYS:       "ENOSYS",
	EXDEV:        "EXDEV",
	ENOTSUP:      "ENOTSUP",
	ENETDOWN:     "ENETDOWN",
	ENETUNREACH:  "ENETUNREACH",
	ECONNREFUSED: "ECONNREFUSED",
}

func (k Kind) String() string {
	if name, ok := names[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error lets Kind satisfy the error interface so handlers can return it
// directly where a Go error is expected internally.
func (k Kind) Error() string {
	return k.String()
}

// Errno maps a Kind to the syscall.Errno a POSIX-facing caller expects:
// a small table, no magic.
func (k Kind) Errno() syscall.Errno {
	switch k {
	case ESUCC:
		return 0
	case ENOENT:
		return syscall.ENOENT
	case EEXIST:
		return syscall.EEXIST
	case ENOTDIR:
		return syscall.ENOTDIR
	case EISDIR:
		return syscall.EISDIR
	case EBUSY:
		return syscall.EBUSY
	case ENOMEM:
		return syscall.ENOMEM
	case ENOSPC:
		return syscall.ENOSPC
	case EMFILE:
		return syscall.EMFILE
	case EPERM:
		return syscall.EPERM
	case EINVAL:
		return syscall.EINVAL
	case EFAULT:
		return syscall.EFAULT
	case EROFS:
		return syscall.EROFS
	case ETIME:
		return syscall.ETIME
	case ESRCH:
		return syscall.ESRCH
	case ENOSYS:
		return syscall.ENOSYS
	case EXDEV:
		return syscall.EXDEV
	case ENOTSUP:
		return syscall.ENOTSUP
	case ENETDOWN:
		return syscall.ENETDOWN
	case ENETUNREACH:
		return syscall.ENETUNREACH
	case ECONNREFUSED:
		return syscall.ECONNREFUSED
	default:
		return syscall.EIO
	}
}

// Of extracts a Kind from an arbitrary error, defaulting to EINVAL. It lets
// internal helpers keep returning plain Go errors and convert only at the
// syscall boundary.
func Of(err error) Kind {
	if err == nil {
		return ESUCC
	}
	var k Kind
	if errors.As(err, &k) {
		return k
	}
	return EINVAL
}

// FatalProcessError marks a handle-type violation (§4.2, §7): the client
// passed a resource handle of the wrong type to process_release_resource.
// This is never returned to user code as an errno; it is fatal to the
// offending process. A struct wrapping Err with a custom Error() and
// Unwrap() so errors.Is still works.
type FatalProcessError struct {
	Err error
}

func (e *FatalProcessError) Error() string {
	return fmt.Sprintf("fatal process error: wrong resource type on release: %v", e.Err)
}

func (e *FatalProcessError) Unwrap() error {
	return e.Err
}
