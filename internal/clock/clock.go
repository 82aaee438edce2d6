// Copyright 2025 Google LLC
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

// Package clock backs the kernel's GETTIME/SETTIME syscalls (spec §6): a
// clock that only advances when told to, since an MCU with no RTC battery
// boots at time zero and has its clock set by whatever program calls
// settime.
package clock

import "time"

// Clock is the minimal surface GETTIME/SETTIME need.
type Clock interface {
	Now() time.Time
	SetTime(t time.Time)
}
