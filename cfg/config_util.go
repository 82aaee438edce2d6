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

package cfg

import "runtime"

// DefaultWorkerSlots scales with the host's core count — a constrained board
// overrides this down via BoardProfileConstrained.
func DefaultWorkerSlots() int {
	return max(4, 2*runtime.NumCPU())
}

func IsOOMReapingEnabled(c *Config) bool {
	return c.Memory.ReapOnOOM && c.Memory.CeilingBytes > 0
}
