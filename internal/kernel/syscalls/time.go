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

package syscalls

import (
	"context"
	"time"

	"github.com/suyog44/dnx-go/internal/kerrors"
	"github.com/suyog44/dnx-go/internal/kernel/dispatch"
)

func (h *Handlers) getTime(_ context.Context, _ *dispatch.Dispatcher, _ dispatch.Call) (any, kerrors.Kind) {
	return h.Clock.Now(), kerrors.ESUCC
}

func (h *Handlers) setTime(_ context.Context, _ *dispatch.Dispatcher, call dispatch.Call) (any, kerrors.Kind) {
	t, k := arg[time.Time](call, 0)
	if k != kerrors.ESUCC {
		return nil, k
	}
	h.Clock.SetTime(t)
	return nil, kerrors.ESUCC
}
