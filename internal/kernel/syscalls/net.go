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

// net.go registers the group-2 network syscall ids. The network stack
// itself is listed alongside FAT/EEFS persistent file systems as an
// externally-supplied collaborator this kernel mediates rather than
// implements (spec §1) — the same reasoning DESIGN.md already applies to
// dropping FAT/EEFS as vfs.Backend implementations. Every id below is
// still registered, so NETIFUP and friends dispatch through the real
// group-2 worker-thread path (a freshly spawned thread, counted against
// workerSlots, cancellable on process_destroy) instead of falling through
// to the dispatcher's generic ENOSYS — only the network stack underneath
// is absent, reported as ENETDOWN, the way an interface with no driver
// bound behaves on real hardware.
package syscalls

import (
	"context"

	"github.com/suyog44/dnx-go/internal/kerrors"
	"github.com/suyog44/dnx-go/internal/kernel/abi"
	"github.com/suyog44/dnx-go/internal/kernel/dispatch"
)

func (h *Handlers) netUnavailable(_ context.Context, _ *dispatch.Dispatcher, _ dispatch.Call) (any, kerrors.Kind) {
	return nil, kerrors.ENETDOWN
}

func (h *Handlers) registerNet(d *dispatch.Dispatcher) {
	ids := []abi.ID{
		abi.NETIFUP, abi.NETIFDOWN, abi.NETIFSTATUS,
		abi.NETSOCKETCREATE, abi.NETSOCKETDESTROY,
		abi.NETBIND, abi.NETLISTEN, abi.NETACCEPT,
		abi.NETRECV, abi.NETSEND,
		abi.NETGETHOSTBYNAME,
		abi.NETSETRECVTIMEOUT, abi.NETSETSENDTIMEOUT,
		abi.NETCONNECT, abi.NETDISCONNECT, abi.NETSHUTDOWN,
		abi.NETSENDTO, abi.NETRECVFROM, abi.NETGETADDRESS,
	}
	for _, id := range ids {
		d.Register(id, h.netUnavailable)
	}
}
