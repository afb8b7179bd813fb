// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

//go:build linux && amd64

package kvm_test

import (
	"bytes"
	"context"
	"debug/elf"
	"testing"
	"time"

	"github.com/aibor/kraftrun/internal/guestmem"
	"github.com/aibor/kraftrun/internal/hypervisor"
	"github.com/aibor/kraftrun/internal/hypervisor/kvm"
	"github.com/aibor/kraftrun/internal/kernel"
	"github.com/aibor/kraftrun/internal/layout"
	"github.com/aibor/kraftrun/internal/vm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/sys/unix"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func requireKVM(t *testing.T) {
	t.Helper()

	err := unix.Access(kvm.DevicePath, unix.R_OK|unix.W_OK)
	if err != nil {
		t.Skipf("%s not accessible: %v", kvm.DevicePath, err)
	}
}

// The instruction sequences are valid in 32 bit protected mode and 64 bit
// long mode.
var (
	// mov dx, 0xe9; mov al, 'h'; out dx, al; mov al, 'i'; out dx, al
	printHi = []byte{0x66, 0xba, 0xe9, 0x00, 0xb0, 'h', 0xee, 0xb0, 'i', 0xee}
	// mov dx, 0xf4; mov al, 7; out dx, al
	exit7 = []byte{0x66, 0xba, 0xf4, 0x00, 0xb0, 0x07, 0xee}
	// jmp $
	spin = []byte{0xeb, 0xfe}
	hlt  = []byte{0xf4}
	// mov eax, [0x10000000], mapped by the page tables but beyond memory
	mmioRead = []byte{0x8b, 0x04, 0x25, 0x00, 0x00, 0x00, 0x10}
)

func code(parts ...[]byte) []byte {
	return bytes.Join(parts, nil)
}

func launch(t *testing.T, ctx context.Context, class elf.Class, text []byte) (vm.Result, string, error) {
	t.Helper()

	cfg := layout.DefaultConfig()

	img, err := kernel.Load(kernel.BuildTestELF(t, kernel.TestELF{
		Class:    class,
		Entry:    cfg.LoadBase,
		Segments: []kernel.TestSegment{{Addr: cfg.LoadBase, Data: text, MemSize: 64 << 10}},
	}), kernel.Config{LoadBase: cfg.LoadBase})
	require.NoError(t, err)

	plan, err := layout.New(cfg, layout.Request{
		KernelEnd: img.End(),
		Memory:    16 << 20,
		Stack:     64 << 10,
	})
	require.NoError(t, err)

	mem, err := guestmem.Populate(plan, img, nil)
	require.NoError(t, err)

	var output bytes.Buffer

	result, err := vm.Launch(ctx, kvm.New(), vm.Spec{
		Config:   vm.DefaultConfig(),
		Plan:     plan,
		Memory:   mem,
		Entry:    img.Entry(),
		LongMode: img.LongMode(),
		Output:   &output,
	})

	return result, output.String(), err
}

func TestKVM_Halt(t *testing.T) {
	requireKVM(t)

	for _, class := range []elf.Class{elf.ELFCLASS64, elf.ELFCLASS32} {
		t.Run(class.String(), func(t *testing.T) {
			result, output, err := launch(t, context.Background(), class, code(printHi, hlt))
			require.NoError(t, err)

			assert.Equal(t, hypervisor.Exit{Kind: hypervisor.ExitHalt}, result.Exit)
			assert.Equal(t, "hi", output)
		})
	}
}

func TestKVM_ExitPort(t *testing.T) {
	requireKVM(t)

	result, output, err := launch(t, context.Background(), elf.ELFCLASS64, code(printHi, exit7, printHi))
	require.NoError(t, err)

	assert.Equal(t, hypervisor.Exit{Kind: hypervisor.ExitHalt, Status: 7}, result.Exit)
	assert.Equal(t, "hi", output)
}

func TestKVM_Fault(t *testing.T) {
	requireKVM(t)

	_, _, err := launch(t, context.Background(), elf.ELFCLASS64, code(mmioRead))
	require.ErrorIs(t, err, vm.ErrGuestFault)

	var faultErr *vm.GuestFaultError
	require.ErrorAs(t, err, &faultErr)
	assert.Equal(t, "mmio", faultErr.Fault.Reason)
	assert.Equal(t, uint64(0x10000000), faultErr.Fault.Address)
}

func TestKVM_Cancel(t *testing.T) {
	requireKVM(t)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, _, err := launch(t, ctx, elf.ELFCLASS64, code(spin))
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestKVM_InvalidMemorySize(t *testing.T) {
	_, err := kvm.New().NewSandbox(context.Background(), 0)
	require.ErrorIs(t, err, hypervisor.ErrSandboxCreation)
}

func TestKVM_MissingDevice(t *testing.T) {
	hv := &kvm.Hypervisor{Device: "/nonexistent/kvm"}

	_, err := hv.NewSandbox(context.Background(), 16<<20)
	require.ErrorIs(t, err, hypervisor.ErrSandboxCreation)
	require.ErrorIs(t, err, unix.ENOENT)
}

func TestKVM_CloseTwice(t *testing.T) {
	requireKVM(t)

	sandbox, err := kvm.New().NewSandbox(context.Background(), 16<<20)
	require.NoError(t, err)

	require.NoError(t, sandbox.Close())
	require.NoError(t, sandbox.Close())

	err = sandbox.SetEntry(hypervisor.EntryState{})
	require.ErrorIs(t, err, hypervisor.ErrSandboxClosed)
}

func TestKVM_BootSize(t *testing.T) {
	hv := kvm.New()

	assert.Equal(t, uint64(0x4000), hv.BootSize(16<<20))
	assert.Equal(t, uint64(0x5000), hv.BootSize(1<<30+1))

	cfg := layout.Config{LoadBase: 0x2000, PageSize: layout.DefaultPageSize}

	_, err := layout.New(cfg, layout.Request{
		KernelEnd: 0x3000,
		Memory:    16 << 20,
		Boot:      hv.BootSize(16 << 20),
	})
	require.ErrorIs(t, err, layout.ErrBootRegionTooSmall)
}
