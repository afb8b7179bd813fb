// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

//go:build linux && amd64

package kvm

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

const apiVersion = 12

// ioctl request numbers from linux/kvm.h.
const (
	kvmGetAPIVersion       = 0xae00
	kvmCreateVM            = 0xae01
	kvmGetSupportedCPUID   = 0xc008ae05
	kvmGetVCPUMmapSize     = 0xae04
	kvmCreateVCPU          = 0xae41
	kvmSetUserMemoryRegion = 0x4020ae46
	kvmSetTSSAddr          = 0xae47
	kvmRun                 = 0xae80
	kvmGetRegs             = 0x8090ae81
	kvmSetRegs             = 0x4090ae82
	kvmGetSregs            = 0x8138ae83
	kvmSetSregs            = 0x4138ae84
	kvmSetCPUID2           = 0x4008ae90
)

// Placed right below the 4 GiB boundary, so guest memory must end below.
const tssAddr = 0xfffbd000

type userMemoryRegion struct {
	slot          uint32
	flags         uint32
	guestPhysAddr uint64
	memorySize    uint64
	userspaceAddr uint64
}

type segment struct {
	base     uint64
	limit    uint32
	selector uint16
	typ      uint8
	present  uint8
	dpl      uint8
	db       uint8
	s        uint8
	l        uint8
	g        uint8
	avl      uint8
	unusable uint8
	_        uint8
}

type dtable struct {
	base  uint64
	limit uint16
	_     [3]uint16
}

type sregs struct {
	cs, ds, es, fs, gs, ss segment
	tr, ldt                segment
	gdt, idt               dtable
	cr0                    uint64
	cr2                    uint64
	cr3                    uint64
	cr4                    uint64
	cr8                    uint64
	efer                   uint64
	apicBase               uint64
	interruptBitmap        [4]uint64
}

type regs struct {
	rax, rbx, rcx, rdx uint64
	rsi, rdi, rsp, rbp uint64
	r8, r9, r10, r11   uint64
	r12, r13, r14, r15 uint64
	rip, rflags        uint64
}

const maxCPUIDEntries = 256

type cpuidEntry struct {
	function uint32
	index    uint32
	flags    uint32
	eax      uint32
	ebx      uint32
	ecx      uint32
	edx      uint32
	_        [3]uint32
}

type cpuid struct {
	nent    uint32
	_       uint32
	entries [maxCPUIDEntries]cpuidEntry
}

// Sizes as required by the ioctl numbers.
var (
	_ [24]byte  = [unsafe.Sizeof(segment{})]byte{}
	_ [312]byte = [unsafe.Sizeof(sregs{})]byte{}
	_ [144]byte = [unsafe.Sizeof(regs{})]byte{}
	_ [32]byte  = [unsafe.Sizeof(userMemoryRegion{})]byte{}
	_ [40]byte  = [unsafe.Sizeof(cpuidEntry{})]byte{}
)

// Control register and EFER bits.
const (
	cr0PE = 1 << 0
	cr0MP = 1 << 1
	cr0ET = 1 << 4
	cr0NE = 1 << 5
	cr0WP = 1 << 16
	cr0AM = 1 << 18
	cr0PG = 1 << 31

	cr4PAE = 1 << 5

	eferLME = 1 << 8
	eferLMA = 1 << 10
)

type exitReason uint32

// Exit reasons from linux/kvm.h.
const (
	exitUnknown       exitReason = 0
	exitException     exitReason = 1
	exitIO            exitReason = 2
	exitHypercall     exitReason = 3
	exitDebug         exitReason = 4
	exitHLT           exitReason = 5
	exitMMIO          exitReason = 6
	exitShutdown      exitReason = 8
	exitFailEntry     exitReason = 9
	exitIntr          exitReason = 10
	exitInternalError exitReason = 17
	exitSystemEvent   exitReason = 24
)

func (r exitReason) String() string {
	switch r {
	case exitUnknown:
		return "unknown"
	case exitException:
		return "exception"
	case exitIO:
		return "io"
	case exitHypercall:
		return "hypercall"
	case exitDebug:
		return "debug"
	case exitHLT:
		return "hlt"
	case exitMMIO:
		return "mmio"
	case exitShutdown:
		return "shutdown"
	case exitFailEntry:
		return "fail entry"
	case exitIntr:
		return "interrupted"
	case exitInternalError:
		return "internal error"
	case exitSystemEvent:
		return "system event"
	default:
		return fmt.Sprintf("exit reason %d", uint32(r))
	}
}

// Offsets into the kvm_run structure.
const (
	runImmediateExit = 1
	runExitReason    = 8
	runUnion         = 32
	runMinSize       = runUnion + 256
)

const ioDirectionOut = 1

func ioctl(fd int, req uintptr, arg unsafe.Pointer) (int, error) {
	ret, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, uintptr(arg))
	if errno != 0 {
		return int(ret), errno
	}

	return int(ret), nil
}

func ioctlValue(fd int, req uintptr, arg uintptr) (int, error) {
	ret, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, arg)
	if errno != 0 {
		return int(ret), errno
	}

	return int(ret), nil
}
