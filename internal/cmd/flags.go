// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"runtime/debug"

	"github.com/aibor/kraftrun/internal/kraftrun"
	"github.com/aibor/kraftrun/internal/sys"
)

const (
	name = "kraftrun"

	// Kernels must be reachable in 32 bit protected mode.
	maxLoadBase = math.MaxUint32

	// Argument separating kraftrun positional arguments from guest
	// arguments.
	argsSeparator = "--"

	usageMessage = `Usage of 'kraftrun':
    kraftrun [flags...] kernel [--] [args...]

Boot a kernel with 512MiB memory and pass arguments to it:
	kraftrun -initrd=./rootfs.cpio ./kernel -- /script.py arg1

Build the initrd from host files:
	kraftrun -add-file=./script.py:/script.py ./kernel /script.py

All kraftrun flags can also be provided via environment variable KRAFTRUN_ARGS:
	KRAFTRUN_ARGS="-memory=1Gi -debug" kraftrun ./kernel

All kraftrun flags can also be provided via file ./.kraftrun-args, with one
argument per line.
`
)

// Set on build.
var version = "dev"

type flags struct {
	spec    kraftrun.Spec
	flagSet *flag.FlagSet

	initrd  FilePath
	files   FileList
	version bool
	debug   bool
}

func newFlags(output io.Writer) *flags {
	flags := &flags{
		spec: kraftrun.DefaultSpec(),
	}

	flags.initFlagset(output)

	return flags
}

func parseArgs(args []string, output io.Writer) (*flags, error) {
	flags := newFlags(output)

	err := flags.ParseArgs(args)
	if err != nil {
		return nil, err
	}

	return flags, nil
}

func (f *flags) ParseArgs(args []string) error {
	// Parses arguments up to the first one that is not prefixed with a "-" or
	// is "--".
	err := f.flagSet.Parse(args)
	if err != nil {
		return &ParseArgsError{msg: "flag parse", err: err}
	}

	// With version flag, just print the version and exit. Using [ErrHelp]
	// the main binary is supposed to return with a non error exit code.
	if f.version {
		err := f.printVersionInformation()
		return &ParseArgsError{msg: "version requested", err: err}
	}

	positionalArgs := f.flagSet.Args()

	// First positional argument is supposed to be the kernel file.
	if len(positionalArgs) < 1 {
		return f.fail("no kernel given", nil)
	}

	kernel, err := sys.AbsolutePath(positionalArgs[0])
	if err != nil {
		return f.fail("kernel path", err)
	}

	if f.initrd != "" && len(f.files) > 0 {
		return f.fail("-initrd and -add-file are mutually exclusive", nil)
	}

	f.spec.Kernel = kernel
	f.spec.Initrd = string(f.initrd)
	f.spec.Files = f.files

	// All further positional arguments after the kernel file and an optional
	// separator are passed to the guest.
	guestArgs := positionalArgs[1:]
	if len(guestArgs) > 0 && guestArgs[0] == argsSeparator {
		guestArgs = guestArgs[1:]
	}

	f.spec.Args = guestArgs

	return nil
}

func (f *flags) logLevel() slog.Level {
	switch {
	case f.debug:
		return slog.LevelDebug
	case f.spec.Quiet:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

func (f *flags) initFlagset(output io.Writer) {
	flagSet := flag.NewFlagSet(name, flag.ContinueOnError)
	flagSet.SetOutput(output)
	flagSet.Usage = f.usage

	memory := &SizeValue{
		Value: &f.spec.Memory,
		Lower: f.spec.Layout.PageSize,
	}

	flagSet.Var(
		memory,
		"memory",
		"total guest memory, like 512Mi, 1Gi or 300M",
	)

	flagSet.Var(
		memory,
		"m",
		"shorthand for -memory",
	)

	flagSet.Var(
		&SizeValue{
			Value: &f.spec.Stack,
			Lower: f.spec.Layout.PageSize,
		},
		"stack",
		"guest stack size at the top of the guest memory",
	)

	flagSet.Var(
		&f.initrd,
		"initrd",
		"path of a CPIO archive used as initrd",
	)

	flagSet.Var(
		&f.files,
		"add-file",
		"host file to add to a generated initrd, format: host[:guest]. "+
			"Flag may be used more than once. Empty value clears the list.",
	)

	flagSet.BoolVar(
		&f.spec.Quiet,
		"quiet",
		f.spec.Quiet,
		"discard guest console output and progress messages",
	)

	flagSet.BoolVar(
		&f.spec.Quiet,
		"q",
		f.spec.Quiet,
		"shorthand for -quiet",
	)

	flagSet.Var(
		&LimitedUintValue{
			Value: &f.spec.Layout.LoadBase,
			Lower: f.spec.Layout.PageSize,
			Upper: maxLoadBase,
		},
		"load-base",
		"lowest guest address kernel segments may be loaded at",
	)

	flagSet.BoolVar(
		&f.debug,
		"debug",
		f.debug,
		"enable debug output",
	)

	flagSet.BoolVar(
		&f.version,
		"version",
		f.version,
		"show version and exit",
	)

	f.flagSet = flagSet
}

// fail fails like flag does. It prints the error first and then usage.
func (f *flags) fail(msg string, err error) error {
	err = &ParseArgsError{msg: msg, err: err}
	fmt.Fprintln(f.flagSet.Output(), err.Error())

	f.flagSet.Usage()

	return err
}

func (f *flags) printVersionInformation() error {
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return ErrReadBuildInfo
	}

	fmt.Fprintf(f.flagSet.Output(), "%s: %s\n\n", name, version)
	fmt.Fprintln(f.flagSet.Output(), buildInfo.String())

	return ErrHelp
}

func (f *flags) usage() {
	fmt.Fprint(f.flagSet.Output(), usageMessage)
	fmt.Fprintln(f.flagSet.Output(), "\nFlags:")
	f.flagSet.PrintDefaults()
}
