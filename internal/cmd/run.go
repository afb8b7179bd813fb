// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aibor/kraftrun/internal/exitcode"
	"github.com/aibor/kraftrun/internal/hypervisor"
	"github.com/aibor/kraftrun/internal/hypervisor/kvm"
	"github.com/aibor/kraftrun/internal/kraftrun"
	"github.com/aibor/kraftrun/internal/sys"
)

const localConfigFile = ".kraftrun-args"

// IO provides input and output details for the command.
type IO struct {
	Stdout io.Writer
	Stderr io.Writer
}

func newFlagsFromArgs(args []string, cfg IO) (*flags, error) {
	args, err := MergedArgs(args, os.DirFS("."), localConfigFile)
	if err != nil {
		return nil, err
	}

	return parseArgs(args, cfg.Stderr)
}

func validate(spec *kraftrun.Spec) error {
	err := sys.ValidateRegularFile(spec.Kernel)
	if err != nil {
		return fmt.Errorf("kernel file: %w", err)
	}

	if spec.Initrd != "" {
		err := sys.ValidateRegularFile(spec.Initrd)
		if err != nil {
			return fmt.Errorf("initrd file: %w", err)
		}
	}

	for _, file := range spec.Files {
		err := sys.ValidateRegularFile(file.Source)
		if err != nil {
			return fmt.Errorf("additional file: %w", err)
		}
	}

	return nil
}

func run(
	ctx context.Context,
	flags *flags,
	hv hypervisor.Hypervisor,
	cfg IO,
) error {
	err := validate(&flags.spec)
	if err != nil {
		return fmt.Errorf("validate: %w", err)
	}

	result, err := kraftrun.Run(ctx, flags.spec, hv, cfg.Stdout)

	slog.Debug("Run finished",
		slog.Any("exit", result.Exit),
		slog.Uint64("forwarded", result.Forwarded),
		slog.Uint64("dropped", result.Dropped),
	)

	return err
}

func handleParseArgsError(err error, stderr io.Writer) int {
	// [ErrHelp] is returned when help is requested. So exit without error
	// in this case.
	if errors.Is(err, ErrHelp) {
		return 0
	}

	// ParseArgs already prints errors, so we just exit without an error.
	if !errors.Is(err, &ParseArgsError{}) {
		printError(stderr, err)
	}

	return exitcode.HostFailure
}

func handleRunError(err error, stderr io.Writer) int {
	exitCode, isGuestCode := exitcode.From(err)

	// Do not print the error in case the guest communicated a non-zero exit
	// code that is passed on as is.
	if err != nil && (!isGuestCode || exitCode == exitcode.HostFailure) {
		printError(stderr, err)
	}

	return exitCode
}

func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error [%s]: %v\n", name, err)
}

// Run is the main entry point for the CLI command. The args must not contain
// the program name. It returns the exit code for the process.
func Run(ctx context.Context, args []string, cfg IO) int {
	return execute(ctx, args, cfg, kvm.New())
}

func execute(
	ctx context.Context,
	args []string,
	cfg IO,
	hv hypervisor.Hypervisor,
) int {
	flags, err := newFlagsFromArgs(args, cfg)
	if err != nil {
		return handleParseArgsError(err, cfg.Stderr)
	}

	setupLogging(cfg.Stderr, flags.logLevel())

	err = run(ctx, flags, hv, cfg)

	return handleRunError(err, cfg.Stderr)
}
