// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package kraftrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aibor/kraftrun/internal/cmdline"
	"github.com/aibor/kraftrun/internal/initrd"
	"github.com/aibor/kraftrun/internal/kernel"
	"github.com/aibor/kraftrun/internal/sys"
	"golang.org/x/sync/errgroup"
)

// prepared holds the inputs of the guest memory.
type prepared struct {
	image  *kernel.Image
	initrd []byte
}

// prepare loads the kernel and composes the initrd image concurrently.
func prepare(ctx context.Context, spec Spec) (prepared, error) {
	var (
		result prepared
		group  errgroup.Group
	)

	group.Go(func() error {
		img, err := loadKernel(spec)
		if err != nil {
			return err
		}

		result.image = img

		return nil
	})

	group.Go(func() error {
		image, err := composeInitrd(ctx, spec)
		if err != nil {
			return err
		}

		result.initrd = image

		return nil
	})

	err := group.Wait()
	if err != nil {
		return prepared{}, err
	}

	return result, nil
}

func loadKernel(spec Spec) (*kernel.Image, error) {
	img, err := kernel.LoadFile(spec.Kernel, kernel.Config{
		LoadBase: spec.Layout.LoadBase,
	})
	if err != nil {
		return nil, fmt.Errorf("load kernel: %w", err)
	}

	arch, err := sys.ArchOf(img.Machine())
	if err != nil {
		return nil, fmt.Errorf("load kernel: %w", err)
	}

	slog.Info("Kernel loaded",
		slog.String("path", spec.Kernel),
		slog.String("arch", arch.String()),
		slog.String("entry", fmt.Sprintf("%#x", img.Entry())),
		slog.Int("segments", len(img.Segments())),
	)

	return img, nil
}

func composeInitrd(ctx context.Context, spec Spec) ([]byte, error) {
	archive, err := readArchive(ctx, spec)
	if err != nil {
		return nil, err
	}

	blob, err := cmdline.Encode(spec.Args, spec.ArgAlignment)
	if err != nil {
		return nil, fmt.Errorf("encode arguments: %w", err)
	}

	logBlob(ctx, blob, spec.ArgAlignment)

	image := initrd.Compose(blob, archive)

	slog.Info("Initrd composed",
		slog.Int("archive_size", len(archive)),
		slog.Int("blob_size", len(blob)),
		slog.Any("args", spec.Args),
	)

	return image, nil
}

// readArchive returns the archive of the initrd. Source paths of files must be
// absolute.
func readArchive(ctx context.Context, spec Spec) ([]byte, error) {
	switch {
	case spec.Initrd != "":
		archive, err := os.ReadFile(spec.Initrd)
		if err != nil {
			return nil, fmt.Errorf("read initrd: %w", err)
		}

		logArchive(ctx, spec.Initrd, archive)

		return archive, nil
	case len(spec.Files) > 0:
		builder := initrd.NewBuilder()

		for _, file := range spec.Files {
			err := builder.AddFile(file.Target, file.Source)
			if err != nil {
				return nil, fmt.Errorf("add file: %w", err)
			}
		}

		archive, err := builder.Build()
		if err != nil {
			return nil, fmt.Errorf("build initrd: %w", err)
		}

		logArchive(ctx, "generated", archive)

		return archive, nil
	default:
		return nil, nil
	}
}

func logArchive(ctx context.Context, source string, archive []byte) {
	if !slog.Default().Enabled(ctx, slog.LevelDebug) {
		return
	}

	entries, err := initrd.Inspect(archive)
	if err != nil {
		slog.Debug("Initrd archive not inspectable",
			slog.String("source", source),
			slog.Any("error", err),
		)

		return
	}

	for _, entry := range entries {
		slog.Debug("Initrd entry",
			slog.String("source", source),
			slog.String("name", entry.Name),
			slog.String("mode", entry.Mode.String()),
			slog.Int64("size", entry.Size),
		)
	}
}

func logBlob(ctx context.Context, blob []byte, align uint64) {
	if blob == nil || !slog.Default().Enabled(ctx, slog.LevelDebug) {
		return
	}

	args, length, err := cmdline.Decode(blob, align)
	if err != nil {
		slog.Debug("Argument blob not decodable", slog.Any("error", err))
		return
	}

	slog.Debug("Argument blob",
		slog.Any("args", args),
		slog.Uint64("length", length),
	)
}
