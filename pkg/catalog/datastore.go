// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package catalog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// datastore lays transferred files out under the repository root as
// <root>/<collection>/<dataset type>/<identity path>/<file name>, where
// the identity path expands "instrument=TestCam,detector=7" into nested
// "instrument-TestCam/detector-7" directories.
type datastore struct {
	root string
}

// place transfers src into the managed store and returns the dataset path
// plus an undo function that reverses the file-system effect. For
// TransferNone nothing moves and undo is nil.
func (d datastore) place(src, collection, datasetType, identityKey string, mode TransferMode) (string, func() error, error) {
	abs, err := filepath.Abs(src)
	if err != nil {
		return "", nil, fmt.Errorf("resolve %s: %w", src, err)
	}
	if mode == TransferNone {
		return abs, nil, nil
	}

	dest := filepath.Join(d.root, collection, datasetType, identityPath(identityKey), filepath.Base(abs))
	if _, err := os.Lstat(dest); err == nil {
		return "", nil, fmt.Errorf("datastore path %s already occupied", dest)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", nil, fmt.Errorf("create datastore directory: %w", err)
	}

	switch mode {
	case TransferCopy:
		if err := copyFile(abs, dest); err != nil {
			return "", nil, err
		}
		return dest, func() error { return os.Remove(dest) }, nil
	case TransferHardlink:
		if err := os.Link(abs, dest); err != nil {
			return "", nil, fmt.Errorf("hardlink %s: %w", abs, err)
		}
		return dest, func() error { return os.Remove(dest) }, nil
	case TransferSymlink:
		if err := os.Symlink(abs, dest); err != nil {
			return "", nil, fmt.Errorf("symlink %s: %w", abs, err)
		}
		return dest, func() error { return os.Remove(dest) }, nil
	case TransferMove:
		if err := os.Rename(abs, dest); err != nil {
			return "", nil, fmt.Errorf("move %s: %w", abs, err)
		}
		return dest, func() error { return os.Rename(dest, abs) }, nil
	default:
		return "", nil, fmt.Errorf("unknown transfer mode %q", mode)
	}
}

func identityPath(identityKey string) string {
	parts := strings.Split(identityKey, ",")
	for i, p := range parts {
		parts[i] = strings.ReplaceAll(p, "=", "-")
	}
	return filepath.Join(parts...)
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("copy to %s: %w", dest, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		_ = os.Remove(dest)
		return fmt.Errorf("copy to %s: %w", dest, err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dest)
		return fmt.Errorf("copy to %s: %w", dest, err)
	}
	return nil
}
