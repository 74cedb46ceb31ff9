// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package contract

import (
	"fmt"
	"os"
	"strconv"
)

const (
	// DefaultMaxBatchFiles is the baseline soft limit for files per ingest batch.
	DefaultMaxBatchFiles = 10000

	// CollectionMaxBytes is the maximum length for collection names.
	CollectionMaxBytes = 128
)

// MaxBatchFiles returns the effective soft limit on files per ingest batch.
// Controlled via env SKYVAULT_MAX_BATCH_FILES; falls back to DefaultMaxBatchFiles.
func MaxBatchFiles() int {
	if v := os.Getenv("SKYVAULT_MAX_BATCH_FILES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return DefaultMaxBatchFiles
}

// ValidationResult represents the result of a validation check.
type ValidationResult struct {
	OK      bool
	Message string
}

// ValidateBatch performs basic validation on an ingest batch: it must be
// non-empty and under the batch size limit.
func ValidateBatch(files []string) *ValidationResult {
	if len(files) == 0 {
		return &ValidationResult{
			OK:      false,
			Message: "batch contains no files",
		}
	}
	if limit := MaxBatchFiles(); len(files) > limit {
		return &ValidationResult{
			OK:      false,
			Message: fmt.Sprintf("batch of %d files exceeds limit of %d", len(files), limit),
		}
	}
	return &ValidationResult{OK: true}
}

// ValidateCollection checks a collection name for CLI use.
func ValidateCollection(name string) *ValidationResult {
	if name == "" {
		return &ValidationResult{OK: false, Message: "collection name is empty"}
	}
	if len(name) > CollectionMaxBytes {
		return &ValidationResult{OK: false, Message: "collection name too long"}
	}
	return &ValidationResult{OK: true}
}
