package synth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/sdejongh/audiopatch/internal/platform"
	"github.com/sdejongh/audiopatch/pkg/models"
	"github.com/sdejongh/audiopatch/pkg/storage"
)

// rename is swapped in tests to simulate locked directories
var rename = os.Rename

// Method tells how staging reached the final directory
type Method string

const (
	// MethodMove renamed staging into a final directory that did not exist
	MethodMove Method = "move"
	// MethodSwap renamed the old output aside and staging into its place
	MethodSwap Method = "swap"
	// MethodCopy cleared the old output and copied staging over it
	MethodCopy Method = "copy"
)

// Replace swaps the staging directory into place as final.
// A missing final is created by rename. Otherwise the old output is
// renamed to a backup, staging renamed to final and the backup deleted.
// When the second rename fails the backup is restored if possible and the
// old output's audio and archives are cleared and overwritten by a copy
// of staging. Staging no longer exists when Replace succeeds.
func Replace(final, staging string) (Method, error) {
	if strings.TrimSpace(final) == "" {
		return "", errors.New("final directory is empty")
	}
	if strings.TrimSpace(staging) == "" {
		return "", errors.New("staging directory is empty")
	}
	if !platform.IsDir(staging) {
		return "", fmt.Errorf("staging directory does not exist: %s", staging)
	}

	if _, err := os.Stat(final); os.IsNotExist(err) {
		if err := rename(staging, final); err != nil {
			return "", fmt.Errorf("failed to move staging into place: %w", err)
		}
		return MethodMove, nil
	}

	backup := final + models.BackupInfix + strings.ReplaceAll(uuid.NewString(), "-", "")
	if err := rename(final, backup); err == nil {
		if err := rename(staging, final); err == nil {
			removeDir(backup)
			return MethodSwap, nil
		}

		// Roll back so the copy fallback has a directory to write into
		if !platform.IsDir(final) && platform.IsDir(backup) {
			rename(backup, final)
		}
	}

	base := filepath.Base(final)
	if err := ClearPreviousOutputs(final, base+".bsa", base+".ba2"); err != nil {
		return "", err
	}
	if err := CopyDir(context.Background(), staging, final); err != nil {
		return "", fmt.Errorf("failed to copy staging into place: %w", err)
	}
	removeDir(staging)

	return MethodCopy, nil
}

// removeDir deletes dir through the backend rooted at its parent
func removeDir(dir string) error {
	parent, err := storage.NewLocal(filepath.Dir(dir))
	if err != nil {
		return err
	}
	defer parent.Close()

	return parent.Delete(context.Background(), filepath.Base(dir))
}
