package cmd

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/niels/page-server/pkg/config"
	"github.com/niels/page-server/pkg/logging"
	"github.com/niels/page-server/pkg/storage"
	"github.com/spf13/cobra"
)

func newImportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <dir>",
		Short: "Load every file under dir into the bitcask or S3 store",
		Long: `Walks dir and stores each regular file under its slash-separated path
relative to dir, so that dir/home/index.html is served for the page
identifier home/index.html and for GET /home/index.html.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.store == nil && opts.cfg.Storage.Backend == config.BackendFS {
				return fmt.Errorf("the %s backend reads the public directory directly; import needs %s or %s",
					config.BackendFS, config.BackendBitcask, config.BackendS3)
			}

			store, closeStore, err := openStore(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer releaseStore(closeStore, opts.cfg.Storage.Backend)

			importer, ok := store.(storage.Importer)
			if !ok {
				return fmt.Errorf("storage backend %s does not support import", opts.cfg.Storage.Backend)
			}

			count, err := importDir(cmd.Context(), importer, args[0])
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s %d files from %s\n", color.GreenString("Imported"), count, args[0])
			return nil
		},
	}
}

// importDir stores every regular file below dir and returns how many were stored
func importDir(ctx context.Context, importer storage.Importer, dir string) (int, error) {
	count := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)

		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()

		if err := importer.PutFile(ctx, name, f); err != nil {
			return err
		}

		logging.DebugWith("Imported file", map[string]interface{}{"name": name})
		count++
		return nil
	})
	if err != nil {
		return count, fmt.Errorf("failed to import %s: %w", dir, err)
	}
	return count, nil
}
