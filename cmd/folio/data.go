package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/eringen/folio/logger"
	"github.com/eringen/folio/markdown"
	"github.com/eringen/folio/store"
)

var importCmd = &cobra.Command{
	Use:   "import <source-data-dir>",
	Short: "Import posts.json, blog/*.md and contacts.json into the configured store",
	Long: `import reads a data directory in the legacy layout (a posts.json
index, one markdown file per post with optional front matter, and a
contacts.json file) and stores every record in the configured backend,
keeping ids and timestamps.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := siteConfig(v)
		s, err := openStore(cfg.StorageDriver, cfg.DataDir, cfg.DatabasePath)
		if err != nil {
			return err
		}
		defer s.Close()

		res, err := store.ImportDir(cmd.Context(), args[0], s)
		if err != nil {
			return err
		}
		logger.InfoWithFields("import finished", logger.Fields{
			"posts":    res.Posts,
			"contacts": res.Contacts,
			"skipped":  len(res.Skipped),
		})
		for _, sk := range res.Skipped {
			fmt.Fprintf(cmd.ErrOrStderr(), "skipped: %s\n", sk)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d posts and %d contact requests\n", res.Posts, res.Contacts)
		return nil
	},
}

var fixOrphans bool

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Report post files missing from the index and index entries without a file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := siteConfig(v)
		if cfg.StorageDriver != "" && cfg.StorageDriver != store.DriverFile {
			return errors.New("reconcile only applies to the file storage driver")
		}
		fsStore, err := store.NewFileStore(cfg.DataDir, markdown.Render)
		if err != nil {
			return err
		}
		rep, err := fsStore.Reconcile(cmd.Context(), fixOrphans)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, id := range rep.Orphans {
			fmt.Fprintf(out, "orphan:  %s\n", id)
		}
		for _, id := range rep.Missing {
			fmt.Fprintf(out, "missing: %s\n", id)
		}
		for _, id := range rep.Removed {
			fmt.Fprintf(out, "removed: %s\n", id)
		}
		if len(rep.Orphans) == 0 && len(rep.Missing) == 0 {
			fmt.Fprintln(out, "index and post files are consistent")
		}
		return nil
	},
}

func openStore(driver, dataDir, dbPath string) (store.Store, error) {
	if driver == store.DriverSQLite && dbPath == "" {
		dbPath = filepath.Join(dataDir, "folio.db")
	}
	return store.Open(driver, dataDir, dbPath, markdown.Render)
}

func init() {
	reconcileCmd.Flags().BoolVar(&fixOrphans, "fix", false, "remove orphaned post files")
	rootCmd.AddCommand(importCmd, reconcileCmd)
}
