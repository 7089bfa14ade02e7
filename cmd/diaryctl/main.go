package main

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"diarykeeper/internal/archive"
	"diarykeeper/internal/backup"
	"diarykeeper/internal/config"
	"diarykeeper/internal/diary"
	"diarykeeper/internal/storage"
)

func main() {
	// The CLI reports through its exit code and stdout; keep slog quiet
	// unless asked for.
	if os.Getenv("LOG_LEVEL") == "" {
		slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	}

	rootCmd := &cobra.Command{
		Use:   "diaryctl",
		Short: "Offline export/import for the diary store",
	}

	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(infoCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openManager loads config and wires an archive manager against the
// configured database.
func openManager() (*archive.Manager, *sql.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	db, err := storage.New(cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	if err := storage.Migrate(db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migrate database: %w", err)
	}

	kv := storage.NewKVRepo(db)
	keys := diary.Keys{Namespace: cfg.KeyNamespace}
	backups := backup.NewManager(kv, cfg.KeyNamespace)
	return archive.NewManager(kv, backups, keys, cfg.AppName, cfg.ExportDir), db, nil
}

func exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Write the full collection to a backup file",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, db, err := openManager()
			if err != nil {
				return err
			}
			defer db.Close()

			path, err := manager.Export(context.Background())
			if err != nil {
				return err
			}

			fmt.Printf("Exported backup: %s\n", path)
			return nil
		},
	}
}

func importCmd() *cobra.Command {
	var replace bool
	var yes bool

	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Restore a backup file (merge by default)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read backup file: %w", err)
			}

			manager, db, err := openManager()
			if err != nil {
				return err
			}
			defer db.Close()

			result := manager.Import(context.Background(), raw, replace, archive.ImportOptions{
				Confirm: func(summary archive.ImportSummary) bool {
					if yes {
						return true
					}
					return promptConfirm(summary)
				},
			})

			switch result.Outcome {
			case archive.OutcomeSuccess:
				fmt.Printf("Imported %d sections, %d items\n", result.Sections, result.TotalItems)
				return nil
			case archive.OutcomeCancelled:
				fmt.Println("cancelled")
				return nil
			default:
				return fmt.Errorf("import %s: %s", result.Outcome, result.Error)
			}
		},
	}

	cmd.Flags().BoolVar(&replace, "replace", false, "discard all current data before applying the snapshot")
	cmd.Flags().BoolVar(&yes, "yes", false, "skip the confirmation prompt")
	return cmd
}

func infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show collection totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, db, err := openManager()
			if err != nil {
				return err
			}
			defer db.Close()

			info, err := manager.Info(context.Background())
			if err != nil {
				return err
			}

			fmt.Printf("Sections: %d\nItems:    %d\n", info.Sections, info.TotalItems)
			return nil
		},
	}
}

// promptConfirm describes the operation's scope and destructiveness and
// reads a y/N answer from stdin.
func promptConfirm(summary archive.ImportSummary) bool {
	mode := "merge into"
	if summary.Replace {
		mode = "REPLACE ALL current data with"
	}
	fmt.Printf("This will %s %d sections and %d items. Continue? [y/N] ",
		mode, summary.Sections, summary.TotalItems)

	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
