// medctl is the operator's companion tool: database backups and allow-list
// management without touching the running bot.
package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"github.com/qatestsmith/medicinereminderbot/internal/access"
)

func main() {
	root := &cobra.Command{
		Use:           "medctl",
		Short:         "Operational tooling for the medicine reminder bot",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(backupCmd(), usersCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func backupCmd() *cobra.Command {
	var dbPath, outDir string
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Snapshot the SQLite database with VACUUM INTO",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}
			dest := filepath.Join(outDir,
				fmt.Sprintf("medicine-%s.db", time.Now().Format("20060102-150405")))

			db, err := sql.Open("sqlite", dbPath)
			if err != nil {
				return err
			}
			defer db.Close()

			// VACUUM INTO produces a consistent copy even while the bot
			// holds the database open in WAL mode.
			if _, err := db.ExecContext(cmd.Context(), "VACUUM INTO ?", dest); err != nil {
				return fmt.Errorf("backup failed: %w", err)
			}
			fmt.Println("backup written:", dest)
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "./data/medicine.db", "path to the bot database")
	cmd.Flags().StringVar(&outDir, "out", "./backups", "directory for backup files")
	return cmd
}

func usersCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage the allow-list file",
	}
	cmd.PersistentFlags().StringVar(&file, "file", "./config/allowed_users.txt", "allow-list file")

	list := &cobra.Command{
		Use:   "list",
		Short: "Print allow-list entries",
		RunE: func(_ *cobra.Command, _ []string) error {
			l, _, err := access.LoadList(file)
			if err != nil {
				return err
			}
			for _, id := range l.IDs {
				fmt.Println(id)
			}
			for _, name := range l.Usernames {
				fmt.Println("@" + name)
			}
			return nil
		},
	}

	add := &cobra.Command{
		Use:   "add <id-or-username>",
		Short: "Add a chat id or @username to the allow-list",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			l, _, err := access.LoadList(file)
			if os.IsNotExist(err) {
				l = &access.List{}
			} else if err != nil {
				return err
			}
			if id, convErr := strconv.ParseInt(args[0], 10, 64); convErr == nil {
				if l.HasID(id) {
					return fmt.Errorf("%d is already allowed", id)
				}
				l.IDs = append(l.IDs, id)
			} else {
				name, err := access.NormalizeUsername(args[0])
				if err != nil {
					return err
				}
				if l.HasUsername(name) {
					return fmt.Errorf("@%s is already allowed", name)
				}
				l.Usernames = append(l.Usernames, name)
			}
			return access.SaveList(file, l)
		},
	}

	remove := &cobra.Command{
		Use:   "remove <id-or-username>",
		Short: "Remove a chat id or @username from the allow-list",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			l, _, err := access.LoadList(file)
			if err != nil {
				return err
			}
			if id, convErr := strconv.ParseInt(args[0], 10, 64); convErr == nil {
				kept := l.IDs[:0]
				for _, v := range l.IDs {
					if v != id {
						kept = append(kept, v)
					}
				}
				if len(kept) == len(l.IDs) {
					return fmt.Errorf("%d is not in the list", id)
				}
				l.IDs = kept
			} else {
				name, err := access.NormalizeUsername(args[0])
				if err != nil {
					return err
				}
				kept := l.Usernames[:0]
				for _, v := range l.Usernames {
					if v != name {
						kept = append(kept, v)
					}
				}
				if len(kept) == len(l.Usernames) {
					return fmt.Errorf("@%s is not in the list", name)
				}
				l.Usernames = kept
			}
			return access.SaveList(file, l)
		},
	}

	cmd.AddCommand(list, add, remove)
	return cmd
}
