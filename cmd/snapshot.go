package cmd

import (
	"crypto/rand"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/explorrrr/boj-client/internal/app"
	"github.com/explorrrr/boj-client/internal/store"
	"github.com/oklog/ulid/v2"
	"github.com/spf13/cobra"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Save and replay boj queries",
	Long: `A snapshot is a boj command line kept in the local archive under a name.
Replaying it re-runs the same query against the API, which is how a stored
series gets refreshed on a schedule (cron, CI).

Snapshots are addressed by ID or by name; when names repeat, the newest wins.

  boj snapshot save --name usd-jpy -- code FM08 FXERD01 --start 202001 --store
  boj snapshot run usd-jpy
  boj snapshot run usd-jpy -- --format csv`,
}

// ─── save ─────────────────────────────────────────────────────────────────────

var (
	snapshotSaveName string
	snapshotSaveLine string
)

var snapshotSaveCommand = &cobra.Command{
	Use:   "save --name <NAME> [--cmd <LINE> | -- <ARGS...>]",
	Short: "Store a boj command line under a name",
	Example: `  boj snapshot save --name tankan -- code CO TK99F1000601GCQ01000 --start 2015 --store
  boj snapshot save --name md10-q --cmd "layer MD10 Q 1 --all-pages --format csv"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		line := snapshotSaveLine
		if line == "" {
			line = strings.Join(args, " ")
		} else if len(args) > 0 {
			return fmt.Errorf("pass the command either with --cmd or after --, not both")
		}
		line, err := normalizeSnapshotLine(line)
		if err != nil {
			return err
		}

		id, err := newSnapshotID()
		if err != nil {
			return err
		}
		return withStore(func(deps *app.Deps) error {
			snap := store.Snapshot{
				ID:          id,
				Name:        snapshotSaveName,
				CommandLine: line,
				CreatedAt:   time.Now().UTC(),
			}
			if err := deps.Store.PutSnapshot(snap); err != nil {
				return fmt.Errorf("saving snapshot %q: %w", snap.Name, err)
			}
			printOK(cmd.OutOrStdout(), "Snapshot %q saved as %s", snap.Name, snap.ID)
			return nil
		})
	},
}

// ─── list ─────────────────────────────────────────────────────────────────────

var snapshotListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List saved snapshots, oldest first",
	Example: `  boj snapshot list`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(deps *app.Deps) error {
			snaps, err := deps.Store.ListSnapshots()
			if err != nil {
				return fmt.Errorf("listing snapshots: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(snaps) == 0 {
				printWarn(out, "The archive holds no snapshots.")
				fmt.Fprintln(out, "  Use: boj snapshot save --name <NAME> -- <command...>")
				return nil
			}
			printSimpleTable(out, []string{"ID", "NAME", "DB", "COMMAND", "SAVED"}, func(add func(...string)) {
				for _, s := range snaps {
					add(s.ID, s.Name, snapshotDB(s.CommandLine), abbreviate(s.CommandLine, 48), s.CreatedAt.Local().Format("2006-01-02 15:04"))
				}
			})
			return nil
		})
	},
}

// ─── show ─────────────────────────────────────────────────────────────────────

var snapshotShowCmd = &cobra.Command{
	Use:     "show <ID|NAME>",
	Short:   "Print one snapshot in full",
	Example: `  boj snapshot show usd-jpy`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(deps *app.Deps) error {
			snap, err := lookupSnapshot(deps, args[0])
			if err != nil {
				return err
			}
			printKVTable(cmd.OutOrStdout(), [][]string{
				{"ID", snap.ID},
				{"Name", snap.Name},
				{"DB", snapshotDB(snap.CommandLine)},
				{"Command", "boj " + snap.CommandLine},
				{"Saved", snap.CreatedAt.Format(time.RFC3339)},
			})
			return nil
		})
	},
}

// ─── run ──────────────────────────────────────────────────────────────────────

var snapshotRunDry bool

var snapshotRunCmd = &cobra.Command{
	Use:   "run <ID|NAME> [-- <EXTRA ARGS...>]",
	Short: "Replay a snapshot with the current binary",
	Long: `Run re-executes the saved command line as a child process. Arguments after
-- are appended, so flags such as --format or --out can be overridden for a
single replay without editing the snapshot.`,
	Example: `  boj snapshot run usd-jpy
  boj snapshot run usd-jpy -- --format csv --out usd-jpy.csv
  boj snapshot run 01J9ZQ3K6V8E4MT2XN5RB7WC1D --dry-run`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var snap store.Snapshot
		// The child process opens the same bbolt file, so the lock must be
		// released before it starts.
		err := withStore(func(deps *app.Deps) error {
			var err error
			snap, err = lookupSnapshot(deps, args[0])
			return err
		})
		if err != nil {
			return err
		}

		argv := append(strings.Fields(snap.CommandLine), args[1:]...)
		out := cmd.OutOrStdout()
		if snapshotRunDry {
			fmt.Fprintln(out, "boj "+strings.Join(argv, " "))
			return nil
		}

		self, err := os.Executable()
		if err != nil {
			return fmt.Errorf("locating boj binary: %w", err)
		}
		if !globalFlags.Quiet {
			fmt.Fprintf(cmd.ErrOrStderr(), "▶ %s: boj %s\n", snap.Name, strings.Join(argv, " "))
		}
		child := exec.CommandContext(cmd.Context(), self, argv...)
		child.Stdin = cmd.InOrStdin()
		child.Stdout = out
		child.Stderr = cmd.ErrOrStderr()
		if err := child.Run(); err != nil {
			return fmt.Errorf("snapshot %q: %w", snap.Name, err)
		}
		return nil
	},
}

// ─── delete ───────────────────────────────────────────────────────────────────

var snapshotDeleteCmd = &cobra.Command{
	Use:     "delete <ID|NAME>",
	Short:   "Remove a snapshot from the archive",
	Example: `  boj snapshot delete md10-q`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(deps *app.Deps) error {
			snap, err := lookupSnapshot(deps, args[0])
			if err != nil {
				return err
			}
			if err := deps.Store.DeleteSnapshot(snap.ID); err != nil {
				return fmt.Errorf("deleting snapshot %s: %w", snap.ID, err)
			}
			printOK(cmd.OutOrStdout(), "Snapshot %q (%s) deleted", snap.Name, snap.ID)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
	snapshotCmd.AddCommand(snapshotSaveCommand, snapshotListCmd, snapshotShowCmd, snapshotRunCmd, snapshotDeleteCmd)

	snapshotSaveCommand.Flags().StringVar(&snapshotSaveName, "name", "", "name to replay the snapshot by (required)")
	snapshotSaveCommand.Flags().StringVar(&snapshotSaveLine, "cmd", "", "command line without the binary name; alternative to args after --")
	snapshotSaveCommand.MarkFlagRequired("name")

	snapshotRunCmd.Flags().BoolVar(&snapshotRunDry, "dry-run", false, "print the command line instead of running it")
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

func lookupSnapshot(deps *app.Deps, ref string) (store.Snapshot, error) {
	snap, ok, err := deps.Store.FindSnapshot(ref)
	if err != nil {
		return snap, fmt.Errorf("reading snapshot %q: %w", ref, err)
	}
	if !ok {
		return snap, fmt.Errorf("no snapshot with ID or name %q\n\n  Use: boj snapshot list", ref)
	}
	return snap, nil
}

// normalizeSnapshotLine trims a leading "boj" and checks that the line
// names a boj command other than snapshot itself.
func normalizeSnapshotLine(line string) (string, error) {
	parts := strings.Fields(line)
	if len(parts) > 0 && parts[0] == "boj" {
		parts = parts[1:]
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("no command to save: use --cmd or put the command after --")
	}
	target, _, err := rootCmd.Find(parts)
	if err != nil || target == rootCmd {
		return "", fmt.Errorf("%q is not a boj command", parts[0])
	}
	for c := target; c != nil; c = c.Parent() {
		if c == snapshotCmd {
			return "", fmt.Errorf("a snapshot cannot wrap another snapshot command")
		}
	}
	return strings.Join(parts, " "), nil
}

// snapshotDB reports the DB a saved query targets, or "-" when the command
// does not take one.
func snapshotDB(line string) string {
	parts := strings.Fields(line)
	if len(parts) < 2 {
		return "-"
	}
	switch parts[0] {
	case "code", "layer", "metadata":
		if !strings.HasPrefix(parts[1], "-") {
			return strings.ToUpper(parts[1])
		}
	}
	return "-"
}

func abbreviate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

var (
	idMu      sync.Mutex
	idEntropy = ulid.Monotonic(rand.Reader, 0)
)

// newSnapshotID returns a ULID. IDs minted in the same millisecond keep
// increasing because the entropy source is monotonic.
func newSnapshotID() (string, error) {
	idMu.Lock()
	defer idMu.Unlock()
	id, err := ulid.New(ulid.Timestamp(time.Now()), idEntropy)
	if err != nil {
		return "", fmt.Errorf("generating snapshot id: %w", err)
	}
	return id.String(), nil
}
