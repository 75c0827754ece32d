package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/explorrrr/boj-client/internal/app"
	"github.com/explorrrr/boj-client/internal/store"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect, prune and compact the local archive file",
	Long: `The archive is a single bbolt file (see 'boj config get' for its path).
It fills only when a query runs with --store or a snapshot is saved, and
nothing in it expires.`,
}

// bucketPurpose describes what each archive bucket holds.
var bucketPurpose = map[string]string{
	"responses": "decoded API responses",
	"series":    "points merged per series code",
	"metadata":  "latest getMetadata result per DB",
	"snapshots": "saved command lines",
}

// ─── stats ────────────────────────────────────────────────────────────────────

var cacheStatsCmd = &cobra.Command{
	Use:     "stats",
	Short:   "Show archive usage per bucket and per DB",
	Example: `  boj cache stats`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(deps *app.Deps) error {
			buckets, err := deps.Store.Stats()
			if err != nil {
				return fmt.Errorf("reading bucket stats: %w", err)
			}
			usage, err := deps.Store.UsageByDB()
			if err != nil {
				return fmt.Errorf("reading per-DB usage: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Archive: %s\n\n", deps.Store.Path())
			printSimpleTable(out, []string{"BUCKET", "HOLDS", "KEYS", "SIZE"}, func(add func(...string)) {
				for _, b := range buckets {
					add(b.Name, bucketPurpose[b.Name], strconv.Itoa(b.Count), humanBytes(b.Bytes))
				}
			})
			if len(usage) == 0 {
				return nil
			}
			fmt.Fprintln(out)
			printSimpleTable(out, []string{"DB", "RESPONSES", "SERIES", "METADATA"}, func(add func(...string)) {
				for _, u := range usage {
					meta := "-"
					if u.Metadata {
						meta = "yes"
					}
					add(u.DB, strconv.Itoa(u.Responses), strconv.Itoa(u.Series), meta)
				}
			})
			return nil
		})
	},
}

// ─── clear ────────────────────────────────────────────────────────────────────

var (
	cacheClearAll    bool
	cacheClearBucket string
	cacheClearDB     string
)

var cacheClearCmd = &cobra.Command{
	Use:   "clear (--all | --bucket <NAME> | --db <DB>)",
	Short: "Drop archived data by bucket or by DB",
	Long: `Clear drops archived entries. --db removes the responses, series and
metadata stored for one DB and leaves snapshots alone.

Freed pages are reused by later writes but the file does not shrink; follow
up with 'boj cache compact' to give the space back.`,
	Example: `  boj cache clear --db FM08
  boj cache clear --bucket responses
  boj cache clear --all`,
	RunE: func(cmd *cobra.Command, args []string) error {
		picked := 0
		for _, set := range []bool{cacheClearAll, cacheClearBucket != "", cacheClearDB != ""} {
			if set {
				picked++
			}
		}
		if picked != 1 {
			return fmt.Errorf("choose exactly one of --all, --bucket or --db\n\nBuckets: %s", strings.Join(store.AllBuckets, ", "))
		}

		return withStore(func(deps *app.Deps) error {
			out := cmd.OutOrStdout()
			switch {
			case cacheClearDB != "":
				n, err := deps.Store.ClearDB(cacheClearDB)
				if err != nil {
					return err
				}
				if n == 0 {
					printWarn(out, "Nothing archived for DB %s", strings.ToUpper(cacheClearDB))
					return nil
				}
				printOK(out, "Removed %d archived entries for DB %s", n, strings.ToUpper(cacheClearDB))
			case cacheClearBucket != "":
				if err := deps.Store.ClearBucket(cacheClearBucket); err != nil {
					return err
				}
				printOK(out, "Emptied bucket %s", cacheClearBucket)
			default:
				if err := deps.Store.ClearAll(); err != nil {
					return fmt.Errorf("emptying archive: %w", err)
				}
				printOK(out, "Emptied every bucket")
			}
			if !globalFlags.Quiet {
				fmt.Fprintln(out, "  Disk space is returned by: boj cache compact")
			}
			return nil
		})
	},
}

// ─── compact ──────────────────────────────────────────────────────────────────

var cacheCompactCmd = &cobra.Command{
	Use:   "compact",
	Short: "Rewrite the archive file without its free pages",
	Long: `Compact copies live keys into a new file next to the archive and swaps it
in. If the swap fails the original file is left as it was.`,
	Example: `  boj cache compact`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(deps *app.Deps) error {
			out := cmd.OutOrStdout()
			if !globalFlags.Quiet {
				fmt.Fprintf(out, "Compacting %s\n", deps.Store.Path())
			}
			before, after, err := deps.Store.Compact()
			if err != nil {
				return fmt.Errorf("compacting archive: %w", err)
			}
			if saved := before - after; saved > 0 {
				printOK(out, "Compacted %s -> %s (%s reclaimed)", humanBytes(before), humanBytes(after), humanBytes(saved))
			} else {
				printOK(out, "Already compact at %s", humanBytes(after))
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatsCmd, cacheClearCmd, cacheCompactCmd)

	f := cacheClearCmd.Flags()
	f.BoolVar(&cacheClearAll, "all", false, "empty every bucket, snapshots included")
	f.StringVar(&cacheClearBucket, "bucket", "", "empty one bucket: "+strings.Join(store.AllBuckets, "|"))
	f.StringVar(&cacheClearDB, "db", "", "remove responses, series and metadata archived for one DB")
	cacheClearCmd.RegisterFlagCompletionFunc("db", completeFirstDB)
}

// humanBytes formats a byte count with binary units.
func humanBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return strconv.FormatInt(b, 10) + " B"
	}
	v, suffix := float64(b)/unit, "KB"
	for _, s := range []string{"MB", "GB"} {
		if v < unit {
			break
		}
		v, suffix = v/unit, s
	}
	return fmt.Sprintf("%.1f %s", v, suffix)
}
