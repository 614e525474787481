package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/merminwalk/internal/store"
)

var (
	keepLast      int
	olderThanDays int
	forceClean    bool
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage cached Mermin coefficients",
	Long: `Manage the coefficient cache: list entries, show one, or clean old ones.
The cache is the JSON store under --cache-dir, or the legacy CSV file given
with --cache-csv.`,
}

var listCacheCmd = &cobra.Command{
	Use:   "list",
	Short: "List all cached entries",
	Long:  `Display all cached entries with kind, qubits, score, timestamp and the run that produced them.`,
	RunE:  runListEntries,
}

var showCacheCmd = &cobra.Command{
	Use:   "show <key>",
	Short: "Print one cached entry as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runShowEntry,
}

var cleanCacheCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean old entries",
	Long: `Delete old entries based on retention policy.
You can keep only the N most recent entries or delete entries older than N days.
Traces of deleted entries are removed as well when --trace-dir is set.`,
	RunE: runCleanEntries,
}

func init() {
	rootCmd.AddCommand(cacheCmd)

	cacheCmd.AddCommand(listCacheCmd)
	cacheCmd.AddCommand(showCacheCmd)
	cacheCmd.AddCommand(cleanCacheCmd)

	cleanCacheCmd.Flags().IntVar(&keepLast, "keep-last", 0, "Keep only the last N entries (0 = keep all)")
	cleanCacheCmd.Flags().IntVar(&olderThanDays, "older-than", 0, "Delete entries older than N days (0 = no age limit)")
	cleanCacheCmd.Flags().BoolVarP(&forceClean, "force", "f", false, "Skip confirmation prompt")
}

func openCache() (store.CoefficientStore, error) {
	cache, err := appConfig.OpenCache()
	if err != nil {
		return nil, err
	}
	if cache == nil {
		return nil, fmt.Errorf("no cache configured (set --cache-dir or --cache-csv)")
	}
	return cache, nil
}

func runListEntries(cmd *cobra.Command, args []string) error {
	cache, err := openCache()
	if err != nil {
		return err
	}

	infos, err := cache.List()
	if err != nil {
		return fmt.Errorf("failed to list entries: %w", err)
	}

	if len(infos) == 0 {
		fmt.Println("No cached entries found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tKIND\tQUBITS\tSCORE\tTIMESTAMP\tRUN ID")
	fmt.Fprintln(w, "---\t----\t------\t-----\t---------\t------")

	for _, info := range infos {
		runID := info.RunID
		if len(runID) > 12 {
			runID = runID[:12] + "..."
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%.6f\t%s\t%s\n",
			info.Key,
			info.Kind,
			info.Qubits,
			info.Score,
			info.Timestamp.Format("2006-01-02 15:04:05"),
			runID,
		)
	}

	w.Flush()

	fmt.Printf("\nTotal entries: %d (%s)\n", len(infos), cacheSize(cache))
	return nil
}

// cacheSize reports the disk usage of the cache
func cacheSize(cache store.CoefficientStore) string {
	var size int64
	var err error
	switch c := cache.(type) {
	case *store.FSStore:
		size, err = getDirSize(filepath.Join(c.BaseDir(), "coefficients"))
	case *store.CSVStore:
		size, err = getDirSize(c.Path())
	default:
		return "unknown size"
	}
	if err != nil {
		return "unknown size"
	}
	return formatBytes(size)
}

func runShowEntry(cmd *cobra.Command, args []string) error {
	cache, err := openCache()
	if err != nil {
		return err
	}
	entry, err := cache.Load(args[0])
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func runCleanEntries(cmd *cobra.Command, args []string) error {
	if keepLast == 0 && olderThanDays == 0 {
		return fmt.Errorf("must specify either --keep-last or --older-than")
	}

	cache, err := openCache()
	if err != nil {
		return err
	}

	infos, err := cache.List()
	if err != nil {
		return fmt.Errorf("failed to list entries: %w", err)
	}

	if len(infos) == 0 {
		fmt.Println("No entries to clean.")
		return nil
	}

	toDelete := selectEntriesForDeletion(infos, keepLast, olderThanDays)

	if len(toDelete) == 0 {
		fmt.Println("No entries match deletion criteria.")
		return nil
	}

	fmt.Printf("Found %d entr(ies) to delete:\n", len(toDelete))
	for _, info := range toDelete {
		fmt.Printf("  - %s (%s, score %.6f, %s)\n",
			info.Key,
			info.Kind,
			info.Score,
			info.Timestamp.Format("2006-01-02 15:04:05"),
		)
	}

	if !forceClean {
		fmt.Print("\nProceed with deletion? [y/N]: ")
		var response string
		fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	deleted := 0
	failed := 0
	for _, info := range toDelete {
		if err := cache.Delete(info.Key); err != nil {
			slog.Error("Failed to delete entry", "key", info.Key, "error", err)
			failed++
			continue
		}
		slog.Info("Deleted entry", "key", info.Key)
		deleted++

		if appConfig.TraceDir != "" && info.RunID != "" {
			if err := store.DeleteTrace(appConfig.TraceDir, info.RunID); err != nil {
				slog.Warn("Failed to delete trace", "run_id", info.RunID, "error", err)
			}
		}
	}

	fmt.Printf("\nDeleted %d entr(ies), %d failed.\n", deleted, failed)
	return nil
}

// selectEntriesForDeletion applies the retention policy: entries older than
// olderThanDays go, and beyond that only the keepLast newest survive.
func selectEntriesForDeletion(infos []store.EntryInfo, keepLast int, olderThanDays int) []store.EntryInfo {
	var toDelete []store.EntryInfo
	selected := make(map[string]bool)

	if olderThanDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -olderThanDays)
		for _, info := range infos {
			if info.Timestamp.Before(cutoff) {
				toDelete = append(toDelete, info)
				selected[info.Key] = true
			}
		}
	}

	if keepLast > 0 && len(infos) > keepLast {
		sorted := make([]store.EntryInfo, len(infos))
		copy(sorted, infos)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Timestamp.Before(sorted[j].Timestamp)
		})

		for _, info := range sorted[:len(sorted)-keepLast] {
			if !selected[info.Key] {
				toDelete = append(toDelete, info)
				selected[info.Key] = true
			}
		}
	}

	return toDelete
}

// getDirSize calculates the total size of a directory or file
func getDirSize(path string) (int64, error) {
	var size int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size, err
}

// formatBytes formats bytes as human-readable string
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
