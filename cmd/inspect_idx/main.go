// Inspect a B+ tree index of a database directory.
// Usage: go run ./cmd/inspect_idx <db-dir> [index]
// Example: go run ./cmd/inspect_idx databases/demo students
// Without an index name every index in the catalog is dumped.
package main

import (
	storageengine "KeyTreeDB/storage_engine"
	"fmt"
	"os"
	"path/filepath"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <db-dir> [index]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Example: %s databases/demo students\n", os.Args[0])
		os.Exit(1)
	}
	if err := inspect(os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func inspect(dbDir string, names []string) error {
	var opts []storageengine.Option
	if st, err := os.Stat(filepath.Join(dbDir, "pages")); err == nil && st.IsDir() {
		opts = append(opts, storageengine.WithPebbleBackend())
	}
	se, err := storageengine.Open(dbDir, opts...)
	if err != nil {
		return err
	}
	defer se.Close()

	if len(names) == 0 {
		for _, e := range se.Indexes() {
			names = append(names, e.Name)
		}
	}
	for _, name := range names {
		stats, err := se.Stats(name)
		if err != nil {
			return err
		}
		fmt.Printf("=== %s: %s\n", name, stats)
		if err := se.Dump(name, os.Stdout); err != nil {
			return err
		}
		fmt.Println()
	}
	fmt.Println("buffer pool:", se.PoolStats())
	return nil
}
