// Seed program: creates the "demo" database with three indexes and sample keys.
// Run: go run ./cmd/seed
// Then inspect: go run ./cmd/inspect_idx databases/demo students
package main

import (
	storageengine "KeyTreeDB/storage_engine"
	"KeyTreeDB/types"
	"flag"
	"fmt"
	"log"
	"os"
)

type sampleIndex struct {
	name  string
	kdesc string
	rows  [][]string
}

var samples = []sampleIndex{
	{"students", "string:16", [][]string{{"S001"}, {"S002"}, {"S003"}, {"S004"}, {"S005"}, {"S006"}}},
	{"courses", "string:8,int", [][]string{{"CS", "101"}, {"CS", "102"}, {"MA", "201"}, {"CS", "201"}, {"PH", "110"}}},
	{"grades", "int", nil}, // filled with ints below
}

func main() {
	root := flag.String("root", "databases/demo", "data directory")
	pageSize := flag.Int("pagesize", 256, "page size of the seeded indexes")
	usePebble := flag.Bool("pebble", false, "keep pages in pebble instead of index files")
	fresh := flag.Bool("fresh", true, "remove the data directory first")
	flag.Parse()

	if *fresh {
		if err := os.RemoveAll(*root); err != nil {
			log.Fatalf("remove %s: %v", *root, err)
		}
	}

	opts := []storageengine.Option{storageengine.WithPageSize(*pageSize)}
	if *usePebble {
		opts = append(opts, storageengine.WithPebbleBackend())
	}
	se, err := storageengine.Open(*root, opts...)
	if err != nil {
		log.Fatalf("open: %v", err)
	}
	defer func() {
		if err := se.Close(); err != nil {
			log.Fatalf("close: %v", err)
		}
	}()

	for i := 1; i <= 60; i++ {
		samples[2].rows = append(samples[2].rows, []string{fmt.Sprint((i * 37) % 61)})
	}

	var unique uint32
	for _, s := range samples {
		kdesc, err := storageengine.ParseKeyDesc(s.kdesc)
		if err != nil {
			log.Fatalf("%s: %v", s.name, err)
		}
		if err := se.CreateIndex(s.name, kdesc); err != nil {
			log.Fatalf("create %s: %v", s.name, err)
		}
		for row, parts := range s.rows {
			key, err := se.ParseKey(s.name, parts)
			if err != nil {
				log.Fatalf("%s: %v", s.name, err)
			}
			unique++
			oid := types.ObjectID{FileID: 1, PageNo: uint32(row / 8), SlotNo: uint16(row % 8), Unique: unique}
			if err := se.Insert(s.name, key, oid); err != nil {
				log.Fatalf("insert %v into %s: %v", parts, s.name, err)
			}
		}
		stats, err := se.Stats(s.name)
		if err != nil {
			log.Fatalf("stats %s: %v", s.name, err)
		}
		fmt.Printf("%-10s %s\n", s.name, stats)
	}

	fmt.Println("\nDone. Inspect:")
	fmt.Println("  - Catalog:      ", *root+"/metadata/catalog.json")
	if *usePebble {
		fmt.Println("  - Pages:        ", *root+"/pages")
	} else {
		fmt.Println("  - Index files:  ", *root+"/indexes/*.idx")
	}
	fmt.Println("  - Tree dump:     go run ./cmd/inspect_idx", *root, "<index>")
}
