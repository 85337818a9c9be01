package main

import (
	storageengine "KeyTreeDB/storage_engine"
	bplus "KeyTreeDB/storage_engine/access/indexfile_manager/bplustree"
	"KeyTreeDB/types"
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"go.uber.org/zap"
)

const help = `commands:
  create <index> <keydesc>                      e.g. create users string:32,int
  insert <index> <key parts...>
  get <index> <key parts...>
  scan <index> <startOp> <key|-> <stopOp> <key|->  e.g. scan users ge alice,1 le bob,9
  dump <index>
  stats [index]
  indexes
  exit`

func main() {
	root := flag.String("root", "databases/demo", "data directory")
	pageSize := flag.Int("pagesize", 4096, "page size of new indexes")
	poolSize := flag.Int("pool", 100, "buffer pool capacity in pages")
	usePebble := flag.Bool("pebble", false, "keep pages in pebble instead of index files")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	logger := zap.NewNop()
	if *verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			log.Fatal(err)
		}
		logger = l
	}
	defer logger.Sync()

	opts := []storageengine.Option{
		storageengine.WithPageSize(*pageSize),
		storageengine.WithBufferPoolSize(*poolSize),
		storageengine.WithLogger(logger),
	}
	if *usePebble {
		opts = append(opts, storageengine.WithPebbleBackend())
	}
	se, err := storageengine.Open(*root, opts...)
	if err != nil {
		log.Fatal(err)
	}
	defer func() {
		if err := se.Close(); err != nil {
			log.Printf("close: %v", err)
		}
	}()

	r := &repl{se: se}
	scanner := bufio.NewScanner(os.Stdin)
	// REPL
	for {
		fmt.Print("db> ")

		if !scanner.Scan() { // Ctrl+D pressed
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if strings.EqualFold(line, "exit") {
			break
		}
		if line == "" {
			continue
		}
		if err := r.exec(strings.Fields(line)); err != nil {
			fmt.Printf("Error: %v\n", err)
		}
	}
}

type repl struct {
	se      *storageengine.StorageEngine
	nextOID uint32
}

// splitKey turns "alice,1" into its key parts.
func splitKey(s string) []string {
	return strings.Split(s, ",")
}

func (r *repl) exec(args []string) error {
	cmd, args := strings.ToLower(args[0]), args[1:]
	need := func(n int) error {
		if len(args) < n {
			return fmt.Errorf("%s: expected %d arguments\n%s", cmd, n, help)
		}
		return nil
	}

	switch cmd {
	case "help":
		fmt.Println(help)

	case "create":
		if err := need(2); err != nil {
			return err
		}
		kdesc, err := storageengine.ParseKeyDesc(args[1])
		if err != nil {
			return err
		}
		if err := r.se.CreateIndex(args[0], kdesc); err != nil {
			return err
		}
		fmt.Printf("Index %s created\n", args[0])

	case "insert":
		if err := need(2); err != nil {
			return err
		}
		key, err := r.se.ParseKey(args[0], args[1:])
		if err != nil {
			return err
		}
		r.nextOID++
		oid := types.ObjectID{FileID: 1, PageNo: r.nextOID / 64, SlotNo: uint16(r.nextOID % 64), Unique: r.nextOID}
		if err := r.se.Insert(args[0], key, oid); err != nil {
			return err
		}
		fmt.Printf("Inserted -> %s\n", oid)

	case "get":
		if err := need(2); err != nil {
			return err
		}
		key, err := r.se.ParseKey(args[0], args[1:])
		if err != nil {
			return err
		}
		oid, ok, err := r.se.Search(args[0], key)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("not found")
			return nil
		}
		fmt.Println(oid)

	case "scan":
		if err := need(5); err != nil {
			return err
		}
		return r.scan(args[0], args[1], args[2], args[3], args[4])

	case "dump":
		if err := need(1); err != nil {
			return err
		}
		return r.se.Dump(args[0], os.Stdout)

	case "stats":
		if len(args) > 0 {
			stats, err := r.se.Stats(args[0])
			if err != nil {
				return err
			}
			fmt.Println(stats)
		}
		fmt.Println("buffer pool:", r.se.PoolStats())

	case "indexes":
		for _, e := range r.se.Indexes() {
			fmt.Printf("%-20s ref=%d file=%s root=%d pagesize=%d\n", e.Name, e.Ref, e.File, e.RootPageID, e.PageSize)
		}

	default:
		return fmt.Errorf("unknown command %q\n%s", cmd, help)
	}
	return nil
}

func (r *repl) scan(index, startOpArg, startArg, stopOpArg, stopArg string) error {
	startOp, err := storageengine.ParseCompOp(startOpArg)
	if err != nil {
		return err
	}
	stopOp, err := storageengine.ParseCompOp(stopOpArg)
	if err != nil {
		return err
	}
	var startKey, stopKey []byte
	if startArg != "-" {
		if startKey, err = r.se.ParseKey(index, splitKey(startArg)); err != nil {
			return err
		}
	}
	if stopArg != "-" {
		if stopKey, err = r.se.ParseKey(index, splitKey(stopArg)); err != nil {
			return err
		}
	}

	tree, err := r.se.Index(index)
	if err != nil {
		return err
	}
	it, err := r.se.Scan(index, startKey, startOp, stopKey, stopOp)
	if err != nil {
		return err
	}
	defer it.Close()

	n := 0
	for it.Next() {
		fmt.Printf("%s -> %s\n", bplus.FormatKey(tree.KeyDesc(), it.Key()), it.Value())
		n++
	}
	if err := it.Err(); err != nil {
		return err
	}
	fmt.Printf("(%d rows)\n", n)
	return nil
}
