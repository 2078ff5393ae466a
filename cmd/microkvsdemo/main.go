// Command microkvsdemo is a host application wiring two memory-mapped
// files into a microkvs store, for manual exercising and as a reference
// for integrating the store with a real flash driver.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/azonenberg/microkvs/internal/kvs"
	"github.com/azonenberg/microkvs/internal/kvslog"
	"github.com/azonenberg/microkvs/internal/mmapbank"
)

func main() {
	var (
		bankAPath  = pflag.String("bank-a", "./bank-a.img", "path to the left bank's backing file")
		bankBPath  = pflag.String("bank-b", "./bank-b.img", "path to the right bank's backing file")
		bankSize   = pflag.Uint32("bank-size", 32768, "size in bytes of each bank")
		writeBlock = pflag.Uint32("write-block", 1, "minimum aligned write unit")
		logSize    = pflag.Uint32("log-size", 128, "number of log slots allocated when a bank is formatted")
	)
	pflag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to build logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	left, err := mmapbank.Open(*bankAPath, *bankSize, *writeBlock, 0)
	if err != nil {
		sugar.Fatalw("failed to open left bank", "error", err)
	}
	defer left.Close()

	right, err := mmapbank.Open(*bankBPath, *bankSize, *writeBlock, *bankSize)
	if err != nil {
		sugar.Fatalw("failed to open right bank", "error", err)
	}
	defer right.Close()

	store, err := kvs.NewStore(left, right, *logSize, kvs.WithLogger(kvslog.NewZap(logger)))
	if err != nil {
		sugar.Fatalw("failed to mount store", "error", err)
	}

	args := pflag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	switch args[0] {
	case "status":
		runStatus(store)
	case "get":
		if len(args) != 2 {
			printUsage()
			os.Exit(1)
		}
		runGet(store, args[1])
	case "set":
		if len(args) != 3 {
			printUsage()
			os.Exit(1)
		}
		runSet(store, args[1], args[2])
	case "enum":
		runEnum(store)
	case "compact":
		if err := store.Compact(); err != nil {
			sugar.Fatalw("compaction failed", "error", err)
		}
	case "wipe-inactive":
		if err := store.WipeInactive(); err != nil {
			sugar.Fatalw("wipe-inactive failed", "error", err)
		}
	case "wipe-all":
		if err := store.WipeAll(); err != nil {
			sugar.Fatalw("wipe-all failed", "error", err)
		}
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: microkvsdemo [flags] status|get <key>|set <key> <value>|enum|compact|wipe-inactive|wipe-all")
}

func runStatus(store *kvs.Store) {
	fmt.Printf("active bank:       %s\n", activeName(store))
	fmt.Printf("header version:    %d\n", store.BankHeaderVersion())
	fmt.Printf("free log entries:  %d / %d\n", store.FreeLogEntries(), store.LogCapacity())
	fmt.Printf("free data space:   %d / %d\n", store.FreeDataSpace(), store.DataCapacity())
}

func activeName(store *kvs.Store) string {
	if store.IsLeftBankActive() {
		return "left"
	}
	return "right"
}

func runGet(store *kvs.Store, key string) {
	slot, ok := store.FindObject(key)
	if !ok {
		fmt.Fprintln(os.Stderr, "not found")
		os.Exit(1)
	}
	buf := make([]byte, slot.Len)
	store.ReadObject(key, buf)
	fmt.Println(string(buf))
}

func runSet(store *kvs.Store, key, value string) {
	if !store.StoreObject(key, []byte(value)) {
		fmt.Fprintln(os.Stderr, "store failed")
		os.Exit(1)
	}
}

func runEnum(store *kvs.Store) {
	entries := store.EnumObjects(256)
	for _, e := range entries {
		fmt.Printf("%-20s size=%d revs=%d\n", trimKey(e.Key), e.Size, e.Revs)
	}
}

func trimKey(key []byte) string {
	end := len(key)
	for end > 0 && key[end-1] == 0 {
		end--
	}
	return string(key[:end])
}
