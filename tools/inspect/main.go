package main

import (
	"chatspace/domain/event"
	"chatspace/repositories"
	"context"
	"encoding/json"
	"flag"
	"log"
	"log/slog"
	"os"
	"sort"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
)

func main() {
	dbPath := flag.String("db", "./data/chatspace", "Path to badger DB")
	namespace := flag.String("namespace", "chatspace-v1", "Application namespace")
	collection := flag.String("collection", string(event.Chats), "Collection to dump")
	flag.Parse()

	// Read-only so a running client keeps its lock
	db, err := badger.Open(badger.DefaultOptions(*dbPath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	store := repositories.NewBadgerStore(db, logs.GetLoggerFromLevel(slog.LevelWarn), *namespace)
	snapshot, err := store.Dump(context.Background(), event.Collection(*collection))
	if err != nil {
		log.Fatal("Error while reading collection: ", err)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Field", "Value"})
	table.SetAutoWrapText(false)
	table.SetAutoMergeCells(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)

	for _, record := range snapshot.Records {
		fields := make([]string, 0, len(record.Document))
		for name := range record.Document {
			fields = append(fields, name)
		}
		sort.Strings(fields)
		for _, name := range fields {
			value, _ := json.Marshal(record.Document[name])
			table.Append([]string{record.Key, name, string(value)})
		}
	}
	table.Render()
	log.Printf("%d record(s) in %s:%s", len(snapshot.Records), *namespace, *collection)
}
