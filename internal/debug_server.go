package internal

import (
	"chatspace/domain/event"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/samber/lo"
)

//go:embed inspect.html
var templatesFS embed.FS

// Dumper reads a whole collection once.
type Dumper interface {
	Dump(ctx context.Context, collection event.Collection) (event.Snapshot, error)
}

type InspectRow struct {
	Key    string
	Fields string
}

type PageData struct {
	Collection  string
	Collections []event.Collection
	Items       []InspectRow
	Error       string
}

// InspectHandler renders one collection as an HTML table, chosen by ?collection=.
func InspectHandler(dumper Dumper) http.Handler {
	tmpl := template.Must(template.ParseFS(templatesFS, "inspect.html"))
	collections := append(slices.Clone(event.Streamed), event.Profiles)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		collection := event.Collection(r.URL.Query().Get("collection"))
		if !lo.Contains(collections, collection) {
			collection = event.Chats
		}
		data := PageData{Collection: string(collection), Collections: collections}

		snapshot, err := dumper.Dump(r.Context(), collection)
		if err != nil {
			data.Error = err.Error()
		}
		data.Items = lo.Map(snapshot.Records, func(record event.Record, _ int) InspectRow {
			fields, _ := json.Marshal(record.Document)
			return InspectRow{Key: record.Key, Fields: string(fields)}
		})

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = tmpl.Execute(w, data)
	})
}

// StartDebugServer serves the inspector on localhost until ctx is done.
func StartDebugServer(ctx context.Context, log *slog.Logger, port int, dumper Dumper) {
	mux := http.NewServeMux()
	mux.Handle("/inspect", InspectHandler(dumper))
	server := &http.Server{
		Addr:              fmt.Sprintf("localhost:%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("Debug inspector available", "url", fmt.Sprintf("http://%s/inspect", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn("Debug inspector stopped", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		_ = server.Close()
	}()
}
