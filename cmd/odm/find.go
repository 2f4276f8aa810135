package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/aretw0/odm/internal/platform"
	"github.com/aretw0/odm/pkg/bsonutil"
	"github.com/aretw0/odm/pkg/core"
)

var (
	findURI        string
	findDatabase   string
	findCollection string
	findFilter     string
	findJSON       bool
	findTimeout    time.Duration
)

var findCmd = &cobra.Command{
	Use:   "find",
	Short: "Print the documents of a collection as plain values",
	Long: `Query a collection and print the matching documents normalized.
The uri selects the store: mongodb://host (with --db and --collection) or
file://dir for a directory of BSON files. The filter is MongoDB Extended
JSON, e.g. '{"status": "active"}'. Connection settings default to the mongo
section of odm.yaml.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		uri := firstNonEmpty(findURI, cfg.Mongo.URI, os.Getenv("MONGODB_URI"))
		database := firstNonEmpty(findDatabase, cfg.Mongo.Database)
		collection := firstNonEmpty(findCollection, cfg.Mongo.Collection)
		if uri == "" {
			fatal("Error", errors.New("a collection uri is required (--uri, odm.yaml or MONGODB_URI)"))
		}

		filter := bson.D{}
		if findFilter != "" {
			if err := bson.UnmarshalExtJSON([]byte(findFilter), false, &filter); err != nil {
				fatal("Error parsing filter", err)
			}
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), findTimeout)
		defer cancel()

		coll, release, err := platform.Open(ctx, uri, database, collection, slog.Default())
		if err != nil {
			fatal("Error opening collection", err)
		}
		defer func() { _ = release(context.Background()) }()

		docs, err := findDocuments(ctx, coll, filter, cfg.Select)
		if err != nil {
			fatal("Error reading documents", err)
		}

		if err := writeDocs(os.Stdout, docs, findJSON || cfg.Output == "json"); err != nil {
			fatal("Error writing output", err)
		}
	},
}

func findDocuments(ctx context.Context, coll core.Collection, filter bson.D, patterns []string) ([]any, error) {
	raws, err := coll.Find(ctx, filter)
	if err != nil {
		return nil, err
	}

	docs := make([]any, 0, len(raws))
	for _, raw := range raws {
		doc, err := bsonutil.RawDocument(raw)
		if err != nil {
			return nil, err
		}
		if doc, err = bsonutil.Project(doc, patterns...); err != nil {
			return nil, err
		}
		n, err := bsonutil.Normalize(doc)
		if err != nil {
			return nil, err
		}
		docs = append(docs, n)
	}
	return docs, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func init() {
	rootCmd.AddCommand(findCmd)
	findCmd.Flags().StringVar(&findURI, "uri", "", "Collection uri: mongodb://... or file://dir (defaults to MONGODB_URI)")
	findCmd.Flags().StringVar(&findDatabase, "db", "", "Database name")
	findCmd.Flags().StringVar(&findCollection, "collection", "", "Collection name")
	findCmd.Flags().StringVar(&findFilter, "filter", "", "Query filter in Extended JSON")
	findCmd.Flags().BoolVar(&findJSON, "json", false, "Output in JSON format")
	findCmd.Flags().DurationVar(&findTimeout, "timeout", 30*time.Second, "Overall timeout")
}
