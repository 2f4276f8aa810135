package main

import (
	"bufio"
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/aretw0/odm/pkg/bsonutil"
)

var (
	normalizeSelect []string
	normalizeJSON   bool
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize [file.bson]",
	Short: "Print the documents of a BSON file as plain values",
	Long: `Read concatenated BSON documents (as written by mongodump) and print them
normalized. Use --select with glob patterns over key paths ("name", "**/*_at",
"items/*/sku") to keep only part of each document. Reads stdin when the file
is "-".`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		in := os.Stdin
		if args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				fatal("Error opening file", err)
			}
			defer f.Close()
			in = f
		}

		patterns := normalizeSelect
		if len(patterns) == 0 {
			patterns = cfg.Select
		}

		docs, err := readDocuments(in, patterns)
		if err != nil {
			fatal("Error reading documents", err)
		}
		slog.Debug("normalized documents", "count", len(docs))

		if err := writeDocs(os.Stdout, docs, normalizeJSON || cfg.Output == "json"); err != nil {
			fatal("Error writing output", err)
		}
	},
}

func readDocuments(r io.Reader, patterns []string) ([]any, error) {
	br := bufio.NewReader(r)
	var docs []any
	for {
		raw, err := bson.NewFromIOReader(br)
		if errors.Is(err, io.EOF) {
			return docs, nil
		}
		if err != nil {
			return nil, err
		}

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
}

func init() {
	rootCmd.AddCommand(normalizeCmd)
	normalizeCmd.Flags().StringSliceVar(&normalizeSelect, "select", nil, "Keep only key paths matching these glob patterns")
	normalizeCmd.Flags().BoolVar(&normalizeJSON, "json", false, "Output in JSON format")
}
