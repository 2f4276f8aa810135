package platform

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aretw0/odm/pkg/adapters/fs"
	"github.com/aretw0/odm/pkg/adapters/memory"
	"github.com/aretw0/odm/pkg/adapters/mongo"
	"github.com/aretw0/odm/pkg/core"
)

// Open returns the collection named by uri. The scheme selects the adapter:
//
//	mongodb://, mongodb+srv://  a MongoDB server (database and collection required)
//	file://<dir>                a directory of BSON files
//	memory://                   an empty in-process collection
//
// The returned function releases the underlying resources.
func Open(ctx context.Context, uri, database, collection string, logger *slog.Logger) (core.Collection, func(context.Context) error, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	noop := func(context.Context) error { return nil }

	switch {
	case strings.HasPrefix(uri, "mongodb://"), strings.HasPrefix(uri, "mongodb+srv://"):
		if database == "" || collection == "" {
			return nil, nil, fmt.Errorf("database and collection are required for %s", uri)
		}
		coll, closeFn, err := mongo.Connect(ctx, uri, database, collection, logger)
		if err != nil {
			return nil, nil, err
		}
		return coll, closeFn, nil

	case strings.HasPrefix(uri, "file://"):
		coll, err := fs.NewCollection(fs.Config{Path: strings.TrimPrefix(uri, "file://"), Logger: logger})
		if err != nil {
			return nil, nil, err
		}
		return coll, noop, nil

	case strings.HasPrefix(uri, "memory://"):
		return memory.NewCollection(firstNonEmpty(collection, strings.TrimPrefix(uri, "memory://"))), noop, nil
	}

	return nil, nil, fmt.Errorf("unknown adapter for %q", uri)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
