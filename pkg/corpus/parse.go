package corpus

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
)

// Default sources, relative to the working directory.
var DefaultSources = []string{"medium_articles_1.csv", "medium_articles_2.csv"}

// ParseSources turns configured locations into sources:
//
//	path/to/file.csv, file:///abs/file.csv   local CSV file
//	s3://bucket/key.csv                     CSV object in S3-compatible storage
//	postgres://...?table=articles           PostgreSQL table (also postgresql://)
//	sqlite://path/to.db?table=articles      SQLite table
//
// The storage client is only created when an s3:// location is present.
func ParseSources(locations []string, storage StorageConfig) ([]Source, error) {
	var (
		client  *minio.Client
		sources = make([]Source, 0, len(locations))
	)

	for _, loc := range locations {
		loc = strings.TrimSpace(loc)
		if loc == "" {
			continue
		}

		switch {
		case strings.HasPrefix(loc, "s3://"):
			bucket, key, err := splitObject(loc)
			if err != nil {
				return nil, err
			}
			if client == nil {
				client, err = NewMinIOClient(storage)
				if err != nil {
					return nil, err
				}
			}
			sources = append(sources, NewObject(client, bucket, key))

		case strings.HasPrefix(loc, "postgres://"), strings.HasPrefix(loc, "postgresql://"):
			conn, table, err := splitTable(loc)
			if err != nil {
				return nil, err
			}
			sources = append(sources, NewPostgresTable(conn, table))

		case strings.HasPrefix(loc, "sqlite://"):
			path, table, err := splitTable(loc)
			if err != nil {
				return nil, err
			}
			sources = append(sources, NewSQLiteTable(strings.TrimPrefix(path, "sqlite://"), table))

		case strings.HasPrefix(loc, "file://"):
			sources = append(sources, NewCSVFile(strings.TrimPrefix(loc, "file://")))

		default:
			sources = append(sources, NewCSVFile(loc))
		}
	}

	return sources, nil
}

func splitObject(loc string) (string, string, error) {
	rest := strings.TrimPrefix(loc, "s3://")
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("invalid object location %q: want s3://bucket/key", loc)
	}
	return bucket, key, nil
}

// splitTable removes the table query parameter from loc, returning the
// remaining location and the table name.
func splitTable(loc string) (string, string, error) {
	base, rawQuery, _ := strings.Cut(loc, "?")

	query, err := url.ParseQuery(rawQuery)
	if err != nil {
		return "", "", fmt.Errorf("invalid query in corpus source: %w", err)
	}

	table := query.Get("table")
	if table == "" {
		return "", "", errors.New("corpus source " + redact(base) + " needs a ?table= parameter")
	}
	query.Del("table")

	if encoded := query.Encode(); encoded != "" {
		base += "?" + encoded
	}
	return base, table, nil
}

// redact strips credentials from a URL-like location for error messages.
func redact(loc string) string {
	u, err := url.Parse(loc)
	if err != nil || u.User == nil {
		return loc
	}
	return u.Redacted()
}
