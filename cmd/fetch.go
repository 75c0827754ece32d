package cmd

import (
	"fmt"

	"github.com/explorrrr/boj-client/internal/app"
	"github.com/explorrrr/boj-client/internal/model"
	"github.com/explorrrr/boj-client/internal/query"
	"github.com/explorrrr/boj-client/internal/store"
	"github.com/spf13/cobra"
)

// fetchFlags are the flags shared by the code, layer and metadata commands.
type fetchFlags struct {
	Start         string
	End           string
	StartPosition uint32
	AllPages      bool
	MaxPages      int
	Wire          string
	Store         bool
	Strict        bool
}

// addFetchFlags registers the shared flags; paging adds the date range and
// paging flags used by the data endpoints.
func addFetchFlags(c *cobra.Command, f *fetchFlags, paging bool) {
	fl := c.Flags()
	fl.StringVar(&f.Wire, "wire", "json", "format requested from the API: json|csv")
	fl.BoolVar(&f.Store, "store", false, "archive the decoded response in the local database")
	fl.BoolVar(&f.Strict, "strict", false, "reject DB codes missing from the built-in catalog before calling the API")
	if !paging {
		return
	}
	fl.StringVar(&f.Start, "start", "", "start period (YYYY, YYYYHH, YYYYQQ or YYYYMM)")
	fl.StringVar(&f.End, "end", "", "end period (same form as --start)")
	fl.Uint32Var(&f.StartPosition, "start-position", 0, "series position to resume from (NEXTPOSITION of a previous page)")
	fl.BoolVar(&f.AllPages, "all-pages", false, "follow NEXTPOSITION until every page is fetched")
	fl.IntVar(&f.MaxPages, "max-pages", 0, "stop --all-pages after this many pages (0 = no limit)")
}

// wireFormat parses --wire.
func (f fetchFlags) wireFormat() (query.Format, error) {
	return query.ParseFormat(f.Wire)
}

// nextPositionWarning reports a truncated single-page fetch.
func nextPositionWarning(next *uint32, allPages bool) []string {
	if next == nil || allPages {
		return nil
	}
	return []string{fmt.Sprintf("more series available: rerun with --start-position %d or --all-pages", *next)}
}

// noDataWarning reports the "succeeded but no data" message.
func noDataWarning(meta model.ResponseMeta) []string {
	if meta.MessageID == "M181030I" {
		return []string{fmt.Sprintf("%s: %s", meta.MessageID, meta.Message)}
	}
	return nil
}

// archiveSeries writes a code or layer response to the local database:
// the whole envelope under its request key and each series merged into
// the series bucket.
func archiveSeries(deps *app.Deps, endpoint string, params []query.Param, kind, db string, series []model.Series, pages int, data any) error {
	if err := deps.RequireStore(); err != nil {
		return err
	}
	key := store.ResponseKey(endpoint, params)
	if err := deps.Store.PutResponse(key, kind, db, model.PointCount(series), pages, data); err != nil {
		return fmt.Errorf("storing response: %w", err)
	}
	if err := deps.Store.PutSeriesBatch(db, series); err != nil {
		return fmt.Errorf("storing series: %w", err)
	}
	return nil
}

// archiveMetadata writes a metadata response to the local database.
func archiveMetadata(deps *app.Deps, q query.MetadataQuery, resp *model.MetadataResponse) error {
	if err := deps.RequireStore(); err != nil {
		return err
	}
	key := store.ResponseKey(q.Endpoint(), q.Params())
	if err := deps.Store.PutResponse(key, model.KindMetadata, q.DB(), len(resp.Entries), 1, resp); err != nil {
		return fmt.Errorf("storing response: %w", err)
	}
	if err := deps.Store.PutMetadata(q.DB(), resp.Entries); err != nil {
		return fmt.Errorf("storing metadata: %w", err)
	}
	return nil
}
