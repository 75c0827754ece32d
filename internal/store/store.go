// Package store provides a thin bbolt wrapper for boj's local archive.
//
// The store is an explicit archive, not a transparent HTTP cache. Data is
// written only when a command runs with --store and is read back by the
// store, cache and snapshot commands. No TTL, no auto-invalidation.
//
// Buckets:
//
//	responses  decoded API responses keyed by endpoint and parameters
//	series     per-series points accumulated across fetches
//	metadata   latest getMetadata result per DB
//	snapshots  saved command lines
//	_meta      schema version and created_at
package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/explorrrr/boj-client/internal/model"
	"github.com/explorrrr/boj-client/internal/query"
)

// Current schema version. Bump when bucket layout or key format changes.
const schemaVersion = 1

// Bucket name constants.
var (
	bucketResponses = []byte("responses")
	bucketSeries    = []byte("series")
	bucketMetadata  = []byte("metadata")
	bucketSnapshots = []byte("snapshots")
	bucketInternal  = []byte("_meta")
)

// AllBuckets lists every top-level bucket for stats and clear operations.
var AllBuckets = []string{"responses", "series", "metadata", "snapshots"}

// Store wraps a bbolt database.
type Store struct {
	db *bolt.DB
}

// Open opens (or creates) the bbolt database at path.
// Parent directories are created automatically.
// Runs schema migrations on every open.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, errors.Wrap(err, "creating db directory")
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "opening db %s", path)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "migration")
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the filesystem path of the open database.
func (s *Store) Path() string {
	return s.db.Path()
}

// renameFile is swapped in tests to simulate a failed replace.
var renameFile = os.Rename

// Compact rewrites the database into a fresh file to reclaim pages freed
// by deletes, then reopens it in place. It returns the file sizes before
// and after.
func (s *Store) Compact() (before, after int64, err error) {
	path := s.db.Path()
	if fi, err := os.Stat(path); err == nil {
		before = fi.Size()
	}

	tmp := path + ".compact"
	_ = os.Remove(tmp)
	dst, err := bolt.Open(tmp, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return before, 0, errors.Wrap(err, "opening compaction target")
	}
	if err := bolt.Compact(dst, s.db, 0); err != nil {
		dst.Close()
		os.Remove(tmp)
		return before, 0, errors.Wrap(err, "compacting")
	}
	if err := dst.Close(); err != nil {
		os.Remove(tmp)
		return before, 0, errors.Wrap(err, "closing compaction target")
	}
	if err := s.db.Close(); err != nil {
		os.Remove(tmp)
		return before, 0, errors.Wrap(err, "closing db")
	}
	if err := renameFile(tmp, path); err != nil {
		os.Remove(tmp)
		// The original file is untouched; keep the store usable.
		if db, rerr := bolt.Open(path, 0600, &bolt.Options{Timeout: 2 * time.Second}); rerr == nil {
			s.db = db
		} else {
			return before, 0, errors.Wrapf(rerr, "replacing db file: %v; reopening db %s", err, path)
		}
		return before, 0, errors.Wrap(err, "replacing db file")
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return before, 0, errors.Wrapf(err, "reopening db %s", path)
	}
	s.db = db
	if fi, err := os.Stat(path); err == nil {
		after = fi.Size()
	}
	return before, after, nil
}

// ─── Migrations ───────────────────────────────────────────────────────────────

// migrate ensures all buckets exist and schema is current.
func (s *Store) migrate() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketResponses, bucketSeries, bucketMetadata, bucketSnapshots, bucketInternal} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return errors.Wrapf(err, "creating bucket %s", name)
			}
		}

		meta := tx.Bucket(bucketInternal)
		if meta.Get([]byte("schema_version")) == nil {
			if err := meta.Put([]byte("schema_version"), []byte(fmt.Sprintf("%d", schemaVersion))); err != nil {
				return err
			}
			if err := meta.Put([]byte("created_at"), []byte(time.Now().UTC().Format(time.RFC3339))); err != nil {
				return err
			}
		}
		return nil
	})
}

// ─── Responses ────────────────────────────────────────────────────────────────

// ResponseKey builds the canonical key for an archived response:
// <endpoint>|db=<DB>|<param>=<value>... Parameter names are lower-cased and
// sorted; format and startPosition are left out because they do not change
// the decoded content of a fully paged result.
func ResponseKey(endpoint string, params []query.Param) string {
	var parts []string
	for _, p := range params {
		k := strings.ToLower(p.Key)
		if k == "format" || k == "startposition" || k == "db" {
			continue
		}
		parts = append(parts, k+"="+p.Value)
	}
	sort.Strings(parts)

	key := path.Base(endpoint)
	for _, p := range params {
		if strings.EqualFold(p.Key, "db") {
			key += "|db=" + strings.ToUpper(p.Value)
		}
	}
	for _, p := range parts {
		key += "|" + p
	}
	return key
}

// StoredResponse is the on-disk envelope for an archived response.
type StoredResponse struct {
	Key       string          `json:"key"`
	Kind      string          `json:"kind"`
	DB        string          `json:"db"`
	FetchedAt time.Time       `json:"fetched_at"`
	Items     int             `json:"items"`
	Pages     int             `json:"pages,omitempty"`
	Data      json.RawMessage `json:"data"`
}

// PutResponse archives data under key, stamping FetchedAt.
func (s *Store) PutResponse(key, kind, db string, items, pages int, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return errors.Wrap(err, "encoding response")
	}
	env := StoredResponse{
		Key:       key,
		Kind:      kind,
		DB:        db,
		FetchedAt: time.Now().UTC(),
		Items:     items,
		Pages:     pages,
		Data:      raw,
	}
	b, err := json.Marshal(env)
	if err != nil {
		return errors.Wrap(err, "encoding response envelope")
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketResponses).Put([]byte(key), b)
	})
}

// GetResponse retrieves an archived response by key.
// Returns (resp, true, nil) if found, (zero, false, nil) if not found.
func (s *Store) GetResponse(key string) (StoredResponse, bool, error) {
	var env StoredResponse
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketResponses).Get([]byte(key))
		if v == nil {
			return nil
		}
		return json.Unmarshal(v, &env)
	})
	if err != nil {
		return env, false, errors.Wrapf(err, "reading response %s", key)
	}
	return env, env.Key != "", nil
}

// ListResponses returns archived responses whose key starts with prefix,
// in key order. Data is left empty; use GetResponse for the payload.
func (s *Store) ListResponses(prefix string) ([]StoredResponse, error) {
	var out []StoredResponse
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketResponses).Cursor()
		p := []byte(prefix)
		for k, v := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, v = c.Next() {
			var env StoredResponse
			if err := json.Unmarshal(v, &env); err != nil {
				return errors.Wrapf(err, "decoding response %s", k)
			}
			env.Data = nil
			out = append(out, env)
		}
		return nil
	})
	return out, err
}

// DeleteResponse removes an archived response.
func (s *Store) DeleteResponse(key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketResponses).Delete([]byte(key))
	})
}

// ─── Series ───────────────────────────────────────────────────────────────────

// SeriesKey builds the key for an accumulated series: db:<DB>|code:<CODE>.
func SeriesKey(db, code string) string {
	return "db:" + strings.ToUpper(db) + "|code:" + code
}

// StoredSeries is the on-disk envelope for an accumulated series.
type StoredSeries struct {
	DB        string       `json:"db"`
	FetchedAt time.Time    `json:"fetched_at"`
	Series    model.Series `json:"series"`
}

// PutSeries merges series into the archive. Points are keyed by survey
// date; incoming points replace stored ones with the same date. Descriptive
// fields are taken from the incoming series.
func (s *Store) PutSeries(db string, series model.Series) error {
	key := []byte(SeriesKey(db, series.SeriesCode))
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSeries)
		merged := series
		if v := b.Get(key); v != nil {
			var prev StoredSeries
			if err := json.Unmarshal(v, &prev); err != nil {
				return errors.Wrapf(err, "decoding series %s", key)
			}
			merged.Points = mergePoints(prev.Series.Points, series.Points)
		}
		env := StoredSeries{DB: strings.ToUpper(db), FetchedAt: time.Now().UTC(), Series: merged}
		data, err := json.Marshal(env)
		if err != nil {
			return errors.Wrap(err, "encoding series")
		}
		return b.Put(key, data)
	})
}

// PutSeriesBatch merges every series in one transaction per series.
func (s *Store) PutSeriesBatch(db string, series []model.Series) error {
	for _, sr := range series {
		if err := s.PutSeries(db, sr); err != nil {
			return err
		}
	}
	return nil
}

func mergePoints(old, incoming []model.DataPoint) []model.DataPoint {
	byDate := make(map[string]model.DataPoint, len(old)+len(incoming))
	for _, p := range old {
		byDate[p.SurveyDate] = p
	}
	for _, p := range incoming {
		byDate[p.SurveyDate] = p
	}
	out := make([]model.DataPoint, 0, len(byDate))
	for _, p := range byDate {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SurveyDate < out[j].SurveyDate })
	return out
}

// GetSeries retrieves an accumulated series.
func (s *Store) GetSeries(db, code string) (StoredSeries, bool, error) {
	var env StoredSeries
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketSeries).Get([]byte(SeriesKey(db, code)))
		if v == nil {
			return nil
		}
		return json.Unmarshal(v, &env)
	})
	if err != nil {
		return env, false, errors.Wrapf(err, "reading series %s/%s", db, code)
	}
	return env, env.Series.SeriesCode != "", nil
}

// ListSeries returns accumulated series for db in code order.
// Pass db="" to list every DB.
func (s *Store) ListSeries(db string) ([]StoredSeries, error) {
	prefix := []byte("db:")
	if db != "" {
		prefix = []byte("db:" + strings.ToUpper(db) + "|")
	}
	var out []StoredSeries
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketSeries).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var env StoredSeries
			if err := json.Unmarshal(v, &env); err != nil {
				return errors.Wrapf(err, "decoding series %s", k)
			}
			out = append(out, env)
		}
		return nil
	})
	return out, err
}

// ─── Metadata ─────────────────────────────────────────────────────────────────

// StoredMetadata is the on-disk envelope for a DB's metadata.
type StoredMetadata struct {
	DB        string                `json:"db"`
	FetchedAt time.Time             `json:"fetched_at"`
	Entries   []model.MetadataEntry `json:"entries"`
}

// PutMetadata replaces the stored metadata for db.
func (s *Store) PutMetadata(db string, entries []model.MetadataEntry) error {
	db = strings.ToUpper(db)
	data, err := json.Marshal(StoredMetadata{DB: db, FetchedAt: time.Now().UTC(), Entries: entries})
	if err != nil {
		return errors.Wrap(err, "encoding metadata")
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketMetadata).Put([]byte(db), data)
	})
}

// GetMetadata retrieves stored metadata for db.
func (s *Store) GetMetadata(db string) (StoredMetadata, bool, error) {
	var env StoredMetadata
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketMetadata).Get([]byte(strings.ToUpper(db)))
		if v == nil {
			return nil
		}
		return json.Unmarshal(v, &env)
	})
	if err != nil {
		return env, false, errors.Wrapf(err, "reading metadata %s", db)
	}
	return env, env.DB != "", nil
}

// ─── Snapshots ────────────────────────────────────────────────────────────────

// Snapshot represents a saved command for reproducible workflows.
type Snapshot struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	CommandLine string    `json:"command_line"`
	CreatedAt   time.Time `json:"created_at"`
}

// PutSnapshot saves a snapshot. The key is snap:<ID>.
func (s *Store) PutSnapshot(snap Snapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return errors.Wrap(err, "encoding snapshot")
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSnapshots).Put([]byte("snap:"+snap.ID), b)
	})
}

// GetSnapshot retrieves a snapshot by ID.
func (s *Store) GetSnapshot(id string) (Snapshot, bool, error) {
	var snap Snapshot
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketSnapshots).Get([]byte("snap:" + id))
		if v == nil {
			return nil
		}
		return json.Unmarshal(v, &snap)
	})
	if err != nil {
		return snap, false, errors.Wrapf(err, "reading snapshot %s", id)
	}
	return snap, snap.ID != "", nil
}

// ListSnapshots returns all snapshots ordered by creation time.
func (s *Store) ListSnapshots() ([]Snapshot, error) {
	var snaps []Snapshot
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSnapshots).ForEach(func(k, v []byte) error {
			var snap Snapshot
			if err := json.Unmarshal(v, &snap); err != nil {
				return err
			}
			snaps = append(snaps, snap)
			return nil
		})
	})
	sort.SliceStable(snaps, func(i, j int) bool { return snaps[i].CreatedAt.Before(snaps[j].CreatedAt) })
	return snaps, err
}

// FindSnapshot resolves ref as a snapshot ID first, then as a name. When
// several snapshots share a name the most recently created one wins.
func (s *Store) FindSnapshot(ref string) (Snapshot, bool, error) {
	if snap, ok, err := s.GetSnapshot(ref); err != nil || ok {
		return snap, ok, err
	}
	snaps, err := s.ListSnapshots()
	if err != nil {
		return Snapshot{}, false, errors.Wrap(err, "listing snapshots")
	}
	for i := len(snaps) - 1; i >= 0; i-- {
		if snaps[i].Name == ref {
			return snaps[i], true, nil
		}
	}
	return Snapshot{}, false, nil
}

// DeleteSnapshot removes a snapshot by ID.
func (s *Store) DeleteSnapshot(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSnapshots).Delete([]byte("snap:" + id))
	})
}

// ─── Stats & Maintenance ──────────────────────────────────────────────────────

// BucketStats holds row count and byte size for a single bucket.
type BucketStats struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
	Bytes int64  `json:"bytes"`
}

// Stats returns row counts and approximate sizes for all buckets, in
// AllBuckets order.
func (s *Store) Stats() ([]BucketStats, error) {
	var stats []BucketStats
	err := s.db.View(func(tx *bolt.Tx) error {
		for _, name := range AllBuckets {
			b := tx.Bucket([]byte(name))
			if b == nil {
				continue
			}
			var count int
			var size int64
			b.ForEach(func(k, v []byte) error {
				count++
				size += int64(len(k) + len(v))
				return nil
			})
			stats = append(stats, BucketStats{Name: name, Count: count, Bytes: size})
		}
		return nil
	})
	return stats, err
}

// ClearBucket deletes all entries in the named bucket.
func (s *Store) ClearBucket(name string) error {
	known := false
	for _, b := range AllBuckets {
		if b == name {
			known = true
		}
	}
	if !known {
		return errors.Errorf("unknown bucket %q (valid: %s)", name, strings.Join(AllBuckets, ", "))
	}
	bname := []byte(name)
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bname); err != nil {
			return errors.Wrapf(err, "clearing bucket %s", name)
		}
		_, err := tx.CreateBucket(bname)
		return err
	})
}

// DBUsage counts archived entries belonging to a single DB.
type DBUsage struct {
	DB        string `json:"db"`
	Responses int    `json:"responses"`
	Series    int    `json:"series"`
	Metadata  bool   `json:"metadata"`
}

// UsageByDB groups archived responses, series and metadata by DB, in DB
// order. Snapshots are not tied to a DB and are left out.
func (s *Store) UsageByDB() ([]DBUsage, error) {
	byDB := map[string]*DBUsage{}
	get := func(db string) *DBUsage {
		u, ok := byDB[db]
		if !ok {
			u = &DBUsage{DB: db}
			byDB[db] = u
		}
		return u
	}
	err := s.db.View(func(tx *bolt.Tx) error {
		err := tx.Bucket(bucketResponses).ForEach(func(k, v []byte) error {
			var env StoredResponse
			if err := json.Unmarshal(v, &env); err != nil {
				return errors.Wrapf(err, "decoding response %s", k)
			}
			get(strings.ToUpper(env.DB)).Responses++
			return nil
		})
		if err != nil {
			return err
		}
		err = tx.Bucket(bucketSeries).ForEach(func(k, _ []byte) error {
			get(seriesKeyDB(k)).Series++
			return nil
		})
		if err != nil {
			return err
		}
		return tx.Bucket(bucketMetadata).ForEach(func(k, _ []byte) error {
			get(string(k)).Metadata = true
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	out := make([]DBUsage, 0, len(byDB))
	for _, u := range byDB {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DB < out[j].DB })
	return out, nil
}

// ClearDB removes every response, series and metadata entry archived for
// db and returns how many keys were deleted.
func (s *Store) ClearDB(db string) (int, error) {
	db = strings.ToUpper(strings.TrimSpace(db))
	if db == "" {
		return 0, errors.New("db must not be empty")
	}
	var n int
	err := s.db.Update(func(tx *bolt.Tx) error {
		var doomed [][]byte
		b := tx.Bucket(bucketResponses)
		err := b.ForEach(func(k, v []byte) error {
			var env StoredResponse
			if err := json.Unmarshal(v, &env); err != nil {
				return errors.Wrapf(err, "decoding response %s", k)
			}
			if strings.EqualFold(env.DB, db) {
				doomed = append(doomed, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range doomed {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		n += len(doomed)

		sb := tx.Bucket(bucketSeries)
		prefix := []byte("db:" + db + "|")
		doomed = doomed[:0]
		c := sb.Cursor()
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			doomed = append(doomed, append([]byte(nil), k...))
		}
		for _, k := range doomed {
			if err := sb.Delete(k); err != nil {
				return err
			}
		}
		n += len(doomed)

		mb := tx.Bucket(bucketMetadata)
		if mb.Get([]byte(db)) != nil {
			n++
			return mb.Delete([]byte(db))
		}
		return nil
	})
	if err != nil {
		return 0, errors.Wrapf(err, "clearing db %s", db)
	}
	return n, nil
}

// seriesKeyDB extracts <DB> from a db:<DB>|code:<CODE> key.
func seriesKeyDB(k []byte) string {
	rest := strings.TrimPrefix(string(k), "db:")
	if i := strings.IndexByte(rest, '|'); i >= 0 {
		return rest[:i]
	}
	return rest
}

// ClearAll deletes all entries from every user-facing bucket.
func (s *Store) ClearAll() error {
	for _, name := range AllBuckets {
		if err := s.ClearBucket(name); err != nil {
			return err
		}
	}
	return nil
}
