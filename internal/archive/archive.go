// Package archive persists finished runs to a pebble store: the rendered
// report under one key and the round series under a per-round keyspace, so
// past runs can be compared without re-running them.
package archive

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"

	"github.com/aldermoor/swim/internal/stats"
)

type Archive struct {
	db *pebble.DB
}

// Open opens (or creates) an archive at dirname.
func Open(dirname string) (*Archive, error) {
	db, err := pebble.Open(dirname, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &Archive{db: db}, nil
}

// OpenMem opens an archive backed by an in-memory filesystem.
func OpenMem() (*Archive, error) {
	db, err := pebble.Open("", &pebble.Options{FS: vfs.NewMem()})
	if err != nil {
		return nil, err
	}
	return &Archive{db: db}, nil
}

func (a *Archive) Close() error { return a.db.Close() }

// Put stores the report for the run named name, replacing any previous
// run under the same name.
func (a *Archive) Put(name string, r *stats.Report) error {
	var buf bytes.Buffer
	if _, err := r.WriteTo(&buf); err != nil {
		return err
	}
	if err := a.db.Set(reportKey(name), buf.Bytes(), pebble.Sync); err != nil {
		return err
	}
	for _, rs := range r.Rounds {
		val := fmt.Sprintf("%d|%d|%d|%d|%d|%d|%d",
			rs.Round, rs.Gossip, rs.Effective, rs.Suspect, rs.Dead, rs.PairSuspect, rs.PairDead)
		if err := a.db.Set(roundKey(name, rs.Round), []byte(val), pebble.Sync); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the rendered report stored under name.
func (a *Archive) Get(name string) ([]byte, error) {
	val, closer, err := a.db.Get(reportKey(name))
	if err != nil {
		return nil, err
	}
	out := append([]byte(nil), val...)
	return out, closer.Close()
}

// Rounds reloads the round series stored under name in round order.
func (a *Archive) Rounds(name string) ([]stats.RoundStats, error) {
	prefix := []byte(fmt.Sprintf("run/%s/round/", name))
	upper := append(append([]byte(nil), prefix...), 0xff)
	iter := a.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: upper})
	defer iter.Close()
	var out []stats.RoundStats
	for iter.First(); iter.Valid(); iter.Next() {
		rs, err := parseRound(iter.Value())
		if err != nil {
			return nil, err
		}
		out = append(out, rs)
	}
	return out, iter.Error()
}

func parseRound(val []byte) (stats.RoundStats, error) {
	fields := strings.Split(string(val), "|")
	if len(fields) != 7 {
		return stats.RoundStats{}, errors.Newf("archive: malformed round record %q", val)
	}
	nums := make([]int, len(fields))
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return stats.RoundStats{}, errors.Wrapf(err, "archive: malformed round record %q", val)
		}
		nums[i] = n
	}
	return stats.RoundStats{
		Round:       nums[0],
		Gossip:      nums[1],
		Effective:   nums[2],
		Suspect:     nums[3],
		Dead:        nums[4],
		PairSuspect: nums[5],
		PairDead:    nums[6],
	}, nil
}

func reportKey(name string) []byte { return []byte("run/" + name) }

func roundKey(name string, round int) []byte {
	return []byte(fmt.Sprintf("run/%s/round/%08d", name, round))
}
