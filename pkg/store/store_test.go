package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"

	"github.com/matzehuels/intervis/pkg/errors"
	"github.com/matzehuels/intervis/pkg/export"
	"github.com/matzehuels/intervis/pkg/network"
	"github.com/matzehuels/intervis/pkg/observer"
	"github.com/matzehuels/intervis/pkg/viewshed"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), Config{DSN: filepath.Join(t.TempDir(), "ws", "intervis.db")})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenConfig(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		cfg  Config
	}{
		{"empty sqlite path", Config{Driver: DriverSQLite}},
		{"empty postgres dsn", Config{Driver: DriverPostgres}},
		{"unknown driver", Config{Driver: "oracle", DSN: "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(ctx, tt.cfg)
			if !errors.Is(err, errors.ErrCodeInvalidConfig) {
				t.Errorf("err = %v, want INVALID_CONFIG", err)
			}
		})
	}
}

func TestOpenSQLite(t *testing.T) {
	s := openTemp(t)
	if s.Driver() != DriverSQLite {
		t.Errorf("Driver() = %q", s.Driver())
	}
	if s.DB() == nil {
		t.Error("DB() is nil")
	}
}

func TestInvalidDatasetName(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	for _, name := range []string{"", "bad name", `x"; DROP TABLE y; --`, "1abc"} {
		if err := s.Observers(name).Create(ctx); !errors.Is(err, errors.ErrCodeInvalidDataset) {
			t.Errorf("Create(%q) err = %v, want INVALID_DATASET", name, err)
		}
		if _, err := s.Exists(ctx, name); !errors.Is(err, errors.ErrCodeInvalidDataset) {
			t.Errorf("Exists(%q) err = %v, want INVALID_DATASET", name, err)
		}
	}
}

func TestObserversStreamAfter(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	tbl := s.Observers("observers")
	if err := tbl.Create(ctx); err != nil {
		t.Fatal(err)
	}

	// Inserted out of order; streaming must sort.
	var obs []observer.Observer
	for _, id := range []int64{5, 1, 3, 0, 4, 2} {
		obs = append(obs, observer.Observer{PointID: id, IslandID: id * 10, SplitIslandID: id * 100, GridID: 7, Z: 1.5, Shape: orb.Point{float64(id), -float64(id)}})
	}
	if err := tbl.Insert(ctx, obs); err != nil {
		t.Fatal(err)
	}

	var got []int64
	err := tbl.Observers(ctx, 2, func(o observer.Observer) error {
		got = append(got, o.PointID)
		if o.IslandID != o.PointID*10 || o.Shape != (orb.Point{float64(o.PointID), -float64(o.PointID)}) {
			t.Errorf("observer %d mangled: %+v", o.PointID, o)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []int64{3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}

	n := 0
	if err := tbl.Observers(ctx, -1, func(observer.Observer) error { n++; return nil }); err != nil {
		t.Fatal(err)
	}
	if n != 6 {
		t.Errorf("after -1 streamed %d, want 6", n)
	}
}

func TestObserversMissingDataset(t *testing.T) {
	s := openTemp(t)
	err := s.Observers("nope").Observers(context.Background(), -1, func(observer.Observer) error { return nil })
	if !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("err = %v, want NOT_FOUND", err)
	}
}

func TestViewshedsCheckpoint(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	tbl := s.Viewsheds("viewsheds")

	if _, ok, err := tbl.MaxPointID(ctx); err != nil || ok {
		t.Fatalf("MaxPointID on missing table = ok %v, err %v", ok, err)
	}
	if err := tbl.Create(ctx); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := tbl.MaxPointID(ctx); err != nil || ok {
		t.Fatalf("MaxPointID on empty table = ok %v, err %v", ok, err)
	}

	square := orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}}
	rows := []viewshed.Viewshed{
		{IslandID: 1, SplitIslandID: 10, GridID: 3, PointID: 7, Geometry: orb.MultiPolygon{square}},
		{IslandID: 1, SplitIslandID: 11, GridID: 3, PointID: 9, Geometry: orb.MultiPolygon{}},
	}
	if err := tbl.Append(ctx, rows); err != nil {
		t.Fatal(err)
	}
	if err := tbl.Append(ctx, nil); err != nil {
		t.Fatalf("Append(nil): %v", err)
	}

	id, ok, err := tbl.MaxPointID(ctx)
	if err != nil || !ok || id != 9 {
		t.Fatalf("MaxPointID = %d, %v, %v; want 9", id, ok, err)
	}

	var got []viewshed.Viewshed
	if err := tbl.Each(ctx, func(v viewshed.Viewshed) error { got = append(got, v); return nil }); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("Each returned %d rows", len(got))
	}
	if got[0].PointID != 7 || got[0].SplitIslandID != 10 || len(got[0].Geometry) != 1 {
		t.Errorf("row 0 = %+v", got[0])
	}
	if got[1].PointID != 9 || len(got[1].Geometry) != 0 {
		t.Errorf("row 1 = %+v", got[1])
	}
}

func TestIntersectionTriples(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	tbl := s.Intersections("intersections")
	if err := tbl.Create(ctx); err != nil {
		t.Fatal(err)
	}
	in := []network.Triple{{A: 1, B: 2, Area: 5}, {A: 2, B: 1, Area: 3}, {A: 1, B: 2, Area: 2.5}, {A: 1, B: 1, Area: 9}}
	if err := tbl.Insert(ctx, in); err != nil {
		t.Fatal(err)
	}

	var sum float64
	n := 0
	if err := tbl.Triples(ctx, func(tr network.Triple) error { n++; sum += tr.Area; return nil }); err != nil {
		t.Fatal(err)
	}
	if n != 4 || sum != 19.5 {
		t.Errorf("streamed %d rows summing %v", n, sum)
	}

	// An error from fn stops the stream and is returned unchanged.
	stop := errors.New(errors.ErrCodeInternal, "stop")
	calls := 0
	err := tbl.Triples(ctx, func(network.Triple) error { calls++; return stop })
	if err != stop || calls != 1 {
		t.Errorf("err = %v after %d calls", err, calls)
	}
}

func TestCentroidLookup(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	tbl := s.Centroids("centroids")
	if err := tbl.Create(ctx); err != nil {
		t.Fatal(err)
	}
	if err := tbl.Insert(ctx, []Centroid{{From: 1, Of: 2, Point: orb.Point{3, 4}}}); err != nil {
		t.Fatal(err)
	}

	p, ok, err := tbl.Centroid(ctx, 1, 2)
	if err != nil || !ok || p != (orb.Point{3, 4}) {
		t.Errorf("Centroid(1,2) = %v, %v, %v", p, ok, err)
	}
	// The reversed pair is a different row.
	if _, ok, err := tbl.Centroid(ctx, 2, 1); err != nil || ok {
		t.Errorf("Centroid(2,1) ok = %v, err = %v; want absent", ok, err)
	}
}

func TestCentroidFingerprint(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	tbl := s.Centroids("centroids")

	if _, err := tbl.Fingerprint(ctx); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Fatalf("Fingerprint on missing dataset err = %v, want NOT_FOUND", err)
	}
	if err := tbl.Create(ctx); err != nil {
		t.Fatal(err)
	}
	empty, err := tbl.Fingerprint(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if err := tbl.Insert(ctx, []Centroid{{From: 1, Of: 2, Point: orb.Point{3, 4}}}); err != nil {
		t.Fatal(err)
	}
	first, err := tbl.Fingerprint(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if first == empty {
		t.Errorf("fingerprint unchanged after insert: %q", first)
	}
	if again, _ := tbl.Fingerprint(ctx); again != first {
		t.Errorf("fingerprint not stable: %q then %q", first, again)
	}

	// Rebuilt with the same pair at a new point.
	if err := s.Drop(ctx, "centroids"); err != nil {
		t.Fatal(err)
	}
	if err := tbl.Create(ctx); err != nil {
		t.Fatal(err)
	}
	if err := tbl.Insert(ctx, []Centroid{{From: 1, Of: 2, Point: orb.Point{4, 3}}}); err != nil {
		t.Fatal(err)
	}
	if rebuilt, _ := tbl.Fingerprint(ctx); rebuilt == first {
		t.Errorf("fingerprint unchanged after rebuild: %q", rebuilt)
	}
}

func TestBuildFromStore(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	inter := s.Intersections("inter")
	cents := s.Centroids("cents")
	for _, err := range []error{inter.Create(ctx), cents.Create(ctx)} {
		if err != nil {
			t.Fatal(err)
		}
	}
	_ = inter.Insert(ctx, []network.Triple{{A: 1, B: 2, Area: 5}, {A: 2, B: 1, Area: 3}, {A: 1, B: 2, Area: 2.5}, {A: 1, B: 1, Area: 9}, {A: 1, B: 3, Area: 4}})
	_ = cents.Insert(ctx, []Centroid{
		{From: 1, Of: 2, Point: orb.Point{10, 0}},
		{From: 2, Of: 1, Point: orb.Point{0, 0}},
		{From: 1, Of: 3, Point: orb.Point{5, 5}},
	})

	b := network.NewBuilder(cents, network.BuilderOptions{})
	g, err := b.Build(ctx, inter)
	if err != nil {
		t.Fatal(err)
	}
	if g.EdgeCount() != 2 {
		t.Fatalf("EdgeCount = %d, want 2", g.EdgeCount())
	}
	if e, ok := g.Edge(1, 2); !ok || e.Area != 7.5 {
		t.Errorf("edge 1->2 = %+v", e)
	}
	if b.Stats().SkippedPairs != 1 {
		t.Errorf("SkippedPairs = %d, want 1", b.Stats().SkippedPairs)
	}
}

func TestIslands(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	tbl := s.Islands("islands")
	if err := tbl.Create(ctx); err != nil {
		t.Fatal(err)
	}
	info := network.IslandInfo{ID: 4, Centroid: orb.Point{1, 2}, Area: 30, Perimeter: 22}
	if err := tbl.Insert(ctx, []network.IslandInfo{info}); err != nil {
		t.Fatal(err)
	}
	got, ok, err := tbl.Island(ctx, 4)
	if err != nil || !ok || got != info {
		t.Errorf("Island(4) = %+v, %v, %v", got, ok, err)
	}
	if _, ok, err := tbl.Island(ctx, 5); err != nil || ok {
		t.Errorf("Island(5) ok = %v, err = %v", ok, err)
	}
}

func TestNetworkWrite(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	tbl := s.Network("network")
	lines := []export.LineFeature{
		{From: 1, To: 2, Weight: 7.5, Origin: orb.Point{0, 0}, Dest: orb.Point{10, 0}},
		{From: 2, To: 1, Weight: 3, Origin: orb.Point{10, 0}, Dest: orb.Point{0, 0}},
	}

	if _, err := tbl.Read(ctx); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("Read before Write err = %v, want NOT_FOUND", err)
	}
	if err := tbl.Write(ctx, lines, false); err != nil {
		t.Fatal(err)
	}
	if err := tbl.Write(ctx, lines, false); !errors.Is(err, errors.ErrCodeAlreadyExists) {
		t.Errorf("second Write err = %v, want ALREADY_EXISTS", err)
	}
	if err := tbl.Write(ctx, lines[:1], true); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	got, err := tbl.Read(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != lines[0] {
		t.Errorf("Read = %+v, want %+v", got, lines[:1])
	}
}

func TestDropAndExists(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	if err := s.Intersections("tmp").Create(ctx); err != nil {
		t.Fatal(err)
	}
	if ok, err := s.Exists(ctx, "tmp"); err != nil || !ok {
		t.Fatalf("Exists = %v, %v", ok, err)
	}
	if err := s.Drop(ctx, "tmp"); err != nil {
		t.Fatal(err)
	}
	if ok, _ := s.Exists(ctx, "tmp"); ok {
		t.Error("table still exists after Drop")
	}
}

func TestPostgresRebind(t *testing.T) {
	got := postgresDialect{}.rebind("SELECT x FROM t WHERE a = ? AND b = ?")
	want := "SELECT x FROM t WHERE a = $1 AND b = $2"
	if got != want {
		t.Errorf("rebind = %q, want %q", got, want)
	}
	if q := (sqliteDialect{}).rebind("a = ?"); q != "a = ?" {
		t.Errorf("sqlite rebind changed query: %q", q)
	}
}
