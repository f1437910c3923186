package dedup

import (
	"fmt"
	"math"
	"testing"

	"horse.fit/newsradar/internal/news"
)

func testItems(n int) []news.Item {
	items := make([]news.Item, n)
	for i := range items {
		items[i] = news.Item{
			Source: "wire",
			Title:  fmt.Sprintf("story %d", i),
			Link:   fmt.Sprintf("https://example.com/story-%d", i),
		}
	}
	return items
}

func TestCosineSimilarity(t *testing.T) {
	t.Parallel()

	if got := CosineSimilarity([]float64{1, 0}, []float64{1, 0}); math.Abs(got-1) > 1e-9 {
		t.Fatalf("identical vectors: expected 1, got %f", got)
	}
	if got := CosineSimilarity([]float64{1, 0}, []float64{0, 1}); math.Abs(got) > 1e-9 {
		t.Fatalf("orthogonal vectors: expected 0, got %f", got)
	}
	if got := CosineSimilarity([]float64{1, 0}, []float64{-1, 0}); math.Abs(got+1) > 1e-9 {
		t.Fatalf("opposite vectors: expected -1, got %f", got)
	}
	if got := CosineSimilarity([]float64{0, 0}, []float64{1, 0}); got != 0 {
		t.Fatalf("zero vector: expected 0, got %f", got)
	}
	if got := CosineSimilarity([]float64{1, 0, 0}, []float64{1, 0}); got != 0 {
		t.Fatalf("length mismatch: expected 0, got %f", got)
	}
}

func TestRunCollapsesNearDuplicates(t *testing.T) {
	t.Parallel()

	items := testItems(3)
	vectors := [][]float64{
		{1, 0.01},
		{1, 0.02},
		{0.01, 1},
	}

	basis := NewBasis(20, 2, 48)
	result := NewDeduplicator(basis, 0.85).Run(items, vectors)

	if len(result.Unique) != 2 {
		t.Fatalf("expected 2 unique items, got %d", len(result.Unique))
	}
	if result.Removed != 1 {
		t.Fatalf("expected 1 removed item, got %d", result.Removed)
	}
	if result.Clusters != 1 {
		t.Fatalf("expected 1 duplicate cluster, got %d", result.Clusters)
	}
	if result.Unique[0].Link != items[0].Link {
		t.Fatalf("expected first-seen representative %q, got %q", items[0].Link, result.Unique[0].Link)
	}
	if result.Unique[1].Link != items[2].Link {
		t.Fatalf("expected dissimilar item to survive, got %q", result.Unique[1].Link)
	}
}

func TestRunPreservesInputOrder(t *testing.T) {
	t.Parallel()

	items := testItems(4)
	vectors := [][]float64{
		{1, 0.01},
		{0.01, 1},
		{1, 0.02},
		{0.5, 0.5},
	}

	basis := NewBasis(20, 2, 48)
	result := NewDeduplicator(basis, 0.85).Run(items, vectors)

	if len(result.Unique) != 3 {
		t.Fatalf("expected 3 unique items, got %d", len(result.Unique))
	}
	for i := 1; i < len(result.Unique); i++ {
		if result.Unique[i-1].Link >= result.Unique[i].Link {
			t.Fatalf("survivors out of input order: %q before %q", result.Unique[i-1].Link, result.Unique[i].Link)
		}
	}
}

func TestRunAllowsChainedClusters(t *testing.T) {
	t.Parallel()

	// cos(a,b) and cos(b,c) exceed the threshold but cos(a,c) does not;
	// chaining still collapses all three into one cluster.
	items := testItems(3)
	vectors := [][]float64{
		{1, 0},
		{math.Cos(math.Pi / 6), math.Sin(math.Pi / 6)},
		{math.Cos(math.Pi / 3), math.Sin(math.Pi / 3)},
	}

	if CosineSimilarity(vectors[0], vectors[2]) >= 0.85 {
		t.Fatalf("test setup broken: endpoints should be below threshold")
	}

	basis := NewBasis(20, 2, 48)
	result := NewDeduplicator(basis, 0.85).Run(items, vectors)

	if len(result.Unique) != 1 {
		t.Fatalf("expected chained cluster to collapse to 1 item, got %d", len(result.Unique))
	}
	if result.Unique[0].Link != items[0].Link {
		t.Fatalf("expected first-seen representative, got %q", result.Unique[0].Link)
	}
	if result.Removed != 2 || result.Clusters != 1 {
		t.Fatalf("expected removed=2 clusters=1, got removed=%d clusters=%d", result.Removed, result.Clusters)
	}
}

func TestRunNeverComparesAcrossBuckets(t *testing.T) {
	t.Parallel()

	// A single hyperplane along the x axis splits these nearly identical
	// vectors into different buckets; they must both survive.
	basis := &Basis{planes: [][]float64{{1, 0}}}
	items := testItems(2)
	vectors := [][]float64{
		{0.001, 1},
		{-0.001, 1},
	}

	if CosineSimilarity(vectors[0], vectors[1]) < 0.99 {
		t.Fatalf("test setup broken: vectors should be nearly identical")
	}

	result := NewDeduplicator(basis, 0.85).Run(items, vectors)
	if len(result.Unique) != 2 || result.Removed != 0 {
		t.Fatalf("cross-bucket items must not collapse: unique=%d removed=%d", len(result.Unique), result.Removed)
	}
}

func TestRunKeepsItemsWithoutVectors(t *testing.T) {
	t.Parallel()

	items := testItems(3)
	vectors := [][]float64{
		{1, 0.01},
		nil,
		{1, 0.01},
	}

	basis := NewBasis(20, 2, 48)
	result := NewDeduplicator(basis, 0.85).Run(items, vectors)

	if len(result.Unique) != 2 {
		t.Fatalf("expected 2 unique items, got %d", len(result.Unique))
	}
	if result.Unique[1].Link != items[1].Link {
		t.Fatalf("item without a vector must be kept, got %q", result.Unique[1].Link)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	t.Parallel()

	items := testItems(5)
	vectors := [][]float64{
		{1, 0.01},
		{1, 0.02},
		{0.01, 1},
		{0.02, 1},
		{0.6, 0.6},
	}

	basis := NewBasis(20, 2, 48)
	dedup := NewDeduplicator(basis, 0.85)
	first := dedup.Run(items, vectors)

	// Re-run over the survivors with their aligned vectors.
	survivorVectors := make([][]float64, 0, len(first.Unique))
	for _, item := range first.Unique {
		for i := range items {
			if items[i].Link == item.Link {
				survivorVectors = append(survivorVectors, vectors[i])
			}
		}
	}

	second := dedup.Run(first.Unique, survivorVectors)
	if second.Removed != 0 {
		t.Fatalf("second pass over unique items removed %d", second.Removed)
	}
	if len(second.Unique) != len(first.Unique) {
		t.Fatalf("second pass changed survivor count: %d vs %d", len(second.Unique), len(first.Unique))
	}
}

func TestRunAtScale(t *testing.T) {
	t.Parallel()

	const total = 100
	const dupes = 10

	items := testItems(total)
	vectors := make([][]float64, total)
	for i := 0; i < dupes; i++ {
		vec := make([]float64, total)
		vec[0] = 1
		vec[1] = float64(i) * 0.001
		vectors[i] = vec
	}
	for i := dupes; i < total; i++ {
		vec := make([]float64, total)
		vec[i] = 1
		vectors[i] = vec
	}

	basis := NewBasis(20, total, 48)
	result := NewDeduplicator(basis, 0.85).Run(items, vectors)

	if len(result.Unique) != total-dupes+1 {
		t.Fatalf("expected %d unique items, got %d", total-dupes+1, len(result.Unique))
	}
	if result.Removed != dupes-1 {
		t.Fatalf("expected %d removed, got %d", dupes-1, result.Removed)
	}
	if result.Unique[0].Link != items[0].Link {
		t.Fatalf("expected first duplicate as representative, got %q", result.Unique[0].Link)
	}
}

func TestRunEmptyInput(t *testing.T) {
	t.Parallel()

	basis := NewBasis(20, 2, 48)
	result := NewDeduplicator(basis, 0.85).Run(nil, nil)
	if len(result.Unique) != 0 || result.Removed != 0 || result.Clusters != 0 {
		t.Fatalf("expected empty result, got %+v", result)
	}
}
