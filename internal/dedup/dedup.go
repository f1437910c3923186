package dedup

import (
	"math"

	"horse.fit/newsradar/internal/news"
)

const DefaultSimilarityThreshold = 0.85

// Result is the outcome of one deduplication pass.
type Result struct {
	// Unique holds the surviving items in their original input order.
	Unique []news.Item
	// Removed is the number of items collapsed into another cluster member.
	Removed int
	// Clusters is the number of duplicate clusters with two or more members.
	Clusters int
}

// Deduplicator collapses near-duplicate items. Candidates are items whose
// vectors land in the same LSH bucket; within a bucket, items linked by
// cosine similarity at or above the threshold form one cluster (chaining
// through intermediate items is allowed). Items in different buckets are
// never compared, an accepted recall limit of the bucketing scheme.
type Deduplicator struct {
	threshold float64
	basis     *Basis
}

func NewDeduplicator(basis *Basis, threshold float64) *Deduplicator {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultSimilarityThreshold
	}
	return &Deduplicator{
		threshold: threshold,
		basis:     basis,
	}
}

// Run partitions items into clusters and keeps one representative per
// cluster: the first-encountered member in input order. Items with a nil
// vector never had a usable embedding and are kept as unique. vectors must
// be index-aligned with items.
func (d *Deduplicator) Run(items []news.Item, vectors [][]float64) Result {
	if len(items) == 0 {
		return Result{}
	}

	buckets := make(map[string][]int)
	for i := range items {
		if vectors[i] == nil {
			continue
		}
		key := d.basis.Signature(vectors[i])
		buckets[key] = append(buckets[key], i)
	}

	dropped := make(map[int]bool)
	clusters := 0
	for _, bucket := range buckets {
		if len(bucket) < 2 {
			continue
		}
		for _, component := range connectedComponents(bucket, vectors, d.threshold) {
			if len(component) < 2 {
				continue
			}
			clusters++
			// component indices are ascending; the first one is the
			// representative, the rest collapse into it.
			for _, idx := range component[1:] {
				dropped[idx] = true
			}
		}
	}

	unique := make([]news.Item, 0, len(items)-len(dropped))
	for i, item := range items {
		if dropped[i] {
			continue
		}
		unique = append(unique, item)
	}

	return Result{
		Unique:   unique,
		Removed:  len(dropped),
		Clusters: clusters,
	}
}

// connectedComponents links bucket members with pairwise similarity at or
// above the threshold and returns the resulting components, each sorted
// ascending by input index.
func connectedComponents(bucket []int, vectors [][]float64, threshold float64) [][]int {
	parent := make(map[int]int, len(bucket))
	for _, idx := range bucket {
		parent[idx] = idx
	}

	var find func(int) int
	find = func(x int) int {
		if parent[x] != x {
			parent[x] = find(parent[x])
		}
		return parent[x]
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra == rb {
			return
		}
		// Keep the smaller index as root so representatives stay
		// first-encountered.
		if ra < rb {
			parent[rb] = ra
		} else {
			parent[ra] = rb
		}
	}

	for i := 0; i < len(bucket); i++ {
		for j := i + 1; j < len(bucket); j++ {
			if CosineSimilarity(vectors[bucket[i]], vectors[bucket[j]]) >= threshold {
				union(bucket[i], bucket[j])
			}
		}
	}

	grouped := make(map[int][]int)
	for _, idx := range bucket {
		root := find(idx)
		grouped[root] = append(grouped[root], idx)
	}

	components := make([][]int, 0, len(grouped))
	for _, component := range grouped {
		// Bucket order is input order, so each component is already
		// ascending.
		components = append(components, component)
	}
	return components
}

// CosineSimilarity returns the cosine of the angle between two vectors, or 0
// when either has zero magnitude or the lengths differ.
func CosineSimilarity(left, right []float64) float64 {
	if len(left) != len(right) || len(left) == 0 {
		return 0
	}
	var dot, leftNorm, rightNorm float64
	for i := range left {
		dot += left[i] * right[i]
		leftNorm += left[i] * left[i]
		rightNorm += right[i] * right[i]
	}
	if leftNorm == 0 || rightNorm == 0 {
		return 0
	}
	return dot / (math.Sqrt(leftNorm) * math.Sqrt(rightNorm))
}
