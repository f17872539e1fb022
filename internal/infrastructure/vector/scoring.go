package vector

import (
	"fmt"
	"math"
	"sort"

	"github.com/nymav/drax-tbs/internal/domain/rag"
)

// entry 索引内部条目
type entry struct {
	ordinal  int
	id       string
	text     string
	vector   []float32
	metadata map[string]any
}

// CosineDistance 余弦距离 1 - cos(a, b)，零向量视为距离 1
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 1
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 1
	}
	d := 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
	// 浮点误差修正
	if d < 0 {
		d = 0
	}
	return d
}

// prepareEntries 生成条目 ID 与默认 page，start 为命名空间已有条目数
func prepareEntries(namespace string, start int, records []rag.Record) ([]entry, error) {
	entries := make([]entry, 0, len(records))
	dim := -1
	for i, r := range records {
		if len(r.Vector) == 0 {
			return nil, fmt.Errorf("record %d has empty vector", i)
		}
		if dim >= 0 && len(r.Vector) != dim {
			return nil, fmt.Errorf("record %d has dimension %d, expected %d", i, len(r.Vector), dim)
		}
		dim = len(r.Vector)

		meta := make(map[string]any, len(r.Metadata)+1)
		for k, v := range r.Metadata {
			meta[k] = v
		}
		if _, ok := meta[rag.MetaPage]; !ok {
			meta[rag.MetaPage] = i + 1
		}

		id := r.ID
		if id == "" {
			id = fmt.Sprintf("%s_%d", namespace, start+i)
		}

		entries = append(entries, entry{
			ordinal:  start + i,
			id:       id,
			text:     r.Text,
			vector:   r.Vector,
			metadata: meta,
		})
	}
	return entries, nil
}

// nearest 返回距离最小的 k 个条目，距离相同按写入顺序
func nearest(entries []entry, query []float32, k int) []rag.Hit {
	if k <= 0 || len(entries) == 0 {
		return []rag.Hit{}
	}

	hits := make([]rag.Hit, 0, len(entries))
	order := make([]int, 0, len(entries))
	for _, e := range entries {
		hits = append(hits, rag.Hit{
			ID:       e.id,
			Text:     e.text,
			Metadata: copyMeta(e.metadata),
			Distance: CosineDistance(query, e.vector),
		})
		order = append(order, e.ordinal)
	}

	idx := make([]int, len(hits))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		if hits[idx[a]].Distance != hits[idx[b]].Distance {
			return hits[idx[a]].Distance < hits[idx[b]].Distance
		}
		return order[idx[a]] < order[idx[b]]
	})

	if k > len(idx) {
		k = len(idx)
	}
	out := make([]rag.Hit, 0, k)
	for _, i := range idx[:k] {
		out = append(out, hits[i])
	}
	return out
}

func copyMeta(meta map[string]any) map[string]any {
	out := make(map[string]any, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}
