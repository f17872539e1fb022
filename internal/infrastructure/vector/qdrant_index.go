package vector

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/nymav/drax-tbs/internal/domain/rag"
	"github.com/nymav/drax-tbs/internal/infrastructure/log"
)

// payload 中保留的内部字段
const (
	payloadText    = "text"
	payloadOrdinal = "ordinal"
	scrollPageSize = 256
)

// QdrantIndex 每个命名空间对应一个 Qdrant 集合
// 点 ID 随机生成，重复写入同一文档会产生重复条目
type QdrantIndex struct {
	manager *QdrantManager
	// 进程内追加序号，用于生成 "{namespace}_{ordinal}" 形式的条目 ID
	mu       sync.Mutex
	ordinals map[string]int
	logger   *slog.Logger
}

// NewQdrantIndex 创建 Qdrant 向量索引
func NewQdrantIndex(manager *QdrantManager) *QdrantIndex {
	return &QdrantIndex{
		manager:  manager,
		ordinals: make(map[string]int),
		logger:   log.NewModuleLogger("vector", "qdrant_index"),
	}
}

func (q *QdrantIndex) client() (*qdrant.Client, error) {
	client := q.manager.GetClient()
	if client == nil {
		return nil, fmt.Errorf("qdrant client not initialized")
	}
	return client, nil
}

// Save 追加条目
func (q *QdrantIndex) Save(ctx context.Context, namespace string, records []rag.Record) error {
	if len(records) == 0 {
		return nil
	}
	client, err := q.client()
	if err != nil {
		return err
	}

	if err := ensureCollection(ctx, client, namespace, uint64(len(records[0].Vector))); err != nil {
		return err
	}

	start, err := q.reserve(ctx, client, namespace, len(records))
	if err != nil {
		return err
	}

	entries, err := prepareEntries(namespace, start, records)
	if err != nil {
		return err
	}

	points := make([]*qdrant.PointStruct, 0, len(entries))
	for _, e := range entries {
		payload := make(map[string]any, len(e.metadata)+3)
		for k, v := range e.metadata {
			payload[k] = v
		}
		payload[payloadText] = e.text
		payload[payloadOrdinal] = e.ordinal
		payload[rag.MetaEntryID] = e.id

		values, err := qdrant.TryValueMap(payload)
		if err != nil {
			return fmt.Errorf("unsupported metadata for %s: %w", e.id, err)
		}

		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewID(uuid.New().String()),
			Vectors: qdrant.NewVectors(e.vector...),
			Payload: values,
		})
	}

	wait := true
	_, err = client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: namespace,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		q.logger.Error("Failed to upsert points",
			"namespace", namespace,
			"count", len(points),
			"error", err,
		)
		return fmt.Errorf("failed to upsert points: %w", err)
	}
	return nil
}

// Query 返回最近的 k 个条目，距离为 1 - 相似度
func (q *QdrantIndex) Query(ctx context.Context, namespace string, vector []float32, k int) ([]rag.Hit, error) {
	if k <= 0 {
		return []rag.Hit{}, nil
	}
	client, err := q.client()
	if err != nil {
		return nil, err
	}

	if err := ensureCollection(ctx, client, namespace, uint64(len(vector))); err != nil {
		return nil, err
	}

	limit := uint64(k)
	points, err := client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: namespace,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		q.logger.Error("Failed to query qdrant", "namespace", namespace, "error", err)
		return nil, fmt.Errorf("failed to query qdrant: %w", err)
	}

	hits := make([]rag.Hit, 0, len(points))
	for _, p := range points {
		hit := payloadToHit(p.GetPayload())
		hit.Distance = 1 - float64(p.GetScore())
		hits = append(hits, hit)
	}
	return hits, nil
}

// All 滚动读取全部条目并按写入顺序排序
func (q *QdrantIndex) All(ctx context.Context, namespace string) ([]rag.Hit, error) {
	client, err := q.client()
	if err != nil {
		return nil, err
	}

	exists, err := client.CollectionExists(ctx, namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to check collection: %w", err)
	}
	if !exists {
		return []rag.Hit{}, nil
	}

	type ordered struct {
		ordinal int
		hit     rag.Hit
	}
	var all []ordered

	limit := uint32(scrollPageSize)
	var offset *qdrant.PointId
	for {
		// offset 为包含边界，续页时跳过第一条
		req := &qdrant.ScrollPoints{
			CollectionName: namespace,
			Limit:          &limit,
			Offset:         offset,
			WithPayload:    qdrant.NewWithPayload(true),
		}
		points, err := client.Scroll(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("failed to scroll qdrant: %w", err)
		}

		page := points
		if offset != nil && len(page) > 0 {
			page = page[1:]
		}
		for _, p := range page {
			payload := p.GetPayload()
			all = append(all, ordered{
				ordinal: int(payload[payloadOrdinal].GetIntegerValue()),
				hit:     payloadToHit(payload),
			})
		}

		if len(points) < int(limit) {
			break
		}
		offset = points[len(points)-1].GetId()
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].ordinal < all[j].ordinal })
	out := make([]rag.Hit, 0, len(all))
	for _, o := range all {
		out = append(out, o.hit)
	}
	return out, nil
}

// DeleteNamespace 删除集合
func (q *QdrantIndex) DeleteNamespace(ctx context.Context, namespace string) error {
	client, err := q.client()
	if err != nil {
		return err
	}

	exists, err := client.CollectionExists(ctx, namespace)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if !exists {
		return rag.ErrNamespaceNotFound
	}

	if err := client.DeleteCollection(ctx, namespace); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}

	q.mu.Lock()
	delete(q.ordinals, namespace)
	q.mu.Unlock()
	return nil
}

// HasNamespace 判断集合是否存在
func (q *QdrantIndex) HasNamespace(ctx context.Context, namespace string) (bool, error) {
	client, err := q.client()
	if err != nil {
		return false, err
	}
	exists, err := client.CollectionExists(ctx, namespace)
	if err != nil {
		return false, fmt.Errorf("failed to check collection: %w", err)
	}
	return exists, nil
}

// ListNamespaces 列出集合
func (q *QdrantIndex) ListNamespaces(ctx context.Context) ([]string, error) {
	client, err := q.client()
	if err != nil {
		return nil, err
	}
	names, err := client.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

// reserve 预留 n 个连续序号，首次使用时以集合现有点数为起点
func (q *QdrantIndex) reserve(ctx context.Context, client *qdrant.Client, namespace string, n int) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	start, ok := q.ordinals[namespace]
	if !ok {
		exact := true
		count, err := client.Count(ctx, &qdrant.CountPoints{
			CollectionName: namespace,
			Exact:          &exact,
		})
		if err != nil {
			return 0, fmt.Errorf("failed to count points: %w", err)
		}
		start = int(count)
	}
	q.ordinals[namespace] = start + n
	return start, nil
}

// payloadToHit 将 payload 还原为条目
func payloadToHit(payload map[string]*qdrant.Value) rag.Hit {
	meta := make(map[string]any, len(payload))
	var hit rag.Hit
	for k, v := range payload {
		switch k {
		case payloadText:
			hit.Text = v.GetStringValue()
		case payloadOrdinal:
		default:
			meta[k] = valueToAny(v)
		}
	}
	hit.ID = rag.MetaString(meta, rag.MetaEntryID)
	delete(meta, rag.MetaEntryID)
	hit.Metadata = meta
	return hit
}

// valueToAny 将 qdrant.Value 转换为 Go 值
func valueToAny(v *qdrant.Value) any {
	if v == nil {
		return nil
	}
	switch kind := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return kind.StringValue
	case *qdrant.Value_IntegerValue:
		return kind.IntegerValue
	case *qdrant.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrant.Value_BoolValue:
		return kind.BoolValue
	case *qdrant.Value_ListValue:
		values := kind.ListValue.GetValues()
		out := make([]any, 0, len(values))
		for _, item := range values {
			out = append(out, valueToAny(item))
		}
		return out
	case *qdrant.Value_StructValue:
		fields := kind.StructValue.GetFields()
		out := make(map[string]any, len(fields))
		for k, item := range fields {
			out[k] = valueToAny(item)
		}
		return out
	default:
		return nil
	}
}
