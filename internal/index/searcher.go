package index

import (
	"fmt"

	"github.com/blevesearch/bleve/v2"

	"tripmate/internal/docstore"
)

// Hit 一条检索结果；Score 为距离值，越小越相近。
// Hit is one retrieval result. Score is a distance value where lower means closer.
type Hit struct {
	Source string
	Text   string
	Score  float64
}

// Searcher indexes document text and answers similarity queries.
type Searcher interface {
	// Rebuild replaces the index contents with the given documents.
	Rebuild(docs []docstore.SourceDoc) error
	// Query returns up to k hits ordered closest first.
	Query(text string, k int) ([]Hit, error)
}

type bleveDoc struct {
	Source string `json:"source"`
	Text   string `json:"text"`
}

// BleveSearcher 基于内存 bleve 索引的 Searcher 实现。
// BleveSearcher backs Searcher with an in-memory bleve index.
type BleveSearcher struct {
	idx bleve.Index
}

func NewBleveSearcher() *BleveSearcher {
	return &BleveSearcher{}
}

// Rebuild 全量重建：建新索引后整体替换，避免增量删除的簿记。
// Rebuild builds a fresh index and swaps it in wholesale; no incremental delete bookkeeping.
func (b *BleveSearcher) Rebuild(docs []docstore.SourceDoc) error {
	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	batch := idx.NewBatch()
	for i, d := range docs {
		id := fmt.Sprintf("%s#%d", d.Source, i)
		if err := batch.Index(id, bleveDoc{Source: d.Source, Text: d.Text}); err != nil {
			_ = idx.Close()
			return fmt.Errorf("index %q: %w", d.Source, err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		_ = idx.Close()
		return fmt.Errorf("apply batch: %w", err)
	}
	if b.idx != nil {
		_ = b.idx.Close()
	}
	b.idx = idx
	return nil
}

func (b *BleveSearcher) Query(text string, k int) ([]Hit, error) {
	if b.idx == nil {
		return nil, nil
	}
	if k <= 0 {
		k = 5
	}
	req := bleve.NewSearchRequestOptions(bleve.NewMatchQuery(text), k, 0, false)
	req.Fields = []string{"source", "text"}

	result, err := b.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", text, err)
	}

	hits := make([]Hit, 0, len(result.Hits))
	for _, match := range result.Hits {
		h := Hit{Score: toDistance(match.Score)}
		if v, ok := match.Fields["source"].(string); ok {
			h.Source = v
		}
		if v, ok := match.Fields["text"].(string); ok {
			h.Text = v
		}
		hits = append(hits, h)
	}
	return hits, nil
}

// Close releases the underlying index.
func (b *BleveSearcher) Close() error {
	if b.idx == nil {
		return nil
	}
	return b.idx.Close()
}

// bleve 打分是相关度（越大越好），对外统一为距离语义（越小越近），
// 使阈值过滤与其余检索配置保持同一方向。
// bleve scores are relevance (higher is better); expose them as distances
// (lower is closer) so threshold filtering works in one direction.
func toDistance(score float64) float64 {
	return 1 / (1 + score)
}
