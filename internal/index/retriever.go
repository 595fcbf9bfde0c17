package index

import (
	"fmt"
	"strings"
	"sync"

	"tripmate/internal/docstore"
)

// Sentinel context strings surfaced to the model when retrieval has nothing to offer.
const (
	NoDocuments    = "No documents available for context."
	NoRelevantDocs = "No relevant documents found."
	NoneUnderLimit = "No documents meet the similarity threshold."
)

// DocSource yields the current document corpus for index rebuilds.
type DocSource interface {
	AllDocuments() ([]docstore.SourceDoc, error)
}

// Retriever 惰性构建索引并按距离阈值过滤检索结果。
// Retriever lazily builds the index and filters hits by distance threshold.
type Retriever struct {
	source    DocSource
	searcher  Searcher
	threshold float64
	topK      int

	mu       sync.Mutex
	built    bool
	docCount int
}

func NewRetriever(source DocSource, searcher Searcher, threshold float64, topK int) *Retriever {
	if threshold <= 0 {
		threshold = 0.7
	}
	if topK <= 0 {
		topK = 5
	}
	return &Retriever{
		source:    source,
		searcher:  searcher,
		threshold: threshold,
		topK:      topK,
	}
}

// Invalidate 文档变更后调用；下次查询前索引会重建。
// Invalidate marks the index stale after a document change; the next query rebuilds it.
func (r *Retriever) Invalidate() {
	r.mu.Lock()
	r.built = false
	r.mu.Unlock()
}

// ensure rebuilds the index if stale and reports the corpus size.
func (r *Retriever) ensure() (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.built {
		return r.docCount, nil
	}
	docs, err := r.source.AllDocuments()
	if err != nil {
		return 0, fmt.Errorf("load documents: %w", err)
	}
	if err := r.searcher.Rebuild(docs); err != nil {
		return 0, fmt.Errorf("rebuild index: %w", err)
	}
	r.built = true
	r.docCount = len(docs)
	return r.docCount, nil
}

// Search returns hits within the distance threshold, closest first.
func (r *Retriever) Search(query string, k int) ([]Hit, error) {
	count, err := r.ensure()
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	if k <= 0 {
		k = r.topK
	}
	hits, err := r.searcher.Query(query, k)
	if err != nil {
		return nil, err
	}
	kept := hits[:0]
	for _, h := range hits {
		if h.Score <= r.threshold {
			kept = append(kept, h)
		}
	}
	return kept, nil
}

// Context 把检索命中格式化为注入提示词的上下文块。
// Context formats retrieval hits into the context block injected into the prompt.
func (r *Retriever) Context(query string) (string, error) {
	count, err := r.ensure()
	if err != nil {
		return "", err
	}
	if count == 0 {
		return NoDocuments, nil
	}
	hits, err := r.searcher.Query(query, r.topK)
	if err != nil {
		return "", err
	}
	if len(hits) == 0 {
		return NoRelevantDocs, nil
	}
	parts := make([]string, 0, len(hits))
	for _, h := range hits {
		if h.Score > r.threshold {
			continue
		}
		parts = append(parts, fmt.Sprintf("[From %s]: %s", h.Source, h.Text))
	}
	if len(parts) == 0 {
		return NoneUnderLimit, nil
	}
	return strings.Join(parts, "\n\n"), nil
}
