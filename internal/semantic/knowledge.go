package semantic

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Entry is one knowledge-base category and the reference description embedded for it.
type Entry struct {
	Category    string `json:"category" yaml:"category"`
	Description string `json:"description" yaml:"description"`
}

// MultiLabelEntries are the categories used with the ChestX-ray14 classifier.
func MultiLabelEntries() []Entry {
	return []Entry{
		{"Pleural Anomalies", "Evidence of effusion, pleural thickening, or pneumothorax indicating pleural space involvement."},
		{"Infectious/Inflammatory", "Infiltration, consolidation, or pneumonia suggesting active alveolar filling or infection."},
		{"Cardiac Anomalies", "Cardiomegaly indicating enlarged cardiac silhouette."},
		{"Chronic/Structural", "Fibrosis, emphysema, atelectasis, or hernia suggesting structural lung damage or volume loss."},
		{"Focal Lesions", "Nodule or mass requiring oncological correlation."},
		{"Normal", "No pathological findings, clear lungs and normal cardiac silhouette."},
	}
}

// BinaryEntries are the categories used with Normal/Abnormal classifiers.
func BinaryEntries() []Entry {
	return []Entry{
		{"Pneumonia/Infection", "Evidence of consolidation, air bronchograms, or patchy opacities suggestive of infectious process."},
		{"Pleural Effusion", "Blunting of costophrenic angles or fluid accumulation in the pleural space."},
		{"Cardiomegaly", "Enlarged cardiac silhouette with cardiothoracic ratio greater than 0.5."},
		{"Pneumothorax", "Visible pleural edge with absence of lung markings peripherally, suggestive of lung collapse."},
		{"Nodule/Mass", "Well-defined rounded opacity or focal lesion requiring further oncological correlation."},
		{"Normal/Unremarkable", "Lungs are clear, cardiac silhouette is normal, and no acute osseous abnormalities detected."},
	}
}

// KnowledgeBase holds reference vectors for each category. Vectors are written
// once by Warmup and only read afterwards.
type KnowledgeBase struct {
	entries []Entry

	mu      sync.RWMutex
	vectors [][]float64 // parallel to entries; nil when embedding failed
}

// NewKnowledgeBase creates an empty (not yet embedded) knowledge base.
func NewKnowledgeBase(entries []Entry) *KnowledgeBase {
	return &KnowledgeBase{entries: append([]Entry(nil), entries...)}
}

// maxWarmupConcurrency bounds parallel embedding calls during Warmup.
const maxWarmupConcurrency = 4

// Warmup embeds every description. Failed entries are logged and left out.
// It returns the number of categories that are ready.
func (kb *KnowledgeBase) Warmup(ctx context.Context, emb Embedder, log zerolog.Logger) int {
	vectors := make([][]float64, len(kb.entries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWarmupConcurrency)
	for i, e := range kb.entries {
		i, e := i, e
		g.Go(func() error {
			vec, err := emb.Embed(gctx, e.Description)
			if err != nil {
				log.Warn().Err(err).Str("category", e.Category).Msg("knowledge base embedding failed")
				return nil
			}
			if len(vec) == 0 {
				log.Warn().Str("category", e.Category).Msg("knowledge base embedding is empty")
				return nil
			}
			vectors[i] = vec
			return nil
		})
	}
	_ = g.Wait()

	kb.mu.Lock()
	kb.vectors = vectors
	kb.mu.Unlock()
	n := kb.Len()
	log.Info().Int("categories", n).Int("total", len(kb.entries)).Msg("knowledge base ready")
	return n
}

// Len is the number of embedded categories.
func (kb *KnowledgeBase) Len() int {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	n := 0
	for _, v := range kb.vectors {
		if v != nil {
			n++
		}
	}
	return n
}

// Entries returns the configured categories.
func (kb *KnowledgeBase) Entries() []Entry { return append([]Entry(nil), kb.entries...) }

// each calls fn for every embedded category in declaration order.
func (kb *KnowledgeBase) each(fn func(category string, vec []float64)) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	for i, v := range kb.vectors {
		if v != nil {
			fn(kb.entries[i].Category, v)
		}
	}
}
