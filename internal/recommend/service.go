package recommend

import (
	"context"
	"errors"
	"sort"

	"gorm.io/gorm"

	"github.com/mimercado/marketplace/internal/logging"
	"github.com/mimercado/marketplace/internal/models"
)

const (
	// TopK is how many similar products a detail page shows.
	TopK = 6

	// backfillCap bounds how many missing candidate embeddings one
	// request may generate when lazy backfill is enabled.
	backfillCap = 20
)

var ErrNotFound = errors.New("recommend: product not found")

// Embedder is the outbound embedding collaborator.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	EmbeddingModel() string
}

type Service struct {
	Repo *GormRepo
	AI   Embedder

	// Backfill embeds candidates that have no cached vector instead of
	// skipping them. Off by default.
	Backfill bool
}

type scored struct {
	product models.Product
	score   float64
}

// EmbeddingText is the canonical text a product is embedded from.
func EmbeddingText(p *models.Product) string {
	return p.Title + ". " + p.Description
}

// Similar ranks the other active products by cosine similarity to the
// target. Equal scores break ties by ascending product id, so results
// are stable across runs. If the embedding service is down the page
// gets an empty list, never an error.
func (s *Service) Similar(ctx context.Context, productID uint) ([]models.Product, error) {
	l := logging.FromContext(ctx).With("component", "recommend")

	target, err := s.Repo.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	targetVec, err := s.targetVector(ctx, target)
	if err != nil {
		l.Warn("target embedding unavailable, degrading to empty result", "product_id", productID, "error", err)
		return []models.Product{}, nil
	}

	candidates, err := s.Repo.Candidates(ctx, productID)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return []models.Product{}, nil
	}

	ids := make([]uint, len(candidates))
	for i, p := range candidates {
		ids[i] = p.ID
	}
	vectors, err := s.Repo.EmbeddingsByProduct(ctx, ids)
	if err != nil {
		return nil, err
	}

	backfilled := 0
	results := make([]scored, 0, len(candidates))
	for _, cand := range candidates {
		raw, ok := vectors[cand.ID]
		var vec []float32
		if ok {
			vec, err = DecodeVector(raw)
			if err != nil {
				l.Warn("corrupt cached vector, skipping candidate", "product_id", cand.ID, "error", err)
				continue
			}
		} else {
			if !s.Backfill || backfilled >= backfillCap {
				continue
			}
			vec, err = s.embedAndStore(ctx, &cand)
			if err != nil {
				l.Warn("candidate backfill failed, skipping", "product_id", cand.ID, "error", err)
				continue
			}
			backfilled++
		}
		results = append(results, scored{product: cand, score: CosineSimilarity(targetVec, vec)})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].product.ID < results[j].product.ID
	})

	n := TopK
	if len(results) < n {
		n = len(results)
	}
	out := make([]models.Product, 0, n)
	for _, r := range results[:n] {
		out = append(out, r.product)
	}
	return out, nil
}

func (s *Service) targetVector(ctx context.Context, target *models.Product) ([]float32, error) {
	cached, err := s.Repo.GetEmbedding(ctx, target.ID)
	if err != nil {
		return nil, err
	}
	if cached != nil {
		vec, decErr := DecodeVector(cached.Vector)
		if decErr == nil {
			return vec, nil
		}
		logging.FromContext(ctx).Warn("corrupt target vector, regenerating", "product_id", target.ID, "error", decErr)
	}
	return s.embedAndStore(ctx, target)
}

func (s *Service) embedAndStore(ctx context.Context, p *models.Product) ([]float32, error) {
	vec, err := s.AI.EmbedText(ctx, EmbeddingText(p))
	if err != nil {
		return nil, err
	}
	raw, err := EncodeVector(vec)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.SaveEmbedding(ctx, p.ID, s.AI.EmbeddingModel(), raw); err != nil {
		return nil, err
	}
	return vec, nil
}

// Invalidate drops a product's cached embedding after its text changed.
func (s *Service) Invalidate(ctx context.Context, productID uint) error {
	return s.Repo.DeleteEmbedding(ctx, productID)
}
