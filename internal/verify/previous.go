package verify

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/ppiankov/verity/internal/cache"
	"github.com/ppiankov/verity/internal/memory"
	"github.com/ppiankov/verity/internal/model"
	"github.com/ppiankov/verity/internal/telemetry"
)

// UnverifiableSource is the placeholder stored when a verification had no real source
const UnverifiableSource = "unverifiable"

// inheritedConfidence is given to conclusions and revisions whose
// connected thoughts were verified
const inheritedConfidence = 0.7

// memoryLookupTimeout bounds a shared durable memory lookup
const memoryLookupTimeout = 10 * time.Second

// CheckPreviousVerification reports whether text was already verified, in
// order: recency cache, durable memory, connected thoughts. Memory errors
// are logged and treated as not found.
func (p *Pipeline) CheckPreviousVerification(ctx context.Context, text, sessionID string, thoughtType model.ThoughtType, connectedIDs []string) (*model.PreviousVerification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	ctx, span := telemetry.Tracer().Start(ctx, "verify.CheckPreviousVerification")
	defer span.End()

	key := cache.SessionKey(text, sessionID)
	if cached, ok := p.verifications.Get(key); ok {
		p.metrics.CacheLookup("verification", true)
		span.SetAttributes(attribute.Bool("verify.cached", true))
		prev := fromCache(cached)
		p.metrics.Operation("previous", string(prev.Status), time.Since(start))
		return prev, nil
	}
	p.metrics.CacheLookup("verification", false)

	// The shared lookup outlives any single caller; each caller only waits
	// as long as its own context allows.
	ch := p.lookups.DoChan(key, func() (interface{}, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), memoryLookupTimeout)
		defer cancel()
		return p.lookupMemory(lctx, key, text, sessionID), nil
	})
	var found *model.PreviousVerification
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		found, _ = res.Val.(*model.PreviousVerification)
	}

	var prev *model.PreviousVerification
	switch {
	case found != nil:
		cp := *found
		cp.Sources = append([]string(nil), found.Sources...)
		prev = &cp
	default:
		var err error
		prev, err = p.inherit(ctx, thoughtType, connectedIDs)
		if err != nil {
			return nil, err
		}
	}

	span.SetAttributes(attribute.String("verify.status", string(prev.Status)))
	p.metrics.Operation("previous", string(prev.Status), time.Since(start))
	return prev, nil
}

func fromCache(r model.VerificationResult) *model.PreviousVerification {
	return &model.PreviousVerification{
		IsVerified: r.Status.IsPositive(),
		Status:     r.Status,
		Confidence: r.Confidence,
		Sources:    append([]string(nil), r.Sources...),
		Similarity: 1,
		Timestamp:  r.Timestamp,
		Notes:      r.Notes,
		FromCache:  true,
	}
}

// lookupMemory queries durable memory once per key at a time. A nil result
// means nothing usable was found; failures and timeouts count as nothing.
func (p *Pipeline) lookupMemory(ctx context.Context, key, text, sessionID string) *model.PreviousVerification {
	if p.memory == nil {
		return nil
	}

	rec, err := p.memory.FindVerification(ctx, text, sessionID, p.threshold)
	if err != nil {
		p.metrics.MemoryLookup(telemetry.ResultError)
		p.logger.Warn("verification memory lookup failed", "error", err)
		return nil
	}
	if rec == nil {
		p.metrics.MemoryLookup(telemetry.ResultMiss)
		return nil
	}
	p.metrics.MemoryLookup(telemetry.ResultHit)

	confidence := math.Min(rec.Confidence, rec.Similarity)
	if !p.trusted(rec) {
		return &model.PreviousVerification{
			Status:     model.StatusUncertain,
			Confidence: confidence,
			Sources:    rec.Sources,
			Similarity: rec.Similarity,
			Timestamp:  rec.CreatedAt,
			Notes: fmt.Sprintf("Vérification antérieure similaire (%.2f) au statut %s: nouvelle vérification nécessaire.",
				rec.Similarity, rec.Status),
		}
	}

	prev := &model.PreviousVerification{
		IsVerified: true,
		Status:     rec.Status,
		Confidence: confidence,
		Sources:    rec.Sources,
		Similarity: rec.Similarity,
		Timestamp:  rec.CreatedAt,
		Notes:      fmt.Sprintf("Vérification antérieure réutilisée (similarité %.2f).", rec.Similarity),
	}
	p.verifications.Put(key, model.VerificationResult{
		Status:            prev.Status,
		Confidence:        prev.Confidence,
		Sources:           append([]string(nil), prev.Sources...),
		VerificationSteps: []string{"Réutilisation d'une vérification antérieure"},
		Notes:             prev.Notes,
		Timestamp:         prev.Timestamp,
	})
	return prev
}

// trusted reports whether a memory hit may stand in for a new verification
func (p *Pipeline) trusted(rec *memory.Record) bool {
	if !rec.Status.IsReusable() || rec.Similarity < p.threshold {
		return false
	}
	for _, s := range rec.Sources {
		s = strings.TrimSpace(s)
		if s != "" && !strings.EqualFold(s, UnverifiableSource) {
			return true
		}
	}
	return false
}

// inherit propagates a verified status forward along reasoning connections
func (p *Pipeline) inherit(ctx context.Context, thoughtType model.ThoughtType, connectedIDs []string) (*model.PreviousVerification, error) {
	unverified := &model.PreviousVerification{Status: model.StatusUnverified}
	if !thoughtType.InheritsVerification() || len(connectedIDs) == 0 || p.graph == nil {
		return unverified, nil
	}

	connected, err := p.graph.GetThoughts(ctx, connectedIDs)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		p.logger.Warn("connected thought lookup failed", "error", err)
		return unverified, nil
	}
	for _, t := range connected {
		if s := t.VerificationStatus(); s == model.StatusVerified || s == model.StatusPartiallyVerified {
			return &model.PreviousVerification{
				IsVerified: true,
				Status:     model.StatusPartiallyVerified,
				Confidence: inheritedConfidence,
				Notes:      fmt.Sprintf("Statut hérité de la pensée connectée %s.", t.ID),
			}, nil
		}
	}
	return unverified, nil
}
