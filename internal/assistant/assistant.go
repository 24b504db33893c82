// Package assistant orchestrates one conversational turn end to end:
// session load, normalization, intent extraction, context resolution,
// retrieval, and persistence. Stage failures degrade the turn instead of
// failing it wherever the conversation can still move forward.
package assistant

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"pet-search-assistant/internal/common/config"
	apperrors "pet-search-assistant/internal/common/errors"
	"pet-search-assistant/internal/common/logger"
	"pet-search-assistant/internal/common/metrics"
	"pet-search-assistant/internal/lexicon"
	"pet-search-assistant/internal/models"
	extractintent "pet-search-assistant/internal/pipeline/extract-intent"
	resolvecontext "pet-search-assistant/internal/pipeline/resolve-context"
	retrieveproducts "pet-search-assistant/internal/pipeline/retrieve-products"
	"pet-search-assistant/internal/sessionstore"
)

// IntentExtractor runs the extraction stage.
type IntentExtractor interface {
	Execute(ctx context.Context, input *extractintent.Input) (*extractintent.Output, error)
}

// ContextResolver merges a turn's partial intent into session state.
type ContextResolver interface {
	Execute(ctx context.Context, input *resolvecontext.Input) (*resolvecontext.Output, error)
}

// ProductRetriever runs the retrieval stage.
type ProductRetriever interface {
	Execute(ctx context.Context, input *retrieveproducts.Input) (*retrieveproducts.Output, error)
}

// ProfileBridge connects the conversation to durable customer records.
type ProfileBridge interface {
	SeedIntent(ctx context.Context, customerID string) (models.PartialIntent, error)
	SaveDeclaredAllergies(ctx context.Context, customerID string, allergies []string) error
}

const defaultProfileSaveTimeout = 5 * time.Second

type Config struct {
	// ProfileSaveTimeout bounds the fire-and-forget allergy write.
	ProfileSaveTimeout time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	return &Config{
		ProfileSaveTimeout: defaultProfileSaveTimeout,
	}
}

type Assistant struct {
	config    *Config
	store     sessionstore.Store
	extractor IntentExtractor
	resolver  ContextResolver
	retriever ProductRetriever
	profiles  ProfileBridge
	logger    logger.Logger
}

func New(
	config *Config,
	store sessionstore.Store,
	extractor IntentExtractor,
	resolver ContextResolver,
	retriever ProductRetriever,
	profiles ProfileBridge,
	log logger.Logger,
) *Assistant {
	return &Assistant{
		config:    config,
		store:     store,
		extractor: extractor,
		resolver:  resolver,
		retriever: retriever,
		profiles:  profiles,
		logger:    log.WithFields(map[string]interface{}{"component": "assistant"}),
	}
}

// HandleTurn processes one utterance. Turns for distinct sessions may run
// concurrently; concurrent turns on one session are a caller error.
func (a *Assistant) HandleTurn(ctx context.Context, sessionID, customerID, utterance string) (*models.TurnResult, error) {
	start := time.Now()

	if sessionID == "" {
		return nil, apperrors.NewInvalidRequestError("sessionId is required")
	}
	if utterance == "" {
		return nil, apperrors.NewInvalidRequestError("utterance is required")
	}

	log := a.logger.WithFields(map[string]interface{}{"sessionId": sessionID})

	state, err := a.loadOrCreateSession(ctx, sessionID, customerID, log)
	if err != nil {
		return nil, err
	}

	var degraded models.DegradedFlags
	tokens := lexicon.Normalize(utterance)

	partial := a.extract(ctx, utterance, tokens, &degraded, log)

	resolveOut, err := a.resolver.Execute(ctx, &resolvecontext.Input{
		Prior:       state.Intent,
		Partial:     partial,
		LastResults: state.LastResults,
	})
	if err != nil {
		// The resolver is pure; an error here is a programming defect.
		return nil, err
	}
	resolved := resolveOut.Resolved

	results := a.retrieve(ctx, resolved, &degraded, log)

	turn := models.Turn{
		ID:        uuid.New().String(),
		Utterance: utterance,
		Intent:    resolved,
		Results:   results,
		CreatedAt: time.Now().UTC(),
	}
	if err := a.store.AppendTurn(ctx, state, turn); err != nil {
		metrics.TurnsProcessed.WithLabelValues("error").Inc()
		return nil, apperrors.NewSessionSaveFailedError(sessionID, err)
	}

	if len(partial.DeclaredAllergies) > 0 && state.CustomerID != "" {
		a.saveAllergiesAsync(state.CustomerID, partial.DeclaredAllergies, log)
	}

	status := "ok"
	if degraded.Any() {
		status = "degraded"
	}
	metrics.TurnsProcessed.WithLabelValues(status).Inc()
	metrics.TurnDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())

	log.Info("turn completed", map[string]interface{}{
		"turnId":   turn.ID,
		"status":   status,
		"results":  len(results),
		"duration": time.Since(start).String(),
	})

	return &models.TurnResult{
		SessionID: sessionID,
		TurnID:    turn.ID,
		Intent:    resolved,
		Results:   results,
		Degraded:  degraded,
		Trace: &models.DebugTrace{
			Tokens:   traceTokens(tokens),
			Partial:  partial,
			Resolved: resolved,
		},
	}, nil
}

// Reset discards a session's accumulated state.
func (a *Assistant) Reset(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return apperrors.NewInvalidRequestError("sessionId is required")
	}
	if err := a.store.Reset(ctx, sessionID); err != nil {
		return apperrors.NewSessionSaveFailedError(sessionID, err)
	}
	return nil
}

// loadOrCreateSession fetches existing state or starts a session, seeding
// the initial intent from the customer profile when one is known. Seeding
// failures are optional enrichment and never block the turn.
func (a *Assistant) loadOrCreateSession(ctx context.Context, sessionID, customerID string, log logger.Logger) (*models.SessionState, error) {
	state, err := a.store.Get(ctx, sessionID)
	if err == nil {
		return state, nil
	}
	if !errors.Is(err, sessionstore.ErrSessionNotFound) {
		return nil, apperrors.NewSessionLoadFailedError(sessionID, err)
	}

	state = models.NewSessionState(sessionID)
	state.CustomerID = customerID
	if customerID == "" {
		return state, nil
	}

	seed, err := a.profiles.SeedIntent(ctx, customerID)
	if err != nil {
		metrics.StageFailures.WithLabelValues("profile-seed", "PROFILE_READ_FAILURE").Inc()
		log.WithError(err).Warn("profile seeding failed, starting cold", map[string]interface{}{
			"customerId": customerID,
		})
		return state, nil
	}
	if seed.Empty() {
		return state, nil
	}

	seeded, err := a.resolver.Execute(ctx, &resolvecontext.Input{
		Prior:   state.Intent,
		Partial: seed,
	})
	if err != nil {
		return nil, err
	}
	state.Intent = seeded.Resolved

	log.Info("session seeded from profile", map[string]interface{}{
		"customerId": customerID,
		"exclusions": len(state.Intent.Exclusions),
	})
	return state, nil
}

// extract runs the extraction stage, falling back to a keyword-only partial
// intent when the external capability is unavailable.
func (a *Assistant) extract(ctx context.Context, utterance string, tokens []lexicon.Token, degraded *models.DegradedFlags, log logger.Logger) models.PartialIntent {
	out, err := a.extractor.Execute(ctx, &extractintent.Input{
		Utterance: utterance,
		Tokens:    tokens,
	})
	if err == nil {
		return out.Partial
	}

	degraded.ExtractionFailed = true
	metrics.StageFailures.WithLabelValues(extractintent.StageName, errorCode(err)).Inc()
	log.WithError(err).Warn("extraction unavailable, degrading to keyword search", nil)

	// Keyword-only fallback: the utterance drives semantic search but no
	// structured constraints are invented.
	keywords := utterance
	return models.PartialIntent{Keywords: &keywords}
}

// retrieve runs the retrieval stage, flagging failure explicitly instead of
// passing off an empty result set as a zero-match search.
func (a *Assistant) retrieve(ctx context.Context, intent models.QueryIntent, degraded *models.DegradedFlags, log logger.Logger) models.ResultSet {
	out, err := a.retriever.Execute(ctx, &retrieveproducts.Input{Intent: intent})
	if err != nil {
		degraded.RetrievalFailed = true
		metrics.StageFailures.WithLabelValues(retrieveproducts.StageName, errorCode(err)).Inc()
		log.WithError(err).Warn("retrieval unavailable", nil)
		return models.ResultSet{}
	}
	return out.Results
}

func (a *Assistant) saveAllergiesAsync(customerID string, allergies []string, log logger.Logger) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), a.config.ProfileSaveTimeout)
		defer cancel()

		if err := a.profiles.SaveDeclaredAllergies(ctx, customerID, allergies); err != nil {
			metrics.ProfileSaves.WithLabelValues("error").Inc()
			log.WithError(err).Error("profile allergy save failed", map[string]interface{}{
				"errorCode":  "PROFILE_WRITE_FAILURE",
				"customerId": customerID,
			})
			return
		}
		metrics.ProfileSaves.WithLabelValues("ok").Inc()
	}()
}

func traceTokens(tokens []lexicon.Token) []models.TraceToken {
	out := make([]models.TraceToken, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, models.TraceToken{Canonical: t.Canonical, Negated: t.Negated})
	}
	return out
}

func errorCode(err error) string {
	if root := rootSentinel(err); root != "" {
		return root
	}
	return "INTERNAL_ERROR"
}

// rootSentinel surfaces the stage's sentinel code (the sentinels carry their
// code as the error message).
func rootSentinel(err error) string {
	for {
		u := errors.Unwrap(err)
		if u == nil {
			return err.Error()
		}
		err = u
	}
}
