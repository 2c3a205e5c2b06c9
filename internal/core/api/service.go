// Package api provides the gRPC authoring and validation service for
// conditional fields.
//
// Messages are google.protobuf.Struct values so the wire contract can be
// used from any gRPC client without generated stubs. Request and response
// keys follow the stored field vocabulary (fieldid, shortname, options,
// hideinitially, conditions).
package api

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/grpc/metadata"

	"github.com/solatis/condfield/internal/core/config"
	"github.com/solatis/condfield/internal/core/fieldcache"
	"github.com/solatis/condfield/internal/core/metrics"
	"github.com/solatis/condfield/internal/core/store"
	"github.com/solatis/condfield/internal/i18n"
	"github.com/solatis/condfield/internal/types"
	"github.com/solatis/condfield/internal/validation"
)

// Store is the persistence the service needs. Implemented by *store.Store.
type Store interface {
	GetField(ctx context.Context, id types.FieldID) (store.FieldDefinition, error)
	GetFieldByShortname(ctx context.Context, shortname string) (store.FieldDefinition, error)
	ListOtherFields(ctx context.Context, exclude types.FieldID) ([]types.FieldRecord, error)
	SaveDefinition(ctx context.Context, id types.FieldID, def store.Definition) (types.RevisionID, error)
	Suppressor(ctx context.Context) (*validation.Suppressor, error)
}

// FieldService implements FieldServiceServer.
// Thin orchestration layer delegating to store, conditions and validation.
type FieldService struct {
	store    Store
	sessions *fieldcache.Sessions
	bundle  *i18n.Bundle
	metrics  *metrics.Collector
	cfg      *config.Config
	logger   *slog.Logger
}

// maxEditorSessions bounds the open other-fields sessions.
const maxEditorSessions = 1024

// NewFieldService creates the service. collector and logger may be nil.
func NewFieldService(st Store, cfg *config.Config, bundle *i18n.Bundle, collector *metrics.Collector, logger *slog.Logger) (*FieldService, error) {
	if st == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if cfg == nil {
		return nil, fmt.Errorf("cfg cannot be nil")
	}
	if bundle == nil {
		bundle = i18n.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	var observer fieldcache.Observer
	if collector != nil {
		observer = collector
	}
	return &FieldService{
		store:    st,
		sessions: fieldcache.NewSessions(st, observer, cfg.Server.EditorSessionTTL, maxEditorSessions),
		bundle:   bundle,
		metrics:  collector,
		cfg:      cfg,
		logger:   logger,
	}, nil
}

// otherFields answers the other-fields lookup. Lookups carrying a "session"
// are memoized for that editing session; others always read the store.
func (s *FieldService) otherFields(ctx context.Context, req requestFields, id types.FieldID) ([]types.FieldRecord, error) {
	session := req.str("session")
	if session == "" {
		return s.store.ListOtherFields(ctx, id)
	}
	return s.sessions.For(session).OtherFields(ctx, id)
}

// locale picks the message locale: the request's "locale" key, then the
// accept-language metadata, then the configured default.
func (s *FieldService) locale(ctx context.Context, req requestFields) string {
	if l := req.str("locale"); l != "" {
		return l
	}
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get("accept-language"); len(vals) > 0 && vals[0] != "" {
			return vals[0]
		}
	}
	return s.cfg.Locale
}

// field resolves the field named by "fieldid" or, failing that,
// "shortname".
func (s *FieldService) field(ctx context.Context, req requestFields) (store.FieldDefinition, error) {
	if id, ok := req.fieldID(); ok {
		return s.store.GetField(ctx, id)
	}
	if sn := req.str("shortname"); sn != "" {
		return s.store.GetFieldByShortname(ctx, sn)
	}
	return store.FieldDefinition{}, fmt.Errorf("%w: fieldid or shortname required", types.ErrEmptyFieldID)
}
