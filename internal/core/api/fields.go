package api

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/solatis/condfield/internal/conditions"
	"github.com/solatis/condfield/internal/core/metrics"
	"github.com/solatis/condfield/internal/core/store"
	"github.com/solatis/condfield/internal/types"
)

// GetOtherFields returns every field except the one named in the request,
// as {fields: [{id, shortname, name}]}. An optional "session" names the
// editing dialog whose lookups may be reused.
func (s *FieldService) GetOtherFields(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r := fieldsOf(req)
	id, ok := r.fieldID()
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "fieldid must be a positive integer")
	}

	fields, err := s.otherFields(ctx, r, id)
	if err != nil {
		return nil, toStatus(err)
	}

	list := make([]interface{}, 0, len(fields))
	for _, f := range fields {
		list = append(list, map[string]interface{}{
			"id":        float64(f.ID),
			"shortname": f.Shortname,
			"name":      f.Name,
		})
	}
	return structpb.NewStruct(map[string]interface{}{"fields": list})
}

// GetConditions returns the stored configuration of a conditional field.
// A stored configuration that no longer parses is returned as an empty
// list, matching what forms render with.
func (s *FieldService) GetConditions(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f, err := s.field(ctx, fieldsOf(req))
	if err != nil {
		return nil, toStatus(err)
	}
	if !f.IsConditional() {
		return nil, status.Errorf(codes.InvalidArgument, "field %q is not conditional", f.Shortname)
	}

	set := conditions.ParseOrEmpty(f.Conditions, f.Shortname, s.logger)
	encoded, err := set.MarshalJSON()
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	var conds []interface{}
	if err := json.Unmarshal(encoded, &conds); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}

	out := map[string]interface{}{
		"fieldid":        float64(f.ID),
		"shortname":      f.Shortname,
		"name":           f.Name,
		"options":        toList(f.OptionList()),
		"hideinitially":  f.HideInitially,
		"conditions":     conds,
		"requiredmarkup": s.cfg.Engine.RequiredMarkup,
	}
	if f.RevisionID.Valid {
		rev := types.RevisionID(f.RevisionID.String)
		out["revisionid"] = string(rev)
		if at := rev.Time(); !at.IsZero() {
			out["revisionsaved"] = at.Format(time.RFC3339)
		}
	}
	return structpb.NewStruct(out)
}

// SaveDefinition validates and stores {fieldid, options, hideinitially,
// conditions}. conditions may be a JSON string or a list. Rejected
// configurations return INVALID_ARGUMENT with an {errors: [...]} detail
// carrying each code and its localized message. A successful save ends the
// request's "session", if any.
func (s *FieldService) SaveDefinition(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r := fieldsOf(req)
	id, ok := r.fieldID()
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "fieldid must be a positive integer")
	}
	raw, err := r.rawJSON("conditions")
	if err != nil {
		return nil, toStatus(err)
	}

	rev, err := s.store.SaveDefinition(ctx, id, store.Definition{
		Options:       r.str("options"),
		HideInitially: r.boolean("hideinitially"),
		Conditions:    raw,
	})

	var derrs conditions.DefinitionErrors
	switch {
	case errors.As(err, &derrs):
		s.metrics.RecordSave(metrics.SaveInvalid, derrs.Codes()...)
		return nil, s.definitionStatus(s.locale(ctx, r), derrs)
	case err != nil:
		s.metrics.RecordSave(metrics.SaveError)
		return nil, toStatus(err)
	}

	s.metrics.RecordSave(metrics.SaveOK)
	// A successful save closes the editing dialog.
	if session := r.str("session"); session != "" {
		s.sessions.End(session)
	}
	return structpb.NewStruct(map[string]interface{}{
		"fieldid":    float64(id),
		"revisionid": string(rev),
	})
}

func (s *FieldService) definitionStatus(locale string, derrs conditions.DefinitionErrors) error {
	list := make([]interface{}, 0, len(derrs))
	seen := make(map[string]bool)
	var summary string
	for _, e := range derrs {
		msg := s.bundle.Message(locale, e.Code)
		item := map[string]interface{}{"code": e.Code, "message": msg}
		if e.Option != "" {
			item["option"] = e.Option
		}
		if e.Field != "" {
			item["field"] = e.Field
		}
		list = append(list, item)
		if !seen[e.Code] {
			seen[e.Code] = true
			if summary != "" {
				summary += " "
			}
			summary += msg
		}
	}

	st := status.New(codes.InvalidArgument, summary)
	detail, err := structpb.NewStruct(map[string]interface{}{"errors": list})
	if err != nil {
		return st.Err()
	}
	if withDetail, err := st.WithDetails(detail); err == nil {
		return withDetail.Err()
	}
	return st.Err()
}
