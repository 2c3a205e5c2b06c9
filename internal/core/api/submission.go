package api

import (
	"context"
	"sort"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/solatis/condfield/internal/types"
	"github.com/solatis/condfield/internal/validation"
)

// ValidateSubmission checks {values} (a submitted form keyed by input name)
// against the controlling field named by "field", or against every
// controlling field when "field" is empty.
//
// When "required" lists the form's required inputs, the response also
// carries the inputs still required after hidden fields are dropped
// ("required") and the suppressed shortnames ("suppressed").
func (s *FieldService) ValidateSubmission(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if proto.Size(req) > types.MaxSnapshotSize {
		return nil, status.Error(codes.InvalidArgument, types.ErrSnapshotTooLarge.Error())
	}
	r := fieldsOf(req)
	values := validation.Values(r["values"].GetStructValue().AsMap())

	sup, err := s.store.Suppressor(ctx)
	if err != nil {
		return nil, toStatus(err)
	}

	targets := sup.Fields()
	if name := r.str("field"); name != "" {
		f, ok := sup.Field(name)
		if !ok {
			return nil, status.Errorf(codes.InvalidArgument, "%v: %q", types.ErrNotConditional, name)
		}
		targets = []validation.ControllingField{f}
	}

	locale := s.locale(ctx, r)
	var errs []interface{}
	var codesSeen []string
	for _, f := range targets {
		fieldErrs, err := sup.ValidateSubmission(f.Shortname, values)
		if err != nil {
			return nil, toStatus(err)
		}
		for _, fe := range fieldErrs {
			codesSeen = append(codesSeen, fe.Code)
			errs = append(errs, map[string]interface{}{
				"input":   fe.Input,
				"code":    fe.Code,
				"message": s.bundle.FieldMessage(locale, fe.Code, fe.Args.Field1, fe.Args.Value1, fe.Args.Field2),
				"field1":  fe.Args.Field1,
				"value1":  fe.Args.Value1,
				"field2":  fe.Args.Field2,
			})
		}
	}
	s.metrics.RecordSubmissionErrors(codesSeen...)

	out := map[string]interface{}{
		"valid":  len(errs) == 0,
		"errors": append([]interface{}{}, errs...),
	}

	if _, ok := r["required"]; ok {
		rules := &validation.RequiredRules{Required: r.strings("required")}
		suppressed := sup.SuppressRequired(rules, values)
		required := append([]string{}, rules.Required...)
		sort.Strings(required)
		out["required"] = toList(required)
		out["suppressed"] = toList(suppressed)
	}

	return structpb.NewStruct(out)
}
