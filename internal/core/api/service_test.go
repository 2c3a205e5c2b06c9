package api

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/solatis/condfield/internal/core/config"
	"github.com/solatis/condfield/internal/core/db"
	"github.com/solatis/condfield/internal/core/metrics"
	"github.com/solatis/condfield/internal/core/store"
	"github.com/solatis/condfield/internal/i18n"
	"github.com/solatis/condfield/internal/types"
)

const contactConditions = `[{"option":"A","requiredfields":["phone"],"hiddenfields":[],"hiddenclearedfields":[]},` +
	`{"option":"B","requiredfields":[],"hiddenfields":["phone"],"hiddenclearedfields":["nickname"]}]`

type fixture struct {
	svc     *FieldService
	store   *store.Store
	metrics *metrics.Collector
	contact types.FieldID
	phone   types.FieldID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	database, queries, err := db.Setup(ctx, "sqlite://"+filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	st := store.New(queries, nil)
	phone, err := st.CreateField(ctx, store.NewField{Shortname: "phone", Name: "Phone", Datatype: "text", SortOrder: 2})
	require.NoError(t, err)
	_, err = st.CreateField(ctx, store.NewField{Shortname: "nickname", Name: "Nickname", Datatype: "text", SortOrder: 3})
	require.NoError(t, err)
	contact, err := st.CreateField(ctx, store.NewField{
		Shortname:  "contact",
		Name:       "Contact",
		Datatype:   types.DatatypeConditional,
		Options:    "A\nB",
		Conditions: contactConditions,
		SortOrder:  1,
	})
	require.NoError(t, err)

	collector := metrics.NewCollector("", "", nil)
	svc, err := NewFieldService(st, config.DefaultConfig(), i18n.Default(), collector, nil)
	require.NoError(t, err)
	return &fixture{svc: svc, store: st, metrics: collector, contact: contact, phone: phone}
}

func request(t *testing.T, m map[string]interface{}) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return s
}

func TestGetOtherFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.svc.GetOtherFields(ctx, request(t, map[string]interface{}{"fieldid": float64(f.contact)}))
	require.NoError(t, err)

	fields := resp.AsMap()["fields"].([]interface{})
	require.Len(t, fields, 2)
	assert.Equal(t, "phone", fields[0].(map[string]interface{})["shortname"])
	assert.Equal(t, "Nickname", fields[1].(map[string]interface{})["name"])

	_, err = f.svc.GetOtherFields(ctx, request(t, map[string]interface{}{"fieldid": float64(f.contact), "session": "dlg"}))
	require.NoError(t, err)
	_, err = f.svc.GetOtherFields(ctx, request(t, map[string]interface{}{"fieldid": float64(f.contact), "session": "dlg"}))
	require.NoError(t, err)
	hits, err := testutil.GatherAndCount(f.metrics.Registry(), "condfield_server_cache_hits_total")
	require.NoError(t, err)
	assert.Equal(t, 1, hits, "second lookup in a session served from cache")

	_, err = f.svc.GetOtherFields(ctx, request(t, map[string]interface{}{"fieldid": 1.5}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestGetOtherFields_SeesNewFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	count := func(m map[string]interface{}) int {
		t.Helper()
		resp, err := f.svc.GetOtherFields(ctx, request(t, m))
		require.NoError(t, err)
		return len(resp.AsMap()["fields"].([]interface{}))
	}
	plain := map[string]interface{}{"fieldid": float64(f.contact)}
	open := map[string]interface{}{"fieldid": float64(f.contact), "session": "dlg-1"}

	require.Equal(t, 2, count(plain))
	require.Equal(t, 2, count(open))

	_, err := f.store.CreateField(ctx, store.NewField{Shortname: "email", Name: "Email", Datatype: "text", SortOrder: 4})
	require.NoError(t, err)

	assert.Equal(t, 3, count(plain), "lookups without a session always read the store")
	assert.Equal(t, 2, count(open), "an open dialog keeps its lookup")
	assert.Equal(t, 3, count(map[string]interface{}{"fieldid": float64(f.contact), "session": "dlg-2"}), "a new dialog sees the new field")

	_, err = f.svc.SaveDefinition(ctx, request(t, map[string]interface{}{
		"fieldid":    float64(f.contact),
		"options":    "A\nB",
		"conditions": contactConditions,
		"session":    "dlg-1",
	}))
	require.NoError(t, err)
	assert.Equal(t, 3, count(open), "saving ends the dialog's session")
}

func TestGetConditions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.svc.GetConditions(ctx, request(t, map[string]interface{}{"shortname": "contact"}))
	require.NoError(t, err)
	m := resp.AsMap()
	assert.Equal(t, []interface{}{"A", "B"}, m["options"])
	assert.Equal(t, false, m["hideinitially"])
	assert.NotEmpty(t, m["revisionid"])
	assert.NotEmpty(t, m["revisionsaved"])
	conds := m["conditions"].([]interface{})
	require.Len(t, conds, 2)
	assert.Equal(t, "B", conds[1].(map[string]interface{})["option"])

	_, err = f.svc.GetConditions(ctx, request(t, map[string]interface{}{"fieldid": float64(f.phone)}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = f.svc.GetConditions(ctx, request(t, map[string]interface{}{"fieldid": 4242.0}))
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = f.svc.GetConditions(ctx, request(t, map[string]interface{}{}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestSaveDefinition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.svc.SaveDefinition(ctx, request(t, map[string]interface{}{
		"fieldid":       float64(f.contact),
		"options":       "A\nB",
		"hideinitially": true,
		"conditions": []interface{}{
			map[string]interface{}{"option": "A", "requiredfields": []interface{}{"phone"}},
			map[string]interface{}{"option": "B", "hiddenfields": []interface{}{"phone"}},
		},
	}))
	require.NoError(t, err)
	rev := resp.AsMap()["revisionid"].(string)
	_, err = types.ParseRevisionID(rev)
	assert.NoError(t, err)

	stored, err := f.store.GetField(ctx, f.contact)
	require.NoError(t, err)
	assert.True(t, stored.HideInitially)
	saves, err := testutil.GatherAndCount(f.metrics.Registry(), "condfield_server_definition_saves_total")
	require.NoError(t, err)
	assert.Equal(t, 1, saves)
}

func TestSaveDefinition_Rejected(t *testing.T) {
	f := newFixture(t)
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("accept-language", "en-US"))

	_, err := f.svc.SaveDefinition(ctx, request(t, map[string]interface{}{
		"fieldid":    float64(f.contact),
		"options":    "A",
		"conditions": `[{"option":"A","requiredfields":["phone"],"hiddenfields":["phone"]}]`,
	}))
	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, codes.InvalidArgument, st.Code())
	assert.Contains(t, st.Message(), "required field that you set to be hidden")

	require.Len(t, st.Details(), 1)
	detail := st.Details()[0].(*structpb.Struct).AsMap()
	errs := detail["errors"].([]interface{})
	require.NotEmpty(t, errs)
	first := errs[0].(map[string]interface{})
	assert.Equal(t, "hiddenrequired", first["code"])
	assert.Equal(t, "A", first["option"])
}

func TestValidateSubmission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("required absent", func(t *testing.T) {
		resp, err := f.svc.ValidateSubmission(ctx, request(t, map[string]interface{}{
			"field":  "contact",
			"values": map[string]interface{}{"profile_field_contact": "A"},
		}))
		require.NoError(t, err)
		m := resp.AsMap()
		assert.Equal(t, false, m["valid"])
		errs := m["errors"].([]interface{})
		require.Len(t, errs, 1)
		e := errs[0].(map[string]interface{})
		assert.Equal(t, "requiredbycondition2", e["code"])
		assert.Equal(t, "profile_field_contact", e["input"])
		assert.Equal(t, "Please fill the Phone field. It cannot be left empty based on the value you selected here.", e["message"])
	})

	t.Run("required empty", func(t *testing.T) {
		resp, err := f.svc.ValidateSubmission(ctx, request(t, map[string]interface{}{
			"values": map[string]interface{}{"profile_field_contact": "A", "profile_field_phone": ""},
		}))
		require.NoError(t, err)
		e := resp.AsMap()["errors"].([]interface{})[0].(map[string]interface{})
		assert.Equal(t, "requiredbycondition1", e["code"])
		assert.Equal(t, "profile_field_phone", e["input"])
		assert.Equal(t, "This field cannot be left empty when Contact is A", e["message"])
	})

	t.Run("zero is filled", func(t *testing.T) {
		resp, err := f.svc.ValidateSubmission(ctx, request(t, map[string]interface{}{
			"field":  "contact",
			"values": map[string]interface{}{"profile_field_contact": "A", "profile_field_phone": "0"},
		}))
		require.NoError(t, err)
		assert.Equal(t, true, resp.AsMap()["valid"])
	})

	t.Run("hidden fields suppress required", func(t *testing.T) {
		resp, err := f.svc.ValidateSubmission(ctx, request(t, map[string]interface{}{
			"field":    "contact",
			"values":   map[string]interface{}{"profile_field_contact": "B"},
			"required": []interface{}{"profile_field_phone", "profile_field_nickname", "profile_field_email"},
		}))
		require.NoError(t, err)
		m := resp.AsMap()
		assert.Equal(t, true, m["valid"])
		assert.Equal(t, []interface{}{"profile_field_email"}, m["required"])
		assert.Equal(t, []interface{}{"nickname", "phone"}, m["suppressed"])
	})

	t.Run("extra data", func(t *testing.T) {
		resp, err := f.svc.ValidateSubmission(ctx, request(t, map[string]interface{}{
			"field":  "contact",
			"values": map[string]interface{}{"profile_field_contact": "B", "profile_field_phone": "555"},
			"locale": "en",
		}))
		require.NoError(t, err)
		e := resp.AsMap()["errors"].([]interface{})[0].(map[string]interface{})
		assert.Equal(t, "extradata", e["code"])
	})

	t.Run("unknown controlling field", func(t *testing.T) {
		_, err := f.svc.ValidateSubmission(ctx, request(t, map[string]interface{}{"field": "phone"}))
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
	})
}
