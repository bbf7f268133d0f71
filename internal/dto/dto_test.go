package dto_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"pipeconsole/internal/domain"
	"pipeconsole/internal/dto"
	"pipeconsole/internal/fixtures"
	"pipeconsole/internal/wire"
)

func roundTrip[T any](t *testing.T, s *wire.Schema, in *T) {
	t.Helper()
	msg, err := dto.Marshal(s, in)
	if err != nil {
		t.Fatalf("marshal %s: %v", s.Name, err)
	}
	out, err := dto.ProjectAs[T](s, msg)
	if err != nil {
		t.Fatalf("project %s: %v", s.Name, err)
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Fatalf("%s round trip mismatch (-want +got):\n%s", s.Name, diff)
	}

	data, err := dto.Encode(s, in)
	if err != nil {
		t.Fatalf("encode %s: %v", s.Name, err)
	}
	decoded := new(T)
	if err := dto.Decode(s, data, decoded); err != nil {
		t.Fatalf("decode %s: %v", s.Name, err)
	}
	if diff := cmp.Diff(in, decoded); diff != "" {
		t.Fatalf("%s wire round trip mismatch (-want +got):\n%s", s.Name, diff)
	}
}

func TestRoundTripApplications(t *testing.T) {
	for kind, app := range fixtures.Applications() {
		t.Run(kind.String(), func(t *testing.T) {
			roundTrip(t, domain.ApplicationSchema, app)
		})
	}
}

func TestRoundTripFixtures(t *testing.T) {
	set := fixtures.NewSet()
	roundTrip(t, domain.EnvironmentSchema, set.Environment)
	roundTrip(t, domain.PipedSchema, set.Piped)
	for _, d := range set.Deployments {
		roundTrip(t, domain.DeploymentSchema, d)
	}
	for _, e := range set.Events {
		roundTrip(t, domain.EventSchema, e)
	}
	for _, b := range fixtures.LogBlocks(4) {
		roundTrip(t, domain.LogBlockSchema, b)
	}
	roundTrip(t, domain.CommandSchema, fixtures.Command(domain.CommandTypeApproveStage))
}

func TestOptionalNestingOmission(t *testing.T) {
	app := fixtures.Application()
	app.MostRecentlySuccessfulDeployment = nil
	app.SyncState = nil

	msg, err := dto.Marshal(domain.ApplicationSchema, app)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if msg.Has("mostRecentlySuccessfulDeployment") || msg.Has("syncState") {
		t.Fatalf("absent nested field was set on the message")
	}
	if !msg.Has("mostRecentlyTriggeredDeployment") {
		t.Fatalf("present nested field was dropped")
	}
	back, err := dto.ProjectAs[domain.Application](domain.ApplicationSchema, msg)
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	if back.MostRecentlySuccessfulDeployment != nil {
		t.Fatalf("absent reference surfaced as %+v", back.MostRecentlySuccessfulDeployment)
	}
	obj := dto.ProjectObject(msg)
	if _, ok := obj["mostRecentlySuccessfulDeployment"]; ok {
		t.Fatalf("absent reference present in object form")
	}
}

func TestLabelMapFidelity(t *testing.T) {
	forms := map[string]any{
		"pairs":   [][]string{{"env", "prod"}, {"team", "core"}},
		"json":    []any{[]any{"team", "core"}, []any{"env", "prod"}},
		"map":     map[string]string{"team": "core", "env": "prod"},
		"dynamic": map[string]any{"env": "prod", "team": "core"},
	}
	want := map[string]string{"env": "prod", "team": "core"}
	for name, labels := range forms {
		t.Run(name, func(t *testing.T) {
			msg, err := dto.Marshal(domain.ApplicationSchema, dto.Object{"id": "app-1", "labelsMap": labels})
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			app, err := dto.ProjectAs[domain.Application](domain.ApplicationSchema, msg)
			if err != nil {
				t.Fatalf("project: %v", err)
			}
			if diff := cmp.Diff(want, app.Labels); diff != "" {
				t.Fatalf("labels mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRepeatedOrderPreserved(t *testing.T) {
	stage := &domain.PipelineStage{ID: "s", Requires: []string{"c", "a", "b"}, Metadata: map[string]string{}}
	msg, err := dto.Marshal(domain.PipelineStageSchema, stage)
	if err != nil {
		t.Fatal(err)
	}
	got := msg.GetList("requiresList")
	if len(got) != 3 || got[0] != "c" || got[1] != "a" || got[2] != "b" {
		t.Fatalf("order lost: %v", got)
	}
}

func TestEmptyCollectionsProjectAsEmpty(t *testing.T) {
	msg := wire.NewMessage(domain.DeploymentSchema)
	if err := msg.Set("id", "d-1"); err != nil {
		t.Fatal(err)
	}
	d, err := dto.ProjectAs[domain.Deployment](domain.DeploymentSchema, msg)
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	if d.Stages == nil || len(d.Stages) != 0 {
		t.Fatalf("stages should be empty, got %#v", d.Stages)
	}
	if d.Labels == nil || d.Metadata == nil {
		t.Fatalf("maps should be empty, not nil")
	}
	if d.Trigger != nil || d.GitPath != nil {
		t.Fatalf("unset nested fields should stay nil")
	}
}

func TestShapeMismatch(t *testing.T) {
	type partial struct {
		ID string `json:"id"`
	}
	type extra struct {
		domain.LogBlock
		Extra string `json:"extra"`
	}
	cases := []struct {
		name   string
		schema *wire.Schema
		plain  any
	}{
		{"missing required", domain.ApplicationSchema, dto.Object{"name": "x"}},
		{"unknown field", domain.ApplicationSchema, dto.Object{"id": "x", "color": "red"}},
		{"wrong kind", domain.ApplicationSchema, dto.Object{"id": "x", "kind": "KUBERNETES"}},
		{"fractional enum", domain.ApplicationSchema, dto.Object{"id": "x", "kind": 1.5}},
		{"list for scalar", domain.ApplicationSchema, dto.Object{"id": "x", "name": []string{"a"}}},
		{"struct lacks fields", domain.ApplicationSchema, &partial{ID: "x"}},
		{"struct has extra field", domain.LogBlockSchema, &extra{Extra: "y"}},
		{"nil element", domain.DeploymentSchema, &domain.Deployment{ID: "d", Stages: []*domain.PipelineStage{nil}}},
		{"not an object", domain.ApplicationSchema, "app"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := dto.Marshal(tc.schema, tc.plain)
			if !dto.IsShapeMismatch(err) {
				t.Fatalf("expected ShapeMismatch, got %v", err)
			}
		})
	}
}

func TestAbsentRequiredNesting(t *testing.T) {
	inner := wire.NewSchema("test.Inner", wire.String(1, "name"))
	outer := wire.NewSchema("test.Outer",
		wire.String(1, "id"),
		wire.Required(wire.Nested(2, "inner", inner)),
	)
	type innerT struct {
		Name string `json:"name"`
	}
	type outerT struct {
		ID    string  `json:"id"`
		Inner *innerT `json:"inner"`
	}

	_, err := dto.Marshal(outer, &outerT{ID: "o"})
	if !errors.Is(err, dto.ErrAbsentRequiredNesting) {
		t.Fatalf("struct: expected ErrAbsentRequiredNesting, got %v", err)
	}
	_, err = dto.Marshal(outer, dto.Object{"id": "o"})
	if !errors.Is(err, dto.ErrAbsentRequiredNesting) {
		t.Fatalf("object: expected ErrAbsentRequiredNesting, got %v", err)
	}
	if !dto.IsShapeMismatch(err) {
		t.Fatalf("absent required nesting should be a ShapeMismatch")
	}
	if _, err := dto.Marshal(outer, &outerT{ID: "o", Inner: &innerT{Name: "n"}}); err != nil {
		t.Fatalf("present nesting: %v", err)
	}
}

func TestMarshalDecodedJSON(t *testing.T) {
	raw := `{
		"id": "d-1",
		"status": 2,
		"kind": 3,
		"labelsMap": [["env", "prod"]],
		"stagesList": [{"id": "s-1", "index": 1, "requiresList": []}],
		"trigger": {"commander": "me", "timestamp": 1700000000}
	}`
	var obj dto.Object
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		t.Fatal(err)
	}
	msg, err := dto.Marshal(domain.DeploymentSchema, obj)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	d, err := dto.ProjectAs[domain.Deployment](domain.DeploymentSchema, msg)
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	if d.Status != domain.DeploymentStatusRunning || d.Kind != domain.ApplicationKindLambda {
		t.Fatalf("enums not copied: %v %v", d.Status, d.Kind)
	}
	if len(d.Stages) != 1 || d.Stages[0].Index != 1 {
		t.Fatalf("stages not copied: %+v", d.Stages)
	}
	if d.Trigger == nil || d.Trigger.Commit != nil || d.Trigger.Timestamp != 1700000000 {
		t.Fatalf("trigger not copied: %+v", d.Trigger)
	}
}

func TestProjectObject(t *testing.T) {
	msg := fixtures.MustMessage(domain.EventSchema, &domain.Event{ID: "e-1", Labels: map[string]string{"a": "b"}})
	obj := dto.ProjectObject(msg)
	if obj["id"] != "e-1" || obj["status"] != int32(0) || obj["handledAt"] != int64(0) {
		t.Fatalf("unexpected scalars: %v", obj)
	}
	if diff := cmp.Diff(map[string]string{"a": "b"}, obj["labelsMap"]); diff != "" {
		t.Fatalf("labels mismatch:\n%s", diff)
	}

	var out dto.Object
	if err := dto.Project(domain.EventSchema, msg, &out); err != nil {
		t.Fatalf("project into object: %v", err)
	}
	if diff := cmp.Diff(obj, out); diff != "" {
		t.Fatalf("object forms differ:\n%s", diff)
	}
	again, err := dto.Marshal(domain.EventSchema, out)
	if err != nil {
		t.Fatalf("marshal object form: %v", err)
	}
	if !wire.Equal(msg, again) {
		t.Fatalf("object form does not round trip")
	}
}

func TestProjectRejectsForeignSchema(t *testing.T) {
	msg := fixtures.MustMessage(domain.EventSchema, fixtures.Event())
	var app domain.Application
	if err := dto.Project(domain.ApplicationSchema, msg, &app); !dto.IsShapeMismatch(err) {
		t.Fatalf("expected ShapeMismatch, got %v", err)
	}
}

func TestMarshalAdoptsBuiltMessage(t *testing.T) {
	msg := fixtures.MustMessage(domain.EventSchema, fixtures.Event())
	got, err := dto.Marshal(domain.EventSchema, msg)
	if err != nil || got != msg {
		t.Fatalf("expected the same message back, got %v", err)
	}
}
