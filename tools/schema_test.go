package tools_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/petasbytes/shop-agent/tools"
)

func TestGenerateSchema_AddCart(t *testing.T) {
	s := tools.GenerateSchema[tools.AddCartInput]()
	want := tools.Schema{
		Properties: []tools.Property{
			{Name: "product_id", Type: "string", Description: "商品編號"},
			{Name: "qty", Type: "integer", Description: "數量"},
		},
		Required: []string{"product_id", "qty"},
	}
	if diff := cmp.Diff(want, s); diff != "" {
		t.Fatalf("schema (-want +got):\n%s", diff)
	}
}

func TestGenerateSchema_OptionalAndEmpty(t *testing.T) {
	type in struct {
		Keyword string `json:"keyword"`
		Limit   int    `json:"limit,omitempty"`
	}
	s := tools.GenerateSchema[in]()
	if diff := cmp.Diff([]string{"keyword"}, s.Required); diff != "" {
		t.Fatalf("required (-want +got):\n%s", diff)
	}
	if p, ok := s.Property("limit"); !ok || p.Type != "integer" {
		t.Fatalf("limit property: %+v %v", p, ok)
	}

	empty := tools.GenerateSchema[tools.ShowMenuInput]()
	if len(empty.Properties) != 0 || len(empty.Required) != 0 {
		t.Fatalf("empty input produced schema: %+v", empty)
	}
}

func TestSchema_MarshalKeepsPropertyOrder(t *testing.T) {
	s := tools.GenerateSchema[tools.SendOrderInput]()
	b, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	out := string(b)
	if i, j := strings.Index(out, `"receiver_name"`), strings.Index(out, `"address"`); i < 0 || j < 0 || i > j {
		t.Fatalf("property order lost: %s", out)
	}

	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m["type"] != "object" || m["additionalProperties"] != false {
		t.Fatalf("unexpected schema envelope: %v", m)
	}
	empty, _ := json.Marshal(tools.GenerateSchema[tools.ShowCartInput]())
	if !strings.Contains(string(empty), `"required":[]`) {
		t.Fatalf("empty schema should carry an empty required list: %s", empty)
	}
}
