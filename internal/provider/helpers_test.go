package provider_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/petasbytes/shop-agent/memory"
	"github.com/petasbytes/shop-agent/tools"
)

type capture struct {
	method string
	url    string
	body   []byte
}

type fakeTransport struct {
	respStatus int
	respBody   []byte
	err        error
	captured   *capture
}

func (f *fakeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var b []byte
	if req.Body != nil {
		b, _ = io.ReadAll(req.Body)
		_ = req.Body.Close()
	}
	if f.captured != nil {
		f.captured.method = req.Method
		f.captured.url = req.URL.String()
		f.captured.body = b
	}
	if f.err != nil {
		return nil, f.err
	}
	resp := &http.Response{
		StatusCode: f.respStatus,
		Body:       io.NopCloser(bytes.NewReader(f.respBody)),
		Header:     make(http.Header),
		Request:    req,
	}
	resp.Header.Set("Content-Type", "application/json")
	return resp, nil
}

func httpClient(rt http.RoundTripper) *http.Client {
	return &http.Client{Transport: rt}
}

// transcript is a conversation that already went through one tool round.
func transcript() []memory.Message {
	return []memory.Message{
		memory.SystemMessage("你是小美"),
		memory.UserMessage("有賣培根蛋餅嗎"),
		memory.AssistantToolCallMessage("", []memory.ToolCall{
			{ID: "call_1", Name: "search_products", Arguments: `{"keyword":"培根蛋餅"}`},
			{ID: "call_2", Name: "delete_everything", Arguments: `{}`},
		}),
		memory.ToolMessage("call_1", "search_products", `[{"price":45,"product_id":"A1","qty":20,"title":"培根蛋餅"}]`),
		memory.ToolMessage("call_2", "delete_everything", `{"error":{"code":"unknown_tool","message":"unknown tool \"delete_everything\""}}`),
	}
}

func declarations() []tools.Declaration {
	r, err := tools.NewShopRegistry(nil, nil)
	if err != nil {
		panic(err)
	}
	return r.Declarations()
}

func decodeBody(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		t.Fatalf("request body is not JSON: %v\n%s", err, body)
	}
	return m
}
