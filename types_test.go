package oboe

import (
	"net/http"
	"net/url"
	"testing"
)

func TestQueryKeyHash(t *testing.T) {
	if (QueryKey{"users", "1"}).Hash() != (QueryKey{"users", "1"}).Hash() {
		t.Error("Expected equal keys to hash equally")
	}

	distinct := []QueryKey{
		{"users", "1"},
		{"users1"},
		{"users", "", "1"},
		{"users,1"},
		{`users","1`},
		{},
	}
	seen := make(map[string]QueryKey)
	for _, k := range distinct {
		h := k.Hash()
		if prev, ok := seen[h]; ok {
			t.Errorf("Expected %v and %v to hash differently, both got %s", prev, k, h)
		}
		seen[h] = k
	}
}

func TestQueryKeyScope(t *testing.T) {
	tests := []struct {
		key  QueryKey
		want string
	}{
		{QueryKey{"users", "42"}, "users"},
		{QueryKey{"users"}, "users"},
		{QueryKey{"", "42"}, "unknown"},
		{nil, "unknown"},
	}

	for _, tt := range tests {
		if got := tt.key.Scope(); got != tt.want {
			t.Errorf("Expected %v scope %q, got %q", tt.key, tt.want, got)
		}
	}
}

func TestQueryKeyHasPrefix(t *testing.T) {
	key := QueryKey{"users", "1", "posts"}

	tests := []struct {
		prefix QueryKey
		want   bool
	}{
		{nil, true},
		{QueryKey{"users"}, true},
		{QueryKey{"users", "1"}, true},
		{QueryKey{"users", "1", "posts"}, true},
		{QueryKey{"users", "2"}, false},
		{QueryKey{"use"}, false},
		{QueryKey{"users", "1", "posts", "x"}, false},
	}
	for _, tt := range tests {
		if got := key.HasPrefix(tt.prefix); got != tt.want {
			t.Errorf("Expected HasPrefix(%v)=%v, got %v", tt.prefix, tt.want, got)
		}
	}
}

func TestQueryKeyString(t *testing.T) {
	if got := (QueryKey{"users", "1"}).String(); got != "[users 1]" {
		t.Errorf("Expected [users 1], got %s", got)
	}
}

func TestStatusString(t *testing.T) {
	tests := map[Status]string{
		StatusIdle:    "idle",
		StatusPending: "pending",
		StatusSuccess: "success",
		StatusError:   "error",
		Status(99):    "unknown",
	}
	for status, want := range tests {
		if got := status.String(); got != want {
			t.Errorf("Expected %s, got %s", want, got)
		}
	}
}

func TestRequestClone(t *testing.T) {
	original := &Request{
		Method: http.MethodGet,
		Path:   "/users",
		Query:  url.Values{"page": {"1"}},
		Header: http.Header{"X-A": {"1"}},
	}

	clone := original.Clone()
	clone.Path = "/other"
	clone.Query.Set("page", "2")
	clone.Header.Set("X-A", "2")

	if original.Path != "/users" {
		t.Errorf("Expected original path untouched, got %s", original.Path)
	}
	if original.Query.Get("page") != "1" {
		t.Errorf("Expected original query untouched, got %s", original.Query.Get("page"))
	}
	if original.Header.Get("X-A") != "1" {
		t.Errorf("Expected original header untouched, got %s", original.Header.Get("X-A"))
	}

	var nilReq *Request
	if nilReq.Clone() != nil {
		t.Error("Expected nil clone of nil request")
	}
}
