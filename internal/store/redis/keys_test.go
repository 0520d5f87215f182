package redis

import (
	"reflect"
	"testing"
)

func TestResolveKey(t *testing.T) {
	key := ResolveKey("redirect:https://pandabuy.page.link/abc")
	if key != "linkwrap:resolve:redirect:https://pandabuy.page.link/abc" {
		t.Errorf("ResolveKey() = %q", key)
	}

	got, ok := ExtractResolveKey(key)
	if !ok || got != "redirect:https://pandabuy.page.link/abc" {
		t.Errorf("ExtractResolveKey(%q) = %q, %v", key, got, ok)
	}

	for _, bad := range []string{"", KeyPrefixResolve, "jump:cache:x"} {
		if _, ok := ExtractResolveKey(bad); ok {
			t.Errorf("ExtractResolveKey(%q) should fail", bad)
		}
	}
}

func TestResolutionNames(t *testing.T) {
	keys := []string{
		ResolveKey("redirect:https://pandabuy.page.link/abc"),
		"other:app:key",
		KeyPrefixResolve,
		ResolveKey("origin:hoobuy:42"),
	}
	want := []string{"redirect:https://pandabuy.page.link/abc", "origin:hoobuy:42"}
	if got := resolutionNames(keys); !reflect.DeepEqual(got, want) {
		t.Errorf("resolutionNames() = %v, want %v", got, want)
	}
	if got := resolutionNames(nil); got == nil || len(got) != 0 {
		t.Errorf("resolutionNames(nil) = %#v, want empty", got)
	}
}
