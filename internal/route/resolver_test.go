package route

import (
	"testing"

	"NewsShell/internal/domain"
)

func TestResolveBrowserTargetDecisionOrder(t *testing.T) {
	t.Parallel()

	r := NewResolver(domain.MasterConfig{
		RootDomain:      "hankyung.com",
		AcceptedDomains: []string{"shop.hankyung.com", "partner.example.com"},
		ExternalDomains: []string{"youtube.com", "apps.apple.com", "partner.example.com/out"},
	})

	tests := []struct {
		url  string
		want domain.BrowserTarget
	}{
		{"https://shop.hankyung.com/x", domain.TargetInternalOverlay},
		{"https://m.shop.hankyung.com/cart", domain.TargetInternalOverlay},
		{"https://www.youtube.com/watch?v=1", domain.TargetExternalBrowser},
		{"https://apps.apple.com/kr/app/id1", domain.TargetExternalBrowser},
		{"https://partner.example.com/out/deal", domain.TargetExternalBrowser},
		{"https://partner.example.com/in", domain.TargetInternalOverlay},
		{"https://www.youtube.com/join?ref=app", domain.TargetCurrentSurface},
		{"https://www.youtube.com/member.join.do", domain.TargetCurrentSurface},
		{"https://join.youtube.com/promo", domain.TargetExternalBrowser},
		{"https://www.youtube.com/joinery/list", domain.TargetExternalBrowser},
		{"https://datacenter.hankyung.com/news/123", domain.TargetNewNativeScreen},
		{"https://www.example.org/detail/9", domain.TargetNewNativeScreen},
		{"https://www.example.org/view?aid=2024", domain.TargetNewNativeScreen},
		{"https://shop.hankyung.com/article/1", domain.TargetNewNativeScreen},
		{"https://www.hankyung.com/economy", domain.TargetCurrentSurface},
		{"https://www.example.org/", domain.TargetCurrentSurface},
		{"not a url", domain.TargetCurrentSurface},
	}

	for _, tt := range tests {
		if got := r.Resolve(tt.url); got != tt.want {
			t.Fatalf("resolve %q: expected %s, got %s", tt.url, tt.want, got)
		}
	}
}

func TestResolveExternalMatchIgnoresQuery(t *testing.T) {
	t.Parallel()

	r := NewResolver(domain.MasterConfig{ExternalDomains: []string{"youtube.com"}})
	if got := r.Resolve("https://www.example.org/share?to=youtube.com"); got != domain.TargetCurrentSurface {
		t.Fatalf("expected query text to be ignored, got %s", got)
	}
}

func TestResolvePrimaryDomainNeverOverlay(t *testing.T) {
	t.Parallel()

	r := NewResolver(domain.MasterConfig{
		RootDomain:      "hankyung.com",
		AcceptedDomains: []string{"hankyung.com"},
	})
	for _, u := range []string{"https://www.hankyung.com/economy", "https://hankyung.com/x", "https://stg-m.hankyung.com/y"} {
		if got := r.Resolve(u); got != domain.TargetCurrentSurface {
			t.Fatalf("resolve %q: expected current surface, got %s", u, got)
		}
	}
	if got := r.Resolve("https://shop.hankyung.com/x"); got != domain.TargetInternalOverlay {
		t.Fatalf("expected overlay for accepted subdomain, got %s", got)
	}
}

func TestResolveBrowserTargetHelper(t *testing.T) {
	t.Parallel()

	for _, u := range []string{"https://join.partner.com/promo", "https://partner.com/joinery/list"} {
		if got := ResolveBrowserTarget(u, nil, []string{"partner.com"}); got != domain.TargetExternalBrowser {
			t.Fatalf("resolve %q: expected external browser, got %s", u, got)
		}
	}

	got := ResolveBrowserTarget("https://shop.hankyung.com/x", []string{"shop.hankyung.com"}, nil)
	if got != domain.TargetInternalOverlay {
		t.Fatalf("expected internal overlay, got %s", got)
	}
}
