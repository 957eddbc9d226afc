package adapters

import (
	"strings"
	"testing"
)

const vnexpressPage = `<html><head><title>VnExpress</title></head><body>
<div class="header">Mới nhất Thời sự Góc nhìn</div>
<h1 class="title-detail">Việt Nam mua 500 máy bay</h1>
<p class="description">Hãng hàng không quốc gia ký hợp đồng mua 500 máy bay trong năm 2024.</p>
<article class="fck_detail">
  <p class="Normal">Hợp đồng được ký tại Hà Nội ngày 12/5.</p>
  <figure><figcaption>Ảnh: minh họa</figcaption></figure>
  <p class="Normal">Tổng giá trị hợp đồng khoảng 1,2 tỷ USD.</p>
  <p class="Normal"><strong>Minh An</strong></p>
</article>
<script>var ads = 1;</script>
</body></html>`

func TestNewsAdapter_VnExpress(t *testing.T) {
	r := NewRegistry()
	article, name, err := r.Extract(vnexpressPage, "https://vnexpress.net/viet-nam-mua-500-may-bay-123.html", "text/html")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if name != "vnexpress" {
		t.Errorf("expected vnexpress adapter, got %s", name)
	}
	if article.Title != "Việt Nam mua 500 máy bay" {
		t.Errorf("unexpected title: %q", article.Title)
	}

	lines := strings.Split(article.Content, "\n")
	if len(lines) != 4 {
		t.Fatalf("expected sapo + 3 paragraphs, got %d: %q", len(lines), article.Content)
	}
	if !strings.HasPrefix(lines[0], "Hãng hàng không") {
		t.Errorf("sapo should come first: %q", lines[0])
	}
	if strings.Contains(article.Content, "Mới nhất") || strings.Contains(article.Content, "ads") {
		t.Errorf("navigation or script leaked into content: %q", article.Content)
	}
	if article.URL == "" {
		t.Error("article URL should be set")
	}
}

func TestNewsAdapter_CanHandle(t *testing.T) {
	a := NewNewsAdapter(DefaultSites()[0])
	tests := []struct {
		url  string
		want bool
	}{
		{"https://vnexpress.net/a.html", true},
		{"https://e.vnexpress.net/a.html", true},
		{"https://notvnexpress.net/a.html", false},
		{"https://tuoitre.vn/a.htm", false},
		{"::bad", false},
	}
	for _, tt := range tests {
		if got := a.CanHandle(tt.url, "text/html"); got != tt.want {
			t.Errorf("CanHandle(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestRegistry_FallsBackToGeneric(t *testing.T) {
	// Known host, unfamiliar markup
	page := `<html><head><title>Tin nhanh</title></head><body>
<div><p>Giá xăng RON 95 tăng 500 đồng mỗi lít từ chiều nay theo quyết định của liên bộ.</p>
<p>Đây là lần tăng thứ ba liên tiếp trong tháng 3 năm nay.</p></div></body></html>`

	r := NewRegistry()
	article, name, err := r.Extract(page, "https://tuoitre.vn/gia-xang.htm", "text/html")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if name != "generic" {
		t.Errorf("expected generic fallback, got %s", name)
	}
	if !strings.Contains(article.Content, "Giá xăng RON 95 tăng 500 đồng") {
		t.Errorf("body text missing: %q", article.Content)
	}
}

func TestRegistry_EmptyPage(t *testing.T) {
	r := NewRegistry()
	if _, _, err := r.Extract(`<html><body><script>x()</script></body></html>`, "https://example.com/", "text/html"); err == nil {
		t.Fatal("expected error for a page without text")
	}
}
