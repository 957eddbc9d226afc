package extract

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ppiankov/tinthat/internal/model"
	"github.com/ppiankov/tinthat/internal/tei"
)

type stubClassifier struct {
	scores []float64
	err    error
	calls  int
}

func (s *stubClassifier) Score(ctx context.Context, sentences []string) ([]float64, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.scores[:len(sentences)], nil
}

func newTestExtractor(classifier Classifier) *ClaimExtractor {
	return NewClaimExtractor(model.DefaultConfig().Extractor, classifier)
}

func TestClaimExtractor_WordBoundary(t *testing.T) {
	extractor := newTestExtractor(nil)

	claims, err := extractor.Extract(context.Background(), "Hà Nội có 500 ca.")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(claims) != 0 {
		t.Errorf("Expected 5-word sentence to be excluded, got %v", claims)
	}

	claims, err = extractor.Extract(context.Background(), "Hà Nội có 500 ca mắc.")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(claims) != 1 {
		t.Fatalf("Expected 6-word sentence with a digit to be included, got %d claims", len(claims))
	}
	if claims[0].Detector != DetectorDigit {
		t.Errorf("Expected detector %q, got %q", DetectorDigit, claims[0].Detector)
	}
}

func TestClaimExtractor_HeuristicFilters(t *testing.T) {
	extractor := newTestExtractor(nil)

	text := "Bộ Y tế công bố 500 ca mắc mới trong ngày. " +
		"hôm nay trời rất đẹp và mát mẻ quá. " +
		"Liên hệ quảng cáo 0901234567 để được tư vấn. " +
		"Ai là người chiến thắng trong trận đấu này?"

	claims, err := extractor.Extract(context.Background(), text)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(claims) != 1 {
		t.Fatalf("Expected 1 claim, got %d: %v", len(claims), claims)
	}
	if !strings.Contains(claims[0].Text, "500 ca") {
		t.Errorf("Unexpected claim: %s", claims[0].Text)
	}
	if claims[0].Index != 0 {
		t.Errorf("Expected sentence index 0, got %d", claims[0].Index)
	}
}

func TestClaimExtractor_EntityHeuristic(t *testing.T) {
	extractor := newTestExtractor(nil)

	claims, err := extractor.Extract(context.Background(), "Đội tuyển bóng đá Việt Nam giành chiến thắng thuyết phục trước Thái Lan.")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(claims) != 1 {
		t.Fatalf("Expected 1 claim, got %d", len(claims))
	}
	if claims[0].Detector != DetectorHeuristic {
		t.Errorf("Expected detector %q, got %q", DetectorHeuristic, claims[0].Detector)
	}
}

func TestClaimExtractor_TransitionSentences(t *testing.T) {
	extractor := newTestExtractor(nil)

	text := "Dưới đây là danh sách 10 đội bóng mạnh nhất:\nXem thêm: Việt Nam thắng 3 trận liên tiếp tại vòng loại"
	claims, err := extractor.Extract(context.Background(), text)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(claims) != 0 {
		t.Errorf("Expected lead-in sentences to be dropped, got %v", claims)
	}
}

func TestClaimExtractor_Classifier(t *testing.T) {
	classifier := &stubClassifier{scores: []float64{0.9, 0.1, 0.2}}
	extractor := newTestExtractor(classifier)

	text := "Đội tuyển bóng đá giành chiến thắng thuyết phục tối qua. " +
		"Giá xăng tăng thêm 500 đồng mỗi lít từ chiều nay. " +
		"Người hâm mộ đổ ra đường ăn mừng suốt đêm qua."

	claims, err := extractor.Extract(context.Background(), text)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if classifier.calls != 1 {
		t.Errorf("Expected a single batched classifier call, got %d", classifier.calls)
	}
	if len(claims) != 2 {
		t.Fatalf("Expected 2 claims, got %d: %v", len(claims), claims)
	}
	if claims[0].Detector != DetectorClassifier {
		t.Errorf("Expected first claim from classifier, got %q", claims[0].Detector)
	}
	if claims[1].Detector != DetectorDigit {
		t.Errorf("Expected digit override for second claim, got %q", claims[1].Detector)
	}
}

func TestClaimExtractor_ClassifierError(t *testing.T) {
	boom := errors.New("connection refused")
	extractor := newTestExtractor(&stubClassifier{err: boom})

	_, err := extractor.Extract(context.Background(), "Giá xăng tăng thêm 500 đồng mỗi lít từ chiều nay.")
	if !errors.Is(err, boom) {
		t.Errorf("Expected wrapped classifier error, got %v", err)
	}
}

func TestClaimExtractor_DedupeAndCap(t *testing.T) {
	cfg := model.DefaultConfig().Extractor
	cfg.MaxClaims = 2
	extractor := NewClaimExtractor(cfg, nil)

	text := "Thành phố có 12 quận nội thành hiện nay. " +
		"THÀNH PHỐ CÓ 12 QUẬN NỘI THÀNH HIỆN NAY. " +
		"Thành phố có 5 huyện ngoại thành hiện nay. " +
		"Thành phố có 1 thị xã trực thuộc hiện nay."

	claims, err := extractor.Extract(context.Background(), text)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(claims) != 2 {
		t.Fatalf("Expected 2 claims after dedupe and cap, got %d", len(claims))
	}
	if !strings.Contains(claims[1].Text, "5 huyện") {
		t.Errorf("Expected order preserved, got %q", claims[1].Text)
	}
}

func TestClaimExtractor_Empty(t *testing.T) {
	extractor := newTestExtractor(nil)

	for _, text := range []string{"", "   ", "...", "Ngắn quá."} {
		claims, err := extractor.Extract(context.Background(), text)
		if err != nil {
			t.Fatalf("Expected no error for %q, got %v", text, err)
		}
		if len(claims) != 0 {
			t.Errorf("Expected no claims for %q, got %v", text, claims)
		}
	}
}

func TestVisibleText(t *testing.T) {
	html := `
	<html>
	<head>
		<script>var x = "script content";</script>
		<style>body { color: red; }</style>
	</head>
	<body>
		<h1>Tiêu đề bài viết</h1>
		<p>Đoạn văn thứ nhất.</p>
		<noscript>Noscript content</noscript>
		<p>Đoạn   văn thứ hai.</p>
	</body>
	</html>
	`

	text, err := VisibleText(html)
	if err != nil {
		t.Fatalf("Failed to parse HTML: %v", err)
	}

	lines := strings.Split(text, "\n")
	want := []string{"Tiêu đề bài viết", "Đoạn văn thứ nhất.", "Đoạn văn thứ hai."}
	if len(lines) != len(want) {
		t.Fatalf("Expected %d lines, got %d: %q", len(want), len(lines), text)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d: expected %q, got %q", i, want[i], lines[i])
		}
	}
	if strings.Contains(text, "script content") || strings.Contains(text, "color: red") {
		t.Error("Should not extract script or style content")
	}
}

func TestRemoteClassifier(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			[{"label":"LABEL_1","score":0.92},{"label":"LABEL_0","score":0.08}],
			[{"label":"LABEL_0","score":0.7},{"label":"LABEL_1","score":0.3}]
		]`))
	}))
	defer server.Close()

	client, err := tei.NewClient(tei.Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	scores, err := NewRemoteClassifier(client, "").Score(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if len(scores) != 2 || scores[0] != 0.92 || scores[1] != 0.3 {
		t.Errorf("unexpected scores: %v", scores)
	}
}
