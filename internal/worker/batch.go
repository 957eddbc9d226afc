package worker

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/tinthat/internal/model"
)

// Verifier checks one article
type Verifier interface {
	VerifyArticle(ctx context.Context, article model.Article) (*model.VerificationResult, error)
}

// ArticleFetcher downloads articles that arrive as bare URLs
type ArticleFetcher interface {
	FetchArticle(ctx context.Context, url string) (model.Article, string, error)
}

// VerifyJob verifies one article from a batch
type VerifyJob struct {
	Index    int
	Article  model.Article
	Verifier Verifier
	Fetcher  ArticleFetcher
}

// Execute executes the verification job
func (j *VerifyJob) Execute(ctx context.Context) Result {
	res := &VerifyResult{Index: j.Index, ID: j.Article.ID, URL: j.Article.URL}

	article := j.Article
	if strings.TrimSpace(article.Content) == "" && article.URL != "" {
		if j.Fetcher == nil {
			res.Error = fmt.Errorf("article %s has no content and fetching is disabled", article.URL)
			return res
		}
		fetched, _, err := j.Fetcher.FetchArticle(ctx, article.URL)
		if err != nil {
			res.Error = fmt.Errorf("fetch %s: %w", article.URL, err)
			return res
		}
		fetched.ID = article.ID
		article = fetched
	}

	result, err := j.Verifier.VerifyArticle(ctx, article)
	if err != nil {
		res.Error = err
		return res
	}
	res.Result = result
	return res
}

// VerifyResult is one line of batch output
type VerifyResult struct {
	Index  int                       `json:"index"`
	ID     string                    `json:"id,omitempty"`
	URL    string                    `json:"url,omitempty"`
	Result *model.VerificationResult `json:"result,omitempty"`
	Error  error                     `json:"-"`
}

// GetError returns the error from the verification
func (r *VerifyResult) GetError() error {
	return r.Error
}

// MarshalJSON adds the error message as a string field
func (r *VerifyResult) MarshalJSON() ([]byte, error) {
	type alias VerifyResult
	out := struct {
		*alias
		Err string `json:"error,omitempty"`
	}{alias: (*alias)(r)}
	if r.Error != nil {
		out.Err = r.Error.Error()
	}
	return json.Marshal(out)
}

// BatchProcessor verifies many articles concurrently
type BatchProcessor struct {
	verifier    Verifier
	fetcher     ArticleFetcher
	concurrency int
}

// NewBatchProcessor creates a new batch processor; fetcher may be nil
func NewBatchProcessor(verifier Verifier, fetcher ArticleFetcher, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		verifier:    verifier,
		fetcher:     fetcher,
		concurrency: concurrency,
	}
}

// ProcessArticles verifies articles concurrently and returns results in input order
func (b *BatchProcessor) ProcessArticles(ctx context.Context, articles []model.Article) []*VerifyResult {
	if len(articles) == 0 {
		return []*VerifyResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for i, article := range articles {
		pool.Submit(&VerifyJob{
			Index:    i,
			Article:  article,
			Verifier: b.verifier,
			Fetcher:  b.fetcher,
		})
	}

	// Every article gets a row, including those dropped by cancellation
	out := make([]*VerifyResult, len(articles))
	for _, result := range pool.Wait() {
		res := result.(*VerifyResult)
		out[res.Index] = res
	}
	for i, res := range out {
		if res == nil {
			err := ctx.Err()
			if err == nil {
				err = errors.New("not processed")
			}
			out[i] = &VerifyResult{Index: i, ID: articles[i].ID, URL: articles[i].URL, Error: err}
		}
	}
	return out
}

// ProcessFile reads articles from a file and verifies them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*VerifyResult, error) {
	articles, err := ReadArticlesFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read articles: %w", err)
	}

	return b.ProcessArticles(ctx, articles), nil
}

// ReadArticlesFromFile reads one article per line: a JSON object
// ({"id", "url", "title", "content"}) or a bare URL. Blank lines and
// # comments are skipped; repeated lines are read once.
func ReadArticlesFromFile(filePath string) ([]model.Article, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var articles []model.Article
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") || seen[line] {
			continue
		}
		seen[line] = true

		if !strings.HasPrefix(line, "{") {
			articles = append(articles, model.Article{URL: line})
			continue
		}

		var article model.Article
		if err := json.Unmarshal([]byte(line), &article); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if article.Content == "" && article.Title == "" && article.URL == "" {
			return nil, fmt.Errorf("line %d: article needs content, title or url", lineNo)
		}
		articles = append(articles, article)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return articles, nil
}
