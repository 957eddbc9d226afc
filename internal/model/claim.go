package model

import "time"

// TrustLabel is a knowledge-base claim's status
type TrustLabel string

const (
	TrustReal      TrustLabel = "REAL"      // Approved; eligible as evidence
	TrustFake      TrustLabel = "FAKE"      // Known fabricated statement
	TrustUndefined TrustLabel = "UNDEFINED" // Awaiting review
)

// Valid reports whether l is a known trust label
func (l TrustLabel) Valid() bool {
	switch l {
	case TrustReal, TrustFake, TrustUndefined:
		return true
	}
	return false
}

// SourceType records how a knowledge-base claim entered the store
type SourceType string

const (
	SourceArticle SourceType = "article" // Produced by article ingestion
	SourceUser    SourceType = "user"    // Submitted by a user
	SourceAdmin   SourceType = "admin"   // Entered by an administrator
)

// KBClaim is one trusted-or-not sentence stored in the knowledge base
type KBClaim struct {
	ID              int64      `json:"id"`
	SourceArticleID string     `json:"source_article_id,omitempty"`
	Text            string     `json:"text"`
	Embedding       []float32  `json:"embedding,omitempty"`
	TrustLabel      TrustLabel `json:"trust_label"`
	Verified        bool       `json:"verified"`
	SourceType      SourceType `json:"source_type"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Trusted reports whether the claim may serve as evidence
func (c KBClaim) Trusted() bool {
	return c.TrustLabel == TrustReal
}

// InputClaim is a checkable sentence extracted from a submitted article
type InputClaim struct {
	Text      string    `json:"text"`
	Index     int       `json:"index"`              // Sentence position in the article (0-based)
	Detector  string    `json:"detector,omitempty"` // classifier, heuristic or digit
	Embedding []float32 `json:"-"`
}

// Article is a verification request body as sent by the browser extension
type Article struct {
	ID      string `json:"id,omitempty"`
	URL     string `json:"url,omitempty"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Text joins title and content so the title ends up as its own sentence
func (a Article) Text() string {
	switch {
	case a.Title == "":
		return a.Content
	case a.Content == "":
		return a.Title
	}
	return a.Title + "\n" + a.Content
}
