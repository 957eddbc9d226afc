package extract

import (
	"context"

	"github.com/ppiankov/tinthat/internal/tei"
)

// RemoteClassifier scores sentences with a fine-tuned claim-detection model
// served behind a /predict endpoint
type RemoteClassifier struct {
	client *tei.Client
	label  string
}

// NewRemoteClassifier reads P(label) from the server's response
func NewRemoteClassifier(client *tei.Client, label string) *RemoteClassifier {
	if label == "" {
		label = "LABEL_1"
	}
	return &RemoteClassifier{client: client, label: label}
}

// Score returns the positive-class probability of each sentence
func (c *RemoteClassifier) Score(ctx context.Context, sentences []string) ([]float64, error) {
	preds, err := c.client.PredictTexts(ctx, sentences)
	if err != nil {
		return nil, err
	}
	scores := make([]float64, len(preds))
	for i, labels := range preds {
		for _, ls := range labels {
			if ls.Label == c.label {
				scores[i] = ls.Score
				break
			}
		}
	}
	return scores, nil
}
