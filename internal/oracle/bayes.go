package oracle

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/jbrukh/bayesian"

	"github.com/cleared-dev/spendlens/internal/categorize"
	"github.com/cleared-dev/spendlens/internal/model"
)

// ErrNotEnoughHistory means fewer than two categories have been used yet,
// which is too little for the offline classifier.
var ErrNotEnoughHistory = errors.New("offline categorizer needs transactions in at least two categories")

// Bayes is an offline oracle: a tf-idf naive Bayes classifier trained on
// descriptions of already categorized transactions.
type Bayes struct {
	classes []bayesian.Class
	cl      *bayesian.Classifier
}

// NewBayes trains on every categorized transaction in history.
func NewBayes(history []model.Transaction) (*Bayes, error) {
	seen := map[string]bool{}
	var classes []bayesian.Class
	for _, t := range history {
		if t.IsUncategorized() || seen[t.CategoryPath] {
			continue
		}
		seen[t.CategoryPath] = true
		classes = append(classes, bayesian.Class(t.CategoryPath))
	}
	if len(classes) < 2 {
		return nil, ErrNotEnoughHistory
	}

	cl := bayesian.NewClassifierTfIdf(classes...)
	for _, t := range history {
		if !seen[t.CategoryPath] {
			continue
		}
		cl.Learn(terms(t.DescriptionRaw), bayesian.Class(t.CategoryPath))
	}
	cl.ConvertTermsFreqToTfIdf()
	return &Bayes{classes: classes, cl: cl}, nil
}

// Assign implements categorize.Oracle. Confidence is the softmax of the
// winning log score.
func (b *Bayes) Assign(ctx context.Context, req *categorize.Request) (*categorize.Response, error) {
	resp := &categorize.Response{}
	for _, ref := range req.Data.Transactions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		class, conf := b.classify(ref.DescriptionRaw)
		resp.Assignments = append(resp.Assignments, categorize.Assignment{
			TransactionID: ref.TransactionID,
			CategoryPath:  string(class),
			Confidence:    conf,
		})
	}
	return resp, nil
}

func (b *Bayes) classify(desc string) (bayesian.Class, float64) {
	scores, _, _ := b.cl.LogScores(terms(desc))
	if len(scores) == 0 {
		return model.UncategorizedPath, 0
	}

	best := 0
	for i, s := range scores {
		if s > scores[best] {
			best = i
		}
	}

	var sumExp float64
	for _, s := range scores {
		sumExp += math.Exp(s - scores[best])
	}
	return b.classes[best], 1 / sumExp
}

// terms splits a bank description into lower-case words, dropping digits
// and punctuation that vary between otherwise identical charges.
func terms(desc string) []string {
	desc = strings.ToLower(desc)
	return strings.FieldsFunc(desc, func(r rune) bool {
		return !(r >= 'a' && r <= 'z')
	})
}
