package categorize

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cleared-dev/spendlens/internal/model"
)

// Query is the instruction sent with every batch.
const Query = `Assign each transaction to a category path using the format "X > Y > Z". ` +
	`Reuse existing categories when they clearly match; otherwise propose a new path. ` +
	`If confidence is below 0.70, use "Uncategorized". Return all transaction IDs.`

// SystemInstruction frames the oracle's role.
const SystemInstruction = `You are a transaction categorization engine. ` +
	`Use the provided transaction fields to infer spend type. ` +
	`You may create new hierarchical category paths. ` +
	`Return one assignment per transaction ID. ` +
	`When uncertain, choose "Uncategorized".`

// Oracle assigns category paths to one batch of transactions.
type Oracle interface {
	Assign(ctx context.Context, req *Request) (*Response, error)
}

// OracleFunc adapts a function to the Oracle interface.
type OracleFunc func(ctx context.Context, req *Request) (*Response, error)

func (f OracleFunc) Assign(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// TransactionRef is the slice of a transaction the oracle gets to see.
type TransactionRef struct {
	TransactionID  string `json:"transaction_id"`
	DescriptionRaw string `json:"description_raw"`
	AmountCents    int64  `json:"amount_cents"`
	PostedAt       string `json:"posted_at"`
}

// CategoryRef is a forest node as sent to the oracle; the root has a null
// parent.
type CategoryRef struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	ParentID *string `json:"parent_id"`
}

// RequestData is the structured part of a request.
type RequestData struct {
	Transactions       []TransactionRef `json:"transactions"`
	ExistingCategories []CategoryRef    `json:"existing_categories"`
}

// Request is one batch worth of work.
type Request struct {
	Instruction string      `json:"instruction"`
	System      string      `json:"-"`
	Data        RequestData `json:"data"`
}

// Prompt renders the request as the text sent to completion models.
func (r *Request) Prompt() (string, error) {
	data, err := json.MarshalIndent(r.Data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling request data: %w", err)
	}
	return "Query:\n" + r.Instruction + "\n\nData:\n" + string(data), nil
}

// Assignment is the oracle's answer for one transaction.
type Assignment struct {
	TransactionID string  `json:"transaction_id"`
	CategoryPath  string  `json:"category_path"`
	Confidence    float64 `json:"confidence"`
}

// Response is the oracle's answer for a batch.
type Response struct {
	Assignments []Assignment `json:"assignments"`
}

// OracleError reports a failed batch. Earlier batches keep their results.
type OracleError struct {
	Batch int // 1-based
	Err   error
}

func (e *OracleError) Error() string {
	return fmt.Sprintf("categorizing batch %d: %v", e.Batch, e.Err)
}

func (e *OracleError) Unwrap() error { return e.Err }

func newRequest(batch []model.Transaction, categories []model.Category) *Request {
	req := &Request{
		Instruction: Query,
		System:      SystemInstruction,
		Data: RequestData{
			Transactions:       make([]TransactionRef, len(batch)),
			ExistingCategories: make([]CategoryRef, len(categories)),
		},
	}
	for i, t := range batch {
		req.Data.Transactions[i] = TransactionRef{
			TransactionID:  t.ID,
			DescriptionRaw: t.DescriptionRaw,
			AmountCents:    t.AmountCents,
			PostedAt:       t.PostedAt,
		}
	}
	for i, c := range categories {
		ref := CategoryRef{ID: c.ID, Name: c.Name}
		if c.ParentID != "" {
			parent := c.ParentID
			ref.ParentID = &parent
		}
		req.Data.ExistingCategories[i] = ref
	}
	return req
}
