package types

// TestQuery is a labeled retrieval query
type TestQuery struct {
	QueryID          string   `json:"query_id" yaml:"query_id"`
	Query            string   `json:"query" yaml:"query"`
	QueryType        string   `json:"query_type" yaml:"query_type"`
	ExpectedProducts []string `json:"expected_products,omitempty" yaml:"expected_products,omitempty"`
	ExpectedFAQs     []string `json:"expected_faqs,omitempty" yaml:"expected_faqs,omitempty"`
}

// Validate checks that the query can be issued
func (q TestQuery) Validate() error {
	if q.QueryID == "" {
		return ErrMissingEntityID
	}
	if q.Query == "" {
		return ErrEmptyQueryText
	}
	return nil
}

// Governing returns the expected identifier set used for scoring. The FAQ
// set wins when it is non-empty.
func (q TestQuery) Governing() (ids []string, dataType string) {
	if len(q.ExpectedFAQs) > 0 {
		return q.ExpectedFAQs, DataTypeFAQ
	}
	return q.ExpectedProducts, DataTypeProduct
}
