package types

// RetrievedDocument is one ranked hit returned by a vector index
type RetrievedDocument struct {
	ID       string   `json:"id"`
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata"`
	Score    float64  `json:"score"`
}

// DataType returns the data_type tag, defaulting to product when absent
func (d RetrievedDocument) DataType() string {
	if s, ok := d.Metadata.String(MetaDataType); ok && s != "" {
		return s
	}
	return DataTypeProduct
}

// Tagged reports whether the document carries an explicit data_type tag
func (d RetrievedDocument) Tagged() bool {
	_, ok := d.Metadata[MetaDataType]
	return ok
}
