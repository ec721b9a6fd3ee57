package models

import "encoding/json"

// Article is one statutory passage of the corpus. Its position in the
// corpus is its identifier and the join key into the embedding matrix.
type Article struct {
	LawText string `json:"Law_Text"`

	// Raw keeps the full source record so fields other than the law text
	// (article number, law name) survive loading untouched.
	Raw json.RawMessage `json:"-"`
}

// UnmarshalJSON keeps the raw record alongside the decoded law text.
func (a *Article) UnmarshalJSON(data []byte) error {
	var fields struct {
		LawText *string `json:"Law_Text"`
	}
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if fields.LawText != nil {
		a.LawText = *fields.LawText
	}
	a.Raw = append(a.Raw[:0], data...)
	return nil
}
