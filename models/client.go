package models

import "github.com/panafact/fepa_backend/utils"

// Client is a read-only projection of a client record from the hosted table
// store. Never written back.
type Client struct {
	Name            string `json:"name"`
	TaxId           string `json:"taxId"`
	TaxIdCheckDigit string `json:"taxIdCheckDigit"`
	Address         string `json:"address"`
	Phone           string `json:"phone"`
	Email           string `json:"email"`
}

// CleanRUC returns the tax id with hyphens and spaces stripped, the form the
// fiscal document schema expects. No other transformation is applied.
func (c Client) CleanRUC() string {
	ruc := utils.CollapseWhitespace(c.TaxId)
	out := make([]rune, 0, len(ruc))
	for _, r := range ruc {
		if r == '-' || r == ' ' {
			continue
		}
		out = append(out, r)
	}
	return string(out)
}
