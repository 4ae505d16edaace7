package workflows

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hits-task/taskbot/backend"
	"github.com/hits-task/taskbot/conversation"
)

// Callback data prefixes for the company pager.
const (
	CompanyPrefix = "company_"
	PagePrefix    = "page_"
)

const companiesKey = "companies"

// storeCompanies caches the full listing in the session so paging never
// refetches.
func storeCompanies(sess *conversation.Session, companies []backend.Company) error {
	raw, err := json.Marshal(companies)
	if err != nil {
		return fmt.Errorf("marshal companies: %w", err)
	}
	sess.Data[companiesKey] = string(raw)
	return nil
}

func loadCompanies(sess *conversation.Session) ([]backend.Company, error) {
	var companies []backend.Company
	if err := json.Unmarshal([]byte(sess.Data[companiesKey]), &companies); err != nil {
		return nil, fmt.Errorf("unmarshal companies: %w", err)
	}
	return companies, nil
}

// renderCompanyPage builds the reply and option buttons for one page of
// the listing. Out-of-range pages clamp to the nearest valid one.
func renderCompanyPage(companies []backend.Company, page, size int) (string, []conversation.Option) {
	pages := (len(companies) + size - 1) / size
	if pages < 1 {
		pages = 1
	}
	if page < 0 {
		page = 0
	}
	if page >= pages {
		page = pages - 1
	}

	start := page * size
	end := start + size
	if end > len(companies) {
		end = len(companies)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Please select your company (page %d/%d):", page+1, pages)

	opts := make([]conversation.Option, 0, size+2)
	for _, c := range companies[start:end] {
		opts = append(opts, conversation.Option{Label: c.Name, Value: CompanyPrefix + c.ID})
	}
	if page > 0 {
		opts = append(opts, conversation.Option{Label: "⬅️ Prev", Value: fmt.Sprintf("%s%d", PagePrefix, page-1)})
	}
	if page < pages-1 {
		opts = append(opts, conversation.Option{Label: "Next ➡️", Value: fmt.Sprintf("%s%d", PagePrefix, page+1)})
	}
	return b.String(), opts
}
