package documents

import (
	"crypto/sha1"
	"encoding/base64"
	"sort"
	"strings"
	"time"

	"kitanda/internal/core/apperror"
	"kitanda/internal/core/types"
)

const (
	hashDateLayout  = "2006-01-02"
	hashEntryLayout = "2006-01-02T15:04:05"
)

// ComputeHash chains doc to the previous document of its series and type:
// base64(sha1("date;systemEntry;number;grossTotal;prevHash")).
func ComputeHash(doc *Document, prevHash string) string {
	entry := ""
	if doc.CertifiedAt != nil {
		entry = doc.CertifiedAt.UTC().Format(hashEntryLayout)
	}
	date := doc.Date
	if doc.IssueDate != nil {
		date = *doc.IssueDate
	}
	payload := strings.Join([]string{
		date.In(FiscalZone).Format(hashDateLayout),
		entry,
		doc.Number,
		types.Fixed(types.Round2(doc.Totals.Total)),
		prevHash,
	}, ";")
	sum := sha1.Sum([]byte(payload))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// VerifyChain recomputes the hash chain of certified documents sharing one
// series and type, in certification order. Cancelled documents stay in the chain.
func VerifyChain(docs []*Document) error {
	chain := make([]*Document, 0, len(docs))
	for _, d := range docs {
		if d.IsCertified {
			chain = append(chain, d)
		}
	}
	sort.Slice(chain, func(i, j int) bool {
		ci, cj := certifiedAt(chain[i]), certifiedAt(chain[j])
		if !ci.Equal(cj) {
			return ci.Before(cj)
		}
		return chain[i].Sequence < chain[j].Sequence
	})

	prev := ""
	for _, d := range chain {
		if want := ComputeHash(d, prev); want != d.Hash {
			return apperror.NewBusinessRule(apperror.CodeBusinessRule, "document hash chain is broken").
				WithDetail("number", d.Number)
		}
		prev = d.Hash
	}
	return nil
}

func certifiedAt(d *Document) time.Time {
	if d.CertifiedAt == nil {
		return time.Time{}
	}
	return *d.CertifiedAt
}
