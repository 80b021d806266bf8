package notify

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates
var templateFS embed.FS

var templateFuncs = template.FuncMap{
	"money": func(v float64) string { return fmt.Sprintf("%.2f", v) },
}

func mustParse(name string) *template.Template {
	return template.Must(
		template.New(name).Funcs(templateFuncs).ParseFS(templateFS, "templates/"+name),
	)
}

// templatePair holds the buyer-facing and owner-facing template for one job
// kind. Template selection is data, not branching.
type templatePair struct {
	buyerSubject string
	ownerSubject string
	buyer        *template.Template
	owner        *template.Template
}

var templatePairs = map[Kind]templatePair{
	KindPurchase: {
		buyerSubject: "Your order is confirmed",
		ownerSubject: "You sold an item",
		buyer:        mustParse("purchase_buyer.html.tmpl"),
		owner:        mustParse("purchase_owner.html.tmpl"),
	},
	KindCancel: {
		buyerSubject: "Your order has been cancelled",
		ownerSubject: "An order was cancelled",
		buyer:        mustParse("cancel_buyer.html.tmpl"),
		owner:        mustParse("cancel_owner.html.tmpl"),
	},
}

// Rendered is the pair of outbound emails produced from one job.
type Rendered struct {
	BuyerSubject string
	BuyerHTML    string
	OwnerSubject string
	OwnerHTML    string
}

// Render produces the buyer and owner email bodies for a job. It is pure:
// no I/O, and identical jobs yield byte-identical output. An empty item
// slice renders an empty table. Unknown kinds fail rather than defaulting.
func Render(job *Job) (*Rendered, error) {
	pair, ok := templatePairs[job.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownJobKind, job.Kind)
	}

	var buyer bytes.Buffer
	if err := pair.buyer.Execute(&buyer, job); err != nil {
		return nil, fmt.Errorf("failed to render buyer body: %w", err)
	}

	var owner bytes.Buffer
	if err := pair.owner.Execute(&owner, job); err != nil {
		return nil, fmt.Errorf("failed to render owner body: %w", err)
	}

	return &Rendered{
		BuyerSubject: pair.buyerSubject,
		BuyerHTML:    buyer.String(),
		OwnerSubject: pair.ownerSubject,
		OwnerHTML:    owner.String(),
	}, nil
}
