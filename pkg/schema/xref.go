package schema

// XRef holds the eight optional cross-reference fields a meta section may
// carry, each a list of strings validated against its own pattern before
// being attached to the model.
type XRef struct {
	ForensicWiki     []string
	ISO              []string
	JustSolve        []string
	LocIdentifier    []string
	MIMEType         []string
	PronomIdentifier []string
	RFCIdentifier    []string
	WikiDataID       []string
}

// IsZero reports whether no xref field was ever populated.
func (x XRef) IsZero() bool {
	return len(x.ForensicWiki) == 0 && len(x.ISO) == 0 && len(x.JustSolve) == 0 &&
		len(x.LocIdentifier) == 0 && len(x.MIMEType) == 0 && len(x.PronomIdentifier) == 0 &&
		len(x.RFCIdentifier) == 0 && len(x.WikiDataID) == 0
}
