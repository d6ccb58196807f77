package document

// Kind identifies the document shape.
type Kind string

const (
	// KindStatement is a due-diligence statement submission.
	KindStatement Kind = "due_diligence_statement"

	// KindSupplyChain is aggregated supply-chain data.
	KindSupplyChain Kind = "supply_chain"

	// KindUnknown matches neither shape.
	KindUnknown Kind = "unknown"
)

// Keys is the set of keys that were present with a non-null value on a
// document object.
type Keys map[string]struct{}

// Has reports whether key was present.
func (k Keys) Has(key string) bool {
	_, ok := k[key]
	return ok
}

// DueDiligenceStatement is the regulatory filing under evaluation.
type DueDiligenceStatement struct {
	ReferenceNumber        Field[string]
	VerificationNumber     Field[string]
	ValidFrom              Field[string]
	ValidUntil             Field[string]
	InformationProviderGLN Field[string]
	Products               Field[[]Product]

	// Keys lists the statement keys that carried a value.
	Keys Keys
}

// Product is one traded item listed in a statement.
type Product struct {
	// Index is the zero based position in the products list.
	Index int

	GTIN         Field[string]
	BatchNumber  Field[string]
	SerialNumber Field[string]
	DigitalLink  Field[string]

	Keys Keys
}

// MitigationMeasure is a risk-mitigation action declared by the submitter.
type MitigationMeasure struct {
	Index       int
	Type        Field[string]
	Description Field[string]
	SupplierID  Field[string]
}

// StatementSubmission is the statement document: the statement itself, the
// declared mitigation measures and an optional evaluation date.
type StatementSubmission struct {
	Statement      Field[*DueDiligenceStatement]
	RiskMitigation Field[[]MitigationMeasure]
	ValidationDate Field[string]
}

// Supplier is one supplier in aggregated supply-chain data.
type Supplier struct {
	Index int

	ID                     Field[string]
	Country                Field[string]
	TransparencyIndicators Field[map[string]bool]
	SupplyChainDepth       Field[int]

	Keys Keys
}

// SupplyChainProduct is a product sourced through the supply chain.
type SupplyChainProduct struct {
	Index     int
	GTIN      Field[string]
	Commodity Field[string]
}

// SupplyChainData is the supply-chain document.
type SupplyChainData struct {
	Suppliers              Field[[]Supplier]
	Products               Field[[]SupplyChainProduct]
	RiskMitigationMeasures Field[[]MitigationMeasure]
	AssessmentDate         Field[string]
}

// Document is an adapted input document. Exactly one of Statement and
// SupplyChain is set unless Kind is KindUnknown.
type Document struct {
	Kind        Kind
	Statement   *StatementSubmission
	SupplyChain *SupplyChainData

	// Raw is the decoded object the document was adapted from.
	Raw map[string]any
}

// ID returns an identifier for the document: the statement reference number
// when present, otherwise the empty string.
func (d *Document) ID() string {
	if d == nil || d.Statement == nil {
		return ""
	}
	st, err := d.Statement.Statement.Get()
	if err != nil {
		return ""
	}
	return st.ReferenceNumber.Or("")
}
