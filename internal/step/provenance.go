package step

// Outcome is the result of a single step attempt.
type Outcome string

// Step outcomes.
const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeUnknown Outcome = "unknown"
)

// FallbackName names the provenance entry recorded when a search exhausts.
const FallbackName = "ExhaustionFallback"

// Provenance is one ledger entry describing a step attempt.
type Provenance struct {
	Name              string            `json:"name"`
	ParentStepName    string            `json:"parent_step_name"`
	Subject           string            `json:"subject"`
	ParentSubject     string            `json:"parent_subject"`
	ContentURL        string            `json:"content_url"`
	AdditionalURL     *AdditionalURL    `json:"additional_content_url"`
	OriginalURL       string            `json:"original_url"`
	Host              string            `json:"host"`
	FoundViaProxyType string            `json:"found_via_proxy_type"`
	HasContent        bool              `json:"has_content"`
	Outcome           Outcome           `json:"outcome"`
	SourcePreview     map[string]string `json:"source_preview"`
	KeyWord           string            `json:"key_word"`
	Error             string            `json:"error,omitempty"`
}

// Provenance returns the ledger entry for this instance.
func (i *Instance) Provenance() Provenance {
	p := Provenance{
		Name:           i.Name(),
		ParentStepName: i.Parent.Name(),
		ContentURL:     i.ContentURL,
		AdditionalURL:  i.AdditionalURL,
		OriginalURL:    i.OriginalURL,
		HasContent:     i.HasContent(),
		SourcePreview:  i.Preview,
		KeyWord:        i.KeyWord,
		Outcome:        OutcomeFailure,
	}
	if p.HasContent {
		p.Outcome = OutcomeSuccess
	}
	if i.Kind != nil {
		p.Subject = i.Kind.Subject
		p.Host = i.Kind.Host
		p.FoundViaProxyType = i.Kind.ProxyType
	}
	if i.Parent != nil && i.Parent.Kind != nil {
		p.ParentSubject = i.Parent.Kind.Subject
	}
	if i.Err != nil {
		p.Error = i.Err.Error()
	}
	if p.SourcePreview == nil {
		p.SourcePreview = map[string]string{}
	}
	return p
}

// FallbackProvenance records that no branch produced metadata.
func FallbackProvenance(last *Instance, identifier string) Provenance {
	return Provenance{
		Name:           FallbackName,
		ParentStepName: last.Name(),
		Subject:        "fallback",
		ContentURL:     identifier,
		HasContent:     true,
		Outcome:        OutcomeUnknown,
		SourcePreview:  map[string]string{},
	}
}
