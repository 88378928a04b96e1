package maskedSecret

type MaskedSecret struct {
	Masked string `json:"masked"`
	Secret string `json:"secret"`
	Line   int    `json:"line"`
}

type MaskedEntry struct {
	MaskedSecrets []MaskedSecret `json:"maskedSecrets"`
	MaskedFile    string         `json:"maskedFile"`
}

// Secrets returns the original values that were masked, in detection order.
func (e *MaskedEntry) Secrets() []string {
	secrets := make([]string, 0, len(e.MaskedSecrets))
	for _, s := range e.MaskedSecrets {
		secrets = append(secrets, s.Secret)
	}
	return secrets
}
