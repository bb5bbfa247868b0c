package security

import "time"

// TestCode is the fixed code issued for configured test identifiers so QA
// can run the full flow without touching the delivery gateway.
const TestCode = "123456"

type CodeGenerator struct {
	testIdentifiers map[string]struct{}
	validity        time.Duration
}

func NewCodeGenerator(testIdentifiers []string, validity time.Duration) *CodeGenerator {
	if validity <= 0 {
		validity = 10 * time.Minute
	}
	set := make(map[string]struct{}, len(testIdentifiers))
	for _, id := range testIdentifiers {
		set[id] = struct{}{}
	}
	return &CodeGenerator{testIdentifiers: set, validity: validity}
}

func (g *CodeGenerator) IsTest(identifier string) bool {
	_, ok := g.testIdentifiers[identifier]
	return ok
}

// Generate returns a 6-digit code and its absolute expiry. Test
// identifiers always get TestCode.
func (g *CodeGenerator) Generate(identifier string) (string, time.Time, error) {
	expiresAt := time.Now().UTC().Add(g.validity)
	if g.IsTest(identifier) {
		return TestCode, expiresAt, nil
	}
	code, err := RandomDigits(6)
	if err != nil {
		return "", time.Time{}, err
	}
	return code, expiresAt, nil
}
