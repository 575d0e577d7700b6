// Package hash implementa o contrato de hashing de PII pro match de
// enhanced conversions. A normalização é exata e obrigatória: trim +
// lowercase simples (sem case-folding Unicode), SHA-256 dos bytes
// UTF-8, 64 hex minúsculos. O mesmo contrato precisa valer aqui e no
// pixel do front, senão o join CRM -> lead quebra silenciosamente.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Email normaliza e devolve o digest hex. Pura e determinística -
// o Lead Matcher depende disso pra casar dados do CRM com leads
// capturados sem nunca transmitir o email em claro.
func Email(email string) string {
	normalized := strings.ToLower(strings.TrimSpace(email))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// Normalize expõe só a etapa de normalização (útil pra comparar
// emails vindos do CRM antes de hashear).
func Normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
