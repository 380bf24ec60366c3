package plugin

import (
	"crypto/sha256"
	"encoding/hex"
)

// DomainScript separates script digests from any other SHA-256 use.
// Version suffix enables future algorithm migration.
const DomainScript = "modpack/plugin-script/v1"

// Digest returns the content address of a plugin script.
// Format: hex(SHA256(domain + 0x00 + script))
func Digest(script string) string {
	h := sha256.New()
	h.Write([]byte(DomainScript))
	h.Write([]byte{0x00})
	h.Write([]byte(script))
	return hex.EncodeToString(h.Sum(nil))
}
