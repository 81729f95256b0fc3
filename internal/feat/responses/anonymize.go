package responses

import (
	"encoding/hex"
	"net/http"

	"golang.org/x/crypto/blake2b"

	"github.com/cliossg/formkit/pkg/cl/config"
	"github.com/cliossg/formkit/pkg/cl/logger"
	"github.com/cliossg/formkit/pkg/cl/middleware"
)

// Anonymizer replaces client addresses with a keyed BLAKE2b-256 digest, so
// repeat submissions stay detectable without storing the address itself.
type Anonymizer struct {
	key []byte
}

// NewAnonymizer keys the digest with salt. Salts longer than the 64 bytes
// BLAKE2b accepts are hashed down first.
func NewAnonymizer(salt string) *Anonymizer {
	key := []byte(salt)
	if len(key) > blake2b.Size {
		sum := blake2b.Sum512(key)
		key = sum[:]
	}
	return &Anonymizer{key: key}
}

// Hash returns the hex digest of ip, or "" for an empty ip.
func (a *Anonymizer) Hash(ip string) string {
	if ip == "" {
		return ""
	}
	h, err := blake2b.New256(a.key)
	if err != nil {
		// Only reachable with an oversized key, which NewAnonymizer prevents
		panic(err)
	}
	h.Write([]byte(ip))
	return hex.EncodeToString(h.Sum(nil))
}

// MetadataReader builds response metadata from the submitting request.
type MetadataReader struct {
	anon *Anonymizer
}

// NewMetadataReader stores raw addresses unless cfg.AnonymizeIP is set.
// Anonymizing without cfg.IPSalt is allowed but logged, since the unkeyed
// digest of an IPv4 address can be found by exhaustive search.
func NewMetadataReader(cfg config.ResponsesConfig, log logger.Logger) *MetadataReader {
	m := &MetadataReader{}
	if cfg.AnonymizeIP {
		if cfg.IPSalt == "" {
			log.Warn("responses.ip_salt is empty: anonymized addresses use an unkeyed digest")
		}
		m.anon = NewAnonymizer(cfg.IPSalt)
	}
	return m
}

// Read fills the client fields of md that the caller left empty.
func (m *MetadataReader) Read(r *http.Request, md Metadata) Metadata {
	if md.UserAgent == "" {
		md.UserAgent = r.UserAgent()
	}
	if md.Referrer == "" {
		md.Referrer = r.Referer()
	}

	ip := middleware.GetClientIP(r.Context())
	if ip == "" {
		ip = middleware.ExtractIP(r)
	}
	if m.anon != nil {
		ip = m.anon.Hash(ip)
	}
	md.IPAddress = ip
	return md
}
