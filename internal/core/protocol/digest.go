package protocol

import (
	"crypto"
	_ "crypto/sha1"
	_ "crypto/sha256"
	_ "crypto/sha512"
)

// Digest algorithm URIs.
const (
	DigestSHA1   = "http://www.w3.org/2000/09/xmldsig#sha1"
	DigestSHA256 = "http://www.w3.org/2001/04/xmlenc#sha256"
	DigestSHA384 = "http://www.w3.org/2001/04/xmldsig-more#sha384"
	DigestSHA512 = "http://www.w3.org/2001/04/xmlenc#sha512"
)

// digestHashes maps digest algorithm URIs to hash functions. SHA-1 is
// accepted for verification of received digests only; the engine never
// produces it.
var digestHashes = map[string]crypto.Hash{
	DigestSHA1:   crypto.SHA1,
	DigestSHA256: crypto.SHA256,
	DigestSHA384: crypto.SHA384,
	DigestSHA512: crypto.SHA512,
}

// HashForDigestURI returns the hash function for a digest algorithm URI.
func HashForDigestURI(uri string) (crypto.Hash, bool) {
	h, ok := digestHashes[uri]
	return h, ok
}

// signatureDigests maps signature algorithm URIs to the digest used for the
// to-be-signed computation.
var signatureDigests = map[string]crypto.Hash{
	"http://www.w3.org/2001/04/xmldsig-more#rsa-sha256":   crypto.SHA256,
	"http://www.w3.org/2001/04/xmldsig-more#rsa-sha384":   crypto.SHA384,
	"http://www.w3.org/2001/04/xmldsig-more#rsa-sha512":   crypto.SHA512,
	"http://www.w3.org/2001/04/xmldsig-more#ecdsa-sha256": crypto.SHA256,
	"http://www.w3.org/2001/04/xmldsig-more#ecdsa-sha384": crypto.SHA384,
	"http://www.w3.org/2001/04/xmldsig-more#ecdsa-sha512": crypto.SHA512,
}

// HashForSignatureURI returns the digest function paired with a signature
// algorithm URI.
func HashForSignatureURI(uri string) (crypto.Hash, bool) {
	h, ok := signatureDigests[uri]
	return h, ok
}

// DigestURIForSignatureURI returns the digest algorithm URI paired with a
// signature algorithm URI.
func DigestURIForSignatureURI(uri string) (string, bool) {
	h, ok := signatureDigests[uri]
	if !ok {
		return "", false
	}
	for digestURI, dh := range digestHashes {
		if dh == h && digestURI != DigestSHA1 {
			return digestURI, true
		}
	}
	return "", false
}
