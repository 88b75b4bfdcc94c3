// Package signature generates RSA key pairs and creates and checks detached artifact signatures.
//
// Signatures are RSA PKCS#1 v1.5 over the SHA-256 digest of the whole file and are stored as
// base64 text. Keys are stored as PEM: PKCS#8 for the private key and PKIX for the public key.
package signature
