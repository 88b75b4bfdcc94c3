// Package signer reports and maintains the signature state of every artifact in a distribution
// tree.
package signer
