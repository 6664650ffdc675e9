//go:build !malicious

package buildinfo

// Malicious reports whether the adversarial behaviour surface is compiled in.
const Malicious = false
