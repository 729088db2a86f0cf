// Package jwt manages signed claim issuance and verification for access and
// password-reset tokens using configured signing keys and strict validation
// semantics suitable for low-latency authentication paths.
package jwt
