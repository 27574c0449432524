// Package security builds TLS settings for outbound connections to an
// identity provider, such as a private issuer signed by an internal CA or
// one that requires a client certificate.
//
//	tls:
//	  ca_file: /etc/ssl/internal-ca.pem
//	  cert_file: /etc/oidc/client.pem
//	  key_file: /etc/oidc/client-key.pem
package security
