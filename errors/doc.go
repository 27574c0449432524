// Package errors provides the structured error type shared by the token
// validators, the auth middleware and the HTTP responders. Codes map to HTTP
// statuses so downstream handlers can turn an authentication outcome into a
// response without string matching.
package errors
