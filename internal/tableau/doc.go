// Package tableau is a small client for the Tableau Server / Tableau Cloud REST API.
//
// It covers what publishing an extract needs: server version discovery,
// sign-in with a password or personal access token, project lookup by name and
// datasource upload (single request or chunked upload session).
//
// Request and response bodies use the XML representation, the one every API
// version supports.
package tableau
